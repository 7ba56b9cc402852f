// SPDX-FileCopyrightText: 2026 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package cmd_test

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aibor/bootrun/internal/cmd"
)

const configTemplate = `
qemu:
  executable: %s
  arch: amd64
  kernel: %s
  no_kvm: true
patterns:
  success: ["Hello from my OS"]
  failure: ["kernel panic"]
`

// fakeEmulator writes a shell script used in place of QEMU. It ignores all
// arguments.
func fakeEmulator(t *testing.T, script string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "qemu-system-x86_64")
	content := "#!/bin/sh\n" + script + "\n"

	require.NoError(t, os.WriteFile(path, []byte(content), 0o755))

	return path
}

func writeConfig(t *testing.T, executable string) string {
	t.Helper()

	dir := t.TempDir()
	kernel := filepath.Join(dir, "bzImage")
	path := filepath.Join(dir, "bootrun.yaml")

	require.NoError(t, os.WriteFile(kernel, []byte("kernel"), 0o600))
	require.NoError(t, os.WriteFile(path,
		fmt.Appendf(nil, configTemplate, executable, kernel), 0o600))

	return path
}

func TestRun(t *testing.T) {
	tests := []struct {
		name             string
		script           string
		args             []string
		expectedExitCode int
		expectedStdout   string
		expectedStderr   string
	}{
		{
			name:             "success",
			script:           "echo Booting...\necho Hello from my OS\nexec sleep 10",
			expectedExitCode: cmd.ExitSuccess,
			expectedStdout:   "Hello from my OS",
			expectedStderr:   `bootrun: success (pattern "Hello from my OS")`,
		},
		{
			name:             "failure",
			script:           "echo Booting...\necho kernel panic: OOM\nexec sleep 10",
			expectedExitCode: cmd.ExitFailure,
			expectedStdout:   "kernel panic: OOM",
			expectedStderr:   `bootrun: failure (pattern "kernel panic")`,
		},
		{
			name:             "timeout",
			script:           "echo Booting...\nexec sleep 10",
			args:             []string{"--timeout", "200ms"},
			expectedExitCode: cmd.ExitTimeout,
			expectedStdout:   "Booting...",
			expectedStderr:   "bootrun: timeout",
		},
		{
			name:             "emulator exits without verdict",
			script:           "echo Booting...",
			expectedExitCode: cmd.ExitTransportError,
			expectedStdout:   "Booting...",
			expectedStderr:   "bootrun: transport error: transport closed without verdict",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			configPath := writeConfig(t, fakeEmulator(t, tt.script))

			var stdout, stderr bytes.Buffer

			args := append([]string{"--config", configPath}, tt.args...)

			exitCode := cmd.Run(t.Context(), args, cmd.IO{
				Stdin:  strings.NewReader(""),
				Stdout: &stdout,
				Stderr: &stderr,
			})

			assert.Equal(t, tt.expectedExitCode, exitCode, stderr.String())
			assert.Contains(t, stdout.String(), tt.expectedStdout)
			assert.Contains(t, stderr.String(), tt.expectedStderr)
		})
	}
}

func TestRun_MissingEmulator(t *testing.T) {
	configPath := writeConfig(t, filepath.Join(t.TempDir(), "missing"))

	var stderr bytes.Buffer

	exitCode := cmd.Run(t.Context(), []string{"--config", configPath}, cmd.IO{
		Stdin:  strings.NewReader(""),
		Stdout: &bytes.Buffer{},
		Stderr: &stderr,
	})

	assert.Equal(t, cmd.ExitTransportError, exitCode, stderr.String())
}

func TestRun_SetupErrors(t *testing.T) {
	emulator := fakeEmulator(t, "echo Hello from my OS")

	tests := []struct {
		name string
		args func(t *testing.T) []string
	}{
		{
			name: "unknown flag",
			args: func(*testing.T) []string { return []string{"--kernal", "bzImage"} },
		},
		{
			name: "missing config file",
			args: func(t *testing.T) []string {
				return []string{"--config", filepath.Join(t.TempDir(), "missing.yaml")}
			},
		},
		{
			name: "missing kernel file",
			args: func(t *testing.T) []string {
				return []string{
					"--config", writeConfig(t, emulator),
					"--kernel", filepath.Join(t.TempDir(), "missing"),
				}
			},
		},
		{
			name: "invalid config",
			args: func(t *testing.T) []string {
				path := filepath.Join(t.TempDir(), "bootrun.yaml")
				require.NoError(t, os.WriteFile(path, []byte("target: jtag\n"), 0o600))

				return []string{"--config", path}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var stderr bytes.Buffer

			exitCode := cmd.Run(t.Context(), tt.args(t), cmd.IO{
				Stdin:  strings.NewReader(""),
				Stdout: &bytes.Buffer{},
				Stderr: &stderr,
			})

			assert.Equal(t, cmd.ExitSetupError, exitCode, stderr.String())
		})
	}
}

func TestRun_Help(t *testing.T) {
	var stderr bytes.Buffer

	exitCode := cmd.Run(t.Context(), []string{"--help"}, cmd.IO{
		Stdin:  strings.NewReader(""),
		Stdout: &bytes.Buffer{},
		Stderr: &stderr,
	})

	assert.Equal(t, cmd.ExitSuccess, exitCode)
	assert.Contains(t, stderr.String(), "Usage of 'bootrun'")
	assert.Contains(t, stderr.String(), "--ramdisk-dir")
}

func TestRun_RamdiskAndCapture(t *testing.T) {
	emulator := fakeEmulator(t,
		"for arg in \"$@\"; do echo \"$arg\"; done\necho Hello from my OS\nexec sleep 10")
	configPath := writeConfig(t, emulator)
	capturePath := filepath.Join(t.TempDir(), "console.log")

	file, err := os.OpenFile(configPath, os.O_APPEND|os.O_WRONLY, 0)
	require.NoError(t, err)
	_, err = fmt.Fprintf(file, "session:\n  capture_file: %s\n", capturePath)
	require.NoError(t, err)
	require.NoError(t, file.Close())

	rootfs := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(rootfs, "init"), []byte("#!/bin/sh"), 0o755))

	var stdout, stderr bytes.Buffer

	exitCode := cmd.Run(t.Context(), []string{
		"--config", configPath,
		"--ramdisk-dir", rootfs,
	}, cmd.IO{
		Stdin:  strings.NewReader(""),
		Stdout: &stdout,
		Stderr: &stderr,
	})

	require.Equal(t, cmd.ExitSuccess, exitCode, stderr.String())

	lines := strings.Split(stdout.String(), "\n")
	initrdIdx := slices.Index(lines, "-initrd")
	require.Positive(t, initrdIdx, "initrd argument")
	require.Greater(t, len(lines), initrdIdx+1)
	assert.Contains(t, lines[initrdIdx+1], "ramdisk-")
	assert.NoFileExists(t, lines[initrdIdx+1], "ramdisk removed after run")

	captured, err := os.ReadFile(capturePath)
	require.NoError(t, err)
	assert.Equal(t, stdout.String(), string(captured))
}
