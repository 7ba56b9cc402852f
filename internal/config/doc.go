// SPDX-FileCopyrightText: 2026 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

// Package config loads the bootrun configuration file.
//
// The file is YAML. Environment variables in the form ${VAR} are substituted
// before the file is decoded, so they can be used in any value. Durations
// are given as Go duration strings, like "90s" or "5m".
//
//	target: serial
//	serial:
//	  device: /dev/ttyUSB0
//	patterns:
//	  success: ["Hello from my OS"]
//	  failure: ["(?i)kernel panic"]
//	boot:
//	  network:
//	    board_ip: 10.0.0.2
//	    server_interface: eth1
//	  kernel:
//	    path: build/Image
//	    address: 0x80200000
//	session:
//	  timeout: 2m
package config
