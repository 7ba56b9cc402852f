// SPDX-FileCopyrightText: 2026 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package monitor

import (
	"bytes"
	"errors"
	"unicode/utf8"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

var replacementChar = []byte(string(utf8.RuneError))

// decoder converts raw console bytes into valid UTF-8.
//
// Invalid sequences are replaced by [utf8.RuneError]. An incomplete sequence
// at the end of a chunk is held back and completed by the next chunk.
type decoder struct {
	transformer transform.Transformer
	carry       []byte
}

func newDecoder() decoder {
	return decoder{transformer: unicode.UTF8.NewDecoder()}
}

// decode returns the valid UTF-8 text of the chunk and the number of invalid
// sequences that have been replaced.
func (d *decoder) decode(chunk []byte) ([]byte, int) {
	src := chunk
	if len(d.carry) > 0 {
		src = append(d.carry, chunk...)
		d.carry = nil
	}

	// Each replaced byte grows to the three bytes of the replacement
	// character at most.
	dst := make([]byte, len(src)*len(replacementChar))

	nDst, nSrc, err := d.transformer.Transform(dst, src, false)
	if err != nil && !errors.Is(err, transform.ErrShortSrc) {
		// Not expected with a sufficient dst. Keep the input as is, so no
		// output is lost.
		return src, 0
	}

	if nSrc < len(src) {
		d.carry = append([]byte(nil), src[nSrc:]...)
	}

	output := dst[:nDst]
	invalid := bytes.Count(output, replacementChar) -
		bytes.Count(src[:nSrc], replacementChar)

	return output, invalid
}
