// SPDX-FileCopyrightText: 2026 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package ymodem

import "github.com/sigurn/crc16"

var crcTable = crc16.MakeTable(crc16.CRC16_XMODEM)

// CRC16 calculates the CRC-16/XMODEM checksum (CCITT polynomial, zero
// initial value) of data.
func CRC16(data []byte) uint16 {
	return crc16.Checksum(data, crcTable)
}

// checksum calculates the arithmetic checksum used without CRC mode.
func checksum(data []byte) byte {
	var sum byte
	for _, b := range data {
		sum += b
	}

	return sum
}
