// Package persist implements PersistStore: the flash-backed
// config/PID/tip-calibration record layer, with CRC verification and
// rename-then-write backup rotation (§6).
//
// Grounded on AndySze-klipper/pkg/protocol/crc16.go's CRC16-CCITT
// bitwise algorithm (reused verbatim — the record format truncates it
// to the low byte for the 1-byte tip-record CRC and uses it whole for
// config.dat/pid.dat), on pkg/log/rotation.go's rotate-before-write
// discipline (generalized from size-triggered log rotation to
// write-triggered single-backup rotation), and on
// _examples/original_source/Src/flash.cpp's rename-then-write sequence
// for config.bak/tipcal.bak, which this package matches exactly so a
// power loss mid-write always leaves one valid copy on flash.
//
// Copyright (C) 2026  Go Migration Team
//
// This file may be distributed under the terms of the GNU GPLv3 license.
package persist

// crc16CCITT is AndySze-klipper/pkg/protocol/crc16.go's CRC16CCITT,
// reproduced here rather than imported so this package has no
// dependency on the host-side wire protocol package it happens to
// share an algorithm with.
func crc16CCITT(buf []byte) uint16 {
	var crc uint16 = 0xffff
	for _, b := range buf {
		data := uint16(b)
		data ^= crc & 0xff
		data ^= (data & 0x0f) << 4
		crc = (crc >> 8) ^ (data << 8) ^ (data << 3) ^ (data >> 4)
	}
	return crc
}
