// Package radix implements RadixName: the station's compact 4-byte tip
// identifier (§3, §4.1). The packed integer carries a RADIX-50-style
// five-symbol name and a device type tag in its low 30 bits, plus two
// flag bits (activated, calibrated) in the top two bits.
//
// The bit-packing style — fixed-width fields folded into one integer
// via repeated multiply/shift, with an explicit mask for the flag bits —
// is grounded on AndySze-klipper/pkg/protocol/vlq.go's PT_uint32
// encode/decode, generalized from a variable-length wire integer to a
// fixed five-symbol name.
//
// Copyright (C) 2026  Go Migration Team
//
// This file may be distributed under the terms of the GNU GPLv3 license.
package radix

import (
	"strings"

	"github.com/sfrwmaker/station-fw/internal/ferr"
)

// TypeTag identifies which device a tip belongs to. C245 and JBC share a
// single tag (see spec.md §9 Design Notes / Open Questions — the source
// routes them through distinct display paths but calibrates them
// identically, so this spec keeps one device-tag, "jbc").
type TypeTag uint8

const (
	TypeNone TypeTag = iota
	TypeT12
	TypeN1
	TypeJBC
	TypeGun

	numTypes = 5
)

var typePrefix = [numTypes]string{
	TypeNone: "",
	TypeT12:  "T12",
	TypeN1:   "N1",
	TypeJBC:  "JBC",
	TypeGun:  "GUN",
}

func (t TypeTag) String() string {
	switch t {
	case TypeNone:
		return "none"
	case TypeT12:
		return "T12"
	case TypeN1:
		return "N1"
	case TypeJBC:
		return "JBC"
	case TypeGun:
		return "GUN"
	default:
		return "unknown"
	}
}

const (
	flagActivated uint32 = 1 << 31
	flagCalibrated uint32 = 1 << 30
	bodyMask      uint32 = 0x3FFFFFFF // low 30 bits
	numSymbols           = 40
)

// alphabet order fixes each symbol's numeric code: space, A-Z, * . -, 0-9.
const alphabet = " ABCDEFGHIJKLMNOPQRSTUVWXYZ*.-0123456789"

var symbolIndex [256]int8

func init() {
	for i := range symbolIndex {
		symbolIndex[i] = -1
	}
	for i := 0; i < len(alphabet); i++ {
		symbolIndex[alphabet[i]] = int8(i)
	}
}

// RadixName is the packed 4-byte tip identifier. The zero value is the
// empty name (§3: "all body bits zero, flag bits free").
type RadixName struct {
	packed uint32
}

// FromText parses a full tip name of the form "TYPE-BODY", where BODY is
// up to five RADIX-50 symbols. A name with no hyphen is type TypeNone.
// Input is case-insensitive.
func FromText(s string) (RadixName, error) {
	upper := strings.ToUpper(s)

	typ := TypeNone
	body := upper
	if idx := strings.IndexByte(upper, '-'); idx >= 0 {
		prefix := upper[:idx]
		body = upper[idx+1:]
		found := false
		for t := TypeT12; t < numTypes; t++ {
			if typePrefix[t] == prefix {
				typ = t
				found = true
				break
			}
		}
		if !found {
			return RadixName{}, ferr.New(ferr.CodeRuntime, "radix: unknown type prefix").WithParam(prefix)
		}
	}

	if len(body) > 5 {
		return RadixName{}, ferr.New(ferr.CodeRuntime, "radix: body longer than 5 symbols").WithParam(body)
	}

	var chars [5]byte
	for i := 0; i < 5; i++ {
		if i < len(body) {
			idx := symbolIndex[body[i]]
			if idx < 0 {
				return RadixName{}, ferr.New(ferr.CodeRuntime, "radix: invalid symbol in name").WithParam(s)
			}
			chars[i] = byte(idx)
		} else {
			chars[i] = 0 // space
		}
	}

	return RadixName{packed: encode(typ, chars)}, nil
}

func encode(typ TypeTag, chars [5]byte) uint32 {
	v := uint32(typ)
	for i := 0; i < 5; i++ {
		v = v*numSymbols + uint32(chars[i])
	}
	return v
}

func decode(body uint32) (TypeTag, [5]byte) {
	var chars [5]byte
	rem := body
	for i := 4; i >= 0; i-- {
		chars[i] = byte(rem % numSymbols)
		rem /= numSymbols
	}
	return TypeTag(rem), chars
}

// ToText renders the canonical upper-case text form, at most 10 bytes
// ("JBC-" + 5 symbols + NUL-free terminator never included).
func (r RadixName) ToText() string {
	typ, chars := decode(r.packed & bodyMask)

	var b strings.Builder
	b.Grow(10)
	if typ != TypeNone {
		b.WriteString(typePrefix[typ])
		b.WriteByte('-')
	}
	body := make([]byte, 5)
	for i, c := range chars {
		body[i] = alphabet[c]
	}
	b.WriteString(strings.TrimRight(string(body), " "))
	return b.String()
}

// Type returns the device type tag encoded in the name.
func (r RadixName) Type() TypeTag {
	typ, _ := decode(r.packed & bodyMask)
	return typ
}

// Matches reports whether two names are equal ignoring the activated
// and calibrated flag bits.
func (r RadixName) Matches(other RadixName) bool {
	return r.packed&bodyMask == other.packed&bodyMask
}

// IsEmpty reports whether the name carries no body (all symbols space,
// type none) — the catalog's reserved virtual hot-gun "tip" at index 0
// need not be empty, but an unset/default entry is.
func (r RadixName) IsEmpty() bool {
	return r.packed&bodyMask == 0
}

// Activated reports the activated flag bit.
func (r RadixName) Activated() bool { return r.packed&flagActivated != 0 }

// Calibrated reports the calibrated flag bit.
func (r RadixName) Calibrated() bool { return r.packed&flagCalibrated != 0 }

// SetActivated mutates only the activated flag bit.
func (r RadixName) SetActivated(v bool) RadixName {
	return r.setFlag(flagActivated, v)
}

// SetCalibrated mutates only the calibrated flag bit.
func (r RadixName) SetCalibrated(v bool) RadixName {
	return r.setFlag(flagCalibrated, v)
}

func (r RadixName) setFlag(mask uint32, v bool) RadixName {
	if v {
		r.packed |= mask
	} else {
		r.packed &^= mask
	}
	return r
}

// Packed returns the raw 32-bit representation, e.g. for persistence.
func (r RadixName) Packed() uint32 { return r.packed }

// FromPacked reconstructs a RadixName from a raw 32-bit representation
// previously obtained from Packed (used when loading a persisted tip
// record, §6 tipcal.dat).
func FromPacked(v uint32) RadixName { return RadixName{packed: v} }
