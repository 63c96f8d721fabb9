// Package config implements ConfigRecord and ConfigStore: the single
// persisted station-wide settings record, with the active/spare
// dirty-tracking discipline that limits flash writes to genuine
// structural changes (§3, §6).
//
// Grounded on AndySze-klipper/pkg/config/autosave.go's AutosaveConfig,
// which keeps a "modified" shadow of free-form INI key/values and only
// marks a section dirty when a value actually changes. ConfigRecord
// generalizes that idea to a fixed struct: instead of a per-key dirty
// map, the whole record is compared by value against a spare in-memory
// copy (Testable Property 6), since the record has no sparse/optional
// fields the way an INI section does.
//
// Copyright (C) 2026  Go Migration Team
//
// This file may be distributed under the terms of the GNU GPLv3 license.
package config

import "github.com/sfrwmaker/station-fw/internal/radix"

// Flag bits packed into ConfigRecord.Flags (§3).
const (
	FlagCelsius uint16 = 1 << iota
	FlagBuzzerEnabled
	FlagReedNotTilt
	FlagAutoStart
	FlagEncoderDirU
	FlagEncoderDirL
	FlagFastCoolGun
	FlagBig5Step
	FlagIPSDisplay
	FlagSafeIronMode
)

// DeviceIndex selects one of the three heaters within the per-device
// arrays below.
type DeviceIndex int

const (
	DevT12 DeviceIndex = iota
	DevJBC
	DevGun
	numDevices
)

// ConfigRecord is the station's single persisted settings record (§3).
// Every field is a fixed-width value so the record has a stable
// on-flash byte layout; see persist.EncodeConfig/DecodeConfig.
type ConfigRecord struct {
	PresetC [numDevices]int16 // t12, jbc, gun preset temperature (human Celsius/Fahrenheit units)
	GunFanPreset int16

	TipT12 radix.RadixName
	TipJBC radix.RadixName

	AutoOffMinutes [numDevices]uint8 // 0-30, 0 = disabled

	LowPowerTempC    [numDevices]int16
	LowPowerTimeoutS [numDevices]uint16

	// Boost is the packed boost byte: upper nibble = +5 degC increments
	// (0..15), lower nibble = duration in units of 20s, counted from one
	// (nibble 0-15 gives 20-320s).
	Boost uint8

	Flags uint16

	DisplayBrightness uint8 // 1-100
	DisplayRotation   uint16 // 0/90/180/270

	Language [16]byte // bounded NUL-padded ASCII name
}

// BoostDeltaC decodes the configured boost temperature increment.
func (r ConfigRecord) BoostDeltaC() int {
	return int(r.Boost>>4) * 5
}

// BoostDurationS decodes the configured boost duration in seconds.
func (r ConfigRecord) BoostDurationS() int {
	return (int(r.Boost&0x0F) + 1) * 20
}

// SetBoost packs a boost increment (in 5 degC steps, 0-15) and duration
// (0-15, meaning 20-320s in 20s steps) into the single boost byte.
func SetBoost(steps5C, units20s uint8) uint8 {
	return (steps5C&0x0F)<<4 | (units20s & 0x0F)
}

// HasFlag reports whether bit is set in the record's flag word.
func (r ConfigRecord) HasFlag(bit uint16) bool { return r.Flags&bit != 0 }

// WithFlag returns a copy of r with bit set or cleared.
func (r ConfigRecord) WithFlag(bit uint16, v bool) ConfigRecord {
	if v {
		r.Flags |= bit
	} else {
		r.Flags &^= bit
	}
	return r
}

// LanguageName returns the NUL-terminated language name as a string.
func (r ConfigRecord) LanguageName() string {
	n := 0
	for n < len(r.Language) && r.Language[n] != 0 {
		n++
	}
	return string(r.Language[:n])
}

// Default returns the factory ConfigRecord.
func Default() ConfigRecord {
	var r ConfigRecord
	r.PresetC = [numDevices]int16{235, 235, 200}
	r.GunFanPreset = 30
	r.AutoOffMinutes = [numDevices]uint8{20, 20, 20}
	r.LowPowerTempC = [numDevices]int16{180, 180, 0}
	r.LowPowerTimeoutS = [numDevices]uint16{300, 300, 0}
	r.Boost = SetBoost(1, 1) // +5 degC for 40s
	r.Flags = FlagCelsius | FlagBuzzerEnabled | FlagAutoStart
	r.DisplayBrightness = 60
	r.DisplayRotation = 0
	copy(r.Language[:], "english")
	return r
}

// Store holds the active ConfigRecord plus a spare copy snapshotting
// the last persisted state, so Dirty can answer "does this need
// writing" without re-reading flash.
type Store struct {
	active ConfigRecord
	spare  ConfigRecord
}

// NewStore creates a Store with both active and spare set to rec,
// i.e. freshly loaded from (or freshly defaulted to) persistence.
func NewStore(rec ConfigRecord) *Store {
	return &Store{active: rec, spare: rec}
}

// Active returns the live, possibly-dirty record.
func (s *Store) Active() ConfigRecord { return s.active }

// Update replaces the active record (e.g. after a menu edit).
func (s *Store) Update(rec ConfigRecord) { s.active = rec }

// Dirty reports whether the active record differs structurally from
// the last-saved spare (Testable Property 6).
func (s *Store) Dirty() bool { return s.active != s.spare }

// MarkSaved snapshots the active record into the spare, to be called
// once the caller has durably written it to flash.
func (s *Store) MarkSaved() { s.spare = s.active }
