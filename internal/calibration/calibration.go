// Package calibration implements TipCalibration: the four-point
// per-device thermal curve with ambient compensation (§3, §4.3).
//
// Grounded on AndySze-klipper/pkg/temperature/sensors.go's thermistor
// Beta-equation conversion for the general shape of "convert a raw ADC
// reading to Celsius through a fixed reference curve", generalized from
// a single analytic formula to a four-point piecewise-linear curve with
// bisection inversion, per spec.md §4.3 and §9 ("clamped bisection").
// Reference temperatures and the default raw curve are taken from
// _examples/original_source/Inc/config.h (temp_ref_iron, temp_ref_gun,
// calib_default, min_temp_diff).
//
// Copyright (C) 2026  Go Migration Team
//
// This file may be distributed under the terms of the GNU GPLv3 license.
package calibration

import (
	"github.com/sfrwmaker/station-fw/internal/radix"
)

// Device identifies which of the three heaters a calibration curve
// belongs to.
type Device uint8

const (
	DeviceIron Device = iota
	DeviceJBC
	DeviceGun
)

// RawMax is the fixed internal maximum raw ADC reading a calibration
// point may reference (§3 invariant: c[3] <= RawMax).
const RawMax = 4095

// MinRawSpacing is the minimum raw-unit spacing required between
// adjacent calibration points (original_source/Inc/config.h:
// min_temp_diff).
const MinRawSpacing = 100

// referencePoints are the fixed Celsius temperatures each device is
// calibrated against (spec.md §3, GLOSSARY "Reference point").
var referencePoints = [3][4]int{
	DeviceIron: {200, 260, 330, 400},
	DeviceJBC:  {200, 260, 330, 400},
	DeviceGun:  {200, 300, 400, 500},
}

// defaultRaw is the factory calibration curve substituted whenever a
// persisted record fails validation (original_source: calib_default).
var defaultRaw = [4]int{1200, 1900, 2500, 2900}

const defaultAmbient = 25

// Iron/JBC temperature bounds (°C). Gun uses the same floor; its
// ceiling is the top reference point since the station has no
// "safe gun mode" bit (only irons carry CFG_SAFE_MODE in
// original_source/Inc/config.h and Src/config.cpp tempMax()).
const (
	minCelsiusNormal   = 200
	minCelsiusOverride = 100
	maxCelsiusIron     = 450
	maxCelsiusIronSafe = 400
	maxCelsiusGun      = 500
)

// Record is the persisted per-device calibration: four raw readings at
// the device's four reference points, plus the ambient temperature (°C)
// recorded at calibration time.
type Record struct {
	C       [4]int
	Ambient int
}

// IsValid reports whether rec satisfies the monotonic-spacing and
// range invariants of §3. A tip whose record fails this check is
// downgraded to the default curve at load (§7 calibration errors).
func IsValid(rec Record) bool {
	for i := 0; i < 3; i++ {
		if rec.C[i+1]-rec.C[i] < MinRawSpacing {
			return false
		}
	}
	return rec.C[3] <= RawMax
}

// DefaultRecord returns the factory calibration curve for dev.
func DefaultRecord(dev Device) Record {
	return Record{C: defaultRaw, Ambient: defaultAmbient}
}

// Set holds the three devices' calibration records.
type Set struct {
	records [3]Record
}

// NewSet creates a calibration Set with every device at its default
// curve.
func NewSet() *Set {
	s := &Set{}
	for d := DeviceIron; d <= DeviceGun; d++ {
		s.ResetDefault(d)
	}
	return s
}

// Load installs rec for dev, downgrading silently to the default curve
// if rec fails validation (the caller is responsible for marking the
// owning tip uncalibrated in that case, per §7).
func (s *Set) Load(dev Device, rec Record) (accepted bool) {
	if !IsValid(rec) {
		s.ResetDefault(dev)
		return false
	}
	s.records[dev] = rec
	return true
}

// Dump returns dev's current calibration record, e.g. for persistence.
func (s *Set) Dump(dev Device) Record {
	return s.records[dev]
}

// ResetDefault installs the factory curve for dev.
func (s *Set) ResetDefault(dev Device) {
	s.records[dev] = DefaultRecord(dev)
}

// MinCelsius returns the lowest settable preset for dev. allowBelowMin
// is the manual-calibration override that lowers the floor to 100 °C.
func MinCelsius(allowBelowMin bool) int {
	if allowBelowMin {
		return minCelsiusOverride
	}
	return minCelsiusNormal
}

// MaxCelsius returns the highest settable preset for dev, honoring the
// safe-iron-mode ceiling (safeMode is ignored for the gun, which has no
// such mode).
func MaxCelsius(dev Device, safeMode bool) int {
	if dev == DeviceGun {
		return maxCelsiusGun
	}
	if safeMode {
		return maxCelsiusIronSafe
	}
	return maxCelsiusIron
}

// RawToCelsius converts a raw ADC reading to Celsius using dev's curve,
// compensated for the difference between the current ambient and the
// ambient recorded at calibration time (§4.3): both the raw curve and
// the reference points are shifted by that difference before the
// piecewise-linear interpolation (or linear extrapolation beyond the
// curve's ends) is evaluated. The result is clamped to [ambient, 999].
func (s *Set) RawToCelsius(raw int, ambient int, dev Device) int {
	rec := s.records[dev]
	ref := referencePoints[dev]
	delta := ambient - rec.Ambient

	var c, rc [4]int
	for i := 0; i < 4; i++ {
		c[i] = rec.C[i] + delta
		rc[i] = ref[i] + delta
	}

	result := interpolate(raw, c, rc)

	if result < ambient {
		result = ambient
	}
	if result > 999 {
		result = 999
	}
	return result
}

// interpolate evaluates the piecewise-linear curve defined by the raw
// points xs mapped to Celsius points ys at x, extrapolating linearly
// beyond the first and last segment.
func interpolate(x int, xs, ys [4]int) int {
	switch {
	case x <= xs[0]:
		return lerp(x, xs[0], xs[1], ys[0], ys[1])
	case x >= xs[3]:
		return lerp(x, xs[2], xs[3], ys[2], ys[3])
	default:
		for i := 0; i < 3; i++ {
			if x <= xs[i+1] {
				return lerp(x, xs[i], xs[i+1], ys[i], ys[i+1])
			}
		}
		return ys[3]
	}
}

func lerp(x, x0, x1, y0, y1 int) int {
	if x1 == x0 {
		return y0
	}
	return y0 + (x-x0)*(y1-y0)/(x1-x0)
}

// CelsiusToRaw is the inverse of RawToCelsius: it seeds a guess from a
// linear extrapolation between the curve's first and last raw points,
// then refines it with bounded bisection (up to 20 iterations) against
// RawToCelsius until it converges (§4.3, §9 "clamped bisection"). The
// bisection enforces a minimum step of one raw unit per iteration so it
// cannot stall when the midpoint rounds back to the same value.
//
// celsius is first clamped to [MinCelsius(allowBelowMin),
// MaxCelsius(dev, safeMode)].
func (s *Set) CelsiusToRaw(celsius int, ambient int, dev Device, allowBelowMin bool, safeMode bool) int {
	lo := MinCelsius(allowBelowMin)
	hi := MaxCelsius(dev, safeMode)
	if celsius < lo {
		celsius = lo
	}
	if celsius > hi {
		celsius = hi
	}

	rec := s.records[dev]
	ref := referencePoints[dev]

	guess := lerp(celsius, ref[0], ref[3], rec.C[0], rec.C[3])

	rawLo, rawHi := 0, RawMax
	raw := guess
	if raw < rawLo {
		raw = rawLo
	}
	if raw > rawHi {
		raw = rawHi
	}

	for i := 0; i < 20; i++ {
		got := s.RawToCelsius(raw, ambient, dev)
		if got == celsius {
			break
		}
		if got < celsius {
			rawLo = raw
		} else {
			rawHi = raw
		}
		next := (rawLo + rawHi) / 2
		if next == raw {
			// Monotonicity safeguard: force a one-unit step so the
			// bisection cannot stall before the iteration cap.
			if got < celsius {
				next = raw + 1
			} else {
				next = raw - 1
			}
		}
		raw = next
	}
	return raw
}

// _ ties this package to radix without importing it for logic — kept so
// callers can pass a RadixName's Type() straight through to Device via
// DeviceFor, without an extra conversion table living elsewhere.
var _ = radix.TypeT12

// DeviceFor maps a tip's RadixName type tag onto the calibration device
// it is calibrated against. Hot-gun tips (catalog index 0, TypeGun) and
// the reserved "none" tag both fall through to DeviceGun/DeviceIron
// respectively only when explicitly asked; callers that already know
// the owning unit should prefer that over re-deriving it from the tip.
func DeviceFor(t radix.TypeTag) Device {
	switch t {
	case radix.TypeJBC:
		return DeviceJBC
	case radix.TypeGun:
		return DeviceGun
	default:
		return DeviceIron
	}
}
