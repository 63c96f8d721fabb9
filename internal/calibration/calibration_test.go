package calibration

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sfrwmaker/station-fw/internal/radix"
)

func TestDefaultRecordIsValid(t *testing.T) {
	for _, dev := range []Device{DeviceIron, DeviceJBC, DeviceGun} {
		require.True(t, IsValid(DefaultRecord(dev)), "device %d", dev)
	}
}

func TestIsValidRejectsCloseSpacing(t *testing.T) {
	rec := Record{C: [4]int{1200, 1260, 2500, 2900}, Ambient: 25}
	require.False(t, IsValid(rec))
}

func TestIsValidRejectsOverRawMax(t *testing.T) {
	rec := Record{C: [4]int{1200, 1900, 2500, RawMax + 1}, Ambient: 25}
	require.False(t, IsValid(rec))
}

// TestCelsiusRawRoundTrip is spec Testable Property 2: converting
// celsius -> raw -> celsius must return the original value to within
// 2 degC, at the calibration ambient so no compensation shift is in play.
func TestCelsiusRawRoundTrip(t *testing.T) {
	s := NewSet()
	for _, dev := range []Device{DeviceIron, DeviceJBC, DeviceGun} {
		for c := 210; c <= 400; c += 17 {
			raw := s.CelsiusToRaw(c, defaultAmbient, dev, false, false)
			got := s.RawToCelsius(raw, defaultAmbient, dev)
			require.InDeltaf(t, c, got, 2, "device %d celsius %d raw %d got %d", dev, c, raw, got)
		}
	}
}

func TestRawToCelsiusAmbientCompensation(t *testing.T) {
	s := NewSet()
	base := s.RawToCelsius(1900, defaultAmbient, DeviceIron)
	shifted := s.RawToCelsius(1900, defaultAmbient+10, DeviceIron)
	require.Equal(t, base+10, shifted)
}

func TestMaxCelsiusSafeModeLowersIronCeilingOnly(t *testing.T) {
	require.Equal(t, maxCelsiusIron, MaxCelsius(DeviceIron, false))
	require.Equal(t, maxCelsiusIronSafe, MaxCelsius(DeviceIron, true))
	require.Equal(t, maxCelsiusGun, MaxCelsius(DeviceGun, true))
	require.Equal(t, maxCelsiusGun, MaxCelsius(DeviceGun, false))
}

func TestCelsiusToRawClampsToRange(t *testing.T) {
	s := NewSet()
	lowRaw := s.CelsiusToRaw(0, defaultAmbient, DeviceIron, false, false)
	expectLowRaw := s.CelsiusToRaw(minCelsiusNormal, defaultAmbient, DeviceIron, false, false)
	require.Equal(t, expectLowRaw, lowRaw)

	highRaw := s.CelsiusToRaw(9999, defaultAmbient, DeviceIron, false, true)
	expectHighRaw := s.CelsiusToRaw(maxCelsiusIronSafe, defaultAmbient, DeviceIron, false, true)
	require.Equal(t, expectHighRaw, highRaw)
}

func TestLoadRejectsInvalidRecord(t *testing.T) {
	s := NewSet()
	bad := Record{C: [4]int{100, 150, 160, 170}, Ambient: 25}
	ok := s.Load(DeviceGun, bad)
	require.False(t, ok)
	require.Equal(t, DefaultRecord(DeviceGun), s.Dump(DeviceGun))
}

func TestDeviceFor(t *testing.T) {
	require.Equal(t, DeviceGun, DeviceFor(radix.TypeGun))
	require.Equal(t, DeviceJBC, DeviceFor(radix.TypeJBC))
	require.Equal(t, DeviceIron, DeviceFor(radix.TypeT12))
}
