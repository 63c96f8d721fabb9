package config

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDefaultRecordRoundTripsThroughFlags(t *testing.T) {
	r := Default()
	require.True(t, r.HasFlag(FlagCelsius))
	require.False(t, r.HasFlag(FlagSafeIronMode))

	r2 := r.WithFlag(FlagSafeIronMode, true)
	require.True(t, r2.HasFlag(FlagSafeIronMode))
	require.False(t, r.HasFlag(FlagSafeIronMode), "WithFlag must not mutate the receiver")
}

func TestBoostPackingRoundTrip(t *testing.T) {
	b := SetBoost(3, 5)
	var r ConfigRecord
	r.Boost = b
	require.Equal(t, 15, r.BoostDeltaC())
	require.Equal(t, 120, r.BoostDurationS())
}

// TestStoreDirtyOnlyAfterStructuralChange is spec Testable Property 6:
// a Store must report clean immediately after load/save, and dirty iff
// the active record differs from the last-saved snapshot.
func TestStoreDirtyOnlyAfterStructuralChange(t *testing.T) {
	rec := Default()
	s := NewStore(rec)
	require.False(t, s.Dirty())

	same := rec
	s.Update(same)
	require.False(t, s.Dirty(), "an identical record must not be reported dirty")

	changed := rec
	changed.PresetC[0] += 5
	s.Update(changed)
	require.True(t, s.Dirty())

	s.MarkSaved()
	require.False(t, s.Dirty())
}

func TestLanguageNameTrimsPadding(t *testing.T) {
	r := Default()
	require.Equal(t, "english", r.LanguageName())
}
