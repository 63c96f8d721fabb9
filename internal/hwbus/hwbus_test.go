package hwbus

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sfrwmaker/station-fw/internal/hal"
)

func TestAmbientUsesThermistorWhenHandlePresent(t *testing.T) {
	b := New()
	b.UpdateAmbient(2048) // mid-scale: near room temperature
	c := b.AmbientTempC()
	require.InDelta(t, 25, c, 10)
}

func TestAmbientFallsBackToMCUWhenNoHandle(t *testing.T) {
	b := New()
	for i := 0; i < 5; i++ {
		b.UpdateAmbient(4000)
		b.UpdateVref(1489)
		b.UpdateMCUTemp(1500)
	}
	c := b.AmbientTempC()
	require.Greater(t, c, -40)
	require.Less(t, c, 150)
}

func TestAmbientCacheOnlyRecomputesOnSignificantDelta(t *testing.T) {
	b := New()
	b.UpdateAmbient(2048)
	first := b.AmbientTempC()
	b.UpdateAmbient(2049)
	require.Equal(t, first, b.AmbientTempC())
}

func TestSwitchRequiresConsecutiveSamplesToChange(t *testing.T) {
	gpio := hal.NewSimGPIO()
	sw := NewSwitch(hal.PinTilt)

	gpio.Set(hal.PinTilt, true)
	changed := sw.Poll(gpio)
	require.False(t, changed)
	changed = sw.Poll(gpio)
	require.False(t, changed)
	changed = sw.Poll(gpio)
	require.True(t, changed)
	require.True(t, sw.Level())
}
