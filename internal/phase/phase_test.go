package phase

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func newT12Machine() *Machine {
	cfg := Config{
		Kind:                KindT12,
		HandlePresent:       func() bool { return true },
		UseTilt:             false,
		OffTimeoutSeconds:   60,
		IdlePowerDivergence: 150,
		CountdownWindowMs:   100_000,
		BoostDeltaC:         5,
		BoostDurationS:      20,
		PresetRaw:           func() int { return 2000 },
		StandbyRaw:          func() int { return 1500 },
	}
	return New(cfg)
}

func TestEncoderShortArmsFromOff(t *testing.T) {
	m := newT12Machine()
	armedWith := -1
	m.Arm = func(preset int) { armedWith = preset }

	m.EncoderShort(0)
	require.Equal(t, Heating, m.Phase())
	require.Equal(t, 2000, armedWith)
}

func TestEncoderShortRejectedWithoutHandle(t *testing.T) {
	m := newT12Machine()
	m.cfg.HandlePresent = func() bool { return false }
	beeped := BeepPattern(255)
	m.Beep = func(p BeepPattern) { beeped = p }

	m.EncoderShort(0)
	require.Equal(t, Off, m.Phase())
	require.Equal(t, BeepFailed, beeped)
}

func TestHeatingToReadyToNormal(t *testing.T) {
	m := newT12Machine()
	m.Arm = func(int) {}
	m.EncoderShort(0)
	require.Equal(t, Heating, m.Phase())

	m.ReachedSetpoint(100)
	require.Equal(t, Ready, m.Phase())

	m.Tick(100+readyHoldMs, 0)
	require.Equal(t, Normal, m.Phase())
}

func TestBoostReturnsToHeatingAfterDuration(t *testing.T) {
	m := newT12Machine()
	m.Arm = func(int) {}
	m.EncoderShort(0)
	m.ReachedSetpoint(0)
	m.Tick(readyHoldMs, 0)
	require.Equal(t, Normal, m.Phase())

	m.EncoderLong(1000)
	require.Equal(t, Boost, m.Phase())

	m.Tick(1000+m.cfg.BoostDurationS*1000, 0)
	require.Equal(t, Heating, m.Phase())
}

func TestIdlePowerDivergenceResetsCountdown(t *testing.T) {
	m := newT12Machine()
	m.Arm = func(int) {}
	m.Disarm = func() {}
	m.EncoderShort(0)
	m.ReachedSetpoint(0)
	m.Tick(readyHoldMs, 50)
	require.Equal(t, Normal, m.Phase())

	// Establish idle baseline.
	m.Tick(readyHoldMs+1000, 50)
	// Power stays close to baseline: countdown should run toward Cooling
	// only after OffTimeoutSeconds elapses.
	m.Tick(readyHoldMs+2000, 52)
	require.Equal(t, Normal, m.Phase())

	// Big divergence: in use, timer resets and stays Normal indefinitely.
	m.Tick(readyHoldMs+3000, 300)
	require.Equal(t, Normal, m.Phase())
}

func TestIdleTimeoutEventuallyGoesCold(t *testing.T) {
	m := newT12Machine()
	m.Arm = func(int) {}
	m.Disarm = func() {}
	m.EncoderShort(0)
	m.ReachedSetpoint(0)
	m.Tick(readyHoldMs, 50)
	require.Equal(t, Normal, m.Phase())

	now := int64(readyHoldMs)
	for i := 0; i < 1000; i++ {
		now += 1000
		m.Tick(now, 50) // power never diverges from the baseline
		if m.Phase() == Cooling {
			break
		}
	}
	require.Equal(t, Cooling, m.Phase())

	m.GoneCold(now)
	require.Equal(t, Cold, m.Phase())

	m.Tick(now+coldHoldMs, 0)
	require.Equal(t, Off, m.Phase())
}

func newJBCMachine() *Machine {
	cfg := Config{
		Kind:              KindJBC,
		OffTimeoutSeconds: 30,
		PresetRaw:         func() int { return 2000 },
		StandbyRaw:        func() int { return 1500 },
	}
	return New(cfg)
}

func TestJBCOffHookArmsOnHookGoesLowPower(t *testing.T) {
	m := newJBCMachine()
	m.Arm = func(int) {}
	m.SwitchChange(0, true)
	require.Equal(t, Heating, m.Phase())

	m.ReachedSetpoint(0)
	m.Tick(readyHoldMs, 0)
	require.Equal(t, Normal, m.Phase())

	m.SwitchChange(readyHoldMs, false)
	require.Equal(t, LowPwr, m.Phase())
}

func newGunMachine() *Machine {
	cfg := Config{
		Kind:              KindGun,
		OffTimeoutSeconds: 0,
		PresetRaw:         func() int { return 2000 },
		StandbyRaw:        func() int { return 0 },
	}
	return New(cfg)
}

func TestGunCradleDisarmsImmediatelyWithoutOffTimeout(t *testing.T) {
	m := newGunMachine()
	disarmed := false
	m.Arm = func(int) {}
	m.Disarm = func() { disarmed = true }
	m.SwitchChange(0, true)
	require.Equal(t, Heating, m.Phase())

	m.ReachedSetpoint(0)
	m.Tick(readyHoldMs, 0)
	require.Equal(t, Normal, m.Phase())

	m.SwitchChange(readyHoldMs, false)
	require.True(t, disarmed)
	require.Equal(t, Cooling, m.Phase())
}
