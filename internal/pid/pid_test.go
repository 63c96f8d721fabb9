package pid

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestControllerConvergesTowardsSetpoint(t *testing.T) {
	c := New(Params{Kp: 4, Ki: 0.3, Kd: 1, MaxPower: 100})
	c.SetSetpoint(300)

	pv := 25.0
	// Steady state needs duty*thermalGain = (pv-25)*0.01, i.e. duty 55 at
	// 300 with this gain (a gain of 0.02 would cap the plant at 225).
	thermalGain := 0.05
	tm := 0.0
	for i := 0; i < 2000; i++ {
		duty := c.Update(tm, pv)
		pv += (duty*thermalGain - (pv-25)*0.01)
		tm += 0.1
	}
	require.InDelta(t, 300, pv, 15)
}

func TestSetpointJumpResetsIntegrator(t *testing.T) {
	c := New(Params{Kp: 1, Ki: 1, Kd: 0, MaxPower: 100})
	c.SetSetpoint(200)
	c.Update(0, 150)
	c.Update(1, 180)
	require.NotZero(t, c.integ)

	c.SetSetpoint(202) // small change, no reset
	before := c.integ
	c.SetSetpoint(250) // large jump, resets
	require.Zero(t, c.integ)
	_ = before
}

func TestCoefficientSwapIsAtomicAcrossUpdates(t *testing.T) {
	c := New(Params{Kp: 1, Ki: 0, Kd: 0, MaxPower: 100})
	c.SetSetpoint(100)
	d1 := c.Update(0, 50)
	c.SetCoefficients(Params{Kp: 2, Ki: 0, Kd: 0, MaxPower: 100})
	d2 := c.Update(1, 50)
	require.NotEqual(t, d1, d2)
	require.Greater(t, d2, 0.0)
}

func TestUseSmoothProfileLowersCeiling(t *testing.T) {
	c := New(Params{Kp: 10, Ki: 1, Kd: 0, MaxPower: 100})
	c.SetSetpoint(1000)
	c.UseSmoothProfile(true)
	duty := c.Update(0, 0)
	_ = duty
	duty = c.Update(1, 0)
	require.LessOrEqual(t, duty, smoothParams.MaxPower)
}

// TestAutoTuneRejectsLowAmplitude is spec Testable Property 7: if the
// measured oscillation amplitude does not exceed the relay hysteresis,
// auto-tune must reject the run rather than emit nonsense gains.
func TestAutoTuneRejectsLowAmplitude(t *testing.T) {
	c := New(Params{MaxPower: 100})
	c.BeginAutoTune(300, 50, 10, 5, 100)

	pv := 300.0
	tm := 0.0
	var result *TuneResult
	for i := 0; i < 4000 && result == nil; i++ {
		_, result = c.AutoTuneStep(tm, pv)
		tm += 0.05
		// PV barely moves: amplitude stays near zero, well under hyst.
		pv += 0.001 * math.Sin(tm)
	}
	if result != nil {
		require.False(t, result.Accepted)
	}
}

func TestAutoTuneAcceptsCleanOscillation(t *testing.T) {
	c := New(Params{MaxPower: 100})
	c.BeginAutoTune(300, 50, 20, 2, 100)

	pv := 300.0
	relay := 1.0
	tm := 0.0
	var result *TuneResult
	for i := 0; i < 20000 && result == nil; i++ {
		power, r := c.AutoTuneStep(tm, pv)
		result = r
		if power > 50 {
			relay = 1
		} else {
			relay = -1
		}
		pv += relay * 0.05
		tm += 0.02
	}
	require.NotNil(t, result)
	if result.Accepted {
		require.Greater(t, result.Ku, 0.0)
		require.Greater(t, result.Tu, 0.0)
		require.Greater(t, result.Params.Kp, 0.0)
	}
}
