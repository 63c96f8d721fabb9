package unit

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sfrwmaker/station-fw/internal/pid"
)

func newTestController() *Controller {
	p := pid.New(pid.Params{Kp: 1, Ki: 0.2, Kd: 0, MaxPower: 100})
	cfg := Config{
		Kind:              KindIron,
		MaxInternalRaw:    3800,
		MaxPWM:            460,
		ConnectMinCurrent: 10,
		ConnectWindow:      5,
		ReachedDelta:      6,
		ReachedDispersion: 500,
	}
	return New(cfg, p)
}

func TestSwitchPowerOffZeroesDuty(t *testing.T) {
	c := newTestController()
	c.SetTemp(1900)
	c.SwitchPower(true)
	for i := 0; i < 20; i++ {
		c.UpdateCurrent(50)
		c.UpdateTemp(1000)
	}
	c.Power(1000, float64(19)) // the PID's first sample only primes it and yields 0
	require.Positive(t, c.Power(1000, float64(20)))

	c.SwitchPower(false)
	require.False(t, c.Working())
	require.Zero(t, c.Power(1000, 21))
}

func TestFixPowerBypassesPID(t *testing.T) {
	c := newTestController()
	c.SwitchPower(true)
	c.FixPower(50)
	duty := c.Power(1000, 1)
	require.Equal(t, uint32(50.0/100*460), duty)
}

func TestConnectionTestRequiresCurrentWithinWindow(t *testing.T) {
	c := newTestController()
	c.SwitchPower(true)
	for i := 0; i < 3; i++ {
		c.UpdateCurrent(0)
	}
	require.False(t, c.IsConnected())

	c2 := newTestController()
	c2.SwitchPower(true)
	c2.UpdateCurrent(50)
	require.True(t, c2.IsConnected())
}

func TestSafetyEnvelopeTripsFatalOverInternalMax(t *testing.T) {
	c := newTestController()
	c.SwitchPower(true)
	c.UpdateTemp(3801)
	require.True(t, c.Fatal())
	require.False(t, c.Working())
}

func TestReachedSetpointRequiresSmallDeltaAndDispersion(t *testing.T) {
	c := newTestController()
	c.SetTemp(2000)
	c.SwitchPower(true)
	// Hold 3 raw below the setpoint: exactly on it, a PI loop with an
	// empty integrator requests zero power and the test would fail on
	// the power>0 condition rather than on delta or dispersion.
	for i := 0; i < 40; i++ {
		c.UpdateCurrent(50)
		c.UpdateTemp(1997)
		c.Power(1997, float64(i))
	}
	require.True(t, c.ReachedSetpoint())
}

func TestLowPowerAndBoostOverlaysChangeEffectiveSetpoint(t *testing.T) {
	c := newTestController()
	c.SetTemp(2000)
	c.LowPowerMode(1200)
	require.Equal(t, 1200, c.effectiveSetpoint())
	c.LowPowerMode(0)
	require.Equal(t, 2000, c.effectiveSetpoint())

	c.BoostPowerMode(2400)
	require.Equal(t, 2400, c.effectiveSetpoint())
}
