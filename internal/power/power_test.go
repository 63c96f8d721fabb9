package power

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sfrwmaker/station-fw/internal/hal"
	"github.com/sfrwmaker/station-fw/internal/hwbus"
	"github.com/sfrwmaker/station-fw/internal/pid"
	"github.com/sfrwmaker/station-fw/internal/unit"
)

func newTestPipeline(t *testing.T) (*Pipeline, *hal.SimADC, *hal.SimPWM) {
	adc := hal.NewSimADC()
	pwm := hal.NewSimPWM()
	hw := hwbus.New()

	ironPID := pid.New(pid.Params{Kp: 1, Ki: 0.1, Kd: 0, MaxPower: 100})
	gunPID := pid.New(pid.Params{Kp: 1, Ki: 0.1, Kd: 0, MaxPower: 100})
	iron := unit.New(unit.Config{Kind: unit.KindIron, MaxInternalRaw: 3800, MaxPWM: 460, ConnectMinCurrent: 10, ConnectWindow: 5, ReachedDelta: 6, ReachedDispersion: 500}, ironPID)
	gun := unit.New(unit.Config{Kind: unit.KindGun, MaxInternalRaw: 3800, MaxPWM: 99, ConnectMinCurrent: 10, ConnectWindow: 5, ReachedDelta: 6, ReachedDispersion: 500}, gunPID)

	p := New(adc, pwm, iron, gun, hw, Config{MaxIronPWM: 460, MaxGunPWM: 99})
	return p, adc, pwm
}

func TestGroupASamplesFeedUnitsAndBus(t *testing.T) {
	p, adc, _ := newTestPipeline(t)
	p.TriggerCheckCurrent()
	adc.Feed(hal.GroupA, hal.Frame{50, 60, 1500, 1489, 1500})

	require.Equal(t, AdcIdle, p.mode)
	require.InDelta(t, 50*0.25, p.iron.UnitCurrent(), 1)
}

func TestReentrantTriggerIncrementsErrorCountAndZeroesPWM(t *testing.T) {
	p, adc, pwm := newTestPipeline(t)
	p.iron.SwitchPower(true)
	p.TriggerCheckCurrent()
	// Second trigger before the first group completes: reentrant.
	p.TriggerCheckTemperature()
	require.Equal(t, 1, p.ErrorCount())
	require.Zero(t, pwm.Duty(hal.PWMIron))
	adc.Feed(hal.GroupB, hal.Frame{1900, 1900, 1900, 1900, 2048})
}

func TestACWatchdogTripsOnStalledCounter(t *testing.T) {
	p, _, pwm := newTestPipeline(t)
	p.iron.SwitchPower(true)
	pwm.SetDuty(hal.PWMIron, 100)

	p.CheckACWatchdog(0, 1)
	require.True(t, p.ACPresent())

	p.CheckACWatchdog(41, 1) // counter did not advance
	require.False(t, p.ACPresent())
	require.Zero(t, pwm.Duty(hal.PWMIron))
}

func TestACWatchdogStaysPresentWhenCounterAdvances(t *testing.T) {
	p, _, _ := newTestPipeline(t)
	p.CheckACWatchdog(0, 1)
	p.CheckACWatchdog(41, 2)
	require.True(t, p.ACPresent())
}

func TestWriteIronPWMZeroWhenNoAC(t *testing.T) {
	p, _, pwm := newTestPipeline(t)
	p.iron.SetTemp(2000)
	p.iron.SwitchPower(true)
	p.acPresent = false
	p.WriteIronPWM(1)
	require.Zero(t, pwm.Duty(hal.PWMIron))
}
