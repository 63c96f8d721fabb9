// Package unit implements UnitController, the shared state machine for
// the iron and gun heaters: EMA temperature/current/power tracking, the
// connection test, low-power/boost setpoint overlays, and the safety
// envelope that disarms a unit on internal over-temperature (§4.5).
//
// Grounded on AndySze-klipper/pkg/heater/heater.go's Heater (target/
// enabled/pwmDuty state, SetTarget range checks) generalized from a
// single PID-driven heater into the two-tip-type overlay model §4.5
// describes (preset + low-power + boost setpoints sharing one
// PidController instance), and on pkg/temperature/control.go's
// CheckBusy dispersion test for the "reached setpoint" condition
// reused by PhaseMachine.
//
// Copyright (C) 2026  Go Migration Team
//
// This file may be distributed under the terms of the GNU GPLv3 license.
package unit

import (
	"github.com/sfrwmaker/station-fw/internal/pid"
)

// Kind distinguishes the iron and gun, which share this controller but
// differ in how often power() is evaluated and in their connection
// signal (§4.6).
type Kind uint8

const (
	KindIron Kind = iota
	KindGun
)

// emaAlpha is the exponential-moving-average weight applied to every
// incoming temperature/current/power sample.
const emaAlpha = 0.25

// Config fixes the per-unit limits that do not change at runtime.
type Config struct {
	Kind Kind

	// MaxInternalRaw is the hard safety ceiling (raw ADC counts) above
	// which the unit disarms itself regardless of PhaseMachine state.
	MaxInternalRaw int

	// MaxPWM is the unit's duty ceiling (ticks for the iron's
	// phase-controlled PWM, half-cycle count for the gun's
	// burst-controlled PWM — §4.6).
	MaxPWM uint32

	// ConnectMinCurrent is the minimum raw current sample that must be
	// observed within ConnectWindow ticks of power being applied for
	// the unit to be considered connected.
	ConnectMinCurrent int
	ConnectWindow     int

	// ReachedDelta/ReachedDispersion are the "reached setpoint" test
	// thresholds PhaseMachine polls (§4.7: |Δ|<6 raw, dispersion<=500).
	ReachedDelta      int
	ReachedDispersion int
}

// Controller is the shared iron/gun unit state machine.
type Controller struct {
	cfg Config
	pid *pid.Controller

	presetRaw  int
	standbyRaw int
	boostRaw   int
	lowPower   bool
	boosted    bool

	working   bool
	fixed     bool
	fixedPct  float64

	tempEMA    float64
	powerEMA   float64
	currentEMA float64
	tempDisp   float64
	powerDisp  float64
	haveTemp   bool

	ticksSincePower int
	connected       bool
	everConnected   bool

	fatal bool
}

// New creates a Controller for the given unit kind, driven by the
// supplied PID controller instance.
func New(cfg Config, p *pid.Controller) *Controller {
	return &Controller{cfg: cfg, pid: p}
}

// Fatal reports whether the safety envelope has tripped (§4.5).
func (c *Controller) Fatal() bool { return c.fatal }

// ClearFatal acknowledges and clears a tripped safety envelope. Callers
// (PhaseMachine) should only do this after confirming the heater is
// disarmed and the operator has acknowledged the fault.
func (c *Controller) ClearFatal() { c.fatal = false }

// SetTemp changes the working setpoint (raw ADC units). A change beyond
// the PID's setpoint-jump threshold resets its integrator (§4.5,
// delegated to pid.Controller.SetSetpoint).
func (c *Controller) SetTemp(raw int) {
	c.presetRaw = raw
	c.pid.SetSetpoint(float64(c.effectiveSetpoint()))
}

// PresetTemp returns the configured working setpoint, ignoring any
// low-power/boost overlay.
func (c *Controller) PresetTemp() int { return c.presetRaw }

func (c *Controller) effectiveSetpoint() int {
	switch {
	case c.boosted:
		return c.boostRaw
	case c.lowPower:
		return c.standbyRaw
	default:
		return c.presetRaw
	}
}

// LowPowerMode arms (raw > 0) or disarms (raw == 0) the standby
// setpoint overlay used by the idle/tilt low-power phase.
func (c *Controller) LowPowerMode(rawStandby int) {
	c.lowPower = rawStandby > 0
	c.standbyRaw = rawStandby
	c.pid.SetSetpoint(float64(c.effectiveSetpoint()))
}

// BoostPowerMode arms (raw > 0) or disarms (raw == 0) the boost
// setpoint overlay.
func (c *Controller) BoostPowerMode(rawBoost int) {
	c.boosted = rawBoost > 0
	c.boostRaw = rawBoost
	c.pid.SetSetpoint(float64(c.effectiveSetpoint()))
}

// SwitchPower arms or disarms the unit's output. Disarming clears the
// working flag, so Power returns zero from then on. The unit holds no
// PWM handle and does not write the compare register itself: the zero
// duty reaches the output on the pipeline's next WriteIronPWM or
// WriteGunPWM call.
func (c *Controller) SwitchPower(on bool) {
	if !on {
		c.working = false
		c.fixed = false
		c.pid.Reset()
		c.ticksSincePower = 0
		c.connected = false
		return
	}
	c.working = true
	c.ticksSincePower = 0
}

// Working reports whether the unit is currently armed.
func (c *Controller) Working() bool { return c.working }

// FixPower applies an open-loop duty override in percent [0, 100],
// bypassing the PID law. Used by manual calibration probing and by the
// gun's post-shutoff fan run-on.
func (c *Controller) FixPower(percent float64) {
	c.fixed = true
	c.fixedPct = percent
}

// ReleaseFixedPower returns control to the PID law.
func (c *Controller) ReleaseFixedPower() { c.fixed = false }

// UpdateCurrent feeds one raw current ADC sample (ISR-side) into the
// current EMA and the connection test.
func (c *Controller) UpdateCurrent(sample int) {
	c.currentEMA += emaAlpha * (float64(sample) - c.currentEMA)

	if !c.working {
		return
	}
	c.ticksSincePower++
	if sample >= c.cfg.ConnectMinCurrent {
		c.connected = true
		c.everConnected = true
	} else if c.ticksSincePower > c.cfg.ConnectWindow {
		c.connected = false
	}
}

// UpdateTemp feeds one raw temperature ADC sample (ISR-side) into the
// temperature EMA and dispersion estimate, and checks the safety
// envelope.
func (c *Controller) UpdateTemp(sample int) {
	if !c.haveTemp {
		c.tempEMA = float64(sample)
		c.haveTemp = true
	} else {
		c.tempEMA += emaAlpha * (float64(sample) - c.tempEMA)
	}
	dev := float64(sample) - c.tempEMA
	if dev < 0 {
		dev = -dev
	}
	c.tempDisp += emaAlpha * (dev - c.tempDisp)

	if c.cfg.MaxInternalRaw > 0 && sample > c.cfg.MaxInternalRaw {
		c.fatal = true
		c.working = false
		c.fixed = false
	}
}

// IsConnected reports the unit's connection test result (§4.5): a
// minimum current within a small window of power being applied, held
// until the window lapses without current again.
func (c *Controller) IsConnected() bool {
	if !c.working {
		return c.everConnected
	}
	return c.connected
}

// Power computes the next PWM duty for the given raw process-variable
// sample, clamped to the unit's MaxPWM and to zero when disarmed or
// disconnected (§4.5).
func (c *Controller) Power(sampleRaw float64, now float64) uint32 {
	if !c.working || (c.ticksSincePower > c.cfg.ConnectWindow && !c.IsConnected()) {
		c.powerEMA += emaAlpha * (0 - c.powerEMA)
		return 0
	}

	var pct float64
	if c.fixed {
		pct = c.fixedPct
	} else {
		pct = c.pid.Update(now, sampleRaw)
	}
	if pct < 0 {
		pct = 0
	}
	if pct > 100 {
		pct = 100
	}

	dev := pct - c.powerEMA
	c.powerEMA += emaAlpha * dev
	if dev < 0 {
		dev = -dev
	}
	c.powerDisp += emaAlpha * (dev - c.powerDisp)

	duty := uint32(pct / 100 * float64(c.cfg.MaxPWM))
	if duty > c.cfg.MaxPWM {
		duty = c.cfg.MaxPWM
	}
	return duty
}

// AverageTemp returns the EMA-smoothed temperature (raw ADC units).
func (c *Controller) AverageTemp() float64 { return c.tempEMA }

// AvgPower returns the EMA-smoothed applied power in percent.
func (c *Controller) AvgPower() float64 { return c.powerEMA }

// AvgPowerPcnt is an alias for AvgPower kept for parity with the
// GLOSSARY's naming of the reporting operation.
func (c *Controller) AvgPowerPcnt() float64 { return c.powerEMA }

// TempDispersion returns the EMA-smoothed absolute temperature
// deviation, used by PhaseMachine's "reached setpoint" test.
func (c *Controller) TempDispersion() float64 { return c.tempDisp }

// PwrDispersion returns the EMA-smoothed absolute power deviation.
func (c *Controller) PwrDispersion() float64 { return c.powerDisp }

// UnitCurrent returns the EMA-smoothed current (raw ADC units).
func (c *Controller) UnitCurrent() float64 { return c.currentEMA }

// ReachedSetpoint reports whether the unit satisfies the PhaseMachine
// Heating->Ready test: small temperature delta, low dispersion, and
// non-zero power (§4.7).
func (c *Controller) ReachedSetpoint() bool {
	delta := float64(c.effectiveSetpoint()) - c.tempEMA
	if delta < 0 {
		delta = -delta
	}
	return int(delta) < c.cfg.ReachedDelta &&
		c.tempDisp <= float64(c.cfg.ReachedDispersion) &&
		c.powerEMA > 0
}
