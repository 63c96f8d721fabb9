// Package pid implements PidController: a discrete PID regulator with
// integral clamping and a relay-oscillation auto-tuner (§4.4).
//
// Grounded on AndySze-klipper/pkg/temperature/control.go's ControlPID
// (the Kp*err + Ki*integ - Kd*deriv formula, integral-freeze-on-
// saturation, and smoothed-derivative-over-short-interval behaviour),
// generalized with the setpoint-jump integrator reset and atomic
// coefficient swap §4.4 requires, plus the Åström–Hägglund relay
// auto-tuner and the gentler "smooth" calibration profile recovered
// from _examples/original_source/Src/unit.cpp.
//
// Copyright (C) 2026  Go Migration Team
//
// This file may be distributed under the terms of the GNU GPLv3 license.
package pid

import "math"

// Params is one set of PID coefficients, plus the clamps that go with
// them. All fields are in the controller's native units: temperature in
// tenths of a degree or raw ADC counts (the caller picks a consistent
// unit), power in percent [0, 100].
type Params struct {
	Kp, Ki, Kd float64
	MaxPower   float64
}

// smoothParams is the gentler profile substituted while a calibration
// pass is probing reference points, so the probe does not overshoot and
// damage a tip being characterized (original_source/Src/unit.cpp).
var smoothParams = Params{Kp: 1.0, Ki: 0.05, Kd: 0.0, MaxPower: 80}

// setpointJumpDelta is the minimum setpoint change, in the controller's
// native temperature unit, that triggers an integrator reset (§4.4:
// "reset when the setpoint changes by more than a small delta").
const setpointJumpDelta = 3.0

// Controller is a discrete PID loop driven by periodic TemperatureUpdate
// calls at (possibly irregular) sample times.
type Controller struct {
	params       Params
	smooth       bool
	setpoint     float64
	havePrev     bool
	prevTemp     float64
	prevTime     float64
	prevDeriv    float64
	integ        float64
	integMax     float64
	tune         *tuner
}

// New creates a Controller with the given coefficients.
func New(p Params) *Controller {
	c := &Controller{params: p}
	c.recomputeIntegMax()
	return c
}

func (c *Controller) recomputeIntegMax() {
	if c.params.Ki > 0 {
		c.integMax = c.params.MaxPower / c.params.Ki
	} else {
		c.integMax = 0
	}
}

// SetCoefficients atomically replaces Kp/Ki/Kd/MaxPower. "Atomic" here
// means the caller's point of view never observes a sample computed
// with a mix of old and new coefficients, nor a spurious zero-output
// sample — the swap happens between calls to Update, never inside one
// (§4.4).
func (c *Controller) SetCoefficients(p Params) {
	c.params = p
	c.recomputeIntegMax()
}

// Params returns the controller's current coefficients.
func (c *Controller) Params() Params { return c.params }

// UseSmoothProfile switches to (or back from) the gentler calibration
// profile. The underlying integrator state is preserved; only the
// coefficients and power ceiling change.
func (c *Controller) UseSmoothProfile(enabled bool) {
	if enabled == c.smooth {
		return
	}
	c.smooth = enabled
	if enabled {
		c.recomputeIntegMaxFor(smoothParams)
	} else {
		c.recomputeIntegMax()
	}
}

func (c *Controller) recomputeIntegMaxFor(p Params) {
	if p.Ki > 0 {
		c.integMax = p.MaxPower / p.Ki
	} else {
		c.integMax = 0
	}
}

func (c *Controller) active() Params {
	if c.smooth {
		return smoothParams
	}
	return c.params
}

// SetSetpoint changes the regulated target. A jump larger than
// setpointJumpDelta resets the integrator so the new target is not
// fought by stale accumulated error.
func (c *Controller) SetSetpoint(target float64) {
	if math.Abs(target-c.setpoint) > setpointJumpDelta {
		c.integ = 0
	}
	c.setpoint = target
}

// Setpoint returns the current target.
func (c *Controller) Setpoint() float64 { return c.setpoint }

// Reset clears all running state (integrator, derivative history) but
// keeps the configured coefficients and setpoint.
func (c *Controller) Reset() {
	c.havePrev = false
	c.integ = 0
	c.prevDeriv = 0
}

// minDerivTime is the smoothing window below which the derivative term
// is blended with its previous value rather than recomputed outright,
// matching ControlPID's short-interval smoothing behaviour.
const minDerivTime = 0.1

// Update advances the controller with a new process-variable sample at
// time t (monotonic seconds) and returns the next duty, clamped to
// [0, MaxPower].
func (c *Controller) Update(t, pv float64) float64 {
	p := c.active()

	if !c.havePrev {
		c.prevTemp = pv
		c.prevTime = t
		c.havePrev = true
		return 0
	}

	dt := t - c.prevTime
	if dt <= 0 {
		dt = 1e-3
	}

	var deriv float64
	if dt >= minDerivTime {
		deriv = (pv - c.prevTemp) / dt
	} else {
		diff := pv - c.prevTemp
		deriv = (c.prevDeriv*(minDerivTime-dt) + diff) / minDerivTime
	}

	errVal := c.setpoint - pv

	integ := c.integ + errVal*dt
	if c.integMax > 0 {
		integ = math.Max(0, math.Min(c.integMax, integ))
	}

	out := p.Kp*errVal + p.Ki*integ - p.Kd*deriv
	bounded := math.Max(0, math.Min(p.MaxPower, out))

	c.prevTemp = pv
	c.prevTime = t
	c.prevDeriv = deriv
	if out == bounded {
		c.integ = integ
	}

	return bounded
}

// ZieglerNichols computes classic PID coefficients from a measured
// ultimate gain and period (§4.4).
func ZieglerNichols(ku, tu, maxPower float64) Params {
	return Params{
		Kp:       0.6 * ku,
		Ki:       1.2 * ku / tu,
		Kd:       0.075 * ku * tu,
		MaxPower: maxPower,
	}
}
