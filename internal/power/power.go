// Package power implements PowerPipeline: the mains-synchronized ADC
// sampling and PWM-write sequence that feeds the iron/gun
// UnitControllers and writes their requested duty to the PWM compare
// registers (§4.6).
//
// Grounded on amken3d-gopper/core/adc_hal.go's DMA-complete callback
// shape (StartGroup/done-callback) for the group-sampling sequence, and
// on §5's ordering invariants (current/temperature samples strictly
// alternate; a reentrant trigger force-zeroes every PWM output before
// continuing) which this package enforces through the adcMode
// three-state flag named in §5.
//
// Copyright (C) 2026  Go Migration Team
//
// This file may be distributed under the terms of the GNU GPLv3 license.
package power

import (
	"github.com/sfrwmaker/station-fw/internal/hal"
	"github.com/sfrwmaker/station-fw/internal/hwbus"
	"github.com/sfrwmaker/station-fw/internal/unit"
)

// AdcMode is the three-state scalar flag §5 names as one of the few
// values allowed to cross the ISR/foreground boundary.
type AdcMode uint8

const (
	AdcIdle AdcMode = iota
	AdcGroupAPending
	AdcGroupBPending
)

// acWatchdogIntervalMs is the AC-sense watchdog's comparison spacing
// (§4.6: "compares the mains-clocked counter between ticks at 41 ms
// spacing").
const acWatchdogIntervalMs = 41

// Pipeline wires one hal.ADCDriver/hal.PWMDriver pair to the iron and
// gun UnitControllers and the shared HardwareBus.
type Pipeline struct {
	adc hal.ADCDriver
	pwm hal.PWMDriver

	iron *unit.Controller
	gun  *unit.Controller
	hw   *hwbus.Bus

	mode AdcMode

	maxIronPWM uint32
	maxGunPWM  uint32

	errCount int

	acPresent      bool
	haveACBaseline bool
	lastWatchdogMs int64
	lastMainsCount uint32

	lastIronRaw int
	lastGunRaw  int
}

// Config fixes the pipeline's PWM clamps (§4.6: max_iron_pwm =
// iron_pwm_period - 40, max_gun_pwm = 99).
type Config struct {
	MaxIronPWM uint32
	MaxGunPWM  uint32
}

// New wires a Pipeline to its ADC/PWM drivers and the units/bus it
// drives.
func New(adc hal.ADCDriver, pwm hal.PWMDriver, iron, gun *unit.Controller, hw *hwbus.Bus, cfg Config) *Pipeline {
	return &Pipeline{
		adc: adc, pwm: pwm,
		iron: iron, gun: gun, hw: hw,
		maxIronPWM: cfg.MaxIronPWM, maxGunPWM: cfg.MaxGunPWM,
		acPresent: true,
	}
}

// ErrorCount returns the number of reentrant-trigger events observed.
func (p *Pipeline) ErrorCount() int { return p.errCount }

// ACPresent reports the AC-sense watchdog's current verdict.
func (p *Pipeline) ACPresent() bool { return p.acPresent }

// forceZeroOutputs zeroes every PWM channel, per §5/§4.6's reentrancy
// and no-AC handling. It leaves the ADC mode to its caller.
func (p *Pipeline) forceZeroOutputs() {
	_ = p.pwm.SetDuty(hal.PWMIron, 0)
	_ = p.pwm.SetDuty(hal.PWMFan, 0)
	_ = p.pwm.SetDuty(hal.PWMGun, 0)
}

// TriggerCheckCurrent starts group A (iron_current, fan_current,
// gun_temp, vref_int, mcu_temp). If the pipeline is not Idle this is a
// reentrant trigger: the error counter increments and every PWM output
// is force-zeroed before the new group still starts.
func (p *Pipeline) TriggerCheckCurrent() {
	if p.mode != AdcIdle {
		p.errCount++
		p.forceZeroOutputs()
	}
	p.mode = AdcGroupAPending
	p.adc.StartGroup(hal.GroupA, p.onGroupA)
}

// TriggerCheckTemperature starts group B (iron_temp x4, ambient), with
// the same reentrancy handling as TriggerCheckCurrent.
func (p *Pipeline) TriggerCheckTemperature() {
	if p.mode != AdcIdle {
		p.errCount++
		p.forceZeroOutputs()
	}
	p.mode = AdcGroupBPending
	p.adc.StartGroup(hal.GroupB, p.onGroupB)
}

func (p *Pipeline) onGroupA(frame hal.Frame) {
	ironCurrent, fanCurrent, gunTemp, vrefInt, mcuTemp := frame[0], frame[1], frame[2], frame[3], frame[4]

	p.iron.UpdateCurrent(int(ironCurrent))
	p.gun.UpdateCurrent(int(fanCurrent))
	p.lastGunRaw = int(gunTemp)
	p.gun.UpdateTemp(p.lastGunRaw)
	p.hw.UpdateVref(int(vrefInt))
	p.hw.UpdateMCUTemp(int(mcuTemp))

	p.mode = AdcIdle
}

func (p *Pipeline) onGroupB(frame hal.Frame) {
	avg := (int(frame[0]) + int(frame[1]) + int(frame[2]) + int(frame[3])) / 4
	ambient := frame[4]

	p.lastIronRaw = avg
	p.iron.UpdateTemp(avg)
	p.hw.UpdateAmbient(int(ambient))

	p.mode = AdcIdle
}

// WriteIronPWM computes and writes the iron's next duty, clamped to
// MaxIronPWM and zeroed outright when AC is absent (§4.6). now is the
// monotonic millisecond tick; it is passed to the PID controller
// driving the iron unit in seconds.
func (p *Pipeline) WriteIronPWM(now float64) {
	if !p.acPresent {
		_ = p.pwm.SetDuty(hal.PWMIron, 0)
		return
	}
	duty := p.iron.Power(float64(p.lastIronRaw), now/1000)
	if duty > p.maxIronPWM {
		duty = p.maxIronPWM
	}
	_ = p.pwm.SetDuty(hal.PWMIron, duty)
}

// WriteGunPWM computes and writes the gun's next duty on its slower,
// mains-period tick, clamped to MaxGunPWM and zeroed when AC is absent.
// now is in milliseconds, as for WriteIronPWM.
func (p *Pipeline) WriteGunPWM(now float64) {
	if !p.acPresent {
		_ = p.pwm.SetDuty(hal.PWMGun, 0)
		return
	}
	duty := p.gun.Power(float64(p.lastGunRaw), now/1000)
	if duty > p.maxGunPWM {
		duty = p.maxGunPWM
	}
	_ = p.pwm.SetDuty(hal.PWMGun, duty)
}

// CheckACWatchdog compares the mains-clocked counter against its last
// observed value every acWatchdogIntervalMs; a counter that fails to
// advance means the mains zero-crossing interrupt has stopped firing,
// so every output is force-zeroed regardless of PID request (§4.6).
func (p *Pipeline) CheckACWatchdog(nowMs int64, mainsCounter uint32) {
	if !p.haveACBaseline {
		// First call: record the counter to compare against next time.
		p.haveACBaseline = true
		p.lastMainsCount = mainsCounter
		p.lastWatchdogMs = nowMs
		return
	}
	if nowMs-p.lastWatchdogMs < acWatchdogIntervalMs {
		return
	}
	p.acPresent = mainsCounter != p.lastMainsCount
	p.lastMainsCount = mainsCounter
	p.lastWatchdogMs = nowMs

	if !p.acPresent {
		p.forceZeroOutputs()
	}
}
