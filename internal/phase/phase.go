// Package phase implements PhaseMachine: the per-heater state machine
// driving Off/Heating/Ready/Normal/Boost/LowPwr/GoingOff/Cooling/Cold
// transitions (§4.7).
//
// Grounded on AndySze-klipper/pkg/safety's ShutdownState/ShutdownReason
// enum-with-String()-plus-disabler-interface pattern, generalized from
// a single emergency-shutdown state to the full multi-state heater
// lifecycle. Elapsed-time transitions (phase_end deadlines, the
// idle-power countdown) use a deadline the machine keeps itself and
// checks in Tick. Callbacks (Arm,
// Disarm, Beep, PersistConfig) follow
// AndySze-klipper/pkg/heater/heater.go's SetPWMCallback style: the
// machine holds function fields rather than a concrete UnitController,
// so it is testable without any hardware or unit plumbing.
//
// Copyright (C) 2026  Go Migration Team
//
// This file may be distributed under the terms of the GNU GPLv3 license.
package phase

// Phase is one of the nine heater lifecycle states (§4.7, §3).
type Phase uint8

const (
	Off Phase = iota
	Heating
	Ready
	Normal
	Boost
	LowPwr
	GoingOff
	Cooling
	Cold
)

func (p Phase) String() string {
	switch p {
	case Off:
		return "off"
	case Heating:
		return "heating"
	case Ready:
		return "ready"
	case Normal:
		return "normal"
	case Boost:
		return "boost"
	case LowPwr:
		return "low_power"
	case GoingOff:
		return "going_off"
	case Cooling:
		return "cooling"
	case Cold:
		return "cold"
	default:
		return "unknown"
	}
}

// BeepPattern is one of the numeric beep patterns named in §6.
type BeepPattern uint8

const (
	BeepShort BeepPattern = iota
	BeepDouble
	BeepLow
	BeepFailed
)

// Kind distinguishes the three devices, since the JBC and Gun variants
// of this state machine differ from the encoder-driven default (§4.7).
type Kind uint8

const (
	KindT12 Kind = iota
	KindJBC
	KindGun
)

// readyHoldMs is the Ready->Normal dwell named in §4.7 ("schedule
// phase_end = now + 2000 ms").
const readyHoldMs = 2000

// coldHoldMs is the Cooling->Cold->Off dwell (§4.7: "schedule phase_end
// = now + 20 s").
const coldHoldMs = 20_000

// Config fixes the per-instance parameters that come from ConfigRecord
// (§3) and do not change except through a menu edit.
type Config struct {
	Kind Kind

	// HandlePresent gates the T12 "reject with failure beep" edge case
	// (§4.7: "If T12 handle absent: rejected with a failure beep").
	// Always true for JBC/Gun.
	HandlePresent func() bool

	// UseTilt selects hardware-tilt idle detection over the
	// power-analysis software timeout (T12 only, §4.7).
	UseTilt bool

	LowToSeconds      int64 // tilt mode: tilt inactivity before LowPwr, in 5 s units
	OffTimeoutSeconds int64 // LowPwr/GoingOff -> Cooling dwell

	IdlePowerDivergence float64 // power-analysis mode threshold
	CountdownWindowMs   int64   // final visual countdown window

	BoostDeltaC    int
	BoostDurationS int64

	PresetRaw   func() int // ConfigRecord-derived working setpoint
	StandbyRaw  func() int // ConfigRecord-derived low-power setpoint
}

// Machine is one heater's phase state machine.
type Machine struct {
	cfg   Config
	phase Phase

	phaseEnd   int64 // valid only while haveEnd is set
	haveEnd    bool
	boostUntil int64

	lastTiltMs    int64
	idlePowerEMA  float64
	haveIdlePower bool

	// Callbacks — set by the caller (cmd/stationfw wiring) before use.
	Arm           func(presetRaw int)
	Disarm        func()
	SetLowPower   func(rawStandby int)
	SetBoost      func(rawBoost int)
	Beep          func(BeepPattern)
	PersistConfig func()
	PublishPhase  func(Phase)
	PublishCountdown func(secondsLeft int64)
}

// New creates a Machine in the Off phase.
func New(cfg Config) *Machine {
	return &Machine{cfg: cfg, phase: Off}
}

// Phase returns the current state.
func (m *Machine) Phase() Phase { return m.phase }

func (m *Machine) setPhase(p Phase) {
	m.phase = p
	if m.PublishPhase != nil {
		m.PublishPhase(p)
	}
}

func (m *Machine) schedule(now, deltaMs int64) {
	m.phaseEnd = now + deltaMs
	m.haveEnd = true
}

func (m *Machine) clearDeadline() { m.haveEnd = false }

func (m *Machine) beep(p BeepPattern) {
	if m.Beep != nil {
		m.Beep(p)
	}
}

// EncoderShort handles the short-press event. From Off/Cooling/Cold it
// arms the heater at the configured preset; on a T12 with no handle
// detected, the request is rejected with a failure beep (§4.7).
func (m *Machine) EncoderShort(now int64) {
	if m.cfg.Kind != KindT12 {
		return // JBC/Gun are stand/cradle-driven, not encoder-driven.
	}
	switch m.phase {
	case Off, Cooling, Cold:
		if m.cfg.HandlePresent != nil && !m.cfg.HandlePresent() {
			m.beep(BeepFailed)
			return
		}
		if m.Arm != nil {
			m.Arm(m.cfg.PresetRaw())
		}
		m.setPhase(Heating)
	}
}

// EncoderLong handles the long-press boost toggle, available whenever
// the unit is working (§4.7).
func (m *Machine) EncoderLong(now int64) {
	if !m.working() {
		return
	}
	if m.SetBoost != nil {
		m.SetBoost(m.cfg.PresetRaw() + m.cfg.BoostDeltaC)
	}
	m.setPhase(Boost)
	m.schedule(now, m.cfg.BoostDurationS*1000)
	m.beep(BeepShort)
}

func (m *Machine) working() bool {
	switch m.phase {
	case Heating, Ready, Normal, Boost, LowPwr, GoingOff:
		return true
	default:
		return false
	}
}

// ReachedSetpoint handles the unit-reported "reached_setpoint" signal.
func (m *Machine) ReachedSetpoint(now int64) {
	if m.phase != Heating {
		return
	}
	m.setPhase(Ready)
	m.schedule(now, readyHoldMs)
	m.beep(BeepShort)
}

// GoneCold handles the unit-reported "gone_cold" signal (Cooling ->
// Cold).
func (m *Machine) GoneCold(now int64) {
	if m.phase != Cooling {
		return
	}
	m.setPhase(Cold)
	m.schedule(now, coldHoldMs)
	m.beep(BeepLow)
}

// NotConnected handles the unit-reported "not_connected" signal,
// forcing the phase to Off regardless of current state (§4.5/§4.7).
func (m *Machine) NotConnected() {
	if m.phase == Off {
		return
	}
	if m.Disarm != nil {
		m.Disarm()
	}
	m.setPhase(Off)
	m.clearDeadline()
}

// TiltActivity reports hardware tilt-switch movement; in tilt-idle
// mode this re-arms a LowPwr unit and resets the idle clock.
func (m *Machine) TiltActivity(now int64) {
	m.lastTiltMs = now
	if m.phase == LowPwr && m.cfg.UseTilt {
		if m.Arm != nil {
			m.Arm(m.cfg.PresetRaw())
		}
		if m.SetLowPower != nil {
			m.SetLowPower(0)
		}
		m.setPhase(Heating)
	}
}

// SwitchChange handles the JBC stand switch and the Gun REED switch
// (§4.7). present reports the off-hook (JBC) / armed-cradle (Gun)
// state: true means "out of the holder".
func (m *Machine) SwitchChange(now int64, present bool) {
	switch m.cfg.Kind {
	case KindJBC:
		m.jbcSwitchChange(now, present)
	case KindGun:
		m.gunSwitchChange(now, present)
	}
}

func (m *Machine) jbcSwitchChange(now int64, offHook bool) {
	if offHook {
		switch m.phase {
		case Off, Cooling, Cold, LowPwr:
			if m.Arm != nil {
				m.Arm(m.cfg.PresetRaw())
			}
			if m.SetLowPower != nil {
				m.SetLowPower(0)
			}
			m.setPhase(Heating)
		}
		return
	}
	// on-hook
	if !m.working() {
		return
	}
	if m.cfg.OffTimeoutSeconds > 0 {
		if m.SetLowPower != nil {
			m.SetLowPower(m.cfg.StandbyRaw())
		}
		m.setPhase(LowPwr)
		m.schedule(now, m.cfg.OffTimeoutSeconds*1000)
	} else {
		m.beginCooling(now)
	}
}

func (m *Machine) gunSwitchChange(now int64, armed bool) {
	if armed {
		if m.Arm != nil {
			m.Arm(m.cfg.PresetRaw())
		}
		m.setPhase(Heating)
		return
	}
	if !m.working() {
		return
	}
	if m.cfg.OffTimeoutSeconds > 0 {
		if m.SetLowPower != nil {
			m.SetLowPower(m.cfg.StandbyRaw())
		}
		m.setPhase(LowPwr)
		m.schedule(now, m.cfg.OffTimeoutSeconds*1000)
	} else {
		m.beginCooling(now)
	}
}

func (m *Machine) beginCooling(now int64) {
	if m.Disarm != nil {
		m.Disarm()
	}
	if m.PersistConfig != nil {
		m.PersistConfig()
	}
	m.setPhase(Cooling)
	m.clearDeadline()
}

// Tick advances time-driven transitions: phase_end deadlines and, for
// the T12 in Normal, idle detection (§4.7).
func (m *Machine) Tick(now int64, avgPowerEMA float64) {
	if m.phase == Normal && m.cfg.Kind == KindT12 {
		m.tickIdleDetection(now, avgPowerEMA)
	}

	if !m.haveEnd || now < m.phaseEnd {
		return
	}
	m.clearDeadline()

	switch m.phase {
	case Ready:
		m.setPhase(Normal)
	case LowPwr, GoingOff:
		m.beginCooling(now)
	case Cold:
		m.setPhase(Off)
	case Boost:
		if m.SetBoost != nil {
			m.SetBoost(0)
		}
		m.beep(BeepLow)
		m.setPhase(Heating)
	}
}

func (m *Machine) tickIdleDetection(now int64, avgPowerEMA float64) {
	if m.cfg.UseTilt {
		idleMs := (now - m.lastTiltMs)
		if idleMs >= m.cfg.LowToSeconds*5*1000 {
			if m.SetLowPower != nil {
				m.SetLowPower(m.cfg.StandbyRaw())
			}
			m.setPhase(LowPwr)
			if m.cfg.OffTimeoutSeconds > 0 {
				m.schedule(now, m.cfg.OffTimeoutSeconds*1000)
			}
		}
		return
	}

	if !m.haveIdlePower {
		m.idlePowerEMA = avgPowerEMA
		m.haveIdlePower = true
	}
	diff := avgPowerEMA - m.idlePowerEMA
	if diff < 0 {
		diff = -diff
	}
	if diff >= m.cfg.IdlePowerDivergence {
		// In use: reset the countdown and re-baseline the idle estimate.
		m.idlePowerEMA = avgPowerEMA
		m.schedule(now, m.cfg.OffTimeoutSeconds*1000)
		return
	}
	if !m.haveEnd {
		m.schedule(now, m.cfg.OffTimeoutSeconds*1000)
	}
	remaining := m.phaseEnd - now
	if remaining <= m.cfg.CountdownWindowMs {
		if remaining <= 0 {
			m.setPhase(GoingOff)
			m.schedule(now, 0)
			return
		}
		if m.PublishCountdown != nil {
			m.PublishCountdown(remaining / 1000)
		}
	}
}
