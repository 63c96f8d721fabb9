package hwbus

import "github.com/sfrwmaker/station-fw/internal/hal"

// debounceTicks is the number of consecutive agreeing samples required
// before a switch's reported level changes, grounded on
// AndySze-klipper/pkg/endstop's debounce-timer pattern (there expressed
// as a wall-clock delay; here as a tick count since the panel is
// polled on a fixed foreground cadence rather than interrupt-driven).
const debounceTicks = 3

// Switch is one debounced panel input (TILT, REED, STBY, CHANGE).
type Switch struct {
	pin       hal.Pin
	level     bool
	candidate bool
	run       int
}

// NewSwitch creates a debounced Switch reading the given GPIO pin.
func NewSwitch(pin hal.Pin) *Switch {
	return &Switch{pin: pin}
}

// Poll samples the underlying GPIO pin and updates the debounced
// level. It returns true if the debounced level changed on this call.
func (s *Switch) Poll(gpio hal.GPIODriver) (changed bool) {
	raw := gpio.ReadPin(s.pin)
	if raw == s.candidate {
		s.run++
	} else {
		s.candidate = raw
		s.run = 1
	}
	if s.run >= debounceTicks && s.level != s.candidate {
		s.level = s.candidate
		return true
	}
	return false
}

// Level returns the current debounced level.
func (s *Switch) Level() bool { return s.level }

// Panel bundles the four panel switches named in §4.7/§4.8.
type Panel struct {
	Tilt   *Switch
	Reed   *Switch
	Stby   *Switch
	Change *Switch
}

// NewPanel creates a Panel wired to the station's fixed pin
// assignment.
func NewPanel() *Panel {
	return &Panel{
		Tilt:   NewSwitch(hal.PinTilt),
		Reed:   NewSwitch(hal.PinReed),
		Stby:   NewSwitch(hal.PinStby),
		Change: NewSwitch(hal.PinChange),
	}
}

// Poll samples every switch in the panel, returning the set of inputs
// whose debounced level changed on this call.
func (p *Panel) Poll(gpio hal.GPIODriver) (tilt, reed, stby, change bool) {
	return p.Tilt.Poll(gpio), p.Reed.Poll(gpio), p.Stby.Poll(gpio), p.Change.Poll(gpio)
}
