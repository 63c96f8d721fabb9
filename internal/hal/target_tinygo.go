//go:build tinygo

package hal

import (
	"machine"

	"tinygo.org/x/drivers/flash"
)

// mcuADC wires the two DMA-scheduled ADC groups (§4.6) onto the STM32
// ADC1/ADC3 peripherals via TinyGo's machine.ADC. The DMA-complete
// wiring is board-specific and is not part of this module; this driver
// only holds the per-channel pin mapping and the registered completion
// callbacks, which DispatchGroup invokes.
type mcuADC struct {
	pins map[ADCChannel]machine.ADC
	done [2]func(Frame)
}

func newMCUADC(pins map[ADCChannel]machine.ADC) *mcuADC {
	return &mcuADC{pins: pins}
}

func (d *mcuADC) ConfigureChannel(ch ADCChannel) error {
	pin, ok := d.pins[ch]
	if !ok {
		return errUnmappedChannel
	}
	pin.Configure(machine.ADCConfig{})
	return nil
}

func (d *mcuADC) StartGroup(g ADCGroup, done func(Frame)) {
	d.done[g] = done
}

// DispatchGroup is for the board's DMA-complete interrupt handler to call
// once a group's samples have all landed in the DMA buffer. It passes the
// raw samples to the group's callback unchanged, as a Frame.
func (d *mcuADC) DispatchGroup(g ADCGroup, raw [5]uint16) {
	if cb := d.done[g]; cb != nil {
		cb(Frame(raw))
	}
}

// mcuPWM wires PWMDriver onto TinyGo's machine.PWM.
type mcuPWM struct {
	group map[PWMChannel]machine.PWM
	ch    map[PWMChannel]uint8
}

func (d *mcuPWM) ConfigurePeriod(ch PWMChannel, periodTicks uint32) (uint32, error) {
	g, ok := d.group[ch]
	if !ok {
		return 0, errUnmappedChannel
	}
	if err := g.Configure(machine.PWMConfig{Period: uint64(periodTicks)}); err != nil {
		return 0, err
	}
	top := g.Top()
	return top, nil
}

func (d *mcuPWM) SetDuty(ch PWMChannel, duty uint32) error {
	g, ok := d.group[ch]
	if !ok {
		return errUnmappedChannel
	}
	g.Set(d.ch[ch], duty)
	return nil
}

// mcuGPIO wires GPIODriver onto TinyGo's machine.Pin.
type mcuGPIO struct {
	pins map[Pin]machine.Pin
}

func (d *mcuGPIO) ReadPin(pin Pin) bool {
	p, ok := d.pins[pin]
	if !ok {
		return false
	}
	return p.Get()
}

// mcuFlash wraps tinygo.org/x/drivers/flash's SPI NOR flash Device to
// satisfy FlashDriver, backing PersistStore's slot-table 4 KiB blocks
// (§6) on the real board.
type mcuFlash struct {
	dev *flash.Device
}

func newMCUFlash(bus flash.SPI, cs machine.Pin) (*mcuFlash, error) {
	dev := flash.New(bus, cs)
	if err := dev.Configure(); err != nil {
		return nil, err
	}
	return &mcuFlash{dev: dev}, nil
}

func (d *mcuFlash) Size() int64 { return int64(d.dev.Size()) }

func (d *mcuFlash) ReadAt(p []byte, off int64) (int, error) {
	return d.dev.ReadAt(p, off)
}

func (d *mcuFlash) WriteAt(p []byte, off int64) (int, error) {
	return d.dev.WriteAt(p, off)
}

func (d *mcuFlash) EraseBlock(off int64) error {
	return d.dev.EraseBlock(uint32(off) / d.dev.EraseBlockSize())
}

var errUnmappedChannel = errNew("hal: channel not mapped for this board")

type simpleErr string

func (e simpleErr) Error() string { return string(e) }

func errNew(s string) error { return simpleErr(s) }
