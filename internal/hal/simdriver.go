//go:build !tinygo

package hal

import "sync"

// SimADC is a software-simulated ADC driver for hosted builds (tests and
// cmd/stationfw's host build). Tests inject sample frames with Feed; the pipeline never knows
// it isn't real hardware. Grounded on the teacher's cmd/mock-mcu, which
// plays the same role for the host-side serial protocol.
type SimADC struct {
	mu   sync.Mutex
	done map[ADCGroup]func(Frame)
}

// NewSimADC creates a simulated ADC driver and registers it as the
// active hal.ADCDriver.
func NewSimADC() *SimADC {
	d := &SimADC{done: make(map[ADCGroup]func(Frame))}
	SetADCDriver(d)
	return d
}

func (d *SimADC) ConfigureChannel(ch ADCChannel) error { return nil }

func (d *SimADC) StartGroup(g ADCGroup, done func(Frame)) {
	d.mu.Lock()
	d.done[g] = done
	d.mu.Unlock()
}

// Feed delivers a completed conversion frame as if a DMA-complete
// interrupt had just fired for group g.
func (d *SimADC) Feed(g ADCGroup, frame Frame) {
	d.mu.Lock()
	cb := d.done[g]
	d.mu.Unlock()
	if cb != nil {
		cb(frame)
	}
}

// SimPWM is a software-simulated PWM driver recording the last duty
// written to each channel, for assertions in tests (Testable Properties
// 4 and 5).
type SimPWM struct {
	mu     sync.Mutex
	period map[PWMChannel]uint32
	duty   map[PWMChannel]uint32
}

// NewSimPWM creates a simulated PWM driver and registers it as the
// active hal.PWMDriver.
func NewSimPWM() *SimPWM {
	d := &SimPWM{period: make(map[PWMChannel]uint32), duty: make(map[PWMChannel]uint32)}
	SetPWMDriver(d)
	return d
}

func (d *SimPWM) ConfigurePeriod(ch PWMChannel, periodTicks uint32) (uint32, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.period[ch] = periodTicks
	return periodTicks - 1, nil
}

func (d *SimPWM) SetDuty(ch PWMChannel, duty uint32) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.duty[ch] = duty
	return nil
}

// Duty returns the last duty value written to ch.
func (d *SimPWM) Duty(ch PWMChannel) uint32 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.duty[ch]
}

// SimGPIO is a software-simulated GPIO driver for the panel switches.
type SimGPIO struct {
	mu    sync.Mutex
	level map[Pin]bool
}

// NewSimGPIO creates a simulated GPIO driver and registers it as the
// active hal.GPIODriver.
func NewSimGPIO() *SimGPIO {
	d := &SimGPIO{level: make(map[Pin]bool)}
	SetGPIODriver(d)
	return d
}

func (d *SimGPIO) ReadPin(pin Pin) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.level[pin]
}

// Set drives pin to level, as if the physical switch had just moved.
func (d *SimGPIO) Set(pin Pin, level bool) {
	d.mu.Lock()
	d.level[pin] = level
	d.mu.Unlock()
}

// SimFlash is an in-memory flash driver used by tests.
type SimFlash struct {
	mu   sync.Mutex
	data []byte
}

// NewSimFlash creates a size-byte simulated flash and registers it as the
// active hal.FlashDriver. Erased memory reads as 0xFF, matching real NOR
// flash and tinygo.org/x/drivers/flash's erase semantics.
func NewSimFlash(size int64) *SimFlash {
	buf := make([]byte, size)
	for i := range buf {
		buf[i] = 0xFF
	}
	d := &SimFlash{data: buf}
	SetFlashDriver(d)
	return d
}

func (d *SimFlash) Size() int64 { return int64(len(d.data)) }

func (d *SimFlash) ReadAt(p []byte, off int64) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	n := copy(p, d.data[off:])
	return n, nil
}

func (d *SimFlash) WriteAt(p []byte, off int64) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	n := copy(d.data[off:], p)
	return n, nil
}

func (d *SimFlash) EraseBlock(off int64) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	const blockSize = 4096
	base := (off / blockSize) * blockSize
	for i := base; i < base+blockSize && i < int64(len(d.data)); i++ {
		d.data[i] = 0xFF
	}
	return nil
}
