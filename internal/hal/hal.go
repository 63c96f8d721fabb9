// Package hal defines the target-agnostic hardware interfaces the core
// control logic is built against, and a package-level singleton registry
// for the driver a given build selects.
//
// Grounded on amken3d-gopper's core/adc_hal.go, pwm_hal.go, spi_hal.go,
// gpio_hal.go: an interface plus SetXDriver/MustX registration, so
// target-specific files (one per build tag) can wire in the real
// peripheral without core code importing "machine" directly.
//
// Copyright (C) 2026  Go Migration Team
//
// This file may be distributed under the terms of the GNU GPLv3 license.
package hal

import "errors"

// ADCChannel identifies one of the station's analog inputs.
type ADCChannel uint8

const (
	ChanIronCurrent ADCChannel = iota
	ChanFanCurrent
	ChanGunTemp
	ChanVrefInt
	ChanMCUTemp
	ChanIronTemp
	ChanAmbient
)

// ADCGroup identifies one of the two DMA-scheduled sample groups (§4.6).
type ADCGroup uint8

const (
	GroupA ADCGroup = iota // [iron_current, fan_current, gun_temp, vref_int, mcu_temp]
	GroupB                 // [iron_temp x4, ambient]
)

// Frame is one completed DMA conversion group. Group A frames use the
// first 5 slots; group B oversamples the iron 4x into the first 4 slots
// and carries ambient in slot 4. This fixed-size array, not a slice, is
// what makes Frame safe to hand across the ISR/foreground boundary.
type Frame [5]uint16

// ADCDriver is the abstract ADC interface the power pipeline drives.
type ADCDriver interface {
	// ConfigureChannel prepares a channel for analog input.
	ConfigureChannel(ch ADCChannel) error
	// StartGroup begins a DMA-scheduled conversion of the given group.
	// done is invoked from interrupt context when the frame completes.
	StartGroup(g ADCGroup, done func(Frame))
}

// PWMDriver is the abstract PWM interface for the iron/fan/gun outputs.
type PWMDriver interface {
	// ConfigurePeriod sets a channel's PWM period in the driver's native
	// tick units and returns the max duty value (period - 1).
	ConfigurePeriod(ch PWMChannel, periodTicks uint32) (uint32, error)
	// SetDuty writes a duty compare value. 0 fully disarms the output.
	SetDuty(ch PWMChannel, duty uint32) error
}

// PWMChannel identifies a PWM output.
type PWMChannel uint8

const (
	PWMIron PWMChannel = iota
	PWMFan
	PWMGun
)

// GPIODriver is the abstract digital I/O interface for panel switches.
type GPIODriver interface {
	ReadPin(pin Pin) bool
}

// Pin identifies a digital input pin.
type Pin uint8

const (
	PinTilt Pin = iota
	PinReed
	PinStby
	PinChange
)

// FlashDriver is the abstract block-erase/program interface backing
// PersistStore. Grounded on tinygo.org/x/drivers/flash's Device, which
// wraps an SPI NOR flash chip (e.g. Winbond W25Q) with the same
// block-erase/page-program contract.
type FlashDriver interface {
	// ReadAt reads len(p) bytes starting at off.
	ReadAt(p []byte, off int64) (int, error)
	// WriteAt programs len(p) bytes starting at off. The region must
	// already be erased.
	WriteAt(p []byte, off int64) (int, error)
	// EraseBlock erases the 4 KiB block containing off.
	EraseBlock(off int64) error
	// Size returns the total addressable flash size in bytes.
	Size() int64
}

var (
	adcDriver   ADCDriver
	pwmDriver   PWMDriver
	gpioDriver  GPIODriver
	flashDriver FlashDriver
)

// SetADCDriver registers the target-specific ADC driver.
func SetADCDriver(d ADCDriver) { adcDriver = d }

// SetPWMDriver registers the target-specific PWM driver.
func SetPWMDriver(d PWMDriver) { pwmDriver = d }

// SetGPIODriver registers the target-specific GPIO driver.
func SetGPIODriver(d GPIODriver) { gpioDriver = d }

// SetFlashDriver registers the target-specific flash driver.
func SetFlashDriver(d FlashDriver) { flashDriver = d }

// MustADC returns the configured ADC driver or panics if unset.
func MustADC() ADCDriver {
	if adcDriver == nil {
		panic("hal: ADC driver not configured")
	}
	return adcDriver
}

// MustPWM returns the configured PWM driver or panics if unset.
func MustPWM() PWMDriver {
	if pwmDriver == nil {
		panic("hal: PWM driver not configured")
	}
	return pwmDriver
}

// MustGPIO returns the configured GPIO driver or panics if unset.
func MustGPIO() GPIODriver {
	if gpioDriver == nil {
		panic("hal: GPIO driver not configured")
	}
	return gpioDriver
}

// Flash returns the configured flash driver, or an error if unset —
// callers use this instead of MustFlash because a missing filesystem
// is a recoverable boot condition (§7 no_filesystem), not a bug.
func Flash() (FlashDriver, error) {
	if flashDriver == nil {
		return nil, errors.New("hal: flash driver not configured")
	}
	return flashDriver, nil
}
