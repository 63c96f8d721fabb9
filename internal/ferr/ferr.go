// Package ferr provides the station firmware's unified error type.
//
// Copyright (C) 2026  Go Migration Team
//
// This file may be distributed under the terms of the GNU GPLv3 license.
package ferr

import "fmt"

// Code represents the category of a firmware error, grouped by the
// subsystem that raised it (see spec §7).
type Code string

const (
	// Persistence errors (§7): flash filesystem and record storage.
	CodeNoFilesystem Code = "PERSIST_NO_FS"
	CodeReadError    Code = "PERSIST_READ"
	CodeChecksum     Code = "PERSIST_CRC"
	CodeIO           Code = "PERSIST_IO"

	// Sensor errors (§7): transient hardware conditions, not modal.
	CodeNoAC   Code = "SENSOR_NO_AC"
	CodeNoIron Code = "SENSOR_NO_IRON"

	// Calibration errors (§7).
	CodeInvalidTip     Code = "CAL_INVALID_TIP"
	CodeAutotuneFailed Code = "CAL_AUTOTUNE_FAILED"

	// Safety trip (§7): latched, requires power-cycle to clear.
	CodeThermalTrip Code = "SAFETY_THERMAL_TRIP"

	// Pipeline reentrancy (§7).
	CodeReentrantTrigger Code = "PIPELINE_REENTRANT"

	// Generic runtime/init errors for components without a dedicated code.
	CodeRuntime Code = "RUNTIME"
)

// FirmwareError is the error type returned by every core package. It
// carries a stable Code that the display layer (§6 `error(msg, param?)`)
// can render without inspecting the message text.
type FirmwareError struct {
	Code    Code
	Message string
	Param   string
	Err     error
}

func (e *FirmwareError) Error() string {
	if e.Param != "" {
		return fmt.Sprintf("[%s] %s (%s)", e.Code, e.Message, e.Param)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *FirmwareError) Unwrap() error {
	return e.Err
}

// WithParam attaches a display parameter (e.g. a device or file name).
func (e *FirmwareError) WithParam(param string) *FirmwareError {
	e.Param = param
	return e
}

// New creates a FirmwareError with no wrapped cause.
func New(code Code, message string) *FirmwareError {
	return &FirmwareError{Code: code, Message: message}
}

// Wrap creates a FirmwareError that wraps an underlying error.
func Wrap(code Code, message string, cause error) *FirmwareError {
	return &FirmwareError{Code: code, Message: message, Err: cause}
}

// Is reports whether err is a FirmwareError with the given code.
func Is(err error, code Code) bool {
	fe, ok := err.(*FirmwareError)
	return ok && fe.Code == code
}

// IsPersistence reports whether err belongs to the persistence group.
func IsPersistence(err error) bool {
	return Is(err, CodeNoFilesystem) || Is(err, CodeReadError) ||
		Is(err, CodeChecksum) || Is(err, CodeIO)
}
