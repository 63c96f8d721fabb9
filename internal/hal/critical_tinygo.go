//go:build tinygo

package hal

import "runtime/interrupt"

// CriticalState is the saved interrupt-mask state returned by
// EnterCritical, to be restored by the matching ExitCritical.
type CriticalState interrupt.State

// EnterCritical disables interrupts and returns the previous mask state.
// It is the primitive for guarding multi-field updates that cross the
// ISR/foreground boundary (§5); no package in this module calls it.
func EnterCritical() CriticalState {
	return CriticalState(interrupt.Disable())
}

// ExitCritical restores the interrupt mask saved by EnterCritical.
func ExitCritical(s CriticalState) {
	interrupt.Restore(interrupt.State(s))
}
