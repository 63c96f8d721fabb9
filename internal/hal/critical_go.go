//go:build !tinygo

package hal

// CriticalState is a placeholder for interrupt state under hosted Go,
// where there are no real interrupts to mask.
type CriticalState uintptr

// EnterCritical is a no-op on hosted Go.
func EnterCritical() CriticalState { return 0 }

// ExitCritical is a no-op on hosted Go.
func ExitCritical(CriticalState) {}
