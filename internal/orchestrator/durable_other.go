//go:build !linux

package orchestrator

// syncDurable is a no-op on platforms without a global sync(2) call.
func syncDurable() {}
