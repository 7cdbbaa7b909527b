package pipeline

import "sync/atomic"

// RunLock provides non-blocking lock semantics using atomic operations.
// Only one preparation run may touch a dataset file at a time; callers
// that fail to acquire report busy instead of queueing.
type RunLock struct {
	state atomic.Int32 // 0 = unlocked, 1 = locked
}

// TryAcquire attempts to acquire the lock without blocking.
// Returns true if the lock was successfully acquired, false otherwise.
func (l *RunLock) TryAcquire() bool {
	return l.state.CompareAndSwap(0, 1)
}

// Release releases the lock.
// Must only be called by the goroutine that successfully acquired the lock.
func (l *RunLock) Release() {
	l.state.Store(0)
}
