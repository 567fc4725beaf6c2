//go:build !linux

package mailbox

import (
	"sync/atomic"
	"time"
)

// pollWaiter is the fallback async-wait implementation for platforms
// without a futex-equivalent primitive: short polling bounded by the same
// timeout contract as the Linux futex path (spec.md §9).
type pollWaiter struct{}

func newWaiter() waiter { return pollWaiter{} }

const pollInterval = 200 * time.Microsecond

func (pollWaiter) wait(addr *int32, expected int32, timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for {
		if atomic.LoadInt32(addr) != expected {
			return true
		}
		if time.Now().After(deadline) {
			return false
		}
		time.Sleep(pollInterval)
	}
}

func (pollWaiter) wake(addr *int32) {}
