//go:build linux

package mailbox

import (
	"time"
	"unsafe"

	"golang.org/x/sys/unix"
)

// futexWaiter arms the Linux futex async-wait primitive on published_seq,
// per spec.md §9 ("where the platform provides an async atomic wait
// primitive, use it with a timeout equal to one tick").
type futexWaiter struct{}

func newWaiter() waiter { return futexWaiter{} }

func (futexWaiter) wait(addr *int32, expected int32, timeout time.Duration) bool {
	ts := unix.NsecToTimespec(timeout.Nanoseconds())
	for {
		_, _, errno := unix.Syscall6(
			unix.SYS_FUTEX,
			uintptr(unsafe.Pointer(addr)),
			uintptr(linuxFutexWait),
			uintptr(uint32(expected)),
			uintptr(unsafe.Pointer(&ts)),
			0, 0,
		)
		switch errno {
		case 0:
			// Woken; caller re-checks the value itself.
			return true
		case unix.EAGAIN:
			// Value already differs from expected.
			return true
		case unix.ETIMEDOUT:
			return false
		case unix.EINTR:
			continue
		default:
			return false
		}
	}
}

func (futexWaiter) wake(addr *int32) {
	unix.Syscall6(
		unix.SYS_FUTEX,
		uintptr(unsafe.Pointer(addr)),
		uintptr(linuxFutexWake),
		uintptr(int32(1<<30)), // wake all waiters
		0, 0, 0,
	)
}

const (
	linuxFutexWait = 0
	linuxFutexWake = 1
)
