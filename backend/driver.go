package backend

import "time"

// EventKind is what a driver reports for one backend on one pass of the
// event loop.
type EventKind int

const (
	EventReadable EventKind = iota
	EventWritable
	EventTimeout
	EventNotify // the cross-thread wake notifier fired; no backend attached
)

// Event is one occurrence reported by a Driver.
type Event struct {
	Kind    EventKind
	Backend *Backend
}

// Driver is the contract both the readiness-based (epoll) and
// completion-based (io_uring) event engines implement, so Thread.Run can
// drive either without caring which. ArmRead/ArmWrite register interest;
// ArmTimeout schedules a one-shot wake after d; Wait blocks until at least
// one Event is ready or the notifier fires, matching the source's two
// interchangeable backends for the same mainloop contract.
type Driver interface {
	// ArmRead registers (or re-registers) read interest for b's socket.
	ArmRead(b *Backend) error
	// ArmWrite registers (or re-registers) write interest for b's socket.
	ArmWrite(b *Backend) error
	// DisarmWrite stops write-readiness notifications for b without
	// disturbing any read interest already registered, so a fully-drained
	// flush doesn't spin on a perpetually-writable socket.
	DisarmWrite(b *Backend) error
	// ArmTimeout schedules a one-shot EventTimeout for b after d elapses.
	ArmTimeout(b *Backend, d time.Duration) error
	// Disarm removes all interest registered for b, called once before a
	// backend's socket is closed during reset.
	Disarm(b *Backend) error
	// Notify is what other goroutines call to wake this driver's Wait
	// call when they push work onto the inbound list.
	Notify() error
	// Wait blocks until the next batch of events is ready, flushing any
	// queued submissions first (a no-op for the readiness driver, a single
	// batched submit for the completion driver).
	Wait() ([]Event, error)
	// Close releases the driver's underlying resources (epoll fd / ring).
	Close() error
}
