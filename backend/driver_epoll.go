//go:build linux

package backend

import (
	"errors"
	"sync"
	"syscall"
	"time"

	"golang.org/x/sys/unix"
)

// epollDriver is the readiness-based event engine (§4.E): one epoll
// instance per thread, one eventfd used purely as the cross-thread wake
// notifier, and a fd->Backend table so EpollWait's returned fds can be
// mapped back to the backend that owns them.
type epollDriver struct {
	epfd int
	wfd  int // eventfd, woken by Notify

	mu       sync.Mutex
	byFD     map[int]*Backend
	interest map[int]uint32 // currently-registered event bits per fd, composed across ArmRead/ArmWrite
	timers   map[*Backend]time.Time
}

// NewEpollDriver constructs a readiness-based Driver backed by Linux epoll.
func NewEpollDriver() (Driver, error) {
	epfd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		return nil, err
	}
	wfd, err := unix.Eventfd(0, unix.EFD_CLOEXEC|unix.EFD_NONBLOCK)
	if err != nil {
		unix.Close(epfd)
		return nil, err
	}
	d := &epollDriver{
		epfd:     epfd,
		wfd:      wfd,
		byFD:     make(map[int]*Backend),
		interest: make(map[int]uint32),
		timers:   make(map[*Backend]time.Time),
	}
	if err := unix.EpollCtl(epfd, unix.EPOLL_CTL_ADD, wfd, &unix.EpollEvent{Events: unix.EPOLLIN, Fd: int32(wfd)}); err != nil {
		d.Close()
		return nil, err
	}
	return d, nil
}

// register ORs bits into fd's currently-registered interest set and applies
// the combined set, so arming write never clobbers an already-armed read
// (or vice versa): a backend with both a pending flush and an in-flight
// response needs EPOLLIN|EPOLLOUT simultaneously.
func (d *epollDriver) register(b *Backend, bits uint32) error {
	fd, err := connFD(b)
	if err != nil {
		return err
	}
	d.mu.Lock()
	d.byFD[fd] = b
	d.interest[fd] |= bits
	combined := d.interest[fd]
	d.mu.Unlock()
	return d.applyInterest(fd, combined)
}

// clear removes bits from fd's interest set and applies what remains,
// used to stop write notifications once a flush has fully drained so a
// level-triggered, always-writable socket doesn't spin EventWritable
// forever.
func (d *epollDriver) clear(b *Backend, bits uint32) error {
	fd, err := connFD(b)
	if err != nil {
		return err
	}
	d.mu.Lock()
	d.interest[fd] &^= bits
	combined := d.interest[fd]
	d.mu.Unlock()
	return d.applyInterest(fd, combined)
}

func (d *epollDriver) applyInterest(fd int, combined uint32) error {
	ev := &unix.EpollEvent{Events: combined, Fd: int32(fd)}
	if err := unix.EpollCtl(d.epfd, unix.EPOLL_CTL_MOD, fd, ev); err != nil {
		if errors.Is(err, unix.ENOENT) {
			return unix.EpollCtl(d.epfd, unix.EPOLL_CTL_ADD, fd, ev)
		}
		return err
	}
	return nil
}

func (d *epollDriver) ArmRead(b *Backend) error  { return d.register(b, unix.EPOLLIN) }
func (d *epollDriver) ArmWrite(b *Backend) error { return d.register(b, unix.EPOLLOUT) }

// DisarmWrite stops write-readiness notifications for b without touching
// any already-armed read interest, the counterpart a full flush needs.
func (d *epollDriver) DisarmWrite(b *Backend) error { return d.clear(b, unix.EPOLLOUT) }

func (d *epollDriver) ArmTimeout(b *Backend, dur time.Duration) error {
	d.mu.Lock()
	d.timers[b] = timeNow().Add(dur)
	d.mu.Unlock()
	return nil
}

func (d *epollDriver) Disarm(b *Backend) error {
	fd, err := connFD(b)
	if err != nil {
		return nil
	}
	d.mu.Lock()
	delete(d.byFD, fd)
	delete(d.interest, fd)
	delete(d.timers, b)
	d.mu.Unlock()
	unix.EpollCtl(d.epfd, unix.EPOLL_CTL_DEL, fd, nil)
	return nil
}

func (d *epollDriver) Notify() error {
	buf := [8]byte{1, 0, 0, 0, 0, 0, 0, 0}
	_, err := unix.Write(d.wfd, buf[:])
	return err
}

func (d *epollDriver) Wait() ([]Event, error) {
	var raw [128]unix.EpollEvent
	timeout := d.nextTimerMillis()
	n, err := unix.EpollWait(d.epfd, raw[:], timeout)
	if err != nil {
		if errors.Is(err, unix.EINTR) {
			return nil, nil
		}
		return nil, err
	}

	events := make([]Event, 0, n+1)
	d.mu.Lock()
	for i := 0; i < n; i++ {
		fd := int(raw[i].Fd)
		if fd == d.wfd {
			var drain [8]byte
			unix.Read(d.wfd, drain[:])
			events = append(events, Event{Kind: EventNotify})
			continue
		}
		b, ok := d.byFD[fd]
		if !ok {
			continue
		}
		if raw[i].Events&unix.EPOLLIN != 0 {
			events = append(events, Event{Kind: EventReadable, Backend: b})
		}
		if raw[i].Events&unix.EPOLLOUT != 0 {
			events = append(events, Event{Kind: EventWritable, Backend: b})
		}
	}
	now := timeNow()
	for b, at := range d.timers {
		if !now.Before(at) {
			events = append(events, Event{Kind: EventTimeout, Backend: b})
			delete(d.timers, b)
		}
	}
	d.mu.Unlock()
	return events, nil
}

func (d *epollDriver) nextTimerMillis() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.timers) == 0 {
		return 1000
	}
	soonest := time.Duration(0)
	first := true
	now := timeNow()
	for _, at := range d.timers {
		dur := at.Sub(now)
		if first || dur < soonest {
			soonest = dur
			first = false
		}
	}
	ms := int(soonest / time.Millisecond)
	if ms < 0 {
		ms = 0
	}
	if ms > 1000 {
		ms = 1000
	}
	return ms
}

func (d *epollDriver) Close() error {
	unix.Close(d.wfd)
	return unix.Close(d.epfd)
}

// connFD extracts the raw file descriptor backing b's connection via the
// standard SyscallConn escape hatch every *net.TCPConn supports.
func connFD(b *Backend) (int, error) {
	sc, ok := b.conn.(syscall.Conn)
	if !ok {
		return 0, errNotConnected
	}
	raw, err := sc.SyscallConn()
	if err != nil {
		return 0, err
	}
	var fd int
	err = raw.Control(func(ufd uintptr) { fd = int(ufd) })
	return fd, err
}
