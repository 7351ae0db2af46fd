package signal

import (
	"sync"
	"time"

	"github.com/xiaonanln/go-xnsyncutil/xnsyncutil"
	"github.com/xiaonanln/gozone/engine/gzutils"
)

// Conn is a subscription handle to a Signal of any argument type, so that
// handles of differently typed signals can be kept in one collection
type Conn interface {
	Disconnect()
}

// Signal is a typed publish/subscribe event.
//
// Fire dispatches to every connected callback on its own goroutine, so a slow
// or panicking callback never delays the firer nor its siblings. Wait blocks
// the calling goroutine until the signal fires, the timeout elapses or the
// signal is destroyed.
type Signal[T any] struct {
	mu        sync.Mutex
	destroyed xnsyncutil.AtomicBool
	conns     map[*Connection[T]]func(T)
	waiters   map[chan T]struct{}
}

// Connection is the handle returned by Signal.Connect. It keeps a non-owning
// back-reference to its Signal for disconnection.
type Connection[T any] struct {
	owner *Signal[T]
}

// New creates a live Signal
func New[T any]() *Signal[T] {
	return &Signal[T]{
		conns:   map[*Connection[T]]func(T){},
		waiters: map[chan T]struct{}{},
	}
}

// Connect registers the callback and returns its Connection.
// Returns nil if the signal is already destroyed or the callback is nil.
func (s *Signal[T]) Connect(callback func(T)) *Connection[T] {
	if callback == nil {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.destroyed.Load() {
		return nil
	}

	conn := &Connection[T]{owner: s}
	s.conns[conn] = callback
	return conn
}

// Fire dispatches arg to every connected callback and resumes every pending
// waiter. No-op if the signal is destroyed.
//
// Callbacks run asynchronously in unspecified relative order; all callbacks
// of a single Fire receive the same argument.
func (s *Signal[T]) Fire(arg T) {
	s.mu.Lock()
	if s.destroyed.Load() {
		s.mu.Unlock()
		return
	}

	conns := make([]*Connection[T], 0, len(s.conns))
	for conn := range s.conns {
		conns = append(conns, conn)
	}
	var resumed []chan T
	for ch := range s.waiters {
		resumed = append(resumed, ch)
		delete(s.waiters, ch) // each waiter is resumed at most once
	}
	s.mu.Unlock()

	for _, ch := range resumed {
		ch <- arg // buffered, never blocks
	}
	for _, conn := range conns {
		conn := conn
		go gzutils.RunPanicless(func() {
			// re-check on delivery: connections disconnected since Fire
			// must not receive the callback
			s.mu.Lock()
			cb := s.conns[conn]
			s.mu.Unlock()
			if cb != nil {
				cb(arg)
			}
		})
	}
}

// Wait blocks until the signal fires, returning the fired argument and true.
//
// If timeout > 0 and no fire happens within it, Wait returns the zero value
// and false. Returns immediately with (zero, false) if the signal is
// destroyed, before or while waiting. Each Wait is resumed exactly once even
// when a fire, the timeout and Destroy race.
func (s *Signal[T]) Wait(timeout time.Duration) (T, bool) {
	var zero T

	s.mu.Lock()
	if s.destroyed.Load() {
		s.mu.Unlock()
		return zero, false
	}
	ch := make(chan T, 1)
	s.waiters[ch] = struct{}{}
	s.mu.Unlock()

	if timeout <= 0 {
		arg, ok := <-ch // closed by Destroy => (zero, false)
		return arg, ok
	}

	t := time.NewTimer(timeout)
	defer t.Stop()

	select {
	case arg, ok := <-ch:
		return arg, ok
	case <-t.C:
		s.mu.Lock()
		delete(s.waiters, ch)
		s.mu.Unlock()
		// a fire may have resumed us in the same instant; it wins
		select {
		case arg, ok := <-ch:
			return arg, ok
		default:
			return zero, false
		}
	}
}

// Destroy deactivates the signal: all pending waiters are resumed with the
// zero value, all connections are dropped, and subsequent Connect/Fire/Wait
// calls are no-ops. Destroy is idempotent.
func (s *Signal[T]) Destroy() {
	s.mu.Lock()
	if s.destroyed.Load() {
		s.mu.Unlock()
		return
	}
	s.destroyed.Store(true)

	var cancelled []chan T
	for ch := range s.waiters {
		cancelled = append(cancelled, ch)
		delete(s.waiters, ch)
	}
	s.conns = map[*Connection[T]]func(T){}
	s.mu.Unlock()

	for _, ch := range cancelled {
		close(ch)
	}
}

// IsDestroyed returns if the signal is destroyed
func (s *Signal[T]) IsDestroyed() bool {
	return s.destroyed.Load()
}

// Disconnect removes the connection from its owning signal. Disconnect is
// idempotent and safe after the signal is destroyed; a disconnected
// connection never receives further callbacks.
func (c *Connection[T]) Disconnect() {
	if c == nil || c.owner == nil {
		return
	}

	s := c.owner
	s.mu.Lock()
	delete(s.conns, c)
	s.mu.Unlock()
}
