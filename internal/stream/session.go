package stream

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/vburojevic/podtail/internal/domain"
)

// Session is one follow stream for one target. Its state only moves forward:
// connecting, then streaming, then exactly one of cancelled, ended or failed.
type Session struct {
	id        uint64
	req       domain.TailRequest
	startedAt time.Time
	cancel    context.CancelFunc

	mu          sync.RWMutex
	state       domain.SessionState
	err         error
	established bool

	// deliverMu orders payload delivery against cancellation
	deliverMu       sync.Mutex
	cancelRequested bool

	events atomic.Int64
	bytes  atomic.Int64

	ready     chan struct{}
	readyOnce sync.Once
	done      chan struct{}
}

// Stats summarises what a session delivered
type Stats struct {
	Events int64 `json:"events"`
	Bytes  int64 `json:"bytes"`
}

func newSession(id uint64, req domain.TailRequest, cancel context.CancelFunc, now time.Time) *Session {
	return &Session{
		id:        id,
		req:       req,
		startedAt: now,
		cancel:    cancel,
		state:     domain.SessionConnecting,
		ready:     make(chan struct{}),
		done:      make(chan struct{}),
	}
}

// ID is unique per Manager
func (s *Session) ID() uint64 { return s.id }

// Target returns the log target being followed
func (s *Session) Target() domain.LogTarget { return s.req.Target }

// TailLines returns the normalised line count sent with the follow request
func (s *Session) TailLines() uint { return s.req.TailLines }

// StartedAt returns when the session was created
func (s *Session) StartedAt() time.Time { return s.startedAt }

// State returns the current lifecycle state
func (s *Session) State() domain.SessionState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Err returns the failure cause once the session is in the failed state
func (s *Session) Err() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.err
}

// Stats returns delivery counters
func (s *Session) Stats() Stats {
	return Stats{Events: s.events.Load(), Bytes: s.bytes.Load()}
}

// Ready is closed once the stream is established or the session has ended
func (s *Session) Ready() <-chan struct{} { return s.ready }

// Done is closed once the session reached a terminal state and its end
// callback returned.
func (s *Session) Done() <-chan struct{} { return s.done }

// Cancel stops the session and waits until it has fully terminated. After it
// returns no further payload is delivered. Safe to call repeatedly and after
// the session has ended. It must not be called from the session's own sink or
// end callback.
func (s *Session) Cancel() {
	s.deliverMu.Lock()
	s.cancelRequested = true
	s.deliverMu.Unlock()

	s.cancel()
	<-s.done
}

// WaitReady blocks until the stream is established. It returns the failure
// cause for a session that failed to open, and domain.ErrCancelled for one
// cancelled before it was established.
func (s *Session) WaitReady(ctx context.Context) error {
	select {
	case <-s.ready:
	case <-ctx.Done():
		return ctx.Err()
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.established {
		return nil
	}
	switch s.state {
	case domain.SessionFailed:
		return s.err
	case domain.SessionCancelled:
		return domain.ErrCancelled
	}
	return nil
}

func (s *Session) deliver(ctx context.Context, payload string, sink Sink) bool {
	s.deliverMu.Lock()
	defer s.deliverMu.Unlock()

	if s.cancelRequested || ctx.Err() != nil {
		return false
	}
	s.events.Add(1)
	s.bytes.Add(int64(len(payload)))
	sink(payload)
	return true
}

func (s *Session) wasCancelled() bool {
	s.deliverMu.Lock()
	defer s.deliverMu.Unlock()
	return s.cancelRequested
}

func (s *Session) wasEstablished() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.established
}

func (s *Session) setStreaming() {
	s.mu.Lock()
	if s.state == domain.SessionConnecting {
		s.state = domain.SessionStreaming
		s.established = true
	}
	s.mu.Unlock()
	s.markReady()
}

func (s *Session) finish(state domain.SessionState, err error) {
	s.mu.Lock()
	if !s.state.Terminal() {
		s.state = state
		if state == domain.SessionFailed {
			s.err = err
		}
	}
	s.mu.Unlock()
	s.markReady()
}

func (s *Session) markReady() {
	s.readyOnce.Do(func() { close(s.ready) })
}
