// Package stream owns follow sessions: it opens the event stream, decodes it
// into payloads, and guarantees that at most one session is live at a time.
package stream

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/benbjohnson/clock"
	"go.uber.org/zap"

	"github.com/vburojevic/podtail/internal/domain"
	"github.com/vburojevic/podtail/internal/logging"
	"github.com/vburojevic/podtail/internal/sse"
)

const defaultReadSize = 32 * 1024

// Opener opens the raw event stream for a request
type Opener interface {
	OpenStream(ctx context.Context, req domain.TailRequest) (io.ReadCloser, error)
}

// Sink receives each decoded payload in arrival order
type Sink func(payload string)

// EndFunc is called once when an established session ends or fails on its
// own. It is not called for cancelled sessions, nor for sessions that failed
// to open; WaitReady reports those.
type EndFunc func(s *Session)

// ErrClosed is returned by Start after Close
var ErrClosed = errors.New("stream manager closed")

// Options configures a Manager
type Options struct {
	Logger   *zap.Logger
	Clock    clock.Clock
	ReadSize int
}

// Manager starts and cancels follow sessions
type Manager struct {
	opener   Opener
	log      *zap.Logger
	clock    clock.Clock
	readSize int

	// ctl serializes Start, Cancel and Close so that waiting for a session to
	// terminate never happens under mu.
	ctl sync.Mutex

	mu     sync.Mutex
	active *Session
	nextID uint64
	closed bool

	wg sync.WaitGroup
}

// NewManager creates a Manager that opens streams through opener
func NewManager(opener Opener, opts Options) *Manager {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Clock == nil {
		opts.Clock = clock.New()
	}
	if opts.ReadSize <= 0 {
		opts.ReadSize = defaultReadSize
	}
	return &Manager{
		opener:   opener,
		log:      opts.Logger,
		clock:    opts.Clock,
		readSize: opts.ReadSize,
	}
}

// Start cancels any live session, waits for it to terminate, then begins a new
// session for req. The new session connects in the background; use
// Session.WaitReady to block until it is established.
func (m *Manager) Start(req domain.TailRequest, sink Sink, onEnd EndFunc) (*Session, error) {
	if sink == nil {
		return nil, fmt.Errorf("stream: nil sink")
	}
	req = req.Normalize()
	if err := req.Target.Validate(); err != nil {
		return nil, err
	}

	m.ctl.Lock()
	defer m.ctl.Unlock()

	if prev := m.Active(); prev != nil {
		m.log.Debug("replacing live session",
			zap.Uint64("session", prev.ID()),
			logging.Target(prev.Target().Namespace, prev.Target().PodName))
		prev.Cancel()
	}

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil, ErrClosed
	}
	m.nextID++
	// Sessions outlive the caller's request scope and stop only via Cancel.
	ctx, cancel := context.WithCancel(context.Background())
	s := newSession(m.nextID, req, cancel, m.clock.Now())
	m.active = s
	m.wg.Add(1)
	m.mu.Unlock()

	m.log.Info("stream starting",
		zap.Uint64("session", s.ID()),
		logging.Target(req.Target.Namespace, req.Target.PodName),
		zap.Uint("tail_lines", req.TailLines))

	go m.run(ctx, s, sink, onEnd)
	return s, nil
}

// Cancel stops s and waits for it. Cancelling an already terminated session is
// a no-op.
func (m *Manager) Cancel(s *Session) {
	if s == nil {
		return
	}
	m.ctl.Lock()
	defer m.ctl.Unlock()
	s.Cancel()
}

// CancelActive stops the live session, if any, and returns it
func (m *Manager) CancelActive() *Session {
	m.ctl.Lock()
	defer m.ctl.Unlock()

	s := m.Active()
	if s != nil {
		s.Cancel()
	}
	return s
}

// Active returns the live session, or nil
func (m *Manager) Active() *Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.active
}

// IsActive reports whether s is the live session
func (m *Manager) IsActive(s *Session) bool {
	if s == nil {
		return false
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.active == s && s.State().Live()
}

// Close cancels the live session and refuses new ones. It returns once every
// session goroutine has exited.
func (m *Manager) Close() {
	m.ctl.Lock()
	defer m.ctl.Unlock()

	m.mu.Lock()
	m.closed = true
	s := m.active
	m.mu.Unlock()

	if s != nil {
		s.Cancel()
	}
	m.wg.Wait()
}

func (m *Manager) run(ctx context.Context, s *Session, sink Sink, onEnd EndFunc) {
	defer m.wg.Done()
	defer close(s.done)

	state, err := m.consume(ctx, s, sink)
	if s.wasCancelled() {
		state, err = domain.SessionCancelled, nil
	}
	s.finish(state, err)
	m.release(s)

	fields := []zap.Field{
		zap.Uint64("session", s.ID()),
		logging.Target(s.Target().Namespace, s.Target().PodName),
		zap.Stringer("state", state),
		zap.Int64("events", s.events.Load()),
		zap.Duration("duration", m.clock.Since(s.StartedAt())),
	}
	switch {
	case err != nil:
		m.log.Warn("stream failed", append(fields, zap.Error(err))...)
	case state == domain.SessionCancelled:
		m.log.Debug("stream cancelled", fields...)
	default:
		m.log.Info("stream ended by server", fields...)
	}

	if state != domain.SessionCancelled && s.wasEstablished() && onEnd != nil {
		onEnd(s)
	}
}

func (m *Manager) consume(ctx context.Context, s *Session, sink Sink) (domain.SessionState, error) {
	body, err := m.opener.OpenStream(ctx, s.req)
	if err != nil {
		if ctx.Err() != nil || errors.Is(err, domain.ErrCancelled) {
			return domain.SessionCancelled, nil
		}
		return domain.SessionFailed, err
	}
	// A blocked Read only returns once the body is closed
	stop := context.AfterFunc(ctx, func() { _ = body.Close() })
	defer func() {
		stop()
		_ = body.Close()
	}()

	s.setStreaming()

	parser := sse.NewParser()
	buf := make([]byte, m.readSize)
	for {
		n, readErr := body.Read(buf)
		if n > 0 {
			for _, payload := range parser.Feed(buf[:n]) {
				if !s.deliver(ctx, payload, sink) {
					return domain.SessionCancelled, nil
				}
			}
		}
		if readErr == nil {
			continue
		}
		if ctx.Err() != nil {
			return domain.SessionCancelled, nil
		}
		if errors.Is(readErr, io.EOF) {
			if rest := parser.Residual(); len(rest) > 0 {
				m.log.Debug("discarding incomplete event", zap.Int("bytes", len(rest)))
			}
			return domain.SessionEnded, nil
		}
		return domain.SessionFailed, &domain.Error{Kind: domain.KindStreamFailure, Op: "stream", Err: readErr}
	}
}

func (m *Manager) release(s *Session) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.active == s {
		m.active = nil
	}
}
