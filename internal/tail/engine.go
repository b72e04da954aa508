// Package tail combines the snapshot fetcher, stream manager and log buffer
// into the engine behind the log panel.
package tail

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"go.uber.org/zap"

	"github.com/vburojevic/podtail/internal/domain"
	"github.com/vburojevic/podtail/internal/logapi"
	"github.com/vburojevic/podtail/internal/logbuffer"
	"github.com/vburojevic/podtail/internal/logging"
	"github.com/vburojevic/podtail/internal/stream"
)

// Backend is what the engine needs from the transport
type Backend interface {
	logapi.Fetcher
	logapi.StreamOpener
}

// Notification reports a follow session that stopped without being asked to.
// Sessions that fail to open are reported by ToggleFollow instead.
type Notification struct {
	Target domain.LogTarget
	State  domain.SessionState
	Err    error
	At     time.Time
}

// Options configures an Engine
type Options struct {
	Client          Backend
	SnapshotTimeout time.Duration
	Clock           clock.Clock
	Logger          *zap.Logger
	NotifyBuffer    int
}

// Engine is the log panel's model: one target, one buffer, at most one live
// follow session.
type Engine struct {
	snapshots *SnapshotFetcher
	streams   *stream.Manager
	buffer    *logbuffer.Buffer
	clock     clock.Clock
	log       *zap.Logger
	notes     chan Notification

	// ctlMu serializes control operations. Waiting on a session never
	// happens under mu, because the session's end callback takes mu.
	ctlMu sync.Mutex

	mu        sync.RWMutex
	target    domain.LogTarget
	tailLines uint
	session   *stream.Session
	following bool
	followSeq uint64
}

// New creates an Engine
func New(opts Options) (*Engine, error) {
	if opts.Client == nil {
		return nil, fmt.Errorf("tail: nil client")
	}
	if opts.Clock == nil {
		opts.Clock = clock.New()
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.NotifyBuffer <= 0 {
		opts.NotifyBuffer = 8
	}
	return &Engine{
		snapshots: NewSnapshotFetcher(opts.Client, opts.SnapshotTimeout),
		streams: stream.NewManager(opts.Client, stream.Options{
			Logger: opts.Logger,
			Clock:  opts.Clock,
		}),
		buffer:    logbuffer.New(),
		clock:     opts.Clock,
		log:       opts.Logger,
		notes:     make(chan Notification, opts.NotifyBuffer),
		tailLines: domain.DefaultTailLines,
	}, nil
}

// LoadSnapshot clears the buffer and fills it with the last tailLines lines of
// target. On failure the buffer stays empty. Callers should stop following
// before loading a snapshot of a different target.
func (e *Engine) LoadSnapshot(ctx context.Context, target domain.LogTarget, tailLines uint) error {
	if err := target.Validate(); err != nil {
		return err
	}
	req := domain.TailRequest{Target: target, TailLines: tailLines}.Normalize()

	e.ctlMu.Lock()
	e.mu.Lock()
	if e.following && e.target != target {
		e.log.Warn("snapshot requested while following another target",
			zap.Stringer("following", e.target),
			zap.Stringer("snapshot", target))
	}
	e.target = target
	e.tailLines = req.TailLines
	e.mu.Unlock()
	gen := e.buffer.Reset()
	e.ctlMu.Unlock()

	start := e.clock.Now()
	text, err := e.snapshots.Fetch(ctx, req)
	if err != nil {
		if !errors.Is(err, domain.ErrCancelled) {
			e.log.Warn("snapshot failed",
				logging.Target(target.Namespace, target.PodName),
				zap.String("code", domain.KindOf(err).Code()),
				zap.Error(err))
		}
		return err
	}
	if !e.buffer.ReplaceIf(gen, text) {
		e.log.Debug("snapshot superseded", logging.Target(target.Namespace, target.PodName))
		return fmt.Errorf("snapshot superseded: %w", domain.ErrCancelled)
	}
	e.log.Debug("snapshot loaded",
		logging.Target(target.Namespace, target.PodName),
		zap.Uint("tail_lines", req.TailLines),
		zap.Int("bytes", len(text)),
		zap.Duration("took", e.clock.Since(start)))
	return nil
}

// SwitchTarget stops any follow session, clears the buffer and selects target.
// The caller loads the new snapshot.
func (e *Engine) SwitchTarget(target domain.LogTarget) error {
	if err := target.Validate(); err != nil {
		return err
	}

	e.ctlMu.Lock()
	defer e.ctlMu.Unlock()

	e.stopFollowLocked()

	e.mu.Lock()
	prev := e.target
	e.target = target
	e.session = nil
	e.mu.Unlock()
	e.buffer.Reset()

	if prev != target {
		e.log.Debug("target switched", zap.Stringer("from", prev), zap.Stringer("to", target))
	}
	return nil
}

// ToggleFollow starts or stops following the current target. Turning follow on
// while already following is a no-op. When turning on it waits until the stream
// is established and returns the failure if it could not be opened.
func (e *Engine) ToggleFollow(ctx context.Context, on bool, tailLines uint) error {
	if !on {
		e.ctlMu.Lock()
		defer e.ctlMu.Unlock()
		e.stopFollowLocked()
		return nil
	}

	e.ctlMu.Lock()
	e.mu.Lock()
	target := e.target
	if target.IsZero() {
		e.mu.Unlock()
		e.ctlMu.Unlock()
		return domain.ErrNoTarget
	}
	if e.following {
		e.mu.Unlock()
		e.ctlMu.Unlock()
		return nil
	}
	req := domain.TailRequest{Target: target, TailLines: tailLines}.Normalize()
	e.followSeq++
	seq := e.followSeq
	e.following = true
	e.tailLines = req.TailLines
	e.mu.Unlock()

	s, err := e.streams.Start(req, e.appendPayload, func(s *stream.Session) { e.sessionEnded(seq, s) })
	if err != nil {
		e.mu.Lock()
		if e.followSeq == seq {
			e.following = false
		}
		e.mu.Unlock()
		e.ctlMu.Unlock()
		return err
	}
	e.mu.Lock()
	if e.followSeq == seq {
		e.session = s
	}
	e.mu.Unlock()
	e.ctlMu.Unlock()

	err = s.WaitReady(ctx)
	switch {
	case err == nil, errors.Is(err, domain.ErrCancelled):
		return nil
	case ctx.Err() != nil && errors.Is(err, ctx.Err()):
		// Caller gave up before the stream was established
		e.ctlMu.Lock()
		e.mu.RLock()
		current := e.followSeq == seq
		e.mu.RUnlock()
		if current {
			e.stopFollowLocked()
		}
		e.ctlMu.Unlock()
		return err
	default:
		// The stream never opened; the error is the only report of it
		e.mu.Lock()
		if e.followSeq == seq {
			e.following = false
		}
		e.mu.Unlock()
		return err
	}
}

// appendPayload is the session sink. Each event is one or more whole lines.
func (e *Engine) appendPayload(payload string) {
	if !strings.HasSuffix(payload, "\n") {
		payload += "\n"
	}
	e.buffer.Append(payload)
}

func (e *Engine) sessionEnded(seq uint64, s *stream.Session) {
	e.mu.Lock()
	if e.followSeq != seq {
		e.mu.Unlock()
		return
	}
	e.following = false
	e.mu.Unlock()

	note := Notification{
		Target: s.Target(),
		State:  s.State(),
		Err:    s.Err(),
		At:     e.clock.Now(),
	}
	select {
	case e.notes <- note:
	default:
		e.log.Debug("notification dropped", zap.Stringer("state", note.State))
	}
}

// stopFollowLocked cancels the current session. Caller holds ctlMu but not mu.
func (e *Engine) stopFollowLocked() {
	e.mu.Lock()
	e.followSeq++
	e.following = false
	s := e.session
	e.mu.Unlock()

	if s != nil {
		e.streams.Cancel(s)
	} else {
		e.streams.CancelActive()
	}
}

// GetLogText returns the current buffer text, including chunks streamed so far
func (e *Engine) GetLogText() string {
	return e.buffer.String()
}

// ReadFrom returns text appended since cursor, see logbuffer.Buffer.ReadFrom
func (e *Engine) ReadFrom(cursor logbuffer.Cursor) (string, logbuffer.Cursor) {
	return e.buffer.ReadFrom(cursor)
}

// Notifications delivers unexpected session ends. Sends never block; if the
// channel is full the notification is dropped.
func (e *Engine) Notifications() <-chan Notification {
	return e.notes
}

// Following reports whether follow is enabled
func (e *Engine) Following() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.following
}

// Target returns the selected target
func (e *Engine) Target() domain.LogTarget {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.target
}

// TailLines returns the tail count of the most recent snapshot or follow request
func (e *Engine) TailLines() uint {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.tailLines
}

// Session returns the most recent follow session, or nil
func (e *Engine) Session() *stream.Session {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.session
}

// SnapshotTimeout returns the bound applied to snapshot requests
func (e *Engine) SnapshotTimeout() time.Duration {
	return e.snapshots.Timeout()
}

// Close stops following and clears the buffer. The engine cannot follow again.
func (e *Engine) Close() {
	e.ctlMu.Lock()
	defer e.ctlMu.Unlock()

	e.mu.Lock()
	e.followSeq++
	e.following = false
	e.session = nil
	e.mu.Unlock()

	e.streams.Close()
	e.buffer.Reset()
}
