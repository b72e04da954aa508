package cli

import (
	"context"
	"errors"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/vburojevic/podtail/internal/domain"
	"github.com/vburojevic/podtail/internal/logbuffer"
	"github.com/vburojevic/podtail/internal/output"
	"github.com/vburojevic/podtail/internal/stream"
	"github.com/vburojevic/podtail/internal/tail"
)

// TailCmd prints the recent log of a pod and optionally follows it
type TailCmd struct {
	TargetFlags `embed:""`

	Follow bool `short:"F" help:"Keep streaming new lines until interrupted"`
}

// errStreamStopped ends the follow group when the server stops the stream
var errStreamStopped = errors.New("stream stopped")

// Run executes the tail command
func (c *TailCmd) Run(globals *Globals) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	return c.run(ctx, globals)
}

func (c *TailCmd) run(ctx context.Context, globals *Globals) error {
	target := c.Target()
	if err := target.Validate(); err != nil {
		return reportError(globals, &CLIError{Code: "INVALID_TARGET", Message: err.Error(), Hint: hintFor(domain.ErrNoTarget), Err: err})
	}

	engine, err := newEngine(globals)
	if err != nil {
		return reportError(globals, err)
	}
	defer engine.Close()

	var emitter *output.Emitter
	if globals.Format == "ndjson" {
		emitter = output.NewEmitter(globals.Stdout)
	}
	printer := newLinePrinter(globals, emitter, target)

	globals.Debug("loading snapshot of %s (tail %d)", target, c.Tail)
	if err := engine.LoadSnapshot(ctx, target, c.Tail); err != nil {
		// A pod that has not logged yet is fine to follow
		if !c.Follow || !errors.Is(err, domain.ErrEmptyResponse) {
			return reportError(globals, err)
		}
		emitWarning(globals, emitter, "no log output yet for "+target.String())
	}
	text, cursor := engine.ReadFrom(logbuffer.Cursor{})
	printer.write(text, output.SourceSnapshot, 0)
	printer.flush(output.SourceSnapshot, 0)
	if emitter != nil && !globals.Quiet {
		_ = emitter.Snapshot(target, engine.TailLines(), printer.lines, len(text))
	}

	if !c.Follow {
		return nil
	}
	return c.follow(ctx, globals, engine, emitter, printer, cursor)
}

func (c *TailCmd) follow(ctx context.Context, globals *Globals, engine *tail.Engine, emitter *output.Emitter, printer *linePrinter, cursor logbuffer.Cursor) error {
	target := c.Target()
	if err := engine.ToggleFollow(ctx, true, c.Tail); err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return reportError(globals, err)
	}
	session := engine.Session()
	if session == nil || ctx.Err() != nil {
		return nil
	}
	if emitter != nil && !globals.Quiet {
		_ = emitter.Ready(globals.clock().Now(), target, session.TailLines(), session.ID())
	} else {
		emitInfo(globals, nil, "following", target)
	}

	poll, err := globals.Config.PollIntervalDuration()
	if err != nil {
		return reportError(globals, err)
	}

	var note tail.Notification
	group, gctx := errgroup.WithContext(ctx)

	group.Go(func() error {
		ticker := globals.clock().Ticker(poll)
		defer ticker.Stop()
		for {
			select {
			case <-gctx.Done():
				return nil
			case <-ticker.C:
				var text string
				text, cursor = engine.ReadFrom(cursor)
				printer.write(text, output.SourceStream, session.ID())
			}
		}
	})

	group.Go(func() error {
		select {
		case <-gctx.Done():
			return nil
		case note = <-engine.Notifications():
			return errStreamStopped
		}
	})

	if err := group.Wait(); err != nil && !errors.Is(err, errStreamStopped) {
		return reportError(globals, err)
	}

	// Stop the session before the final drain so nothing arrives after it
	_ = engine.ToggleFollow(context.Background(), false, 0)
	text, _ := engine.ReadFrom(cursor)
	printer.write(text, output.SourceStream, session.ID())
	printer.flush(output.SourceStream, session.ID())

	end := sessionEnd(globals.clock().Now(), session, note)
	if !globals.Quiet {
		if emitter != nil {
			_ = emitter.SessionEnd(end)
		} else {
			_ = newTextWriter(globals.Stderr).WriteSessionEnd(end)
		}
	}
	if note.State == domain.SessionFailed {
		ce := classify(note.Err)
		if emitter != nil {
			_ = emitter.Error(ce.Code, ce.Message, ce.Hint)
		}
		return ce
	}
	return nil
}

func sessionEnd(now time.Time, s *stream.Session, note tail.Notification) *output.SessionEndOutput {
	state := s.State()
	if note.State.Terminal() {
		state = note.State
	}
	stats := s.Stats()
	end := &output.SessionEndOutput{
		Timestamp: now.UTC().Format(time.RFC3339Nano),
		Namespace: s.Target().Namespace,
		Pod:       s.Target().PodName,
		Session:   s.ID(),
		StartedAt: s.StartedAt().UTC().Format(time.RFC3339Nano),
		State:     state.String(),
		Events:    stats.Events,
		Bytes:     stats.Bytes,
	}
	if note.Err != nil {
		end.Error = note.Err.Error()
	}
	return end
}

// linePrinter turns buffer text into whole output lines
type linePrinter struct {
	globals *Globals
	emitter *output.Emitter
	text    *output.TextWriter
	target  domain.LogTarget
	pending string
	lines   int
}

func newLinePrinter(globals *Globals, emitter *output.Emitter, target domain.LogTarget) *linePrinter {
	return &linePrinter{
		globals: globals,
		emitter: emitter,
		text:    newTextWriter(globals.Stdout),
		target:  target,
	}
}

// write prints every complete line in text and keeps the trailing fragment
func (p *linePrinter) write(text string, src output.Source, session uint64) {
	if text == "" {
		return
	}
	text = p.pending + text
	idx := strings.LastIndexByte(text, '\n')
	if idx < 0 {
		p.pending = text
		return
	}
	p.pending = text[idx+1:]
	for _, line := range strings.Split(text[:idx], "\n") {
		p.emit(line, src, session)
	}
}

// flush prints a held fragment, if any
func (p *linePrinter) flush(src output.Source, session uint64) {
	if p.pending == "" {
		return
	}
	line := p.pending
	p.pending = ""
	p.emit(line, src, session)
}

func (p *linePrinter) emit(line string, src output.Source, session uint64) {
	p.lines++
	if p.emitter != nil {
		_ = p.emitter.Line(p.globals.clock().Now(), p.target, src, session, line)
		return
	}
	_ = p.text.WriteLine(line)
}
