package output

import (
	"io"
	"time"

	"github.com/vburojevic/podtail/internal/domain"
)

// Emitter wraps NDJSONWriter with helpers that reuse one encoder.
type Emitter struct {
	w *NDJSONWriter
}

func NewEmitter(w io.Writer) *Emitter {
	return &Emitter{w: NewNDJSONWriter(w)}
}

func (e *Emitter) Line(ts time.Time, t domain.LogTarget, src Source, session uint64, line string) error {
	return e.w.WriteLine(ts, t, src, session, line)
}
func (e *Emitter) Snapshot(t domain.LogTarget, tailLines uint, lines, bytes int) error {
	return e.w.WriteSnapshot(t, tailLines, lines, bytes)
}
func (e *Emitter) Ready(ts time.Time, t domain.LogTarget, tailLines uint, session uint64) error {
	return e.w.WriteReady(ts, t, tailLines, session)
}
func (e *Emitter) SessionEnd(end *SessionEndOutput) error { return e.w.WriteSessionEnd(end) }
func (e *Emitter) Export(path, filename string, bytes int) error {
	return e.w.WriteExport(path, filename, bytes)
}
func (e *Emitter) Error(code, msg string, hint ...string) error { return e.w.WriteError(code, msg, hint...) }
func (e *Emitter) Info(msg string, t domain.LogTarget) error    { return e.w.WriteInfo(msg, t) }
func (e *Emitter) Warning(msg string) error                      { return e.w.WriteWarning(msg) }
func (e *Emitter) Metadata(version, commit, buildDate string) error {
	return e.w.WriteMetadata(version, commit, buildDate)
}
