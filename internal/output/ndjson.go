package output

import (
	"encoding/json"
	"io"
	"time"

	"github.com/vburojevic/podtail/internal/domain"
)

// NDJSONWriter writes podtail events as NDJSON
type NDJSONWriter struct {
	w       io.Writer
	encoder *json.Encoder
}

// NewNDJSONWriter creates a new NDJSON writer
func NewNDJSONWriter(w io.Writer) *NDJSONWriter {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false) // log lines are shown verbatim
	return &NDJSONWriter{
		w:       w,
		encoder: enc,
	}
}

// Source says where a log line came from
type Source string

const (
	SourceSnapshot Source = "snapshot"
	SourceStream   Source = "stream"
)

// LineOutput is one log line
type LineOutput struct {
	Type          string `json:"type"` // Always "log"
	SchemaVersion int    `json:"schemaVersion"`
	Timestamp     string `json:"timestamp"` // when podtail received the line
	Namespace     string `json:"namespace"`
	Pod           string `json:"pod"`
	Source        Source `json:"source"`
	Session       uint64 `json:"session,omitempty"`
	Line          string `json:"line"`
}

// SnapshotOutput summarises a loaded snapshot
type SnapshotOutput struct {
	Type          string `json:"type"` // Always "snapshot"
	SchemaVersion int    `json:"schemaVersion"`
	Namespace     string `json:"namespace"`
	Pod           string `json:"pod"`
	TailLines     uint   `json:"tail_lines"`
	Lines         int    `json:"lines"`
	Bytes         int    `json:"bytes"`
}

// ReadyOutput signals that the follow stream is established
type ReadyOutput struct {
	Type          string `json:"type"` // Always "ready"
	SchemaVersion int    `json:"schemaVersion"`
	Timestamp     string `json:"timestamp"`
	Namespace     string `json:"namespace"`
	Pod           string `json:"pod"`
	TailLines     uint   `json:"tail_lines"`
	Session       uint64 `json:"session"`
}

// SessionEndOutput reports how a follow session finished
type SessionEndOutput struct {
	Type          string `json:"type"` // Always "session_end"
	SchemaVersion int    `json:"schemaVersion"`
	Timestamp     string `json:"timestamp"`
	Namespace     string `json:"namespace"`
	Pod           string `json:"pod"`
	Session       uint64 `json:"session"`
	StartedAt     string `json:"started_at"`
	State         string `json:"state"`
	Events        int64  `json:"events"`
	Bytes         int64  `json:"bytes"`
	Error         string `json:"error,omitempty"`
}

// ExportOutput reports a written export artifact
type ExportOutput struct {
	Type          string `json:"type"` // Always "export"
	SchemaVersion int    `json:"schemaVersion"`
	Path          string `json:"path"`
	Filename      string `json:"filename"`
	Bytes         int    `json:"bytes"`
}

// ErrorOutput represents a structured error
type ErrorOutput struct {
	Type          string `json:"type"` // Always "error"
	SchemaVersion int    `json:"schemaVersion"`
	Code          string `json:"code"`
	Message       string `json:"message"`
	Hint          string `json:"hint,omitempty"`
}

// InfoOutput represents an informational message
type InfoOutput struct {
	Type          string `json:"type"` // Always "info"
	SchemaVersion int    `json:"schemaVersion"`
	Message       string `json:"message"`
	Namespace     string `json:"namespace,omitempty"`
	Pod           string `json:"pod,omitempty"`
}

// WarningOutput represents a warning message
type WarningOutput struct {
	Type          string `json:"type"` // Always "warning"
	SchemaVersion int    `json:"schemaVersion"`
	Message       string `json:"message"`
}

// MetadataOutput describes the running binary
type MetadataOutput struct {
	Type          string `json:"type"` // Always "metadata"
	SchemaVersion int    `json:"schemaVersion"`
	Version       string `json:"version"`
	Commit        string `json:"commit"`
	BuildDate     string `json:"build_date,omitempty"`
}

// WriteLine outputs a single log line
func (w *NDJSONWriter) WriteLine(ts time.Time, target domain.LogTarget, src Source, session uint64, line string) error {
	return w.encoder.Encode(&LineOutput{
		Type:          "log",
		SchemaVersion: SchemaVersion,
		Timestamp:     ts.UTC().Format(time.RFC3339Nano),
		Namespace:     target.Namespace,
		Pod:           target.PodName,
		Source:        src,
		Session:       session,
		Line:          line,
	})
}

// WriteSnapshot outputs a snapshot summary
func (w *NDJSONWriter) WriteSnapshot(target domain.LogTarget, tailLines uint, lines, bytes int) error {
	return w.encoder.Encode(&SnapshotOutput{
		Type:          "snapshot",
		SchemaVersion: SchemaVersion,
		Namespace:     target.Namespace,
		Pod:           target.PodName,
		TailLines:     tailLines,
		Lines:         lines,
		Bytes:         bytes,
	})
}

// WriteReady outputs a ready signal
func (w *NDJSONWriter) WriteReady(ts time.Time, target domain.LogTarget, tailLines uint, session uint64) error {
	return w.encoder.Encode(&ReadyOutput{
		Type:          "ready",
		SchemaVersion: SchemaVersion,
		Timestamp:     ts.UTC().Format(time.RFC3339Nano),
		Namespace:     target.Namespace,
		Pod:           target.PodName,
		TailLines:     tailLines,
		Session:       session,
	})
}

// WriteSessionEnd outputs a session end event
func (w *NDJSONWriter) WriteSessionEnd(end *SessionEndOutput) error {
	end.Type = "session_end"
	end.SchemaVersion = SchemaVersion
	return w.encoder.Encode(end)
}

// WriteExport outputs an export event
func (w *NDJSONWriter) WriteExport(path, filename string, bytes int) error {
	return w.encoder.Encode(&ExportOutput{
		Type:          "export",
		SchemaVersion: SchemaVersion,
		Path:          path,
		Filename:      filename,
		Bytes:         bytes,
	})
}

// WriteError outputs an error
func (w *NDJSONWriter) WriteError(code, message string, hint ...string) error {
	out := &ErrorOutput{
		Type:          "error",
		SchemaVersion: SchemaVersion,
		Code:          code,
		Message:       message,
	}
	if len(hint) > 0 {
		out.Hint = hint[0]
	}
	return w.encoder.Encode(out)
}

// WriteInfo outputs an informational message
func (w *NDJSONWriter) WriteInfo(message string, target domain.LogTarget) error {
	return w.encoder.Encode(&InfoOutput{
		Type:          "info",
		SchemaVersion: SchemaVersion,
		Message:       message,
		Namespace:     target.Namespace,
		Pod:           target.PodName,
	})
}

// WriteWarning outputs a warning message
func (w *NDJSONWriter) WriteWarning(message string) error {
	return w.encoder.Encode(&WarningOutput{
		Type:          "warning",
		SchemaVersion: SchemaVersion,
		Message:       message,
	})
}

// WriteMetadata outputs runtime metadata
func (w *NDJSONWriter) WriteMetadata(version, commit, buildDate string) error {
	return w.encoder.Encode(&MetadataOutput{
		Type:          "metadata",
		SchemaVersion: SchemaVersion,
		Version:       version,
		Commit:        commit,
		BuildDate:     buildDate,
	})
}
