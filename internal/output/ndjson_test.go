package output

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vburojevic/podtail/internal/domain"
)

var web1 = domain.LogTarget{Namespace: "default", PodName: "web-1"}

func decodeAll(t *testing.T, buf *bytes.Buffer) []map[string]interface{} {
	t.Helper()

	dec := json.NewDecoder(bytes.NewReader(buf.Bytes()))
	var out []map[string]interface{}
	for {
		var m map[string]interface{}
		err := dec.Decode(&m)
		if err == nil {
			out = append(out, m)
			continue
		}
		if errors.Is(err, io.EOF) {
			break
		}
		require.NoError(t, err)
	}
	return out
}

func TestNDJSONWriter_WriteLine(t *testing.T) {
	t.Run("writes line with target and source", func(t *testing.T) {
		var buf bytes.Buffer
		w := NewNDJSONWriter(&buf)

		ts := time.Date(2024, 1, 15, 10, 30, 45, 123000000, time.FixedZone("X", 3600))
		require.NoError(t, w.WriteLine(ts, web1, SourceStream, 3, "GET /health <200>"))

		var out LineOutput
		require.NoError(t, json.Unmarshal(buf.Bytes(), &out))
		assert.Equal(t, "log", out.Type)
		assert.Equal(t, SchemaVersion, out.SchemaVersion)
		assert.Equal(t, "2024-01-15T09:30:45.123Z", out.Timestamp)
		assert.Equal(t, "default", out.Namespace)
		assert.Equal(t, "web-1", out.Pod)
		assert.Equal(t, SourceStream, out.Source)
		assert.Equal(t, uint64(3), out.Session)
		assert.Equal(t, "GET /health <200>", out.Line)
		assert.Contains(t, buf.String(), "<200>", "html is not escaped")
	})

	t.Run("snapshot lines omit session", func(t *testing.T) {
		var buf bytes.Buffer
		w := NewNDJSONWriter(&buf)
		require.NoError(t, w.WriteLine(time.Now(), web1, SourceSnapshot, 0, "x"))
		assert.NotContains(t, buf.String(), `"session"`)
	})
}

func TestNDJSONWriter_WriteError(t *testing.T) {
	var buf bytes.Buffer
	w := NewNDJSONWriter(&buf)

	require.NoError(t, w.WriteError("AUTH_FAILED", "snapshot: authentication failed (status 401)", "set PODTAIL_TOKEN"))

	var out ErrorOutput
	require.NoError(t, json.Unmarshal(buf.Bytes(), &out))
	assert.Equal(t, "error", out.Type)
	assert.Equal(t, "AUTH_FAILED", out.Code)
	assert.Equal(t, "set PODTAIL_TOKEN", out.Hint)

	buf.Reset()
	require.NoError(t, w.WriteError("NOT_FOUND", "gone"))
	assert.NotContains(t, buf.String(), `"hint"`)
}

func TestNDJSONContract_AllTypesHaveSchemaVersion(t *testing.T) {
	now := time.Date(2025, 12, 11, 10, 0, 0, 0, time.UTC)
	buf := &bytes.Buffer{}
	e := NewEmitter(buf)

	require.NoError(t, e.Line(now, web1, SourceSnapshot, 0, "hello"))
	require.NoError(t, e.Snapshot(web1, 100, 1, 6))
	require.NoError(t, e.Ready(now, web1, 100, 1))
	require.NoError(t, e.SessionEnd(&SessionEndOutput{
		Timestamp: now.Format(time.RFC3339Nano),
		Namespace: "default",
		Pod:       "web-1",
		Session:   1,
		StartedAt: now.Add(-time.Minute).Format(time.RFC3339Nano),
		State:     "ended",
		Events:    4,
	}))
	require.NoError(t, e.Export("/tmp/x.txt", "x.txt", 6))
	require.NoError(t, e.Error("SERVER_ERROR", "boom"))
	require.NoError(t, e.Info("following", web1))
	require.NoError(t, e.Warning("careful"))
	require.NoError(t, e.Metadata("1.0.0", "abc", ""))

	items := decodeAll(t, buf)
	require.Len(t, items, 9)

	want := []string{"log", "snapshot", "ready", "session_end", "export", "error", "info", "warning", "metadata"}
	for i, m := range items {
		assert.Equal(t, want[i], m["type"])
		assert.Equal(t, float64(SchemaVersion), m["schemaVersion"], "type=%s", m["type"])
	}
	assert.Equal(t, "2025-12-11T09:59:00Z", items[3]["started_at"])
}
