package tail

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/vburojevic/podtail/internal/domain"
	"github.com/vburojevic/podtail/internal/logbuffer"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

const waitFor = 2 * time.Second

var (
	podA = domain.LogTarget{Namespace: "default", PodName: "pod-a"}
	podB = domain.LogTarget{Namespace: "default", PodName: "pod-b"}
)

// fakeBackend serves snapshots from a map and follow streams from pipes or
// custom readers.
type fakeBackend struct {
	mu        sync.Mutex
	snapshots map[string]string
	snapErr   error
	snapGate  chan struct{}
	streamErr error
	readers   map[string]io.ReadCloser
	writers   map[string]*io.PipeWriter
	opened    chan string
	requests  []domain.TailRequest
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		snapshots: make(map[string]string),
		readers:   make(map[string]io.ReadCloser),
		writers:   make(map[string]*io.PipeWriter),
		opened:    make(chan string, 16),
	}
}

func (b *fakeBackend) FetchLogs(ctx context.Context, req domain.TailRequest) (string, error) {
	b.mu.Lock()
	b.requests = append(b.requests, req)
	gate := b.snapGate
	b.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.snapErr != nil {
		return "", b.snapErr
	}
	text, ok := b.snapshots[req.Target.PodName]
	if !ok {
		return "", &domain.Error{Kind: domain.KindNotFound, Op: "snapshot", Status: 404}
	}
	return text, nil
}

func (b *fakeBackend) OpenStream(ctx context.Context, req domain.TailRequest) (io.ReadCloser, error) {
	b.mu.Lock()
	b.requests = append(b.requests, req)
	if b.streamErr != nil {
		err := b.streamErr
		b.mu.Unlock()
		return nil, err
	}
	pod := req.Target.PodName
	rc, ok := b.readers[pod]
	if !ok {
		r, w := io.Pipe()
		b.writers[pod] = w
		rc = r
	}
	b.mu.Unlock()

	b.opened <- pod
	return rc, nil
}

func (b *fakeBackend) writer(pod string) *io.PipeWriter {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.writers[pod]
}

func (b *fakeBackend) tailRequests() []uint {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]uint, 0, len(b.requests))
	for _, r := range b.requests {
		out = append(out, r.TailLines)
	}
	return out
}

// lateReader delivers one stale event as soon as it is closed, imitating a
// transport whose last bytes race with cancellation.
type lateReader struct {
	closed chan struct{}
	once   sync.Once
	sent   bool
}

func newLateReader() *lateReader {
	return &lateReader{closed: make(chan struct{})}
}

func (r *lateReader) Read(p []byte) (int, error) {
	<-r.closed
	if r.sent {
		return 0, io.ErrClosedPipe
	}
	r.sent = true
	return copy(p, "data: stale\n\n"), nil
}

func (r *lateReader) Close() error {
	r.once.Do(func() { close(r.closed) })
	return nil
}

func newTestEngine(t *testing.T, backend Backend, opts ...func(*Options)) *Engine {
	t.Helper()
	o := Options{Client: backend}
	for _, fn := range opts {
		fn(&o)
	}
	e, err := New(o)
	require.NoError(t, err)
	t.Cleanup(e.Close)
	return e
}

func waitOpened(t *testing.T, b *fakeBackend, pod string) {
	t.Helper()
	select {
	case got := <-b.opened:
		require.Equal(t, pod, got)
	case <-time.After(waitFor):
		t.Fatalf("stream for %s never opened", pod)
	}
}

func TestNewRequiresClient(t *testing.T) {
	_, err := New(Options{})
	assert.Error(t, err)
}

func TestSnapshotThenFollowConcatenates(t *testing.T) {
	backend := newFakeBackend()
	backend.snapshots["pod-a"] = "a\nb\n"
	e := newTestEngine(t, backend)

	require.NoError(t, e.LoadSnapshot(context.Background(), podA, 100))
	assert.Equal(t, "a\nb\n", e.GetLogText())

	require.NoError(t, e.ToggleFollow(context.Background(), true, 100))
	waitOpened(t, backend, "pod-a")
	assert.True(t, e.Following())

	w := backend.writer("pod-a")
	_, _ = io.WriteString(w, "data: c\n\n")
	_, _ = io.WriteString(w, "data: d\n\n")

	assert.Eventually(t, func() bool {
		return e.GetLogText() == "a\nb\nc\nd\n"
	}, waitFor, 5*time.Millisecond)
}

func TestMultiLineEventKeepsLines(t *testing.T) {
	backend := newFakeBackend()
	backend.snapshots["pod-a"] = "start\n"
	e := newTestEngine(t, backend)

	require.NoError(t, e.LoadSnapshot(context.Background(), podA, 0))
	require.NoError(t, e.ToggleFollow(context.Background(), true, 0))
	waitOpened(t, backend, "pod-a")

	_, _ = io.WriteString(backend.writer("pod-a"), "data: one\ndata: two\n\n")
	assert.Eventually(t, func() bool {
		return e.GetLogText() == "start\none\ntwo\n"
	}, waitFor, 5*time.Millisecond)
}

func TestSnapshotAuthFailureLeavesBufferEmpty(t *testing.T) {
	backend := newFakeBackend()
	backend.snapshots["pod-a"] = "old\n"
	e := newTestEngine(t, backend)
	require.NoError(t, e.LoadSnapshot(context.Background(), podA, 100))
	require.Equal(t, "old\n", e.GetLogText())

	backend.mu.Lock()
	backend.snapErr = &domain.Error{Kind: domain.KindAuthentication, Op: "snapshot", Status: 401}
	backend.mu.Unlock()

	err := e.LoadSnapshot(context.Background(), podA, 100)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrAuthentication)
	assert.Equal(t, domain.KindAuthentication, domain.KindOf(err))
	assert.Equal(t, "", e.GetLogText())
}

func TestSnapshotErrorKindsAreDistinct(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{"not found", &domain.Error{Kind: domain.KindNotFound, Status: 404}, domain.ErrNotFound},
		{"server", &domain.Error{Kind: domain.KindServer, Status: 503}, domain.ErrServer},
		{"empty", &domain.Error{Kind: domain.KindEmptyResponse}, domain.ErrEmptyResponse},
		{"network", &domain.Error{Kind: domain.KindNetwork, Err: errors.New("refused")}, domain.ErrNetwork},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			backend := newFakeBackend()
			backend.snapErr = tt.err
			e := newTestEngine(t, backend)

			err := e.LoadSnapshot(context.Background(), podA, 100)
			assert.ErrorIs(t, err, tt.want)
			assert.Empty(t, e.GetLogText())
		})
	}
}

func TestSnapshotTimeout(t *testing.T) {
	backend := newFakeBackend()
	backend.snapGate = make(chan struct{})
	defer close(backend.snapGate)
	e := newTestEngine(t, backend, func(o *Options) { o.SnapshotTimeout = 20 * time.Millisecond })

	assert.Equal(t, 20*time.Millisecond, e.SnapshotTimeout())
	err := e.LoadSnapshot(context.Background(), podA, 100)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Empty(t, e.GetLogText())
}

func TestSnapshotSupersededBySwitch(t *testing.T) {
	backend := newFakeBackend()
	backend.snapshots["pod-a"] = "from a\n"
	backend.snapGate = make(chan struct{})
	e := newTestEngine(t, backend)

	errc := make(chan error, 1)
	go func() { errc <- e.LoadSnapshot(context.Background(), podA, 100) }()

	assert.Eventually(t, func() bool { return len(backend.tailRequests()) == 1 }, waitFor, 5*time.Millisecond)
	require.NoError(t, e.SwitchTarget(podB))
	close(backend.snapGate)

	err := <-errc
	assert.ErrorIs(t, err, domain.ErrCancelled)
	assert.Empty(t, e.GetLogText(), "stale snapshot must not land in the new view")
	assert.Equal(t, podB, e.Target())
}

func TestZeroTailUsesDefault(t *testing.T) {
	backend := newFakeBackend()
	backend.snapshots["pod-a"] = "x\n"
	e := newTestEngine(t, backend)

	require.NoError(t, e.LoadSnapshot(context.Background(), podA, 0))
	require.NoError(t, e.LoadSnapshot(context.Background(), podA, 100))
	require.NoError(t, e.ToggleFollow(context.Background(), true, 0))
	waitOpened(t, backend, "pod-a")

	assert.Equal(t, []uint{100, 100, 100}, backend.tailRequests())
	assert.Equal(t, uint(100), e.TailLines())
}

func TestFollowRequiresTarget(t *testing.T) {
	e := newTestEngine(t, newFakeBackend())
	assert.ErrorIs(t, e.ToggleFollow(context.Background(), true, 100), domain.ErrNoTarget)
	assert.False(t, e.Following())
}

func TestFollowTwiceIsNoop(t *testing.T) {
	backend := newFakeBackend()
	e := newTestEngine(t, backend)
	require.NoError(t, e.SwitchTarget(podA))

	require.NoError(t, e.ToggleFollow(context.Background(), true, 50))
	waitOpened(t, backend, "pod-a")
	first := e.Session()

	require.NoError(t, e.ToggleFollow(context.Background(), true, 50))
	assert.Same(t, first, e.Session())
	assert.Len(t, backend.tailRequests(), 1)
}

func TestToggleOffIsIdempotent(t *testing.T) {
	backend := newFakeBackend()
	e := newTestEngine(t, backend)
	require.NoError(t, e.SwitchTarget(podA))

	require.NoError(t, e.ToggleFollow(context.Background(), true, 100))
	waitOpened(t, backend, "pod-a")
	s := e.Session()

	require.NoError(t, e.ToggleFollow(context.Background(), false, 0))
	require.NoError(t, e.ToggleFollow(context.Background(), false, 0))
	assert.Equal(t, domain.SessionCancelled, s.State())
	assert.False(t, e.Following())

	select {
	case n := <-e.Notifications():
		t.Fatalf("unexpected notification for user stop: %+v", n)
	default:
	}
}

func TestServerEndNotifies(t *testing.T) {
	backend := newFakeBackend()
	mock := clock.NewMock()
	mock.Set(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	e := newTestEngine(t, backend, func(o *Options) { o.Clock = mock })
	require.NoError(t, e.SwitchTarget(podA))

	require.NoError(t, e.ToggleFollow(context.Background(), true, 100))
	waitOpened(t, backend, "pod-a")
	s := e.Session()
	require.NoError(t, backend.writer("pod-a").Close())

	select {
	case n := <-e.Notifications():
		assert.Equal(t, podA, n.Target)
		assert.Equal(t, domain.SessionEnded, n.State)
		assert.NoError(t, n.Err)
		assert.Equal(t, mock.Now(), n.At)
	case <-time.After(waitFor):
		t.Fatal("no notification")
	}
	assert.False(t, e.Following())

	// Cancelling after a natural end changes nothing
	require.NoError(t, e.ToggleFollow(context.Background(), false, 0))
	assert.Equal(t, domain.SessionEnded, s.State())
}

func TestStreamFailureClearsFollowing(t *testing.T) {
	backend := newFakeBackend()
	e := newTestEngine(t, backend)
	require.NoError(t, e.SwitchTarget(podA))

	require.NoError(t, e.ToggleFollow(context.Background(), true, 100))
	waitOpened(t, backend, "pod-a")
	backend.writer("pod-a").CloseWithError(errors.New("connection reset by peer"))

	select {
	case n := <-e.Notifications():
		assert.Equal(t, domain.SessionFailed, n.State)
		assert.ErrorIs(t, n.Err, domain.ErrStreamFailure)
	case <-time.After(waitFor):
		t.Fatal("no notification")
	}
	assert.False(t, e.Following())
}

func TestStreamOpenFailure(t *testing.T) {
	backend := newFakeBackend()
	backend.streamErr = &domain.Error{Kind: domain.KindAuthentication, Op: "stream", Status: 401}
	e := newTestEngine(t, backend)
	require.NoError(t, e.SwitchTarget(podA))

	err := e.ToggleFollow(context.Background(), true, 100)
	assert.ErrorIs(t, err, domain.ErrAuthentication)
	assert.False(t, e.Following())

	s := e.Session()
	require.NotNil(t, s)
	<-s.Done()
	select {
	case n := <-e.Notifications():
		t.Fatalf("open failure reported twice: %+v", n)
	default:
	}

	// A retry opens a fresh session
	backend.mu.Lock()
	backend.streamErr = nil
	backend.mu.Unlock()
	require.NoError(t, e.ToggleFollow(context.Background(), true, 100))
	assert.True(t, e.Following())
}

func TestSwitchTargetWhileStreaming(t *testing.T) {
	backend := newFakeBackend()
	backend.snapshots["pod-a"] = "a-snap\n"
	backend.snapshots["pod-b"] = "b-snap\n"
	e := newTestEngine(t, backend)

	require.NoError(t, e.LoadSnapshot(context.Background(), podA, 100))
	require.NoError(t, e.ToggleFollow(context.Background(), true, 100))
	waitOpened(t, backend, "pod-a")
	sessA := e.Session()
	wa := backend.writer("pod-a")
	_, _ = io.WriteString(wa, "data: a-live\n\n")
	assert.Eventually(t, func() bool { return e.GetLogText() == "a-snap\na-live\n" }, waitFor, 5*time.Millisecond)

	require.NoError(t, e.SwitchTarget(podB))
	assert.Equal(t, domain.SessionCancelled, sessA.State())
	assert.Empty(t, e.GetLogText())
	assert.False(t, e.Following())

	// A's transport is closed; nothing more can arrive from it
	_, err := io.WriteString(wa, "data: a-late\n\n")
	assert.Error(t, err)

	require.NoError(t, e.LoadSnapshot(context.Background(), podB, 100))
	require.NoError(t, e.ToggleFollow(context.Background(), true, 100))
	waitOpened(t, backend, "pod-b")
	sessB := e.Session()
	_, _ = io.WriteString(backend.writer("pod-b"), "data: b-live\n\n")

	assert.Eventually(t, func() bool { return e.GetLogText() == "b-snap\nb-live\n" }, waitFor, 5*time.Millisecond)
	assert.NotContains(t, e.GetLogText(), "a-")
	assert.NotSame(t, sessA, sessB)
	assert.Equal(t, domain.SessionStreaming, sessB.State())
	assert.Same(t, sessB, e.streams.Active(), "exactly one live session")
}

func TestNoStaleAppendAfterCancel(t *testing.T) {
	backend := newFakeBackend()
	backend.readers["pod-a"] = newLateReader()
	backend.snapshots["pod-b"] = "b-snap\n"
	e := newTestEngine(t, backend)
	require.NoError(t, e.SwitchTarget(podA))

	require.NoError(t, e.ToggleFollow(context.Background(), true, 100))
	waitOpened(t, backend, "pod-a")
	sessA := e.Session()

	// Cancellation closes the late reader, which then yields a stale event
	require.NoError(t, e.SwitchTarget(podB))
	require.NoError(t, e.LoadSnapshot(context.Background(), podB, 100))

	assert.Equal(t, domain.SessionCancelled, sessA.State())
	assert.Equal(t, int64(0), sessA.Stats().Events)
	assert.Equal(t, "b-snap\n", e.GetLogText())
}

func TestFollowWaitAbandoned(t *testing.T) {
	backend := newFakeBackend()
	e := newTestEngine(t, backend)
	require.NoError(t, e.SwitchTarget(podA))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := e.ToggleFollow(ctx, true, 100)
	if err != nil {
		// The session may have connected before the cancelled context was observed
		assert.ErrorIs(t, err, context.Canceled)
		assert.False(t, e.Following())
	}
}

func TestReadFromFollowsAppends(t *testing.T) {
	backend := newFakeBackend()
	backend.snapshots["pod-a"] = "one\n"
	e := newTestEngine(t, backend)
	require.NoError(t, e.LoadSnapshot(context.Background(), podA, 100))

	text, cur := e.ReadFrom(logbuffer.Cursor{})
	assert.Equal(t, "one\n", text)

	require.NoError(t, e.ToggleFollow(context.Background(), true, 100))
	waitOpened(t, backend, "pod-a")
	_, _ = io.WriteString(backend.writer("pod-a"), "data: two\n\n")

	assert.Eventually(t, func() bool {
		var more string
		more, cur = e.ReadFrom(cur)
		if more != "" {
			text += more
		}
		return text == "one\ntwo\n"
	}, waitFor, 5*time.Millisecond)
}

func TestCloseClearsState(t *testing.T) {
	backend := newFakeBackend()
	backend.snapshots["pod-a"] = "one\n"
	e, err := New(Options{Client: backend})
	require.NoError(t, err)

	require.NoError(t, e.LoadSnapshot(context.Background(), podA, 100))
	require.NoError(t, e.ToggleFollow(context.Background(), true, 100))
	waitOpened(t, backend, "pod-a")
	s := e.Session()

	e.Close()
	assert.Equal(t, domain.SessionCancelled, s.State())
	assert.Empty(t, e.GetLogText())
	assert.False(t, e.Following())
}

func TestExport(t *testing.T) {
	backend := newFakeBackend()
	backend.snapshots["mypod"] = "hello\n"
	mock := clock.NewMock()
	mock.Set(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	e := newTestEngine(t, backend, func(o *Options) { o.Clock = mock })

	target := domain.LogTarget{Namespace: "default", PodName: "mypod"}
	require.NoError(t, e.LoadSnapshot(context.Background(), target, 0))

	exp := e.ExportLogText()
	assert.Equal(t, "mypod-logs-2024-01-01T00-00-00-000Z-100lines.txt", exp.Filename)
	assert.Equal(t, []byte("hello\n"), exp.Data)

	dir := filepath.Join(t.TempDir(), "exports")
	path, err := e.WriteExport(dir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, exp.Filename), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "hello\n", string(data))
}

func TestExportFilename(t *testing.T) {
	ts := time.Date(2025, 12, 14, 22, 5, 9, 123_000_000, time.FixedZone("CET", 3600))
	tests := []struct {
		pod  string
		tail uint
		want string
	}{
		{"web-1", 50, "web-1-logs-2025-12-14T21-05-09-123Z-50lines.txt"},
		{"web-1", 0, "web-1-logs-2025-12-14T21-05-09-123Z-100lines.txt"},
		{"", 10, "pod-logs-2025-12-14T21-05-09-123Z-10lines.txt"},
		{"we b:1", 10, "we-b-1-logs-2025-12-14T21-05-09-123Z-10lines.txt"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, ExportFilename(tt.pod, ts, tt.tail))
		})
	}
}
