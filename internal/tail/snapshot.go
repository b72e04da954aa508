package tail

import (
	"context"
	"time"

	"github.com/vburojevic/podtail/internal/domain"
	"github.com/vburojevic/podtail/internal/logapi"
)

// DefaultSnapshotTimeout bounds a snapshot request when no timeout is configured
const DefaultSnapshotTimeout = 30 * time.Second

// SnapshotFetcher performs the one-shot bounded tail retrieval
type SnapshotFetcher struct {
	fetcher logapi.Fetcher
	timeout time.Duration
}

// NewSnapshotFetcher wraps f with a per-request timeout. A non-positive
// timeout selects DefaultSnapshotTimeout.
func NewSnapshotFetcher(f logapi.Fetcher, timeout time.Duration) *SnapshotFetcher {
	if timeout <= 0 {
		timeout = DefaultSnapshotTimeout
	}
	return &SnapshotFetcher{fetcher: f, timeout: timeout}
}

// Timeout returns the per-request bound
func (f *SnapshotFetcher) Timeout() time.Duration { return f.timeout }

// Fetch returns the last req.TailLines lines of the target's log. Zero lines
// means the default, never an empty result.
func (f *SnapshotFetcher) Fetch(ctx context.Context, req domain.TailRequest) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()
	return f.fetcher.FetchLogs(ctx, req.Normalize())
}
