package tail

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/vburojevic/podtail/internal/domain"
)

const exportTimeLayout = "2006-01-02T15:04:05.000Z"

// ExportFilename builds the artifact name for pod's log taken at ts with the
// given tail count, e.g. mypod-logs-2024-01-01T00-00-00-000Z-100lines.txt.
// Names of exports taken within the same millisecond collide.
func ExportFilename(pod string, ts time.Time, tailLines uint) string {
	stamp := ts.UTC().Format(exportTimeLayout)
	stamp = strings.NewReplacer(":", "-", ".", "-").Replace(stamp)
	return fmt.Sprintf("%s-logs-%s-%dlines.txt",
		sanitizeName(pod), stamp, domain.NormalizeTailLines(tailLines))
}

func sanitizeName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return "pod"
	}
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '-', r == '_', r == '.':
			return r
		default:
			return '-'
		}
	}, name)
}

// Export is a downloadable copy of the buffer
type Export struct {
	Filename string
	Data     []byte
}

// ExportLogText snapshots the current buffer as an artifact
func (e *Engine) ExportLogText() Export {
	e.mu.RLock()
	pod := e.target.PodName
	tailLines := e.tailLines
	e.mu.RUnlock()

	return Export{
		Filename: ExportFilename(pod, e.clock.Now(), tailLines),
		Data:     []byte(e.buffer.String()),
	}
}

// WriteExport writes the export artifact into dir and returns its path
func (e *Engine) WriteExport(dir string) (string, error) {
	if dir == "" {
		dir = "."
	}
	exp := e.ExportLogText()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create export dir: %w", err)
	}
	path := filepath.Join(dir, exp.Filename)
	if err := os.WriteFile(path, exp.Data, 0o644); err != nil {
		return "", fmt.Errorf("write export: %w", err)
	}
	e.log.Info("log exported", zap.String("path", path), zap.Int("bytes", len(exp.Data)))
	return path, nil
}
