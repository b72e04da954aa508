package cli

import (
	"io"
	"os"

	"github.com/benbjohnson/clock"
	"github.com/mattn/go-isatty"

	"github.com/vburojevic/podtail/internal/config"
	"github.com/vburojevic/podtail/internal/domain"
	"github.com/vburojevic/podtail/internal/logapi"
	"github.com/vburojevic/podtail/internal/output"
	"github.com/vburojevic/podtail/internal/tail"
)

// TargetFlags selects the pod whose log a command works on
type TargetFlags struct {
	Pod       string `arg:"" help:"Pod name"`
	Namespace string `short:"n" default:"${config_namespace}" help:"Namespace of the pod"`
	Tail      uint   `short:"t" default:"${config_tail_lines}" help:"Number of recent lines to fetch (0 means 100)"`
}

// Target returns the selected target
func (f TargetFlags) Target() domain.LogTarget {
	return domain.LogTarget{Namespace: f.Namespace, PodName: f.Pod}
}

// newEngine wires the transport, credential and logger into a tail engine
func newEngine(globals *Globals) (*tail.Engine, error) {
	cfg := globals.Config
	if cfg == nil {
		cfg = config.Default()
	}
	timeout, err := cfg.SnapshotTimeoutDuration()
	if err != nil {
		return nil, err
	}

	client := globals.Client
	if client == nil {
		c, err := logapi.NewClient(globals.Server,
			logapi.WithTokenSource(config.NewTokenSource(cfg, globals.Token)),
			logapi.WithLogger(globals.Log()),
			logapi.WithUserAgent("podtail/"+Version),
		)
		if err != nil {
			return nil, err
		}
		globals.Debug("dashboard API at %s", c.BaseURL())
		client = c
	}

	return tail.New(tail.Options{
		Client:          client,
		SnapshotTimeout: timeout,
		Clock:           globals.clock(),
		Logger:          globals.Log(),
	})
}

func (g *Globals) clock() clock.Clock {
	if g.Clock == nil {
		g.Clock = clock.New()
	}
	return g.Clock
}

// newTextWriter styles output only when w is a terminal
func newTextWriter(w io.Writer) *output.TextWriter {
	if f, ok := w.(*os.File); ok && (isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())) {
		return output.NewTextWriter(w)
	}
	return output.NewPlainTextWriter(w)
}
