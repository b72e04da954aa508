package cli

import (
	"context"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/vburojevic/podtail/internal/domain"
	"github.com/vburojevic/podtail/internal/output"
)

// ExportCmd saves the recent log of a pod to a file
type ExportCmd struct {
	TargetFlags `embed:""`

	Dir string `short:"d" default:"${config_export_dir}" type:"path" help:"Directory to write the export into"`
}

// Run executes the export command
func (c *ExportCmd) Run(globals *Globals) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	return c.run(ctx, globals)
}

func (c *ExportCmd) run(ctx context.Context, globals *Globals) error {
	target := c.Target()
	if err := target.Validate(); err != nil {
		return reportError(globals, &CLIError{Code: "INVALID_TARGET", Message: err.Error(), Hint: hintFor(domain.ErrNoTarget), Err: err})
	}

	engine, err := newEngine(globals)
	if err != nil {
		return reportError(globals, err)
	}
	defer engine.Close()

	if err := engine.LoadSnapshot(ctx, target, c.Tail); err != nil {
		return reportError(globals, err)
	}

	path, err := engine.WriteExport(c.Dir)
	if err != nil {
		return reportError(globals, &CLIError{Code: "EXPORT_FAILED", Message: err.Error(), Err: err})
	}
	size := len(engine.GetLogText())

	if globals.Format == "ndjson" {
		return output.NewEmitter(globals.Stdout).Export(path, filepath.Base(path), size)
	}
	return newTextWriter(globals.Stdout).WriteStatus("exported", path)
}
