package cli

import (
	"context"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/vburojevic/podtail/internal/domain"
	"github.com/vburojevic/podtail/internal/tui"
)

// UICmd launches the interactive log panel
type UICmd struct {
	TargetFlags `embed:""`

	Dir string `short:"d" default:"${config_export_dir}" type:"path" help:"Directory the export key writes into"`
}

// Run executes the UI command
func (c *UICmd) Run(globals *Globals) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	target := c.Target()
	if err := target.Validate(); err != nil {
		return reportError(globals, &CLIError{Code: "INVALID_TARGET", Message: err.Error(), Hint: hintFor(domain.ErrNoTarget), Err: err})
	}

	engine, err := newEngine(globals)
	if err != nil {
		return reportError(globals, err)
	}
	defer engine.Close()

	poll, err := globals.Config.PollIntervalDuration()
	if err != nil {
		return reportError(globals, err)
	}

	model := tui.New(ctx, engine, tui.Options{
		Target:    target,
		TailLines: c.Tail,
		ExportDir: c.Dir,
		Poll:      poll,
	})

	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil && ctx.Err() == nil {
		return err
	}
	return nil
}
