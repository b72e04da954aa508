package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/benbjohnson/clock"
	"go.uber.org/zap"

	"github.com/vburojevic/podtail/internal/config"
	"github.com/vburojevic/podtail/internal/logging"
	"github.com/vburojevic/podtail/internal/output"
	"github.com/vburojevic/podtail/internal/tail"
)

// CLI is the root command structure for podtail
type CLI struct {
	// Global flags
	Format  string `short:"f" default:"${config_format}" enum:"ndjson,text" help:"Output format"`
	Quiet   bool   `short:"q" help:"Suppress non-log output (only emit log lines)"`
	Verbose bool   `short:"v" help:"Show debug diagnostics on stderr"`
	Server  string `default:"${config_server}" help:"Dashboard API base URL"`
	Token   string `env:"PODTAIL_TOKEN" help:"Bearer token (overrides token/token_file from config)"`

	// Commands
	Tail       TailCmd       `cmd:"" default:"withargs" help:"Print the recent log of a pod and optionally follow it"`
	Export     ExportCmd     `cmd:"" help:"Save the recent log of a pod to a file"`
	UI         UICmd         `cmd:"" help:"Interactive log viewer"`
	Config     ConfigCmd     `cmd:"" help:"Show or manage configuration"`
	Version    VersionCmd    `cmd:"" help:"Show version information"`
	Completion CompletionCmd `cmd:"" help:"Generate shell completions"`
}

// Globals holds shared state for all commands
type Globals struct {
	Format  string
	Quiet   bool
	Verbose bool
	Server  string
	Token   string
	Stdout  io.Writer
	Stderr  io.Writer
	Config  *config.Config
	Logger  *zap.Logger
	Clock   clock.Clock

	// Client replaces the HTTP transport, for tests
	Client tail.Backend
}

// NewGlobals creates a new Globals instance from CLI flags
func NewGlobals(cli *CLI) *Globals {
	return NewGlobalsWithConfig(cli, config.Default())
}

// NewGlobalsWithConfig creates a new Globals instance with config fallbacks
func NewGlobalsWithConfig(cli *CLI, cfg *config.Config) *Globals {
	if cfg == nil {
		cfg = config.Default()
	}
	g := &Globals{
		Format:  cli.Format,
		Quiet:   cli.Quiet || cfg.Quiet,
		Verbose: cli.Verbose || cfg.Verbose,
		Server:  cli.Server,
		Token:   cli.Token,
		Stdout:  os.Stdout,
		Stderr:  os.Stderr,
		Config:  cfg,
	}
	if g.Format == "" {
		g.Format = cfg.Format
	}
	if g.Server == "" {
		g.Server = cfg.Server
	}
	return g
}

// Log returns the diagnostics logger, building it on first use
func (g *Globals) Log() *zap.Logger {
	if g.Logger != nil {
		return g.Logger
	}
	logger, err := logging.New(logging.Options{
		Verbose: g.Verbose,
		Quiet:   g.Quiet,
		Writer:  g.Stderr,
	})
	if err != nil {
		logger = zap.NewNop()
	}
	g.Logger = logger
	return logger
}

// Debug prints a debug message if verbose mode is enabled
func (g *Globals) Debug(format string, args ...interface{}) {
	if g.Verbose {
		g.Log().Debug(fmt.Sprintf(format, args...))
	}
}

// VersionCmd shows version information
type VersionCmd struct{}

// Run executes the version command
func (v *VersionCmd) Run(globals *Globals) error {
	if globals.Format == "ndjson" {
		return output.NewEmitter(globals.Stdout).Metadata(Version, Commit, BuildDate)
	}
	_, err := io.WriteString(globals.Stdout, "podtail version "+Version+" ("+Commit+")\n")
	return err
}

// Version information (set at build time)
var (
	Version   = "dev"
	Commit    = "none"
	BuildDate = ""
)
