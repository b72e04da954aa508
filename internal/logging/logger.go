// Package logging builds the zap logger shared by the transport, stream
// manager and engine. Diagnostics go to stderr so stdout stays machine
// readable.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Options describes logger construction parameters
type Options struct {
	Verbose bool
	Quiet   bool
	Format  string // console or json
	Writer  io.Writer
}

// New constructs a logger. Quiet wins over Verbose and yields a no-op logger.
func New(opts Options) (*zap.Logger, error) {
	if opts.Quiet {
		return zap.NewNop(), nil
	}

	level := zapcore.InfoLevel
	if opts.Verbose {
		level = zapcore.DebugLevel
	}

	w := opts.Writer
	if w == nil {
		w = os.Stderr
	}

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.TimeKey = "ts"
	encCfg.EncodeTime = zapcore.RFC3339TimeEncoder

	var encoder zapcore.Encoder
	switch strings.ToLower(strings.TrimSpace(opts.Format)) {
	case "", "console", "text":
		encCfg.EncodeLevel = zapcore.CapitalLevelEncoder
		encoder = zapcore.NewConsoleEncoder(encCfg)
	case "json", "ndjson":
		encoder = zapcore.NewJSONEncoder(encCfg)
	default:
		return nil, fmt.Errorf("log format: unsupported value %q", opts.Format)
	}

	core := zapcore.NewCore(encoder, zapcore.Lock(zapcore.AddSync(w)), level)
	return zap.New(core), nil
}

// Target returns the standard fields for a log target
func Target(namespace, pod string) zap.Field {
	return zap.Dict("target", zap.String("namespace", namespace), zap.String("pod", pod))
}
