package cli

import (
	"fmt"

	"github.com/vburojevic/podtail/internal/domain"
	"github.com/vburojevic/podtail/internal/output"
)

// emitWarning respects format/quiet.
func emitWarning(globals *Globals, emitter *output.Emitter, msg string) {
	if globals.Quiet {
		return
	}
	if globals.Format == "ndjson" && emitter != nil {
		_ = emitter.Warning(msg)
		return
	}
	fmt.Fprintf(globals.Stderr, "Warning: %s\n", msg)
}

// emitInfo respects format/quiet. Text goes to stderr so stdout carries only
// log lines.
func emitInfo(globals *Globals, emitter *output.Emitter, msg string, target domain.LogTarget) {
	if globals.Quiet {
		return
	}
	if globals.Format == "ndjson" && emitter != nil {
		_ = emitter.Info(msg, target)
		return
	}
	_ = newTextWriter(globals.Stderr).WriteStatus("podtail", msg+" "+target.String())
}
