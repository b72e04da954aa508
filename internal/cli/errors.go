package cli

import (
	"errors"
	"fmt"

	"github.com/vburojevic/podtail/internal/domain"
	"github.com/vburojevic/podtail/internal/output"
)

// outputErrorCommon normalizes error emission across commands, respecting
// ndjson vs text formats so scripts always get machine-readable failures.
func outputErrorCommon(globals *Globals, code, message string, hint ...string) error {
	if globals != nil && globals.Format == "ndjson" {
		_ = output.NewNDJSONWriter(globals.Stdout).WriteError(code, message, hint...)
	} else if globals != nil {
		fmt.Fprintf(globals.Stderr, "Error [%s]: %s\n", code, message)
		if len(hint) > 0 && hint[0] != "" {
			fmt.Fprintf(globals.Stderr, "Hint: %s\n", hint[0])
		}
	}
	return errors.New(message)
}

// reportError emits err with its classified code. Cancellation is a normal
// outcome and is never reported.
func reportError(globals *Globals, err error) error {
	if err == nil || errors.Is(err, domain.ErrCancelled) {
		return nil
	}
	ce := classify(err)
	_ = outputErrorCommon(globals, ce.Code, ce.Message, ce.Hint)
	return ce
}
