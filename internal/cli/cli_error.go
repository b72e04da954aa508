package cli

import (
	"errors"

	"github.com/vburojevic/podtail/internal/domain"
)

// CLIError is a structured error used for consistent NDJSON/text emission.
type CLIError struct {
	Code    string
	Message string
	Hint    string
	Err     error
}

func (e *CLIError) Error() string {
	if e == nil {
		return ""
	}
	return e.Message
}

func (e *CLIError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// classify turns any failure into a CLIError with a stable code
func classify(err error) *CLIError {
	var cliErr *CLIError
	if errors.As(err, &cliErr) {
		return cliErr
	}
	code := domain.KindOf(err).Code()
	switch {
	case errors.Is(err, domain.ErrNoTarget):
		code = "NO_TARGET"
	case domain.KindOf(err) == domain.KindUnknown && isConfigError(err):
		code = "CONFIG_ERROR"
	}
	return &CLIError{
		Code:    code,
		Message: err.Error(),
		Hint:    hintFor(err),
		Err:     err,
	}
}
