package telemetry

import (
	"context"
	"errors"
)

// Error kinds. Callers classify with errors.Is.
var (
	ErrNetwork    = errors.New("network failure")
	ErrAuth       = errors.New("authorization failure")
	ErrValidation = errors.New("validation failure")
)

// KindOf names the error kind of err for status lines and metric labels.
func KindOf(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrAuth):
		return "auth"
	case errors.Is(err, ErrValidation):
		return "validation"
	case errors.Is(err, ErrNetwork), errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return "network"
	default:
		return "unknown"
	}
}
