package supabase

import (
	"strings"

	apperrors "snapgram-sync/pkg/errors"
)

// classify maps client errors onto the port's error kinds. The clients only
// expose messages, so status codes are read from the text.
func classify(op string, err error) error {
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "invalid login credentials"),
		strings.Contains(msg, "already registered"),
		strings.Contains(msg, "400"),
		strings.Contains(msg, "422"):
		return apperrors.NewInvalidArgument(op + ": " + err.Error())
	case strings.Contains(msg, "404"), strings.Contains(msg, "not found"):
		return apperrors.NewNotFound(op + ": " + err.Error())
	default:
		return apperrors.NewBackendFailure(op+" failed", err)
	}
}
