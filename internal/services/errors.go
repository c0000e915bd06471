package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrInvalidArgument marks a structurally invalid value passed by a caller.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrValidation marks a stage precondition failure surfaced before side effects.
	ErrValidation = errors.New("validation error")
	// ErrConfiguration marks an unusable configuration value.
	ErrConfiguration = errors.New("configuration error")
	// ErrConflict marks a duplicate registration or competing write.
	ErrConflict = errors.New("conflict")
	// ErrNotFound marks a missing file, checkpoint, or registry entry.
	ErrNotFound = errors.New("not found")
	// ErrTimeout marks an external operation that exceeded its deadline.
	ErrTimeout = errors.New("timeout")
	// ErrTransient marks a failure expected to clear on retry.
	ErrTransient = errors.New("transient failure")
	// ErrExternalTool marks a deterministic failure reported by an external tool.
	ErrExternalTool = errors.New("external tool error")
)

// Wrap builds an error message that includes stage context while tagging it with
// the provided marker for later retriability classification. The marker should
// be one of the exported sentinel errors above.
func Wrap(marker error, stage, operation, message string, err error) error {
	detail := buildDetail(stage, operation, message)
	if marker == nil {
		marker = ErrTransient
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// IsRetriable reports whether the retry service may attempt the operation
// again. Only errors tagged transient or timeout qualify; anything unclassified
// is treated as non-retriable.
func IsRetriable(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, ErrTransient) || errors.Is(err, ErrTimeout)
}

// Kind returns the short classification label for an error, used in logs and
// run summaries.
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrInvalidArgument):
		return "invalid_argument"
	case errors.Is(err, ErrValidation):
		return "invalid_input"
	case errors.Is(err, ErrConfiguration):
		return "configuration"
	case errors.Is(err, ErrConflict):
		return "conflict"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrTimeout):
		return "timeout"
	case errors.Is(err, ErrTransient):
		return "transient"
	case errors.Is(err, ErrExternalTool):
		return "external_tool"
	default:
		return "unclassified"
	}
}

// Details extracts the human-readable portion of a wrapped error.
type ErrorDetails struct {
	Message string
}

// Details returns presentation details for an error produced by Wrap.
func Details(err error) ErrorDetails {
	if err == nil {
		return ErrorDetails{}
	}
	msg := err.Error()
	for _, marker := range []error{
		ErrInvalidArgument, ErrValidation, ErrConfiguration, ErrConflict,
		ErrNotFound, ErrTimeout, ErrTransient, ErrExternalTool,
	} {
		prefix := marker.Error() + ": "
		if strings.HasPrefix(msg, prefix) {
			msg = strings.TrimPrefix(msg, prefix)
			break
		}
	}
	return ErrorDetails{Message: strings.TrimSpace(msg)}
}

func buildDetail(stage, operation, message string) string {
	parts := make([]string, 0, 3)
	if stage = strings.TrimSpace(stage); stage != "" {
		parts = append(parts, stage)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
