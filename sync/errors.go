// ABOUTME: Error taxonomy for directory sync runs
// ABOUTME: Distinguishes input, configuration, cursor invalidation, and transient failures
package sync

import (
	"errors"
	"fmt"
)

// ErrCursorInvalid is returned by a DirectoryClient when the remote can no
// longer resume from the supplied page or sync token.
var ErrCursorInvalid = errors.New("directory cursor is no longer valid")

var (
	ErrIntegrationDisabled = errors.New("integration is disabled")
	ErrTooManyResets       = errors.New("cursor invalidated too many times in one run")
)

// InputError reports a malformed run request. It is never retried.
type InputError struct {
	Field  string
	Reason string
}

func (e *InputError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("invalid sync request: %s %s", e.Field, e.Reason)
	}
	return fmt.Sprintf("invalid sync request: %s is required", e.Field)
}

// ConfigurationError halts a run until the integration is re-authorized.
type ConfigurationError struct {
	Reason string
	Err    error
}

func (e *ConfigurationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Reason, e.Err)
	}
	return e.Reason
}

func (e *ConfigurationError) Unwrap() error {
	return e.Err
}

// TransientError aborts a run; retrying later resumes from the last
// persisted cursor.
type TransientError struct {
	Op  string
	Err error
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransientError) Unwrap() error {
	return e.Err
}

// IsTransient reports whether err should be retried later.
func IsTransient(err error) bool {
	var te *TransientError
	return errors.As(err, &te)
}

// IsConfiguration reports whether err requires re-authorization.
func IsConfiguration(err error) bool {
	var ce *ConfigurationError
	return errors.As(err, &ce)
}

func transient(op string, err error) error {
	if IsTransient(err) {
		return err
	}
	return &TransientError{Op: op, Err: err}
}
