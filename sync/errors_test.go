package sync

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorClassification(t *testing.T) {
	cause := errors.New("boom")

	te := &TransientError{Op: "fetch page", Err: cause}
	assert.True(t, IsTransient(fmt.Errorf("wrapped: %w", te)))
	assert.False(t, IsConfiguration(te))
	assert.ErrorIs(t, te, cause)
	assert.Equal(t, "fetch page: boom", te.Error())

	ce := &ConfigurationError{Reason: "halted", Err: ErrIntegrationDisabled}
	assert.True(t, IsConfiguration(ce))
	assert.ErrorIs(t, ce, ErrIntegrationDisabled)
	assert.Equal(t, "halted", (&ConfigurationError{Reason: "halted"}).Error())

	assert.Equal(t, "invalid sync request: userId is required", (&InputError{Field: "userId"}).Error())
}

func TestTransientDoesNotDoubleWrap(t *testing.T) {
	te := &TransientError{Op: "inner", Err: errors.New("x")}
	assert.Same(t, te, transient("outer", te))

	wrapped := transient("outer", errors.New("y"))
	assert.True(t, IsTransient(wrapped))
}
