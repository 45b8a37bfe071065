package core

import (
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
)

func TestErrDuplicateInstance_Wrapped(t *testing.T) {
	err := errors.Wrap(ErrDuplicateInstance, "save")
	assert.True(t, errors.Is(err, ErrDuplicateInstance))
	assert.False(t, errors.Is(err, ErrInstanceNotFound))
}

func TestMessages(t *testing.T) {
	assert.Equal(t, "missed deadline", MsgMissedDeadline)
	assert.NotEmpty(t, MsgAbandoned)
}
