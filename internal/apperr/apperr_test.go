package apperr

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindAndMessage(t *testing.T) {
	err := New(NotFound, "Event not found")
	assert.Equal(t, NotFound, KindOf(err))
	assert.True(t, Is(err, NotFound))
	assert.Equal(t, "Event not found", Message(err))
	assert.Empty(t, Cause(err))
}

func TestWrapKeepsCause(t *testing.T) {
	err := Wrap(Upstream, errors.New("connection refused"), "Event creation failed")
	assert.Equal(t, Upstream, KindOf(err))
	assert.Equal(t, "Event creation failed", Message(err))
	assert.Equal(t, "connection refused", Cause(err))
	assert.Nil(t, Wrap(Upstream, nil, "unused"))
}

func TestPlainErrorsAreUpstream(t *testing.T) {
	err := errors.New("boom")
	assert.Equal(t, Upstream, KindOf(err))
	assert.Equal(t, "boom", Message(err))
	assert.Equal(t, Kind(""), KindOf(nil))
	assert.False(t, Is(nil, Upstream))
}
