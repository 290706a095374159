package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAppError_Error(t *testing.T) {
	e := ErrPluginNotFound
	assert.Equal(t, "plugin not found", e.Error())

	wrapped := e.WithError(fmt.Errorf("id %q", "p1"))
	assert.Contains(t, wrapped.Error(), "plugin not found")
	assert.Contains(t, wrapped.Error(), "p1")
}

func TestWithMessage_KeepsCodeAndStatus(t *testing.T) {
	e := ErrPluginNotFound.WithMessage("plugin is not installed")
	assert.Equal(t, CodePluginNotFound, e.Code)
	assert.Equal(t, http.StatusNotFound, e.Status)
	assert.Equal(t, "plugin is not installed", e.Message)
}

func TestIs_MatchesByCode(t *testing.T) {
	err := ErrPersistence.WithError(stderrors.New("disk full"))
	assert.True(t, Is(err, ErrPersistence))
	assert.False(t, Is(err, ErrPluginNotFound))
	assert.False(t, Is(stderrors.New("plain"), ErrPersistence))
}

func TestGetStatusAndCode(t *testing.T) {
	assert.Equal(t, http.StatusForbidden, GetStatus(ErrForbidden))
	assert.Equal(t, CodeForbidden, GetCode(ErrForbidden))

	plain := stderrors.New("boom")
	assert.Equal(t, http.StatusInternalServerError, GetStatus(plain))
	assert.Equal(t, CodeInternalError, GetCode(plain))
}

func TestUnwrap(t *testing.T) {
	cause := stderrors.New("root cause")
	err := Wrap(cause, ErrPersistence)
	assert.ErrorIs(t, err, cause)
}
