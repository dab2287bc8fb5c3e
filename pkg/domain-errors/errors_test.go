package domainerrors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHasCode(t *testing.T) {
	t.Run("matches direct error", func(t *testing.T) {
		err := New(CodeNotFound, "request not found")
		assert.True(t, HasCode(err, CodeNotFound))
		assert.False(t, HasCode(err, CodeForbidden))
	})

	t.Run("matches through fmt wrapping", func(t *testing.T) {
		err := fmt.Errorf("approve: %w", New(CodeInvalidState, "request is not pending"))
		assert.True(t, HasCode(err, CodeInvalidState))
	})

	t.Run("plain errors have no code", func(t *testing.T) {
		assert.False(t, HasCode(errors.New("boom"), CodeInternal))
		assert.Equal(t, CodeInternal, CodeOf(errors.New("boom")))
	})
}

func TestWrapKeepsCause(t *testing.T) {
	cause := errors.New("disk full")
	err := Wrap(cause, CodeGenerationFailure, "failed to store document")

	require.ErrorIs(t, err, cause)
	assert.Equal(t, "failed to store document: disk full", err.Error())
	assert.Equal(t, CodeGenerationFailure, CodeOf(err))
}

func TestHTTPStatus(t *testing.T) {
	cases := map[Code]int{
		CodeNotFound:          http.StatusNotFound,
		CodeForbidden:         http.StatusForbidden,
		CodeInvalidState:      http.StatusConflict,
		CodeDuplicatePending:  http.StatusConflict,
		CodeProfileIncomplete: http.StatusUnprocessableEntity,
		CodeValidation:        http.StatusBadRequest,
		CodeGenerationFailure: http.StatusInternalServerError,
		CodeUnauthorized:      http.StatusUnauthorized,
	}
	for code, want := range cases {
		assert.Equal(t, want, HTTPStatus(code), string(code))
	}
}
