package domainerrors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_HasCode(t *testing.T) {
	err := New(CodeInactiveContext, "context is deprecated")

	assert.True(t, HasCode(err, CodeInactiveContext))
	assert.False(t, HasCode(err, CodeNonexistentContext))
	assert.False(t, HasCode(nil, CodeInactiveContext))
	assert.False(t, HasCode(errors.New("plain"), CodeInactiveContext))
}

func Test_HasCode_SeesThroughWrapping(t *testing.T) {
	inner := New(CodeUnreadyForDetachment, "not ready")
	wrapped := fmt.Errorf("request detach: %w", inner)

	assert.True(t, HasCode(wrapped, CodeUnreadyForDetachment))
}

func Test_Wrap_PreservesCause(t *testing.T) {
	cause := errors.New("connection refused")
	err := Wrap(cause, CodeInternal, "failed to store delegation")

	require.ErrorIs(t, err, cause)
	assert.Equal(t, CodeInternal, CodeOf(err))
	assert.Contains(t, err.Error(), "connection refused")
}

func Test_CodeOf_DefaultsToInternal(t *testing.T) {
	assert.Equal(t, CodeInternal, CodeOf(errors.New("unclassified")))
}

func Test_ToHTTPStatus(t *testing.T) {
	cases := []struct {
		code   Code
		status int
	}{
		{CodeBadRequest, http.StatusBadRequest},
		{CodeInvalidController, http.StatusBadRequest},
		{CodeUnauthorized, http.StatusUnauthorized},
		{CodeNotOwnerAuthorized, http.StatusForbidden},
		{CodeInsufficientApproval, http.StatusForbidden},
		{CodeNonexistentContext, http.StatusNotFound},
		{CodeExistentContext, http.StatusConflict},
		{CodeAlreadyAttachedContext, http.StatusConflict},
		{CodeInternal, http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(string(tc.code), func(t *testing.T) {
			assert.Equal(t, tc.status, ToHTTPStatus(tc.code))
		})
	}
}
