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
	err := New(CodeNotFound, "record not found")

	assert.True(t, HasCode(err, CodeNotFound))
	assert.False(t, HasCode(err, CodeConflict))
	assert.False(t, HasCode(errors.New("plain"), CodeNotFound))
	assert.False(t, HasCode(nil, CodeNotFound))
}

func TestHasCodeSeesThroughWrapping(t *testing.T) {
	inner := New(CodeInvalidSignature, "signature does not verify")
	wrapped := fmt.Errorf("finalize job: %w", inner)

	assert.True(t, HasCode(wrapped, CodeInvalidSignature))
	assert.Equal(t, CodeInvalidSignature, CodeOf(wrapped))
}

func TestWrapPreservesCause(t *testing.T) {
	cause := errors.New("connection refused")
	err := Wrap(cause, CodeUnavailable, "store unreachable")

	require.ErrorIs(t, err, cause)
	assert.Equal(t, CodeUnavailable, CodeOf(err))
	assert.Equal(t, "store unreachable", MessageOf(err))
	assert.Contains(t, err.Error(), "connection refused")
}

func TestMessageOfHidesNonDomainErrors(t *testing.T) {
	assert.Equal(t, "record not found", MessageOf(New(CodeNotFound, "record not found")))
	assert.Equal(t, http.StatusText(http.StatusInternalServerError), MessageOf(errors.New("pq: relation does not exist")))
}

func TestCodeOfDefaultsToInternal(t *testing.T) {
	assert.Equal(t, CodeInternal, CodeOf(errors.New("plain")))
}

func TestToHTTPStatus(t *testing.T) {
	cases := []struct {
		code Code
		want int
	}{
		{CodeBadRequest, http.StatusBadRequest},
		{CodeInvalidInput, http.StatusBadRequest},
		{CodeInvalidSignature, http.StatusBadRequest},
		{CodeNotFound, http.StatusNotFound},
		{CodeConflict, http.StatusConflict},
		{CodeUnavailable, http.StatusServiceUnavailable},
		{CodeInternal, http.StatusInternalServerError},
		{Code("unmapped"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, ToHTTPStatus(tc.code), "code %s", tc.code)
	}
}
