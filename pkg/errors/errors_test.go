package errors

import (
	"context"
	stderrors "errors"
	"fmt"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
)

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "i/o timeout" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

var _ net.Error = timeoutErr{}

func TestErrorIsMatchesByType(t *testing.T) {
	err := New(ErrorTypeProfileNotFound, 404, "profile %q does not exist", "ghost")
	wrapped := fmt.Errorf("resolve: %w", err)

	assert.True(t, stderrors.Is(wrapped, ErrProfileNotFound))
	assert.False(t, stderrors.Is(wrapped, ErrContentUnavailable))
	assert.Equal(t, ErrorTypeProfileNotFound, TypeOf(wrapped))
}

func TestErrorMessage(t *testing.T) {
	err := Wrap(ErrorTypeFilesystem, stderrors.New("permission denied"), "create %s", "/out")
	assert.Equal(t, "filesystem error (code 0): create /out: permission denied", err.Error())
	assert.EqualError(t, stderrors.Unwrap(err), "permission denied")
}

func TestIsTransient(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"network", New(ErrorTypeNetwork, 0, "reset"), true},
		{"rate limit", New(ErrorTypeRateLimit, 429, "slow down"), true},
		{"server", New(ErrorTypeServerError, 503, "unavailable"), true},
		{"unavailable", New(ErrorTypeContentUnavailable, 404, "gone"), false},
		{"deadline", fmt.Errorf("get: %w", context.DeadlineExceeded), true},
		{"cancelled", Wrap(ErrorTypeNetwork, context.Canceled, "get"), false},
		{"net timeout", timeoutErr{}, true},
		{"plain", stderrors.New("boom"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsTransient(tt.err))
		})
	}
}

func TestFromStatusCode(t *testing.T) {
	assert.Equal(t, ErrorTypeContentUnavailable, FromStatusCode(404, ErrorTypeContentUnavailable, "u").Type)
	assert.Equal(t, ErrorTypeRateLimit, FromStatusCode(429, ErrorTypeNotFound, "u").Type)
	assert.Equal(t, ErrorTypeServerError, FromStatusCode(502, ErrorTypeNotFound, "u").Type)
	assert.Equal(t, ErrorTypeUnknown, FromStatusCode(403, ErrorTypeNotFound, "u").Type)
	assert.False(t, IsTransient(FromStatusCode(403, ErrorTypeNotFound, "u")))
}
