package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClientError_Error(t *testing.T) {
	cause := errors.New("connection refused")

	withEndpoint := NewNetworkError("ws://node-1:9944", "dial failed", cause)
	assert.Equal(t, "[ws://node-1:9944:NETWORK] MEDIUM: dial failed: connection refused", withEndpoint.Error())

	bare := NewConfigError("rpc_urls must not be empty")
	assert.Equal(t, "[CONFIG] LOW: rpc_urls must not be empty", bare.Error())
}

func TestClientError_Unwrap(t *testing.T) {
	sentinel := errors.New("sentinel")
	err := fmt.Errorf("outer: %w", NewTransportError("ws://a", "connection lost", sentinel))

	assert.True(t, errors.Is(err, sentinel))
	assert.True(t, IsClientError(err, ErrCodeTransport))
	assert.False(t, IsClientError(err, ErrCodeRPC))
}

func TestClientError_IsRetryable(t *testing.T) {
	tests := []struct {
		code      ErrorCode
		retryable bool
	}{
		{ErrCodeNetwork, true},
		{ErrCodeTransport, true},
		{ErrCodeExhausted, true},
		{ErrCodeTimeout, true},
		{ErrCodeRPC, false},
		{ErrCodeValidation, false},
		{ErrCodeConfig, false},
		{ErrCodeInternal, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			assert.Equal(t, tt.retryable, NewClientError(tt.code, "", "x", nil).IsRetryable())
		})
	}
}

func TestWrapClientError(t *testing.T) {
	assert.Nil(t, WrapClientError(nil, ErrCodeInternal, "", "nothing"))

	plain := errors.New("boom")
	wrapped := WrapClientError(plain, ErrCodeInternal, "ws://a", "wrapping")
	require.NotNil(t, wrapped)
	assert.Equal(t, ErrCodeInternal, wrapped.Code)
	assert.Equal(t, "ws://a", wrapped.Endpoint)
	assert.ErrorIs(t, wrapped, plain)

	existing := NewNetworkError("", "dial failed", nil)
	rewrapped := WrapClientError(existing, ErrCodeInternal, "ws://b", "second")
	assert.Same(t, existing, rewrapped)
	assert.Equal(t, ErrCodeNetwork, rewrapped.Code)
	assert.Equal(t, "ws://b", rewrapped.Endpoint)
	assert.Equal(t, "second", rewrapped.Context["wrapped_message"])
}

func TestErrorGroup(t *testing.T) {
	group := NewErrorGroup()
	assert.False(t, group.HasErrors())
	assert.Equal(t, "", group.Error())

	first := NewNetworkError("ws://a", "dial failed", nil)
	group.Add(first)
	group.Add(nil)
	assert.Equal(t, first.Error(), group.Error())

	group.Add(errors.New("last"))
	assert.True(t, group.HasErrors())
	assert.Len(t, group.Errors, 2)
	assert.Contains(t, group.Error(), "2 errors occurred")

	var clientErr *ClientError
	assert.True(t, errors.As(group, &clientErr))
	assert.Equal(t, "ws://a", clientErr.Endpoint)
}

func TestIsRetryable(t *testing.T) {
	assert.False(t, IsRetryable(nil))
	assert.True(t, IsRetryable(errors.New("read tcp: Connection Reset by peer")))
	assert.True(t, IsRetryable(errors.New("i/o timeout")))
	assert.False(t, IsRetryable(errors.New("method not found")))
	assert.False(t, IsRetryable(NewRPCError("chain_getHead", "rejected", nil)))
}
