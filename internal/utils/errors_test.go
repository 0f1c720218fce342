package utils

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAllocError_Error(t *testing.T) {
	tests := []struct {
		name     string
		context  string
		addr     uint64
		cause    error
		expected string
	}{
		{
			name:     "no heap offset",
			context:  "reading block header",
			cause:    errors.New("invalid signature"),
			expected: "reading block header: invalid signature",
		},
		{
			name:     "heap offset included",
			context:  "arena.Sbrk",
			addr:     4096,
			cause:    errors.New("out of heap"),
			expected: "arena.Sbrk at heap offset 4096: out of heap",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := &AllocError{
				Context: tt.context,
				Addr:    tt.addr,
				Cause:   tt.cause,
			}
			require.Equal(t, tt.expected, err.Error())
		})
	}
}

func TestWrapError(t *testing.T) {
	require.Nil(t, WrapError("some operation", nil))

	err := WrapError("reading data", errors.New("IO error"))
	require.NotNil(t, err)

	var allocErr *AllocError
	require.True(t, errors.As(err, &allocErr))
	require.Equal(t, "reading data", allocErr.Context)
	require.Equal(t, uint64(0), allocErr.Addr)
}

func TestWrapErrorAt(t *testing.T) {
	require.Nil(t, WrapErrorAt("some operation", 128, nil))

	cause := errors.New("heap exhausted")
	err := WrapErrorAt("arena.Sbrk", 128, cause)
	require.NotNil(t, err)

	var allocErr *AllocError
	require.True(t, errors.As(err, &allocErr))
	require.Equal(t, "arena.Sbrk", allocErr.Context)
	require.Equal(t, uint64(128), allocErr.Addr)
	require.Equal(t, cause, allocErr.Cause)
}

func TestAllocError_Unwrap(t *testing.T) {
	originalErr := errors.New("original error")
	wrapped := WrapError("context", originalErr)

	require.Equal(t, originalErr, errors.Unwrap(wrapped))
}

func TestAllocError_ErrorsIs(t *testing.T) {
	originalErr := errors.New("specific error")
	wrapped := WrapError("first level", originalErr)
	doubleWrapped := WrapError("second level", wrapped)

	require.True(t, errors.Is(doubleWrapped, originalErr))
	require.True(t, errors.Is(wrapped, originalErr))
}

func TestAllocError_ErrorsAs(t *testing.T) {
	originalErr := errors.New("base error")
	wrapped := WrapErrorAt("context", 64, originalErr)

	var allocErr *AllocError
	require.True(t, errors.As(wrapped, &allocErr))
	require.Equal(t, "context", allocErr.Context)
	require.Equal(t, uint64(64), allocErr.Addr)
	require.Equal(t, originalErr, allocErr.Cause)
}
