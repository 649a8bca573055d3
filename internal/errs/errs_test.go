package errs

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestIsAndKindOf(t *testing.T) {
	err := New(Timeout, errors.New("deadline exceeded"))
	require.True(t, Is(err, Timeout))
	require.False(t, Is(err, NetworkError))

	k, ok := KindOf(err)
	require.True(t, ok)
	require.Equal(t, Timeout, k)
}

func TestWrappedErrorChain(t *testing.T) {
	cause := errors.New("boom")
	err := Newf(NetworkError, "dial: %w", cause)
	require.True(t, errors.Is(err, cause))
	require.True(t, Is(err, NetworkError))
}

func TestErrorStringWithAndWithoutCause(t *testing.T) {
	require.Equal(t, "NoResolvers", New(NoResolvers, nil).Error())
	require.Contains(t, New(Malformed, errors.New("bad")).Error(), "bad")
}

func TestKindOfOnPlainError(t *testing.T) {
	_, ok := KindOf(errors.New("plain"))
	require.False(t, ok)
}
