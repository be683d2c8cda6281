package cryptstring

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSealOpenRoundTrip(t *testing.T) {
	s, err := NewSealer([]byte("root-secret-for-test"))
	require.NoError(t, err)

	sealed, err := s.Seal("hunter2")
	require.NoError(t, err)
	require.NotEqual(t, "hunter2", sealed)

	opened, err := s.Open(sealed)
	require.NoError(t, err)
	require.Equal(t, "hunter2", opened)
}

func TestOpenWrongKeyFails(t *testing.T) {
	a, err := NewSealer([]byte("secret-a"))
	require.NoError(t, err)
	b, err := NewSealer([]byte("secret-b"))
	require.NoError(t, err)

	sealed, err := a.Seal("credential")
	require.NoError(t, err)

	_, err = b.Open(sealed)
	require.ErrorIs(t, err, ErrDecrypt)
}

func TestOpenMalformedFails(t *testing.T) {
	s, err := NewSealer([]byte("secret"))
	require.NoError(t, err)

	_, err = s.Open("not-base64!!")
	require.ErrorIs(t, err, ErrDecrypt)
}
