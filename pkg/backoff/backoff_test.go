package backoff

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNextGrowsExponentially(t *testing.T) {
	b := NewWithSeed(1)
	first := b.Next()
	second := b.Next()
	require.GreaterOrEqual(t, first, Initial)
	require.Less(t, first, Initial+Initial/4+1)
	require.GreaterOrEqual(t, second, 2*Initial)
}

func TestNextCapsAtMax(t *testing.T) {
	b := NewWithSeed(2)
	for i := 0; i < 20; i++ {
		b.Next()
	}
	require.LessOrEqual(t, b.current, Max+Max/4+1)
}

func TestResetRestoresInitialAndAttempts(t *testing.T) {
	b := NewWithSeed(3)
	b.Next()
	b.Next()
	require.Equal(t, 2, b.Attempts())
	b.Reset()
	require.Equal(t, 0, b.Attempts())
	require.Equal(t, Initial, b.current)
}

func TestAttemptsCountsCalls(t *testing.T) {
	b := NewWithSeed(4)
	require.Equal(t, 0, b.Attempts())
	b.Next()
	require.Equal(t, 1, b.Attempts())
}
