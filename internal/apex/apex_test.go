package apex

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNormalizeLowercasesAndTrimsDot(t *testing.T) {
	d, err := Normalize("Example.TEST.")
	require.NoError(t, err)
	require.Equal(t, "example.test", d.String())
}

func TestNormalizeRejectsEmpty(t *testing.T) {
	_, err := Normalize("   ")
	require.Error(t, err)
}

func TestJoin(t *testing.T) {
	d, err := Normalize("example.test")
	require.NoError(t, err)
	require.Equal(t, "www.example.test", d.Join("www"))
}

func TestSameApex(t *testing.T) {
	d, err := Normalize("example.test")
	require.NoError(t, err)

	require.True(t, d.SameApex("example.test"))
	require.True(t, d.SameApex("beta.example.test"))
	require.False(t, d.SameApex("evil.test"))
}
