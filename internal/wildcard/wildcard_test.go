package wildcard

import (
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRandomLabelShapeAndUniqueness(t *testing.T) {
	seen := make(map[string]struct{})
	for i := 0; i < 50; i++ {
		l, err := randomLabel()
		require.NoError(t, err)
		require.Len(t, l, 16)
		_, err = hex.DecodeString(l)
		require.NoError(t, err, "label must be hex")
		_, dup := seen[l]
		require.False(t, dup)
		seen[l] = struct{}{}
	}
}

func newProfile(ips ...string) Profile {
	p := make(Profile, len(ips))
	for _, ip := range ips {
		p[ip] = struct{}{}
	}
	return p
}

func TestIsFilteredSubsetSuppressed(t *testing.T) {
	profile := newProfile("10.0.0.1")
	require.True(t, IsFiltered([]string{"10.0.0.1"}, profile, false))
}

func TestIsFilteredNonSubsetKept(t *testing.T) {
	profile := newProfile("10.0.0.1")
	require.False(t, IsFiltered([]string{"203.0.113.5"}, profile, false))
	require.False(t, IsFiltered([]string{"10.0.0.1", "203.0.113.5"}, profile, false))
}

func TestIsFilteredCrossApexCNAMEException(t *testing.T) {
	profile := newProfile("10.0.0.1")
	require.False(t, IsFiltered([]string{"10.0.0.1"}, profile, true))
}

func TestIsFilteredEmptyProfileOrAnswersNeverSuppresses(t *testing.T) {
	require.False(t, IsFiltered([]string{"10.0.0.1"}, Profile{}, false))
	require.False(t, IsFiltered(nil, newProfile("10.0.0.1"), false))
}
