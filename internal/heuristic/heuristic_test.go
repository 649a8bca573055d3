package heuristic

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGenerateDeterministicAndUnique(t *testing.T) {
	apex := "example.test"
	for _, max := range []int{0, 1, 4, 60, 67, 200, 2048} {
		a := Generate(apex, max)
		b := Generate(apex, max)
		require.Equal(t, a, b, "generate must be deterministic for max=%d", max)

		seen := make(map[string]struct{}, len(a))
		for _, fqdn := range a {
			require.True(t, strings.HasSuffix(fqdn, "."+apex), "fqdn %q must be suffixed by apex", fqdn)
			_, dup := seen[fqdn]
			require.False(t, dup, "duplicate fqdn %q for max=%d", fqdn, max)
			seen[fqdn] = struct{}{}
		}

		want := max
		if want > PoolSize() {
			want = PoolSize()
		}
		if max <= 0 {
			want = 0
		}
		require.Len(t, a, want, "max=%d", max)
	}
}

func TestGeneratePriorityOrder(t *testing.T) {
	out := Generate("example.test", 4)
	require.Equal(t, []string{
		"www.example.test",
		"api.example.test",
		"admin.example.test",
		"cdn.example.test",
	}, out)
}

func TestGenerateZeroOrNegativeMax(t *testing.T) {
	require.Nil(t, Generate("example.test", 0))
	require.Nil(t, Generate("example.test", -5))
}

func TestPoolSizeIsUpperBound(t *testing.T) {
	out := Generate("example.test", PoolSize()+500)
	require.Len(t, out, PoolSize())
}
