package options

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseBandPlainAndSuffixed(t *testing.T) {
	cases := map[string]int64{
		"100":  100,
		"3m":   3_000_000,
		"3M":   3_000_000,
		"250k": 250_000,
		"1.5m": 1_500_000,
		"0":    0,
	}
	for in, want := range cases {
		got, err := ParseBand(in)
		require.NoError(t, err, in)
		require.Equal(t, want, got, in)
	}
}

func TestParseBandRejectsInvalid(t *testing.T) {
	for _, in := range []string{"", "abc", "-5", "-3m"} {
		_, err := ParseBand(in)
		require.Error(t, err, in)
	}
}

func TestDefaultsMatchSpec(t *testing.T) {
	o := New()
	require.Equal(t, 512, o.HeuristicMax)
	require.Equal(t, 500, o.Concurrency)
	require.Equal(t, "3m", o.Band)
	require.Equal(t, 6, o.Timeout)
	require.Equal(t, 3, o.Retry)
	require.Equal(t, "jsonl", o.OutputType)
	require.Equal(t, "info", o.LogLevel)
}
