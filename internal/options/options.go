// Package options mirrors the CLI surface from spec.md §6 field-for-field,
// so the scanner and the cmd/rusub entry point share one source of
// defaults instead of each hardcoding them.
package options

import (
	"strconv"
	"strings"

	"rusub/internal/errs"
)

// Defaults from spec.md §6's flag table.
const (
	DefaultHeuristicMax = 512
	DefaultConcurrency  = 500
	DefaultBand         = "3m"
	DefaultTimeout      = 6
	DefaultRetry        = 3
	DefaultOutputType   = "jsonl"
	DefaultLogLevel     = "info"
)

// Options holds one scan's configuration.
type Options struct {
	Domains        []string
	DomainList     string
	Stdin          bool
	Filename       string // wordlist path; empty means heuristic mode
	HeuristicMax   int
	Resolvers      []string
	Concurrency    int
	Band           string
	Timeout        int // seconds
	Retry          int
	Output         string
	OutputType     string
	Gzip           bool
	NotPrint       bool
	PureOutput     bool
	OnlyAlive      bool
	LogLevel       string
	CheckpointPath string
}

// New returns Options populated with spec.md's documented defaults.
func New() Options {
	return Options{
		HeuristicMax:   DefaultHeuristicMax,
		Concurrency:    DefaultConcurrency,
		Band:           DefaultBand,
		Timeout:        DefaultTimeout,
		Retry:          DefaultRetry,
		OutputType:     DefaultOutputType,
		LogLevel:       DefaultLogLevel,
		CheckpointPath: ".rusub-state.json",
	}
}

// ParseBand implements the -b/--band grammar from spec.md §6: a plain
// number (decimals allowed, e.g. "1.5m"), or a number suffixed with
// k/K (x1e3) or m/M (x1e6), truncated to a whole rate and
// expressed directly in queries/sec (not a bits-per-second
// conversion — see DESIGN.md's Open Question resolution).
func ParseBand(band string) (int64, error) {
	s := strings.TrimSpace(band)
	if s == "" {
		return 0, errs.Newf(errs.CliError, "empty band value")
	}
	mult := int64(1)
	switch last := s[len(s)-1]; last {
	case 'k', 'K':
		mult = 1_000
		s = s[:len(s)-1]
	case 'm':
		mult = 1_000_000
		s = s[:len(s)-1]
	case 'M':
		mult = 1_000_000
		s = s[:len(s)-1]
	}
	n, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, errs.Newf(errs.CliError, "invalid band value %q: %w", band, err)
	}
	if n < 0 {
		return 0, errs.Newf(errs.CliError, "band value must be >= 0: %q", band)
	}
	return int64(n * float64(mult)), nil
}
