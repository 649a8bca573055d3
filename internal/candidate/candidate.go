// Package candidate provides the lazy candidate-FQDN sources spec.md
// §4.4 requires: a heuristic (bounded, in-memory) source and a
// wordlist (lazily read, disk-backed) source behind one interface, and
// a round-robin Stream that interleaves multiple apexes so the
// wildcard-detection warmup is shared across the pool.
package candidate

import (
	"bufio"
	"io"
	"strings"
	"sync"

	"rusub/internal/apex"
	"rusub/internal/heuristic"
)

// LabelSource yields bare labels (not yet joined to an apex), lazily.
type LabelSource interface {
	Next() (label string, ok bool)
}

// heuristicSource replays a precomputed, bounded slice. Heuristic
// generation is itself bounded and cheap, so materializing it is fine;
// the scheduler never materializes the wordlist equivalent.
type heuristicSource struct {
	labels []string
	pos    int
}

// NewHeuristicSource builds a LabelSource from the heuristic generator
// bounded to max candidates for apexDomain.
func NewHeuristicSource(apexDomain string, max int) LabelSource {
	fqdns := heuristic.Generate(apexDomain, max)
	labels := make([]string, len(fqdns))
	suffix := "." + apexDomain
	for i, f := range fqdns {
		labels[i] = strings.TrimSuffix(f, suffix)
	}
	return &heuristicSource{labels: labels}
}

func (h *heuristicSource) Next() (string, bool) {
	if h.pos >= len(h.labels) {
		return "", false
	}
	l := h.labels[h.pos]
	h.pos++
	return l, true
}

// wordlistSource lazily reads one label per line from a io.Reader,
// never materializing the whole file in memory.
type wordlistSource struct {
	scanner *bufio.Scanner
}

// NewWordlistSource wraps r (typically an *os.File) as a LabelSource.
// Blank lines and lines starting with '#' are skipped.
func NewWordlistSource(r io.Reader) LabelSource {
	return &wordlistSource{scanner: bufio.NewScanner(r)}
}

func (w *wordlistSource) Next() (string, bool) {
	for w.scanner.Scan() {
		line := strings.TrimSpace(w.scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		return line, true
	}
	return "", false
}

// apexSlot pairs one apex with its label source for round-robin draw.
type apexSlot struct {
	apex   apex.Domain
	source LabelSource
	done   bool
}

// Stream interleaves candidate FQDNs from multiple apexes round-robin,
// so that per-apex wildcard-detection warmup (triggered lazily by the
// scheduler on first candidate per apex) overlaps across apexes
// instead of running apex-by-apex. Next is safe for concurrent use by
// the scheduler's worker pool.
type Stream struct {
	mu    sync.Mutex
	slots []*apexSlot
	next  int
}

// NewStream builds a round-robin Stream over apex/source pairs.
func NewStream(apexes []apex.Domain, sources []LabelSource) *Stream {
	slots := make([]*apexSlot, len(apexes))
	for i := range apexes {
		slots[i] = &apexSlot{apex: apexes[i], source: sources[i]}
	}
	return &Stream{slots: slots}
}

// Next returns the next candidate FQDN and its owning apex, or
// ok=false once every source is exhausted.
func (s *Stream) Next() (fqdn string, apex string, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := len(s.slots)
	for tries := 0; tries < n; tries++ {
		i := s.next
		s.next = (s.next + 1) % n
		slot := s.slots[i]
		if slot.done {
			continue
		}
		label, got := slot.source.Next()
		if !got {
			slot.done = true
			continue
		}
		return slot.apex.Join(label), slot.apex.String(), true
	}
	return "", "", false
}
