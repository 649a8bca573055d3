// Package resolvers implements the resolver-source adapter (spec.md
// §4.5) and a health-tracked resolver pool with cooldown-based
// re-enable, supplemented from original_source/src/resolver_pool.rs
// (SPEC_FULL.md "Supplemented features" #1).
package resolvers

import (
	"net"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"rusub/internal/errs"
)

const defaultPort = "53"

var fallback = []string{"1.1.1.1:53", "8.8.8.8:53"}

// Collect builds the ordered, deduplicated, non-loopback, IPv4-only
// resolver list per spec.md §4.5: user-supplied first, then
// OS-provided (supplied by the caller, since OS discovery is an
// external collaborator), then the fallback pair.
func Collect(userSupplied, osProvided []string) ([]string, error) {
	var ordered []string
	ordered = append(ordered, userSupplied...)
	ordered = append(ordered, osProvided...)
	ordered = append(ordered, fallback...)

	seen := make(map[string]struct{}, len(ordered))
	out := make([]string, 0, len(ordered))
	for _, raw := range ordered {
		addr, err := normalize(raw)
		if err != nil {
			continue
		}
		if _, ok := seen[addr]; ok {
			continue
		}
		seen[addr] = struct{}{}
		out = append(out, addr)
	}
	if len(out) == 0 {
		return nil, errs.New(errs.NoResolvers, nil)
	}
	return out, nil
}

func normalize(raw string) (string, error) {
	host, port, err := net.SplitHostPort(raw)
	if err != nil {
		host = raw
		port = defaultPort
	}
	ip := net.ParseIP(host)
	if ip == nil {
		return "", errs.Newf(errs.CliError, "invalid resolver address %q", raw)
	}
	if ip.To4() == nil {
		return "", errs.Newf(errs.CliError, "ipv6 resolver not supported: %q", raw)
	}
	if ip.IsLoopback() {
		return "", errs.Newf(errs.CliError, "loopback resolver rejected: %q", raw)
	}
	if port == "" {
		port = defaultPort
	}
	if _, err := strconv.Atoi(port); err != nil {
		return "", errs.Newf(errs.CliError, "invalid resolver port in %q", raw)
	}
	return net.JoinHostPort(ip.String(), port), nil
}

// entry tracks health counters for one resolver endpoint.
type entry struct {
	addr       string
	ok         atomic.Uint64
	fail       atomic.Uint64
	disabled   atomic.Bool
	disabledAt atomic.Int64 // unix nanos, 0 if not disabled
}

func (e *entry) shouldDisable() bool {
	ok := e.ok.Load()
	fail := e.fail.Load()
	total := ok + fail
	if total >= 20 {
		return float64(fail)/float64(total) > 0.8
	}
	return fail >= 10 && ok == 0
}

func (e *entry) maybeReenable(cooldown time.Duration) {
	if !e.disabled.Load() {
		return
	}
	ts := e.disabledAt.Load()
	if ts == 0 {
		return
	}
	if time.Since(time.Unix(0, ts)) >= cooldown {
		e.ok.Store(0)
		e.fail.Store(0)
		e.disabled.Store(false)
		e.disabledAt.Store(0)
	}
}

// Stat is a point-in-time health snapshot for one resolver.
type Stat struct {
	Addr     string `json:"addr"`
	OK       uint64 `json:"ok"`
	Fail     uint64 `json:"fail"`
	Disabled bool   `json:"disabled"`
}

// Pool is an immutable-after-construction, health-tracked resolver
// rotation. Shared read-only across workers except for the atomic
// health counters, matching spec.md §5's shared-resource policy.
type Pool struct {
	order    []*entry
	byAddr   map[string]*entry
	cooldown atomic.Int64 // nanoseconds
	mu       sync.Mutex
	onDisable func(addr string)
}

// NewPool builds a Pool over addrs, preserving order.
func NewPool(addrs []string) *Pool {
	p := &Pool{byAddr: make(map[string]*entry, len(addrs))}
	p.cooldown.Store(int64(60 * time.Second))
	for _, a := range addrs {
		e := &entry{addr: a}
		p.order = append(p.order, e)
		p.byAddr[a] = e
	}
	return p
}

// SetCooldown overrides the re-enable cooldown (default 60s).
func (p *Pool) SetCooldown(d time.Duration) { p.cooldown.Store(int64(d)) }

// OnDisable registers a callback fired when a resolver is disabled.
func (p *Pool) OnDisable(cb func(addr string)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.onDisable = cb
}

// ByAttempt returns the resolver for attempt k, starting from spec.md
// §4.1's deterministic "resolvers[k mod N]" rotation and then probing
// forward past any currently disabled entries, reenabling ones whose
// cooldown has elapsed along the way. While every resolver stays
// healthy this reduces to the plain k mod N pick; once ReportFail has
// disabled one, rotation skips it instead of continuing to hand it
// attempts forever. If every resolver is disabled, falls back to the
// raw k mod N pick so a query is still attempted (and its outcome can
// surface the outage) rather than returning no resolver at all.
func (p *Pool) ByAttempt(k int) string {
	n := len(p.order)
	if n == 0 {
		return ""
	}
	cooldown := time.Duration(p.cooldown.Load())
	start := k % n
	for i := 0; i < n; i++ {
		e := p.order[(start+i)%n]
		e.maybeReenable(cooldown)
		if !e.disabled.Load() {
			return e.addr
		}
	}
	return p.order[start].addr
}

// Addrs returns the full ordered resolver list.
func (p *Pool) Addrs() []string {
	out := make([]string, len(p.order))
	for i, e := range p.order {
		out[i] = e.addr
	}
	return out
}

// ReportOK records a successful query against addr.
func (p *Pool) ReportOK(addr string) {
	if e, ok := p.byAddr[addr]; ok {
		e.ok.Add(1)
	}
}

// ReportFail records a failed query against addr, disabling it (and
// firing the OnDisable callback) if the failure heuristics trip:
// >=20 attempts with >80% failures, or >=10 failures with zero oks.
func (p *Pool) ReportFail(addr string) {
	e, ok := p.byAddr[addr]
	if !ok {
		return
	}
	e.fail.Add(1)
	if e.shouldDisable() && e.disabled.CompareAndSwap(false, true) {
		e.disabledAt.Store(time.Now().UnixNano())
		p.mu.Lock()
		cb := p.onDisable
		p.mu.Unlock()
		if cb != nil {
			cb(addr)
		}
	}
}

// Counts returns (active, total) resolver counts.
func (p *Pool) Counts() (active, total int) {
	cooldown := time.Duration(p.cooldown.Load())
	total = len(p.order)
	for _, e := range p.order {
		e.maybeReenable(cooldown)
		if !e.disabled.Load() {
			active++
		}
	}
	return active, total
}

// Snapshot reports per-resolver health, for the CLI's end-of-run stats.
func (p *Pool) Snapshot() []Stat {
	out := make([]Stat, 0, len(p.order))
	for _, e := range p.order {
		out = append(out, Stat{
			Addr:     e.addr,
			OK:       e.ok.Load(),
			Fail:     e.fail.Load(),
			Disabled: e.disabled.Load(),
		})
	}
	return out
}

// ParseList splits a comma/newline/whitespace-separated resolver list,
// used when reading a user-supplied resolver file.
func ParseList(s string) []string {
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || r == '\n' || r == '\r' || r == ' ' || r == '\t'
	})
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		if f = strings.TrimSpace(f); f != "" {
			out = append(out, f)
		}
	}
	return out
}
