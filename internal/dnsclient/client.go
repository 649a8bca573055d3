// Package dnsclient implements the raw-UDP DNS client from spec.md §4.1.
//
// It never goes through the host resolver: every attempt opens its own
// UDP socket, sends a packed message, and reads until a matching
// response arrives or the per-attempt deadline passes. Resolver
// rotation and retry live here; wire encode/decode is delegated to
// internal/dnswire (itself a thin shell over github.com/miekg/dns, the
// teacher's DNS dependency).
package dnsclient

import (
	"context"
	"net"
	"time"

	"github.com/miekg/dns"
	"github.com/phayes/freeport"

	"rusub/internal/dnswire"
	"rusub/internal/errs"
	"rusub/internal/gologger"
	"rusub/internal/resolvers"
)

// Answer is the result of a single (name, type) query.
type Answer struct {
	Records   []dnswire.Record
	Truncated bool
}

// Client issues raw-UDP DNS queries against a rotating resolver pool.
type Client struct {
	pool    *resolvers.Pool
	timeout time.Duration
	retries int
	readBuf int
	wait    func(context.Context) error
}

// SetWaiter installs a hook invoked before every wire send (including
// retries), letting a caller gate sends through a rate limiter per
// spec.md §4.4 ("tokens are consumed on wire send, including retries").
func (c *Client) SetWaiter(f func(context.Context) error) { c.wait = f }

// New builds a Client over pool. retries is the maximum number of
// attempts (spec.md default 3); rotation across attempts follows
// pool.ByAttempt, spec.md §4.1's deterministic "resolvers[k mod N]"
// scheme with disabled resolvers skipped. Per-resolver outcomes are
// reported back to pool so its health tracking (SPEC_FULL.md
// "Supplemented features" #1) actually removes a dead resolver from
// rotation instead of just recording that it's dead.
//
// New probes the OS for one free UDP port via freeport.GetFreePort, the
// same preflight kaleter101-ksubdomain's runner does before it starts
// sending, as a cheap check that the ephemeral port space isn't
// exhausted before thousands of per-attempt sockets are opened. The
// probed port itself is not reused — concurrent attempts each still get
// their own OS-assigned ephemeral port — only the preflight result is kept.
func New(pool *resolvers.Pool, timeout time.Duration, retries int) *Client {
	if retries < 1 {
		retries = 1
	}
	if _, err := freeport.GetFreePort(); err != nil {
		gologger.Warnf("ephemeral UDP port preflight failed: %s", err)
	}
	return &Client{
		pool:    pool,
		timeout: timeout,
		retries: retries,
		readBuf: 1500,
	}
}

// Query resolves one (name, type) pair, honoring the deadline and
// retry policy in spec.md §4.1.
func (c *Client) Query(ctx context.Context, name string, qtype uint16) (Answer, error) {
	if err := dnswire.ValidateName(name); err != nil {
		return Answer{}, err
	}
	if len(c.pool.Addrs()) == 0 {
		return Answer{}, errs.New(errs.NoResolvers, nil)
	}

	var lastErr error
	for attempt := 0; attempt < c.retries; attempt++ {
		if err := ctx.Err(); err != nil {
			return Answer{}, errs.New(errs.Cancelled, err)
		}
		resolver := c.pool.ByAttempt(attempt)
		ans, err := c.attempt(ctx, name, qtype, resolver)
		if err == nil {
			c.pool.ReportOK(resolver)
			return ans, nil
		}
		if errs.Is(err, errs.Nxdomain) {
			// terminal, and not a resolver fault: no retry, no ReportFail
			return Answer{}, err
		}
		c.pool.ReportFail(resolver)
		lastErr = err
	}
	return Answer{}, lastErr
}

func (c *Client) attempt(ctx context.Context, name string, qtype uint16, resolver string) (Answer, error) {
	msg, err := dnswire.BuildQuery(name, qtype)
	if err != nil {
		return Answer{}, err
	}
	raw, err := dnswire.Pack(msg)
	if err != nil {
		return Answer{}, err
	}

	if c.wait != nil {
		if err := c.wait(ctx); err != nil {
			return Answer{}, errs.New(errs.Cancelled, err)
		}
	}

	conn, err := net.Dial("udp", resolver)
	if err != nil {
		return Answer{}, errs.Newf(errs.NetworkError, "dial %s: %w", resolver, err)
	}
	defer conn.Close()

	deadline := time.Now().Add(c.timeout)
	if err := conn.SetDeadline(deadline); err != nil {
		return Answer{}, errs.Newf(errs.NetworkError, "set deadline: %w", err)
	}
	if _, err := conn.Write(raw); err != nil {
		return Answer{}, errs.Newf(errs.NetworkError, "write: %w", err)
	}

	buf := make([]byte, c.readBuf)
	for {
		if ctx.Err() != nil {
			return Answer{}, errs.New(errs.Cancelled, ctx.Err())
		}
		n, err := conn.Read(buf)
		if err != nil {
			if ne, ok := err.(net.Error); ok && ne.Timeout() {
				return Answer{}, errs.New(errs.Timeout, err)
			}
			return Answer{}, errs.Newf(errs.NetworkError, "read: %w", err)
		}
		pa, perr := dnswire.Parse(buf[:n])
		if perr != nil {
			// garbage/spoofed datagram: keep waiting until the deadline
			continue
		}
		if !dnswire.MatchesQuery(pa, msg.Id, name, qtype) {
			continue
		}
		switch pa.Rcode {
		case dns.RcodeNameError:
			return Answer{}, errs.New(errs.Nxdomain, nil)
		case dns.RcodeServerFailure:
			return Answer{}, errs.Newf(errs.NetworkError, "SERVFAIL from %s", resolver)
		case dns.RcodeRefused:
			return Answer{}, errs.Newf(errs.NetworkError, "REFUSED from %s", resolver)
		case dns.RcodeSuccess:
			return Answer{Records: pa.Records, Truncated: pa.Truncated}, nil
		default:
			return Answer{}, errs.Newf(errs.NetworkError, "unexpected rcode %s from %s", dnswire.DescribeRcode(pa.Rcode), resolver)
		}
	}
}

// QueryFull issues A and AAAA in parallel, follows CNAME chains up to
// depth 8, and returns the union of terminal address records plus
// every CNAME hop encountered. Fails only if both branches fail.
func (c *Client) QueryFull(ctx context.Context, name string) ([]dnswire.Record, error) {
	type branch struct {
		records []dnswire.Record
		err     error
	}
	out := make(chan branch, 2)
	go func() {
		r, err := c.resolveChain(ctx, name, dns.TypeA)
		out <- branch{r, err}
	}()
	go func() {
		r, err := c.resolveChain(ctx, name, dns.TypeAAAA)
		out <- branch{r, err}
	}()

	var all []dnswire.Record
	var failures int
	var lastErr error
	for i := 0; i < 2; i++ {
		b := <-out
		if b.err != nil {
			failures++
			lastErr = b.err
			continue
		}
		all = append(all, b.records...)
	}
	if failures == 2 {
		return nil, lastErr
	}
	return dedupe(all), nil
}

const maxCnameDepth = 8

// resolveChain follows CNAME hops for a single record type, returning
// every hop encountered plus the terminal address records (if any).
func (c *Client) resolveChain(ctx context.Context, name string, qtype uint16) ([]dnswire.Record, error) {
	var hops []dnswire.Record
	cur := name
	for depth := 0; depth < maxCnameDepth; depth++ {
		ans, err := c.Query(ctx, cur, qtype)
		if err != nil {
			if errs.Is(err, errs.Nxdomain) {
				return hops, nil
			}
			return nil, err
		}
		var cname string
		var terminal []dnswire.Record
		for _, r := range ans.Records {
			switch r.RType {
			case "CNAME":
				cname = r.Data
				hops = append(hops, r)
			case "A", "AAAA":
				terminal = append(terminal, r)
			}
		}
		if len(terminal) > 0 {
			return append(hops, terminal...), nil
		}
		if cname == "" {
			return hops, nil
		}
		cur = cname
	}
	return nil, errs.Newf(errs.Malformed, "cname chain for %s exceeded depth %d", name, maxCnameDepth)
}

func dedupe(records []dnswire.Record) []dnswire.Record {
	seen := make(map[dnswire.Record]struct{}, len(records))
	out := make([]dnswire.Record, 0, len(records))
	for _, r := range records {
		if _, ok := seen[r]; ok {
			continue
		}
		seen[r] = struct{}{}
		out = append(out, r)
	}
	return out
}
