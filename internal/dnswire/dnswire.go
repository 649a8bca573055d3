// Package dnswire builds and parses raw DNS wire messages.
//
// Encoding/decoding itself is delegated to github.com/miekg/dns (the
// teacher's DNS dependency) since hand-rolling a wire-format codec when
// the pack already reaches for a library to do it would defeat the
// point of learning this corpus's idioms. What this package owns is
// the part spec.md calls out explicitly: name/label length validation
// before a packet is ever built, and the {A,AAAA,CNAME,TXT} record
// projection the rest of the engine consumes instead of *dns.Msg.
package dnswire

import (
	"fmt"
	"strings"

	"github.com/miekg/dns"
	"rusub/internal/errs"
)

// Record is a tagged DNS answer, matching the four RR types the
// engine understands. Unknown types are dropped by Parse.
type Record struct {
	RType string // "A" | "AAAA" | "CNAME" | "TXT"
	Data  string
}

const (
	maxLabelLen = 63
	maxNameLen  = 255
)

// ValidateName checks the label and total-name length limits from
// spec.md §4.1 before any packet is built.
func ValidateName(name string) error {
	n := strings.TrimSuffix(name, ".")
	if n == "" {
		return errs.Newf(errs.Malformed, "empty name")
	}
	labels := strings.Split(n, ".")
	total := 0
	for _, l := range labels {
		if len(l) == 0 {
			return errs.Newf(errs.Malformed, "empty label in name %q", name)
		}
		if len(l) > maxLabelLen {
			return errs.Newf(errs.Malformed, "label %q exceeds %d octets", l, maxLabelLen)
		}
		total += len(l) + 1 // length prefix octet
	}
	total++ // terminating null
	if total > maxNameLen {
		return errs.Newf(errs.Malformed, "name %q exceeds %d octets", name, maxNameLen)
	}
	return nil
}

// BuildQuery constructs a single-question query message for name/qtype
// with a uniformly random 16-bit transaction ID, ready to be packed
// and sent over UDP. Validates the name first so malformed input never
// reaches the wire.
func BuildQuery(name string, qtype uint16) (*dns.Msg, error) {
	if err := ValidateName(name); err != nil {
		return nil, err
	}
	m := new(dns.Msg)
	m.Id = dns.Id()
	m.RecursionDesired = true
	m.Question = []dns.Question{{
		Name:   dns.Fqdn(name),
		Qtype:  qtype,
		Qclass: dns.ClassINET,
	}}
	return m, nil
}

// Pack serializes m. Messages are limited to 512 bytes on send: Pack
// does not truncate, it rejects a larger result with a Malformed error.
func Pack(m *dns.Msg) ([]byte, error) {
	buf, err := m.Pack()
	if err != nil {
		return nil, errs.Newf(errs.Malformed, "pack: %w", err)
	}
	if len(buf) > 512 {
		return nil, errs.Newf(errs.Malformed, "message exceeds 512 bytes (%d)", len(buf))
	}
	return buf, nil
}

// ParsedAnswer is the outcome of decoding one response datagram.
type ParsedAnswer struct {
	ID        uint16
	Rcode     int
	Truncated bool
	Records   []Record
	Question  dns.Question
}

// Parse decodes raw bytes into a ParsedAnswer, projecting RRs down to
// the {A,AAAA,CNAME,TXT} the engine tracks. Unknown types and non-IN
// classes are silently skipped, matching spec.md's parser contract.
// Pointer-loop protection comes from miekg/dns's decoder, which caps
// the compression pointers it follows per name at its own limit; no
// separate 16-hop bound is applied here. A malformed/cyclic message
// comes back as a decode error rather than hanging or over-allocating.
func Parse(raw []byte) (*ParsedAnswer, error) {
	msg := new(dns.Msg)
	if err := msg.Unpack(raw); err != nil {
		return nil, errs.Newf(errs.Malformed, "unpack: %w", err)
	}
	pa := &ParsedAnswer{
		ID:        msg.Id,
		Rcode:     msg.Rcode,
		Truncated: msg.Truncated,
	}
	if len(msg.Question) > 0 {
		pa.Question = msg.Question[0]
	}
	for _, rr := range msg.Answer {
		if rr.Header().Class != dns.ClassINET {
			continue
		}
		switch v := rr.(type) {
		case *dns.A:
			pa.Records = append(pa.Records, Record{RType: "A", Data: v.A.String()})
		case *dns.AAAA:
			pa.Records = append(pa.Records, Record{RType: "AAAA", Data: v.AAAA.String()})
		case *dns.CNAME:
			pa.Records = append(pa.Records, Record{RType: "CNAME", Data: normalizeTarget(v.Target)})
		case *dns.TXT:
			pa.Records = append(pa.Records, Record{RType: "TXT", Data: strings.Join(v.Txt, "")})
		default:
			// unknown RR type, discarded
		}
	}
	return pa, nil
}

// normalizeTarget lowercases and strips the trailing dot from a CNAME
// target, per spec.md's "records[*].data for CNAME always lowercase,
// trailing-dot-stripped" invariant. IDNA encoding is assumed to already
// hold for names arriving over the wire from a conforming resolver.
func normalizeTarget(target string) string {
	return strings.ToLower(strings.TrimSuffix(target, "."))
}

// MatchesQuery reports whether a parsed answer's ID and question match
// the attempt that sent it; mismatches must be discarded and the
// attempt must keep waiting until its deadline (spec.md §4.1).
func MatchesQuery(pa *ParsedAnswer, wantID uint16, wantName string, wantType uint16) bool {
	if pa.ID != wantID {
		return false
	}
	if pa.Question.Qtype != wantType {
		return false
	}
	return strings.EqualFold(dns.Fqdn(pa.Question.Name), dns.Fqdn(wantName))
}

// DescribeRcode renders an rcode for logging/metrics.
func DescribeRcode(rcode int) string {
	return fmt.Sprintf("%s(%d)", dns.RcodeToString[rcode], rcode)
}
