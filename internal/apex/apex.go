// Package apex normalizes apex domain input per spec.md §3: lowercase,
// IDNA-encoded, registrable-name form, fixed for the lifetime of a
// scan. Registrability is checked with weppos/publicsuffix-go, one of
// the teacher's direct dependencies.
package apex

import (
	"strings"

	"github.com/weppos/publicsuffix-go/publicsuffix"
	"golang.org/x/net/idna"

	"rusub/internal/errs"
)

// Domain is a normalized apex domain. Immutable once constructed.
type Domain struct {
	value string
}

func (d Domain) String() string { return d.value }

var profile = idna.New(
	idna.MapForLookup(),
	idna.Transitional(false),
	idna.BidiRule(),
)

// Normalize lowercases, trims a trailing dot, and IDNA-encodes raw,
// then validates it parses as a registrable domain.
func Normalize(raw string) (Domain, error) {
	s := strings.TrimSpace(raw)
	s = strings.TrimSuffix(s, ".")
	if s == "" {
		return Domain{}, errs.Newf(errs.CliError, "empty apex domain")
	}
	ascii, err := profile.ToASCII(s)
	if err != nil {
		return Domain{}, errs.Newf(errs.CliError, "idna encode %q: %w", raw, err)
	}
	ascii = strings.ToLower(ascii)
	if _, err := publicsuffix.Parse(ascii); err != nil {
		return Domain{}, errs.Newf(errs.CliError, "not a registrable domain %q: %w", raw, err)
	}
	return Domain{value: ascii}, nil
}

// Join builds a candidate FQDN from a label and this apex.
func (d Domain) Join(label string) string {
	return label + "." + d.value
}

// SameApex reports whether name's registrable base equals this apex,
// used by the wildcard filter's CNAME cross-apex exception.
func (d Domain) SameApex(name string) bool {
	n := strings.ToLower(strings.TrimSuffix(name, "."))
	base, err := publicsuffix.Domain(n)
	if err != nil {
		return false
	}
	return base == d.value || strings.HasSuffix(n, "."+d.value) || n == d.value
}
