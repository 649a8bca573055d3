// Package wildcard implements the catch-all detector from spec.md
// §4.3: K random-label probes per apex, frequency-classified into a
// wildcard address profile. The frequency-threshold approach is
// grounded on original_source/src/wildcard.rs's detect_wildcard_advanced,
// with a threshold of >=0.60. With K=6 probes that means an address must
// appear in at least 4 of 6 probes, the same cut as the 4/6 majority
// reading (see DESIGN.md).
package wildcard

import (
	"context"
	"crypto/rand"
	"encoding/hex"

	"rusub/internal/dnsclient"
	"rusub/internal/errs"
)

const (
	probeCount = 6
	threshold  = 0.60
)

// Profile is the per-apex set of addresses classified as catch-all.
// Constructed once, then read-only and shared across workers.
type Profile map[string]struct{}

// Contains reports whether ip is part of the wildcard profile.
func (p Profile) Contains(ip string) bool {
	_, ok := p[ip]
	return ok
}

// Detect runs the K=6 probe algorithm against apexDomain using client,
// returning the apex's wildcard Profile. Returns a WildcardUnknown
// error if more than half the probes fail outright (not counting a
// clean NXDOMAIN/no-answer outcome as a failure).
func Detect(ctx context.Context, client *dnsclient.Client, apexDomain string) (Profile, error) {
	freq := make(map[string]int)
	errCount := 0

	for i := 0; i < probeCount; i++ {
		label, err := randomLabel()
		if err != nil {
			errCount++
			continue
		}
		host := label + "." + apexDomain
		records, err := client.QueryFull(ctx, host)
		if err != nil {
			errCount++
			continue
		}
		for _, r := range records {
			if r.RType == "A" || r.RType == "AAAA" {
				freq[r.Data]++
			}
		}
	}

	if float64(errCount)/float64(probeCount) > 0.5 {
		return nil, errs.New(errs.WildcardUnknown, nil)
	}

	profile := make(Profile)
	for ip, c := range freq {
		if float64(c)/float64(probeCount) >= threshold {
			profile[ip] = struct{}{}
		}
	}
	return profile, nil
}

// randomLabel produces a 16-hex-character random label, per spec.md's
// "<16-hex-random>.<apex>" probe format.
func randomLabel() (string, error) {
	b := make([]byte, 8)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// IsFiltered implements the suppression rule from spec.md §4.3: a
// result is suppressed iff its non-empty address set is a subset of
// the wildcard profile AND no CNAME hop crosses the apex boundary.
func IsFiltered(answers []string, profile Profile, hasCrossApexCNAME bool) bool {
	if len(profile) == 0 || len(answers) == 0 {
		return false
	}
	if hasCrossApexCNAME {
		return false
	}
	for _, a := range answers {
		if !profile.Contains(a) {
			return false
		}
	}
	return true
}
