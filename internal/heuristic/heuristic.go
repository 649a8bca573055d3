// Package heuristic implements the candidate generator from spec.md
// §4.2: a deterministic, bounded synthesis of plausible subdomain
// labels with no wordlist required. Ordering and composition follow
// spec.md exactly; original_source/src/discovery.rs's iterative
// "dynamic_extend" (seeding further rounds from discovered names) is
// intentionally not carried — that is recursive enumeration of
// discovered names, which spec.md's Non-goals exclude.
package heuristic

// services is the curated ~60-entry service-label dictionary.
var services = []string{
	"www", "api", "admin", "cdn", "app", "mail", "static", "ftp", "vpn", "smtp",
	"pop", "imap", "webmail", "blog", "shop", "store", "portal", "dashboard", "gateway", "secure",
	"sso", "auth", "login", "account", "billing", "payments", "checkout", "cart", "support", "help",
	"docs", "status", "monitor", "metrics", "grafana", "kibana", "elastic", "search", "db", "database",
	"mysql", "postgres", "redis", "cache", "queue", "kafka", "files", "upload", "download", "assets",
	"media", "images", "edge", "origin", "proxy", "ns1", "ns2", "mx", "git", "ci",
}

// envs is the environment-tag dictionary.
var envs = []string{"prod", "dev", "staging", "test", "demo", "qa", "uat"}

// regions is the region dictionary.
var regions = []string{"us", "eu", "cn", "ap", "uk", "jp", "in"}

// nums is the numeric-suffix dictionary.
var nums = []string{"1", "2", "01", "02", "2023", "2024", "2025"}

// Generate returns a deterministic, bounded, duplicate-free sequence of
// candidate FQDNs under apex, in the priority order spec.md §4.2
// defines: bare service labels, then environment tags, then regions,
// then numeric suffixes, then the three cross-joins.
func Generate(apex string, max int) []string {
	if max <= 0 {
		return nil
	}
	seen := make(map[string]struct{}, max)
	out := make([]string, 0, max)

	add := func(label string) bool {
		if _, ok := seen[label]; ok {
			return false
		}
		seen[label] = struct{}{}
		fqdn := label + "." + apex
		out = append(out, fqdn)
		return len(out) >= max
	}

	for _, s := range services {
		if add(s) {
			return out
		}
	}
	for _, e := range envs {
		if add(e) {
			return out
		}
	}
	for _, r := range regions {
		if add(r) {
			return out
		}
	}
	for _, n := range nums {
		if add(n) {
			return out
		}
	}
	for _, s := range services {
		for _, e := range envs {
			if add(s + "-" + e) {
				return out
			}
		}
	}
	for _, s := range services {
		for _, r := range regions {
			if add(s + "-" + r) {
				return out
			}
		}
	}
	for _, e := range envs {
		for _, s := range services {
			if add(e + "-" + s) {
				return out
			}
		}
	}
	return out
}

// PoolSize reports the maximum number of unique candidates Generate
// can ever produce for an apex, used by property tests.
func PoolSize() int {
	size := len(services) + len(envs) + len(regions) + len(nums)
	seen := make(map[string]struct{})
	for _, s := range services {
		for _, e := range envs {
			seen[s+"-"+e] = struct{}{}
		}
		for _, r := range regions {
			seen[s+"-"+r] = struct{}{}
		}
	}
	for _, e := range envs {
		for _, s := range services {
			seen[e+"-"+s] = struct{}{}
		}
	}
	return size + len(seen)
}
