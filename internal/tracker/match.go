package tracker

import (
	"net/url"
	"strings"

	"golang.org/x/net/publicsuffix"

	"github.com/runnerr0/detox/internal/storage"
)

// Hostname returns the lowercased host of an http(s) URL, or false for any
// other scheme or an unparsable URL.
func Hostname(rawURL string) (string, bool) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", false
	}
	switch strings.ToLower(u.Scheme) {
	case "http", "https":
	default:
		return "", false
	}
	host := strings.TrimSuffix(strings.ToLower(u.Hostname()), ".")
	if host == "" {
		return "", false
	}
	return host, true
}

// DomainMatches reports whether host belongs to domain: equal, or a
// subdomain on a label boundary. "x.com" matches "sub.x.com", not "notx.com".
func DomainMatches(host, domain string) bool {
	if domain == "" || host == "" {
		return false
	}
	return host == domain || strings.HasSuffix(host, "."+domain)
}

// MatchSite returns the index of the site tracking host. When several
// configured domains match, the longest one wins; equal lengths keep store
// order.
func MatchSite(sites []storage.Site, host string) (int, bool) {
	best := -1
	for i := range sites {
		if !DomainMatches(host, sites[i].Domain) {
			continue
		}
		if best < 0 || len(sites[i].Domain) > len(sites[best].Domain) {
			best = i
		}
	}
	return best, best >= 0
}

// registrableDomain keys the in-memory diagnostics accumulator.
func registrableDomain(host string) string {
	d, err := publicsuffix.EffectiveTLDPlusOne(host)
	if err != nil {
		return host
	}
	return d
}
