package extract

import (
	"net"
	"net/url"
	"strings"

	"golang.org/x/net/publicsuffix"
)

// Classification is the domain/subdomain split of one raw URL's host.
type Classification struct {
	Domain    string // registrable domain, e.g. example.co.uk
	Subdomain string // labels left of the registrable domain, empty when absent
}

// Classify resolves a raw URL to its registrable domain and subdomain. The
// host is lowercased; scheme, path and port are discarded. mailto links
// classify by the mail host. The second return is false when the URL has no
// usable hostname at all; such URLs are dropped and counted as misses.
func Classify(rawURL string) (Classification, bool) {
	host := hostOf(rawURL)
	if host == "" {
		return Classification{}, false
	}

	// Literal addresses carry no label structure; the address is the domain.
	if net.ParseIP(host) != nil {
		return Classification{Domain: host}, true
	}

	if !strings.Contains(host, ".") {
		return Classification{}, false
	}

	domain, err := publicsuffix.EffectiveTLDPlusOne(host)
	if err != nil {
		// Host not covered by the suffix table (or is itself a suffix):
		// best-effort last two labels rather than dropping it.
		labels := strings.Split(host, ".")
		if len(labels) < 2 {
			return Classification{}, false
		}
		domain = strings.Join(labels[len(labels)-2:], ".")
	}

	c := Classification{Domain: domain}
	if host != domain && strings.HasSuffix(host, "."+domain) {
		c.Subdomain = strings.TrimSuffix(host, "."+domain)
	}
	return c, true
}

// hostOf extracts the lowercased hostname from a raw link. Handles mailto
// addresses and schemeless hosts; returns "" when nothing parses.
func hostOf(rawURL string) string {
	raw := strings.TrimSpace(rawURL)
	if raw == "" {
		return ""
	}

	lower := strings.ToLower(raw)
	if strings.HasPrefix(lower, "mailto:") {
		addr := raw[len("mailto:"):]
		if i := strings.IndexAny(addr, "?&"); i >= 0 {
			addr = addr[:i]
		}
		at := strings.LastIndex(addr, "@")
		if at < 0 || at == len(addr)-1 {
			return ""
		}
		return strings.ToLower(strings.TrimSpace(addr[at+1:]))
	}

	u, err := url.Parse(raw)
	if err != nil || u.Hostname() == "" {
		// Bare hosts like "sub.example.com/path" parse without a scheme.
		u, err = url.Parse("http://" + raw)
		if err != nil {
			return ""
		}
	}

	host := strings.ToLower(u.Hostname())
	if host == "" || strings.ContainsAny(host, " \t") {
		return ""
	}
	return host
}
