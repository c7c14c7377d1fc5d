// Package crawler implements DocBro's documentation crawler (spec §4.F): a
// frontier-driven worker pool with per-host rate limiting, robots.txt
// compliance, exponential backoff retry, and goquery-based HTML extraction.
package crawler

import (
	"net/url"
	"strings"
)

// Normalize canonicalizes a URL for frontier/seen-set deduplication (spec
// §4.F): lowercases the scheme, strips the default port, drops the
// fragment, and canonicalizes a trailing slash on the path.
func Normalize(raw string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", err
	}
	u.Scheme = strings.ToLower(u.Scheme)
	u.Fragment = ""

	host := u.Host
	if idx := strings.LastIndex(host, ":"); idx >= 0 {
		port := host[idx+1:]
		if (u.Scheme == "http" && port == "80") || (u.Scheme == "https" && port == "443") {
			host = host[:idx]
		}
	}
	u.Host = strings.ToLower(host)

	if u.Path == "" {
		u.Path = "/"
	} else if len(u.Path) > 1 && strings.HasSuffix(u.Path, "/") {
		u.Path = strings.TrimRight(u.Path, "/")
		if u.Path == "" {
			u.Path = "/"
		}
	}
	return u.String(), nil
}

// RegistrableDomain returns the eTLD+1-ish domain used to decide
// follow_external (a best-effort suffix match rather than a full public
// suffix list lookup, sufficient for the common case of "docs.example.com"
// vs "example.com").
func RegistrableDomain(host string) string {
	host = strings.ToLower(host)
	if idx := strings.LastIndex(host, ":"); idx >= 0 {
		host = host[:idx]
	}
	parts := strings.Split(host, ".")
	if len(parts) <= 2 {
		return host
	}
	return strings.Join(parts[len(parts)-2:], ".")
}

// SameRegistrableDomain reports whether candidate belongs to the seed's
// registrable domain, used to enforce follow_external=false.
func SameRegistrableDomain(seedHost, candidateHost string) bool {
	return RegistrableDomain(seedHost) == RegistrableDomain(candidateHost)
}
