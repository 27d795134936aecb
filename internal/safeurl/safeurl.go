// Package safeurl validates and normalizes URLs submitted for analysis. The
// validator exists to stop the service being used as an SSRF proxy: any
// outbound fetch (crawl, redirect following) must pass Validate first, which
// rejects non-http schemes, internal hostnames, and addresses that resolve
// into private or reserved ranges.
package safeurl

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"strings"
)

// ErrUnsafeURL wraps all validation rejections so callers can map them to a
// single client-facing error class.
var ErrUnsafeURL = fmt.Errorf("unsafe url")

// blockedHostnames are always rejected regardless of what they resolve to.
var blockedHostnames = map[string]bool{
	"localhost":                true,
	"localhost.localdomain":    true,
	"metadata.google.internal": true,
	"metadata":                 true,
	"instance-data":            true,
}

// forbiddenV4 lists reserved IPv4 ranges beyond what the net package
// classifies itself.
var forbiddenV4 = mustParseCIDRs(
	"0.0.0.0/8",       // "this network"
	"100.64.0.0/10",   // carrier-grade NAT
	"192.0.0.0/24",    // IETF protocol assignments
	"192.0.2.0/24",    // TEST-NET-1
	"198.18.0.0/15",   // benchmarking
	"198.51.100.0/24", // TEST-NET-2
	"203.0.113.0/24",  // TEST-NET-3
	"240.0.0.0/4",     // reserved
)

var forbiddenV6 = mustParseCIDRs(
	"fc00::/7",  // unique local
	"2001:db8::/32",
)

func mustParseCIDRs(cidrs ...string) []*net.IPNet {
	nets := make([]*net.IPNet, 0, len(cidrs))
	for _, c := range cidrs {
		_, n, err := net.ParseCIDR(c)
		if err != nil {
			panic(err)
		}
		nets = append(nets, n)
	}
	return nets
}

// Normalize canonicalizes a URL for analysis: scheme and host lowercased,
// fragment removed, trailing slash stripped. Only http and https are
// accepted. Normalization is deterministic, so repeated analyses of the same
// input produce identical normalized URLs.
func Normalize(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", fmt.Errorf("%w: empty url", ErrUnsafeURL)
	}

	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnsafeURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("%w: scheme %q not allowed", ErrUnsafeURL, u.Scheme)
	}
	if u.Host == "" {
		return "", fmt.Errorf("%w: missing host", ErrUnsafeURL)
	}

	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	u.Fragment = ""
	u.Path = strings.TrimSuffix(u.Path, "/")

	return u.String(), nil
}

// Resolver is the DNS lookup dependency, injectable for tests.
type Resolver interface {
	LookupIP(ctx context.Context, network, host string) ([]net.IP, error)
}

// Validator decides whether an outbound fetch of a URL is safe. The resolver
// is injectable for tests.
type Validator struct {
	resolver Resolver
}

// NewValidator returns a validator using the system DNS resolver.
func NewValidator() *Validator {
	return &Validator{resolver: net.DefaultResolver}
}

// NewValidatorWithResolver returns a validator using a custom resolver.
func NewValidatorWithResolver(r Resolver) *Validator {
	return &Validator{resolver: r}
}

// Validate checks a normalized URL before any outbound request. It rejects
// blocked hostnames, literal internal IPs, and hostnames whose DNS answers
// include any private or reserved address. All resolved addresses must be
// public: one safe A record does not excuse an unsafe one.
func (v *Validator) Validate(ctx context.Context, normalizedURL string) error {
	u, err := url.Parse(normalizedURL)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnsafeURL, err)
	}
	host := strings.ToLower(u.Hostname())
	if host == "" {
		return fmt.Errorf("%w: missing host", ErrUnsafeURL)
	}

	if blockedHostnames[host] || strings.HasSuffix(host, ".localhost") ||
		strings.HasSuffix(host, ".local") || strings.HasSuffix(host, ".internal") {
		return fmt.Errorf("%w: blocked hostname %q", ErrUnsafeURL, host)
	}

	if ip := net.ParseIP(host); ip != nil {
		if reason := forbiddenIPReason(ip); reason != "" {
			return fmt.Errorf("%w: %s address %s", ErrUnsafeURL, reason, ip)
		}
		return nil
	}

	ips, err := v.resolver.LookupIP(ctx, "ip", host)
	if err != nil {
		return fmt.Errorf("%w: cannot resolve %q: %v", ErrUnsafeURL, host, err)
	}
	for _, ip := range ips {
		if reason := forbiddenIPReason(ip); reason != "" {
			return fmt.Errorf("%w: %q resolves to %s address %s", ErrUnsafeURL, host, reason, ip)
		}
	}
	return nil
}

func forbiddenIPReason(ip net.IP) string {
	switch {
	case ip.IsLoopback():
		return "loopback"
	case ip.IsUnspecified():
		return "unspecified"
	case ip.IsPrivate():
		return "private"
	case ip.IsLinkLocalUnicast(), ip.IsLinkLocalMulticast():
		return "link-local"
	case ip.IsMulticast():
		return "multicast"
	}
	if v4 := ip.To4(); v4 != nil {
		for _, n := range forbiddenV4 {
			if n.Contains(v4) {
				return "reserved"
			}
		}
		return ""
	}
	for _, n := range forbiddenV6 {
		if n.Contains(ip) {
			return "reserved"
		}
	}
	return ""
}
