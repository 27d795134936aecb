// Package features extracts lexical and structural features from normalized
// URLs. Extraction is pure and never fails: unparseable input produces a
// zero-valued FeatureSet with the Malformed flag set.
package features

import (
	"math"
	"net"
	"net/url"
	"strings"

	"golang.org/x/net/publicsuffix"

	"github.com/alertalink/linkguard/internal/domain"
)

const (
	longURLThreshold       = 100
	highDigitRatio         = 0.3
	highEntropyThreshold   = 4.0
	excessiveSubdomainsMin = 4
	maxReportedWords       = 5
)

const specialCharSet = "!#$%&*+=?^_`{|}~"

// Extract builds the FeatureSet for a normalized URL. The input is expected
// to be lowercased with fragment and trailing slash already stripped; the
// SSRF validator upstream guarantees an http(s) scheme for well-formed input.
func Extract(rawURL string) *domain.FeatureSet {
	f := &domain.FeatureSet{}

	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		f.Malformed = true
		return f
	}

	host := strings.ToLower(u.Hostname())
	lower := strings.ToLower(rawURL)

	f.Host = host
	f.RegistrableDomain = registrableDomain(host)
	f.URLLength = len(rawURL)
	f.DomainLength = len(u.Host)
	f.PathLength = len(u.Path)
	f.NumHyphens = strings.Count(rawURL, "-")
	f.NumDots = strings.Count(rawURL, ".")
	f.NumParams = len(u.Query())

	for _, c := range rawURL {
		if c >= '0' && c <= '9' {
			f.NumDigits++
		}
		if strings.ContainsRune(specialCharSet, c) {
			f.SpecialChars++
		}
	}
	if f.URLLength > 0 {
		f.DigitRatio = float64(f.NumDigits) / float64(f.URLLength)
	}

	f.URLEntropy = ShannonEntropy(rawURL)
	f.DomainEntropy = ShannonEntropy(host)

	f.HasHTTPS = u.Scheme == "https"
	f.HasPort = u.Port() != ""
	f.HasAtSymbol = strings.Contains(rawURL, "@")
	f.IPAsHost = net.ParseIP(host) != nil
	f.HasPunycode = strings.Contains(host, "xn--")

	f.NumSubdomains = subdomainCount(host)
	f.ExcessiveSubdomains = f.NumSubdomains >= excessiveSubdomainsMin

	if i := strings.LastIndex(host, "."); i >= 0 && !f.IPAsHost {
		f.TLD = host[i+1:]
		f.RiskyTLD = riskyTLDs[f.TLD]
	}

	f.Shortener = matchDomainSet(host, shorteners)
	f.PasteService = matchDomainSet(host, pasteServices)
	f.HostingPlatform = matchDomainSet(host, hostingPlatforms)

	extractSuspiciousWords(f, lower, host)
	extractBrand(f, lower, host)

	if rank := TrustedDomainRank(host); rank > 0 {
		f.TrustedLocally = true
		f.TrustedRank = rank
	}

	return f
}

// ShannonEntropy returns the Shannon entropy of a string in bits per symbol.
func ShannonEntropy(s string) float64 {
	if s == "" {
		return 0
	}
	counts := make(map[rune]int)
	total := 0
	for _, r := range s {
		counts[r]++
		total++
	}
	entropy := 0.0
	for _, c := range counts {
		freq := float64(c) / float64(total)
		entropy -= freq * math.Log2(freq)
	}
	return entropy
}

// registrableDomain returns the eTLD+1 for a host. IP hosts and hosts
// without a known public suffix fall back to the last two labels.
func registrableDomain(host string) string {
	if net.ParseIP(host) != nil {
		return host
	}
	if d, err := publicsuffix.EffectiveTLDPlusOne(host); err == nil {
		return d
	}
	parts := strings.Split(host, ".")
	if len(parts) >= 2 {
		return strings.Join(parts[len(parts)-2:], ".")
	}
	return host
}

// subdomainCount counts labels left of the registrable domain. "www" counts
// like any other label; IP hosts have none.
func subdomainCount(host string) int {
	if net.ParseIP(host) != nil {
		return 0
	}
	n := strings.Count(host, ".") - 1
	if n < 0 {
		return 0
	}
	return n
}

// matchDomainSet reports the first entry the host equals or is a subdomain
// of. Substring matches are deliberately not enough: "microsoft.com"
// contains "t.co" but is not the shortener.
func matchDomainSet(host string, set []string) string {
	for _, d := range set {
		if host == d || hasDomainSuffix(host, d) {
			return d
		}
	}
	return ""
}

func hasDomainSuffix(host, parent string) bool {
	return strings.HasSuffix(host, "."+parent)
}

func extractSuspiciousWords(f *domain.FeatureSet, lowerURL, host string) {
	for _, w := range suspiciousWords {
		if !strings.Contains(lowerURL, w) {
			continue
		}
		// A brand token on the brand's own domain is not suspicious.
		if canonical, ok := canonicalDomains[w]; ok {
			if host == canonical || hasDomainSuffix(host, canonical) {
				continue
			}
		}
		f.SuspiciousWordCount++
		if len(f.SuspiciousWords) < maxReportedWords {
			f.SuspiciousWords = append(f.SuspiciousWords, w)
		}
	}
}

// extractBrand flags impersonation only when a brand token is mentioned and
// the registrable domain is neither the brand's canonical domain nor a
// subdomain of it: mail.paypal.com is legitimate, paypal-login.xyz is not.
func extractBrand(f *domain.FeatureSet, lowerURL, host string) {
	for _, brand := range knownBrands {
		if !strings.Contains(lowerURL, brand) {
			continue
		}
		canonical, ok := canonicalDomains[brand]
		if !ok {
			canonical = brand + ".com"
		}
		f.BrandMentioned = brand
		f.BrandCanonical = canonical
		if f.RegistrableDomain != canonical && !hasDomainSuffix(host, canonical) {
			f.BrandImpersonation = true
		}
		return
	}
}
