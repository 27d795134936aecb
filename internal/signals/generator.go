package signals

import (
	"fmt"

	"github.com/alertalink/linkguard/internal/domain"
)

// Detection thresholds for the graded lexical signals.
const (
	longURLThreshold     = 100
	highDigitRatio       = 0.3
	highEntropyThreshold = 4.0
)

// Generator runs the built-in detectors and any compiled custom rules over a
// feature set. Detectors run in a fixed order so the emitted slice is stable
// for identical input.
type Generator struct {
	store  *Store
	custom []*compiledRule
}

// NewGenerator creates a generator reading weights from the given store.
func NewGenerator(store *Store) *Generator {
	return &Generator{store: store}
}

// Generate evaluates every detector against the feature set and returns the
// signals that fired, built-in detectors first, custom rules after in load
// order.
func (g *Generator) Generate(f *domain.FeatureSet) []domain.Signal {
	w := g.store.Current()
	var out []domain.Signal

	emit := func(id domain.SignalID, sev domain.Severity, evidence map[string]any, explanation string) {
		out = append(out, domain.Signal{
			ID:          id,
			Severity:    sev,
			Weight:      w.Weight(id),
			Evidence:    evidence,
			Explanation: explanation,
		})
	}

	if f.IPAsHost {
		emit(domain.SignalIPAsHost, domain.SeverityHigh,
			map[string]any{"host": f.Host},
			"URL uses a raw IP address instead of a domain name")
	}
	if f.HasPunycode {
		emit(domain.SignalPunycodeDetected, domain.SeverityHigh,
			map[string]any{"host": f.Host},
			"Hostname contains punycode, often used for homograph attacks")
	}
	if f.BrandImpersonation {
		emit(domain.SignalBrandImpersonation, domain.SeverityHigh,
			map[string]any{"brand": f.BrandMentioned, "canonical_domain": f.BrandCanonical, "domain": f.RegistrableDomain},
			fmt.Sprintf("URL mentions %q but is not hosted on %s", f.BrandMentioned, f.BrandCanonical))
	}
	if f.IsShortener() {
		emit(domain.SignalURLShortener, domain.SeverityMedium,
			map[string]any{"service": f.Shortener},
			"URL shortener hides the real destination")
	}
	if f.IsPasteService() {
		emit(domain.SignalPasteService, domain.SeverityMedium,
			map[string]any{"service": f.PasteService},
			"Paste services are frequently abused to host phishing kits and malware")
	}
	if f.IsHostingPlatform() {
		emit(domain.SignalHostingPlatform, domain.SeverityMedium,
			map[string]any{"platform": f.HostingPlatform},
			"Free hosting platform where anyone can publish content")
	}
	if f.RiskyTLD {
		emit(domain.SignalRiskyTLD, domain.SeverityMedium,
			map[string]any{"tld": f.TLD},
			fmt.Sprintf("Top-level domain .%s is disproportionately used for abuse", f.TLD))
	}
	if f.SuspiciousWordCount > 0 {
		perWord := w.Weight(domain.SignalSuspiciousWords)
		weight := f.SuspiciousWordCount * perWord
		if limit := w.Constant(KeySuspiciousWordCap); weight > limit {
			weight = limit
		}
		out = append(out, domain.Signal{
			ID:       domain.SignalSuspiciousWords,
			Severity: domain.SeverityMedium,
			Weight:   weight,
			Evidence: map[string]any{
				"words": f.SuspiciousWords,
				"count": f.SuspiciousWordCount,
			},
			Explanation: fmt.Sprintf("URL contains %d suspicious keyword(s)", f.SuspiciousWordCount),
		})
	}
	if f.ExcessiveSubdomains {
		emit(domain.SignalExcessiveSubdomains, domain.SeverityMedium,
			map[string]any{"count": f.NumSubdomains},
			"Deep subdomain nesting is a common obfuscation tactic")
	}
	if !f.HasHTTPS && !f.Malformed {
		emit(domain.SignalNoHTTPS, domain.SeverityLow,
			nil,
			"Connection is not encrypted")
	}
	if f.URLLength > longURLThreshold {
		emit(domain.SignalLongURL, domain.SeverityLow,
			map[string]any{"length": f.URLLength},
			"Unusually long URL")
	}
	if f.DigitRatio > highDigitRatio {
		emit(domain.SignalHighDigitRatio, domain.SeverityLow,
			map[string]any{"ratio": f.DigitRatio},
			"High proportion of digits in the URL")
	}
	if f.DomainEntropy > highEntropyThreshold {
		emit(domain.SignalHighEntropy, domain.SeverityLow,
			map[string]any{"entropy": f.DomainEntropy},
			"Domain looks randomly generated")
	}
	if f.HasAtSymbol {
		emit(domain.SignalAtSymbol, domain.SeverityMedium,
			nil,
			"@ in a URL can disguise the real destination host")
	}

	for _, r := range g.custom {
		sig, fired, err := r.eval(f)
		if err != nil || !fired {
			continue
		}
		out = append(out, sig)
	}

	return out
}
