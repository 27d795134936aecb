// Package crawl converts headless-browser evidence into risk signals. The
// scoring core never dereferences URLs itself; a crawl provider runs outside
// it and hands over pre-computed evidence.
package crawl

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/alertalink/linkguard/internal/domain"
	"github.com/alertalink/linkguard/internal/signals"
)

const excessiveRedirects = 3

// SignalsFromEvidence converts crawl evidence into weighted signals. When
// the domain is reputation-confirmed, only the critical content signals are
// kept: a trusted site legitimately has login forms, but an SSL error or a
// form posting to a foreign domain overrides domain trust.
func SignalsFromEvidence(ev *domain.CrawlEvidence, pageHost string, table *signals.WeightTable, reputationConfirmed bool) []domain.Signal {
	if ev == nil {
		return nil
	}

	var out []domain.Signal
	emit := func(id domain.SignalID, sev domain.Severity, evidence map[string]any, explanation string) {
		out = append(out, domain.Signal{
			ID:          id,
			Severity:    sev,
			Weight:      table.Weight(id),
			Evidence:    evidence,
			Explanation: explanation,
		})
	}

	if ev.SSLError {
		emit(domain.SignalSSLCertificateError, domain.SeverityHigh,
			nil,
			"Page served with an invalid TLS certificate")
	}
	if ev.FormTargetExternal {
		emit(domain.SignalFormSubmitsExternally, domain.SeverityHigh,
			map[string]any{"form_action": ev.FormAction},
			"Page form submits credentials to a different domain")
	}
	if crossDomain(pageHost, ev.FinalURL) {
		emit(domain.SignalCrossDomainRedirect, domain.SeverityMedium,
			map[string]any{"final_url": ev.FinalURL},
			"Page redirects to a different domain")
	}
	if ev.HasLoginForm || ev.HasPasswordField {
		emit(domain.SignalLoginFormDetected, domain.SeverityLow,
			nil,
			"Page contains a login form")
	}
	if ev.HasCreditCardField {
		emit(domain.SignalCreditCardForm, domain.SeverityMedium,
			nil,
			"Page asks for payment card details")
	}
	if len(ev.RedirectChain) > excessiveRedirects {
		emit(domain.SignalExcessiveRedirects, domain.SeverityLow,
			map[string]any{"redirects": len(ev.RedirectChain)},
			fmt.Sprintf("URL goes through %d redirects", len(ev.RedirectChain)))
	}

	if !reputationConfirmed {
		return out
	}

	kept := out[:0]
	for _, s := range out {
		if domain.CriticalCrawlSignals[s.ID] {
			kept = append(kept, s)
		}
	}
	return kept
}

func crossDomain(pageHost, finalURL string) bool {
	if finalURL == "" || pageHost == "" {
		return false
	}
	u, err := url.Parse(finalURL)
	if err != nil {
		return false
	}
	final := strings.ToLower(u.Hostname())
	if final == "" || final == pageHost {
		return false
	}
	return !strings.HasSuffix(final, "."+pageHost) && !strings.HasSuffix(pageHost, "."+final)
}

// NullProvider is the default crawl provider: disabled.
type NullProvider struct{}

func (NullProvider) Enabled() bool { return false }

func (NullProvider) Crawl(ctx context.Context, url string) (*domain.CrawlEvidence, error) {
	return nil, nil
}

// FakeProvider serves fixed evidence, for tests.
type FakeProvider struct {
	Evidence *domain.CrawlEvidence
	Err      error
}

func (f *FakeProvider) Enabled() bool { return true }

func (f *FakeProvider) Crawl(ctx context.Context, url string) (*domain.CrawlEvidence, error) {
	return f.Evidence, f.Err
}
