package domain

import "context"

// CrawlEvidence is the pre-computed output of the headless-browser subsystem.
// The engine only converts it into signals; it never dereferences the URL.
type CrawlEvidence struct {
	FinalURL           string   `json:"finalUrl"`
	RedirectChain      []string `json:"redirectChain"`
	SSLError           bool     `json:"sslError"`
	HasLoginForm       bool     `json:"hasLoginForm"`
	HasPasswordField   bool     `json:"hasPasswordField"`
	HasCreditCardField bool     `json:"hasCreditCardField"`
	FormAction         string   `json:"formAction,omitempty"`
	FormTargetExternal bool     `json:"formTargetExternal"`
	PageTitle          string   `json:"pageTitle,omitempty"`
	HTMLFingerprint    string   `json:"htmlFingerprint,omitempty"`
}

// CrawlProvider fetches crawl evidence for a URL. Opt-in; implementations
// live outside this core and may return an error, which the engine treats as
// "no crawl evidence" rather than a failed analysis.
type CrawlProvider interface {
	Crawl(ctx context.Context, url string) (*CrawlEvidence, error)
	Enabled() bool
}
