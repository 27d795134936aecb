// Package domain defines the core interfaces and types for LinkGuard.
package domain

// SignalID identifies a risk signal. The set is closed: detectors may only
// emit ids declared here, which keeps signal handling exhaustive and makes
// typos a compile-time concern instead of a runtime one.
type SignalID string

// Lexical and structural signals produced by the signal generator.
const (
	SignalIPAsHost            SignalID = "IP_AS_HOST"
	SignalPunycodeDetected    SignalID = "PUNYCODE_DETECTED"
	SignalBrandImpersonation  SignalID = "BRAND_IMPERSONATION"
	SignalURLShortener        SignalID = "URL_SHORTENER"
	SignalPasteService        SignalID = "PASTE_SERVICE"
	SignalHostingPlatform     SignalID = "HOSTING_PLATFORM"
	SignalRiskyTLD            SignalID = "RISKY_TLD"
	SignalSuspiciousWords     SignalID = "SUSPICIOUS_WORDS"
	SignalExcessiveSubdomains SignalID = "EXCESSIVE_SUBDOMAINS"
	SignalNoHTTPS             SignalID = "NO_HTTPS"
	SignalLongURL             SignalID = "LONG_URL"
	SignalHighDigitRatio      SignalID = "HIGH_DIGIT_RATIO"
	SignalHighEntropy         SignalID = "HIGH_ENTROPY"
	SignalAtSymbol            SignalID = "AT_SYMBOL"
)

// Signals derived from reputation, registration age, and malware verdicts.
const (
	SignalDomainInReputation  SignalID = "DOMAIN_IN_REPUTATION_LIST"
	SignalDomainNotInList     SignalID = "DOMAIN_NOT_IN_REPUTATION_LIST"
	SignalTrustedDomain       SignalID = "TRUSTED_DOMAIN"
	SignalDomainTooNew        SignalID = "DOMAIN_TOO_NEW"
	SignalDomainEstablished   SignalID = "DOMAIN_ESTABLISHED"
	SignalMalwareDetection    SignalID = "MALWARE_VERDICT_DETECTION"
	SignalMalwareClean        SignalID = "MALWARE_VERDICT_CLEAN"
)

// Signals converted from crawl evidence.
const (
	SignalSSLCertificateError    SignalID = "SSL_CERTIFICATE_ERROR"
	SignalFormSubmitsExternally  SignalID = "FORM_SUBMITS_EXTERNALLY"
	SignalCrossDomainRedirect    SignalID = "REDIRECT_TO_DIFFERENT_DOMAIN"
	SignalLoginFormDetected      SignalID = "LOGIN_FORM_DETECTED"
	SignalCreditCardForm         SignalID = "CREDIT_CARD_FORM"
	SignalExcessiveRedirects     SignalID = "EXCESSIVE_REDIRECTS"
)

// Severity classifies how alarming a signal is on its own.
type Severity string

const (
	SeverityLow    Severity = "LOW"
	SeverityMedium Severity = "MEDIUM"
	SeverityHigh   Severity = "HIGH"
)

// Signal is a single named, weighted, explainable piece of evidence about a
// URL. Weight is in [-100, 100]; negative weights are bonuses that lower the
// score. Signals are immutable once emitted and are accumulated in detection
// order, which the recommendation generator relies on when truncating.
type Signal struct {
	ID          SignalID       `json:"id"`
	Severity    Severity       `json:"severity"`
	Weight      int            `json:"weight"`
	Evidence    map[string]any `json:"evidence,omitempty"`
	Explanation string         `json:"explanation"`
}

// IsCritical reports whether the signal is one of the high-confidence local
// indicators that establish context on their own.
func (s Signal) IsCritical() bool {
	switch s.ID {
	case SignalBrandImpersonation, SignalIPAsHost, SignalPunycodeDetected:
		return true
	}
	return false
}

// IsInfrastructureAbuse reports whether the signal indicates abuse of shared
// infrastructure rather than a suspicious domain itself.
func (s Signal) IsInfrastructureAbuse() bool {
	switch s.ID {
	case SignalPasteService, SignalURLShortener, SignalRiskyTLD:
		return true
	}
	return false
}

// CriticalCrawlSignals is the allow-list of crawl-derived signal ids that are
// kept even when the domain is already reputation-confirmed. Content evidence
// this strong overrides domain trust.
var CriticalCrawlSignals = map[SignalID]bool{
	SignalSSLCertificateError:   true,
	SignalFormSubmitsExternally: true,
	SignalCrossDomainRedirect:   true,
}

// CustomRule is an operator-defined detector expressed in CEL over the
// feature set. The expression must evaluate to bool; a true result emits a
// signal with the configured id, severity, and weight.
type CustomRule struct {
	ID         SignalID `json:"id" yaml:"id"`
	Expression string   `json:"expression" yaml:"expression"`
	Severity   Severity `json:"severity" yaml:"severity"`
	Weight     int      `json:"weight" yaml:"weight"`
	Enabled    bool     `json:"enabled" yaml:"enabled"`
}
