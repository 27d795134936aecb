package domain

import (
	"context"
	"time"
)

// Source identifies an external evidence service.
type Source string

const (
	SourceTranco     Source = "TRANCO"
	SourceVirusTotal Source = "VIRUSTOTAL"
	SourceWhois      Source = "WHOIS"
)

// ReputationVerdict is the answer from the domain-reputation list.
// Available distinguishes "queried, not found" from "could not query";
// callers treat unavailable the same as inconclusive and never fail on it.
type ReputationVerdict struct {
	Source    Source    `json:"source"`
	Available bool      `json:"available"`
	InList    bool      `json:"inList"`
	Rank      int       `json:"rank"`
	QueriedAt time.Time `json:"queriedAt"`
}

// NormalizedRank maps the absolute rank into (0, 1]: rank 1 is 1.0 and the
// value decays linearly toward zero at one million. Zero when not listed.
func (v ReputationVerdict) NormalizedRank() float64 {
	if !v.InList || v.Rank <= 0 {
		return 0
	}
	n := 1 - float64(v.Rank)/1000000
	if n < 0 {
		return 0
	}
	return n
}

// MalwareVerdict aggregates per-engine scan results for a URL.
type MalwareVerdict struct {
	Source     Source    `json:"source"`
	Available  bool      `json:"available"`
	Analyzed   bool      `json:"analyzed"`
	Malicious  int       `json:"malicious"`
	Suspicious int       `json:"suspicious"`
	Harmless   int       `json:"harmless"`
	Undetected int       `json:"undetected"`
	Engines    int       `json:"engines"`
	Threats    []string  `json:"threats,omitempty"`
	QueriedAt  time.Time `json:"queriedAt"`
}

// Flagged is the number of engines reporting the URL as bad.
func (v MalwareVerdict) Flagged() int { return v.Malicious + v.Suspicious }

// ConfirmedClean reports whether enough engines agree the URL is harmless:
// more than 80% of all engines returned a harmless verdict.
func (v MalwareVerdict) ConfirmedClean() bool {
	return v.Analyzed && v.Engines > 0 && float64(v.Harmless) > float64(v.Engines)*0.8
}

// DomainAge is the registration-age answer from WHOIS. Known is false when
// the registrar hides or omits the creation date; unknown is not suspicious.
type DomainAge struct {
	Source    Source    `json:"source"`
	Available bool      `json:"available"`
	Known     bool      `json:"known"`
	AgeDays   int       `json:"ageDays"`
	QueriedAt time.Time `json:"queriedAt"`
}

// ReputationClient answers whether a domain is on the curated high-traffic
// list. Implementations must be rate-limited, TTL-cached, timeout-bounded,
// and must degrade to Available=false instead of returning errors.
type ReputationClient interface {
	Lookup(ctx context.Context, domain string) ReputationVerdict
	Enabled() bool
}

// MalwareClient checks a URL against a multi-engine scanning service.
type MalwareClient interface {
	Lookup(ctx context.Context, url string) MalwareVerdict
	Enabled() bool
}

// DomainAgeClient resolves the registration age of a domain.
type DomainAgeClient interface {
	Lookup(ctx context.Context, domain string) DomainAge
	Enabled() bool
}
