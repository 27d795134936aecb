package engine

import "github.com/alertalink/linkguard/internal/domain"

// Uncertainty band: scores here after the trust discount are too ambiguous to
// return without a second opinion.
const (
	uncertainBandLow  = 30
	uncertainBandHigh = 70
)

// verification names the single external check an analysis may still make
// after the local score is known.
type verification int

const (
	verifyNone verification = iota
	verifyMalware
	verifyDomainAge
)

// planVerification picks at most one verification call per request. Trigger
// order, first match wins:
//
//  1. multi-tenant hosting platform: domain trust says nothing about the
//     page, always ask the scanner
//  2. context insufficient: the local evidence cannot carry a verdict alone
//  3. score in the uncertainty band
//  4. domain unknown and nothing alarming fired locally: check its age
//
// A disabled client cannot satisfy a trigger, so its triggers fall through.
func planVerification(f *domain.FeatureSet, rep domain.ReputationVerdict, sigs []domain.Signal, score int, sufficient bool, malwareOn, ageOn bool) verification {
	if malwareOn {
		switch {
		case f.IsHostingPlatform():
			return verifyMalware
		case !sufficient:
			return verifyMalware
		case score >= uncertainBandLow && score <= uncertainBandHigh:
			return verifyMalware
		}
	}
	if ageOn && !rep.InList && !f.TrustedLocally && unflaggedLocally(sigs) {
		return verifyDomainAge
	}
	return verifyNone
}

func unflaggedLocally(sigs []domain.Signal) bool {
	for _, s := range sigs {
		if s.IsCritical() || s.IsInfrastructureAbuse() {
			return false
		}
	}
	return true
}
