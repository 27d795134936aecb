package engine

import "github.com/alertalink/linkguard/internal/domain"

// contextSufficient decides whether the model's probability can be trusted
// for this request. The classifier was trained on data where reputation-list
// membership separated the classes almost perfectly, so its confidence means
// something only when that correlation cannot explain it:
//
//  1. the domain is confirmed on the reputation list, or
//  2. the domain is on the built-in trusted list, or
//  3. at least one high-confidence local signal fired.
//
// Anything else is insufficient: the model is ignored in the merge step and
// the verification orchestrator must gather more evidence.
func contextSufficient(sigs []domain.Signal, rep domain.ReputationVerdict, f *domain.FeatureSet) bool {
	if rep.InList {
		return true
	}
	if f.TrustedLocally {
		return true
	}
	for _, s := range sigs {
		if s.IsCritical() {
			return true
		}
	}
	return false
}
