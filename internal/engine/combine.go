package engine

import (
	"fmt"
	"math"

	"github.com/alertalink/linkguard/internal/domain"
	"github.com/alertalink/linkguard/internal/signals"
)

// combiner folds signals and external verdicts into a single score. The step
// order is a contract: base sum, ML merge, critical boost, trust discount,
// verification adjustments, final clamp. The score is re-clamped to [0, 100]
// after every step, not only at the end. Adjustment steps that change the
// score also append a signal so the response explains every point moved.
type combiner struct {
	table *signals.WeightTable
	sigs  []domain.Signal
	score int
}

func newCombiner(table *signals.WeightTable, sigs []domain.Signal) *combiner {
	return &combiner{table: table, sigs: sigs}
}

func (c *combiner) signals() []domain.Signal { return c.sigs }

func (c *combiner) clamp() { c.score = domain.ClampScore(c.score) }

func (c *combiner) emit(id domain.SignalID, sev domain.Severity, weight int, evidence map[string]any, explanation string) {
	c.sigs = append(c.sigs, domain.Signal{
		ID:          id,
		Severity:    sev,
		Weight:      weight,
		Evidence:    evidence,
		Explanation: explanation,
	})
	c.score += weight
	c.clamp()
}

// sumBase is step 1: the sum of all heuristic and crawl signal weights.
func (c *combiner) sumBase() {
	for _, s := range c.sigs {
		c.score += s.Weight
	}
	c.clamp()
}

// mergeModel is step 2: take the more alarmed of the heuristic sum and the
// model probability, never an average. Skipped when the context evaluator
// judged the model's confidence untrustworthy for this request.
func (c *combiner) mergeModel(probability float64, usable bool) {
	if !usable {
		return
	}
	if ml := int(math.Round(probability * 100)); ml > c.score {
		c.score = ml
	}
	c.clamp()
}

// applyCriticalBoost is step 3: high-confidence signals count again on top of
// the merged score. Full weight for the critical three, half for
// infrastructure abuse, a third for keyword matches. Unconditional, so a URL
// the model shrugs at still climbs on strong local evidence.
func (c *combiner) applyCriticalBoost() {
	boost := 0
	for _, s := range c.sigs {
		switch {
		case s.IsCritical():
			boost += s.Weight
		case s.IsInfrastructureAbuse():
			boost += s.Weight / 2
		case s.ID == domain.SignalSuspiciousWords:
			boost += s.Weight / 3
		}
	}
	c.score += boost
	c.clamp()
}

// applyTrustDiscount is step 4: a reputation-confirmed domain earns a
// rank-tiered discount, or a smaller flat one from the built-in list when the
// remote list did not confirm it. No discount for multi-tenant hosting or
// when infrastructure-abuse signals fired: bit.ly ranks high precisely
// because abusers love it.
func (c *combiner) applyTrustDiscount(rep domain.ReputationVerdict, f *domain.FeatureSet) {
	if f.IsHostingPlatform() {
		return
	}
	for _, s := range c.sigs {
		if s.IsInfrastructureAbuse() {
			return
		}
	}
	switch {
	case rep.InList:
		discount := c.discountForRank(rep.NormalizedRank())
		c.emit(domain.SignalDomainInReputation, domain.SeverityLow, -discount,
			map[string]any{"rank": rep.Rank},
			fmt.Sprintf("Domain is ranked %d on the reputation list", rep.Rank))
	case f.TrustedLocally:
		c.emit(domain.SignalTrustedDomain, domain.SeverityLow,
			c.table.Weight(domain.SignalTrustedDomain),
			map[string]any{"domain": f.RegistrableDomain},
			"Domain is on the built-in trusted list")
	}
}

func (c *combiner) discountForRank(normalized float64) int {
	switch {
	case normalized > 0.999:
		return c.table.Constant(signals.KeyTrustDiscountTop)
	case normalized > 0.99:
		return c.table.Constant(signals.KeyTrustDiscountHigh)
	case normalized > 0.9:
		return c.table.Constant(signals.KeyTrustDiscountMid)
	default:
		return c.table.Constant(signals.KeyTrustDiscountBase)
	}
}

// applyUnlistedPenalty opens step 5. A domain that is neither
// reputation-listed nor locally trusted gets a penalty, but only when
// something else already looks off: keywords, a risky TLD, brand
// impersonation, or an abusable shared service. Merely being unranked is not
// suspicious on its own.
func (c *combiner) applyUnlistedPenalty(rep domain.ReputationVerdict, f *domain.FeatureSet) {
	if rep.InList || f.TrustedLocally {
		return
	}
	qualifies := false
	for _, s := range c.sigs {
		switch s.ID {
		case domain.SignalSuspiciousWords, domain.SignalRiskyTLD,
			domain.SignalBrandImpersonation, domain.SignalPasteService,
			domain.SignalURLShortener:
			qualifies = true
		}
	}
	if !qualifies {
		return
	}
	c.emit(domain.SignalDomainNotInList, domain.SeverityMedium,
		c.table.Weight(domain.SignalDomainNotInList),
		map[string]any{"domain": f.RegistrableDomain},
		fmt.Sprintf("Domain %q is not on the list of known legitimate sites", f.RegistrableDomain))
}

// applyMalwareVerdict folds in a multi-engine scan result. Detections are
// tiered by flagged-engine count; a confirmed-clean result grants a bonus and
// reports that context is now sufficient.
func (c *combiner) applyMalwareVerdict(v domain.MalwareVerdict) (cleanConfirmed bool) {
	if !v.Available || !v.Analyzed {
		return false
	}
	if flagged := v.Flagged(); flagged > 0 {
		var weight int
		var sev domain.Severity
		switch {
		case flagged >= 10:
			weight, sev = c.table.Constant(signals.KeyMalwareCritical), domain.SeverityHigh
		case flagged >= 5:
			weight, sev = c.table.Constant(signals.KeyMalwareHigh), domain.SeverityHigh
		case flagged >= 3:
			weight, sev = c.table.Constant(signals.KeyMalwareMedium), domain.SeverityMedium
		default:
			weight, sev = c.table.Constant(signals.KeyMalwareLow), domain.SeverityLow
		}
		c.emit(domain.SignalMalwareDetection, sev, weight,
			map[string]any{"flagged": flagged, "engines": v.Engines, "threats": v.Threats},
			fmt.Sprintf("%d scanning engines flag this URL as malicious", flagged))
		return false
	}
	if v.ConfirmedClean() {
		c.emit(domain.SignalMalwareClean, domain.SeverityLow,
			c.table.Constant(signals.KeyMalwareCleanBonus),
			map[string]any{"harmless": v.Harmless, "engines": v.Engines},
			fmt.Sprintf("%d of %d scanning engines confirm this URL is harmless", v.Harmless, v.Engines))
		return true
	}
	return false
}

// applyDomainAge folds in a registration-age answer. Fresh registrations are
// prime phishing infrastructure; old ones earn a small bonus. An unknown age
// is neutral, many registrars hide WHOIS.
func (c *combiner) applyDomainAge(a domain.DomainAge) {
	if !a.Available || !a.Known {
		return
	}
	switch {
	case a.AgeDays < newDomainMaxAgeDays:
		c.emit(domain.SignalDomainTooNew, domain.SeverityHigh,
			c.table.Weight(domain.SignalDomainTooNew),
			map[string]any{"age_days": a.AgeDays, "threshold_days": newDomainMaxAgeDays},
			fmt.Sprintf("Domain was registered only %d days ago", a.AgeDays))
	case a.AgeDays > establishedMinAgeDays:
		c.emit(domain.SignalDomainEstablished, domain.SeverityLow,
			c.table.Weight(domain.SignalDomainEstablished),
			map[string]any{"age_days": a.AgeDays},
			fmt.Sprintf("Domain has been registered for %.1f years", float64(a.AgeDays)/365))
	}
}

// final is step 6.
func (c *combiner) final() int {
	c.clamp()
	return c.score
}

const (
	newDomainMaxAgeDays   = 30
	establishedMinAgeDays = 365
)
