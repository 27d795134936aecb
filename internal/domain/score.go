package domain

import "time"

// RiskLevel is the four-tier classification derived solely from the score.
type RiskLevel string

const (
	RiskSafe   RiskLevel = "SAFE"
	RiskLow    RiskLevel = "LOW"
	RiskMedium RiskLevel = "MEDIUM"
	RiskHigh   RiskLevel = "HIGH"
)

// RiskLevelForScore maps a clamped score to its tier. Pure, no hysteresis:
// 0 is SAFE, 1-30 LOW, 31-70 MEDIUM, 71-100 HIGH.
func RiskLevelForScore(score int) RiskLevel {
	switch {
	case score == 0:
		return RiskSafe
	case score <= 30:
		return RiskLow
	case score <= 70:
		return RiskMedium
	default:
		return RiskHigh
	}
}

// ClampScore bounds a score to [0, 100]. The combiner applies this after
// every adjustment step, not only at the end.
func ClampScore(score int) int {
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}

// ModelType selects which scoring model drives an analysis.
type ModelType string

const (
	ModelML        ModelType = "ml"
	ModelHeuristic ModelType = "heuristic"
)

// AnalyzeOptions controls which evidence sources an analysis may consult.
type AnalyzeOptions struct {
	Model             ModelType `json:"model"`
	UseReputation     bool      `json:"useReputation"`
	UseMalwareVerdict bool      `json:"useMalwareVerdict"`
	UseDomainAge      bool      `json:"useDomainAge"`
	EnableCrawl       bool      `json:"enableCrawl"`
}

// DefaultAnalyzeOptions enables every online evidence source with the ML
// model, matching the mobile client's default request.
func DefaultAnalyzeOptions() AnalyzeOptions {
	return AnalyzeOptions{
		Model:             ModelML,
		UseReputation:     true,
		UseMalwareVerdict: true,
		UseDomainAge:      true,
	}
}

// APIsConsulted records which external services actually answered during an
// analysis. Disabled and unavailable services stay false.
type APIsConsulted struct {
	Reputation     bool `json:"reputation"`
	MalwareVerdict bool `json:"malwareVerdict"`
	DomainAge      bool `json:"domainAge"`
	Crawl          bool `json:"crawl"`
}

// ScoreResult is the complete outcome of one analysis. Probability is always
// Score/100. Created per call; the audit repository may persist a copy but
// the engine never reads it back.
type ScoreResult struct {
	ID                string        `json:"id"`
	URL               string        `json:"url"`
	NormalizedURL     string        `json:"normalizedUrl"`
	Score             int           `json:"score"`
	Probability       float64       `json:"probability"`
	RiskLevel         RiskLevel     `json:"riskLevel"`
	ModelUsed         ModelType     `json:"modelUsed"`
	Signals           []Signal      `json:"signals"`
	Recommendations   []string      `json:"recommendations"`
	APIsConsulted     APIsConsulted `json:"apisConsulted"`
	ContextSufficient bool          `json:"contextSufficient"`
	AnalyzedAt        time.Time     `json:"analyzedAt"`
	DurationMs        int64         `json:"durationMs"`
}
