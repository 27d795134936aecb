package engine

import "github.com/alertalink/linkguard/internal/domain"

// maxRecommendations bounds the advice list for UI stability.
const maxRecommendations = 5

var tierAdvice = map[domain.RiskLevel][]string{
	domain.RiskHigh: {
		"Do not enter personal information or credentials on this site",
		"This URL shows multiple phishing indicators",
		"Verify the official URL of the service you are looking for",
		"Report this URL if you received it by SMS or messaging app",
	},
	domain.RiskMedium: {
		"Proceed with caution",
		"Verify the site's authenticity before entering any data",
		"Contact the service through its official channels instead",
	},
	domain.RiskLow: {
		"The URL looks safe, but stay alert",
		"Make sure the site uses HTTPS before entering sensitive data",
	},
	domain.RiskSafe: {
		"No phishing indicators detected",
		"This URL looks safe",
	},
}

var signalAdvice = map[domain.SignalID]string{
	domain.SignalURLShortener:       "Expand the shortened URL before visiting it",
	domain.SignalBrandImpersonation: "This site appears to impersonate a known brand, check the official URL",
	domain.SignalPasteService:       "Content on paste services is unmoderated, do not download files from this link",
	domain.SignalNoHTTPS:            "The connection is not encrypted, never submit credentials here",
	domain.SignalDomainNotInList:    "This domain is not on the list of known legitimate sites",
	domain.SignalDomainTooNew:       "This domain was registered very recently, a common phishing trait",
	domain.SignalMalwareDetection:   "Scanning engines have flagged this URL as malicious",
}

// recommendations builds the advice list: tier base strings first, then one
// tip per matched signal id in signal order, deduplicated and truncated.
func recommendations(level domain.RiskLevel, sigs []domain.Signal) []string {
	out := make([]string, 0, maxRecommendations)
	out = append(out, tierAdvice[level]...)

	seen := make(map[domain.SignalID]bool)
	for _, s := range sigs {
		tip, ok := signalAdvice[s.ID]
		if !ok || seen[s.ID] {
			continue
		}
		seen[s.ID] = true
		out = append(out, tip)
	}

	if len(out) > maxRecommendations {
		out = out[:maxRecommendations]
	}
	return out
}
