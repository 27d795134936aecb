package domain

// FeatureVectorNames is the exact, order-sensitive list of features the ML
// model consumes. It must match the training pipeline column for column,
// including the three reputation-derived features at the end.
var FeatureVectorNames = []string{
	"url_length", "domain_length", "path_length", "num_digits",
	"num_hyphens", "num_dots", "num_subdomains", "entropy",
	"has_https", "has_port", "has_at_symbol", "contains_ip",
	"has_punycode", "shortener_detected", "paste_service_detected",
	"has_suspicious_words", "tld_risk", "excessive_subdomains",
	"digit_ratio", "num_params", "special_chars",
	"in_reputation_list", "normalized_rank", "brand_impersonation",
}

// FeatureVector is a numeric row in FeatureVectorNames order.
type FeatureVector []float64

func boolFeature(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

// BuildFeatureVector flattens a FeatureSet plus the reputation verdict into
// the model's input row. Suspicious-word count is capped at 5, mirroring the
// training data.
func BuildFeatureVector(f *FeatureSet, rep ReputationVerdict) FeatureVector {
	words := f.SuspiciousWordCount
	if words > 5 {
		words = 5
	}
	return FeatureVector{
		float64(f.URLLength), float64(f.DomainLength), float64(f.PathLength), float64(f.NumDigits),
		float64(f.NumHyphens), float64(f.NumDots), float64(f.NumSubdomains), f.URLEntropy,
		boolFeature(f.HasHTTPS), boolFeature(f.HasPort), boolFeature(f.HasAtSymbol), boolFeature(f.IPAsHost),
		boolFeature(f.HasPunycode), boolFeature(f.IsShortener()), boolFeature(f.IsPasteService()),
		float64(words), boolFeature(f.RiskyTLD), boolFeature(f.ExcessiveSubdomains),
		f.DigitRatio, float64(f.NumParams), float64(f.SpecialChars),
		boolFeature(rep.InList), rep.NormalizedRank(), boolFeature(f.BrandImpersonation),
	}
}

// ModelProvider supplies the externally trained classifier's probability.
// Predict returns ok=false when no model is loaded; the engine then falls
// back to heuristic-only scoring.
type ModelProvider interface {
	Predict(v FeatureVector) (probability float64, ok bool)
	Loaded() bool
}
