package domain

// FeatureSet holds the lexical and structural features extracted from a
// normalized URL. It is built once per request and treated as immutable.
// Extraction never fails: a URL that cannot be parsed yields the zero value
// with Malformed set.
type FeatureSet struct {
	// Raw parts, kept for evidence rendering.
	Host              string
	RegistrableDomain string
	TLD               string

	// Lexical counts.
	URLLength     int
	DomainLength  int
	PathLength    int
	NumDigits     int
	NumHyphens    int
	NumDots       int
	NumSubdomains int
	NumParams     int
	SpecialChars  int
	DigitRatio    float64

	// Shannon entropy of the full URL and of the host alone.
	URLEntropy    float64
	DomainEntropy float64

	// Boolean structure tests.
	HasHTTPS            bool
	HasPort             bool
	HasAtSymbol         bool
	IPAsHost            bool
	HasPunycode         bool
	ExcessiveSubdomains bool

	// Fixed-set memberships.
	Shortener       string
	PasteService    string
	HostingPlatform string
	RiskyTLD        bool
	TrustedLocally  bool
	TrustedRank     int

	// Suspicious keyword matches, in list order, capped for evidence.
	SuspiciousWordCount int
	SuspiciousWords     []string

	// Brand impersonation: brand token mentioned while the registrable
	// domain is neither the brand's canonical domain nor a subdomain of it.
	BrandMentioned     string
	BrandCanonical     string
	BrandImpersonation bool

	Malformed bool
}

// IsShortener reports membership in the URL-shortener set.
func (f *FeatureSet) IsShortener() bool { return f.Shortener != "" }

// IsPasteService reports membership in the paste-service set.
func (f *FeatureSet) IsPasteService() bool { return f.PasteService != "" }

// IsHostingPlatform reports whether the host belongs to a multi-tenant
// hosting platform, where domain trust says nothing about content trust.
func (f *FeatureSet) IsHostingPlatform() bool { return f.HostingPlatform != "" }
