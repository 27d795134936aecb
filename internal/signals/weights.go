// Package signals turns a URL's feature set into weighted, explainable risk
// signals. Weights are data-driven: a built-in calibrated table that an
// operator-supplied JSON artifact can override, swapped atomically so
// generation never observes a half-updated table.
package signals

import (
	"encoding/json"
	"fmt"
	"os"
	"sync/atomic"

	"github.com/alertalink/linkguard/internal/domain"
)

// Non-signal weight keys: scoring constants the combiner reads from the same
// calibrated table so they can be tuned without code changes.
const (
	KeySuspiciousWordCap = "SUSPICIOUS_WORDS_CAP"
	KeyMalwareLow        = "MALWARE_VERDICT_LOW"
	KeyMalwareMedium     = "MALWARE_VERDICT_MEDIUM"
	KeyMalwareHigh       = "MALWARE_VERDICT_HIGH"
	KeyMalwareCritical   = "MALWARE_VERDICT_CRITICAL"
	KeyMalwareCleanBonus = "MALWARE_VERDICT_CLEAN"
	KeyTrustDiscountTop  = "TRUST_DISCOUNT_TOP"
	KeyTrustDiscountHigh = "TRUST_DISCOUNT_HIGH"
	KeyTrustDiscountMid  = "TRUST_DISCOUNT_MID"
	KeyTrustDiscountBase = "TRUST_DISCOUNT_BASE"
)

// WeightTable is a versioned signal-weight calibration. Positive weights
// raise risk, negative weights are bonuses.
type WeightTable struct {
	Version      string         `json:"version"`
	CalibratedAt string         `json:"calibration_date,omitempty"`
	Weights      map[string]int `json:"weights"`
}

// DefaultWeightTable returns the built-in calibration, used until an
// artifact overrides it.
func DefaultWeightTable() *WeightTable {
	return &WeightTable{
		Version: "builtin-1",
		Weights: map[string]int{
			string(domain.SignalIPAsHost):            30,
			string(domain.SignalPunycodeDetected):    25,
			string(domain.SignalBrandImpersonation):  45,
			string(domain.SignalURLShortener):        15,
			string(domain.SignalPasteService):        20,
			string(domain.SignalHostingPlatform):     15,
			string(domain.SignalRiskyTLD):            15,
			string(domain.SignalSuspiciousWords):     10, // per word
			string(domain.SignalExcessiveSubdomains): 10,
			string(domain.SignalNoHTTPS):             8,
			string(domain.SignalLongURL):             5,
			string(domain.SignalHighDigitRatio):      8,
			string(domain.SignalHighEntropy):         10,
			string(domain.SignalAtSymbol):            15,
			string(domain.SignalDomainNotInList):     12,
			string(domain.SignalDomainTooNew):        35,
			string(domain.SignalTrustedDomain):       -40,
			string(domain.SignalDomainEstablished):   -15,

			string(domain.SignalSSLCertificateError):   25,
			string(domain.SignalFormSubmitsExternally): 30,
			string(domain.SignalCrossDomainRedirect):   20,
			string(domain.SignalLoginFormDetected):     10,
			string(domain.SignalCreditCardForm):        20,
			string(domain.SignalExcessiveRedirects):    10,

			KeySuspiciousWordCap: 30,
			KeyMalwareLow:        25,
			KeyMalwareMedium:     40,
			KeyMalwareHigh:       60,
			KeyMalwareCritical:   80,
			KeyMalwareCleanBonus: -25,
			KeyTrustDiscountTop:  50,
			KeyTrustDiscountHigh: 40,
			KeyTrustDiscountMid:  35,
			KeyTrustDiscountBase: 30,
		},
	}
}

// Weight returns the calibrated weight for a signal id, or zero if the table
// does not know it.
func (t *WeightTable) Weight(id domain.SignalID) int {
	return t.Weights[string(id)]
}

// Constant returns a named scoring constant from the table.
func (t *WeightTable) Constant(key string) int {
	return t.Weights[key]
}

// Store holds the active weight table behind an atomic pointer. Readers get
// a consistent snapshot; hot reload replaces the whole table, never mutating
// it in place.
type Store struct {
	table atomic.Pointer[WeightTable]
}

// NewStore creates a store seeded with the given table.
func NewStore(t *WeightTable) *Store {
	s := &Store{}
	s.table.Store(t)
	return s
}

// Current returns the active table snapshot.
func (s *Store) Current() *WeightTable {
	return s.table.Load()
}

// Swap atomically replaces the active table.
func (s *Store) Swap(t *WeightTable) {
	s.table.Store(t)
}

// LoadFile reads a calibration artifact and swaps it in. Unknown keys in
// the artifact extend the defaults; known keys override them. The previous
// table stays active if the file is missing or invalid.
func (s *Store) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read weight table %s: %w", path, err)
	}

	var loaded WeightTable
	if err := json.Unmarshal(data, &loaded); err != nil {
		return fmt.Errorf("failed to parse weight table %s: %w", path, err)
	}
	if len(loaded.Weights) == 0 {
		return fmt.Errorf("weight table %s has no weights", path)
	}

	merged := DefaultWeightTable()
	merged.Version = loaded.Version
	merged.CalibratedAt = loaded.CalibratedAt
	for k, v := range loaded.Weights {
		merged.Weights[k] = v
	}

	s.Swap(merged)
	return nil
}
