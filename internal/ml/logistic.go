// Package ml loads the externally trained URL classifier and serves its
// probability. Training happens offline; this package only evaluates the
// exported artifact, a standardized logistic regression. A missing or broken
// artifact degrades the engine to heuristic-only scoring rather than failing
// requests.
package ml

import (
	"encoding/json"
	"fmt"
	"math"
	"os"

	"github.com/alertalink/linkguard/internal/domain"
)

// artifact is the exported model: per-feature standardization parameters and
// logistic coefficients, keyed by feature name so a column reorder in
// training is caught at load time instead of silently mis-scoring.
type artifact struct {
	Version      string             `json:"version"`
	Features     []string           `json:"features"`
	Intercept    float64            `json:"intercept"`
	Coefficients map[string]float64 `json:"coefficients"`
	Means        map[string]float64 `json:"means,omitempty"`
	Scales       map[string]float64 `json:"scales,omitempty"`
}

// Logistic evaluates the loaded classifier. The zero value reports not
// loaded and the engine treats it as no model.
type Logistic struct {
	version   string
	intercept float64
	coef      []float64
	mean      []float64
	scale     []float64
	loaded    bool
}

// Load reads a model artifact from disk and validates its feature list
// against the engine's vector layout.
func Load(path string) (*Logistic, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read model artifact %s: %w", path, err)
	}

	var a artifact
	if err := json.Unmarshal(data, &a); err != nil {
		return nil, fmt.Errorf("failed to parse model artifact %s: %w", path, err)
	}

	if len(a.Features) != len(domain.FeatureVectorNames) {
		return nil, fmt.Errorf("model artifact has %d features, engine expects %d",
			len(a.Features), len(domain.FeatureVectorNames))
	}
	for i, name := range a.Features {
		if name != domain.FeatureVectorNames[i] {
			return nil, fmt.Errorf("model feature %d is %q, engine expects %q",
				i, name, domain.FeatureVectorNames[i])
		}
	}

	m := &Logistic{
		version:   a.Version,
		intercept: a.Intercept,
		coef:      make([]float64, len(a.Features)),
		mean:      make([]float64, len(a.Features)),
		scale:     make([]float64, len(a.Features)),
		loaded:    true,
	}
	for i, name := range a.Features {
		c, ok := a.Coefficients[name]
		if !ok {
			return nil, fmt.Errorf("model artifact missing coefficient for %q", name)
		}
		m.coef[i] = c
		m.mean[i] = a.Means[name]
		s := a.Scales[name]
		if s == 0 {
			s = 1
		}
		m.scale[i] = s
	}
	return m, nil
}

// Version returns the artifact version, empty when not loaded.
func (m *Logistic) Version() string { return m.version }

// Loaded reports whether a model artifact is available.
func (m *Logistic) Loaded() bool { return m != nil && m.loaded }

// Predict returns the phishing probability for a feature vector. ok is false
// when no model is loaded or the vector has the wrong width.
func (m *Logistic) Predict(v domain.FeatureVector) (float64, bool) {
	if !m.Loaded() || len(v) != len(m.coef) {
		return 0, false
	}
	z := m.intercept
	for i, x := range v {
		z += m.coef[i] * ((x - m.mean[i]) / m.scale[i])
	}
	return 1 / (1 + math.Exp(-z)), true
}

// None returns a provider with no model, for deployments that run heuristics
// only.
func None() *Logistic { return &Logistic{} }
