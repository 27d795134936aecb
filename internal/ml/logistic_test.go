package ml

import (
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/alertalink/linkguard/internal/domain"
)

func writeArtifact(t *testing.T, a artifact) string {
	t.Helper()
	data, err := json.Marshal(a)
	if err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(t.TempDir(), "model.json")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func minimalArtifact() artifact {
	a := artifact{
		Version:      "test-1",
		Features:     domain.FeatureVectorNames,
		Intercept:    0,
		Coefficients: map[string]float64{},
	}
	for _, name := range domain.FeatureVectorNames {
		a.Coefficients[name] = 0
	}
	return a
}

func TestLoadAndPredict(t *testing.T) {
	a := minimalArtifact()
	a.Intercept = -1
	a.Coefficients["brand_impersonation"] = 3

	m, err := Load(writeArtifact(t, a))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !m.Loaded() {
		t.Fatal("Loaded() = false")
	}
	if m.Version() != "test-1" {
		t.Errorf("Version() = %q", m.Version())
	}

	v := make(domain.FeatureVector, len(domain.FeatureVectorNames))
	p, ok := m.Predict(v)
	if !ok {
		t.Fatal("Predict not ok")
	}
	want := 1 / (1 + math.Exp(1)) // sigmoid(-1)
	if math.Abs(p-want) > 1e-9 {
		t.Errorf("Predict = %v, want %v", p, want)
	}

	// brand_impersonation is the last feature in the vector.
	v[len(v)-1] = 1
	p2, _ := m.Predict(v)
	if p2 <= p {
		t.Errorf("positive coefficient did not raise probability: %v <= %v", p2, p)
	}
	if p2 <= 0 || p2 >= 1 {
		t.Errorf("probability %v outside (0,1)", p2)
	}
}

func TestLoadRejectsMismatchedFeatures(t *testing.T) {
	a := minimalArtifact()
	a.Features = append([]string{}, a.Features...)
	a.Features[0], a.Features[1] = a.Features[1], a.Features[0]

	if _, err := Load(writeArtifact(t, a)); err == nil {
		t.Fatal("expected error for reordered features")
	}

	a = minimalArtifact()
	a.Features = a.Features[:len(a.Features)-1]
	if _, err := Load(writeArtifact(t, a)); err == nil {
		t.Fatal("expected error for missing feature column")
	}

	a = minimalArtifact()
	delete(a.Coefficients, "url_length")
	if _, err := Load(writeArtifact(t, a)); err == nil {
		t.Fatal("expected error for missing coefficient")
	}
}

func TestPredictUnavailable(t *testing.T) {
	var nilModel *Logistic
	if nilModel.Loaded() {
		t.Error("nil model reports loaded")
	}
	if _, ok := nilModel.Predict(nil); ok {
		t.Error("nil model predicted")
	}

	m := None()
	if m.Loaded() {
		t.Error("None() reports loaded")
	}
	if _, ok := m.Predict(make(domain.FeatureVector, len(domain.FeatureVectorNames))); ok {
		t.Error("unloaded model predicted")
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.json")); err == nil {
		t.Fatal("expected error for missing artifact")
	}
}
