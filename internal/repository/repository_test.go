package repository

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/alertalink/linkguard/internal/domain"
)

func newTestRepo(t *testing.T) domain.Repository {
	t.Helper()

	cfg := domain.RepositoryConfig{
		Driver:     "sqlite",
		SQLitePath: filepath.Join(t.TempDir(), "linkguard-test.db"),
	}

	repo, err := New(cfg)
	if err != nil {
		t.Fatalf("failed to create repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func TestSQLiteRepository(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	t.Run("Ping", func(t *testing.T) {
		if err := repo.Ping(ctx); err != nil {
			t.Errorf("Ping failed: %v", err)
		}
	})

	t.Run("SaveAndGetAnalysis", func(t *testing.T) {
		a := &domain.Analysis{
			ID:            "an-001",
			URL:           "http://Secure-Paypal-Verify.xyz/login",
			NormalizedURL: "http://secure-paypal-verify.xyz/login",
			Score:         92,
			RiskLevel:     domain.RiskHigh,
			ModelUsed:     domain.ModelML,
			Signals: []domain.Signal{
				{ID: domain.SignalBrandImpersonation, Severity: domain.SeverityHigh, Weight: 45, Explanation: "brand lookalike"},
				{ID: domain.SignalRiskyTLD, Severity: domain.SeverityMedium, Weight: 15, Explanation: "risky tld"},
			},
			CreatedAt: time.Now().UTC(),
		}

		if err := repo.SaveAnalysis(ctx, a); err != nil {
			t.Fatalf("SaveAnalysis failed: %v", err)
		}

		got, err := repo.GetAnalysis(ctx, "an-001")
		if err != nil {
			t.Fatalf("GetAnalysis failed: %v", err)
		}

		if got.Score != 92 {
			t.Errorf("score = %d, want 92", got.Score)
		}
		if got.RiskLevel != domain.RiskHigh {
			t.Errorf("risk level = %s, want HIGH", got.RiskLevel)
		}
		if len(got.Signals) != 2 {
			t.Fatalf("signals = %d, want 2", len(got.Signals))
		}
		if got.Signals[0].ID != domain.SignalBrandImpersonation {
			t.Errorf("first signal = %s", got.Signals[0].ID)
		}
	})

	t.Run("GetAnalysisNotFound", func(t *testing.T) {
		_, err := repo.GetAnalysis(ctx, "missing")
		if !errors.Is(err, ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("SaveAnalysisRequiresID", func(t *testing.T) {
		err := repo.SaveAnalysis(ctx, &domain.Analysis{URL: "https://example.com"})
		if !errors.Is(err, ErrInvalidInput) {
			t.Errorf("expected ErrInvalidInput, got %v", err)
		}
	})

	t.Run("ListAnalysesByURL", func(t *testing.T) {
		base := time.Now().UTC().Add(-time.Hour)
		for i := 0; i < 3; i++ {
			a := &domain.Analysis{
				ID:            "an-list-" + string(rune('a'+i)),
				URL:           "https://example.com/page",
				NormalizedURL: "https://example.com/page",
				Score:         10 * i,
				RiskLevel:     domain.RiskLow,
				ModelUsed:     domain.ModelHeuristic,
				CreatedAt:     base.Add(time.Duration(i) * time.Minute),
			}
			if err := repo.SaveAnalysis(ctx, a); err != nil {
				t.Fatalf("SaveAnalysis failed: %v", err)
			}
		}

		got, err := repo.ListAnalysesByURL(ctx, "https://example.com/page", 2)
		if err != nil {
			t.Fatalf("ListAnalysesByURL failed: %v", err)
		}
		if len(got) != 2 {
			t.Fatalf("got %d analyses, want 2", len(got))
		}
		// Most recent first.
		if got[0].CreatedAt.Before(got[1].CreatedAt) {
			t.Error("analyses not ordered newest first")
		}
	})

	t.Run("SaveAndListReports", func(t *testing.T) {
		r := &domain.Report{
			ID:         "rep-001",
			URL:        "http://free-gift-card.top/claim",
			Reason:     "received in SMS, asks for bank login",
			ReporterIP: "203.0.113.7",
			CreatedAt:  time.Now().UTC(),
		}
		if err := repo.SaveReport(ctx, r); err != nil {
			t.Fatalf("SaveReport failed: %v", err)
		}

		got, err := repo.ListReports(ctx, time.Now().UTC().Add(-time.Minute), 10)
		if err != nil {
			t.Fatalf("ListReports failed: %v", err)
		}
		if len(got) != 1 {
			t.Fatalf("got %d reports, want 1", len(got))
		}
		if got[0].URL != r.URL {
			t.Errorf("report url = %q", got[0].URL)
		}

		old, err := repo.ListReports(ctx, time.Now().UTC().Add(time.Hour), 10)
		if err != nil {
			t.Fatalf("ListReports failed: %v", err)
		}
		if len(old) != 0 {
			t.Errorf("got %d reports for future cutoff, want 0", len(old))
		}
	})

	t.Run("SaveReportValidation", func(t *testing.T) {
		if err := repo.SaveReport(ctx, &domain.Report{URL: "https://x.example"}); !errors.Is(err, ErrInvalidInput) {
			t.Errorf("expected ErrInvalidInput for missing id, got %v", err)
		}
		if err := repo.SaveReport(ctx, &domain.Report{ID: "rep-x"}); !errors.Is(err, ErrInvalidInput) {
			t.Errorf("expected ErrInvalidInput for missing url, got %v", err)
		}
	})
}

func TestNewRepositoryUnsupportedDriver(t *testing.T) {
	_, err := New(domain.RepositoryConfig{Driver: "oracle"})
	if err == nil {
		t.Fatal("expected error for unsupported driver")
	}
}

func TestRebind(t *testing.T) {
	r := &SQLRepository{driver: "postgres"}
	got := r.rebind("INSERT INTO t (a, b) VALUES (?, ?)")
	want := "INSERT INTO t (a, b) VALUES ($1, $2)"
	if got != want {
		t.Errorf("rebind = %q, want %q", got, want)
	}

	r.driver = "sqlite"
	if got := r.rebind("SELECT ?"); got != "SELECT ?" {
		t.Errorf("sqlite rebind changed query: %q", got)
	}
}
