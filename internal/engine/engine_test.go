package engine

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/alertalink/linkguard/internal/domain"
	"github.com/alertalink/linkguard/internal/reputation"
)

func testEngine(d Deps) *Engine {
	if d.Logger == nil {
		d.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return New(d)
}

func heuristicOffline() domain.AnalyzeOptions {
	return domain.AnalyzeOptions{Model: domain.ModelHeuristic}
}

func signalIDs(res *domain.ScoreResult) []domain.SignalID {
	out := make([]domain.SignalID, len(res.Signals))
	for i, s := range res.Signals {
		out[i] = s.ID
	}
	return out
}

func hasSignal(res *domain.ScoreResult, id domain.SignalID) bool {
	for _, s := range res.Signals {
		if s.ID == id {
			return true
		}
	}
	return false
}

type fakeModel struct{ p float64 }

func (f fakeModel) Predict(domain.FeatureVector) (float64, bool) { return f.p, true }
func (f fakeModel) Loaded() bool                                 { return true }

// Heuristic-only analysis of a paste-service URL must land in MEDIUM without
// a single network call: paste weight, half-weight boost, and the unlisted
// penalty add up past the LOW boundary.
func TestHeuristicOnlyPasteService(t *testing.T) {
	rep := &reputation.FakeReputation{}
	mal := &reputation.FakeMalware{}
	age := &reputation.FakeDomainAge{}
	e := testEngine(Deps{Reputation: rep, Malware: mal, DomainAge: age})

	res, err := e.Analyze(context.Background(), "https://pastebin.com/abcd1234", heuristicOffline())
	if err != nil {
		t.Fatal(err)
	}

	// 20 base + 10 boost + 12 unlisted.
	if res.Score != 42 {
		t.Errorf("score = %d, want 42", res.Score)
	}
	if res.RiskLevel != domain.RiskMedium {
		t.Errorf("risk = %s, want MEDIUM", res.RiskLevel)
	}
	if !hasSignal(res, domain.SignalPasteService) {
		t.Error("missing PASTE_SERVICE signal")
	}
	if !hasSignal(res, domain.SignalDomainNotInList) {
		t.Error("missing DOMAIN_NOT_IN_REPUTATION_LIST signal")
	}
	if n := rep.Calls.Load() + mal.Calls.Load() + age.Calls.Load(); n != 0 {
		t.Errorf("made %d network calls, want 0", n)
	}
	if res.ModelUsed != domain.ModelHeuristic {
		t.Errorf("model = %s, want heuristic", res.ModelUsed)
	}
	if c := res.APIsConsulted; c.Reputation || c.MalwareVerdict || c.DomainAge || c.Crawl {
		t.Errorf("APIsConsulted = %+v, want all false", c)
	}
}

func TestBrandImpersonationScoresHigh(t *testing.T) {
	rep := &reputation.FakeReputation{Verdict: domain.ReputationVerdict{Available: true}}
	mal := &reputation.FakeMalware{}
	e := testEngine(Deps{Reputation: rep, Malware: mal})

	opts := domain.AnalyzeOptions{Model: domain.ModelHeuristic, UseReputation: true, UseMalwareVerdict: true}
	res, err := e.Analyze(context.Background(), "https://secure-paypal-verify.xyz/login", opts)
	if err != nil {
		t.Fatal(err)
	}

	// Base 90 (brand 45, tld 15, 4 keywords capped at 30), boost 62, clamp,
	// unlisted penalty keeps it pinned at the ceiling.
	if res.Score != 100 {
		t.Errorf("score = %d, want 100", res.Score)
	}
	if res.RiskLevel != domain.RiskHigh {
		t.Errorf("risk = %s, want HIGH", res.RiskLevel)
	}
	if !hasSignal(res, domain.SignalBrandImpersonation) {
		t.Error("missing BRAND_IMPERSONATION signal")
	}
	// Strong local evidence means sufficient context and a score far above
	// the uncertainty band, so the scanner is never consulted.
	if mal.Calls.Load() != 0 {
		t.Errorf("malware calls = %d, want 0", mal.Calls.Load())
	}
	if !res.ContextSufficient {
		t.Error("critical signal should make context sufficient")
	}
}

func TestCanonicalBrandDomainStaysSafe(t *testing.T) {
	rep := &reputation.FakeReputation{Verdict: domain.ReputationVerdict{Available: true, InList: true, Rank: 24}}
	mal := &reputation.FakeMalware{}
	e := testEngine(Deps{Reputation: rep, Malware: mal})

	opts := domain.AnalyzeOptions{Model: domain.ModelHeuristic, UseReputation: true, UseMalwareVerdict: true}
	res, err := e.Analyze(context.Background(), "https://www.paypal.com/signin", opts)
	if err != nil {
		t.Fatal(err)
	}

	if hasSignal(res, domain.SignalBrandImpersonation) {
		t.Error("canonical domain fired BRAND_IMPERSONATION")
	}
	// Base 10 (one keyword), boost 3, top-tier discount 50 floors it.
	if res.Score != 0 {
		t.Errorf("score = %d, want 0", res.Score)
	}
	if res.RiskLevel != domain.RiskSafe {
		t.Errorf("risk = %s, want SAFE", res.RiskLevel)
	}
	if !hasSignal(res, domain.SignalDomainInReputation) {
		t.Error("missing trust-discount signal")
	}
	if mal.Calls.Load() != 0 {
		t.Errorf("malware calls = %d, want 0", mal.Calls.Load())
	}
}

func TestIPHostsFireRegardlessOfRange(t *testing.T) {
	e := testEngine(Deps{})

	tests := []struct {
		url  string
		want int
	}{
		// IP 30 + no-https 8 + digit ratio 8, boost 30.
		{"http://192.168.1.1/admin", 76},
		// IP 30, boost 30.
		{"https://8.8.8.8/", 60},
	}
	for _, tt := range tests {
		res, err := e.Analyze(context.Background(), tt.url, heuristicOffline())
		if err != nil {
			t.Fatalf("%s: %v", tt.url, err)
		}
		if !hasSignal(res, domain.SignalIPAsHost) {
			t.Errorf("%s: missing IP_AS_HOST", tt.url)
		}
		if res.Score != tt.want {
			t.Errorf("%s: score = %d, want %d", tt.url, res.Score, tt.want)
		}
	}
}

// A score in the uncertainty band costs exactly one scanner call, and a
// malicious verdict pushes the result into HIGH.
func TestUncertaintyBandConsultsScannerOnce(t *testing.T) {
	rep := &reputation.FakeReputation{Verdict: domain.ReputationVerdict{Available: true}}
	mal := &reputation.FakeMalware{Verdict: domain.MalwareVerdict{
		Available: true, Analyzed: true, Malicious: 6, Engines: 70,
	}}
	age := &reputation.FakeDomainAge{}
	e := testEngine(Deps{Reputation: rep, Malware: mal, DomainAge: age})

	opts := domain.DefaultAnalyzeOptions()
	opts.Model = domain.ModelHeuristic
	res, err := e.Analyze(context.Background(), "http://bit.ly/abc", opts)
	if err != nil {
		t.Fatal(err)
	}

	if mal.Calls.Load() != 1 {
		t.Errorf("malware calls = %d, want exactly 1", mal.Calls.Load())
	}
	if age.Calls.Load() != 0 {
		t.Errorf("age calls = %d, want 0 (budget is one verification)", age.Calls.Load())
	}
	// Base 23 (shortener 15, no-https 8), boost 7, unlisted 12 = 42, then
	// six flagged engines add 60, clamped.
	if res.Score != 100 {
		t.Errorf("score = %d, want 100", res.Score)
	}
	if !hasSignal(res, domain.SignalMalwareDetection) {
		t.Error("missing MALWARE_VERDICT_DETECTION signal")
	}
	if !res.APIsConsulted.MalwareVerdict {
		t.Error("APIsConsulted.MalwareVerdict should be true")
	}
}

// Hosting platforms always get a scanner check and never a trust discount,
// even when the platform domain itself is reputation-listed.
func TestHostingPlatformNoTrustDiscount(t *testing.T) {
	rep := &reputation.FakeReputation{Verdict: domain.ReputationVerdict{Available: true, InList: true, Rank: 300}}
	mal := &reputation.FakeMalware{Verdict: domain.MalwareVerdict{
		Available: true, Analyzed: true, Harmless: 65, Engines: 70,
	}}
	e := testEngine(Deps{Reputation: rep, Malware: mal})

	opts := domain.AnalyzeOptions{Model: domain.ModelHeuristic, UseReputation: true, UseMalwareVerdict: true}
	res, err := e.Analyze(context.Background(), "https://phishingpage.github.io", opts)
	if err != nil {
		t.Fatal(err)
	}

	if hasSignal(res, domain.SignalDomainInReputation) {
		t.Error("hosting platform received a trust discount")
	}
	if mal.Calls.Load() != 1 {
		t.Errorf("malware calls = %d, want 1 (hosting platform trigger)", mal.Calls.Load())
	}
	// The brand token in the subdomain still fires: a lookalike page on a
	// platform is the classic free-hosting phish. Base 45+15, critical boost
	// clamps at 100, clean bonus -25.
	if !hasSignal(res, domain.SignalBrandImpersonation) {
		t.Error("missing BRAND_IMPERSONATION signal for lookalike platform subdomain")
	}
	if res.Score != 75 || res.RiskLevel != domain.RiskHigh {
		t.Errorf("score = %d (%s), want 75 HIGH", res.Score, res.RiskLevel)
	}
	if !hasSignal(res, domain.SignalMalwareClean) {
		t.Error("missing MALWARE_VERDICT_CLEAN signal")
	}
}

func TestUnknownQuietDomainChecksAge(t *testing.T) {
	t.Run("TooNew", func(t *testing.T) {
		rep := &reputation.FakeReputation{Verdict: domain.ReputationVerdict{Available: true}}
		age := &reputation.FakeDomainAge{Age: domain.DomainAge{Available: true, Known: true, AgeDays: 10}}
		e := testEngine(Deps{Reputation: rep, DomainAge: age})

		opts := domain.AnalyzeOptions{Model: domain.ModelHeuristic, UseReputation: true, UseDomainAge: true}
		res, err := e.Analyze(context.Background(), "https://example-blog.net/posts", opts)
		if err != nil {
			t.Fatal(err)
		}
		if age.Calls.Load() != 1 {
			t.Errorf("age calls = %d, want 1", age.Calls.Load())
		}
		if !hasSignal(res, domain.SignalDomainTooNew) {
			t.Error("missing DOMAIN_TOO_NEW signal")
		}
		if res.Score != 35 || res.RiskLevel != domain.RiskMedium {
			t.Errorf("score = %d (%s), want 35 MEDIUM", res.Score, res.RiskLevel)
		}
	})

	t.Run("Established", func(t *testing.T) {
		rep := &reputation.FakeReputation{Verdict: domain.ReputationVerdict{Available: true}}
		age := &reputation.FakeDomainAge{Age: domain.DomainAge{Available: true, Known: true, AgeDays: 2000}}
		e := testEngine(Deps{Reputation: rep, DomainAge: age})

		opts := domain.AnalyzeOptions{Model: domain.ModelHeuristic, UseReputation: true, UseDomainAge: true}
		res, err := e.Analyze(context.Background(), "https://example-blog.net/posts", opts)
		if err != nil {
			t.Fatal(err)
		}
		if !hasSignal(res, domain.SignalDomainEstablished) {
			t.Error("missing DOMAIN_ESTABLISHED signal")
		}
		if res.Score != 0 || res.RiskLevel != domain.RiskSafe {
			t.Errorf("score = %d (%s), want 0 SAFE", res.Score, res.RiskLevel)
		}
	})

	t.Run("UnknownAgeIsNeutral", func(t *testing.T) {
		rep := &reputation.FakeReputation{Verdict: domain.ReputationVerdict{Available: true}}
		age := &reputation.FakeDomainAge{Age: domain.DomainAge{Available: true, Known: false}}
		e := testEngine(Deps{Reputation: rep, DomainAge: age})

		opts := domain.AnalyzeOptions{Model: domain.ModelHeuristic, UseReputation: true, UseDomainAge: true}
		res, err := e.Analyze(context.Background(), "https://example-blog.net/posts", opts)
		if err != nil {
			t.Fatal(err)
		}
		if res.Score != 0 {
			t.Errorf("score = %d, want 0 for hidden WHOIS", res.Score)
		}
	})
}

func TestModelMerge(t *testing.T) {
	t.Run("SufficientContextTakesModel", func(t *testing.T) {
		rep := &reputation.FakeReputation{Verdict: domain.ReputationVerdict{Available: true, InList: true, Rank: 24}}
		e := testEngine(Deps{Reputation: rep, Model: fakeModel{p: 0.9}})

		opts := domain.AnalyzeOptions{Model: domain.ModelML, UseReputation: true}
		res, err := e.Analyze(context.Background(), "https://www.paypal.com/signin", opts)
		if err != nil {
			t.Fatal(err)
		}
		// max(10, 90) = 90, boost 3, discount 50.
		if res.Score != 43 {
			t.Errorf("score = %d, want 43", res.Score)
		}
		if res.ModelUsed != domain.ModelML {
			t.Errorf("model = %s, want ml", res.ModelUsed)
		}
	})

	t.Run("InsufficientContextIgnoresModel", func(t *testing.T) {
		rep := &reputation.FakeReputation{Verdict: domain.ReputationVerdict{Available: true}}
		e := testEngine(Deps{Reputation: rep, Model: fakeModel{p: 0.9}})

		opts := domain.AnalyzeOptions{Model: domain.ModelML, UseReputation: true}
		res, err := e.Analyze(context.Background(), "https://example-blog.net/posts", opts)
		if err != nil {
			t.Fatal(err)
		}
		if res.Score != 0 {
			t.Errorf("score = %d, want 0 (model confidence untrustworthy here)", res.Score)
		}
		if res.ContextSufficient {
			t.Error("context reported sufficient")
		}
	})

	t.Run("NoModelFallsBackToHeuristic", func(t *testing.T) {
		e := testEngine(Deps{})
		opts := domain.AnalyzeOptions{Model: domain.ModelML}
		res, err := e.Analyze(context.Background(), "https://pastebin.com/abcd1234", opts)
		if err != nil {
			t.Fatal(err)
		}
		if res.ModelUsed != domain.ModelHeuristic {
			t.Errorf("model = %s, want heuristic fallback", res.ModelUsed)
		}
		if res.Score != 42 {
			t.Errorf("score = %d, want 42", res.Score)
		}
	})
}

func TestDroppingHTTPSNeverLowersScore(t *testing.T) {
	e := testEngine(Deps{})

	insecure, err := e.Analyze(context.Background(), "http://bit.ly/abc", heuristicOffline())
	if err != nil {
		t.Fatal(err)
	}
	secure, err := e.Analyze(context.Background(), "https://bit.ly/abc", heuristicOffline())
	if err != nil {
		t.Fatal(err)
	}
	if insecure.Score <= secure.Score {
		t.Errorf("insecure %d <= secure %d", insecure.Score, secure.Score)
	}
}

func TestAnalysisIsDeterministic(t *testing.T) {
	e := testEngine(Deps{})

	first, err := e.Analyze(context.Background(), "https://secure-paypal-verify.xyz/login", heuristicOffline())
	if err != nil {
		t.Fatal(err)
	}
	second, err := e.Analyze(context.Background(), "https://secure-paypal-verify.xyz/login", heuristicOffline())
	if err != nil {
		t.Fatal(err)
	}

	if first.Score != second.Score || first.RiskLevel != second.RiskLevel {
		t.Errorf("scores diverged: %d vs %d", first.Score, second.Score)
	}
	a, b := signalIDs(first), signalIDs(second)
	if len(a) != len(b) {
		t.Fatalf("signal counts diverged: %d vs %d", len(a), len(b))
	}
	for i := range a {
		if a[i] != b[i] {
			t.Errorf("signal order diverged at %d: %s vs %s", i, a[i], b[i])
		}
	}
}

func TestUnusableInputRejected(t *testing.T) {
	e := testEngine(Deps{})
	for _, bad := range []string{"", "notaurl", "ftp://example.com/file", "https://"} {
		if _, err := e.Analyze(context.Background(), bad, heuristicOffline()); err == nil {
			t.Errorf("Analyze(%q) accepted unusable input", bad)
		}
	}
}

type memRepo struct{ saved []*domain.Analysis }

func (m *memRepo) SaveAnalysis(ctx context.Context, a *domain.Analysis) error {
	m.saved = append(m.saved, a)
	return nil
}
func (m *memRepo) GetAnalysis(context.Context, string) (*domain.Analysis, error) {
	return nil, errors.New("not found")
}
func (m *memRepo) ListAnalysesByURL(context.Context, string, int) ([]*domain.Analysis, error) {
	return nil, nil
}
func (m *memRepo) SaveReport(context.Context, *domain.Report) error { return nil }
func (m *memRepo) ListReports(context.Context, time.Time, int) ([]*domain.Report, error) {
	return nil, nil
}
func (m *memRepo) Ping(context.Context) error { return nil }
func (m *memRepo) Close() error               { return nil }

type memBus struct{ topics []string }

func (m *memBus) Publish(ctx context.Context, topic string, payload []byte) error {
	m.topics = append(m.topics, topic)
	return nil
}
func (m *memBus) Subscribe(context.Context, string, domain.MessageHandler) (domain.Subscription, error) {
	return nil, nil
}
func (m *memBus) Ping(context.Context) error { return nil }
func (m *memBus) Close() error               { return nil }

func TestAuditPersistsAndPublishes(t *testing.T) {
	repo := &memRepo{}
	bus := &memBus{}
	e := testEngine(Deps{Repository: repo, Bus: bus})

	res, err := e.Analyze(context.Background(), "https://secure-paypal-verify.xyz/login", heuristicOffline())
	if err != nil {
		t.Fatal(err)
	}

	if len(repo.saved) != 1 || repo.saved[0].ID != res.ID {
		t.Fatalf("saved %d analyses", len(repo.saved))
	}
	if repo.saved[0].Score != res.Score {
		t.Errorf("persisted score %d != result %d", repo.saved[0].Score, res.Score)
	}

	wantTopics := map[string]bool{
		domain.TopicAnalysisCompleted: false,
		domain.TopicHighRiskAlert:     false,
	}
	for _, topic := range bus.topics {
		wantTopics[topic] = true
	}
	for topic, seen := range wantTopics {
		if !seen {
			t.Errorf("topic %s not published", topic)
		}
	}
}
