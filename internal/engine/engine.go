// Package engine orchestrates a URL risk analysis end to end: normalization,
// feature extraction, signal generation, reputation lookups, ML merge, score
// combination, and recommendations. All dependencies are injected; the engine
// itself holds no mutable state and is safe for concurrent use.
package engine

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/alertalink/linkguard/internal/crawl"
	"github.com/alertalink/linkguard/internal/domain"
	"github.com/alertalink/linkguard/internal/features"
	"github.com/alertalink/linkguard/internal/ml"
	"github.com/alertalink/linkguard/internal/safeurl"
	"github.com/alertalink/linkguard/internal/signals"
)

// Deps are the engine's collaborators. Nil entries get inert defaults, so
// tests and minimal deployments only wire what they need.
type Deps struct {
	Weights    *signals.Store
	Generator  *signals.Generator
	Model      domain.ModelProvider
	Reputation domain.ReputationClient
	Malware    domain.MalwareClient
	DomainAge  domain.DomainAgeClient
	Crawler    domain.CrawlProvider
	Repository domain.Repository
	Bus        domain.EventBus
	Logger     *slog.Logger
}

// Engine scores URLs.
type Engine struct {
	weights    *signals.Store
	generator  *signals.Generator
	model      domain.ModelProvider
	reputation domain.ReputationClient
	malware    domain.MalwareClient
	domainAge  domain.DomainAgeClient
	crawler    domain.CrawlProvider
	repository domain.Repository
	bus        domain.EventBus
	logger     *slog.Logger
	tracer     trace.Tracer
}

// New builds an engine, substituting disabled implementations for any nil
// dependency.
func New(d Deps) *Engine {
	if d.Weights == nil {
		d.Weights = signals.NewStore(signals.DefaultWeightTable())
	}
	if d.Generator == nil {
		d.Generator = signals.NewGenerator(d.Weights)
	}
	if d.Model == nil {
		d.Model = ml.None()
	}
	if d.Reputation == nil {
		d.Reputation = noReputation{}
	}
	if d.Malware == nil {
		d.Malware = noMalware{}
	}
	if d.DomainAge == nil {
		d.DomainAge = noDomainAge{}
	}
	if d.Crawler == nil {
		d.Crawler = crawl.NullProvider{}
	}
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	return &Engine{
		weights:    d.Weights,
		generator:  d.Generator,
		model:      d.Model,
		reputation: d.Reputation,
		malware:    d.Malware,
		domainAge:  d.DomainAge,
		crawler:    d.Crawler,
		repository: d.Repository,
		bus:        d.Bus,
		logger:     d.Logger,
		tracer:     otel.Tracer("linkguard/engine"),
	}
}

// Analyze scores one URL. It returns an error only for unusable input; every
// external failure degrades to an analysis with fewer signals.
func (e *Engine) Analyze(ctx context.Context, rawURL string, opts domain.AnalyzeOptions) (*domain.ScoreResult, error) {
	start := time.Now()
	ctx, span := e.tracer.Start(ctx, "engine.Analyze")
	defer span.End()

	normalized, err := safeurl.Normalize(rawURL)
	if err != nil {
		return nil, err
	}

	f := features.Extract(normalized)
	table := e.weights.Current()
	sigs := e.generator.Generate(f)

	var (
		rep      domain.ReputationVerdict
		evidence *domain.CrawlEvidence
	)
	g, gctx := errgroup.WithContext(ctx)
	if opts.UseReputation && e.reputation.Enabled() && !f.Malformed && !f.IPAsHost {
		g.Go(func() error {
			rep = e.reputation.Lookup(gctx, f.RegistrableDomain)
			return nil
		})
	}
	if opts.EnableCrawl && e.crawler.Enabled() && !f.Malformed {
		g.Go(func() error {
			ev, cerr := e.crawler.Crawl(gctx, normalized)
			if cerr != nil {
				e.logger.Warn("crawl failed, continuing without evidence",
					"url", normalized, "error", cerr)
				return nil
			}
			evidence = ev
			return nil
		})
	}
	_ = g.Wait()

	sigs = append(sigs, crawl.SignalsFromEvidence(evidence, f.Host, table, rep.InList)...)

	sufficient := contextSufficient(sigs, rep, f)

	modelUsed := domain.ModelHeuristic
	var probability float64
	var modelOK bool
	if opts.Model != domain.ModelHeuristic {
		probability, modelOK = e.model.Predict(domain.BuildFeatureVector(f, rep))
		if modelOK {
			modelUsed = domain.ModelML
		}
	}

	c := newCombiner(table, sigs)
	c.sumBase()
	c.mergeModel(probability, modelOK && sufficient)
	c.applyCriticalBoost()
	c.applyTrustDiscount(rep, f)
	c.applyUnlistedPenalty(rep, f)

	consulted := domain.APIsConsulted{
		Reputation: rep.Available,
		Crawl:      evidence != nil,
	}

	malwareOn := opts.UseMalwareVerdict && e.malware.Enabled()
	ageOn := opts.UseDomainAge && e.domainAge.Enabled()
	switch planVerification(f, rep, c.signals(), c.score, sufficient, malwareOn, ageOn) {
	case verifyMalware:
		verdict := e.malware.Lookup(ctx, normalized)
		consulted.MalwareVerdict = verdict.Available
		if c.applyMalwareVerdict(verdict) {
			sufficient = true
		}
	case verifyDomainAge:
		age := e.domainAge.Lookup(ctx, f.RegistrableDomain)
		consulted.DomainAge = age.Available
		c.applyDomainAge(age)
	}

	score := c.final()
	level := domain.RiskLevelForScore(score)

	result := &domain.ScoreResult{
		ID:                uuid.NewString(),
		URL:               rawURL,
		NormalizedURL:     normalized,
		Score:             score,
		Probability:       float64(score) / 100,
		RiskLevel:         level,
		ModelUsed:         modelUsed,
		Signals:           c.signals(),
		Recommendations:   recommendations(level, c.signals()),
		APIsConsulted:     consulted,
		ContextSufficient: sufficient,
		AnalyzedAt:        start.UTC(),
		DurationMs:        time.Since(start).Milliseconds(),
	}

	span.SetAttributes(
		attribute.Int("analysis.score", score),
		attribute.String("analysis.risk_level", string(level)),
		attribute.String("analysis.model", string(modelUsed)),
	)
	e.logger.Info("analysis completed",
		"url", normalized,
		"score", score,
		"risk_level", level,
		"model", modelUsed,
		"signals", len(result.Signals),
		"duration_ms", result.DurationMs,
	)

	e.audit(ctx, result)
	return result, nil
}

// audit persists the analysis and publishes pipeline events. Best effort:
// the caller already has their result, an audit failure is only logged.
func (e *Engine) audit(ctx context.Context, res *domain.ScoreResult) {
	if e.repository != nil {
		a := &domain.Analysis{
			ID:            res.ID,
			URL:           res.URL,
			NormalizedURL: res.NormalizedURL,
			Score:         res.Score,
			RiskLevel:     res.RiskLevel,
			ModelUsed:     res.ModelUsed,
			Signals:       res.Signals,
			CreatedAt:     res.AnalyzedAt,
		}
		if err := e.repository.SaveAnalysis(ctx, a); err != nil {
			e.logger.Error("failed to persist analysis", "id", res.ID, "error", err)
		}
	}

	if e.bus == nil {
		return
	}
	payload, err := json.Marshal(res)
	if err != nil {
		return
	}
	if err := e.bus.Publish(ctx, domain.TopicAnalysisCompleted, payload); err != nil {
		e.logger.Warn("failed to publish analysis event", "error", err)
	}
	if res.RiskLevel == domain.RiskHigh {
		if err := e.bus.Publish(ctx, domain.TopicHighRiskAlert, payload); err != nil {
			e.logger.Warn("failed to publish high-risk alert", "error", err)
		}
	}
}

// Inert clients used when a dependency is not wired.

type noReputation struct{}

func (noReputation) Enabled() bool { return false }
func (noReputation) Lookup(context.Context, string) domain.ReputationVerdict {
	return domain.ReputationVerdict{Source: domain.SourceTranco}
}

type noMalware struct{}

func (noMalware) Enabled() bool { return false }
func (noMalware) Lookup(context.Context, string) domain.MalwareVerdict {
	return domain.MalwareVerdict{Source: domain.SourceVirusTotal}
}

type noDomainAge struct{}

func (noDomainAge) Enabled() bool { return false }
func (noDomainAge) Lookup(context.Context, string) domain.DomainAge {
	return domain.DomainAge{Source: domain.SourceWhois}
}
