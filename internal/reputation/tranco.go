package reputation

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/alertalink/linkguard/internal/domain"
)

// TrancoClient queries the Tranco top-sites list for a domain's rank.
// Absence from the list is a mild signal, presence is strong evidence of
// legitimacy, so lookups must never fail hard: any error degrades to an
// unavailable verdict and the engine falls back to the built-in allow-list.
type TrancoClient struct {
	baseURL string
	apiKey  string
	email   string

	httpc   *http.Client
	limiter *rate.Limiter
	cache   verdictCache
	timeout time.Duration
	logger  *slog.Logger
}

// NewTranco creates a Tranco client. The public API needs no key; when one
// is configured it is sent for the higher rate tier.
func NewTranco(cfg domain.ReputationConfig, cache domain.Cache, logger *slog.Logger) *TrancoClient {
	baseURL := cfg.TrancoBaseURL
	if baseURL == "" {
		baseURL = "https://tranco-list.eu/api"
	}
	timeout := cfg.LookupTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &TrancoClient{
		baseURL: baseURL,
		apiKey:  cfg.TrancoAPIKey,
		email:   cfg.TrancoAPIEmail,
		httpc:   &http.Client{Timeout: timeout},
		limiter: newLimiter(cfg.TrancoInterval),
		cache:   newVerdictCache(cache, cfg.CacheTTL),
		timeout: timeout,
		logger:  logger,
	}
}

// Enabled reports whether reputation lookups can be made. The Tranco public
// endpoint is keyless, so the client is always enabled.
func (c *TrancoClient) Enabled() bool { return true }

type trancoResponse struct {
	Domain string `json:"domain"`
	Ranks  []struct {
		Date string `json:"date"`
		Rank int    `json:"rank"`
	} `json:"ranks"`
}

// Lookup returns the reputation verdict for a registrable domain.
func (c *TrancoClient) Lookup(ctx context.Context, dom string) domain.ReputationVerdict {
	verdict := domain.ReputationVerdict{Source: domain.SourceTranco, QueriedAt: time.Now().UTC()}

	key := "rep:tranco:" + dom
	var cached domain.ReputationVerdict
	if c.cache.get(ctx, key, &cached) {
		return cached
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	if err := c.limiter.Wait(ctx); err != nil {
		return verdict
	}

	var resp trancoResponse
	err := withRetry(ctx, c.logger, "tranco", func() error {
		return c.fetch(ctx, dom, &resp)
	})
	if err != nil {
		c.logger.Warn("reputation lookup unavailable", "service", "tranco", "domain", dom, "error", err)
		return verdict
	}

	verdict.Available = true
	for _, r := range resp.Ranks {
		if r.Rank > 0 {
			verdict.InList = true
			verdict.Rank = r.Rank
			break
		}
	}

	c.cache.put(ctx, key, verdict)
	return verdict
}

func (c *TrancoClient) fetch(ctx context.Context, dom string, out *trancoResponse) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		fmt.Sprintf("%s/ranks/domain/%s", c.baseURL, dom), nil)
	if err != nil {
		return err
	}
	if c.apiKey != "" {
		req.SetBasicAuth(c.email, c.apiKey)
	}

	res, err := c.httpc.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	if res.StatusCode == http.StatusNotFound {
		// Unknown domain: a valid, empty answer.
		*out = trancoResponse{Domain: dom}
		return nil
	}
	if res.StatusCode != http.StatusOK {
		return fmt.Errorf("tranco returned status %d", res.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(res.Body, 1<<20))
	if err != nil {
		return err
	}
	return json.Unmarshal(body, out)
}
