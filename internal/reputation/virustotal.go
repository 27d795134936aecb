package reputation

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/alertalink/linkguard/internal/domain"
)

const maxReportedThreats = 5

// VirusTotalClient fetches the multi-engine scan report for a URL. The free
// tier allows four requests a minute, so the limiter and the verdict cache
// are what make the client usable at all: the engine is designed to make at
// most one VirusTotal call per analysis.
type VirusTotalClient struct {
	baseURL string
	apiKey  string

	httpc   *http.Client
	limiter *rate.Limiter
	cache   verdictCache
	timeout time.Duration
	logger  *slog.Logger
}

// NewVirusTotal creates a VirusTotal client. Without an API key the client
// reports disabled and every lookup is skipped.
func NewVirusTotal(cfg domain.ReputationConfig, cache domain.Cache, logger *slog.Logger) *VirusTotalClient {
	baseURL := cfg.VirusTotalBaseURL
	if baseURL == "" {
		baseURL = "https://www.virustotal.com/api/v3"
	}
	timeout := cfg.LookupTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &VirusTotalClient{
		baseURL: baseURL,
		apiKey:  cfg.VirusTotalAPIKey,
		httpc:   &http.Client{Timeout: timeout},
		limiter: newLimiter(cfg.VirusTotalInterval),
		cache:   newVerdictCache(cache, cfg.CacheTTL),
		timeout: timeout,
		logger:  logger,
	}
}

// Enabled reports whether an API key is configured.
func (c *VirusTotalClient) Enabled() bool { return c.apiKey != "" }

type vtResponse struct {
	Data struct {
		Attributes struct {
			LastAnalysisStats struct {
				Malicious  int `json:"malicious"`
				Suspicious int `json:"suspicious"`
				Harmless   int `json:"harmless"`
				Undetected int `json:"undetected"`
				Timeout    int `json:"timeout"`
			} `json:"last_analysis_stats"`
			LastAnalysisResults map[string]struct {
				Category string `json:"category"`
				Result   string `json:"result"`
			} `json:"last_analysis_results"`
		} `json:"attributes"`
	} `json:"data"`
}

// Lookup returns the malware verdict for a normalized URL.
func (c *VirusTotalClient) Lookup(ctx context.Context, rawURL string) domain.MalwareVerdict {
	verdict := domain.MalwareVerdict{Source: domain.SourceVirusTotal, QueriedAt: time.Now().UTC()}
	if !c.Enabled() {
		return verdict
	}

	key := "rep:vt:" + urlID(rawURL)
	var cached domain.MalwareVerdict
	if c.cache.get(ctx, key, &cached) {
		return cached
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	if err := c.limiter.Wait(ctx); err != nil {
		return verdict
	}

	var resp vtResponse
	var notFound bool
	err := withRetry(ctx, c.logger, "virustotal", func() error {
		var err error
		notFound, err = c.fetch(ctx, rawURL, &resp)
		return err
	})
	if err != nil {
		c.logger.Warn("malware verdict unavailable", "service", "virustotal", "error", err)
		return verdict
	}

	verdict.Available = true
	if !notFound {
		stats := resp.Data.Attributes.LastAnalysisStats
		verdict.Analyzed = true
		verdict.Malicious = stats.Malicious
		verdict.Suspicious = stats.Suspicious
		verdict.Harmless = stats.Harmless
		verdict.Undetected = stats.Undetected
		verdict.Engines = stats.Malicious + stats.Suspicious + stats.Harmless + stats.Undetected + stats.Timeout
		verdict.Threats = threatNames(resp)
	}

	c.cache.put(ctx, key, verdict)
	return verdict
}

func (c *VirusTotalClient) fetch(ctx context.Context, rawURL string, out *vtResponse) (notFound bool, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		fmt.Sprintf("%s/urls/%s", c.baseURL, urlID(rawURL)), nil)
	if err != nil {
		return false, err
	}
	req.Header.Set("x-apikey", c.apiKey)

	res, err := c.httpc.Do(req)
	if err != nil {
		return false, err
	}
	defer res.Body.Close()

	if res.StatusCode == http.StatusNotFound {
		// VirusTotal has never scanned this URL.
		return true, nil
	}
	if res.StatusCode != http.StatusOK {
		return false, fmt.Errorf("virustotal returned status %d", res.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(res.Body, 4<<20))
	if err != nil {
		return false, err
	}
	return false, json.Unmarshal(body, out)
}

// urlID is the VirusTotal v3 URL identifier: unpadded url-safe base64 of the
// URL itself.
func urlID(rawURL string) string {
	return strings.TrimRight(base64.URLEncoding.EncodeToString([]byte(rawURL)), "=")
}

func threatNames(resp vtResponse) []string {
	var threats []string
	for _, r := range resp.Data.Attributes.LastAnalysisResults {
		if r.Category != "malicious" || r.Result == "" {
			continue
		}
		threats = append(threats, r.Result)
		if len(threats) >= maxReportedThreats {
			break
		}
	}
	return threats
}
