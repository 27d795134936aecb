// Package reputation implements the external evidence clients: the Tranco
// domain-reputation list, the VirusTotal multi-engine verdict service, and
// WHOIS registration age. All clients share the same discipline: one rate
// limiter per service, a TTL verdict cache in front of every network call,
// a hard per-lookup timeout, one retry on transient failure, and graceful
// degradation to an unavailable verdict instead of an error.
package reputation

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"golang.org/x/time/rate"

	"github.com/alertalink/linkguard/internal/domain"
)

// verdictCache wraps the shared cache with JSON encoding and a fixed TTL.
type verdictCache struct {
	cache domain.Cache
	ttl   time.Duration
}

func newVerdictCache(c domain.Cache, ttl time.Duration) verdictCache {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return verdictCache{cache: c, ttl: ttl}
}

// get unmarshals a cached verdict into out; false on miss or decode failure.
func (vc verdictCache) get(ctx context.Context, key string, out any) bool {
	if vc.cache == nil {
		return false
	}
	data, err := vc.cache.Get(ctx, key)
	if err != nil || data == nil {
		return false
	}
	return json.Unmarshal(data, out) == nil
}

// put stores a verdict. Cache errors are dropped: a failed write only costs
// an extra lookup later.
func (vc verdictCache) put(ctx context.Context, key string, v any) {
	if vc.cache == nil {
		return
	}
	data, err := json.Marshal(v)
	if err != nil {
		return
	}
	_ = vc.cache.Set(ctx, key, data, vc.ttl)
}

// newLimiter builds a limiter allowing one call per interval with no burst
// beyond the first token.
func newLimiter(interval time.Duration) *rate.Limiter {
	if interval <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Every(interval), 1)
}

// withRetry runs fn and retries once on failure, respecting ctx. External
// APIs flake; a single retry recovers most transient errors without
// stretching the lookup budget.
func withRetry(ctx context.Context, logger *slog.Logger, name string, fn func() error) error {
	err := fn()
	if err == nil {
		return nil
	}
	if ctx.Err() != nil {
		return err
	}
	logger.Debug("lookup retrying after transient failure", "service", name, "error", err)
	return fn()
}
