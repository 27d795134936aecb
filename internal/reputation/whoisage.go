package reputation

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/likexian/whois"
	whoisparser "github.com/likexian/whois-parser"
	"golang.org/x/time/rate"

	"github.com/alertalink/linkguard/internal/domain"
)

// creationDateLayouts covers the date formats registrars actually emit.
var creationDateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05Z",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"02-Jan-2006",
	"2006.01.02",
}

// whoisQueryFunc is the raw WHOIS lookup, injectable for tests.
type whoisQueryFunc func(domain string) (string, error)

// whoisAnswer carries a query result out of its goroutine.
type whoisAnswer struct {
	created time.Time
	known   bool
	err     error
}

// WhoisAgeClient resolves a domain's registration age over WHOIS. Age is a
// strong signal in both directions: domains registered days ago are prime
// phishing infrastructure, domains registered years ago rarely are.
type WhoisAgeClient struct {
	enabled bool
	query   whoisQueryFunc
	limiter *rate.Limiter
	cache   verdictCache
	timeout time.Duration
	logger  *slog.Logger
	now     func() time.Time
}

// NewWhoisAge creates a WHOIS age client.
func NewWhoisAge(cfg domain.ReputationConfig, cache domain.Cache, logger *slog.Logger) *WhoisAgeClient {
	timeout := cfg.LookupTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	// The client timeout bounds the raw TCP conversation; the context in
	// Lookup bounds the whole call including retries.
	cli := whois.NewClient().SetTimeout(timeout)
	return &WhoisAgeClient{
		enabled: cfg.WhoisEnabled,
		query: func(dom string) (string, error) {
			return cli.Whois(dom)
		},
		limiter: newLimiter(cfg.WhoisInterval),
		cache:   newVerdictCache(cache, cfg.CacheTTL),
		timeout: timeout,
		logger:  logger,
		now:     time.Now,
	}
}

// Enabled reports whether WHOIS lookups are configured on.
func (c *WhoisAgeClient) Enabled() bool { return c.enabled }

// Lookup returns the registration age for a registrable domain. Hidden or
// unparseable creation dates yield Known=false, which the engine treats as
// neutral rather than suspicious.
func (c *WhoisAgeClient) Lookup(ctx context.Context, dom string) domain.DomainAge {
	age := domain.DomainAge{Source: domain.SourceWhois, QueriedAt: c.now().UTC()}
	if !c.enabled {
		return age
	}

	key := "rep:whois:" + dom
	var cached domain.DomainAge
	if c.cache.get(ctx, key, &cached) {
		return cached
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	if err := c.limiter.Wait(ctx); err != nil {
		return age
	}

	// The WHOIS library has no context plumbing, so the query runs in a
	// goroutine and a stalled server only costs the goroutine, never the
	// caller's deadline. Timeout degrades exactly like unavailable.
	answers := make(chan whoisAnswer, 1)
	go func() {
		var a whoisAnswer
		a.err = withRetry(ctx, c.logger, "whois", func() error {
			var err error
			a.created, a.known, err = c.creationDate(dom)
			return err
		})
		answers <- a
	}()

	var a whoisAnswer
	select {
	case <-ctx.Done():
		c.logger.Warn("domain age unavailable", "service", "whois", "domain", dom, "error", ctx.Err())
		return age
	case a = <-answers:
	}
	if a.err != nil {
		c.logger.Warn("domain age unavailable", "service", "whois", "domain", dom, "error", a.err)
		return age
	}

	age.Available = true
	if a.known {
		age.Known = true
		age.AgeDays = int(c.now().UTC().Sub(a.created).Hours() / 24)
		if age.AgeDays < 0 {
			age.AgeDays = 0
		}
	}

	c.cache.put(ctx, key, age)
	return age
}

// creationDate queries WHOIS for the domain, falling back to the parent
// domain when the registrar has no record for a deep subdomain.
func (c *WhoisAgeClient) creationDate(dom string) (time.Time, bool, error) {
	raw, err := c.query(dom)
	if err != nil {
		if parent, ok := parentDomain(dom); ok {
			raw, err = c.query(parent)
		}
		if err != nil {
			return time.Time{}, false, err
		}
	}

	parsed, err := whoisparser.Parse(raw)
	if err != nil {
		// A parse failure on an answered query is a hidden date, not an
		// outage.
		return time.Time{}, false, nil
	}

	created := strings.TrimSpace(parsed.Domain.CreatedDate)
	if created == "" {
		return time.Time{}, false, nil
	}
	for _, layout := range creationDateLayouts {
		if t, err := time.Parse(layout, created); err == nil {
			return t, true, nil
		}
	}
	return time.Time{}, false, nil
}

func parentDomain(dom string) (string, bool) {
	parts := strings.Split(dom, ".")
	if len(parts) <= 2 {
		return "", false
	}
	return strings.Join(parts[len(parts)-2:], "."), true
}
