package reputation

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alertalink/linkguard/internal/cache"
	"github.com/alertalink/linkguard/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func repConfig(baseURL string) domain.ReputationConfig {
	return domain.ReputationConfig{
		TrancoBaseURL:     baseURL,
		VirusTotalBaseURL: baseURL,
		VirusTotalAPIKey:  "test-key",
		WhoisEnabled:      true,
		LookupTimeout:     2 * time.Second,
		CacheTTL:          time.Hour,
	}
}

func TestTrancoLookup(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		switch r.URL.Path {
		case "/ranks/domain/paypal.com":
			fmt.Fprint(w, `{"domain":"paypal.com","ranks":[{"date":"2026-08-01","rank":24}]}`)
		case "/ranks/domain/unknown.example":
			fmt.Fprint(w, `{"domain":"unknown.example","ranks":[]}`)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	c := NewTranco(repConfig(srv.URL), cache.NewLRUCache(10), testLogger())
	ctx := context.Background()

	v := c.Lookup(ctx, "paypal.com")
	if !v.Available || !v.InList || v.Rank != 24 {
		t.Errorf("verdict = %+v, want available listed rank 24", v)
	}

	v = c.Lookup(ctx, "unknown.example")
	if !v.Available {
		t.Error("empty ranks should still be available")
	}
	if v.InList {
		t.Error("unknown domain reported in list")
	}

	// 404 is a valid empty answer, not an outage.
	v = c.Lookup(ctx, "neverseen.example")
	if !v.Available || v.InList {
		t.Errorf("404 verdict = %+v, want available not listed", v)
	}

	// Second lookup of the same domain must come from cache.
	before := calls.Load()
	_ = c.Lookup(ctx, "paypal.com")
	if calls.Load() != before {
		t.Error("cached lookup hit the network")
	}
}

func TestTrancoDegradesOnServerError(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewTranco(repConfig(srv.URL), cache.NewLRUCache(10), testLogger())

	v := c.Lookup(context.Background(), "example.com")
	if v.Available {
		t.Error("server error reported as available")
	}
	// One retry, so exactly two attempts.
	if calls.Load() != 2 {
		t.Errorf("attempts = %d, want 2", calls.Load())
	}
}

func TestVirusTotalLookup(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("x-apikey") != "test-key" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		fmt.Fprint(w, `{"data":{"attributes":{
			"last_analysis_stats":{"malicious":6,"suspicious":1,"harmless":60,"undetected":3,"timeout":0},
			"last_analysis_results":{"EngineA":{"category":"malicious","result":"phishing"}}
		}}}`)
	}))
	defer srv.Close()

	c := NewVirusTotal(repConfig(srv.URL), cache.NewLRUCache(10), testLogger())

	v := c.Lookup(context.Background(), "http://evil.example/login")
	if !v.Available || !v.Analyzed {
		t.Fatalf("verdict = %+v, want available and analyzed", v)
	}
	if v.Malicious != 6 || v.Suspicious != 1 {
		t.Errorf("stats = %d/%d, want 6/1", v.Malicious, v.Suspicious)
	}
	if v.Flagged() != 7 {
		t.Errorf("Flagged() = %d, want 7", v.Flagged())
	}
	if v.Engines != 70 {
		t.Errorf("Engines = %d, want 70", v.Engines)
	}
	if len(v.Threats) != 1 || v.Threats[0] != "phishing" {
		t.Errorf("threats = %v", v.Threats)
	}
}

func TestVirusTotalNotScanned(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := NewVirusTotal(repConfig(srv.URL), cache.NewLRUCache(10), testLogger())

	v := c.Lookup(context.Background(), "http://brand-new.example/")
	if !v.Available {
		t.Error("404 should be available (queried, never scanned)")
	}
	if v.Analyzed {
		t.Error("404 reported as analyzed")
	}
}

func TestVirusTotalDisabledWithoutKey(t *testing.T) {
	cfg := repConfig("http://unused.invalid")
	cfg.VirusTotalAPIKey = ""

	c := NewVirusTotal(cfg, cache.NewLRUCache(10), testLogger())
	if c.Enabled() {
		t.Error("Enabled() = true without API key")
	}
	v := c.Lookup(context.Background(), "http://x.example/")
	if v.Available {
		t.Error("disabled client returned an available verdict")
	}
}

func TestVirusTotalConfirmedClean(t *testing.T) {
	v := domain.MalwareVerdict{Analyzed: true, Harmless: 65, Engines: 70}
	if !v.ConfirmedClean() {
		t.Error("65/70 harmless should be confirmed clean")
	}
	v.Harmless = 40
	if v.ConfirmedClean() {
		t.Error("40/70 harmless should not be confirmed clean")
	}
}

func TestURLID(t *testing.T) {
	// The VT v3 identifier is unpadded url-safe base64.
	got := urlID("http://example.com/")
	if got != "aHR0cDovL2V4YW1wbGUuY29tLw" {
		t.Errorf("urlID = %q", got)
	}
}

func TestWhoisAge(t *testing.T) {
	cfg := repConfig("")
	c := NewWhoisAge(cfg, cache.NewLRUCache(10), testLogger())
	fixed := time.Date(2026, 8, 29, 0, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return fixed }

	t.Run("KnownAge", func(t *testing.T) {
		c.query = func(dom string) (string, error) {
			return "Domain Name: example.com\nCreation Date: 2020-08-29T00:00:00Z\nRegistrar: Test\n", nil
		}
		age := c.Lookup(context.Background(), "example.com")
		if !age.Available || !age.Known {
			t.Fatalf("age = %+v, want available and known", age)
		}
		if age.AgeDays < 2100 || age.AgeDays > 2300 {
			t.Errorf("AgeDays = %d, want about six years", age.AgeDays)
		}
	})

	t.Run("HiddenDateIsNeutral", func(t *testing.T) {
		c2 := NewWhoisAge(cfg, cache.NewLRUCache(10), testLogger())
		c2.query = func(dom string) (string, error) {
			return "Domain Name: private.example\nRegistrar: Test\nRegistrant: REDACTED\n", nil
		}
		age := c2.Lookup(context.Background(), "private.example")
		if !age.Available {
			t.Error("answered query reported unavailable")
		}
		if age.Known {
			t.Error("hidden creation date reported known")
		}
	})

	t.Run("LookupFailure", func(t *testing.T) {
		c3 := NewWhoisAge(cfg, cache.NewLRUCache(10), testLogger())
		c3.query = func(dom string) (string, error) {
			return "", errors.New("connection refused")
		}
		age := c3.Lookup(context.Background(), "down.example")
		if age.Available {
			t.Error("failed lookup reported available")
		}
	})

	t.Run("SlowServerHonorsTimeout", func(t *testing.T) {
		slow := cfg
		slow.LookupTimeout = 50 * time.Millisecond
		c5 := NewWhoisAge(slow, cache.NewLRUCache(10), testLogger())
		c5.query = func(dom string) (string, error) {
			time.Sleep(2 * time.Second)
			return "", nil
		}

		start := time.Now()
		age := c5.Lookup(context.Background(), "stalled.example")
		if elapsed := time.Since(start); elapsed > time.Second {
			t.Fatalf("Lookup blocked %v despite a 50ms budget", elapsed)
		}
		if age.Available {
			t.Error("timed-out lookup reported available")
		}
	})

	t.Run("Disabled", func(t *testing.T) {
		off := cfg
		off.WhoisEnabled = false
		c4 := NewWhoisAge(off, cache.NewLRUCache(10), testLogger())
		if c4.Enabled() {
			t.Error("Enabled() = true when configured off")
		}
	})
}

func TestParentDomain(t *testing.T) {
	if p, ok := parentDomain("a.b.example.com"); !ok || p != "example.com" {
		t.Errorf("parentDomain = %q, %v", p, ok)
	}
	if _, ok := parentDomain("example.com"); ok {
		t.Error("two-label domain has no parent")
	}
}
