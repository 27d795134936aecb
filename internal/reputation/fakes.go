package reputation

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/alertalink/linkguard/internal/domain"
)

// Fake clients for tests. They record call counts so tests can pin how many
// network lookups an analysis would have made.

// FakeReputation returns a fixed reputation verdict.
type FakeReputation struct {
	Verdict domain.ReputationVerdict
	Calls   atomic.Int32
	Off     bool
}

func (f *FakeReputation) Enabled() bool { return !f.Off }

func (f *FakeReputation) Lookup(ctx context.Context, dom string) domain.ReputationVerdict {
	f.Calls.Add(1)
	v := f.Verdict
	if v.Source == "" {
		v.Source = domain.SourceTranco
	}
	if v.QueriedAt.IsZero() {
		v.QueriedAt = time.Now().UTC()
	}
	return v
}

// FakeMalware returns a fixed malware verdict.
type FakeMalware struct {
	Verdict domain.MalwareVerdict
	Calls   atomic.Int32
	Off     bool
}

func (f *FakeMalware) Enabled() bool { return !f.Off }

func (f *FakeMalware) Lookup(ctx context.Context, url string) domain.MalwareVerdict {
	f.Calls.Add(1)
	v := f.Verdict
	if v.Source == "" {
		v.Source = domain.SourceVirusTotal
	}
	if v.QueriedAt.IsZero() {
		v.QueriedAt = time.Now().UTC()
	}
	return v
}

// FakeDomainAge returns a fixed registration age.
type FakeDomainAge struct {
	Age   domain.DomainAge
	Calls atomic.Int32
	Off   bool
}

func (f *FakeDomainAge) Enabled() bool { return !f.Off }

func (f *FakeDomainAge) Lookup(ctx context.Context, dom string) domain.DomainAge {
	f.Calls.Add(1)
	v := f.Age
	if v.Source == "" {
		v.Source = domain.SourceWhois
	}
	if v.QueriedAt.IsZero() {
		v.QueriedAt = time.Now().UTC()
	}
	return v
}
