package domain

import (
	"context"
	"time"
)

// Analysis is the audit record of a completed scoring request. It is written
// after the response is built and is never read back during scoring.
type Analysis struct {
	ID            string    `json:"id"`
	URL           string    `json:"url"`
	NormalizedURL string    `json:"normalizedUrl"`
	Score         int       `json:"score"`
	RiskLevel     RiskLevel `json:"riskLevel"`
	ModelUsed     ModelType `json:"modelUsed"`
	Signals       []Signal  `json:"signals"`
	CreatedAt     time.Time `json:"createdAt"`
}

// Report is a user-submitted complaint about a URL (for example, received
// over SMS). Stored for later dataset construction, not consulted by the
// engine.
type Report struct {
	ID         string    `json:"id"`
	URL        string    `json:"url"`
	Reason     string    `json:"reason"`
	ReporterIP string    `json:"reporterIp,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
}

// Repository persists audit records.
type Repository interface {
	SaveAnalysis(ctx context.Context, a *Analysis) error
	GetAnalysis(ctx context.Context, id string) (*Analysis, error)
	ListAnalysesByURL(ctx context.Context, normalizedURL string, limit int) ([]*Analysis, error)

	SaveReport(ctx context.Context, r *Report) error
	ListReports(ctx context.Context, since time.Time, limit int) ([]*Report, error)

	Ping(ctx context.Context) error
	Close() error
}

// RepositoryConfig holds persistence settings.
type RepositoryConfig struct {
	// Driver is "sqlite" or "postgres".
	Driver string `yaml:"driver"`

	SQLitePath string `yaml:"sqlitePath"`

	PostgresHost     string `yaml:"postgresHost"`
	PostgresPort     int    `yaml:"postgresPort"`
	PostgresDB       string `yaml:"postgresDb"`
	PostgresUser     string `yaml:"postgresUser"`
	PostgresPassword string `yaml:"postgresPassword"`
	PostgresSSLMode  string `yaml:"postgresSslMode"`

	MaxOpenConns    int           `yaml:"maxOpenConns"`
	MaxIdleConns    int           `yaml:"maxIdleConns"`
	ConnMaxLifetime time.Duration `yaml:"connMaxLifetime"`
}
