package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Audit is one persisted analysis of a URL: the enriched review, the
// performance report taken alongside it, and the composite health score.
// Audits are addressed by URL and timestamp; retention policy lives in the
// repository, not here.
type Audit struct {
	ID          uuid.UUID          `json:"id" db:"id"`
	URL         string             `json:"url" db:"url"`
	Review      Review             `json:"review" db:"review"`
	Performance *PerformanceReport `json:"performance,omitempty" db:"performance"`
	HealthScore int                `json:"health_score" db:"health_score"`
	Fallback    bool               `json:"fallback" db:"fallback"`
	CreatedAt   time.Time          `json:"created_at" db:"created_at"`
}

// NewAudit creates a new audit record.
func NewAudit(url string, review Review, perf *PerformanceReport, healthScore int, fallback bool) *Audit {
	return &Audit{
		ID:          uuid.New(),
		URL:         url,
		Review:      review,
		Performance: perf,
		HealthScore: healthScore,
		Fallback:    fallback,
		CreatedAt:   time.Now().UTC(),
	}
}

// AuditRepository defines data access for audits.
type AuditRepository interface {
	Create(ctx context.Context, audit *Audit) error
	GetByID(ctx context.Context, id uuid.UUID) (*Audit, error)
	GetLatestByURL(ctx context.Context, url string, limit int) ([]*Audit, error)
	// GetLastTwoByURL returns the two most recent audits for a URL, newest
	// first. The previous audit is nil when only one exists.
	GetLastTwoByURL(ctx context.Context, url string) (current, previous *Audit, err error)
	ListURLs(ctx context.Context) ([]string, error)
	// TrimToLast enforces per-URL retention, deleting all but the newest n
	// audits. Returns the number of rows removed.
	TrimToLast(ctx context.Context, url string, n int) (int, error)
}
