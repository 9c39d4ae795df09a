package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/sitepulse/sitepulse/internal/domain"
)

// AuditRepository implements domain.AuditRepository with PostgreSQL
type AuditRepository struct {
	db *sqlx.DB
}

// NewAuditRepository creates a new audit repository
func NewAuditRepository(db *sqlx.DB) *AuditRepository {
	return &AuditRepository{db: db}
}

// auditRow represents the database row structure
type auditRow struct {
	ID          uuid.UUID `db:"id"`
	URL         string    `db:"url"`
	Review      []byte    `db:"review"`
	Performance []byte    `db:"performance"`
	HealthScore int       `db:"health_score"`
	Fallback    bool      `db:"fallback"`
	CreatedAt   time.Time `db:"created_at"`
}

func (r *auditRow) toDomain() (*domain.Audit, error) {
	var review domain.Review
	if err := json.Unmarshal(r.Review, &review); err != nil {
		return nil, err
	}

	var performance *domain.PerformanceReport
	if len(r.Performance) > 0 {
		performance = &domain.PerformanceReport{}
		if err := json.Unmarshal(r.Performance, performance); err != nil {
			return nil, err
		}
	}

	return &domain.Audit{
		ID:          r.ID,
		URL:         r.URL,
		Review:      review,
		Performance: performance,
		HealthScore: r.HealthScore,
		Fallback:    r.Fallback,
		CreatedAt:   r.CreatedAt,
	}, nil
}

const auditColumns = `id, url, review, performance, health_score, fallback, created_at`

// Create inserts a new audit
func (r *AuditRepository) Create(ctx context.Context, audit *domain.Audit) error {
	review, err := json.Marshal(audit.Review)
	if err != nil {
		return err
	}

	var performance []byte
	if audit.Performance != nil {
		performance, err = json.Marshal(audit.Performance)
		if err != nil {
			return err
		}
	}

	query := `
		INSERT INTO audits (id, url, review, performance, health_score, fallback, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err = r.db.ExecContext(ctx, query,
		audit.ID,
		audit.URL,
		review,
		performance,
		audit.HealthScore,
		audit.Fallback,
		audit.CreatedAt,
	)
	if err != nil {
		return domain.ErrDatabase(err)
	}

	return nil
}

// GetByID retrieves an audit by ID
func (r *AuditRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Audit, error) {
	query := `SELECT ` + auditColumns + ` FROM audits WHERE id = $1`

	var row auditRow
	if err := r.db.GetContext(ctx, &row, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrAuditNotFound(id.String())
		}
		return nil, domain.ErrDatabase(err)
	}

	return row.toDomain()
}

// GetLatestByURL retrieves the most recent audits for a URL, newest first.
func (r *AuditRepository) GetLatestByURL(ctx context.Context, url string, limit int) ([]*domain.Audit, error) {
	query := `
		SELECT ` + auditColumns + `
		FROM audits
		WHERE url = $1
		ORDER BY created_at DESC
		LIMIT $2
	`

	var rows []auditRow
	if err := r.db.SelectContext(ctx, &rows, query, url, limit); err != nil {
		return nil, domain.ErrDatabase(err)
	}

	audits := make([]*domain.Audit, len(rows))
	for i, row := range rows {
		audit, err := row.toDomain()
		if err != nil {
			return nil, err
		}
		audits[i] = audit
	}

	return audits, nil
}

// GetLastTwoByURL returns the newest audit for the URL and its predecessor.
// The predecessor is nil when only one audit exists.
func (r *AuditRepository) GetLastTwoByURL(ctx context.Context, url string) (*domain.Audit, *domain.Audit, error) {
	audits, err := r.GetLatestByURL(ctx, url, 2)
	if err != nil {
		return nil, nil, err
	}

	switch len(audits) {
	case 0:
		return nil, nil, domain.ErrNotFound("audit", url)
	case 1:
		return audits[0], nil, nil
	default:
		return audits[0], audits[1], nil
	}
}

// ListURLs returns every distinct audited URL.
func (r *AuditRepository) ListURLs(ctx context.Context) ([]string, error) {
	query := `SELECT DISTINCT url FROM audits ORDER BY url`

	var urls []string
	if err := r.db.SelectContext(ctx, &urls, query); err != nil {
		return nil, domain.ErrDatabase(err)
	}

	return urls, nil
}

// TrimToLast deletes all but the newest n audits for a URL and returns the
// number deleted.
func (r *AuditRepository) TrimToLast(ctx context.Context, url string, n int) (int, error) {
	query := `
		DELETE FROM audits
		WHERE url = $1
		  AND id NOT IN (
			SELECT id FROM audits
			WHERE url = $1
			ORDER BY created_at DESC
			LIMIT $2
		  )
	`

	result, err := r.db.ExecContext(ctx, query, url, n)
	if err != nil {
		return 0, domain.ErrDatabase(err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return 0, domain.ErrDatabase(err)
	}

	return int(rows), nil
}
