package repo

import (
	"context"
	"database/sql"
	"fmt"
	"template-foundry/internal/domain"
	"time"

	"github.com/google/uuid"
)

type SiteRepo interface {
	// Create inserts a site. Returns domain.ErrSubdomainTaken when the
	// generated subdomain collides with an existing one.
	Create(ctx context.Context, tx *sql.Tx, site *domain.CustomerSite) error
	FindById(ctx context.Context, id uuid.UUID, includeDeleted bool) (*domain.CustomerSite, error)
	// SubdomainExists checks a candidate subdomain inside the caller's
	// transaction so the generator can retry before hitting the unique
	// constraint.
	SubdomainExists(ctx context.Context, tx *sql.Tx, subdomain string) (bool, error)
	UpdateStatus(ctx context.Context, tx *sql.Tx, siteID uuid.UUID, status domain.SiteStatus, actorID uuid.UUID) error
}

type siteRepo struct {
	db *sql.DB
}

func NewSiteRepo(db *sql.DB) SiteRepo {
	return &siteRepo{db: db}
}

const siteColumns = `id, user_id, template_id, purchase_id, target_id, subdomain, status, is_deleted, created_by, modified_by, created_at, updated_at`

func scanSite(row *sql.Row) (*domain.CustomerSite, error) {
	var s domain.CustomerSite
	err := row.Scan(
		&s.ID,
		&s.UserID,
		&s.TemplateID,
		&s.PurchaseID,
		&s.TargetID,
		&s.Subdomain,
		&s.Status,
		&s.Meta.IsDeleted,
		&s.Meta.CreatedBy,
		&s.Meta.ModifiedBy,
		&s.Meta.CreatedAt,
		&s.Meta.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan site: %w", err)
	}
	return &s, nil
}

func (r *siteRepo) Create(ctx context.Context, tx *sql.Tx, site *domain.CustomerSite) error {
	query := `INSERT INTO customer_sites (id, user_id, template_id, purchase_id, target_id, subdomain, status, is_deleted, created_by, modified_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

	_, err := tx.ExecContext(
		ctx, query,
		site.ID, site.UserID, site.TemplateID, site.PurchaseID, site.TargetID, site.Subdomain, site.Status,
		site.Meta.IsDeleted, site.Meta.CreatedBy, site.Meta.ModifiedBy, site.Meta.CreatedAt, site.Meta.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrSubdomainTaken
		}
		return fmt.Errorf("create site: %w", err)
	}
	return nil
}

func (r *siteRepo) FindById(ctx context.Context, id uuid.UUID, includeDeleted bool) (*domain.CustomerSite, error) {
	query := fmt.Sprintf("SELECT %s FROM customer_sites WHERE id = $1 AND (is_deleted = FALSE OR $2)", siteColumns)
	return scanSite(r.db.QueryRowContext(ctx, query, id, includeDeleted))
}

func (r *siteRepo) SubdomainExists(ctx context.Context, tx *sql.Tx, subdomain string) (bool, error) {
	var exists bool
	err := tx.QueryRowContext(ctx,
		"SELECT EXISTS (SELECT 1 FROM customer_sites WHERE subdomain = $1)",
		subdomain,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check subdomain: %w", err)
	}
	return exists, nil
}

func (r *siteRepo) UpdateStatus(ctx context.Context, tx *sql.Tx, siteID uuid.UUID, status domain.SiteStatus, actorID uuid.UUID) error {
	query := `UPDATE customer_sites SET status = $2, modified_by = $3, updated_at = $4 WHERE id = $1 AND is_deleted = FALSE`

	res, err := tx.ExecContext(ctx, query, siteID, status, actorID, time.Now())
	if err != nil {
		return fmt.Errorf("update site status: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrSiteNotFound
	}
	return nil
}
