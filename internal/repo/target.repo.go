package repo

import (
	"context"
	"database/sql"
	"fmt"
	"template-foundry/internal/domain"

	"github.com/google/uuid"
)

type TargetRepo interface {
	// FirstActive returns the first active target by creation time, or
	// nil if no target is active.
	FirstActive(ctx context.Context) (*domain.DeploymentTarget, error)
	FindById(ctx context.Context, id uuid.UUID, includeDeleted bool) (*domain.DeploymentTarget, error)
	Create(ctx context.Context, tx *sql.Tx, target *domain.DeploymentTarget) error
}

type targetRepo struct {
	db *sql.DB
}

func NewTargetRepo(db *sql.DB) TargetRepo {
	return &targetRepo{db: db}
}

const targetColumns = `id, name, host, ssh_user, base_path, is_active, is_deleted, created_by, modified_by, created_at, updated_at`

func scanTarget(row *sql.Row) (*domain.DeploymentTarget, error) {
	var t domain.DeploymentTarget
	err := row.Scan(
		&t.ID,
		&t.Name,
		&t.Host,
		&t.SSHUser,
		&t.BasePath,
		&t.IsActive,
		&t.Meta.IsDeleted,
		&t.Meta.CreatedBy,
		&t.Meta.ModifiedBy,
		&t.Meta.CreatedAt,
		&t.Meta.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan target: %w", err)
	}
	return &t, nil
}

func (r *targetRepo) FirstActive(ctx context.Context) (*domain.DeploymentTarget, error) {
	query := fmt.Sprintf("SELECT %s FROM deployment_targets WHERE is_active = TRUE AND is_deleted = FALSE ORDER BY created_at LIMIT 1", targetColumns)
	return scanTarget(r.db.QueryRowContext(ctx, query))
}

func (r *targetRepo) FindById(ctx context.Context, id uuid.UUID, includeDeleted bool) (*domain.DeploymentTarget, error) {
	query := fmt.Sprintf("SELECT %s FROM deployment_targets WHERE id = $1 AND (is_deleted = FALSE OR $2)", targetColumns)
	return scanTarget(r.db.QueryRowContext(ctx, query, id, includeDeleted))
}

func (r *targetRepo) Create(ctx context.Context, tx *sql.Tx, target *domain.DeploymentTarget) error {
	query := `INSERT INTO deployment_targets (id, name, host, ssh_user, base_path, is_active, is_deleted, created_by, modified_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	_, err := tx.ExecContext(
		ctx, query,
		target.ID, target.Name, target.Host, target.SSHUser, target.BasePath, target.IsActive,
		target.Meta.IsDeleted, target.Meta.CreatedBy, target.Meta.ModifiedBy, target.Meta.CreatedAt, target.Meta.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("create target: %w", err)
	}
	return nil
}
