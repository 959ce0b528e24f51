package repo

import (
	"context"
	"database/sql"
	"fmt"
	"template-foundry/internal/domain"
	"time"

	"github.com/google/uuid"
)

type JobRepo interface {
	Create(ctx context.Context, tx *sql.Tx, job *domain.DeploymentJob) error
	FindById(ctx context.Context, id uuid.UUID, includeDeleted bool) (*domain.DeploymentJob, error)
	// List returns jobs newest-first, paged.
	List(ctx context.Context, limit, offset int, includeDeleted bool) ([]domain.DeploymentJob, error)
	// ClaimNext atomically claims the oldest QUEUED job: the status flip
	// to RUNNING happens in the same statement that selects the row, so
	// two concurrent workers can never claim the same job. Returns nil
	// when no job is pending.
	ClaimNext(ctx context.Context) (*domain.ClaimedJob, error)
	// Finish moves a RUNNING job to a terminal status. Returns the
	// affected row count so callers can detect illegal reports.
	Finish(ctx context.Context, jobID uuid.UUID, status domain.JobStatus, errorMessage *string, at time.Time) (int, error)
}

type jobRepo struct {
	db *sql.DB
}

func NewJobRepo(db *sql.DB) JobRepo {
	return &jobRepo{db: db}
}

const jobColumns = `id, site_id, job_type, status, correlation_id, started_at, finished_at, error_message, is_deleted, created_by, modified_by, created_at, updated_at`

func scanJobRow(scan func(dest ...any) error) (*domain.DeploymentJob, error) {
	var j domain.DeploymentJob
	err := scan(
		&j.ID,
		&j.SiteID,
		&j.Type,
		&j.Status,
		&j.CorrelationID,
		&j.StartedAt,
		&j.FinishedAt,
		&j.ErrorMessage,
		&j.Meta.IsDeleted,
		&j.Meta.CreatedBy,
		&j.Meta.ModifiedBy,
		&j.Meta.CreatedAt,
		&j.Meta.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &j, nil
}

func (r *jobRepo) Create(ctx context.Context, tx *sql.Tx, job *domain.DeploymentJob) error {
	query := `INSERT INTO deployment_jobs (id, site_id, job_type, status, correlation_id, started_at, finished_at, error_message, is_deleted, created_by, modified_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`

	_, err := tx.ExecContext(
		ctx, query,
		job.ID, job.SiteID, job.Type, job.Status, job.CorrelationID,
		job.StartedAt, job.FinishedAt, job.ErrorMessage,
		job.Meta.IsDeleted, job.Meta.CreatedBy, job.Meta.ModifiedBy, job.Meta.CreatedAt, job.Meta.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("create job: %w", err)
	}
	return nil
}

func (r *jobRepo) FindById(ctx context.Context, id uuid.UUID, includeDeleted bool) (*domain.DeploymentJob, error) {
	query := fmt.Sprintf("SELECT %s FROM deployment_jobs WHERE id = $1 AND (is_deleted = FALSE OR $2)", jobColumns)
	row := r.db.QueryRowContext(ctx, query, id, includeDeleted)
	job, err := scanJobRow(row.Scan)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find job: %w", err)
	}
	return job, nil
}

func (r *jobRepo) List(ctx context.Context, limit, offset int, includeDeleted bool) ([]domain.DeploymentJob, error) {
	query := fmt.Sprintf("SELECT %s FROM deployment_jobs WHERE (is_deleted = FALSE OR $1) ORDER BY created_at DESC LIMIT $2 OFFSET $3", jobColumns)
	rows, err := r.db.QueryContext(ctx, query, includeDeleted, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()

	var jobs []domain.DeploymentJob
	for rows.Next() {
		job, err := scanJobRow(rows.Scan)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, *job)
	}
	return jobs, rows.Err()
}

func (r *jobRepo) ClaimNext(ctx context.Context) (*domain.ClaimedJob, error) {
	// FOR UPDATE SKIP LOCKED makes concurrent pollers skip rows another
	// worker is claiming instead of blocking or double-claiming.
	query := fmt.Sprintf(`UPDATE deployment_jobs
		SET status = $1, started_at = now(), updated_at = now()
		WHERE id = (
			SELECT id FROM deployment_jobs
			WHERE status = $2 AND is_deleted = FALSE
			ORDER BY created_at
			LIMIT 1
			FOR UPDATE SKIP LOCKED
		)
		RETURNING %s`, jobColumns)

	row := r.db.QueryRowContext(ctx, query, domain.JobRunning, domain.JobQueued)
	job, err := scanJobRow(row.Scan)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("claim job: %w", err)
	}

	claimed := &domain.ClaimedJob{Job: *job}

	siteRow := r.db.QueryRowContext(ctx,
		fmt.Sprintf("SELECT %s FROM customer_sites WHERE id = $1", siteColumns), job.SiteID)
	site, err := scanSite(siteRow)
	if err != nil {
		return nil, err
	}
	if site == nil {
		return nil, domain.ErrSiteNotFound
	}
	claimed.Site = *site

	targetRow := r.db.QueryRowContext(ctx,
		fmt.Sprintf("SELECT %s FROM deployment_targets WHERE id = $1", targetColumns), site.TargetID)
	target, err := scanTarget(targetRow)
	if err != nil {
		return nil, err
	}
	if target != nil {
		claimed.Target = *target
	}
	return claimed, nil
}

func (r *jobRepo) Finish(ctx context.Context, jobID uuid.UUID, status domain.JobStatus, errorMessage *string, at time.Time) (int, error) {
	query := `UPDATE deployment_jobs
		SET status = $2, finished_at = $3, error_message = $4, updated_at = $3
		WHERE id = $1 AND status = $5`

	res, err := r.db.ExecContext(ctx, query, jobID, status, at, errorMessage, domain.JobRunning)
	if err != nil {
		return 0, fmt.Errorf("finish job: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(n), nil
}
