package service

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"template-foundry/internal/domain"
	"template-foundry/internal/repo"
	"time"

	"github.com/google/uuid"
)

// Queue is the producer/consumer contract for deployment work. Enqueue
// runs inside the caller's transaction; ClaimNext and Report are the
// external worker's only way into the pipeline.
type Queue interface {
	Enqueue(ctx context.Context, tx *sql.Tx, actorID uuid.UUID, siteID uuid.UUID, jobType domain.JobType) (*domain.DeploymentJob, error)
	ClaimNext(ctx context.Context) (*domain.ClaimedJob, error)
	Report(ctx context.Context, actorID uuid.UUID, jobID uuid.UUID, status domain.JobStatus, errorMessage *string) error
	List(ctx context.Context, limit, offset int) ([]domain.DeploymentJob, error)
	Get(ctx context.Context, jobID uuid.UUID) (*domain.DeploymentJob, error)
}

type queueService struct {
	db        *sql.DB
	jobRepo   repo.JobRepo
	siteRepo  repo.SiteRepo
	auditRepo repo.AuditRepo
}

func NewQueueService(db *sql.DB, jobRepo repo.JobRepo, siteRepo repo.SiteRepo, auditRepo repo.AuditRepo) Queue {
	return &queueService{
		db:        db,
		jobRepo:   jobRepo,
		siteRepo:  siteRepo,
		auditRepo: auditRepo,
	}
}

func (s *queueService) Enqueue(ctx context.Context, tx *sql.Tx, actorID uuid.UUID, siteID uuid.UUID, jobType domain.JobType) (*domain.DeploymentJob, error) {
	if !jobType.Valid() {
		return nil, domain.ErrInvalidJobType
	}

	now := time.Now()
	job := &domain.DeploymentJob{
		ID:            uuid.New(),
		SiteID:        siteID,
		Type:          jobType,
		Status:        domain.JobQueued,
		CorrelationID: uuid.New(),
		Meta:          newMeta(actorID, now),
	}
	if err := s.jobRepo.Create(ctx, tx, job); err != nil {
		return nil, err
	}

	entry := &domain.AuditEntry{
		ID:            uuid.New(),
		EventType:     domain.AuditJobEnqueued,
		Severity:      domain.AuditInfo,
		Message:       fmt.Sprintf("%s job queued for site %s", job.Type, siteID),
		CorrelationID: job.CorrelationID,
		ActorID:       actorID,
		CreatedAt:     now,
	}
	if err := s.auditRepo.Append(ctx, tx, entry); err != nil {
		return nil, err
	}
	return job, nil
}

func (s *queueService) ClaimNext(ctx context.Context) (*domain.ClaimedJob, error) {
	return s.jobRepo.ClaimNext(ctx)
}

// Report records a terminal status for a RUNNING job. On success the
// owning site follows the job: deploy/redeploy/start activate it, stop
// stops it, remove removes it. A failed job leaves the site untouched.
func (s *queueService) Report(ctx context.Context, actorID uuid.UUID, jobID uuid.UUID, status domain.JobStatus, errorMessage *string) error {
	if status != domain.JobSucceeded && status != domain.JobFailed {
		return domain.ErrInvalidStatus
	}

	job, err := s.jobRepo.FindById(ctx, jobID, false)
	if err != nil {
		return err
	}
	if job == nil {
		return domain.ErrJobNotFound
	}
	if !job.Status.CanTransitionTo(status) {
		return domain.ErrInvalidTransition
	}

	n, err := s.jobRepo.Finish(ctx, jobID, status, errorMessage, time.Now())
	if err != nil {
		return err
	}
	if n == 0 {
		// Lost the race against another status report.
		return domain.ErrInvalidTransition
	}

	if status == domain.JobSucceeded {
		if err := s.settleSite(ctx, actorID, job); err != nil {
			// The job outcome is already durable; a site settle failure
			// is operator-visible through the logs.
			log.Printf("settle site %s after job %s: %v", job.SiteID, job.ID, err)
		}
	}
	return nil
}

func (s *queueService) settleSite(ctx context.Context, actorID uuid.UUID, job *domain.DeploymentJob) error {
	var desired domain.SiteStatus
	switch job.Type {
	case domain.JobDeploy, domain.JobRedeploy, domain.JobStart:
		desired = domain.SiteActive
	case domain.JobStop:
		desired = domain.SiteStopped
	case domain.JobRemove:
		desired = domain.SiteRemoved
	default:
		return domain.ErrInvalidJobType
	}

	site, err := s.siteRepo.FindById(ctx, job.SiteID, false)
	if err != nil {
		return err
	}
	if site == nil {
		return domain.ErrSiteNotFound
	}
	if site.Status == desired {
		return nil
	}
	if !site.Status.CanTransitionTo(desired) {
		return domain.ErrInvalidTransition
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := s.siteRepo.UpdateStatus(ctx, tx, site.ID, desired, actorID); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *queueService) List(ctx context.Context, limit, offset int) ([]domain.DeploymentJob, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return s.jobRepo.List(ctx, limit, offset, false)
}

func (s *queueService) Get(ctx context.Context, jobID uuid.UUID) (*domain.DeploymentJob, error) {
	job, err := s.jobRepo.FindById(ctx, jobID, false)
	if err != nil {
		return nil, err
	}
	if job == nil {
		return nil, domain.ErrJobNotFound
	}
	return job, nil
}
