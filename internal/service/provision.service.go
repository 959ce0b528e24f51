package service

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"strings"
	"template-foundry/internal/domain"
	"template-foundry/internal/repo"
	"time"

	"github.com/google/uuid"
)

const subdomainAttempts = 5

// Provisioner creates customer sites for template purchases and handles
// admin lifecycle requests against existing sites.
type Provisioner interface {
	// ProvisionSite selects a deployment target and creates a site plus
	// its DEPLOY job inside the caller's transaction. Returns nil (no
	// error) when no target is active: the purchase still stands, the
	// skipped provisioning is audit-logged for the operator.
	ProvisionSite(ctx context.Context, tx *sql.Tx, actorID uuid.UUID, order *domain.Order, item domain.OrderItem, purchase *domain.Purchase) (*domain.CustomerSite, error)
	RequestLifecycle(ctx context.Context, actorID uuid.UUID, siteID uuid.UUID, jobType domain.JobType) (*domain.DeploymentJob, error)
	GetSite(ctx context.Context, siteID uuid.UUID) (*domain.CustomerSite, error)
}

type provisionService struct {
	db         *sql.DB
	targetRepo repo.TargetRepo
	siteRepo   repo.SiteRepo
	auditRepo  repo.AuditRepo
	queue      Queue
}

func NewProvisionService(db *sql.DB, targetRepo repo.TargetRepo, siteRepo repo.SiteRepo, auditRepo repo.AuditRepo, queue Queue) Provisioner {
	return &provisionService{
		db:         db,
		targetRepo: targetRepo,
		siteRepo:   siteRepo,
		auditRepo:  auditRepo,
		queue:      queue,
	}
}

func (s *provisionService) ProvisionSite(ctx context.Context, tx *sql.Tx, actorID uuid.UUID, order *domain.Order, item domain.OrderItem, purchase *domain.Purchase) (*domain.CustomerSite, error) {
	now := time.Now()

	target, err := s.targetRepo.FirstActive(ctx)
	if err != nil {
		return nil, err
	}
	if target == nil {
		log.Printf("no active deployment target, skipping site for purchase %s", purchase.ID)
		entry := &domain.AuditEntry{
			ID:            uuid.New(),
			EventType:     domain.AuditSiteSkipped,
			Severity:      domain.AuditWarning,
			Message:       fmt.Sprintf("no active deployment target, site not provisioned for purchase %s", purchase.ID),
			CorrelationID: purchase.ID,
			ActorID:       actorID,
			CreatedAt:     now,
		}
		if err := s.auditRepo.Append(ctx, tx, entry); err != nil {
			return nil, err
		}
		return nil, nil
	}

	subdomain, err := s.freeSubdomain(ctx, tx)
	if err != nil {
		return nil, err
	}

	site := &domain.CustomerSite{
		ID:         uuid.New(),
		UserID:     order.UserID,
		TemplateID: *item.TemplateID,
		PurchaseID: purchase.ID,
		TargetID:   target.ID,
		Subdomain:  subdomain,
		Status:     domain.SiteProvisioning,
		Meta:       newMeta(actorID, now),
	}
	if err := s.siteRepo.Create(ctx, tx, site); err != nil {
		return nil, err
	}

	// A site without its deploy job would sit in PROVISIONING forever,
	// so both rows ride the same transaction.
	if _, err := s.queue.Enqueue(ctx, tx, actorID, site.ID, domain.JobDeploy); err != nil {
		return nil, err
	}

	entry := &domain.AuditEntry{
		ID:            uuid.New(),
		EventType:     domain.AuditSiteProvisioned,
		Severity:      domain.AuditInfo,
		Message:       fmt.Sprintf("site %s (%s) provisioned on target %s", site.ID, site.Subdomain, target.Name),
		CorrelationID: purchase.ID,
		ActorID:       actorID,
		CreatedAt:     now,
	}
	if err := s.auditRepo.Append(ctx, tx, entry); err != nil {
		return nil, err
	}
	return site, nil
}

// freeSubdomain generates random candidates until one is unused. The
// pre-check keeps the surrounding transaction alive on collision; the
// unique constraint on customer_sites.subdomain remains the backstop.
func (s *provisionService) freeSubdomain(ctx context.Context, tx *sql.Tx) (string, error) {
	for i := 0; i < subdomainAttempts; i++ {
		candidate := newSubdomain()
		exists, err := s.siteRepo.SubdomainExists(ctx, tx, candidate)
		if err != nil {
			return "", err
		}
		if !exists {
			return candidate, nil
		}
	}
	return "", domain.ErrSubdomainTaken
}

func newSubdomain() string {
	return "site-" + strings.ReplaceAll(uuid.NewString(), "-", "")[:10]
}

func (s *provisionService) RequestLifecycle(ctx context.Context, actorID uuid.UUID, siteID uuid.UUID, jobType domain.JobType) (*domain.DeploymentJob, error) {
	if !jobType.Valid() || jobType == domain.JobDeploy {
		return nil, domain.ErrInvalidJobType
	}

	site, err := s.siteRepo.FindById(ctx, siteID, false)
	if err != nil {
		return nil, err
	}
	if site == nil {
		return nil, domain.ErrSiteNotFound
	}
	if !domain.JobAllowed(jobType, site.Status) {
		return nil, domain.ErrJobNotAllowed
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	job, err := s.queue.Enqueue(ctx, tx, actorID, siteID, jobType)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return job, nil
}

func (s *provisionService) GetSite(ctx context.Context, siteID uuid.UUID) (*domain.CustomerSite, error) {
	site, err := s.siteRepo.FindById(ctx, siteID, false)
	if err != nil {
		return nil, err
	}
	if site == nil {
		return nil, domain.ErrSiteNotFound
	}
	return site, nil
}
