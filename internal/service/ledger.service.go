package service

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"template-foundry/internal/domain"
	"template-foundry/internal/repo"
	"time"

	"github.com/google/uuid"
)

// Ledger owns purchases and license keys. IssuePurchase runs inside the
// orchestrator's transaction; the key operations own their own.
type Ledger interface {
	IssuePurchase(ctx context.Context, tx *sql.Tx, actorID uuid.UUID, order *domain.Order, item domain.OrderItem) (*domain.Purchase, error)
	ActiveKey(ctx context.Context, actorID uuid.UUID, purchaseID uuid.UUID) (*domain.LicenseKey, error)
	RevokeKeys(ctx context.Context, actorID uuid.UUID, purchaseID uuid.UUID) (int, error)
	RotateKey(ctx context.Context, actorID uuid.UUID, purchaseID uuid.UUID) (*domain.LicenseKey, error)
}

type ledgerService struct {
	db           *sql.DB
	purchaseRepo repo.PurchaseRepo
	auditRepo    repo.AuditRepo
}

func NewLedgerService(db *sql.DB, purchaseRepo repo.PurchaseRepo, auditRepo repo.AuditRepo) Ledger {
	return &ledgerService{
		db:           db,
		purchaseRepo: purchaseRepo,
		auditRepo:    auditRepo,
	}
}

func (s *ledgerService) IssuePurchase(ctx context.Context, tx *sql.Tx, actorID uuid.UUID, order *domain.Order, item domain.OrderItem) (*domain.Purchase, error) {
	now := time.Now()
	purchase := &domain.Purchase{
		ID:          uuid.New(),
		OrderID:     order.ID,
		OrderItemID: item.ID,
		UserID:      order.UserID,
		Type:        domain.PurchaseService,
		TemplateID:  item.TemplateID,
		ServiceID:   item.ServiceID,
		Price:       item.Price,
		Currency:    order.Currency,
		Status:      domain.PurchaseActive,
		Meta:        newMeta(actorID, now),
	}
	if item.IsTemplate() {
		purchase.Type = domain.PurchaseTemplate
	}

	if err := s.purchaseRepo.CreatePurchase(ctx, tx, purchase); err != nil {
		return nil, err
	}

	// A fresh purchase has no keys, so issuing here cannot violate the
	// at-most-one-active invariant.
	if item.IsTemplate() {
		if _, err := s.issueKey(ctx, tx, actorID, purchase.ID, now); err != nil {
			return nil, err
		}
	}

	entry := &domain.AuditEntry{
		ID:            uuid.New(),
		EventType:     domain.AuditPurchaseIssued,
		Severity:      domain.AuditInfo,
		Message:       fmt.Sprintf("purchase %s issued for order %s (%s)", purchase.ID, order.ID, purchase.Type),
		CorrelationID: order.ID,
		ActorID:       actorID,
		CreatedAt:     now,
	}
	if err := s.auditRepo.Append(ctx, tx, entry); err != nil {
		return nil, err
	}
	return purchase, nil
}

func (s *ledgerService) issueKey(ctx context.Context, tx *sql.Tx, actorID uuid.UUID, purchaseID uuid.UUID, now time.Time) (*domain.LicenseKey, error) {
	key := &domain.LicenseKey{
		ID:         uuid.New(),
		PurchaseID: purchaseID,
		Key:        newLicenseKey(),
		Status:     domain.LicenseKeyActive,
		Meta:       newMeta(actorID, now),
	}
	if err := s.purchaseRepo.CreateKey(ctx, tx, key); err != nil {
		return nil, err
	}
	return key, nil
}

func (s *ledgerService) ActiveKey(ctx context.Context, actorID uuid.UUID, purchaseID uuid.UUID) (*domain.LicenseKey, error) {
	if _, err := s.ownedKeyBearingPurchase(ctx, actorID, purchaseID); err != nil {
		return nil, err
	}
	return s.purchaseRepo.ActiveKey(ctx, purchaseID)
}

func (s *ledgerService) RevokeKeys(ctx context.Context, actorID uuid.UUID, purchaseID uuid.UUID) (int, error) {
	if _, err := s.ownedKeyBearingPurchase(ctx, actorID, purchaseID); err != nil {
		return 0, err
	}

	now := time.Now()
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	revoked, err := s.purchaseRepo.RevokeActiveKeys(ctx, tx, purchaseID, actorID, now)
	if err != nil {
		return 0, err
	}

	// Revoking nothing leaves no audit trace.
	if revoked > 0 {
		entry := &domain.AuditEntry{
			ID:            uuid.New(),
			EventType:     domain.AuditKeyRevoked,
			Severity:      domain.AuditInfo,
			Message:       fmt.Sprintf("%d license key(s) revoked for purchase %s", revoked, purchaseID),
			CorrelationID: purchaseID,
			ActorID:       actorID,
			CreatedAt:     now,
		}
		if err := s.auditRepo.Append(ctx, tx, entry); err != nil {
			return 0, err
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return revoked, nil
}

// RotateKey revokes every active key and issues a fresh one in a single
// transaction, so the at-most-one-active invariant holds at every commit
// point.
func (s *ledgerService) RotateKey(ctx context.Context, actorID uuid.UUID, purchaseID uuid.UUID) (*domain.LicenseKey, error) {
	if _, err := s.ownedKeyBearingPurchase(ctx, actorID, purchaseID); err != nil {
		return nil, err
	}

	now := time.Now()
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	if _, err := s.purchaseRepo.RevokeActiveKeys(ctx, tx, purchaseID, actorID, now); err != nil {
		return nil, err
	}

	key, err := s.issueKey(ctx, tx, actorID, purchaseID, now)
	if err != nil {
		return nil, err
	}

	entry := &domain.AuditEntry{
		ID:            uuid.New(),
		EventType:     domain.AuditKeyRotated,
		Severity:      domain.AuditInfo,
		Message:       fmt.Sprintf("license key rotated for purchase %s", purchaseID),
		CorrelationID: purchaseID,
		ActorID:       actorID,
		CreatedAt:     now,
	}
	if err := s.auditRepo.Append(ctx, tx, entry); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return key, nil
}

// ownedKeyBearingPurchase resolves the purchase and enforces ownership.
// A purchase owned by someone else reads as not found, so callers cannot
// probe for foreign purchase ids.
func (s *ledgerService) ownedKeyBearingPurchase(ctx context.Context, actorID uuid.UUID, purchaseID uuid.UUID) (*domain.Purchase, error) {
	purchase, err := s.purchaseRepo.FindById(ctx, purchaseID, false)
	if err != nil {
		return nil, err
	}
	if purchase == nil || purchase.UserID != actorID {
		return nil, domain.ErrPurchaseNotFound
	}
	if purchase.Type != domain.PurchaseTemplate {
		return nil, domain.ErrNotKeyBearing
	}
	return purchase, nil
}

func newLicenseKey() string {
	return "TF-" + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))
}

func newMeta(actorID uuid.UUID, now time.Time) domain.Meta {
	return domain.Meta{
		CreatedBy:  actorID,
		ModifiedBy: actorID,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}
