package service

import (
	"context"
	"database/sql"
	"fmt"
	"template-foundry/internal/domain"
	"template-foundry/internal/repo"
	"time"

	"github.com/google/uuid"
)

// Fulfillment drives order status transitions. Crossing the completion
// edge issues purchases, keys, sites and deploy jobs for every item, all
// inside one transaction.
type Fulfillment interface {
	Transition(ctx context.Context, actorID uuid.UUID, orderID uuid.UUID, newStatus domain.OrderStatus) error
}

type fulfillmentService struct {
	db          *sql.DB
	orderRepo   repo.OrderRepo
	ledger      Ledger
	provisioner Provisioner
	auditRepo   repo.AuditRepo
}

func NewFulfillmentService(
	db *sql.DB,
	orderRepo repo.OrderRepo,
	ledger Ledger,
	provisioner Provisioner,
	auditRepo repo.AuditRepo,
) Fulfillment {
	return &fulfillmentService{
		db:          db,
		orderRepo:   orderRepo,
		ledger:      ledger,
		provisioner: provisioner,
		auditRepo:   auditRepo,
	}
}

func (s *fulfillmentService) Transition(ctx context.Context, actorID uuid.UUID, orderID uuid.UUID, newStatus domain.OrderStatus) error {
	if !newStatus.Valid() {
		return domain.ErrInvalidStatus
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	// The row lock serializes concurrent transitions against the same
	// order; the completion edge below is keyed off the status read
	// under that lock, so a second completion sees COMPLETED and skips
	// the side effects.
	order, err := s.orderRepo.FindByIdForUpdate(ctx, tx, orderID)
	if err != nil {
		return err
	}
	if order == nil {
		return domain.ErrOrderNotFound
	}

	if !order.Status.CanTransitionTo(newStatus) {
		return fmt.Errorf("%w: %s -> %s", domain.ErrInvalidTransition, order.Status, newStatus)
	}

	fulfilling := order.Status != domain.OrderCompleted && newStatus == domain.OrderCompleted
	oldStatus := order.Status

	order.Status = newStatus
	order.Meta.ModifiedBy = actorID
	if err := s.orderRepo.UpdateOrderStatus(ctx, tx, order); err != nil {
		return err
	}

	if fulfilling {
		for _, item := range order.Items {
			purchase, err := s.ledger.IssuePurchase(ctx, tx, actorID, order, item)
			if err != nil {
				return err
			}
			if item.IsTemplate() {
				if _, err := s.provisioner.ProvisionSite(ctx, tx, actorID, order, item, purchase); err != nil {
					return err
				}
			}
		}
	}

	entry := &domain.AuditEntry{
		ID:            uuid.New(),
		EventType:     domain.AuditOrderStatusChanged,
		Severity:      domain.AuditInfo,
		Message:       fmt.Sprintf("order %s: %s -> %s", order.ID, oldStatus, newStatus),
		CorrelationID: order.ID,
		ActorID:       actorID,
		CreatedAt:     time.Now(),
	}
	if err := s.auditRepo.Append(ctx, tx, entry); err != nil {
		return err
	}

	return tx.Commit()
}
