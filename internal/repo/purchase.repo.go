package repo

import (
	"context"
	"database/sql"
	"fmt"
	"template-foundry/internal/domain"
	"time"

	"github.com/google/uuid"
)

type PurchaseRepo interface {
	CreatePurchase(ctx context.Context, tx *sql.Tx, purchase *domain.Purchase) error
	FindById(ctx context.Context, id uuid.UUID, includeDeleted bool) (*domain.Purchase, error)
	FindByOrderItem(ctx context.Context, itemID uuid.UUID) (*domain.Purchase, error)
	CreateKey(ctx context.Context, tx *sql.Tx, key *domain.LicenseKey) error
	ActiveKey(ctx context.Context, purchaseID uuid.UUID) (*domain.LicenseKey, error)
	// RevokeActiveKeys transitions every ACTIVE key under the purchase to
	// REVOKED and returns the number of keys revoked.
	RevokeActiveKeys(ctx context.Context, tx *sql.Tx, purchaseID uuid.UUID, actorID uuid.UUID, at time.Time) (int, error)
}

type purchaseRepo struct {
	db *sql.DB
}

func NewPurchaseRepo(db *sql.DB) PurchaseRepo {
	return &purchaseRepo{db: db}
}

const purchaseColumns = `id, order_id, order_item_id, user_id, purchase_type, template_id, service_id, price, currency, status, is_deleted, created_by, modified_by, created_at, updated_at`

func scanPurchase(row *sql.Row) (*domain.Purchase, error) {
	var p domain.Purchase
	err := row.Scan(
		&p.ID,
		&p.OrderID,
		&p.OrderItemID,
		&p.UserID,
		&p.Type,
		&p.TemplateID,
		&p.ServiceID,
		&p.Price,
		&p.Currency,
		&p.Status,
		&p.Meta.IsDeleted,
		&p.Meta.CreatedBy,
		&p.Meta.ModifiedBy,
		&p.Meta.CreatedAt,
		&p.Meta.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil // not found
	}
	if err != nil {
		return nil, fmt.Errorf("scan purchase: %w", err)
	}
	return &p, nil
}

func (r *purchaseRepo) CreatePurchase(ctx context.Context, tx *sql.Tx, purchase *domain.Purchase) error {
	query := `INSERT INTO purchases (id, order_id, order_item_id, user_id, purchase_type, template_id, service_id, price, currency, status, is_deleted, created_by, modified_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`

	_, err := tx.ExecContext(
		ctx, query,
		purchase.ID, purchase.OrderID, purchase.OrderItemID, purchase.UserID, purchase.Type,
		purchase.TemplateID, purchase.ServiceID, purchase.Price, purchase.Currency, purchase.Status,
		purchase.Meta.IsDeleted, purchase.Meta.CreatedBy, purchase.Meta.ModifiedBy, purchase.Meta.CreatedAt, purchase.Meta.UpdatedAt,
	)
	if err != nil {
		// UNIQUE(order_item_id) is the backstop against double fulfillment.
		if isUniqueViolation(err) {
			return fmt.Errorf("purchase already issued for item %s: %w", purchase.OrderItemID, err)
		}
		return fmt.Errorf("create purchase: %w", err)
	}
	return nil
}

func (r *purchaseRepo) FindById(ctx context.Context, id uuid.UUID, includeDeleted bool) (*domain.Purchase, error) {
	query := fmt.Sprintf("SELECT %s FROM purchases WHERE id = $1 AND (is_deleted = FALSE OR $2)", purchaseColumns)
	return scanPurchase(r.db.QueryRowContext(ctx, query, id, includeDeleted))
}

func (r *purchaseRepo) FindByOrderItem(ctx context.Context, itemID uuid.UUID) (*domain.Purchase, error) {
	query := fmt.Sprintf("SELECT %s FROM purchases WHERE order_item_id = $1 AND is_deleted = FALSE", purchaseColumns)
	return scanPurchase(r.db.QueryRowContext(ctx, query, itemID))
}

func (r *purchaseRepo) CreateKey(ctx context.Context, tx *sql.Tx, key *domain.LicenseKey) error {
	query := `INSERT INTO license_keys (id, purchase_id, key, status, revoked_at, is_deleted, created_by, modified_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	_, err := tx.ExecContext(
		ctx, query,
		key.ID, key.PurchaseID, key.Key, key.Status, key.RevokedAt,
		key.Meta.IsDeleted, key.Meta.CreatedBy, key.Meta.ModifiedBy, key.Meta.CreatedAt, key.Meta.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("create license key: %w", err)
	}
	return nil
}

func (r *purchaseRepo) ActiveKey(ctx context.Context, purchaseID uuid.UUID) (*domain.LicenseKey, error) {
	query := `SELECT id, purchase_id, key, status, revoked_at, is_deleted, created_by, modified_by, created_at, updated_at
		FROM license_keys
		WHERE purchase_id = $1 AND status = $2 AND is_deleted = FALSE
		ORDER BY created_at DESC
		LIMIT 1`

	row := r.db.QueryRowContext(ctx, query, purchaseID, domain.LicenseKeyActive)
	var k domain.LicenseKey
	err := row.Scan(
		&k.ID,
		&k.PurchaseID,
		&k.Key,
		&k.Status,
		&k.RevokedAt,
		&k.Meta.IsDeleted,
		&k.Meta.CreatedBy,
		&k.Meta.ModifiedBy,
		&k.Meta.CreatedAt,
		&k.Meta.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("active key: %w", err)
	}
	return &k, nil
}

func (r *purchaseRepo) RevokeActiveKeys(ctx context.Context, tx *sql.Tx, purchaseID uuid.UUID, actorID uuid.UUID, at time.Time) (int, error) {
	query := `UPDATE license_keys
		SET status = $2, revoked_at = $3, modified_by = $4, updated_at = $3
		WHERE purchase_id = $1 AND status = $5 AND is_deleted = FALSE`

	res, err := tx.ExecContext(ctx, query, purchaseID, domain.LicenseKeyRevoked, at, actorID, domain.LicenseKeyActive)
	if err != nil {
		return 0, fmt.Errorf("revoke active keys: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(n), nil
}
