package repo

import (
	"context"
	"database/sql"
	"fmt"
	"template-foundry/internal/domain"
	"time"

	"github.com/google/uuid"
)

type OrderRepo interface {
	FindById(ctx context.Context, id uuid.UUID, includeDeleted bool) (*domain.Order, error)
	// FindByIdForUpdate row-locks the order so concurrent status
	// transitions against the same order serialize.
	FindByIdForUpdate(ctx context.Context, tx *sql.Tx, id uuid.UUID) (*domain.Order, error)
	CreateOrder(ctx context.Context, tx *sql.Tx, order *domain.Order) error
	CreateItem(ctx context.Context, tx *sql.Tx, item *domain.OrderItem) error
	UpdateOrderStatus(ctx context.Context, tx *sql.Tx, order *domain.Order) error
	CountItems(ctx context.Context, orderID uuid.UUID) (int, error)
}

type orderRepo struct {
	db *sql.DB
}

func NewOrderRepo(db *sql.DB) OrderRepo {
	return &orderRepo{db: db}
}

const orderColumns = `id, user_id, total, currency, status, payment_status, is_deleted, created_by, modified_by, created_at, updated_at`

func scanOrder(row *sql.Row) (*domain.Order, error) {
	var o domain.Order
	err := row.Scan(
		&o.ID,
		&o.UserID,
		&o.Total,
		&o.Currency,
		&o.Status,
		&o.PaymentStatus,
		&o.Meta.IsDeleted,
		&o.Meta.CreatedBy,
		&o.Meta.ModifiedBy,
		&o.Meta.CreatedAt,
		&o.Meta.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil // not found
	}
	if err != nil {
		return nil, fmt.Errorf("scan order: %w", err)
	}
	return &o, nil
}

func (r *orderRepo) FindById(ctx context.Context, id uuid.UUID, includeDeleted bool) (*domain.Order, error) {
	query := fmt.Sprintf("SELECT %s FROM orders WHERE id = $1 AND (is_deleted = FALSE OR $2)", orderColumns)
	order, err := scanOrder(r.db.QueryRowContext(ctx, query, id, includeDeleted))
	if err != nil || order == nil {
		return order, err
	}
	if err := r.loadItems(ctx, order, includeDeleted); err != nil {
		return nil, err
	}
	return order, nil
}

func (r *orderRepo) FindByIdForUpdate(ctx context.Context, tx *sql.Tx, id uuid.UUID) (*domain.Order, error) {
	query := fmt.Sprintf("SELECT %s FROM orders WHERE id = $1 AND is_deleted = FALSE FOR UPDATE", orderColumns)
	order, err := scanOrder(tx.QueryRowContext(ctx, query, id))
	if err != nil || order == nil {
		return order, err
	}

	rows, err := tx.QueryContext(ctx,
		"SELECT id, order_id, template_id, service_id, price, quantity FROM order_items WHERE order_id = $1 AND is_deleted = FALSE ORDER BY created_at",
		id,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var item domain.OrderItem
		if err := rows.Scan(&item.ID, &item.OrderID, &item.TemplateID, &item.ServiceID, &item.Price, &item.Quantity); err != nil {
			return nil, err
		}
		order.Items = append(order.Items, item)
	}
	return order, rows.Err()
}

func (r *orderRepo) loadItems(ctx context.Context, order *domain.Order, includeDeleted bool) error {
	rows, err := r.db.QueryContext(ctx,
		"SELECT id, order_id, template_id, service_id, price, quantity FROM order_items WHERE order_id = $1 AND (is_deleted = FALSE OR $2) ORDER BY created_at",
		order.ID, includeDeleted,
	)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var item domain.OrderItem
		if err := rows.Scan(&item.ID, &item.OrderID, &item.TemplateID, &item.ServiceID, &item.Price, &item.Quantity); err != nil {
			return err
		}
		order.Items = append(order.Items, item)
	}
	return rows.Err()
}

func (r *orderRepo) CreateOrder(ctx context.Context, tx *sql.Tx, order *domain.Order) error {
	_, err := tx.ExecContext(ctx,
		"INSERT INTO orders (id, user_id, total, currency, status, payment_status, is_deleted, created_by, modified_by, created_at, updated_at) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)",
		order.ID, order.UserID, order.Total, order.Currency, order.Status, order.PaymentStatus,
		order.Meta.IsDeleted, order.Meta.CreatedBy, order.Meta.ModifiedBy, order.Meta.CreatedAt, order.Meta.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("create order: %w", err)
	}
	return nil
}

func (r *orderRepo) CreateItem(ctx context.Context, tx *sql.Tx, item *domain.OrderItem) error {
	_, err := tx.ExecContext(ctx,
		"INSERT INTO order_items (id, order_id, template_id, service_id, price, quantity, is_deleted, created_by, modified_by, created_at, updated_at) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)",
		item.ID, item.OrderID, item.TemplateID, item.ServiceID, item.Price, item.Quantity,
		item.Meta.IsDeleted, item.Meta.CreatedBy, item.Meta.ModifiedBy, item.Meta.CreatedAt, item.Meta.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("create order item: %w", err)
	}
	return nil
}

func (r *orderRepo) UpdateOrderStatus(ctx context.Context, tx *sql.Tx, order *domain.Order) error {
	_, err := tx.ExecContext(ctx,
		"UPDATE orders SET status = $1, modified_by = $2, updated_at = $3 WHERE id = $4",
		order.Status, order.Meta.ModifiedBy, time.Now(), order.ID,
	)
	if err != nil {
		return fmt.Errorf("update order status: %w", err)
	}
	return nil
}

func (r *orderRepo) CountItems(ctx context.Context, orderID uuid.UUID) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM order_items WHERE order_id = $1 AND is_deleted = FALSE",
		orderID,
	).Scan(&n)
	if err != nil {
		return 0, err
	}
	return n, nil
}
