package testutil

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"template-foundry/internal/database"
	"template-foundry/internal/domain"
	"template-foundry/migrations"

	"github.com/google/uuid"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

var (
	once     sync.Once
	sharedDB *sql.DB
	startErr error
)

// NewTestDB hands out a database connected to a postgres testcontainer
// shared by the whole test binary, with migrations applied and all
// tables truncated. Set TEST_DATABASE_URL to use an external database
// instead of docker.
func NewTestDB(t *testing.T) *sql.DB {
	t.Helper()

	once.Do(func() {
		sharedDB, startErr = start()
	})
	if startErr != nil {
		t.Skipf("skipping Postgres integration tests: %v", startErr)
	}

	truncateAll(t, sharedDB)
	return sharedDB
}

func start() (db *sql.DB, err error) {
	// testcontainers panics (rather than returning an error) when no
	// Docker host can be found; turn that into an error so callers get
	// the documented skip behavior.
	defer func() {
		if r := recover(); r != nil {
			db, err = nil, fmt.Errorf("start postgres container: %v", r)
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		ctr, err := tcpostgres.Run(ctx, "postgres:16-alpine",
			tcpostgres.WithDatabase("foundry"),
			tcpostgres.WithUsername("foundry"),
			tcpostgres.WithPassword("foundry"),
			testcontainers.WithWaitStrategy(
				wait.ForLog("database system is ready to accept connections").
					WithOccurrence(2).
					WithStartupTimeout(time.Minute),
			),
		)
		if err != nil {
			return nil, fmt.Errorf("start postgres container: %w", err)
		}
		dsn, err = ctr.ConnectionString(ctx, "sslmode=disable")
		if err != nil {
			return nil, fmt.Errorf("container dsn: %w", err)
		}
	}

	db, err = database.Open(dsn)
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("ping: %w", err)
	}
	if err := migrations.Apply(ctx, db); err != nil {
		return nil, fmt.Errorf("apply migrations: %w", err)
	}
	return db, nil
}

func truncateAll(t *testing.T, db *sql.DB) {
	t.Helper()
	_, err := db.Exec(`TRUNCATE audit_logs, deployment_jobs, customer_sites, deployment_targets, license_keys, purchases, order_items, orders CASCADE`)
	if err != nil {
		t.Fatalf("truncate: %v", err)
	}
}

// Meta returns audit metadata stamped with the given actor.
func Meta(actorID uuid.UUID) domain.Meta {
	now := time.Now()
	return domain.Meta{
		CreatedBy:  actorID,
		ModifiedBy: actorID,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

// InsertOrder writes an order with the given items.
func InsertOrder(t *testing.T, ctx context.Context, db *sql.DB, order *domain.Order) {
	t.Helper()
	_, err := db.ExecContext(ctx,
		"INSERT INTO orders (id, user_id, total, currency, status, payment_status, is_deleted, created_by, modified_by, created_at, updated_at) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)",
		order.ID, order.UserID, order.Total, order.Currency, order.Status, order.PaymentStatus,
		order.Meta.IsDeleted, order.Meta.CreatedBy, order.Meta.ModifiedBy, order.Meta.CreatedAt, order.Meta.UpdatedAt,
	)
	if err != nil {
		t.Fatalf("insert order: %v", err)
	}
	for _, item := range order.Items {
		_, err := db.ExecContext(ctx,
			"INSERT INTO order_items (id, order_id, template_id, service_id, price, quantity, is_deleted, created_by, modified_by, created_at, updated_at) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)",
			item.ID, item.OrderID, item.TemplateID, item.ServiceID, item.Price, item.Quantity,
			item.Meta.IsDeleted, item.Meta.CreatedBy, item.Meta.ModifiedBy, item.Meta.CreatedAt, item.Meta.UpdatedAt,
		)
		if err != nil {
			t.Fatalf("insert order item: %v", err)
		}
	}
}

// InsertTarget writes a deployment target.
func InsertTarget(t *testing.T, ctx context.Context, db *sql.DB, target *domain.DeploymentTarget) {
	t.Helper()
	_, err := db.ExecContext(ctx,
		"INSERT INTO deployment_targets (id, name, host, ssh_user, base_path, is_active, is_deleted, created_by, modified_by, created_at, updated_at) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)",
		target.ID, target.Name, target.Host, target.SSHUser, target.BasePath, target.IsActive,
		target.Meta.IsDeleted, target.Meta.CreatedBy, target.Meta.ModifiedBy, target.Meta.CreatedAt, target.Meta.UpdatedAt,
	)
	if err != nil {
		t.Fatalf("insert target: %v", err)
	}
}

// InsertPurchase writes a purchase row.
func InsertPurchase(t *testing.T, ctx context.Context, db *sql.DB, p *domain.Purchase) {
	t.Helper()
	_, err := db.ExecContext(ctx,
		"INSERT INTO purchases (id, order_id, order_item_id, user_id, purchase_type, template_id, service_id, price, currency, status, is_deleted, created_by, modified_by, created_at, updated_at) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)",
		p.ID, p.OrderID, p.OrderItemID, p.UserID, p.Type, p.TemplateID, p.ServiceID, p.Price, p.Currency, p.Status,
		p.Meta.IsDeleted, p.Meta.CreatedBy, p.Meta.ModifiedBy, p.Meta.CreatedAt, p.Meta.UpdatedAt,
	)
	if err != nil {
		t.Fatalf("insert purchase: %v", err)
	}
}

// InsertSite writes a customer site row.
func InsertSite(t *testing.T, ctx context.Context, db *sql.DB, s *domain.CustomerSite) {
	t.Helper()
	_, err := db.ExecContext(ctx,
		"INSERT INTO customer_sites (id, user_id, template_id, purchase_id, target_id, subdomain, status, is_deleted, created_by, modified_by, created_at, updated_at) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)",
		s.ID, s.UserID, s.TemplateID, s.PurchaseID, s.TargetID, s.Subdomain, s.Status,
		s.Meta.IsDeleted, s.Meta.CreatedBy, s.Meta.ModifiedBy, s.Meta.CreatedAt, s.Meta.UpdatedAt,
	)
	if err != nil {
		t.Fatalf("insert site: %v", err)
	}
}

// CountRows counts table rows matching an optional WHERE clause.
func CountRows(t *testing.T, ctx context.Context, db *sql.DB, table, where string, args ...any) int {
	t.Helper()
	query := "SELECT COUNT(*) FROM " + table
	if where != "" {
		query += " WHERE " + where
	}
	var n int
	if err := db.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		t.Fatalf("count %s: %v", table, err)
	}
	return n
}
