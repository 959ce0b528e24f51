package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"time"

	"template-foundry/internal/database"
	"template-foundry/internal/domain"
	"template-foundry/internal/infrastructure/deploy"
	"template-foundry/internal/repo"
	"template-foundry/internal/service"
	"template-foundry/internal/worker"
	"template-foundry/migrations"

	"github.com/google/uuid"
)

// Drives the full pipeline end to end against a local database: seed a
// deployment target, complete a handful of template orders, then let a
// worker chew through the resulting deploy jobs.
func main() {
	ctx := context.Background()
	db := database.NewPostgres()

	if err := migrations.Apply(ctx, db); err != nil {
		log.Fatalf("apply migrations: %v", err)
	}

	orderRepo := repo.NewOrderRepo(db)
	purchaseRepo := repo.NewPurchaseRepo(db)
	targetRepo := repo.NewTargetRepo(db)
	siteRepo := repo.NewSiteRepo(db)
	jobRepo := repo.NewJobRepo(db)
	auditRepo := repo.NewAuditRepo(db)

	queue := service.NewQueueService(db, jobRepo, siteRepo, auditRepo)
	ledger := service.NewLedgerService(db, purchaseRepo, auditRepo)
	provisioner := service.NewProvisionService(db, targetRepo, siteRepo, auditRepo, queue)
	fulfillment := service.NewFulfillmentService(db, orderRepo, ledger, provisioner, auditRepo)

	admin := uuid.New()
	seedTarget(ctx, db, targetRepo, admin)

	fmt.Println("--- STARTING SIMULATION (10 ORDERS) ---")
	for i := 0; i < 10; i++ {
		order := seedTemplateOrder(ctx, db, orderRepo, admin)

		fmt.Printf("[%d] Completing Order %s ... ", i+1, order.ID)
		if err := fulfillment.Transition(ctx, admin, order.ID, domain.OrderCompleted); err != nil {
			fmt.Printf("FAILED: %v\n", err)
			continue
		}
		fmt.Printf("SUCCESS\n")

		fresh, _ := orderRepo.FindById(ctx, order.ID, false)
		fmt.Printf("    -> DB Status: %s\n", fresh.Status)
		fmt.Println("---------------------------------------------------")
		time.Sleep(100 * time.Millisecond)
	}

	w := worker.NewDeploymentWorker(queue, deploy.NewMockExecutor(), uuid.New(), 1*time.Second)
	go w.Run(ctx)

	time.Sleep(10 * time.Second)
}

func seedTarget(ctx context.Context, db *sql.DB, targetRepo repo.TargetRepo, admin uuid.UUID) {
	existing, err := targetRepo.FirstActive(ctx)
	if err != nil {
		log.Fatalf("check target: %v", err)
	}
	if existing != nil {
		return
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		log.Fatalf("begin tx: %v", err)
	}
	defer tx.Rollback()

	now := time.Now()
	target := &domain.DeploymentTarget{
		ID:       uuid.New(),
		Name:     "local-sim",
		Host:     "127.0.0.1",
		SSHUser:  "deploy",
		BasePath: "/srv/sites",
		IsActive: true,
		Meta:     domain.Meta{CreatedBy: admin, ModifiedBy: admin, CreatedAt: now, UpdatedAt: now},
	}
	if err := targetRepo.Create(ctx, tx, target); err != nil {
		log.Fatalf("seed target: %v", err)
	}
	if err := tx.Commit(); err != nil {
		log.Fatalf("commit target: %v", err)
	}
}

func seedTemplateOrder(ctx context.Context, db *sql.DB, orderRepo repo.OrderRepo, admin uuid.UUID) *domain.Order {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		log.Fatalf("begin tx: %v", err)
	}
	defer tx.Rollback()

	now := time.Now()
	meta := domain.Meta{CreatedBy: admin, ModifiedBy: admin, CreatedAt: now, UpdatedAt: now}
	templateID := uuid.New()

	order := &domain.Order{
		ID:       uuid.New(),
		UserID:   uuid.New(),
		Total:    100,
		Currency: "USD",
		Status:   domain.OrderPending,
		Meta:     meta,
	}
	if err := orderRepo.CreateOrder(ctx, tx, order); err != nil {
		log.Fatalf("seed order: %v", err)
	}

	item := &domain.OrderItem{
		ID:         uuid.New(),
		OrderID:    order.ID,
		TemplateID: &templateID,
		Price:      100,
		Quantity:   1,
		Meta:       meta,
	}
	if err := orderRepo.CreateItem(ctx, tx, item); err != nil {
		log.Fatalf("seed order item: %v", err)
	}

	if err := tx.Commit(); err != nil {
		log.Fatalf("commit order: %v", err)
	}
	return order
}
