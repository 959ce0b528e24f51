package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"template-foundry/internal/database"
	"template-foundry/internal/infrastructure/deploy"
	"template-foundry/internal/repo"
	"template-foundry/internal/service"
	"template-foundry/internal/worker"

	"github.com/google/uuid"
)

const defaultPollInterval = 2 * time.Second

func main() {
	db := database.NewPostgres()
	defer db.Close()

	interval := defaultPollInterval
	if raw := os.Getenv("WORKER_POLL_INTERVAL"); raw != "" {
		parsed, err := time.ParseDuration(raw)
		if err != nil {
			log.Fatalf("invalid WORKER_POLL_INTERVAL: %v", err)
		}
		interval = parsed
	}

	jobRepo := repo.NewJobRepo(db)
	siteRepo := repo.NewSiteRepo(db)
	auditRepo := repo.NewAuditRepo(db)
	queue := service.NewQueueService(db, jobRepo, siteRepo, auditRepo)

	// Each worker instance acts under its own identity in audit columns.
	workerID := uuid.New()
	log.Printf("deployment worker %s polling every %s", workerID, interval)

	w := worker.NewDeploymentWorker(queue, deploy.NewMockExecutor(), workerID, interval)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	w.Run(ctx)
	log.Printf("deployment worker stopped")
}
