package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"template-foundry/internal/database"
	"template-foundry/internal/repo"
	"template-foundry/internal/service"
	transporthttp "template-foundry/internal/transport/http"
	"template-foundry/migrations"
)

const defaultPort = "8080"
const shutdownTimeout = 10 * time.Second

func main() {
	port := os.Getenv("PORT")
	if port == "" {
		port = defaultPort
	}

	startupCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	db := database.NewPostgres()
	defer db.Close()

	if err := db.PingContext(startupCtx); err != nil {
		log.Fatalf("db ping: %v", err)
	}
	if err := migrations.Apply(startupCtx, db); err != nil {
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

	handler := transporthttp.NewHandler(fulfillment, ledger, provisioner, queue, database.New())
	router := handler.Router(parseCSV(os.Getenv("CORS_ORIGINS")))

	server := &http.Server{
		Addr:    ":" + port,
		Handler: router,
	}

	log.Printf("api listening on :%s", port)

	srvErr := make(chan error, 1)
	go func() {
		srvErr <- server.ListenAndServe()
	}()

	stopCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	select {
	case err := <-srvErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("server error: %v", err)
		}
	case <-stopCtx.Done():
		log.Printf("shutdown signal received, stopping server")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Printf("server shutdown error: %v", err)
	}
	log.Printf("server stopped")
}

func parseCSV(input string) []string {
	if input == "" {
		return nil
	}
	parts := strings.Split(input, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		out = append(out, part)
	}
	return out
}
