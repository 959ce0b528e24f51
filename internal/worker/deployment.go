package worker

import (
	"context"
	"log"
	"template-foundry/internal/domain"
	"template-foundry/internal/infrastructure/deploy"
	"template-foundry/internal/service"
	"time"

	"github.com/google/uuid"
)

// DeploymentWorker polls the job queue, executes claimed jobs through the
// executor and reports terminal status. Claims are atomic on the queue
// side, so any number of workers can run concurrently.
type DeploymentWorker struct {
	queue    service.Queue
	executor deploy.Executor
	actorID  uuid.UUID
	interval time.Duration
}

func NewDeploymentWorker(
	queue service.Queue,
	executor deploy.Executor,
	actorID uuid.UUID,
	interval time.Duration,
) *DeploymentWorker {
	return &DeploymentWorker{
		queue:    queue,
		executor: executor,
		actorID:  actorID,
		interval: interval,
	}
}

func (w *DeploymentWorker) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	log.Println("Deployment worker started")

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := w.drain(ctx); err != nil {
				log.Printf("Deployment run failed: %v", err)
			}
		}
	}
}

// drain claims and executes jobs until the queue is empty.
func (w *DeploymentWorker) drain(ctx context.Context) error {
	for {
		claimed, err := w.queue.ClaimNext(ctx)
		if err != nil {
			return err
		}
		if claimed == nil {
			return nil
		}
		w.execute(ctx, claimed)
	}
}

func (w *DeploymentWorker) execute(ctx context.Context, claimed *domain.ClaimedJob) {
	job := claimed.Job
	log.Printf("Executing %s job %s for site %s", job.Type, job.ID, claimed.Site.Subdomain)

	if err := w.executor.Execute(ctx, *claimed); err != nil {
		msg := err.Error()
		if rerr := w.queue.Report(ctx, w.actorID, job.ID, domain.JobFailed, &msg); rerr != nil {
			log.Printf("Failed to report job %s failure: %v", job.ID, rerr)
		}
		return
	}

	if err := w.queue.Report(ctx, w.actorID, job.ID, domain.JobSucceeded, nil); err != nil {
		log.Printf("Failed to report job %s success: %v", job.ID, err)
	}
}
