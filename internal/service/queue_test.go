package service_test

import (
	"context"
	"testing"
	"time"

	"template-foundry/internal/domain"
	"template-foundry/internal/testutil"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// completeAndDeploy runs fulfillment and drives the deploy job to
// success so the site lands in ACTIVE.
func completeAndDeploy(t *testing.T, ctx context.Context, f *fixture) uuid.UUID {
	t.Helper()
	f.seedTarget(t, ctx)
	order := f.seedTemplateOrder(t, ctx, 100)
	require.NoError(t, f.fulfillment.Transition(ctx, f.admin, order.ID, domain.OrderCompleted))

	claimed, err := f.queue.ClaimNext(ctx)
	require.NoError(t, err)
	require.NotNil(t, claimed)
	require.NoError(t, f.queue.Report(ctx, f.admin, claimed.Job.ID, domain.JobSucceeded, nil))
	return claimed.Site.ID
}

func (f *fixture) enqueueDirect(t *testing.T, ctx context.Context, siteID uuid.UUID, jobType domain.JobType) domain.DeploymentJob {
	t.Helper()
	tx, err := f.db.BeginTx(ctx, nil)
	require.NoError(t, err)
	defer tx.Rollback()

	job, err := f.queue.Enqueue(ctx, tx, f.admin, siteID, jobType)
	require.NoError(t, err)
	require.NoError(t, tx.Commit())
	return *job
}

func seedSite(t *testing.T, ctx context.Context, f *fixture, status domain.SiteStatus) *domain.CustomerSite {
	t.Helper()
	target := f.seedTarget(t, ctx)
	owner := uuid.New()
	templateID := uuid.New()

	order := f.seedTemplateOrder(t, ctx, 100)
	purchase := &domain.Purchase{
		ID:          uuid.New(),
		OrderID:     order.ID,
		OrderItemID: order.Items[0].ID,
		UserID:      owner,
		Type:        domain.PurchaseTemplate,
		TemplateID:  &templateID,
		Price:       100,
		Currency:    "USD",
		Status:      domain.PurchaseActive,
		Meta:        testutil.Meta(f.admin),
	}
	testutil.InsertPurchase(t, ctx, f.db, purchase)

	site := &domain.CustomerSite{
		ID:         uuid.New(),
		UserID:     owner,
		TemplateID: templateID,
		PurchaseID: purchase.ID,
		TargetID:   target.ID,
		Subdomain:  "site-" + uuid.NewString()[:10],
		Status:     status,
		Meta:       testutil.Meta(f.admin),
	}
	testutil.InsertSite(t, ctx, f.db, site)
	return site
}

func TestQueue_FIFOOrderingAndSingleClaim(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	site := seedSite(t, ctx, f, domain.SiteActive)

	j1 := f.enqueueDirect(t, ctx, site.ID, domain.JobStop)
	time.Sleep(10 * time.Millisecond)
	j2 := f.enqueueDirect(t, ctx, site.ID, domain.JobStart)
	time.Sleep(10 * time.Millisecond)
	j3 := f.enqueueDirect(t, ctx, site.ID, domain.JobRedeploy)

	for _, want := range []uuid.UUID{j1.ID, j2.ID, j3.ID} {
		claimed, err := f.queue.ClaimNext(ctx)
		require.NoError(t, err)
		require.NotNil(t, claimed)
		assert.Equal(t, want, claimed.Job.ID)
		assert.Equal(t, domain.JobRunning, claimed.Job.Status)
		assert.NotNil(t, claimed.Job.StartedAt)
		// Execution context rides along.
		assert.Equal(t, site.ID, claimed.Site.ID)
		assert.Equal(t, site.TargetID, claimed.Target.ID)
	}

	// Claimed jobs are never re-returned.
	claimed, err := f.queue.ClaimNext(ctx)
	require.NoError(t, err)
	assert.Nil(t, claimed)
}

func TestQueue_ReportSuccessSettlesSite(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	siteID := completeAndDeploy(t, ctx, f)

	var status string
	require.NoError(t, f.db.QueryRowContext(ctx, "SELECT status FROM customer_sites WHERE id = $1", siteID).Scan(&status))
	assert.Equal(t, "ACTIVE", status)
}

func TestQueue_ReportFailureLeavesSiteAlone(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.seedTarget(t, ctx)
	order := f.seedTemplateOrder(t, ctx, 100)
	require.NoError(t, f.fulfillment.Transition(ctx, f.admin, order.ID, domain.OrderCompleted))

	claimed, err := f.queue.ClaimNext(ctx)
	require.NoError(t, err)
	require.NotNil(t, claimed)

	msg := "ssh: connection refused"
	require.NoError(t, f.queue.Report(ctx, f.admin, claimed.Job.ID, domain.JobFailed, &msg))

	var jobStatus, siteStatus string
	var errMsg *string
	require.NoError(t, f.db.QueryRowContext(ctx, "SELECT status, error_message FROM deployment_jobs WHERE id = $1", claimed.Job.ID).Scan(&jobStatus, &errMsg))
	require.NoError(t, f.db.QueryRowContext(ctx, "SELECT status FROM customer_sites WHERE id = $1", claimed.Site.ID).Scan(&siteStatus))

	assert.Equal(t, "FAILED", jobStatus)
	require.NotNil(t, errMsg)
	assert.Equal(t, msg, *errMsg)
	// The site stays where the job found it.
	assert.Equal(t, "PROVISIONING", siteStatus)
}

func TestQueue_ReportRejectsIllegalStates(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	site := seedSite(t, ctx, f, domain.SiteActive)
	job := f.enqueueDirect(t, ctx, site.ID, domain.JobStop)

	// Reporting a job that was never claimed is illegal.
	err := f.queue.Report(ctx, f.admin, job.ID, domain.JobSucceeded, nil)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)

	// QUEUED and RUNNING are not terminal reports.
	err = f.queue.Report(ctx, f.admin, job.ID, domain.JobRunning, nil)
	assert.ErrorIs(t, err, domain.ErrInvalidStatus)

	err = f.queue.Report(ctx, f.admin, uuid.New(), domain.JobSucceeded, nil)
	assert.ErrorIs(t, err, domain.ErrJobNotFound)

	// Double-report after a terminal status is rejected.
	claimed, err := f.queue.ClaimNext(ctx)
	require.NoError(t, err)
	require.NotNil(t, claimed)
	require.NoError(t, f.queue.Report(ctx, f.admin, claimed.Job.ID, domain.JobSucceeded, nil))
	err = f.queue.Report(ctx, f.admin, claimed.Job.ID, domain.JobFailed, nil)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
}

func TestQueue_ListNewestFirst(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	site := seedSite(t, ctx, f, domain.SiteActive)

	j1 := f.enqueueDirect(t, ctx, site.ID, domain.JobStop)
	time.Sleep(10 * time.Millisecond)
	j2 := f.enqueueDirect(t, ctx, site.ID, domain.JobRedeploy)

	jobs, err := f.queue.List(ctx, 10, 0)
	require.NoError(t, err)
	require.Len(t, jobs, 2)
	assert.Equal(t, j2.ID, jobs[0].ID)
	assert.Equal(t, j1.ID, jobs[1].ID)
}

func TestLifecycle_AdmissibilityPerSiteState(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	site := seedSite(t, ctx, f, domain.SiteStopped)

	// Stop on an already-stopped site is rejected.
	_, err := f.provisioner.RequestLifecycle(ctx, f.admin, site.ID, domain.JobStop)
	assert.ErrorIs(t, err, domain.ErrJobNotAllowed)

	// Start is fine.
	job, err := f.provisioner.RequestLifecycle(ctx, f.admin, site.ID, domain.JobStart)
	require.NoError(t, err)
	assert.Equal(t, domain.JobStart, job.Type)
	assert.Equal(t, domain.JobQueued, job.Status)

	// Deploy never goes through the lifecycle surface.
	_, err = f.provisioner.RequestLifecycle(ctx, f.admin, site.ID, domain.JobDeploy)
	assert.ErrorIs(t, err, domain.ErrInvalidJobType)

	_, err = f.provisioner.RequestLifecycle(ctx, f.admin, uuid.New(), domain.JobStop)
	assert.ErrorIs(t, err, domain.ErrSiteNotFound)
}
