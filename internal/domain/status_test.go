package domain

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestOrderStatusTransitions(t *testing.T) {
	assert.True(t, OrderPending.CanTransitionTo(OrderCompleted))
	assert.True(t, OrderPending.CanTransitionTo(OrderCancelled))
	assert.True(t, OrderCompleted.CanTransitionTo(OrderRefunded))

	// Same-status updates are no-ops, never errors.
	assert.True(t, OrderCompleted.CanTransitionTo(OrderCompleted))
	assert.True(t, OrderPending.CanTransitionTo(OrderPending))

	assert.False(t, OrderCompleted.CanTransitionTo(OrderPending))
	assert.False(t, OrderCancelled.CanTransitionTo(OrderCompleted))
	assert.False(t, OrderRefunded.CanTransitionTo(OrderPending))
	assert.False(t, OrderPending.CanTransitionTo(OrderRefunded))
}

func TestOrderStatusValid(t *testing.T) {
	assert.True(t, OrderPending.Valid())
	assert.True(t, OrderRefunded.Valid())
	assert.False(t, OrderStatus("SHIPPED").Valid())
	assert.False(t, OrderStatus("").Valid())
}

func TestSiteStatusTransitions(t *testing.T) {
	assert.True(t, SiteProvisioning.CanTransitionTo(SiteActive))
	assert.True(t, SiteProvisioning.CanTransitionTo(SiteFailed))
	assert.True(t, SiteActive.CanTransitionTo(SiteStopped))
	assert.True(t, SiteStopped.CanTransitionTo(SiteActive))
	assert.True(t, SiteFailed.CanTransitionTo(SiteActive))

	assert.False(t, SiteRemoved.CanTransitionTo(SiteActive))
	assert.False(t, SiteProvisioning.CanTransitionTo(SiteStopped))
	assert.False(t, SiteStopped.CanTransitionTo(SiteFailed))
}

func TestJobStatusTransitions(t *testing.T) {
	assert.True(t, JobQueued.CanTransitionTo(JobRunning))
	assert.True(t, JobRunning.CanTransitionTo(JobSucceeded))
	assert.True(t, JobRunning.CanTransitionTo(JobFailed))

	assert.False(t, JobQueued.CanTransitionTo(JobSucceeded))
	assert.False(t, JobSucceeded.CanTransitionTo(JobRunning))
	assert.False(t, JobFailed.CanTransitionTo(JobQueued))
}

func TestJobAllowed(t *testing.T) {
	assert.True(t, JobAllowed(JobStop, SiteActive))
	assert.True(t, JobAllowed(JobStart, SiteStopped))
	assert.True(t, JobAllowed(JobRedeploy, SiteFailed))
	assert.True(t, JobAllowed(JobRemove, SiteProvisioning))

	// Stop against an already-stopped site is rejected.
	assert.False(t, JobAllowed(JobStop, SiteStopped))
	assert.False(t, JobAllowed(JobStart, SiteActive))
	assert.False(t, JobAllowed(JobRemove, SiteRemoved))
	// Deploy is never admissible through the lifecycle surface.
	assert.False(t, JobAllowed(JobDeploy, SiteActive))
}

func TestOrderItemIsTemplate(t *testing.T) {
	id := uuid.New()
	assert.True(t, OrderItem{TemplateID: &id}.IsTemplate())
	assert.False(t, OrderItem{ServiceID: &id}.IsTemplate())
}
