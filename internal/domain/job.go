package domain

import (
	"time"

	"github.com/google/uuid"
)

type JobType string

const (
	JobDeploy   JobType = "DEPLOY"
	JobRedeploy JobType = "REDEPLOY"
	JobStop     JobType = "STOP"
	JobStart    JobType = "START"
	JobRemove   JobType = "REMOVE"
)

func (t JobType) Valid() bool {
	switch t {
	case JobDeploy, JobRedeploy, JobStop, JobStart, JobRemove:
		return true
	}
	return false
}

// jobAdmissibility says which lifecycle jobs may be enqueued against a
// site in a given state. Deploy is reserved for fresh provisioning and
// never enqueued through the admin surface.
var jobAdmissibility = map[JobType][]SiteStatus{
	JobRedeploy: {SiteActive, SiteStopped, SiteFailed},
	JobStop:     {SiteActive},
	JobStart:    {SiteStopped},
	JobRemove:   {SiteProvisioning, SiteActive, SiteStopped, SiteFailed},
}

// JobAllowed reports whether a lifecycle job of the given type may be
// enqueued against a site currently in the given state.
func JobAllowed(t JobType, s SiteStatus) bool {
	for _, allowed := range jobAdmissibility[t] {
		if allowed == s {
			return true
		}
	}
	return false
}

type JobStatus string

const (
	JobQueued    JobStatus = "QUEUED"
	JobRunning   JobStatus = "RUNNING"
	JobSucceeded JobStatus = "SUCCEEDED"
	JobFailed    JobStatus = "FAILED"
)

var jobTransitions = map[JobStatus][]JobStatus{
	JobQueued:  {JobRunning},
	JobRunning: {JobSucceeded, JobFailed},
}

func (s JobStatus) CanTransitionTo(next JobStatus) bool {
	for _, allowed := range jobTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// DeploymentJob is one queued unit of remote work against a site. The
// consumer stamps StartedAt on claim and FinishedAt/ErrorMessage on
// completion.
type DeploymentJob struct {
	ID            uuid.UUID
	SiteID        uuid.UUID
	Type          JobType
	Status        JobStatus
	CorrelationID uuid.UUID
	StartedAt     *time.Time
	FinishedAt    *time.Time
	ErrorMessage  *string
	Meta          Meta
}

// ClaimedJob is a claimed deployment job together with the site and
// target context the worker needs to execute it.
type ClaimedJob struct {
	Job    DeploymentJob
	Site   CustomerSite
	Target DeploymentTarget
}
