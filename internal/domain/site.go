package domain

import (
	"github.com/google/uuid"
)

// DeploymentTarget is an infrastructure endpoint capable of hosting
// customer sites.
type DeploymentTarget struct {
	ID       uuid.UUID
	Name     string
	Host     string
	SSHUser  string
	BasePath string
	IsActive bool
	Meta     Meta
}

type SiteStatus string

const (
	SiteProvisioning SiteStatus = "PROVISIONING"
	SiteActive       SiteStatus = "ACTIVE"
	SiteStopped      SiteStatus = "STOPPED"
	SiteRemoved      SiteStatus = "REMOVED"
	SiteFailed       SiteStatus = "FAILED"
)

var siteTransitions = map[SiteStatus][]SiteStatus{
	SiteProvisioning: {SiteActive, SiteFailed},
	SiteActive:       {SiteStopped, SiteRemoved, SiteFailed},
	SiteStopped:      {SiteActive, SiteRemoved},
	SiteFailed:       {SiteActive, SiteRemoved},
}

func (s SiteStatus) CanTransitionTo(next SiteStatus) bool {
	for _, allowed := range siteTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// CustomerSite is a provisioned deployment of a purchased template,
// bound to exactly one deployment target.
type CustomerSite struct {
	ID         uuid.UUID
	UserID     uuid.UUID
	TemplateID uuid.UUID
	PurchaseID uuid.UUID
	TargetID   uuid.UUID
	Subdomain  string
	Status     SiteStatus
	Meta       Meta
}
