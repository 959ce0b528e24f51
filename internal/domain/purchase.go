package domain

import (
	"time"

	"github.com/google/uuid"
)

type PurchaseType string

const (
	PurchaseTemplate PurchaseType = "TEMPLATE"
	PurchaseService  PurchaseType = "SERVICE"
)

type PurchaseStatus string

const (
	PurchaseActive  PurchaseStatus = "ACTIVE"
	PurchaseRevoked PurchaseStatus = "REVOKED"
	PurchaseExpired PurchaseStatus = "EXPIRED"
)

// Purchase is the durable grant of ownership created once per order item
// when its order completes.
type Purchase struct {
	ID          uuid.UUID
	OrderID     uuid.UUID
	OrderItemID uuid.UUID
	UserID      uuid.UUID
	Type        PurchaseType
	TemplateID  *uuid.UUID
	ServiceID   *uuid.UUID
	Price       float64
	Currency    string
	Status      PurchaseStatus
	Meta        Meta
}

type LicenseKeyStatus string

const (
	LicenseKeyActive  LicenseKeyStatus = "ACTIVE"
	LicenseKeyRevoked LicenseKeyStatus = "REVOKED"
)

// LicenseKey is a revocable credential on a template purchase. At most one
// key per purchase is ACTIVE at any instant.
type LicenseKey struct {
	ID         uuid.UUID
	PurchaseID uuid.UUID
	Key        string
	Status     LicenseKeyStatus
	RevokedAt  *time.Time
	Meta       Meta
}
