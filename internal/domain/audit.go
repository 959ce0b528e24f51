package domain

import (
	"time"

	"github.com/google/uuid"
)

type AuditSeverity string

const (
	AuditInfo    AuditSeverity = "INFO"
	AuditWarning AuditSeverity = "WARNING"
	AuditError   AuditSeverity = "ERROR"
)

const (
	AuditOrderStatusChanged = "order.status_changed"
	AuditPurchaseIssued     = "purchase.issued"
	AuditKeyRevoked         = "license_key.revoked"
	AuditKeyRotated         = "license_key.rotated"
	AuditSiteProvisioned    = "site.provisioned"
	AuditSiteSkipped        = "site.skipped_no_target"
	AuditJobEnqueued        = "job.enqueued"
)

// AuditEntry is one append-only record in the audit log.
type AuditEntry struct {
	ID            uuid.UUID
	EventType     string
	Severity      AuditSeverity
	Message       string
	CorrelationID uuid.UUID
	ActorID       uuid.UUID
	CreatedAt     time.Time
}
