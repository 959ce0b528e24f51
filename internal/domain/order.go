package domain

import (
	"time"

	"github.com/google/uuid"
)

type OrderStatus string

const (
	OrderPending   OrderStatus = "PENDING"
	OrderCompleted OrderStatus = "COMPLETED"
	OrderCancelled OrderStatus = "CANCELLED"
	OrderRefunded  OrderStatus = "REFUNDED"
)

// orderTransitions lists the legal status edges. Cancelled and Refunded
// are terminal. A same-status update is always accepted as a no-op so
// that repeated completion calls stay idempotent.
var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderPending:   {OrderCompleted, OrderCancelled},
	OrderCompleted: {OrderRefunded},
}

func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	if s == next {
		return true
	}
	for _, allowed := range orderTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

func (s OrderStatus) Valid() bool {
	switch s {
	case OrderPending, OrderCompleted, OrderCancelled, OrderRefunded:
		return true
	}
	return false
}

type Order struct {
	ID            uuid.UUID
	UserID        uuid.UUID
	Total         float64
	Currency      string
	Status        OrderStatus
	PaymentStatus string
	Items         []OrderItem
	Meta          Meta
}

// OrderItem snapshots price and quantity at the time of sale. Exactly one
// of TemplateID/ServiceID is set.
type OrderItem struct {
	ID         uuid.UUID
	OrderID    uuid.UUID
	TemplateID *uuid.UUID
	ServiceID  *uuid.UUID
	Price      float64
	Quantity   int
	Meta       Meta
}

func (i OrderItem) IsTemplate() bool {
	return i.TemplateID != nil
}

// Meta carries the audit and soft-delete columns shared by every entity.
type Meta struct {
	IsDeleted  bool
	CreatedBy  uuid.UUID
	ModifiedBy uuid.UUID
	CreatedAt  time.Time
	UpdatedAt  time.Time
}
