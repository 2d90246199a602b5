package model

import (
	"encoding/json"
	"time"
)

// Change event actions.
const (
	ActionCreated = "created"
	ActionUpdated = "updated"
	ActionDeleted = "deleted"
)

// Entities appearing in change events.
const (
	EntityProduct = "product"
	EntityCart    = "cart"
	EntityUser    = "user"
)

// ChangeEvent describes a committed write to an entity. Events are published
// after the store write succeeds and consumed by the auditor.
type ChangeEvent struct {
	ID         string          `json:"id"`
	Entity     string          `json:"entity"`
	Action     string          `json:"action"`
	DomainID   int64           `json:"domain_id,omitempty"`
	Data       json.RawMessage `json:"data,omitempty"`
	OccurredAt time.Time       `json:"occurred_at"`
}
