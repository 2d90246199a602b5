package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/example/storefront/internal/model"
)

// Handler turns the change-event stream into an operator audit trail.
type Handler struct{}

func NewHandler() *Handler {
	return &Handler{}
}

// HandleEvent processes one change event from Kafka.
func (h *Handler) HandleEvent(ctx context.Context, key, value []byte) error {
	var event model.ChangeEvent
	if err := json.Unmarshal(value, &event); err != nil {
		return fmt.Errorf("unmarshal change event: %w", err)
	}

	log.Printf("[Audit] %s", Describe(event))
	return nil
}

// Describe renders a change event as a single audit line.
func Describe(event model.ChangeEvent) string {
	subject := event.Entity
	if event.DomainID > 0 {
		subject = fmt.Sprintf("%s %d", event.Entity, event.DomainID)
	}

	switch event.Entity {
	case model.EntityProduct:
		var p model.Product
		if len(event.Data) > 0 && json.Unmarshal(event.Data, &p) == nil && p.Title != "" {
			return fmt.Sprintf("%s %s (%q) at %s", subject, event.Action, p.Title, event.OccurredAt.Format("2006-01-02 15:04:05"))
		}
	case model.EntityCart:
		var c model.Cart
		if len(event.Data) > 0 && json.Unmarshal(event.Data, &c) == nil {
			return fmt.Sprintf("%s %s (%d products) at %s", subject, event.Action, len(c.Products), event.OccurredAt.Format("2006-01-02 15:04:05"))
		}
	}
	return fmt.Sprintf("%s %s at %s", subject, event.Action, event.OccurredAt.Format("2006-01-02 15:04:05"))
}
