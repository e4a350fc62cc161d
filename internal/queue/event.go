// Package queue defines message payloads exchanged over the message broker.
package queue

// QueueName is the durable queue every domain event goes to.
const QueueName = "fieldops.events"

// Event types published by the service layer.
const (
	CommunicationCreated         = "communication.created"
	InventoryAdjusted            = "inventory.adjusted"
	DispatchStatusChanged        = "dispatch.status_changed"
	InventoryRequestStatusChange = "inventory_request.status_changed"
	PurchaseRequestStatusChange  = "purchase_request.status_changed"
	NCRStatusChanged             = "ncr.status_changed"
)

// Event is published after a state change commits.  It carries enough
// context for the activity log without a round trip to the database.
type Event struct {
	Type       string  `json:"type"`
	EntityID   uint64  `json:"entity_id"`
	ActorID    uint64  `json:"actor_id"`
	ProjectID  *uint64 `json:"project_id,omitempty"`
	From       string  `json:"from,omitempty"`
	To         string  `json:"to,omitempty"`
	Summary    string  `json:"summary"`
	OccurredAt string  `json:"occurred_at"` // RFC 3339, UTC
}
