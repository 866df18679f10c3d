package messaging

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Event types
const (
	// Administrative data-management events
	EventAuditRecorded    = "admin.audit.recorded"
	EventAuditWriteFailed = "admin.audit.write_failed"
	EventAccessDenied     = "admin.access.denied"
	EventSchemaChanged    = "admin.schema.changed"

	// Tenant backend events
	EventTenantSchemaDetected = "tenant.schema.detected"
)

// Exchange names
const (
	ExchangeAdminEvents  = "admin.events"
	ExchangeTenantEvents = "tenant.events"
)

// Event is the base event structure
type Event struct {
	ID            string          `json:"id"`
	Type          string          `json:"type"`
	Source        string          `json:"source"`
	Timestamp     time.Time       `json:"timestamp"`
	CorrelationID string          `json:"correlation_id"`
	Data          json.RawMessage `json:"data"`
}

// NewEvent creates a new event with the given type and data
func NewEvent(eventType, source, correlationID string, data any) (*Event, error) {
	dataBytes, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}

	return &Event{
		ID:            uuid.New().String(),
		Type:          eventType,
		Source:        source,
		Timestamp:     time.Now().UTC(),
		CorrelationID: correlationID,
		Data:          dataBytes,
	}, nil
}

// Admin Events

// AuditRecordedEvent is published after an audit entry is written
type AuditRecordedEvent struct {
	AuditID        int64          `json:"audit_id"`
	UserID         string         `json:"user_id"`
	OrganizationID string         `json:"organization_id"`
	Action         string         `json:"action"`
	EntityType     string         `json:"entity_type"`
	EntityID       *string        `json:"entity_id,omitempty"`
	Details        map[string]any `json:"details,omitempty"`
}

// AuditWriteFailedEvent is published when a committed mutation could not be
// audited. Consumers alert on it.
type AuditWriteFailedEvent struct {
	UserID     string  `json:"user_id"`
	Action     string  `json:"action"`
	EntityType string  `json:"entity_type"`
	EntityID   *string `json:"entity_id,omitempty"`
	Error      string  `json:"error"`
}

// AccessDeniedEvent is published when a caller fails the super-admin gate
type AccessDeniedEvent struct {
	UserID string `json:"user_id,omitempty"`
	Reason string `json:"reason"`
	Status int    `json:"status"`
}

// SchemaChangedEvent is published after successful DDL
type SchemaChangedEvent struct {
	UserID    string `json:"user_id"`
	Operation string `json:"operation"`
	Object    string `json:"object"`
	Detail    string `json:"detail"`
}

// Tenant Events

// TenantSchemaDetectedEvent is published once per process when the schema
// mode is resolved
type TenantSchemaDetectedEvent struct {
	Mode         string `json:"mode"`
	Inconclusive bool   `json:"inconclusive"`
	ProbeTable   string `json:"probe_table"`
	Error        string `json:"error,omitempty"`
}
