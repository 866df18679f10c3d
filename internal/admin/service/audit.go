package service

import (
	"context"

	"github.com/tenantdesk/tenantdesk-backend/internal/admin/domain"
	"github.com/tenantdesk/tenantdesk-backend/pkg/actor"
	"github.com/tenantdesk/tenantdesk-backend/pkg/logger"
	"github.com/tenantdesk/tenantdesk-backend/pkg/messaging"
)

// Recorder writes audit entries for mutating administrative actions
type Recorder struct {
	store       AuditStore
	publisher   messaging.EventPublisher
	systemOrgID string
	logger      *logger.Logger
}

// NewRecorder creates a new audit recorder. systemOrgID is stored on entries
// whose actor has no organization.
func NewRecorder(store AuditStore, publisher messaging.EventPublisher, systemOrgID string, log *logger.Logger) *Recorder {
	if publisher == nil {
		publisher = messaging.NopPublisher{}
	}
	if systemOrgID == "" {
		systemOrgID = actor.SystemOrganizationID
	}
	return &Recorder{
		store:       store,
		publisher:   publisher,
		systemOrgID: systemOrgID,
		logger:      log.WithComponent("audit"),
	}
}

// Prepare builds an entry and resolves the actor's organization. Lookup
// failures fall back to the system organization.
func (r *Recorder) Prepare(ctx context.Context, actorID, action, entityType string, entityID *string, details map[string]any) *domain.AuditEntry {
	orgID, found, err := r.store.OrganizationOf(ctx, actorID)
	if err != nil {
		r.logger.Warn().Err(err).Str("actor_id", actorID).Msg("organization lookup failed, using system organization")
	}
	if err != nil || !found {
		orgID = r.systemOrgID
	}

	if details == nil {
		details = map[string]any{}
	}

	return &domain.AuditEntry{
		UserID:         actorID,
		OrganizationID: orgID,
		Action:         action,
		EntityType:     entityType,
		EntityID:       entityID,
		Details:        details,
	}
}

// Write persists a prepared entry. It joins the transaction on ctx, if any.
func (r *Recorder) Write(ctx context.Context, entry *domain.AuditEntry) error {
	return r.store.Insert(ctx, entry)
}

// Record prepares, writes and announces an entry outside of any transaction.
// A failed write is reported through Failed and returned.
func (r *Recorder) Record(ctx context.Context, actorID, action, entityType string, entityID *string, details map[string]any) error {
	entry := r.Prepare(ctx, actorID, action, entityType, entityID, details)
	if err := r.Write(ctx, entry); err != nil {
		r.Failed(ctx, entry, err)
		return err
	}
	r.Announce(ctx, entry)
	return nil
}

// Announce publishes a committed entry
func (r *Recorder) Announce(ctx context.Context, entry *domain.AuditEntry) {
	err := r.publisher.Publish(ctx, messaging.EventAuditRecorded, messaging.AuditRecordedEvent{
		AuditID:        entry.ID,
		UserID:         entry.UserID,
		OrganizationID: entry.OrganizationID,
		Action:         entry.Action,
		EntityType:     entry.EntityType,
		EntityID:       entry.EntityID,
		Details:        entry.Details,
	})
	if err != nil {
		r.logger.Warn().Err(err).Str("action", entry.Action).Msg("failed to publish audit event")
	}
}

// Failed logs an audit write failure and escalates it on the event bus
func (r *Recorder) Failed(ctx context.Context, entry *domain.AuditEntry, err error) {
	r.logger.Error().
		Err(err).
		Str("actor_id", entry.UserID).
		Str("action", entry.Action).
		Str("entity_type", entry.EntityType).
		Msg("audit write failed")

	event := messaging.AuditWriteFailedEvent{
		UserID:     entry.UserID,
		Action:     entry.Action,
		EntityType: entry.EntityType,
		EntityID:   entry.EntityID,
		Error:      err.Error(),
	}
	if pubErr := r.publisher.Publish(ctx, messaging.EventAuditWriteFailed, event); pubErr != nil {
		r.logger.Warn().Err(pubErr).Msg("failed to publish audit failure event")
	}
}

// List returns a page of audit entries
func (r *Recorder) List(ctx context.Context, q domain.AuditQuery) ([]domain.AuditEntry, int64, error) {
	return r.store.List(ctx, q)
}
