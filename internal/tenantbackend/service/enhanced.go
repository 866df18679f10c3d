package service

import (
	"context"

	"github.com/tenantdesk/tenantdesk-backend/internal/tenantbackend/domain"
	"github.com/tenantdesk/tenantdesk-backend/pkg/logger"
)

// EnhancedAdapter reads and writes the normalized tenant detail tables
type EnhancedAdapter struct {
	billing
	stores Stores
	logger *logger.Logger
}

// NewEnhancedAdapter creates an adapter over the enhanced tables
func NewEnhancedAdapter(stores Stores, log *logger.Logger) *EnhancedAdapter {
	log = log.WithComponent("enhanced_adapter")
	return &EnhancedAdapter{
		billing: billing{store: stores.Billing, logger: log},
		stores:  stores,
		logger:  log,
	}
}

func (a *EnhancedAdapter) Mode() domain.SchemaMode { return domain.ModeEnhanced }

func (a *EnhancedAdapter) GetFamilyMembers(ctx context.Context, tenantID string) domain.Result[[]domain.FamilyMember] {
	members, err := a.stores.Family.ListByTenant(ctx, tenantID)
	if err != nil {
		return failure[[]domain.FamilyMember](a.logger, "get_family_members", err)
	}
	return domain.OK(members)
}

func (a *EnhancedAdapter) AddFamilyMember(ctx context.Context, tenantID string, in domain.FamilyMemberInput) domain.Result[domain.FamilyMember] {
	member, err := a.stores.Family.Create(ctx, tenantID, in)
	if err != nil {
		return failure[domain.FamilyMember](a.logger, "add_family_member", err)
	}
	return domain.OK(*member)
}

func (a *EnhancedAdapter) UpdateFamilyMember(ctx context.Context, id string, in domain.FamilyMemberInput) domain.Result[domain.FamilyMember] {
	member, err := a.stores.Family.Update(ctx, id, in)
	if err != nil {
		return failure[domain.FamilyMember](a.logger, "update_family_member", err)
	}
	return domain.OK(*member)
}

func (a *EnhancedAdapter) DeleteFamilyMember(ctx context.Context, id string) domain.Result[domain.Deleted] {
	if err := a.stores.Family.Delete(ctx, id); err != nil {
		return failure[domain.Deleted](a.logger, "delete_family_member", err)
	}
	return domain.OK(domain.Deleted{ID: id})
}

func (a *EnhancedAdapter) GetDocuments(ctx context.Context, tenantID string) domain.Result[[]domain.TenantDocument] {
	docs, err := a.stores.Documents.ListByTenant(ctx, tenantID)
	if err != nil {
		return failure[[]domain.TenantDocument](a.logger, "get_documents", err)
	}
	return domain.OK(docs)
}

func (a *EnhancedAdapter) AddDocument(ctx context.Context, tenantID string, in domain.DocumentInput) domain.Result[domain.TenantDocument] {
	doc, err := a.stores.Documents.Create(ctx, tenantID, in)
	if err != nil {
		return failure[domain.TenantDocument](a.logger, "add_document", err)
	}
	return domain.OK(*doc)
}

func (a *EnhancedAdapter) GetMeterReadings(ctx context.Context, tenantID string) domain.Result[[]domain.MeterReading] {
	readings, err := a.stores.Meters.ListByTenant(ctx, tenantID)
	if err != nil {
		return failure[[]domain.MeterReading](a.logger, "get_meter_readings", err)
	}
	return domain.OK(readings)
}

func (a *EnhancedAdapter) AddMeterReading(ctx context.Context, tenantID string, in domain.MeterReadingInput) domain.Result[domain.MeterReading] {
	reading, err := a.stores.Meters.Create(ctx, tenantID, in)
	if err != nil {
		return failure[domain.MeterReading](a.logger, "add_meter_reading", err)
	}
	return domain.OK(*reading)
}

// GetRoomInfo prefers the room details row and falls back to the unit when
// none has been written yet
func (a *EnhancedAdapter) GetRoomInfo(ctx context.Context, tenantID string) domain.Result[domain.RoomInfo] {
	room, err := a.stores.Tenants.RoomDetails(ctx, tenantID)
	if isNotFound(err) {
		room, err = a.stores.Tenants.UnitRoom(ctx, tenantID)
	}
	if err != nil {
		return failure[domain.RoomInfo](a.logger, "get_room_info", err)
	}
	return domain.OK(*room)
}

func (a *EnhancedAdapter) UpdateRoomInfo(ctx context.Context, tenantID string, in domain.RoomInput) domain.Result[domain.RoomInfo] {
	room, err := a.stores.Tenants.UpsertRoomDetails(ctx, tenantID, in)
	if err != nil {
		return failure[domain.RoomInfo](a.logger, "update_room_info", err)
	}
	return domain.OK(*room)
}
