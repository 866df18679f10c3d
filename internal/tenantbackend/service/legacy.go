package service

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"github.com/tenantdesk/tenantdesk-backend/internal/tenantbackend/domain"
	apperrors "github.com/tenantdesk/tenantdesk-backend/pkg/errors"
	"github.com/tenantdesk/tenantdesk-backend/pkg/logger"
)

const (
	msgLegacyFamily    = "Family members are not available on the legacy schema"
	msgLegacyDocuments = "Documents are not available on the legacy schema"
	msgLegacyMeters    = "Sample meter reading; readings are not stored on the legacy schema"
	msgLegacyRoomType  = "Room type is not stored on the legacy schema"
)

// LegacyAdapter serves what the core tables can answer. Detail reads return
// flagged placeholder data and detail writes are refused.
type LegacyAdapter struct {
	billing
	tenants TenantStore
	now     func() time.Time
	logger  *logger.Logger
}

// NewLegacyAdapter creates an adapter over the core tables
func NewLegacyAdapter(stores Stores, log *logger.Logger) *LegacyAdapter {
	log = log.WithComponent("legacy_adapter")
	return &LegacyAdapter{
		billing: billing{store: stores.Billing, logger: log},
		tenants: stores.Tenants,
		now:     time.Now,
		logger:  log,
	}
}

func (a *LegacyAdapter) Mode() domain.SchemaMode { return domain.ModeLegacy }

func (a *LegacyAdapter) GetFamilyMembers(_ context.Context, _ string) domain.Result[[]domain.FamilyMember] {
	return domain.Placeholder([]domain.FamilyMember{}, msgLegacyFamily)
}

func (a *LegacyAdapter) AddFamilyMember(context.Context, string, domain.FamilyMemberInput) domain.Result[domain.FamilyMember] {
	return domain.Fail[domain.FamilyMember](apperrors.RequiresEnhancedSchema("Adding family members"))
}

func (a *LegacyAdapter) UpdateFamilyMember(context.Context, string, domain.FamilyMemberInput) domain.Result[domain.FamilyMember] {
	return domain.Fail[domain.FamilyMember](apperrors.RequiresEnhancedSchema("Updating family members"))
}

func (a *LegacyAdapter) DeleteFamilyMember(context.Context, string) domain.Result[domain.Deleted] {
	return domain.Fail[domain.Deleted](apperrors.RequiresEnhancedSchema("Deleting family members"))
}

func (a *LegacyAdapter) GetDocuments(_ context.Context, _ string) domain.Result[[]domain.TenantDocument] {
	return domain.Placeholder([]domain.TenantDocument{}, msgLegacyDocuments)
}

func (a *LegacyAdapter) AddDocument(context.Context, string, domain.DocumentInput) domain.Result[domain.TenantDocument] {
	return domain.Fail[domain.TenantDocument](apperrors.RequiresEnhancedSchema("Uploading documents"))
}

// GetMeterReadings returns one fixed illustrative reading
func (a *LegacyAdapter) GetMeterReadings(_ context.Context, tenantID string) domain.Result[[]domain.MeterReading] {
	current := decimal.NewFromInt(1250)
	previous := decimal.NewFromInt(1100)
	sample := domain.MeterReading{
		ID:              "sample",
		TenantID:        tenantID,
		MeterType:       "electricity",
		CurrentReading:  current,
		PreviousReading: previous,
		Consumption:     current.Sub(previous),
		ReadingDate:     a.now().Format(domain.DateLayout),
	}
	return domain.Placeholder([]domain.MeterReading{sample}, msgLegacyMeters)
}

func (a *LegacyAdapter) AddMeterReading(context.Context, string, domain.MeterReadingInput) domain.Result[domain.MeterReading] {
	return domain.Fail[domain.MeterReading](apperrors.RequiresEnhancedSchema("Recording meter readings"))
}

func (a *LegacyAdapter) GetRoomInfo(ctx context.Context, tenantID string) domain.Result[domain.RoomInfo] {
	room, err := a.tenants.UnitRoom(ctx, tenantID)
	if err != nil {
		return failure[domain.RoomInfo](a.logger, "get_room_info", err)
	}
	return domain.OK(*room)
}

func (a *LegacyAdapter) UpdateRoomInfo(ctx context.Context, tenantID string, in domain.RoomInput) domain.Result[domain.RoomInfo] {
	room, err := a.tenants.UpdateUnitRoom(ctx, tenantID, in)
	if err != nil {
		return failure[domain.RoomInfo](a.logger, "update_room_info", err)
	}
	result := domain.OK(*room)
	if in.RoomType != nil {
		result = result.WithMessage(msgLegacyRoomType)
	}
	return result
}
