// Package service implements the tenant backend: a facade that serves tenant
// details through whichever schema adapter matches the datastore.
package service

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/tenantdesk/tenantdesk-backend/internal/tenantbackend/domain"
	apperrors "github.com/tenantdesk/tenantdesk-backend/pkg/errors"
	"github.com/tenantdesk/tenantdesk-backend/pkg/logger"
	"golang.org/x/sync/errgroup"
)

const (
	msgEnhanced        = "Enhanced tenant tables are available"
	msgLegacy          = "Legacy schema detected; apply the enhanced tenant migration to enable tenant detail records"
	msgInconclusive    = "Schema probe could not reach the datastore; running in legacy mode until the service restarts"
	msgPlaceholderData = "Some sections hold placeholder data"
)

// Backend is the entry point for tenant detail operations
type Backend struct {
	detector *ModeDetector
	enhanced SchemaAdapter
	legacy   SchemaAdapter
	tenants  TenantStore
	logger   *logger.Logger
}

// NewBackend creates a backend choosing between the two adapters by the
// detector's mode
func NewBackend(detector *ModeDetector, stores Stores, log *logger.Logger) *Backend {
	if log == nil {
		log = logger.Nop()
	}
	return &Backend{
		detector: detector,
		enhanced: NewEnhancedAdapter(stores, log),
		legacy:   NewLegacyAdapter(stores, log),
		tenants:  stores.Tenants,
		logger:   log.WithComponent("tenant_backend"),
	}
}

func (b *Backend) adapter(ctx context.Context) SchemaAdapter {
	if b.detector.Mode(ctx) == domain.ModeEnhanced {
		return b.enhanced
	}
	return b.legacy
}

// ============================================================================
// Family members
// ============================================================================

func (b *Backend) GetFamilyMembers(ctx context.Context, tenantID string) domain.Result[[]domain.FamilyMember] {
	if err := checkID("tenant", tenantID); err != nil {
		return domain.Fail[[]domain.FamilyMember](err)
	}
	return b.adapter(ctx).GetFamilyMembers(ctx, tenantID)
}

func (b *Backend) AddFamilyMember(ctx context.Context, tenantID string, in domain.FamilyMemberInput) domain.Result[domain.FamilyMember] {
	if err := checkID("tenant", tenantID); err != nil {
		return domain.Fail[domain.FamilyMember](err)
	}
	return b.adapter(ctx).AddFamilyMember(ctx, tenantID, in)
}

func (b *Backend) UpdateFamilyMember(ctx context.Context, id string, in domain.FamilyMemberInput) domain.Result[domain.FamilyMember] {
	if err := checkID("family member", id); err != nil {
		return domain.Fail[domain.FamilyMember](err)
	}
	return b.adapter(ctx).UpdateFamilyMember(ctx, id, in)
}

func (b *Backend) DeleteFamilyMember(ctx context.Context, id string) domain.Result[domain.Deleted] {
	if err := checkID("family member", id); err != nil {
		return domain.Fail[domain.Deleted](err)
	}
	return b.adapter(ctx).DeleteFamilyMember(ctx, id)
}

// ============================================================================
// Documents, bills, meter readings
// ============================================================================

func (b *Backend) GetDocuments(ctx context.Context, tenantID string) domain.Result[[]domain.TenantDocument] {
	if err := checkID("tenant", tenantID); err != nil {
		return domain.Fail[[]domain.TenantDocument](err)
	}
	return b.adapter(ctx).GetDocuments(ctx, tenantID)
}

func (b *Backend) AddDocument(ctx context.Context, tenantID string, in domain.DocumentInput) domain.Result[domain.TenantDocument] {
	if err := checkID("tenant", tenantID); err != nil {
		return domain.Fail[domain.TenantDocument](err)
	}
	return b.adapter(ctx).AddDocument(ctx, tenantID, in)
}

func (b *Backend) GetBills(ctx context.Context, tenantID string) domain.Result[[]domain.Bill] {
	if err := checkID("tenant", tenantID); err != nil {
		return domain.Fail[[]domain.Bill](err)
	}
	return b.adapter(ctx).GetBills(ctx, tenantID)
}

// AddBill creates a pending invoice. The amount must be positive.
func (b *Backend) AddBill(ctx context.Context, tenantID string, in domain.BillInput) domain.Result[domain.Bill] {
	if err := checkID("tenant", tenantID); err != nil {
		return domain.Fail[domain.Bill](err)
	}
	if !in.Amount.IsPositive() {
		return domain.Fail[domain.Bill](apperrors.BadRequest("amount must be greater than zero"))
	}
	return b.adapter(ctx).AddBill(ctx, tenantID, in)
}

func (b *Backend) GetMeterReadings(ctx context.Context, tenantID string) domain.Result[[]domain.MeterReading] {
	if err := checkID("tenant", tenantID); err != nil {
		return domain.Fail[[]domain.MeterReading](err)
	}
	return b.adapter(ctx).GetMeterReadings(ctx, tenantID)
}

func (b *Backend) AddMeterReading(ctx context.Context, tenantID string, in domain.MeterReadingInput) domain.Result[domain.MeterReading] {
	if err := checkID("tenant", tenantID); err != nil {
		return domain.Fail[domain.MeterReading](err)
	}
	if in.CurrentReading.IsNegative() || (in.PreviousReading != nil && in.PreviousReading.IsNegative()) {
		return domain.Fail[domain.MeterReading](apperrors.BadRequest("readings cannot be negative"))
	}
	return b.adapter(ctx).AddMeterReading(ctx, tenantID, in)
}

// ============================================================================
// Profile and room
// ============================================================================

func (b *Backend) UpdateRoomInfo(ctx context.Context, tenantID string, in domain.RoomInput) domain.Result[domain.RoomInfo] {
	if err := checkID("tenant", tenantID); err != nil {
		return domain.Fail[domain.RoomInfo](err)
	}
	if in.AreaSqft != nil && in.AreaSqft.IsNegative() {
		return domain.Fail[domain.RoomInfo](apperrors.BadRequest("area cannot be negative"))
	}
	return b.adapter(ctx).UpdateRoomInfo(ctx, tenantID, in)
}

// GetTenantProfile loads the tenant and then its detail sections in
// parallel. Only a failed tenant read fails the call; a failed section is
// returned empty and named in the message.
func (b *Backend) GetTenantProfile(ctx context.Context, tenantID string) domain.Result[domain.TenantProfile] {
	if err := checkID("tenant", tenantID); err != nil {
		return domain.Fail[domain.TenantProfile](err)
	}

	tenant, err := b.tenants.GetTenant(ctx, tenantID)
	if err != nil {
		return failure[domain.TenantProfile](b.logger, "get_tenant_profile", err)
	}

	adapter := b.adapter(ctx)
	profile := domain.TenantProfile{Tenant: *tenant}
	var sections sectionLog

	room := adapter.GetRoomInfo(ctx, tenantID)
	switch {
	case room.Success:
		profile.Room = room.Data
	case room.StatusCode != http.StatusNotFound:
		sections.failed("room")
	}

	var (
		g        errgroup.Group
		family   domain.Result[[]domain.FamilyMember]
		docs     domain.Result[[]domain.TenantDocument]
		bills    domain.Result[[]domain.Bill]
		readings domain.Result[[]domain.MeterReading]
	)
	g.Go(func() error { family = adapter.GetFamilyMembers(ctx, tenantID); return nil })
	g.Go(func() error { docs = adapter.GetDocuments(ctx, tenantID); return nil })
	g.Go(func() error { bills = adapter.GetBills(ctx, tenantID); return nil })
	g.Go(func() error { readings = adapter.GetMeterReadings(ctx, tenantID); return nil })
	_ = g.Wait()

	profile.FamilyMembers = section(&sections, "family members", family)
	profile.Documents = section(&sections, "documents", docs)
	profile.Bills = section(&sections, "bills", bills)
	profile.MeterReadings = section(&sections, "meter readings", readings)

	result := domain.OK(profile)
	if len(sections.names) > 0 {
		result = result.WithMessage("Failed to load " + strings.Join(sections.names, ", "))
	}
	if sections.degraded {
		result.Degraded = true
		result = result.WithMessage(msgPlaceholderData)
	}
	return result
}

// GetMigrationStatus reports the resolved schema mode
func (b *Backend) GetMigrationStatus(ctx context.Context) domain.Result[domain.MigrationStatus] {
	mode, inconclusive := b.detector.Status(ctx)
	status := domain.MigrationStatus{
		IsEnhanced:   mode == domain.ModeEnhanced,
		Mode:         mode,
		Inconclusive: inconclusive,
	}
	switch {
	case status.IsEnhanced:
		status.Message = msgEnhanced
	case inconclusive:
		status.Message = msgInconclusive
	default:
		status.Message = msgLegacy
	}
	return domain.OK(status)
}

type sectionLog struct {
	names    []string
	degraded bool
}

func (s *sectionLog) failed(name string) {
	s.names = append(s.names, name)
}

func section[T any](log *sectionLog, name string, r domain.Result[[]T]) []T {
	if !r.Success || r.Data == nil {
		log.failed(name)
		return []T{}
	}
	if r.Degraded {
		log.degraded = true
	}
	return *r.Data
}

func checkID(kind, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return apperrors.BadRequest("invalid " + kind + " id")
	}
	return nil
}
