package service_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/tenantdesk/tenantdesk-backend/internal/tenantbackend/domain"
	"github.com/tenantdesk/tenantdesk-backend/internal/tenantbackend/repository"
	"github.com/tenantdesk/tenantdesk-backend/internal/tenantbackend/service"
	"github.com/tenantdesk/tenantdesk-backend/pkg/config"
	apperrors "github.com/tenantdesk/tenantdesk-backend/pkg/errors"
	"github.com/tenantdesk/tenantdesk-backend/pkg/logger"
	"github.com/tenantdesk/tenantdesk-backend/pkg/permissions"
	"github.com/tenantdesk/tenantdesk-backend/pkg/testutil"
)

const (
	tenantID = "7d1c1f4e-3a52-4c1e-9b8e-2f0f4d6b9a10"
	memberID = "0b6f3c2a-8e41-4d7a-a2c5-5e9d1b7f3c21"
)

// spyProber counts probes and answers with err after delay
type spyProber struct {
	calls atomic.Int32
	err   error
	block bool
}

func (p *spyProber) Probe(ctx context.Context, _ string) error {
	p.calls.Add(1)
	if p.block {
		<-ctx.Done()
		return ctx.Err()
	}
	time.Sleep(5 * time.Millisecond)
	return p.err
}

// callLog counts store calls across all fakes
type callLog struct {
	mu    sync.Mutex
	calls []string
}

func (c *callLog) record(call string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = append(c.calls, call)
}

func (c *callLog) Count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.calls)
}

type fakeTenants struct {
	log        *callLog
	tenant     *domain.Tenant
	tenantErr  error
	unitRoom   *domain.RoomInfo
	details    *domain.RoomInfo
	roomErr    error
	lastUpdate *domain.RoomInput
}

func (f *fakeTenants) GetTenant(_ context.Context, id string) (*domain.Tenant, error) {
	f.log.record("GetTenant")
	if f.tenantErr != nil {
		return nil, f.tenantErr
	}
	if f.tenant == nil {
		return nil, apperrors.NotFound("tenant")
	}
	return f.tenant, nil
}

func (f *fakeTenants) UnitRoom(_ context.Context, _ string) (*domain.RoomInfo, error) {
	f.log.record("UnitRoom")
	if f.roomErr != nil {
		return nil, f.roomErr
	}
	if f.unitRoom == nil {
		return nil, apperrors.NotFound("room")
	}
	return f.unitRoom, nil
}

func (f *fakeTenants) UpdateUnitRoom(_ context.Context, tid string, in domain.RoomInput) (*domain.RoomInfo, error) {
	f.log.record("UpdateUnitRoom")
	f.lastUpdate = &in
	room := domain.RoomInfo{TenantID: tid, RoomType: repository.LegacyRoomType}
	if in.RoomNumber != nil {
		room.RoomNumber = *in.RoomNumber
	}
	return &room, nil
}

func (f *fakeTenants) RoomDetails(_ context.Context, _ string) (*domain.RoomInfo, error) {
	f.log.record("RoomDetails")
	if f.details == nil {
		return nil, apperrors.NotFound("room")
	}
	return f.details, nil
}

func (f *fakeTenants) UpsertRoomDetails(_ context.Context, tid string, in domain.RoomInput) (*domain.RoomInfo, error) {
	f.log.record("UpsertRoomDetails")
	f.lastUpdate = &in
	room := domain.RoomInfo{TenantID: tid}
	if in.RoomType != nil {
		room.RoomType = *in.RoomType
	}
	return &room, nil
}

type fakeFamily struct {
	log     *callLog
	members []domain.FamilyMember
	owner   string
	err     error
}

func (f *fakeFamily) ListByTenant(context.Context, string) ([]domain.FamilyMember, error) {
	f.log.record("Family.ListByTenant")
	if f.err != nil {
		return nil, f.err
	}
	return f.members, nil
}

func (f *fakeFamily) Create(_ context.Context, tid string, in domain.FamilyMemberInput) (*domain.FamilyMember, error) {
	f.log.record("Family.Create")
	if f.err != nil {
		return nil, f.err
	}
	return &domain.FamilyMember{ID: memberID, TenantID: tid, Name: in.Name, Relation: in.Relation}, nil
}

func (f *fakeFamily) Update(_ context.Context, id string, in domain.FamilyMemberInput) (*domain.FamilyMember, error) {
	f.log.record("Family.Update")
	if f.err != nil {
		return nil, f.err
	}
	return &domain.FamilyMember{ID: id, Name: in.Name}, nil
}

func (f *fakeFamily) Delete(context.Context, string) error {
	f.log.record("Family.Delete")
	return f.err
}

func (f *fakeFamily) TenantOf(context.Context, string) (string, error) {
	f.log.record("Family.TenantOf")
	if f.owner == "" {
		return "", apperrors.NotFound("family member")
	}
	return f.owner, f.err
}

// fakeCallers answers every lookup with the subject registered for the user
type fakeCallers struct {
	subjects map[string]permissions.Subject
	err      error
}

func (f *fakeCallers) Subject(_ context.Context, userID string) (*permissions.Subject, error) {
	if f.err != nil {
		return nil, f.err
	}
	s := f.subjects[userID]
	s.UserID = userID
	return &s, nil
}

type fakeDocuments struct {
	log  *callLog
	docs []domain.TenantDocument
	err  error
}

func (f *fakeDocuments) ListByTenant(context.Context, string) ([]domain.TenantDocument, error) {
	f.log.record("Documents.ListByTenant")
	if f.err != nil {
		return nil, f.err
	}
	return f.docs, nil
}

func (f *fakeDocuments) Create(_ context.Context, tid string, in domain.DocumentInput) (*domain.TenantDocument, error) {
	f.log.record("Documents.Create")
	if f.err != nil {
		return nil, f.err
	}
	return &domain.TenantDocument{ID: "d-1", TenantID: tid, DocumentType: in.DocumentType}, nil
}

type fakeMeters struct {
	log      *callLog
	readings []domain.MeterReading
	err      error
}

func (f *fakeMeters) ListByTenant(context.Context, string) ([]domain.MeterReading, error) {
	f.log.record("Meters.ListByTenant")
	if f.err != nil {
		return nil, f.err
	}
	return f.readings, nil
}

func (f *fakeMeters) Create(_ context.Context, tid string, in domain.MeterReadingInput) (*domain.MeterReading, error) {
	f.log.record("Meters.Create")
	if f.err != nil {
		return nil, f.err
	}
	return &domain.MeterReading{ID: "m-1", TenantID: tid, CurrentReading: in.CurrentReading}, nil
}

type fakeBilling struct {
	log      *callLog
	invoices []repository.Invoice
	payments []domain.Payment
	err      error
}

func (f *fakeBilling) InvoicesByTenant(context.Context, string) ([]repository.Invoice, error) {
	f.log.record("Billing.InvoicesByTenant")
	if f.err != nil {
		return nil, f.err
	}
	return f.invoices, nil
}

func (f *fakeBilling) PaymentsForInvoices(context.Context, []string) ([]domain.Payment, error) {
	f.log.record("Billing.PaymentsForInvoices")
	return f.payments, nil
}

func (f *fakeBilling) CreateInvoice(_ context.Context, tid string, in domain.BillInput) (*repository.Invoice, error) {
	f.log.record("Billing.CreateInvoice")
	if f.err != nil {
		return nil, f.err
	}
	return &repository.Invoice{ID: "i-new", TenantID: tid, Amount: in.Amount, Status: "pending"}, nil
}

type backendFixture struct {
	backend   *service.Backend
	log       *callLog
	tenants   *fakeTenants
	family    *fakeFamily
	documents *fakeDocuments
	meters    *fakeMeters
	billing   *fakeBilling
	publisher *testutil.MockPublisher
}

func newBackend(t *testing.T, mode domain.SchemaMode) *backendFixture {
	t.Helper()
	log := &callLog{}
	f := &backendFixture{
		log:       log,
		tenants:   &fakeTenants{log: log, tenant: &domain.Tenant{ID: tenantID, FullName: "Meera Iyer", Status: "active"}},
		family:    &fakeFamily{log: log, members: []domain.FamilyMember{}},
		documents: &fakeDocuments{log: log, docs: []domain.TenantDocument{}},
		meters:    &fakeMeters{log: log, readings: []domain.MeterReading{}},
		billing:   &fakeBilling{log: log},
		publisher: testutil.NewMockPublisher(),
	}
	stores := service.Stores{
		Tenants:   f.tenants,
		Family:    f.family,
		Documents: f.documents,
		Meters:    f.meters,
		Billing:   f.billing,
	}
	f.backend = service.NewBackend(service.FixedMode(mode), stores, logger.Nop())
	return f
}

func newDetector(prober service.Prober, timeout time.Duration, publisher *testutil.MockPublisher) *service.ModeDetector {
	cfg := config.BackendConfig{ProbeTable: "tenant_family_members", ProbeTimeout: timeout}
	return service.NewModeDetector(prober, cfg, publisher, logger.Nop())
}
