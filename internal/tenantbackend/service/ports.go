package service

import (
	"context"

	"github.com/tenantdesk/tenantdesk-backend/internal/tenantbackend/domain"
	"github.com/tenantdesk/tenantdesk-backend/internal/tenantbackend/repository"
	"github.com/tenantdesk/tenantdesk-backend/pkg/permissions"
)

// Prober checks whether a table can be read
type Prober interface {
	Probe(ctx context.Context, table string) error
}

// TenantStore reads tenants and stores room placement
type TenantStore interface {
	GetTenant(ctx context.Context, id string) (*domain.Tenant, error)
	UnitRoom(ctx context.Context, tenantID string) (*domain.RoomInfo, error)
	UpdateUnitRoom(ctx context.Context, tenantID string, in domain.RoomInput) (*domain.RoomInfo, error)
	RoomDetails(ctx context.Context, tenantID string) (*domain.RoomInfo, error)
	UpsertRoomDetails(ctx context.Context, tenantID string, in domain.RoomInput) (*domain.RoomInfo, error)
}

// FamilyStore persists family members
type FamilyStore interface {
	ListByTenant(ctx context.Context, tenantID string) ([]domain.FamilyMember, error)
	Create(ctx context.Context, tenantID string, in domain.FamilyMemberInput) (*domain.FamilyMember, error)
	Update(ctx context.Context, id string, in domain.FamilyMemberInput) (*domain.FamilyMember, error)
	Delete(ctx context.Context, id string) error
	TenantOf(ctx context.Context, id string) (string, error)
}

// DocumentStore persists tenant documents
type DocumentStore interface {
	ListByTenant(ctx context.Context, tenantID string) ([]domain.TenantDocument, error)
	Create(ctx context.Context, tenantID string, in domain.DocumentInput) (*domain.TenantDocument, error)
}

// MeterStore persists meter readings
type MeterStore interface {
	ListByTenant(ctx context.Context, tenantID string) ([]domain.MeterReading, error)
	Create(ctx context.Context, tenantID string, in domain.MeterReadingInput) (*domain.MeterReading, error)
}

// BillingStore reads invoices and payments
type BillingStore interface {
	InvoicesByTenant(ctx context.Context, tenantID string) ([]repository.Invoice, error)
	PaymentsForInvoices(ctx context.Context, invoiceIDs []string) ([]domain.Payment, error)
	CreateInvoice(ctx context.Context, tenantID string, in domain.BillInput) (*repository.Invoice, error)
}

// CallerStore resolves the organization and roles of an authenticated user
type CallerStore interface {
	Subject(ctx context.Context, userID string) (*permissions.Subject, error)
}

// Stores groups the persistence dependencies of the adapters. Family,
// Documents and Meters are only used in enhanced mode. Callers is only used
// by Access.
type Stores struct {
	Callers   CallerStore
	Tenants   TenantStore
	Family    FamilyStore
	Documents DocumentStore
	Meters    MeterStore
	Billing   BillingStore
}
