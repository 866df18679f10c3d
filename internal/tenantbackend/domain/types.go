// Package domain holds the tenant-detail entities served by the schema
// adapter, in their canonical external shape.
package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// SchemaMode says which table set the datastore carries
type SchemaMode string

const (
	ModeEnhanced SchemaMode = "enhanced"
	ModeLegacy   SchemaMode = "legacy"
)

// DateLayout is the wire format of calendar dates
const DateLayout = "2006-01-02"

// Tenant is the primary entity of a profile
type Tenant struct {
	ID             string  `json:"id"`
	OrganizationID *string `json:"organization_id,omitempty"`
	UserID         *string `json:"user_id,omitempty"`
	UnitID         *string `json:"unit_id,omitempty"`
	FullName       string  `json:"full_name"`
	Email          string  `json:"email"`
	Phone          string  `json:"phone"`
	Status         string  `json:"status"`
	MoveInDate     *string `json:"move_in_date,omitempty"`
}

// FamilyMember is a household member of a tenant
type FamilyMember struct {
	ID                 string     `json:"id"`
	TenantID           string     `json:"tenant_id"`
	Name               string     `json:"name"`
	Relation           string     `json:"relation"`
	MobileNumber       string     `json:"mobile_number"`
	IsEmergencyContact bool       `json:"is_emergency_contact"`
	DateOfBirth        *string    `json:"date_of_birth,omitempty"`
	CreatedAt          *time.Time `json:"created_at,omitempty"`
}

// FamilyMemberInput creates or replaces a family member
type FamilyMemberInput struct {
	Name               string  `json:"name" validate:"required,max=200"`
	Relation           string  `json:"relation" validate:"max=50"`
	MobileNumber       string  `json:"mobile_number" validate:"max=32"`
	IsEmergencyContact bool    `json:"is_emergency_contact"`
	DateOfBirth        *string `json:"date_of_birth" validate:"omitempty,datetime=2006-01-02"`
}

// TenantDocument is an uploaded tenant document
type TenantDocument struct {
	ID           string     `json:"id"`
	TenantID     string     `json:"tenant_id"`
	DocumentType string     `json:"document_type"`
	DocumentName string     `json:"document_name"`
	DocumentURL  string     `json:"document_url"`
	IsVerified   bool       `json:"is_verified"`
	UploadedAt   *time.Time `json:"uploaded_at,omitempty"`
}

// DocumentInput registers a document
type DocumentInput struct {
	DocumentType string `json:"document_type" validate:"required,max=50"`
	DocumentName string `json:"document_name" validate:"max=255"`
	DocumentURL  string `json:"document_url" validate:"required,url"`
}

// MeterReading is one utility meter reading
type MeterReading struct {
	ID              string          `json:"id"`
	TenantID        string          `json:"tenant_id"`
	UnitID          *string         `json:"unit_id,omitempty"`
	MeterType       string          `json:"meter_type"`
	CurrentReading  decimal.Decimal `json:"current_reading"`
	PreviousReading decimal.Decimal `json:"previous_reading"`
	Consumption     decimal.Decimal `json:"consumption"`
	ReadingDate     string          `json:"reading_date"`
}

// MeterReadingInput records a reading. PreviousReading defaults to the last
// reading of the same meter.
type MeterReadingInput struct {
	MeterType       string           `json:"meter_type" validate:"omitempty,oneof=electricity water gas"`
	CurrentReading  decimal.Decimal  `json:"current_reading"`
	PreviousReading *decimal.Decimal `json:"previous_reading"`
	ReadingDate     *string          `json:"reading_date" validate:"omitempty,datetime=2006-01-02"`
}

// Payment is one payment against an invoice
type Payment struct {
	ID          string          `json:"id"`
	InvoiceID   string          `json:"invoice_id"`
	Amount      decimal.Decimal `json:"amount"`
	PaymentDate string          `json:"payment_date"`
	Method      string          `json:"method"`
	Reference   string          `json:"reference"`
}

// Bill is an invoice with its payments. RemainingBalance is Amount minus
// TotalPaid and goes negative on overpayment.
type Bill struct {
	ID               string          `json:"id"`
	TenantID         string          `json:"tenant_id"`
	Description      string          `json:"description"`
	Amount           decimal.Decimal `json:"amount"`
	DueDate          *string         `json:"due_date,omitempty"`
	Status           string          `json:"status"`
	TotalPaid        decimal.Decimal `json:"total_paid"`
	RemainingBalance decimal.Decimal `json:"remaining_balance"`
	Payments         []Payment       `json:"payments"`
	CreatedAt        time.Time       `json:"created_at"`
}

// BillInput creates an invoice
type BillInput struct {
	Description string          `json:"description" validate:"max=500"`
	Amount      decimal.Decimal `json:"amount"`
	DueDate     *string         `json:"due_date" validate:"omitempty,datetime=2006-01-02"`
}

// RoomInfo describes where a tenant lives
type RoomInfo struct {
	TenantID   string           `json:"tenant_id"`
	UnitID     *string          `json:"unit_id,omitempty"`
	RoomNumber string           `json:"room_number"`
	Floor      *int             `json:"floor,omitempty"`
	RoomType   string           `json:"room_type"`
	AreaSqft   *decimal.Decimal `json:"area_sqft,omitempty"`
}

// RoomInput is a partial room update; nil fields are left unchanged
type RoomInput struct {
	RoomNumber *string          `json:"room_number" validate:"omitempty,max=50"`
	Floor      *int             `json:"floor" validate:"omitempty,gte=-5,lte=200"`
	RoomType   *string          `json:"room_type" validate:"omitempty,max=50"`
	AreaSqft   *decimal.Decimal `json:"area_sqft"`
}

// TenantProfile aggregates everything known about a tenant
type TenantProfile struct {
	Tenant        Tenant           `json:"tenant"`
	Room          *RoomInfo        `json:"room,omitempty"`
	FamilyMembers []FamilyMember   `json:"family_members"`
	Documents     []TenantDocument `json:"documents"`
	Bills         []Bill           `json:"bills"`
	MeterReadings []MeterReading   `json:"meter_readings"`
}

// MigrationStatus reports the resolved schema mode
type MigrationStatus struct {
	IsEnhanced   bool       `json:"isEnhanced"`
	Mode         SchemaMode `json:"mode"`
	Inconclusive bool       `json:"inconclusive"`
	Message      string     `json:"message"`
}

// Deleted identifies a removed record
type Deleted struct {
	ID string `json:"id"`
}
