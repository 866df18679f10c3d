// Package repository reads and writes tenant detail records. Row structs
// mirror the table columns with nullable types; mappers turn them into the
// canonical domain shapes and fill in defaults for missing values.
package repository

import (
	"database/sql"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"github.com/tenantdesk/tenantdesk-backend/internal/tenantbackend/domain"
)

type tenantRow struct {
	ID             string         `db:"id"`
	OrganizationID sql.NullString `db:"organization_id"`
	UserID         sql.NullString `db:"user_id"`
	UnitID         sql.NullString `db:"unit_id"`
	FullName       sql.NullString `db:"full_name"`
	Email          sql.NullString `db:"email"`
	Phone          sql.NullString `db:"phone"`
	Status         sql.NullString `db:"status"`
	MoveInDate     sql.NullTime   `db:"move_in_date"`
}

func (r tenantRow) toDomain() domain.Tenant {
	return domain.Tenant{
		ID:             r.ID,
		OrganizationID: strPtr(r.OrganizationID),
		UserID:         strPtr(r.UserID),
		UnitID:         strPtr(r.UnitID),
		FullName:       orDefault(r.FullName, "Unknown"),
		Email:          r.Email.String,
		Phone:          r.Phone.String,
		Status:         orDefault(r.Status, "active"),
		MoveInDate:     datePtr(r.MoveInDate),
	}
}

type familyRow struct {
	ID           string         `db:"id"`
	TenantID     string         `db:"tenant_id"`
	FullName     sql.NullString `db:"full_name"`
	Relationship sql.NullString `db:"relationship"`
	Phone        sql.NullString `db:"phone"`
	IsPrimary    sql.NullBool   `db:"is_primary"`
	DateOfBirth  sql.NullTime   `db:"date_of_birth"`
	CreatedAt    sql.NullTime   `db:"created_at"`
}

func (r familyRow) toDomain() domain.FamilyMember {
	return domain.FamilyMember{
		ID:                 r.ID,
		TenantID:           r.TenantID,
		Name:               orDefault(r.FullName, "Unknown"),
		Relation:           orDefault(r.Relationship, "other"),
		MobileNumber:       r.Phone.String,
		IsEmergencyContact: r.IsPrimary.Valid && r.IsPrimary.Bool,
		DateOfBirth:        datePtr(r.DateOfBirth),
		CreatedAt:          timePtr(r.CreatedAt),
	}
}

type documentRow struct {
	ID           string         `db:"id"`
	TenantID     string         `db:"tenant_id"`
	DocumentType sql.NullString `db:"document_type"`
	FileName     sql.NullString `db:"file_name"`
	FileURL      sql.NullString `db:"file_url"`
	IsVerified   sql.NullBool   `db:"is_verified"`
	UploadedAt   sql.NullTime   `db:"uploaded_at"`
}

func (r documentRow) toDomain() domain.TenantDocument {
	return domain.TenantDocument{
		ID:           r.ID,
		TenantID:     r.TenantID,
		DocumentType: orDefault(r.DocumentType, "other"),
		DocumentName: orDefault(r.FileName, "Untitled"),
		DocumentURL:  r.FileURL.String,
		IsVerified:   r.IsVerified.Valid && r.IsVerified.Bool,
		UploadedAt:   timePtr(r.UploadedAt),
	}
}

type meterRow struct {
	ID            string              `db:"id"`
	TenantID      string              `db:"tenant_id"`
	UnitID        sql.NullString      `db:"unit_id"`
	MeterType     sql.NullString      `db:"meter_type"`
	ReadingValue  decimal.NullDecimal `db:"reading_value"`
	PreviousValue decimal.NullDecimal `db:"previous_value"`
	ReadingDate   sql.NullTime        `db:"reading_date"`
}

func (r meterRow) toDomain() domain.MeterReading {
	current := orZero(r.ReadingValue)
	previous := orZero(r.PreviousValue)
	reading := domain.MeterReading{
		ID:              r.ID,
		TenantID:        r.TenantID,
		UnitID:          strPtr(r.UnitID),
		MeterType:       orDefault(r.MeterType, "electricity"),
		CurrentReading:  current,
		PreviousReading: previous,
		Consumption:     current.Sub(previous),
	}
	if r.ReadingDate.Valid {
		reading.ReadingDate = r.ReadingDate.Time.Format(domain.DateLayout)
	}
	return reading
}

type invoiceRow struct {
	ID          string              `db:"id"`
	TenantID    string              `db:"tenant_id"`
	Description sql.NullString      `db:"description"`
	Amount      decimal.NullDecimal `db:"amount"`
	DueDate     sql.NullTime        `db:"due_date"`
	Status      sql.NullString      `db:"status"`
	CreatedAt   time.Time           `db:"created_at"`
}

// Invoice is a bill before its payments are attached
type Invoice struct {
	ID          string
	TenantID    string
	Description string
	Amount      decimal.Decimal
	DueDate     *string
	Status      string
	CreatedAt   time.Time
}

func (r invoiceRow) toInvoice() Invoice {
	return Invoice{
		ID:          r.ID,
		TenantID:    r.TenantID,
		Description: r.Description.String,
		Amount:      orZero(r.Amount),
		DueDate:     datePtr(r.DueDate),
		Status:      orDefault(r.Status, "pending"),
		CreatedAt:   r.CreatedAt,
	}
}

type paymentRow struct {
	ID          string              `db:"id"`
	InvoiceID   string              `db:"invoice_id"`
	Amount      decimal.NullDecimal `db:"amount"`
	PaymentDate sql.NullTime        `db:"payment_date"`
	Method      sql.NullString      `db:"method"`
	Reference   sql.NullString      `db:"reference"`
}

func (r paymentRow) toDomain() domain.Payment {
	p := domain.Payment{
		ID:        r.ID,
		InvoiceID: r.InvoiceID,
		Amount:    orZero(r.Amount),
		Method:    r.Method.String,
		Reference: r.Reference.String,
	}
	if r.PaymentDate.Valid {
		p.PaymentDate = r.PaymentDate.Time.Format(domain.DateLayout)
	}
	return p
}

type roomRow struct {
	TenantID   string              `db:"tenant_id"`
	UnitID     sql.NullString      `db:"unit_id"`
	RoomNumber sql.NullString      `db:"room_number"`
	Floor      sql.NullInt64       `db:"floor"`
	RoomType   sql.NullString      `db:"room_type"`
	AreaSqft   decimal.NullDecimal `db:"area_sqft"`
}

func (r roomRow) toDomain() domain.RoomInfo {
	room := domain.RoomInfo{
		TenantID:   r.TenantID,
		UnitID:     strPtr(r.UnitID),
		RoomNumber: r.RoomNumber.String,
		RoomType:   orDefault(r.RoomType, LegacyRoomType),
	}
	if r.Floor.Valid {
		floor := int(r.Floor.Int64)
		room.Floor = &floor
	}
	if r.AreaSqft.Valid {
		area := r.AreaSqft.Decimal
		room.AreaSqft = &area
	}
	return room
}

func orDefault(s sql.NullString, fallback string) string {
	if !s.Valid || s.String == "" {
		return fallback
	}
	return s.String
}

func orZero(d decimal.NullDecimal) decimal.Decimal {
	if !d.Valid {
		return decimal.Zero
	}
	return d.Decimal
}

func strPtr(s sql.NullString) *string {
	if !s.Valid {
		return nil
	}
	v := s.String
	return &v
}

func datePtr(t sql.NullTime) *string {
	if !t.Valid {
		return nil
	}
	v := t.Time.Format(domain.DateLayout)
	return &v
}

func timePtr(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}

func nullableDecimal(d *decimal.Decimal) any {
	if d == nil {
		return nil
	}
	return *d
}

func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}
