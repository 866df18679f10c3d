package repository_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tenantdesk/tenantdesk-backend/internal/tenantbackend/domain"
	"github.com/tenantdesk/tenantdesk-backend/internal/tenantbackend/repository"
	apperrors "github.com/tenantdesk/tenantdesk-backend/pkg/errors"
	"github.com/tenantdesk/tenantdesk-backend/pkg/testutil"
)

// ============================================================================
// Probe
// ============================================================================

func TestTenantRepository_Probe(t *testing.T) {
	t.Run("table present", func(t *testing.T) {
		mockDB := testutil.NewMockDB(t)
		defer mockDB.Close()

		mockDB.ExpectExec(`SELECT 1 FROM "tenant_family_members" LIMIT 1`).
			WillReturnResult(sqlmock.NewResult(0, 0))

		repo := repository.NewTenantRepository(mockDB.Database())
		assert.NoError(t, repo.Probe(context.Background(), "tenant_family_members"))
		mockDB.ExpectationsWereMet(t)
	})

	t.Run("table missing", func(t *testing.T) {
		mockDB := testutil.NewMockDB(t)
		defer mockDB.Close()

		mockDB.ExpectExec(`SELECT 1 FROM "tenant_family_members"`).
			WillReturnError(&pq.Error{Code: "42P01"})

		repo := repository.NewTenantRepository(mockDB.Database())
		assert.Error(t, repo.Probe(context.Background(), "tenant_family_members"))
	})
}

// ============================================================================
// Field mapping
// ============================================================================

func TestFamilyRepository_ListByTenant_MapsAndDefaults(t *testing.T) {
	mockDB := testutil.NewMockDB(t)
	defer mockDB.Close()

	created := time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC)
	dob := time.Date(1990, 5, 17, 0, 0, 0, 0, time.UTC)
	mockDB.ExpectQuery("FROM tenant_family_members WHERE tenant_id").WithArgs("t-1").
		WillReturnRows(testutil.MockRows(
			"id", "tenant_id", "full_name", "relationship", "phone", "is_primary", "date_of_birth", "created_at",
		).
			AddRow("f-1", "t-1", "Asha Rao", "spouse", "+91 98765", true, dob, created).
			AddRow("f-2", "t-1", nil, nil, nil, nil, nil, created))

	repo := repository.NewFamilyRepository(mockDB.Database())
	members, err := repo.ListByTenant(context.Background(), "t-1")

	require.NoError(t, err)
	require.Len(t, members, 2)

	assert.Equal(t, "Asha Rao", members[0].Name)
	assert.Equal(t, "spouse", members[0].Relation)
	assert.Equal(t, "+91 98765", members[0].MobileNumber)
	assert.True(t, members[0].IsEmergencyContact)
	require.NotNil(t, members[0].DateOfBirth)
	assert.Equal(t, "1990-05-17", *members[0].DateOfBirth)

	assert.Equal(t, "Unknown", members[1].Name)
	assert.Equal(t, "other", members[1].Relation)
	assert.Equal(t, "", members[1].MobileNumber)
	assert.False(t, members[1].IsEmergencyContact)
	assert.Nil(t, members[1].DateOfBirth)
	mockDB.ExpectationsWereMet(t)
}

func TestFamilyRepository_ListByTenant_EmptyIsNotNil(t *testing.T) {
	mockDB := testutil.NewMockDB(t)
	defer mockDB.Close()

	mockDB.ExpectQuery("FROM tenant_family_members").
		WillReturnRows(testutil.MockRows("id", "tenant_id", "full_name"))

	repo := repository.NewFamilyRepository(mockDB.Database())
	members, err := repo.ListByTenant(context.Background(), "t-1")

	require.NoError(t, err)
	assert.NotNil(t, members)
	assert.Empty(t, members)
}

func TestFamilyRepository_UpdateAndDelete_NotFound(t *testing.T) {
	mockDB := testutil.NewMockDB(t)
	defer mockDB.Close()

	mockDB.ExpectQuery("UPDATE tenant_family_members").
		WillReturnRows(testutil.MockRows("id"))
	mockDB.ExpectExec("DELETE FROM tenant_family_members").WithArgs("f-9").
		WillReturnResult(sqlmock.NewResult(0, 0))

	repo := repository.NewFamilyRepository(mockDB.Database())

	_, err := repo.Update(context.Background(), "f-9", domain.FamilyMemberInput{Name: "X"})
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	err = repo.Delete(context.Background(), "f-9")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	mockDB.ExpectationsWereMet(t)
}

func TestDocumentRepository_ListByTenant_Defaults(t *testing.T) {
	mockDB := testutil.NewMockDB(t)
	defer mockDB.Close()

	mockDB.ExpectQuery("FROM tenant_documents").WithArgs("t-1").
		WillReturnRows(testutil.MockRows(
			"id", "tenant_id", "document_type", "file_name", "file_url", "is_verified", "uploaded_at",
		).AddRow("d-1", "t-1", nil, nil, "https://files.example.com/d-1.pdf", nil, nil))

	repo := repository.NewDocumentRepository(mockDB.Database())
	docs, err := repo.ListByTenant(context.Background(), "t-1")

	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "other", docs[0].DocumentType)
	assert.Equal(t, "Untitled", docs[0].DocumentName)
	assert.Equal(t, "https://files.example.com/d-1.pdf", docs[0].DocumentURL)
	assert.False(t, docs[0].IsVerified)
	assert.Nil(t, docs[0].UploadedAt)
}

func TestMeterRepository_ListByTenant_Consumption(t *testing.T) {
	mockDB := testutil.NewMockDB(t)
	defer mockDB.Close()

	readingDate := time.Date(2026, 9, 30, 0, 0, 0, 0, time.UTC)
	mockDB.ExpectQuery("FROM meter_readings").WithArgs("t-1").
		WillReturnRows(testutil.MockRows(
			"id", "tenant_id", "unit_id", "meter_type", "reading_value", "previous_value", "reading_date",
		).
			AddRow("m-1", "t-1", "u-1", "water", "130.50", "100.25", readingDate).
			AddRow("m-2", "t-1", nil, nil, "40", nil, nil))

	repo := repository.NewMeterRepository(mockDB.Database())
	readings, err := repo.ListByTenant(context.Background(), "t-1")

	require.NoError(t, err)
	require.Len(t, readings, 2)

	assert.Equal(t, "water", readings[0].MeterType)
	assert.True(t, decimal.RequireFromString("30.25").Equal(readings[0].Consumption))
	assert.Equal(t, "2026-09-30", readings[0].ReadingDate)

	assert.Equal(t, "electricity", readings[1].MeterType)
	assert.True(t, decimal.Zero.Equal(readings[1].PreviousReading))
	assert.True(t, decimal.NewFromInt(40).Equal(readings[1].Consumption))
}

func TestMeterRepository_Create_DefaultsMeterType(t *testing.T) {
	mockDB := testutil.NewMockDB(t)
	defer mockDB.Close()

	current := decimal.NewFromInt(1200)
	mockDB.ExpectQuery("INSERT INTO meter_readings").
		WithArgs("t-1", "electricity", current, nil, nil).
		WillReturnRows(testutil.MockRows(
			"id", "tenant_id", "unit_id", "meter_type", "reading_value", "previous_value", "reading_date",
		).AddRow("m-3", "t-1", "u-1", "electricity", "1200", "1100", time.Now()))

	repo := repository.NewMeterRepository(mockDB.Database())
	reading, err := repo.Create(context.Background(), "t-1", domain.MeterReadingInput{CurrentReading: current})

	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(100).Equal(reading.Consumption))
	mockDB.ExpectationsWereMet(t)
}

func TestFamilyRepository_TenantOf(t *testing.T) {
	mockDB := testutil.NewMockDB(t)
	defer mockDB.Close()

	mockDB.ExpectQuery(`SELECT tenant_id FROM tenant_family_members WHERE id = $1`).WithArgs("f-1").
		WillReturnRows(testutil.MockRows("tenant_id").AddRow("t-1"))
	mockDB.ExpectQuery(`SELECT tenant_id FROM tenant_family_members`).WithArgs("f-9").
		WillReturnRows(testutil.MockRows("tenant_id"))

	repo := repository.NewFamilyRepository(mockDB.Database())

	owner, err := repo.TenantOf(context.Background(), "f-1")
	require.NoError(t, err)
	assert.Equal(t, "t-1", owner)

	_, err = repo.TenantOf(context.Background(), "f-9")
	assert.True(t, errors.Is(err, apperrors.ErrNotFound))
	mockDB.ExpectationsWereMet(t)
}

// ============================================================================
// Callers
// ============================================================================

func TestCallerRepository_Subject(t *testing.T) {
	t.Run("profile and roles", func(t *testing.T) {
		mockDB := testutil.NewMockDB(t)
		defer mockDB.Close()

		mockDB.ExpectQuery("LEFT JOIN profiles p ON p.user_id = caller.user_id").WithArgs("user-1").
			WillReturnRows(testutil.MockRows("organization_id", "roles").AddRow("org-1", "{manager,staff}"))

		repo := repository.NewCallerRepository(mockDB.Database())
		subject, err := repo.Subject(context.Background(), "user-1")

		require.NoError(t, err)
		assert.Equal(t, "user-1", subject.UserID)
		assert.Equal(t, "org-1", subject.OrganizationID)
		assert.Equal(t, []string{"manager", "staff"}, subject.Roles)
	})

	t.Run("unknown user", func(t *testing.T) {
		mockDB := testutil.NewMockDB(t)
		defer mockDB.Close()

		mockDB.ExpectQuery("FROM (SELECT $1::uuid AS user_id) caller").WithArgs("user-2").
			WillReturnRows(testutil.MockRows("organization_id", "roles").AddRow(nil, "{}"))

		repo := repository.NewCallerRepository(mockDB.Database())
		subject, err := repo.Subject(context.Background(), "user-2")

		require.NoError(t, err)
		assert.Empty(t, subject.OrganizationID)
		assert.Empty(t, subject.Roles)
	})
}

// ============================================================================
// Tenants and rooms
// ============================================================================

func TestTenantRepository_GetTenant(t *testing.T) {
	t.Run("found", func(t *testing.T) {
		mockDB := testutil.NewMockDB(t)
		defer mockDB.Close()

		mockDB.ExpectQuery("FROM tenants").WithArgs("t-1").
			WillReturnRows(testutil.MockRows(
				"id", "organization_id", "user_id", "unit_id", "full_name", "email", "phone", "status", "move_in_date",
			).AddRow("t-1", "org-1", "user-1", "u-1", "Ravi Kumar", "ravi@example.com", nil, "active", nil))

		repo := repository.NewTenantRepository(mockDB.Database())
		tenant, err := repo.GetTenant(context.Background(), "t-1")

		require.NoError(t, err)
		assert.Equal(t, "Ravi Kumar", tenant.FullName)
		assert.Equal(t, "", tenant.Phone)
		require.NotNil(t, tenant.UnitID)
		assert.Equal(t, "u-1", *tenant.UnitID)
		require.NotNil(t, tenant.UserID)
		assert.Equal(t, "user-1", *tenant.UserID)
	})

	t.Run("not found", func(t *testing.T) {
		mockDB := testutil.NewMockDB(t)
		defer mockDB.Close()

		mockDB.ExpectQuery("FROM tenants").WillReturnRows(testutil.MockRows("id"))

		repo := repository.NewTenantRepository(mockDB.Database())
		_, err := repo.GetTenant(context.Background(), "t-404")

		var appErr *apperrors.AppError
		require.True(t, errors.As(err, &appErr))
		assert.Equal(t, "tenant not found", appErr.Message)
	})
}

func TestTenantRepository_UnitRoom_ReportsPlaceholderType(t *testing.T) {
	mockDB := testutil.NewMockDB(t)
	defer mockDB.Close()

	mockDB.ExpectQuery("JOIN units u ON u.id = t.unit_id").WithArgs("t-1").
		WillReturnRows(testutil.MockRows(
			"tenant_id", "unit_id", "room_number", "floor", "room_type", "area_sqft",
		).AddRow("t-1", "u-1", "B-204", int64(2), nil, "410.00"))

	repo := repository.NewTenantRepository(mockDB.Database())
	room, err := repo.UnitRoom(context.Background(), "t-1")

	require.NoError(t, err)
	assert.Equal(t, "B-204", room.RoomNumber)
	assert.Equal(t, repository.LegacyRoomType, room.RoomType)
	require.NotNil(t, room.Floor)
	assert.Equal(t, 2, *room.Floor)
	require.NotNil(t, room.AreaSqft)
	assert.Equal(t, "410", room.AreaSqft.String())
}

func TestTenantRepository_UpsertRoomDetails_UnknownTenant(t *testing.T) {
	mockDB := testutil.NewMockDB(t)
	defer mockDB.Close()

	mockDB.ExpectQuery("INSERT INTO tenant_room_details").
		WillReturnRows(testutil.MockRows("tenant_id"))

	repo := repository.NewTenantRepository(mockDB.Database())
	number := "C-1"
	_, err := repo.UpsertRoomDetails(context.Background(), "t-404", domain.RoomInput{RoomNumber: &number})

	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

// ============================================================================
// Billing
// ============================================================================

func TestBillingRepository_PaymentsForInvoices(t *testing.T) {
	t.Run("no invoices skips the query", func(t *testing.T) {
		mockDB := testutil.NewMockDB(t)
		defer mockDB.Close()

		repo := repository.NewBillingRepository(mockDB.Database())
		payments, err := repo.PaymentsForInvoices(context.Background(), nil)

		require.NoError(t, err)
		assert.Empty(t, payments)
		mockDB.ExpectationsWereMet(t)
	})

	t.Run("maps payments", func(t *testing.T) {
		mockDB := testutil.NewMockDB(t)
		defer mockDB.Close()

		paid := time.Date(2026, 10, 2, 0, 0, 0, 0, time.UTC)
		mockDB.Mock.ExpectQuery(`invoice_id = ANY\(\$1::uuid\[\]\)`).
			WillReturnRows(testutil.MockRows("id", "invoice_id", "amount", "payment_date", "method", "reference").
				AddRow("p-1", "i-1", "500.00", paid, "upi", nil))

		repo := repository.NewBillingRepository(mockDB.Database())
		payments, err := repo.PaymentsForInvoices(context.Background(), []string{"i-1"})

		require.NoError(t, err)
		require.Len(t, payments, 1)
		assert.Equal(t, "2026-10-02", payments[0].PaymentDate)
		assert.Equal(t, "upi", payments[0].Method)
		assert.Equal(t, "", payments[0].Reference)
		assert.True(t, decimal.NewFromInt(500).Equal(payments[0].Amount))
	})
}

func TestBillingRepository_CreateInvoice_IsPending(t *testing.T) {
	mockDB := testutil.NewMockDB(t)
	defer mockDB.Close()

	amount := decimal.RequireFromString("1500.00")
	created := time.Date(2026, 10, 1, 8, 0, 0, 0, time.UTC)
	mockDB.Mock.ExpectQuery(`(?s)INSERT INTO invoices.*'pending'`).
		WithArgs("t-1", "October rent", amount, nil).
		WillReturnRows(testutil.MockRows(invoiceCols...).
			AddRow("i-2", "t-1", "October rent", "1500.00", nil, "pending", created))

	repo := repository.NewBillingRepository(mockDB.Database())
	inv, err := repo.CreateInvoice(context.Background(), "t-1", domain.BillInput{Description: "October rent", Amount: amount})

	require.NoError(t, err)
	assert.Equal(t, "pending", inv.Status)
	assert.True(t, amount.Equal(inv.Amount))
	assert.Nil(t, inv.DueDate)
	mockDB.ExpectationsWereMet(t)
}

var invoiceCols = []string{"id", "tenant_id", "description", "amount", "due_date", "status", "created_at"}
