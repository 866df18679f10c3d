package service_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tenantdesk/tenantdesk-backend/internal/tenantbackend/domain"
	"github.com/tenantdesk/tenantdesk-backend/internal/tenantbackend/repository"
)

// ============================================================================
// Legacy mode
// ============================================================================

func TestLegacy_FamilyMembersAreAnEmptyFlaggedList(t *testing.T) {
	f := newBackend(t, domain.ModeLegacy)

	result := f.backend.GetFamilyMembers(context.Background(), tenantID)

	require.True(t, result.Success)
	require.NotNil(t, result.Data)
	assert.Empty(t, *result.Data)
	assert.True(t, result.Degraded)
	assert.NotEmpty(t, result.Message)
	assert.Zero(t, f.log.Count())

	body, err := json.Marshal(result)
	require.NoError(t, err)
	assert.Contains(t, string(body), `"success":true`)
	assert.Contains(t, string(body), `"data":[]`)
}

func TestLegacy_DocumentsAreEmpty(t *testing.T) {
	f := newBackend(t, domain.ModeLegacy)

	result := f.backend.GetDocuments(context.Background(), tenantID)

	require.True(t, result.Success)
	assert.Empty(t, *result.Data)
	assert.True(t, result.Degraded)
}

func TestLegacy_MeterReadingsAreOneSample(t *testing.T) {
	f := newBackend(t, domain.ModeLegacy)

	result := f.backend.GetMeterReadings(context.Background(), tenantID)

	require.True(t, result.Success)
	require.Len(t, *result.Data, 1)
	sample := (*result.Data)[0]
	assert.Equal(t, tenantID, sample.TenantID)
	assert.True(t, sample.Consumption.Equal(sample.CurrentReading.Sub(sample.PreviousReading)))
	assert.NotEmpty(t, sample.ReadingDate)
	assert.True(t, result.Degraded)
}

type outcome struct {
	success bool
	err     string
	status  int
}

func outcomeOf[T any](r domain.Result[T]) outcome {
	return outcome{r.Success, r.Error, r.StatusCode}
}

func TestLegacy_DetailWritesRequireEnhancedSchema(t *testing.T) {
	f := newBackend(t, domain.ModeLegacy)
	ctx := context.Background()

	results := map[string]outcome{
		"add family":    outcomeOf(f.backend.AddFamilyMember(ctx, tenantID, domain.FamilyMemberInput{Name: "Anil"})),
		"update family": outcomeOf(f.backend.UpdateFamilyMember(ctx, memberID, domain.FamilyMemberInput{Name: "Anil"})),
		"delete family": outcomeOf(f.backend.DeleteFamilyMember(ctx, memberID)),
		"add document": outcomeOf(f.backend.AddDocument(ctx, tenantID, domain.DocumentInput{
			DocumentType: "id_proof",
			DocumentURL:  "https://files.example.com/a.pdf",
		})),
		"add reading": outcomeOf(f.backend.AddMeterReading(ctx, tenantID, domain.MeterReadingInput{CurrentReading: decimal.NewFromInt(10)})),
	}

	for name, r := range results {
		assert.False(t, r.success, name)
		assert.Contains(t, r.err, "requires the enhanced tenant schema", name)
		assert.Equal(t, http.StatusConflict, r.status, name)
	}
	assert.Zero(t, f.log.Count())
}

func TestLegacy_RoomInfoComesFromTheUnit(t *testing.T) {
	f := newBackend(t, domain.ModeLegacy)
	f.tenants.unitRoom = &domain.RoomInfo{TenantID: tenantID, RoomNumber: "A-101", RoomType: repository.LegacyRoomType}

	result := f.backend.GetTenantProfile(context.Background(), tenantID)

	require.True(t, result.Success)
	require.NotNil(t, result.Data.Room)
	assert.Equal(t, "A-101", result.Data.Room.RoomNumber)
	assert.Equal(t, "standard", result.Data.Room.RoomType)
	assert.True(t, result.Degraded)
	assert.Len(t, result.Data.MeterReadings, 1)
}

func TestLegacy_UpdateRoomInfoNotesDroppedRoomType(t *testing.T) {
	f := newBackend(t, domain.ModeLegacy)
	number, roomType := "B-7", "deluxe"

	result := f.backend.UpdateRoomInfo(context.Background(), tenantID, domain.RoomInput{RoomNumber: &number, RoomType: &roomType})

	require.True(t, result.Success)
	assert.Equal(t, "B-7", result.Data.RoomNumber)
	assert.Equal(t, "standard", result.Data.RoomType)
	assert.Contains(t, result.Message, "Room type")
}

// ============================================================================
// Enhanced mode
// ============================================================================

func TestEnhanced_FamilyMembersRoundTrip(t *testing.T) {
	f := newBackend(t, domain.ModeEnhanced)
	ctx := context.Background()

	added := f.backend.AddFamilyMember(ctx, tenantID, domain.FamilyMemberInput{Name: "Kavya", Relation: "daughter"})
	require.True(t, added.Success)
	assert.Equal(t, "Kavya", added.Data.Name)

	deleted := f.backend.DeleteFamilyMember(ctx, memberID)
	require.True(t, deleted.Success)
	assert.Equal(t, memberID, deleted.Data.ID)

	listed := f.backend.GetFamilyMembers(ctx, tenantID)
	require.True(t, listed.Success)
	assert.False(t, listed.Degraded)
}

func TestEnhanced_RoomFallsBackToUnitUntilDetailsExist(t *testing.T) {
	f := newBackend(t, domain.ModeEnhanced)
	f.tenants.unitRoom = &domain.RoomInfo{TenantID: tenantID, RoomNumber: "C-3", RoomType: "standard"}

	profile := f.backend.GetTenantProfile(context.Background(), tenantID)
	require.True(t, profile.Success)
	require.NotNil(t, profile.Data.Room)
	assert.Equal(t, "C-3", profile.Data.Room.RoomNumber)

	f.tenants.details = &domain.RoomInfo{TenantID: tenantID, RoomNumber: "C-3", RoomType: "studio"}
	profile = f.backend.GetTenantProfile(context.Background(), tenantID)
	assert.Equal(t, "studio", profile.Data.Room.RoomType)
}

func TestEnhanced_StoreErrorsAreSanitized(t *testing.T) {
	f := newBackend(t, domain.ModeEnhanced)

	f.family.err = &pq.Error{Code: "23503", Message: `insert violates foreign key "tenant_family_members_tenant_id_fkey"`}
	result := f.backend.AddFamilyMember(context.Background(), tenantID, domain.FamilyMemberInput{Name: "X"})
	assert.False(t, result.Success)
	assert.Equal(t, "referenced record does not exist", result.Error)
	assert.NotContains(t, result.Error, "fkey")

	f.family.err = errors.New("dial tcp 10.0.0.5:5432: connection refused")
	result = f.backend.AddFamilyMember(context.Background(), tenantID, domain.FamilyMemberInput{Name: "X"})
	assert.Equal(t, "internal error", result.Error)
	assert.Equal(t, http.StatusInternalServerError, result.StatusCode)
}

// ============================================================================
// Bills
// ============================================================================

func TestBills_TotalsAndBalances(t *testing.T) {
	for _, mode := range []domain.SchemaMode{domain.ModeEnhanced, domain.ModeLegacy} {
		t.Run(string(mode), func(t *testing.T) {
			f := newBackend(t, mode)
			f.billing.invoices = []repository.Invoice{
				{ID: "i-1", TenantID: tenantID, Amount: decimal.NewFromInt(1000), Status: "pending"},
				{ID: "i-2", TenantID: tenantID, Amount: decimal.RequireFromString("750.50"), Status: "pending"},
			}
			f.billing.payments = []domain.Payment{
				{ID: "p-1", InvoiceID: "i-1", Amount: decimal.NewFromInt(400)},
				{ID: "p-2", InvoiceID: "i-1", Amount: decimal.NewFromInt(700)},
			}

			result := f.backend.GetBills(context.Background(), tenantID)

			require.True(t, result.Success)
			bills := *result.Data
			require.Len(t, bills, 2)

			assert.True(t, decimal.NewFromInt(1100).Equal(bills[0].TotalPaid))
			assert.True(t, decimal.NewFromInt(-100).Equal(bills[0].RemainingBalance), "overpayment is not clamped")
			assert.Len(t, bills[0].Payments, 2)

			assert.True(t, decimal.Zero.Equal(bills[1].TotalPaid))
			assert.True(t, bills[1].Amount.Equal(bills[1].RemainingBalance))
			assert.NotNil(t, bills[1].Payments)
			assert.Empty(t, bills[1].Payments)
		})
	}
}

func TestAddBill(t *testing.T) {
	t.Run("creates a pending bill", func(t *testing.T) {
		f := newBackend(t, domain.ModeLegacy)

		result := f.backend.AddBill(context.Background(), tenantID, domain.BillInput{Amount: decimal.NewFromInt(1200)})

		require.True(t, result.Success)
		assert.Equal(t, "pending", result.Data.Status)
		assert.True(t, decimal.NewFromInt(1200).Equal(result.Data.RemainingBalance))
	})

	t.Run("rejects non-positive amounts", func(t *testing.T) {
		f := newBackend(t, domain.ModeEnhanced)

		result := f.backend.AddBill(context.Background(), tenantID, domain.BillInput{Amount: decimal.Zero})

		assert.False(t, result.Success)
		assert.Equal(t, http.StatusBadRequest, result.StatusCode)
		assert.Zero(t, f.log.Count())
	})
}

// ============================================================================
// Profile
// ============================================================================

func TestGetTenantProfile_FailedSectionDegradesToEmpty(t *testing.T) {
	f := newBackend(t, domain.ModeEnhanced)
	f.documents.err = errors.New("statement timeout")
	f.family.members = []domain.FamilyMember{{ID: memberID, Name: "Kavya"}}

	result := f.backend.GetTenantProfile(context.Background(), tenantID)

	require.True(t, result.Success)
	assert.Equal(t, "Meera Iyer", result.Data.Tenant.FullName)
	assert.Len(t, result.Data.FamilyMembers, 1)
	assert.NotNil(t, result.Data.Documents)
	assert.Empty(t, result.Data.Documents)
	assert.Contains(t, result.Message, "documents")
	assert.NotContains(t, result.Message, "family")
	assert.False(t, result.Degraded)
}

func TestGetTenantProfile_TenantFailureFailsTheCall(t *testing.T) {
	f := newBackend(t, domain.ModeEnhanced)
	f.tenants.tenant = nil

	result := f.backend.GetTenantProfile(context.Background(), tenantID)

	assert.False(t, result.Success)
	assert.Nil(t, result.Data)
	assert.Equal(t, "tenant not found", result.Error)
	assert.Equal(t, http.StatusNotFound, result.StatusCode)
}

func TestGetTenantProfile_NoUnitIsNotAFailure(t *testing.T) {
	f := newBackend(t, domain.ModeLegacy)

	result := f.backend.GetTenantProfile(context.Background(), tenantID)

	require.True(t, result.Success)
	assert.Nil(t, result.Data.Room)
	assert.NotContains(t, result.Message, "room")
}

// ============================================================================
// Validation and status
// ============================================================================

func TestInvalidIDsMakeNoStoreCalls(t *testing.T) {
	f := newBackend(t, domain.ModeEnhanced)
	ctx := context.Background()

	assert.Equal(t, "invalid tenant id", f.backend.GetFamilyMembers(ctx, "42; DROP TABLE tenants").Error)
	assert.Equal(t, "invalid tenant id", f.backend.GetTenantProfile(ctx, "").Error)
	assert.Equal(t, "invalid family member id", f.backend.DeleteFamilyMember(ctx, "nope").Error)
	assert.Zero(t, f.log.Count())
}

func TestGetMigrationStatus(t *testing.T) {
	enhanced := newBackend(t, domain.ModeEnhanced).backend.GetMigrationStatus(context.Background())
	require.True(t, enhanced.Success)
	assert.True(t, enhanced.Data.IsEnhanced)
	assert.Equal(t, domain.ModeEnhanced, enhanced.Data.Mode)

	legacy := newBackend(t, domain.ModeLegacy).backend.GetMigrationStatus(context.Background())
	require.True(t, legacy.Success)
	assert.False(t, legacy.Data.IsEnhanced)
	assert.Contains(t, legacy.Data.Message, "migration")
}
