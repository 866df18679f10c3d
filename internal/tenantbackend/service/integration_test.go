package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tenantdesk/tenantdesk-backend/internal/tenantbackend/domain"
	"github.com/tenantdesk/tenantdesk-backend/internal/tenantbackend/repository"
	"github.com/tenantdesk/tenantdesk-backend/internal/tenantbackend/service"
	"github.com/tenantdesk/tenantdesk-backend/pkg/config"
	"github.com/tenantdesk/tenantdesk-backend/pkg/database"
	"github.com/tenantdesk/tenantdesk-backend/pkg/logger"
	"github.com/tenantdesk/tenantdesk-backend/pkg/permissions"
	"github.com/tenantdesk/tenantdesk-backend/pkg/testutil"
)

const coreSchemaVersion = 1

func liveStores(db *database.DB) service.Stores {
	return service.Stores{
		Callers:   repository.NewCallerRepository(db),
		Tenants:   repository.NewTenantRepository(db),
		Family:    repository.NewFamilyRepository(db),
		Documents: repository.NewDocumentRepository(db),
		Meters:    repository.NewMeterRepository(db),
		Billing:   repository.NewBillingRepository(db),
	}
}

func liveBackend(t *testing.T, db *database.DB) (*service.Backend, *service.ModeDetector) {
	t.Helper()
	prober := repository.NewTenantRepository(db)
	detector := service.NewModeDetector(prober, config.BackendConfig{ProbeTimeout: 5 * time.Second}, nil, logger.Nop())
	return service.NewBackend(detector, liveStores(db), logger.Nop()), detector
}

func TestIntegration_LegacySchema(t *testing.T) {
	testutil.SkipIfShort(t)
	suite := testutil.RequireIntegrationSuite(t, coreSchemaVersion)
	ctx := context.Background()

	org := suite.Fixtures.Organization(t, ctx)
	unit := suite.Fixtures.Unit(t, ctx, org)
	tenant := suite.Fixtures.Tenant(t, ctx, org, unit)
	invoice := suite.Fixtures.Invoice(t, ctx, tenant, "1000.00")
	suite.Fixtures.Payment(t, ctx, invoice, tenant, "400.00")
	suite.Fixtures.Payment(t, ctx, invoice, tenant, "700.00")

	backend, detector := liveBackend(t, suite.DB)

	mode, inconclusive := detector.Status(ctx)
	require.Equal(t, domain.ModeLegacy, mode)
	assert.False(t, inconclusive)

	family := backend.GetFamilyMembers(ctx, tenant)
	require.True(t, family.Success)
	assert.Empty(t, *family.Data)
	assert.True(t, family.Degraded)

	bills := backend.GetBills(ctx, tenant)
	require.True(t, bills.Success)
	require.Len(t, *bills.Data, 1)
	bill := (*bills.Data)[0]
	assert.True(t, decimal.NewFromInt(1100).Equal(bill.TotalPaid))
	assert.True(t, decimal.NewFromInt(-100).Equal(bill.RemainingBalance))

	number := "L-9"
	room := backend.UpdateRoomInfo(ctx, tenant, domain.RoomInput{RoomNumber: &number})
	require.True(t, room.Success, room.Error)
	assert.Equal(t, "L-9", room.Data.RoomNumber)
	assert.Equal(t, repository.LegacyRoomType, room.Data.RoomType)

	write := backend.AddDocument(ctx, tenant, domain.DocumentInput{DocumentType: "lease", DocumentURL: "https://files.example.com/l.pdf"})
	assert.False(t, write.Success)
	assert.Contains(t, write.Error, "requires the enhanced tenant schema")
}

func TestIntegration_EnhancedSchema(t *testing.T) {
	testutil.SkipIfShort(t)
	suite := testutil.RequireIntegrationSuite(t, 0)
	ctx := context.Background()

	org := suite.Fixtures.Organization(t, ctx)
	unit := suite.Fixtures.Unit(t, ctx, org)
	tenant := suite.Fixtures.Tenant(t, ctx, org, unit)

	backend, detector := liveBackend(t, suite.DB)
	require.Equal(t, domain.ModeEnhanced, detector.Mode(ctx))

	dob := "1988-02-29"
	added := backend.AddFamilyMember(ctx, tenant, domain.FamilyMemberInput{
		Name:               "Ishaan",
		Relation:           "brother",
		IsEmergencyContact: true,
		DateOfBirth:        &dob,
	})
	require.True(t, added.Success, added.Error)
	assert.Equal(t, "brother", added.Data.Relation)
	require.NotNil(t, added.Data.DateOfBirth)
	assert.Equal(t, dob, *added.Data.DateOfBirth)

	first := backend.AddMeterReading(ctx, tenant, domain.MeterReadingInput{
		MeterType:      "water",
		CurrentReading: decimal.NewFromInt(100),
	})
	require.True(t, first.Success, first.Error)
	assert.True(t, decimal.NewFromInt(100).Equal(first.Data.Consumption))
	require.NotNil(t, first.Data.UnitID)
	assert.Equal(t, unit, *first.Data.UnitID)

	second := backend.AddMeterReading(ctx, tenant, domain.MeterReadingInput{
		MeterType:      "water",
		CurrentReading: decimal.NewFromInt(160),
	})
	require.True(t, second.Success, second.Error)
	assert.True(t, decimal.NewFromInt(100).Equal(second.Data.PreviousReading))
	assert.True(t, decimal.NewFromInt(60).Equal(second.Data.Consumption))

	bill := backend.AddBill(ctx, tenant, domain.BillInput{Description: "Deposit", Amount: decimal.NewFromInt(5000)})
	require.True(t, bill.Success, bill.Error)
	assert.Equal(t, "pending", bill.Data.Status)

	roomType := "studio"
	room := backend.UpdateRoomInfo(ctx, tenant, domain.RoomInput{RoomType: &roomType})
	require.True(t, room.Success, room.Error)
	assert.Equal(t, "studio", room.Data.RoomType)

	profile := backend.GetTenantProfile(ctx, tenant)
	require.True(t, profile.Success, profile.Error)
	assert.Empty(t, profile.Message)
	assert.Len(t, profile.Data.FamilyMembers, 1)
	assert.Len(t, profile.Data.MeterReadings, 2)
	assert.Len(t, profile.Data.Bills, 1)
	assert.Empty(t, profile.Data.Documents)
	require.NotNil(t, profile.Data.Room)
	assert.Equal(t, "studio", profile.Data.Room.RoomType)

	deleted := backend.DeleteFamilyMember(ctx, added.Data.ID)
	require.True(t, deleted.Success)
	again := backend.DeleteFamilyMember(ctx, added.Data.ID)
	assert.Equal(t, "family member not found", again.Error)
}

func TestIntegration_AccessIsScopedToTheActor(t *testing.T) {
	testutil.SkipIfShort(t)
	suite := testutil.RequireIntegrationSuite(t, coreSchemaVersion)
	ctx := context.Background()

	org := suite.Fixtures.Organization(t, ctx)
	otherOrg := suite.Fixtures.Organization(t, ctx)
	tenant := suite.Fixtures.Tenant(t, ctx, org, suite.Fixtures.Unit(t, ctx, org))

	manager := suite.Fixtures.User(t, ctx, org, "manager")
	outsider := suite.Fixtures.User(t, ctx, otherOrg, "owner")
	resident := suite.Fixtures.User(t, ctx, org, "tenant")
	suite.Fixtures.LinkTenantUser(t, ctx, tenant, resident)

	access := service.NewAccess(service.FixedMode(domain.ModeLegacy), liveStores(suite.DB), logger.Nop())

	assert.NoError(t, access.Tenant(as(manager), tenant, permissions.OpManage))
	assert.NoError(t, access.Tenant(as(resident), tenant, permissions.OpRead))

	for name, err := range map[string]error{
		"outsider reads":  access.Tenant(as(outsider), tenant, permissions.OpRead),
		"resident bills":  access.Tenant(as(resident), tenant, permissions.OpManage),
		"unknown account": access.Tenant(as(uuid.NewString()), tenant, permissions.OpRead),
	} {
		require.Error(t, err, name)
		assert.Equal(t, 403, statusOf(t, err), name)
	}
}
