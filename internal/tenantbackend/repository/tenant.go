package repository

import (
	"context"
	"fmt"

	"github.com/lib/pq"
	"github.com/tenantdesk/tenantdesk-backend/internal/tenantbackend/domain"
	"github.com/tenantdesk/tenantdesk-backend/pkg/database"
	"github.com/tenantdesk/tenantdesk-backend/pkg/errors"
)

// LegacyRoomType is reported when no room type is stored
const LegacyRoomType = "standard"

// TenantRepository handles tenants and their room placement
type TenantRepository struct {
	db *database.DB
}

// NewTenantRepository creates a new tenant repository
func NewTenantRepository(db *database.DB) *TenantRepository {
	return &TenantRepository{db: db}
}

// Probe checks that table exists and is readable
func (r *TenantRepository) Probe(ctx context.Context, table string) error {
	query := fmt.Sprintf(`SELECT 1 FROM %s LIMIT 1`, pq.QuoteIdentifier(table))
	_, err := r.db.ExecContext(ctx, query)
	return err
}

// GetTenant gets a tenant by ID
func (r *TenantRepository) GetTenant(ctx context.Context, id string) (*domain.Tenant, error) {
	var row tenantRow
	query := `
		SELECT id, organization_id, user_id, unit_id, full_name, email, phone, status, move_in_date
		FROM tenants
		WHERE id = $1
	`
	if err := r.db.GetContext(ctx, &row, query, id); err != nil {
		if isNoRows(err) {
			return nil, errors.NotFound("tenant")
		}
		return nil, err
	}
	t := row.toDomain()
	return &t, nil
}

// UnitRoom derives room info from the unit the tenant occupies
func (r *TenantRepository) UnitRoom(ctx context.Context, tenantID string) (*domain.RoomInfo, error) {
	var row roomRow
	query := `
		SELECT t.id AS tenant_id, u.id AS unit_id, u.unit_number AS room_number,
		       u.floor, NULL::text AS room_type, u.area_sqft
		FROM tenants t
		JOIN units u ON u.id = t.unit_id
		WHERE t.id = $1
	`
	if err := r.db.GetContext(ctx, &row, query, tenantID); err != nil {
		if isNoRows(err) {
			return nil, errors.NotFound("room")
		}
		return nil, err
	}
	room := row.toDomain()
	return &room, nil
}

// UpdateUnitRoom writes room fields to the tenant's unit. The unit has no
// room type column, so in.RoomType is not stored.
func (r *TenantRepository) UpdateUnitRoom(ctx context.Context, tenantID string, in domain.RoomInput) (*domain.RoomInfo, error) {
	var row roomRow
	query := `
		UPDATE units u SET
			unit_number = COALESCE($2, u.unit_number),
			floor = COALESCE($3, u.floor),
			area_sqft = COALESCE($4, u.area_sqft),
			updated_at = NOW()
		FROM tenants t
		WHERE t.id = $1 AND u.id = t.unit_id
		RETURNING t.id AS tenant_id, u.id AS unit_id, u.unit_number AS room_number,
		          u.floor, NULL::text AS room_type, u.area_sqft
	`
	err := r.db.GetContext(ctx, &row, query, tenantID, in.RoomNumber, in.Floor, nullableDecimal(in.AreaSqft))
	if err != nil {
		if isNoRows(err) {
			return nil, errors.NotFound("room")
		}
		return nil, err
	}
	room := row.toDomain()
	return &room, nil
}

// RoomDetails reads the tenant's room details row
func (r *TenantRepository) RoomDetails(ctx context.Context, tenantID string) (*domain.RoomInfo, error) {
	var row roomRow
	query := `
		SELECT tenant_id, unit_id, room_number, floor, room_type, area_sqft
		FROM tenant_room_details
		WHERE tenant_id = $1
	`
	if err := r.db.GetContext(ctx, &row, query, tenantID); err != nil {
		if isNoRows(err) {
			return nil, errors.NotFound("room")
		}
		return nil, err
	}
	room := row.toDomain()
	return &room, nil
}

// UpsertRoomDetails creates or patches the tenant's room details row
func (r *TenantRepository) UpsertRoomDetails(ctx context.Context, tenantID string, in domain.RoomInput) (*domain.RoomInfo, error) {
	var row roomRow
	query := `
		INSERT INTO tenant_room_details (tenant_id, unit_id, room_number, floor, room_type, area_sqft)
		SELECT t.id, t.unit_id, $2::text, $3::integer, $4::text, $5::numeric
		FROM tenants t
		WHERE t.id = $1
		ON CONFLICT (tenant_id) DO UPDATE SET
			room_number = COALESCE(EXCLUDED.room_number, tenant_room_details.room_number),
			floor = COALESCE(EXCLUDED.floor, tenant_room_details.floor),
			room_type = COALESCE(EXCLUDED.room_type, tenant_room_details.room_type),
			area_sqft = COALESCE(EXCLUDED.area_sqft, tenant_room_details.area_sqft),
			updated_at = NOW()
		RETURNING tenant_id, unit_id, room_number, floor, room_type, area_sqft
	`
	err := r.db.GetContext(ctx, &row, query,
		tenantID, in.RoomNumber, in.Floor, in.RoomType, nullableDecimal(in.AreaSqft),
	)
	if err != nil {
		if isNoRows(err) {
			return nil, errors.NotFound("tenant")
		}
		return nil, err
	}
	room := row.toDomain()
	return &room, nil
}
