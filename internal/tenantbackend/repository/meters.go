package repository

import (
	"context"

	"github.com/tenantdesk/tenantdesk-backend/internal/tenantbackend/domain"
	"github.com/tenantdesk/tenantdesk-backend/pkg/database"
)

const meterColumns = `id, tenant_id, unit_id, meter_type, reading_value, previous_value, reading_date`

// MeterRepository handles meter_readings
type MeterRepository struct {
	db *database.DB
}

// NewMeterRepository creates a new meter reading repository
func NewMeterRepository(db *database.DB) *MeterRepository {
	return &MeterRepository{db: db}
}

// ListByTenant lists a tenant's readings, newest first
func (r *MeterRepository) ListByTenant(ctx context.Context, tenantID string) ([]domain.MeterReading, error) {
	var rows []meterRow
	query := `SELECT ` + meterColumns + ` FROM meter_readings WHERE tenant_id = $1 ORDER BY reading_date DESC, created_at DESC`
	if err := r.db.SelectContext(ctx, &rows, query, tenantID); err != nil {
		return nil, err
	}

	readings := make([]domain.MeterReading, 0, len(rows))
	for _, row := range rows {
		readings = append(readings, row.toDomain())
	}
	return readings, nil
}

// Create records a reading against the tenant's current unit. A missing
// previous value is taken from the latest reading of the same meter type.
func (r *MeterRepository) Create(ctx context.Context, tenantID string, in domain.MeterReadingInput) (*domain.MeterReading, error) {
	meterType := in.MeterType
	if meterType == "" {
		meterType = "electricity"
	}

	var row meterRow
	query := `
		INSERT INTO meter_readings (tenant_id, unit_id, meter_type, reading_value, previous_value, reading_date)
		VALUES (
			$1,
			(SELECT unit_id FROM tenants WHERE id = $1),
			$2,
			$3,
			COALESCE($4::numeric, (
				SELECT reading_value FROM meter_readings
				WHERE tenant_id = $1 AND meter_type = $2
				ORDER BY reading_date DESC, created_at DESC
				LIMIT 1
			), 0),
			COALESCE($5::date, CURRENT_DATE)
		)
		RETURNING ` + meterColumns
	err := r.db.GetContext(ctx, &row, query,
		tenantID, meterType, in.CurrentReading, nullableDecimal(in.PreviousReading), in.ReadingDate,
	)
	if err != nil {
		return nil, err
	}
	m := row.toDomain()
	return &m, nil
}
