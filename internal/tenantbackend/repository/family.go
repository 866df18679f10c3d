package repository

import (
	"context"

	"github.com/tenantdesk/tenantdesk-backend/internal/tenantbackend/domain"
	"github.com/tenantdesk/tenantdesk-backend/pkg/database"
	"github.com/tenantdesk/tenantdesk-backend/pkg/errors"
)

const familyColumns = `id, tenant_id, full_name, relationship, phone, is_primary, date_of_birth, created_at`

// FamilyRepository handles tenant_family_members
type FamilyRepository struct {
	db *database.DB
}

// NewFamilyRepository creates a new family member repository
func NewFamilyRepository(db *database.DB) *FamilyRepository {
	return &FamilyRepository{db: db}
}

// ListByTenant lists a tenant's family members, oldest first
func (r *FamilyRepository) ListByTenant(ctx context.Context, tenantID string) ([]domain.FamilyMember, error) {
	var rows []familyRow
	query := `SELECT ` + familyColumns + ` FROM tenant_family_members WHERE tenant_id = $1 ORDER BY created_at`
	if err := r.db.SelectContext(ctx, &rows, query, tenantID); err != nil {
		return nil, err
	}

	members := make([]domain.FamilyMember, 0, len(rows))
	for _, row := range rows {
		members = append(members, row.toDomain())
	}
	return members, nil
}

// Create adds a family member to a tenant
func (r *FamilyRepository) Create(ctx context.Context, tenantID string, in domain.FamilyMemberInput) (*domain.FamilyMember, error) {
	var row familyRow
	query := `
		INSERT INTO tenant_family_members (tenant_id, full_name, relationship, phone, is_primary, date_of_birth)
		VALUES ($1, $2, NULLIF($3, ''), NULLIF($4, ''), $5, $6)
		RETURNING ` + familyColumns
	err := r.db.GetContext(ctx, &row, query,
		tenantID, in.Name, in.Relation, in.MobileNumber, in.IsEmergencyContact, in.DateOfBirth,
	)
	if err != nil {
		return nil, err
	}
	m := row.toDomain()
	return &m, nil
}

// Update replaces a family member's fields
func (r *FamilyRepository) Update(ctx context.Context, id string, in domain.FamilyMemberInput) (*domain.FamilyMember, error) {
	var row familyRow
	query := `
		UPDATE tenant_family_members SET
			full_name = $2,
			relationship = NULLIF($3, ''),
			phone = NULLIF($4, ''),
			is_primary = $5,
			date_of_birth = $6
		WHERE id = $1
		RETURNING ` + familyColumns
	err := r.db.GetContext(ctx, &row, query,
		id, in.Name, in.Relation, in.MobileNumber, in.IsEmergencyContact, in.DateOfBirth,
	)
	if err != nil {
		if isNoRows(err) {
			return nil, errors.NotFound("family member")
		}
		return nil, err
	}
	m := row.toDomain()
	return &m, nil
}

// Delete removes a family member
func (r *FamilyRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM tenant_family_members WHERE id = $1`, id)
	if err != nil {
		return err
	}
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return errors.NotFound("family member")
	}
	return nil
}

// TenantOf returns the id of the tenant a family member belongs to
func (r *FamilyRepository) TenantOf(ctx context.Context, id string) (string, error) {
	var tenantID string
	if err := r.db.GetContext(ctx, &tenantID, `SELECT tenant_id FROM tenant_family_members WHERE id = $1`, id); err != nil {
		if isNoRows(err) {
			return "", errors.NotFound("family member")
		}
		return "", err
	}
	return tenantID, nil
}
