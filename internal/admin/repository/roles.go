package repository

import (
	"context"

	"github.com/tenantdesk/tenantdesk-backend/pkg/database"
)

// RoleRepository reads role assignments
type RoleRepository struct {
	db *database.DB
}

// NewRoleRepository creates a new role repository
func NewRoleRepository(db *database.DB) *RoleRepository {
	return &RoleRepository{db: db}
}

// RolesOf returns every role assigned to the user
func (r *RoleRepository) RolesOf(ctx context.Context, userID string) ([]string, error) {
	var roles []string
	query := `SELECT role::text FROM user_roles WHERE user_id = $1`
	if err := r.db.Conn(ctx).SelectContext(ctx, &roles, query, userID); err != nil {
		return nil, err
	}
	return roles, nil
}
