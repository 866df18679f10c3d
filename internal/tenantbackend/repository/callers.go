package repository

import (
	"context"
	"database/sql"

	"github.com/lib/pq"
	"github.com/tenantdesk/tenantdesk-backend/pkg/database"
	"github.com/tenantdesk/tenantdesk-backend/pkg/permissions"
)

// CallerRepository reads what the service needs to know about a caller:
// the organization of their profile and their role assignments
type CallerRepository struct {
	db *database.DB
}

// NewCallerRepository creates a new caller repository
func NewCallerRepository(db *database.DB) *CallerRepository {
	return &CallerRepository{db: db}
}

// Subject loads the caller. A user without a profile or roles is returned
// with empty fields rather than an error.
func (r *CallerRepository) Subject(ctx context.Context, userID string) (*permissions.Subject, error) {
	var row struct {
		OrganizationID sql.NullString `db:"organization_id"`
		Roles          pq.StringArray `db:"roles"`
	}
	query := `
		SELECT p.organization_id::text AS organization_id,
		       ARRAY(SELECT r.role::text FROM user_roles r WHERE r.user_id = $1::uuid) AS roles
		FROM (SELECT $1::uuid AS user_id) caller
		LEFT JOIN profiles p ON p.user_id = caller.user_id
	`
	if err := r.db.GetContext(ctx, &row, query, userID); err != nil {
		return nil, err
	}
	return &permissions.Subject{
		UserID:         userID,
		OrganizationID: row.OrganizationID.String,
		Roles:          []string(row.Roles),
	}, nil
}
