package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/lib/pq"
	"github.com/tenantdesk/tenantdesk-backend/internal/admin/domain"
	"github.com/tenantdesk/tenantdesk-backend/pkg/database"
)

// AuditRepository appends to and reads from the activity log table
type AuditRepository struct {
	db    *database.DB
	table string
}

// NewAuditRepository creates a new audit repository writing to table
func NewAuditRepository(db *database.DB, table string) *AuditRepository {
	if table == "" {
		table = "activity_log"
	}
	return &AuditRepository{db: db, table: table}
}

type auditRow struct {
	ID             int64     `db:"id"`
	UserID         string    `db:"user_id"`
	OrganizationID string    `db:"organization_id"`
	Action         string    `db:"action"`
	EntityType     string    `db:"entity_type"`
	EntityID       *string   `db:"entity_id"`
	Details        []byte    `db:"details"`
	CreatedAt      time.Time `db:"created_at"`
}

func (r auditRow) toDomain() domain.AuditEntry {
	entry := domain.AuditEntry{
		ID:             r.ID,
		UserID:         r.UserID,
		OrganizationID: r.OrganizationID,
		Action:         r.Action,
		EntityType:     r.EntityType,
		EntityID:       r.EntityID,
		CreatedAt:      r.CreatedAt,
	}
	if len(r.Details) > 0 {
		_ = json.Unmarshal(r.Details, &entry.Details)
	}
	if entry.Details == nil {
		entry.Details = map[string]any{}
	}
	return entry
}

// Insert appends entry and fills in its generated id and timestamp.
// It joins the transaction carried by ctx, if any.
func (r *AuditRepository) Insert(ctx context.Context, entry *domain.AuditEntry) error {
	details := entry.Details
	if details == nil {
		details = map[string]any{}
	}
	payload, err := json.Marshal(details)
	if err != nil {
		return fmt.Errorf("failed to encode audit details: %w", err)
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (user_id, organization_id, action, entity_type, entity_id, details)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at
	`, pq.QuoteIdentifier(r.table))

	return r.db.Conn(ctx).QueryRowxContext(ctx, query,
		entry.UserID,
		entry.OrganizationID,
		entry.Action,
		entry.EntityType,
		entry.EntityID,
		payload,
	).Scan(&entry.ID, &entry.CreatedAt)
}

// OrganizationOf returns the organisation of a user's profile. found is
// false when the user has no profile or the profile has no organisation.
func (r *AuditRepository) OrganizationOf(ctx context.Context, userID string) (orgID string, found bool, err error) {
	query := `
		SELECT organization_id::text
		FROM profiles
		WHERE user_id = $1 AND organization_id IS NOT NULL
		LIMIT 1
	`

	err = r.db.Conn(ctx).GetContext(ctx, &orgID, query, userID)
	if IsNoRows(err) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return orgID, true, nil
}

// List returns audit entries newest first, with the total matching count
func (r *AuditRepository) List(ctx context.Context, q domain.AuditQuery) ([]domain.AuditEntry, int64, error) {
	where := ""
	args := []any{}
	if q.EntityType != nil {
		where = " WHERE entity_type = $1"
		args = append(args, *q.EntityType)
	}

	table := pq.QuoteIdentifier(r.table)

	var total int64
	if err := r.db.Conn(ctx).GetContext(ctx, &total, "SELECT COUNT(*) FROM "+table+where, args...); err != nil {
		return nil, 0, err
	}

	query := fmt.Sprintf(`
		SELECT id, user_id::text AS user_id, organization_id::text AS organization_id,
		       action, entity_type, entity_id, details, created_at
		FROM %s%s
		ORDER BY created_at DESC, id DESC
		LIMIT $%d OFFSET $%d
	`, table, where, len(args)+1, len(args)+2)
	args = append(args, q.Limit, q.Offset)

	var rows []auditRow
	if err := r.db.Conn(ctx).SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, 0, err
	}

	entries := make([]domain.AuditEntry, len(rows))
	for i, row := range rows {
		entries[i] = row.toDomain()
	}
	return entries, total, nil
}
