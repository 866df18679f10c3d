package service

import (
	"context"

	"github.com/tenantdesk/tenantdesk-backend/internal/admin/domain"
)

// TableStore is the datastore surface used by the engine
type TableStore interface {
	CountRows(ctx context.Context, table string) (int64, error)
	Columns(ctx context.Context, table string) ([]domain.ColumnInfo, error)
	SampleRow(ctx context.Context, table string) (domain.Row, error)
	Select(ctx context.Context, q domain.SelectQuery) (*domain.RowSet, error)
	Count(ctx context.Context, q domain.SelectQuery) (int64, error)
	Enums(ctx context.Context) ([]domain.EnumInfo, error)
	Insert(ctx context.Context, table string, row domain.Row) (domain.Row, error)
	Update(ctx context.Context, table, id string, patch domain.Row) (domain.Row, error)
	Delete(ctx context.Context, table, id string) (int64, error)
	ExecDDL(ctx context.Context, stmt string) error
}

// AuditStore persists and reads audit entries
type AuditStore interface {
	Insert(ctx context.Context, entry *domain.AuditEntry) error
	OrganizationOf(ctx context.Context, userID string) (string, bool, error)
	List(ctx context.Context, q domain.AuditQuery) ([]domain.AuditEntry, int64, error)
}

// RoleStore looks up role assignments
type RoleStore interface {
	RolesOf(ctx context.Context, userID string) ([]string, error)
}

// Transactor runs fn in a transaction carried on the context
type Transactor interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
}
