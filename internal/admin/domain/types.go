// Package domain holds the types exchanged by the database-management engine.
//
// Row is the only dynamically shaped value and is used at the I/O boundary
// (request bodies, result sets). Everything that drives behaviour is typed.
package domain

import (
	"time"
)

// Audit actions
const (
	ActionRowInserted    = "ROW_INSERTED"
	ActionRowUpdated     = "ROW_UPDATED"
	ActionRowDeleted     = "ROW_DELETED"
	ActionColumnAdded    = "COLUMN_ADDED"
	ActionColumnDeleted  = "COLUMN_DELETED"
	ActionEnumValueAdded = "ENUM_VALUE_ADDED"
)

// Row is one table row keyed by column name
type Row map[string]any

// RowSet keeps the column order reported by the datastore
type RowSet struct {
	Columns []string
	Rows    []Row
}

// SelectQuery describes a paginated read of one allow-listed table. Table
// and column names must already have passed the guard checks.
type SelectQuery struct {
	Table         string
	SearchColumns []string
	Search        string
	OrderColumn   string
	Descending    bool
	Limit         int
	Offset        int
}

// TableSummary is one entry of list_tables
type TableSummary struct {
	Name     string `json:"name"`
	RowCount int64  `json:"rowCount"`
}

// TableList is the list_tables result
type TableList struct {
	Tables []TableSummary `json:"tables"`
}

// ColumnInfo describes one column
type ColumnInfo struct {
	Name     string  `json:"name" db:"column_name"`
	Type     string  `json:"type" db:"data_type"`
	Nullable bool    `json:"nullable" db:"is_nullable"`
	Default  *string `json:"default" db:"column_default"`
}

// TableSchema is the get_table_schema result
type TableSchema struct {
	Table   string       `json:"table"`
	Columns []ColumnInfo `json:"columns"`
}

// Page is a paginated result
type Page[T any] struct {
	Rows     []T   `json:"rows"`
	Total    int64 `json:"total"`
	Page     int   `json:"page"`
	PageSize int   `json:"pageSize"`
}

// RowResult wraps a single row returned by insert_row / update_row
type RowResult struct {
	Row Row `json:"row"`
}

// MutationResult is returned by operations that produce no data
type MutationResult struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// EnumInfo describes one enumerated type
type EnumInfo struct {
	Name   string   `json:"name"`
	Values []string `json:"values"`
}

// EnumList is the list_enums result
type EnumList struct {
	Enums []EnumInfo `json:"enums"`
}

// HealthReport is the database_health result
type HealthReport struct {
	TotalRecords int64            `json:"totalRecords"`
	TotalTables  int              `json:"totalTables"`
	TableCounts  map[string]int64 `json:"tableCounts"`
	Status       string           `json:"status"`
	Timestamp    string           `json:"timestamp"`
}

// Export is the export_table result. Data is a CSV string or a row array.
type Export struct {
	Data   any    `json:"data"`
	Format string `json:"format"`
}

// Export formats
const (
	FormatCSV  = "csv"
	FormatJSON = "json"
)

// AuditEntry is one append-only record of a mutating operation
type AuditEntry struct {
	ID             int64          `json:"id" db:"id"`
	UserID         string         `json:"user_id" db:"user_id"`
	OrganizationID string         `json:"organization_id" db:"organization_id"`
	Action         string         `json:"action" db:"action"`
	EntityType     string         `json:"entity_type" db:"entity_type"`
	EntityID       *string        `json:"entity_id" db:"entity_id"`
	Details        map[string]any `json:"details" db:"-"`
	CreatedAt      time.Time      `json:"created_at" db:"created_at"`
}

// AuditQuery filters get_audit_log
type AuditQuery struct {
	EntityType *string
	Limit      int
	Offset     int
}
