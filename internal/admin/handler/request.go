package handler

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/tenantdesk/tenantdesk-backend/internal/admin/domain"
)

// Dispatcher actions
const (
	ActionListTables     = "list_tables"
	ActionGetTableSchema = "get_table_schema"
	ActionGetTableData   = "get_table_data"
	ActionInsertRow      = "insert_row"
	ActionUpdateRow      = "update_row"
	ActionDeleteRow      = "delete_row"
	ActionAddColumn      = "add_column"
	ActionDeleteColumn   = "delete_column"
	ActionListEnums      = "list_enums"
	ActionAddEnumValue   = "add_enum_value"
	ActionGetAuditLog    = "get_audit_log"
	ActionDatabaseHealth = "database_health"
	ActionExportTable    = "export_table"
)

// Request is the single JSON body accepted by the dispatcher. Fields other
// than action are used by the actions that need them.
type Request struct {
	Action       string     `json:"action" validate:"required"`
	Table        string     `json:"table"`
	ID           FlexibleID `json:"id"`
	RowData      domain.Row `json:"rowData"`
	ColumnName   string     `json:"columnName"`
	ColumnType   string     `json:"columnType"`
	Nullable     *bool      `json:"nullable"`
	DefaultValue any        `json:"defaultValue"`
	EnumName     string     `json:"enumName"`
	Value        string     `json:"value"`
	Page         int        `json:"page" validate:"gte=0"`
	PageSize     int        `json:"pageSize" validate:"gte=0"`
	Search       string     `json:"search"`
	OrderBy      string     `json:"orderBy"`
	OrderDir     string     `json:"orderDir" validate:"omitempty,oneof=asc desc"`
	EntityType   *string    `json:"entityType"`
	Format       string     `json:"format" validate:"omitempty,oneof=csv json"`
}

// IsNullable reports the nullable flag; columns are nullable unless the
// caller says otherwise
func (r *Request) IsNullable() bool {
	return r.Nullable == nil || *r.Nullable
}

// FlexibleID accepts a row id given as a JSON string or number
type FlexibleID string

// UnmarshalJSON implements json.Unmarshaler
func (id *FlexibleID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = FlexibleID(s)
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("id must be a string or a number")
	}
	*id = FlexibleID(n.String())
	return nil
}
