package service

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/tenantdesk/tenantdesk-backend/internal/admin/domain"
	"github.com/tenantdesk/tenantdesk-backend/internal/admin/guard"
	"github.com/tenantdesk/tenantdesk-backend/pkg/config"
	"github.com/tenantdesk/tenantdesk-backend/pkg/database"
	"github.com/tenantdesk/tenantdesk-backend/pkg/errors"
	"github.com/tenantdesk/tenantdesk-backend/pkg/logger"
	"github.com/tenantdesk/tenantdesk-backend/pkg/messaging"
	"github.com/tenantdesk/tenantdesk-backend/pkg/permissions"
)

// EngineConfig holds the tunables of the table engine
type EngineConfig struct {
	DefaultPageSize int
	MaxPageSize     int
	ExportRowLimit  int
	AuditMode       string
}

// EngineConfigFrom reads the engine settings from the admin config section
func EngineConfigFrom(cfg config.AdminConfig) EngineConfig {
	return EngineConfig{
		DefaultPageSize: cfg.DefaultPageSize,
		MaxPageSize:     cfg.MaxPageSize,
		ExportRowLimit:  cfg.ExportRowLimit,
		AuditMode:       cfg.AuditMode,
	}
}

// DataRequest are the get_table_data parameters
type DataRequest struct {
	Table    string
	Page     int
	PageSize int
	Search   string
	OrderBy  string
	OrderDir string
}

// AddColumnRequest are the add_column parameters
type AddColumnRequest struct {
	Table        string
	Column       string
	Type         string
	Nullable     bool
	DefaultValue any
}

// Engine implements the generic table operations. Every operation validates
// its table and identifiers before touching the datastore.
type Engine struct {
	catalog   *guard.Catalog
	tables    TableStore
	tx        Transactor
	audit     *Recorder
	publisher messaging.EventPublisher
	cfg       EngineConfig
	logger    *logger.Logger
	now       func() time.Time
}

// NewEngine creates a new table engine
func NewEngine(
	catalog *guard.Catalog,
	tables TableStore,
	tx Transactor,
	audit *Recorder,
	publisher messaging.EventPublisher,
	cfg EngineConfig,
	log *logger.Logger,
) *Engine {
	if cfg.DefaultPageSize <= 0 {
		cfg.DefaultPageSize = 50
	}
	if cfg.MaxPageSize <= 0 {
		cfg.MaxPageSize = 1000
	}
	if cfg.ExportRowLimit <= 0 {
		cfg.ExportRowLimit = 10000
	}
	if cfg.AuditMode == "" {
		cfg.AuditMode = config.AuditModeTransactional
	}
	if publisher == nil {
		publisher = messaging.NopPublisher{}
	}

	return &Engine{
		catalog:   catalog,
		tables:    tables,
		tx:        tx,
		audit:     audit,
		publisher: publisher,
		cfg:       cfg,
		logger:    log.WithComponent("table_engine"),
		now:       time.Now,
	}
}

// ============================================================================
// READ OPERATIONS
// ============================================================================

// ListTables returns every allowed table with its row count
func (e *Engine) ListTables(ctx context.Context) (*domain.TableList, error) {
	counts, _ := e.countAll(ctx)

	list := &domain.TableList{Tables: make([]domain.TableSummary, 0, len(counts))}
	for _, name := range e.catalog.Tables() {
		list.Tables = append(list.Tables, domain.TableSummary{Name: name, RowCount: counts[name]})
	}
	return list, nil
}

// GetSchema returns column metadata, inferring it from a sampled row when
// introspection fails or reports nothing
func (e *Engine) GetSchema(ctx context.Context, table string) (*domain.TableSchema, error) {
	if err := e.catalog.ValidateTable(table); err != nil {
		return nil, err
	}

	cols, err := e.tables.Columns(ctx, table)
	if err == nil && len(cols) > 0 {
		return &domain.TableSchema{Table: table, Columns: cols}, nil
	}
	if err != nil {
		e.logger.Warn().Err(err).Str("table", table).Msg("column introspection failed, inferring from sample row")
	}

	row, err := e.tables.SampleRow(ctx, table)
	if err != nil {
		e.logger.Warn().Err(err).Str("table", table).Msg("sample row unavailable")
		row = nil
	}

	return &domain.TableSchema{Table: table, Columns: inferColumns(row)}, nil
}

// GetData returns one page of rows. An unusable order column degrades to
// unordered results.
func (e *Engine) GetData(ctx context.Context, req DataRequest) (*domain.Page[domain.Row], error) {
	spec, err := e.catalog.Spec(req.Table)
	if err != nil {
		return nil, err
	}

	page, size := e.paging(req.Page, req.PageSize)
	q := domain.SelectQuery{
		Table:         spec.Name,
		SearchColumns: spec.SearchColumns,
		Search:        strings.TrimSpace(req.Search),
		OrderColumn:   spec.OrderColumn,
		Descending:    !strings.EqualFold(req.OrderDir, "asc"),
		Limit:         size,
		Offset:        (page - 1) * size,
	}
	if req.OrderBy != "" {
		if guard.SanitizeIdentifier(req.OrderBy) == nil {
			q.OrderColumn = req.OrderBy
		} else {
			q.OrderColumn = ""
		}
	}

	set, err := e.tables.Select(ctx, q)
	if err != nil && database.IsUndefinedColumn(err) && q.OrderColumn != "" {
		e.logger.Debug().Str("table", q.Table).Str("order_by", q.OrderColumn).Msg("order column missing, retrying unordered")
		q.OrderColumn = ""
		set, err = e.tables.Select(ctx, q)
	}
	if err != nil && database.IsUndefinedColumn(err) && q.Search != "" {
		e.logger.Debug().Str("table", q.Table).Msg("search column missing, searching on id")
		q.SearchColumns = []string{"id"}
		set, err = e.tables.Select(ctx, q)
	}
	if err != nil {
		return nil, e.storeErr(err, "select", q.Table)
	}

	total, err := e.tables.Count(ctx, q)
	if err != nil {
		return nil, e.storeErr(err, "count", q.Table)
	}

	return &domain.Page[domain.Row]{Rows: set.Rows, Total: total, Page: page, PageSize: size}, nil
}

// ListEnums returns the enumerated types, falling back to the role enum when
// the catalog cannot be read
func (e *Engine) ListEnums(ctx context.Context) (*domain.EnumList, error) {
	enums, err := e.tables.Enums(ctx)
	if err != nil {
		e.logger.Warn().Err(err).Msg("enum introspection failed, returning role enum")
		enums = []domain.EnumInfo{{Name: permissions.RoleEnumName, Values: permissions.RoleValues()}}
	}
	return &domain.EnumList{Enums: enums}, nil
}

// GetAuditLog returns audit entries newest first
func (e *Engine) GetAuditLog(ctx context.Context, page, pageSize int, entityType *string) (*domain.Page[domain.AuditEntry], error) {
	page, size := e.paging(page, pageSize)
	if entityType != nil && *entityType == "" {
		entityType = nil
	}

	entries, total, err := e.audit.List(ctx, domain.AuditQuery{
		EntityType: entityType,
		Limit:      size,
		Offset:     (page - 1) * size,
	})
	if err != nil {
		return nil, e.storeErr(err, "audit_log", "")
	}
	if entries == nil {
		entries = []domain.AuditEntry{}
	}

	return &domain.Page[domain.AuditEntry]{Rows: entries, Total: total, Page: page, PageSize: size}, nil
}

// DatabaseHealth sums the row counts of all allowed tables
func (e *Engine) DatabaseHealth(ctx context.Context) (*domain.HealthReport, error) {
	counts, failed := e.countAll(ctx)

	var total int64
	for _, n := range counts {
		total += n
	}

	status := "healthy"
	if failed > 0 {
		status = "degraded"
	}

	return &domain.HealthReport{
		TotalRecords: total,
		TotalTables:  len(counts),
		TableCounts:  counts,
		Status:       status,
		Timestamp:    e.now().UTC().Format(time.RFC3339),
	}, nil
}

// ExportTable returns up to the export limit of rows as CSV text or as rows
func (e *Engine) ExportTable(ctx context.Context, table, format string) (*domain.Export, error) {
	if err := e.catalog.ValidateTable(table); err != nil {
		return nil, err
	}
	if format == "" {
		format = domain.FormatJSON
	}
	if format != domain.FormatJSON && format != domain.FormatCSV {
		return nil, errors.BadRequest(fmt.Sprintf("Unsupported export format: %s", format))
	}

	set, err := e.tables.Select(ctx, domain.SelectQuery{Table: table, Limit: e.cfg.ExportRowLimit})
	if err != nil {
		return nil, e.storeErr(err, "export", table)
	}

	if format == domain.FormatJSON {
		return &domain.Export{Data: set.Rows, Format: format}, nil
	}

	data, err := toCSV(set)
	if err != nil {
		return nil, errors.Internal("failed to encode export")
	}
	return &domain.Export{Data: data, Format: format}, nil
}

// ============================================================================
// ROW MUTATIONS
// ============================================================================

// InsertRow inserts a row and audits the stored snapshot
func (e *Engine) InsertRow(ctx context.Context, actorID, table string, row domain.Row) (*domain.RowResult, error) {
	if err := e.catalog.ValidateWritable(table); err != nil {
		return nil, err
	}
	if err := sanitizeKeys(row); err != nil {
		return nil, err
	}

	var inserted domain.Row
	err := e.mutate(ctx, actorID, domain.ActionRowInserted, table, false, func(ctx context.Context, entry *domain.AuditEntry) error {
		var err error
		inserted, err = e.tables.Insert(ctx, table, row)
		if err != nil {
			return e.storeErr(err, "insert", table)
		}
		entry.EntityID = rowID(inserted)
		entry.Details = map[string]any{"row": inserted}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &domain.RowResult{Row: inserted}, nil
}

// UpdateRow applies a patch by primary key and audits the patch
func (e *Engine) UpdateRow(ctx context.Context, actorID, table, id string, patch domain.Row) (*domain.RowResult, error) {
	if err := e.catalog.ValidateWritable(table); err != nil {
		return nil, err
	}
	if id == "" {
		return nil, errors.BadRequest("Row id is required")
	}
	if len(patch) == 0 {
		return nil, errors.BadRequest("No fields to update")
	}
	if err := sanitizeKeys(patch); err != nil {
		return nil, err
	}

	var updated domain.Row
	err := e.mutate(ctx, actorID, domain.ActionRowUpdated, table, false, func(ctx context.Context, entry *domain.AuditEntry) error {
		var err error
		updated, err = e.tables.Update(ctx, table, id, patch)
		if err != nil {
			return e.storeErr(err, "update", table)
		}
		entry.EntityID = &id
		entry.Details = map[string]any{"patch": patch}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &domain.RowResult{Row: updated}, nil
}

// DeleteRow deletes by primary key. Deleting a missing row succeeds.
func (e *Engine) DeleteRow(ctx context.Context, actorID, table, id string) (*domain.MutationResult, error) {
	if err := e.catalog.ValidateWritable(table); err != nil {
		return nil, err
	}
	if id == "" {
		return nil, errors.BadRequest("Row id is required")
	}

	err := e.mutate(ctx, actorID, domain.ActionRowDeleted, table, false, func(ctx context.Context, entry *domain.AuditEntry) error {
		n, err := e.tables.Delete(ctx, table, id)
		if err != nil {
			return e.storeErr(err, "delete", table)
		}
		entry.EntityID = &id
		entry.Details = map[string]any{"rows_affected": n}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &domain.MutationResult{Success: true, Message: "Row deleted successfully"}, nil
}

// ============================================================================
// SCHEMA CHANGES
// ============================================================================

// AddColumn adds a column to an allowed table
func (e *Engine) AddColumn(ctx context.Context, actorID string, req AddColumnRequest) (*domain.MutationResult, error) {
	if err := e.catalog.ValidateWritable(req.Table); err != nil {
		return nil, err
	}
	if err := guard.SanitizeIdentifier(req.Column); err != nil {
		return nil, err
	}
	columnType, err := guard.ValidateColumnType(req.Type)
	if err != nil {
		return nil, err
	}
	stmt, err := guard.AddColumnStatement(req.Table, req.Column, columnType, req.Nullable, req.DefaultValue)
	if err != nil {
		return nil, err
	}

	err = e.mutate(ctx, actorID, domain.ActionColumnAdded, req.Table, false, func(ctx context.Context, entry *domain.AuditEntry) error {
		if err := e.tables.ExecDDL(ctx, stmt); err != nil {
			e.logger.Error().Err(err).Str("table", req.Table).Str("column", req.Column).Msg("add column failed")
			return errors.ColumnAddFailed(err)
		}
		entry.Details = map[string]any{
			"column_name":   req.Column,
			"column_type":   columnType,
			"nullable":      req.Nullable,
			"default_value": req.DefaultValue,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.schemaChanged(ctx, actorID, "add_column", req.Table, req.Column+" "+columnType)
	return &domain.MutationResult{
		Success: true,
		Message: fmt.Sprintf("Column %s added to %s", req.Column, req.Table),
	}, nil
}

// DropColumn drops a non-protected column from an allowed table
func (e *Engine) DropColumn(ctx context.Context, actorID, table, column string) (*domain.MutationResult, error) {
	if err := e.catalog.ValidateWritable(table); err != nil {
		return nil, err
	}
	if err := guard.CheckDropColumn(column); err != nil {
		return nil, err
	}
	stmt, err := guard.DropColumnStatement(table, column)
	if err != nil {
		return nil, err
	}

	err = e.mutate(ctx, actorID, domain.ActionColumnDeleted, table, false, func(ctx context.Context, entry *domain.AuditEntry) error {
		if err := e.tables.ExecDDL(ctx, stmt); err != nil {
			return e.storeErr(err, "drop_column", table)
		}
		entry.Details = map[string]any{"column_name": column}
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.schemaChanged(ctx, actorID, "drop_column", table, column)
	return &domain.MutationResult{
		Success: true,
		Message: fmt.Sprintf("Column %s removed from %s", column, table),
	}, nil
}

// AddEnumValue adds a label to an enum type if it is not already present.
// The audit entry is always written after the change.
func (e *Engine) AddEnumValue(ctx context.Context, actorID, enumName, value string) (*domain.MutationResult, error) {
	if err := guard.SanitizeIdentifier(enumName); err != nil {
		return nil, err
	}
	if err := guard.ValidateEnumValue(value); err != nil {
		return nil, err
	}
	stmt, err := guard.AddEnumValueStatement(enumName, value)
	if err != nil {
		return nil, err
	}

	err = e.mutate(ctx, actorID, domain.ActionEnumValueAdded, enumName, true, func(ctx context.Context, entry *domain.AuditEntry) error {
		if err := e.tables.ExecDDL(ctx, stmt); err != nil {
			return e.storeErr(err, "add_enum_value", enumName)
		}
		entry.Details = map[string]any{"value": value}
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.schemaChanged(ctx, actorID, "add_enum_value", enumName, value)
	return &domain.MutationResult{
		Success: true,
		Message: fmt.Sprintf("Value %s added to enum %s", value, enumName),
	}, nil
}

// ============================================================================
// HELPERS
// ============================================================================

// mutate runs op and writes its audit entry. In transactional mode both share
// one transaction and an audit failure rolls op back. In best-effort mode, or
// when bestEffort is set, op commits first and audit failures are only
// reported.
func (e *Engine) mutate(ctx context.Context, actorID, action, entityType string, bestEffort bool, op func(context.Context, *domain.AuditEntry) error) error {
	entry := e.audit.Prepare(ctx, actorID, action, entityType, nil, nil)

	if bestEffort || e.cfg.AuditMode == config.AuditModeBestEffort {
		if err := op(ctx, entry); err != nil {
			return err
		}
		if err := e.audit.Write(ctx, entry); err != nil {
			e.audit.Failed(ctx, entry, err)
			return nil
		}
		e.audit.Announce(ctx, entry)
		return nil
	}

	auditFailed := false
	err := e.tx.WithTx(ctx, func(ctx context.Context) error {
		if err := op(ctx, entry); err != nil {
			return err
		}
		if err := e.audit.Write(ctx, entry); err != nil {
			auditFailed = true
			return err
		}
		return nil
	})
	if err != nil {
		if auditFailed {
			e.audit.Failed(ctx, entry, err)
			return errors.Datastore(err, "audit write failed, change was rolled back")
		}
		return e.storeErr(err, action, entityType)
	}

	e.audit.Announce(ctx, entry)
	return nil
}

// storeErr logs the full datastore error and returns the sanitized one.
// Application errors pass through untouched.
func (e *Engine) storeErr(err error, op, table string) error {
	var appErr *errors.AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	e.logger.Error().Err(err).Str("op", op).Str("table", table).Msg("datastore operation failed")
	return database.MapPQError(err)
}

func (e *Engine) paging(page, pageSize int) (int, int) {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = e.cfg.DefaultPageSize
	}
	if pageSize > e.cfg.MaxPageSize {
		pageSize = e.cfg.MaxPageSize
	}
	return page, pageSize
}

// countAll counts every allowed table. Failed counts are reported as 0.
func (e *Engine) countAll(ctx context.Context) (map[string]int64, int) {
	tables := e.catalog.Tables()
	counts := make(map[string]int64, len(tables))
	failed := 0

	for _, name := range tables {
		n, err := e.tables.CountRows(ctx, name)
		if err != nil {
			e.logger.Warn().Err(err).Str("table", name).Msg("row count failed")
			failed++
		}
		counts[name] = n
	}
	return counts, failed
}

func (e *Engine) schemaChanged(ctx context.Context, actorID, operation, object, detail string) {
	err := e.publisher.Publish(ctx, messaging.EventSchemaChanged, messaging.SchemaChangedEvent{
		UserID:    actorID,
		Operation: operation,
		Object:    object,
		Detail:    detail,
	})
	if err != nil {
		e.logger.Warn().Err(err).Str("operation", operation).Msg("failed to publish schema change")
	}
}

func sanitizeKeys(row domain.Row) error {
	for k := range row {
		if err := guard.SanitizeIdentifier(k); err != nil {
			return err
		}
	}
	return nil
}

func rowID(row domain.Row) *string {
	v, ok := row["id"]
	if !ok || v == nil {
		return nil
	}
	id := fmt.Sprint(v)
	return &id
}

// inferColumns guesses column types from the Go values of one row
func inferColumns(row domain.Row) []domain.ColumnInfo {
	names := make([]string, 0, len(row))
	for k := range row {
		names = append(names, k)
	}
	sort.Strings(names)

	cols := make([]domain.ColumnInfo, 0, len(names))
	for _, name := range names {
		cols = append(cols, domain.ColumnInfo{Name: name, Type: inferType(row[name]), Nullable: true})
	}
	return cols
}

func inferType(v any) string {
	switch v.(type) {
	case string:
		return "text"
	case bool:
		return "boolean"
	case int, int32, int64:
		return "bigint"
	case float32, float64, json.Number:
		return "numeric"
	case json.RawMessage:
		return "jsonb"
	case time.Time:
		return "timestamptz"
	default:
		return "unknown"
	}
}

// toCSV renders a header line of column names followed by one line per row,
// each field JSON-encoded
func toCSV(set *domain.RowSet) (string, error) {
	columns := set.Columns
	if len(columns) == 0 && len(set.Rows) > 0 {
		for k := range set.Rows[0] {
			columns = append(columns, k)
		}
		sort.Strings(columns)
	}
	if len(columns) == 0 {
		return "", nil
	}

	lines := make([]string, 0, len(set.Rows)+1)
	lines = append(lines, strings.Join(columns, ","))
	for _, row := range set.Rows {
		fields := make([]string, len(columns))
		for i, c := range columns {
			b, err := json.Marshal(row[c])
			if err != nil {
				return "", err
			}
			fields[i] = string(b)
		}
		lines = append(lines, strings.Join(fields, ","))
	}
	return strings.Join(lines, "\n"), nil
}
