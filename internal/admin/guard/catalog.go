package guard

import (
	"fmt"

	"github.com/tenantdesk/tenantdesk-backend/pkg/errors"
)

// TableSpec describes how the generic engine treats one allow-listed table
type TableSpec struct {
	Name string
	// OrderColumn is the default sort key, always applied descending
	OrderColumn string
	// SearchColumns are compared for equality against the search term
	SearchColumns []string
	// ReadOnly tables can be read and exported but never mutated
	ReadOnly bool
}

// knownTables carries the search columns of the tables shipped in migrations.
// Tables that are allow-listed but not described here search on id only.
var knownTables = map[string][]string{
	"profiles":              {"id", "user_id", "full_name", "email"},
	"organizations":         {"id", "name", "slug"},
	"properties":            {"id", "name", "city"},
	"units":                 {"id", "unit_number", "status"},
	"tenants":               {"id", "full_name", "email", "phone", "status"},
	"leases":                {"id", "tenant_id", "status"},
	"invoices":              {"id", "tenant_id", "status"},
	"payments":              {"id", "invoice_id", "method", "reference"},
	"maintenance_tickets":   {"id", "title", "status", "priority"},
	"complaints":            {"id", "subject", "status"},
	"expenses":              {"id", "category"},
	"activity_log":          {"id", "user_id", "action", "entity_type", "entity_id"},
	"user_roles":            {"id", "user_id", "role"},
	"tenant_documents":      {"id", "tenant_id", "document_type", "file_name"},
	"tenant_family_members": {"id", "tenant_id", "full_name", "relationship"},
	"meter_readings":        {"id", "tenant_id", "meter_type"},
	"tenant_room_details":   {"id", "tenant_id", "room_number"},
	"notifications":         {"id", "user_id", "title"},
}

// Catalog is the allow-list of tables. It is built once at startup and never
// modified, so it is safe for concurrent use.
type Catalog struct {
	order  []string
	tables map[string]TableSpec
}

// NewCatalog builds the allow-list. Every name must itself be a valid
// identifier. Tables named in readOnly keep read and export access only;
// the audit table is always passed here.
func NewCatalog(names []string, readOnly ...string) (*Catalog, error) {
	c := &Catalog{tables: make(map[string]TableSpec, len(names))}

	for _, name := range names {
		if err := SanitizeIdentifier(name); err != nil {
			return nil, fmt.Errorf("allowed table %q: %w", name, err)
		}
		if _, dup := c.tables[name]; dup {
			continue
		}

		search, ok := knownTables[name]
		if !ok {
			search = []string{"id"}
		}
		c.tables[name] = TableSpec{
			Name:          name,
			OrderColumn:   "created_at",
			SearchColumns: search,
		}
		c.order = append(c.order, name)
	}

	for _, name := range readOnly {
		spec, ok := c.tables[name]
		if !ok {
			continue
		}
		spec.ReadOnly = true
		c.tables[name] = spec
	}

	return c, nil
}

// ValidateTable is an exact, case-sensitive membership test
func (c *Catalog) ValidateTable(name string) error {
	if _, ok := c.tables[name]; !ok {
		return errors.TableNotAllowed(name)
	}
	return nil
}

// ValidateWritable is ValidateTable plus a check that the table accepts
// row and column changes
func (c *Catalog) ValidateWritable(name string) error {
	spec, ok := c.tables[name]
	if !ok {
		return errors.TableNotAllowed(name)
	}
	if spec.ReadOnly {
		return errors.TableReadOnly(name)
	}
	return nil
}

// Spec returns the description of an allowed table
func (c *Catalog) Spec(name string) (TableSpec, error) {
	spec, ok := c.tables[name]
	if !ok {
		return TableSpec{}, errors.TableNotAllowed(name)
	}
	return spec, nil
}

// Tables returns the allowed table names in configuration order
func (c *Catalog) Tables() []string {
	out := make([]string, len(c.order))
	copy(out, c.order)
	return out
}
