// Package guard holds the checks every caller-supplied name must pass before
// it is used against the datastore, and the only code that builds DDL text.
//
// All functions are pure.
package guard

import (
	"regexp"
	"strings"

	"github.com/tenantdesk/tenantdesk-backend/pkg/errors"
)

var (
	identifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)
	enumValuePattern  = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_ ]*$`)
)

// PostgreSQL truncates identifiers beyond this length
const maxIdentifierLength = 63

// columnTypes maps accepted spellings to the SQL type that is emitted
var columnTypes = map[string]string{
	"text":                     "text",
	"integer":                  "integer",
	"bigint":                   "bigint",
	"numeric":                  "numeric",
	"boolean":                  "boolean",
	"uuid":                     "uuid",
	"date":                     "date",
	"timestamptz":              "timestamptz",
	"timestamp with time zone": "timestamptz",
	"json":                     "json",
	"jsonb":                    "jsonb",
}

// ProtectedColumns can never be dropped, whatever the table or caller
var ProtectedColumns = []string{"id", "created_at", "updated_at", "organization_id", "user_id"}

// SanitizeIdentifier accepts column, table and enum type names
func SanitizeIdentifier(name string) error {
	if len(name) > maxIdentifierLength || !identifierPattern.MatchString(name) {
		return errors.InvalidIdentifier(name)
	}
	return nil
}

// ValidateColumnType returns the SQL type for an accepted column type
func ValidateColumnType(columnType string) (string, error) {
	sqlType, ok := columnTypes[strings.ToLower(strings.TrimSpace(columnType))]
	if !ok {
		return "", errors.InvalidColumnType(columnType)
	}
	return sqlType, nil
}

// ValidateEnumValue accepts enum labels: letters, digits, underscore and
// space, starting with a letter or underscore
func ValidateEnumValue(value string) error {
	if len(value) > maxIdentifierLength || !enumValuePattern.MatchString(value) {
		return errors.InvalidEnumValue(value)
	}
	return nil
}

// CheckDropColumn validates a column name for removal
func CheckDropColumn(name string) error {
	if err := SanitizeIdentifier(name); err != nil {
		return err
	}
	if IsProtectedColumn(name) {
		return errors.ProtectedColumn(name)
	}
	return nil
}

// IsProtectedColumn reports whether name is in ProtectedColumns
func IsProtectedColumn(name string) bool {
	for _, c := range ProtectedColumns {
		if c == name {
			return true
		}
	}
	return false
}
