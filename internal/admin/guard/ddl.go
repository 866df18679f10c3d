package guard

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	libinjection "github.com/corazawaf/libinjection-go"
	"github.com/lib/pq"
	"github.com/tenantdesk/tenantdesk-backend/pkg/errors"
)

// AddColumnStatement builds ALTER TABLE ... ADD COLUMN. A nil defaultValue
// adds no DEFAULT clause; NOT NULL is appended when nullable is false.
func AddColumnStatement(table, column, columnType string, nullable bool, defaultValue any) (string, error) {
	if err := SanitizeIdentifier(table); err != nil {
		return "", err
	}
	if err := SanitizeIdentifier(column); err != nil {
		return "", err
	}
	sqlType, err := ValidateColumnType(columnType)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "ALTER TABLE %s ADD COLUMN %s %s",
		pq.QuoteIdentifier(table), pq.QuoteIdentifier(column), sqlType)

	if defaultValue != nil {
		if s, ok := defaultValue.(string); ok {
			if err := screenLiteral(s); err != nil {
				return "", err
			}
		}
		lit, err := literal(defaultValue)
		if err != nil {
			return "", err
		}
		b.WriteString(" DEFAULT ")
		b.WriteString(lit)
	}

	if !nullable {
		b.WriteString(" NOT NULL")
	}

	return b.String(), nil
}

// DropColumnStatement builds ALTER TABLE ... DROP COLUMN for an unprotected column
func DropColumnStatement(table, column string) (string, error) {
	if err := SanitizeIdentifier(table); err != nil {
		return "", err
	}
	if err := CheckDropColumn(column); err != nil {
		return "", err
	}
	return fmt.Sprintf("ALTER TABLE %s DROP COLUMN %s",
		pq.QuoteIdentifier(table), pq.QuoteIdentifier(column)), nil
}

// AddEnumValueStatement builds the idempotent ALTER TYPE ... ADD VALUE
func AddEnumValueStatement(enumName, value string) (string, error) {
	if err := SanitizeIdentifier(enumName); err != nil {
		return "", err
	}
	if err := ValidateEnumValue(value); err != nil {
		return "", err
	}
	return fmt.Sprintf("ALTER TYPE %s ADD VALUE IF NOT EXISTS %s",
		pq.QuoteIdentifier(enumName), pq.QuoteLiteral(value)), nil
}

// literal renders a scalar JSON value as a quoted SQL literal. PostgreSQL
// coerces the quoted text to the column type.
func literal(v any) (string, error) {
	switch val := v.(type) {
	case string:
		return pq.QuoteLiteral(val), nil
	case bool:
		return pq.QuoteLiteral(strconv.FormatBool(val)), nil
	case float64:
		return pq.QuoteLiteral(strconv.FormatFloat(val, 'f', -1, 64)), nil
	case int:
		return pq.QuoteLiteral(strconv.Itoa(val)), nil
	case int64:
		return pq.QuoteLiteral(strconv.FormatInt(val, 10)), nil
	case json.Number:
		if _, err := val.Float64(); err != nil {
			return "", errors.InvalidDefaultValue()
		}
		return pq.QuoteLiteral(val.String()), nil
	default:
		return "", errors.InvalidDefaultValue()
	}
}

// screenLiteral rejects default values that libinjection fingerprints as SQL
func screenLiteral(s string) error {
	if isSQLi, _ := libinjection.IsSQLi(s); isSQLi {
		return errors.InvalidDefaultValue()
	}
	return nil
}
