package transpiler

import (
	"strconv"
	"strings"

	"github.com/qail-io/qail-go/ast"
)

// MySQLWriter renders the MySQL dialect.
type MySQLWriter struct{}

func (MySQLWriter) QuoteIdentifier(name string) string {
	return quoteWith(name, '`', '`')
}

func (MySQLWriter) Placeholder(int) string { return "?" }

func (MySQLWriter) FuzzyOperator() string { return "LIKE" }

func (MySQLWriter) BoolLiteral(b bool) string {
	if b {
		return "1"
	}
	return "0"
}

func (MySQLWriter) StringConcat(parts []string) string {
	return "CONCAT(" + strings.Join(parts, ", ") + ")"
}

func (MySQLWriter) LimitOffset(limit, offset *uint64) string {
	var b strings.Builder
	if limit != nil {
		b.WriteString(" LIMIT ")
		b.WriteString(strconv.FormatUint(*limit, 10))
	} else if offset != nil {
		// MySQL requires a LIMIT before OFFSET; the conventional huge bound.
		b.WriteString(" LIMIT 18446744073709551615")
	}
	if offset != nil {
		b.WriteString(" OFFSET ")
		b.WriteString(strconv.FormatUint(*offset, 10))
	}
	return b.String()
}

func (w MySQLWriter) JSONAccess(col string, path []ast.PathSeg) string {
	jsonPath := "$"
	for _, seg := range path {
		if _, err := strconv.Atoi(seg.Key); err == nil {
			jsonPath += "[" + seg.Key + "]"
		} else {
			jsonPath += "." + seg.Key
		}
	}
	expr := "JSON_EXTRACT(" + w.QuoteIdentifier(col) + ", '" + jsonPath + "')"
	if len(path) > 0 && path[len(path)-1].AsText {
		return "JSON_UNQUOTE(" + expr + ")"
	}
	return expr
}

func (MySQLWriter) JSONContains(col, value string) string {
	return "JSON_CONTAINS(" + col + ", " + value + ")"
}

func (MySQLWriter) JSONKeyExists(col, key string) string {
	return "JSON_CONTAINS_PATH(" + col + ", 'one', CONCAT('$.', " + key + "))"
}

func (MySQLWriter) JSONExists(col, path string) string {
	return "JSON_CONTAINS_PATH(" + col + ", 'one', '" + path + "')"
}

func (MySQLWriter) JSONQuery(col, path string) string {
	return "JSON_EXTRACT(" + col + ", '" + path + "')"
}

func (MySQLWriter) JSONValue(col, path string) string {
	return "JSON_UNQUOTE(JSON_EXTRACT(" + col + ", '" + path + "'))"
}

func (MySQLWriter) InArray(col, value string) string {
	return col + " IN (" + value + ")"
}

func (MySQLWriter) NotInArray(col, value string) string {
	return col + " NOT IN (" + value + ")"
}

func (MySQLWriter) BindsArrays() bool { return false }

// SQLiteWriter renders the SQLite dialect.
type SQLiteWriter struct{}

func (SQLiteWriter) QuoteIdentifier(name string) string {
	return quoteWith(name, '"', '"')
}

func (SQLiteWriter) Placeholder(int) string { return "?" }

func (SQLiteWriter) FuzzyOperator() string { return "LIKE" }

func (SQLiteWriter) BoolLiteral(b bool) string {
	if b {
		return "1"
	}
	return "0"
}

func (SQLiteWriter) StringConcat(parts []string) string {
	return strings.Join(parts, " || ")
}

func (SQLiteWriter) LimitOffset(limit, offset *uint64) string {
	var b strings.Builder
	if limit != nil {
		b.WriteString(" LIMIT ")
		b.WriteString(strconv.FormatUint(*limit, 10))
	} else if offset != nil {
		b.WriteString(" LIMIT -1")
	}
	if offset != nil {
		b.WriteString(" OFFSET ")
		b.WriteString(strconv.FormatUint(*offset, 10))
	}
	return b.String()
}

func (w SQLiteWriter) JSONAccess(col string, path []ast.PathSeg) string {
	jsonPath := "$"
	for _, seg := range path {
		if _, err := strconv.Atoi(seg.Key); err == nil {
			jsonPath += "[" + seg.Key + "]"
		} else {
			jsonPath += "." + seg.Key
		}
	}
	return "json_extract(" + w.QuoteIdentifier(col) + ", '" + jsonPath + "')"
}

func (SQLiteWriter) JSONContains(col, value string) string {
	// No containment operator; approximate with a scan over json_each.
	return "EXISTS (SELECT 1 FROM json_each(" + col + ") WHERE json_each.value = " + value + ")"
}

func (SQLiteWriter) JSONKeyExists(col, key string) string {
	return "json_type(" + col + ", '$.' || " + key + ") IS NOT NULL"
}

func (SQLiteWriter) JSONExists(col, path string) string {
	return "json_type(" + col + ", '" + path + "') IS NOT NULL"
}

func (SQLiteWriter) JSONQuery(col, path string) string {
	return "json_extract(" + col + ", '" + path + "')"
}

func (SQLiteWriter) JSONValue(col, path string) string {
	return "json_extract(" + col + ", '" + path + "')"
}

func (SQLiteWriter) InArray(col, value string) string {
	return col + " IN (" + value + ")"
}

func (SQLiteWriter) NotInArray(col, value string) string {
	return col + " NOT IN (" + value + ")"
}

func (SQLiteWriter) BindsArrays() bool { return false }

// SQLServerWriter renders the SQL Server dialect.
type SQLServerWriter struct{}

func (SQLServerWriter) QuoteIdentifier(name string) string {
	if strings.Contains(name, ".") {
		parts := strings.Split(name, ".")
		for i, p := range parts {
			if needsQuoting(p) {
				parts[i] = "[" + strings.ReplaceAll(p, "]", "]]") + "]"
			}
		}
		return strings.Join(parts, ".")
	}
	if needsQuoting(name) {
		return "[" + strings.ReplaceAll(name, "]", "]]") + "]"
	}
	return name
}

func (SQLServerWriter) Placeholder(i int) string {
	return "@p" + strconv.Itoa(i)
}

func (SQLServerWriter) FuzzyOperator() string { return "LIKE" }

func (SQLServerWriter) BoolLiteral(b bool) string {
	if b {
		return "1"
	}
	return "0"
}

func (SQLServerWriter) StringConcat(parts []string) string {
	return "CONCAT(" + strings.Join(parts, ", ") + ")"
}

func (SQLServerWriter) LimitOffset(limit, offset *uint64) string {
	if limit == nil && offset == nil {
		return ""
	}
	var off uint64
	if offset != nil {
		off = *offset
	}
	s := " OFFSET " + strconv.FormatUint(off, 10) + " ROWS"
	if limit != nil {
		s += " FETCH NEXT " + strconv.FormatUint(*limit, 10) + " ROWS ONLY"
	}
	return s
}

func (w SQLServerWriter) JSONAccess(col string, path []ast.PathSeg) string {
	jsonPath := "$"
	for _, seg := range path {
		if _, err := strconv.Atoi(seg.Key); err == nil {
			jsonPath += "[" + seg.Key + "]"
		} else {
			jsonPath += "." + seg.Key
		}
	}
	return "JSON_VALUE(" + w.QuoteIdentifier(col) + ", '" + jsonPath + "')"
}

func (SQLServerWriter) JSONContains(col, value string) string {
	return "EXISTS (SELECT 1 FROM OPENJSON(" + col + ") WHERE value = " + value + ")"
}

func (SQLServerWriter) JSONKeyExists(col, key string) string {
	return "JSON_VALUE(" + col + ", CONCAT('$.', " + key + ")) IS NOT NULL"
}

func (SQLServerWriter) JSONExists(col, path string) string {
	return "JSON_PATH_EXISTS(" + col + ", '" + path + "') = 1"
}

func (SQLServerWriter) JSONQuery(col, path string) string {
	return "JSON_QUERY(" + col + ", '" + path + "')"
}

func (SQLServerWriter) JSONValue(col, path string) string {
	return "JSON_VALUE(" + col + ", '" + path + "')"
}

func (SQLServerWriter) InArray(col, value string) string {
	return col + " IN (" + value + ")"
}

func (SQLServerWriter) NotInArray(col, value string) string {
	return col + " NOT IN (" + value + ")"
}

func (SQLServerWriter) BindsArrays() bool { return false }
