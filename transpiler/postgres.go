package transpiler

import (
	"strconv"
	"strings"

	"github.com/qail-io/qail-go/ast"
)

// PostgresWriter renders the PostgreSQL dialect. It is also the writer used
// by the AST-native wire encoder.
type PostgresWriter struct{}

func (PostgresWriter) QuoteIdentifier(name string) string {
	return quoteWith(name, '"', '"')
}

func (PostgresWriter) Placeholder(i int) string {
	return "$" + strconv.Itoa(i)
}

func (PostgresWriter) FuzzyOperator() string { return "ILIKE" }

func (PostgresWriter) BoolLiteral(b bool) string {
	if b {
		return "true"
	}
	return "false"
}

func (PostgresWriter) StringConcat(parts []string) string {
	return strings.Join(parts, " || ")
}

func (PostgresWriter) LimitOffset(limit, offset *uint64) string {
	var b strings.Builder
	if limit != nil {
		b.WriteString(" LIMIT ")
		b.WriteString(strconv.FormatUint(*limit, 10))
	}
	if offset != nil {
		b.WriteString(" OFFSET ")
		b.WriteString(strconv.FormatUint(*offset, 10))
	}
	return b.String()
}

func (w PostgresWriter) JSONAccess(col string, path []ast.PathSeg) string {
	var b strings.Builder
	b.WriteString(w.QuoteIdentifier(col))
	for _, seg := range path {
		if seg.AsText {
			b.WriteString("->>")
		} else {
			b.WriteString("->")
		}
		if _, err := strconv.Atoi(seg.Key); err == nil {
			b.WriteString(seg.Key) // array index
		} else {
			b.WriteString("'" + seg.Key + "'")
		}
	}
	return b.String()
}

func (PostgresWriter) JSONContains(col, value string) string {
	return col + " @> " + value
}

func (PostgresWriter) JSONKeyExists(col, key string) string {
	return col + " ? " + key
}

func (PostgresWriter) JSONExists(col, path string) string {
	return "JSON_EXISTS(" + col + ", '" + path + "')"
}

func (PostgresWriter) JSONQuery(col, path string) string {
	return "JSON_QUERY(" + col + ", '" + path + "')"
}

func (PostgresWriter) JSONValue(col, path string) string {
	return "JSON_VALUE(" + col + ", '" + path + "')"
}

func (PostgresWriter) InArray(col, value string) string {
	return col + " = ANY(" + value + ")"
}

func (PostgresWriter) NotInArray(col, value string) string {
	return col + " != ALL(" + value + ")"
}

func (PostgresWriter) BindsArrays() bool { return true }
