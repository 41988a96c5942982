package transpiler

import (
	"strings"

	"github.com/qail-io/qail-go/ast"
)

// Dialect selects the target backend of a transpilation.
type Dialect int

const (
	Postgres Dialect = iota
	MySQL
	SQLite
	SQLServer
	Mongo
	Cassandra
	Redis
	Qdrant
)

func (d Dialect) String() string {
	switch d {
	case Postgres:
		return "postgres"
	case MySQL:
		return "mysql"
	case SQLite:
		return "sqlite"
	case SQLServer:
		return "sqlserver"
	case Mongo:
		return "mongo"
	case Cassandra:
		return "cassandra"
	case Redis:
		return "redis"
	case Qdrant:
		return "qdrant"
	}
	return "postgres"
}

// Writer is the per-dialect capability used by the SQL renderer. Each writer
// owns its quoting rules and keyword tables as immutable package data.
type Writer interface {
	QuoteIdentifier(name string) string
	Placeholder(i int) string
	FuzzyOperator() string
	BoolLiteral(b bool) string
	StringConcat(parts []string) string
	LimitOffset(limit, offset *uint64) string
	JSONAccess(col string, path []ast.PathSeg) string
	JSONContains(col, value string) string
	JSONKeyExists(col, key string) string
	JSONExists(col, path string) string
	JSONQuery(col, path string) string
	JSONValue(col, path string) string
	InArray(col, value string) string
	NotInArray(col, value string) string
	// BindsArrays reports whether an IN over an array value binds the whole
	// array as one parameter (Postgres = ANY($1)) instead of expanding it
	// into a placeholder list.
	BindsArrays() bool
}

// reservedWords are identifiers that must be quoted in any SQL dialect.
var reservedWords = map[string]bool{
	"order": true, "group": true, "user": true, "table": true, "select": true,
	"from": true, "where": true, "join": true, "left": true, "right": true,
	"inner": true, "outer": true, "on": true, "and": true, "or": true,
	"not": true, "null": true, "true": true, "false": true, "limit": true,
	"offset": true, "as": true, "in": true, "is": true, "like": true,
	"between": true, "having": true, "union": true, "all": true,
	"distinct": true, "case": true, "when": true, "then": true, "else": true,
	"end": true, "create": true, "alter": true, "drop": true, "insert": true,
	"update": true, "delete": true, "index": true, "key": true,
	"primary": true, "foreign": true, "references": true, "default": true,
	"constraint": true, "check": true,
}

// needsQuoting reports whether a single identifier part requires quoting:
// reserved words, non-word characters, or a leading digit.
func needsQuoting(name string) bool {
	if name == "" || name == "*" {
		return false
	}
	if reservedWords[strings.ToLower(name)] {
		return true
	}
	if name[0] >= '0' && name[0] <= '9' {
		return true
	}
	for _, c := range name {
		if !(c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9' || c == '_') {
			return true
		}
	}
	return false
}

// quoteWith quotes each dot-separated part of an identifier with the given
// open/close runes when needed.
func quoteWith(name string, open, close byte) string {
	if strings.Contains(name, ".") {
		parts := strings.Split(name, ".")
		for i, p := range parts {
			parts[i] = quoteSingle(p, open, close)
		}
		return strings.Join(parts, ".")
	}
	return quoteSingle(name, open, close)
}

func quoteSingle(name string, open, close byte) string {
	if !needsQuoting(name) {
		return name
	}
	escaped := strings.ReplaceAll(name, string(close), string(close)+string(close))
	return string(open) + escaped + string(close)
}
