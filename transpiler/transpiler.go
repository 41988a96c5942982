// Package transpiler lowers the IR into dialect-specific textual forms.
// One writer per backend supplies quoting, placeholders and the JSON
// operator family; the renderer walks the statement once and is fully
// deterministic.
package transpiler

import (
	"fmt"

	"github.com/qail-io/qail-go/ast"
)

// writers holds the per-dialect writer capabilities, bound once at package
// initialisation.
var writers = map[Dialect]Writer{
	Postgres:  PostgresWriter{},
	MySQL:     MySQLWriter{},
	SQLite:    SQLiteWriter{},
	SQLServer: SQLServerWriter{},
}

// WriterFor returns the SQL writer for a dialect, or nil for the non-SQL
// backends.
func WriterFor(d Dialect) Writer {
	return writers[d]
}

// SQL renders a statement into the given dialect. For SQL dialects it
// returns the statement text and the bound parameters in left-to-right
// encounter order. The non-SQL backends (Mongo, Cassandra, Redis, Qdrant)
// return their own textual form and never bind parameters; IR nodes those
// backends cannot express are emitted as best-effort comments.
func SQL(s *ast.Statement, d Dialect) (string, []Param, error) {
	switch d {
	case Mongo:
		return renderMongo(s), nil, nil
	case Cassandra:
		return renderCassandra(s), nil, nil
	case Redis:
		return renderRedis(s), nil, nil
	case Qdrant:
		return renderQdrant(s), nil, nil
	}
	w := writers[d]
	if w == nil {
		return "", nil, fmt.Errorf("transpiler: unknown dialect %d", d)
	}
	g := &sqlGen{w: w}
	g.renderStatement(s)
	if g.err != nil {
		return "", nil, g.err
	}
	return string(g.buf), g.params, nil
}

// AppendSQL renders a statement with an explicit writer, appending to buf
// and extending params. This is the byte-level entry the wire encoder uses
// so no intermediate string is constructed on the hot path.
func AppendSQL(buf []byte, s *ast.Statement, w Writer, params []Param) ([]byte, []Param, error) {
	g := &sqlGen{buf: buf, w: w, params: params}
	g.renderStatement(s)
	if g.err != nil {
		return buf, params, g.err
	}
	return g.buf, g.params, nil
}
