package transpiler

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/qail-io/qail-go/ast"
)

// sqlGen is one rendering pass. The generator walks the IR once, appending
// to buf; literal values become positional parameters in left-to-right
// encounter order. The pass is pure: equal inputs produce byte-identical
// output.
type sqlGen struct {
	buf    []byte
	w      Writer
	params []Param
	err    error
}

func (g *sqlGen) str(s string)      { g.buf = append(g.buf, s...) }
func (g *sqlGen) sp()               { g.buf = append(g.buf, ' ') }
func (g *sqlGen) ident(name string) { g.str(g.w.QuoteIdentifier(name)) }

func (g *sqlGen) fail(err error) {
	if g.err == nil {
		g.err = err
	}
}

// pushParam appends a parameter and writes its placeholder.
func (g *sqlGen) pushParam(p Param) {
	g.params = append(g.params, p)
	g.str(g.w.Placeholder(len(g.params)))
}

// renderStatement dispatches on the action.
func (g *sqlGen) renderStatement(s *ast.Statement) {
	switch s.Action {
	case ast.ActionGet:
		g.renderSelect(s)
	case ast.ActionAdd:
		g.renderInsert(s)
	case ast.ActionSet:
		g.renderUpdate(s)
	case ast.ActionDel:
		g.renderDelete(s)
	case ast.ActionExport:
		g.str("COPY (")
		g.renderSelect(s)
		g.str(") TO STDOUT")
	case ast.ActionMake:
		g.renderCreateTable(s)
	case ast.ActionMakeIndex:
		g.renderCreateIndex(s)
	case ast.ActionDrop:
		g.str("DROP TABLE ")
		g.ident(s.Table)
	case ast.ActionDropIndex:
		g.str("DROP INDEX ")
		g.ident(s.Table)
	case ast.ActionAlterAdd:
		g.str("ALTER TABLE ")
		g.ident(s.Table)
		g.str(" ADD COLUMN ")
		if len(s.Columns) == 1 {
			if def, ok := s.Columns[0].(ast.Def); ok {
				g.renderDef(def)
				return
			}
		}
		g.fail(fmt.Errorf("transpiler: ALTER_ADD requires exactly one column definition"))
	case ast.ActionAlterDrop:
		g.str("ALTER TABLE ")
		g.ident(s.Table)
		g.str(" DROP COLUMN ")
		if len(s.Columns) == 1 {
			if n, ok := s.Columns[0].(ast.Named); ok {
				g.ident(n.Name)
				return
			}
		}
		g.fail(fmt.Errorf("transpiler: ALTER_DROP requires exactly one column name"))
	case ast.ActionAlterType:
		at := s.AlterType
		if at == nil {
			g.fail(fmt.Errorf("transpiler: ALTER_TYPE requires a column retype"))
			return
		}
		g.str("ALTER TABLE ")
		g.ident(s.Table)
		g.str(" ALTER COLUMN ")
		g.ident(at.Column)
		g.str(" TYPE ")
		g.str(strings.ToUpper(at.NewType))
		if at.Using != "" {
			g.str(" USING ")
			g.str(at.Using)
		}
	case ast.ActionCreateView, ast.ActionCreateMView:
		g.str("CREATE ")
		if s.Action == ast.ActionCreateMView {
			g.str("MATERIALIZED ")
		}
		g.str("VIEW ")
		g.ident(s.Table)
		g.str(" AS ")
		if s.SourceQuery == nil {
			g.fail(fmt.Errorf("transpiler: CREATE VIEW requires a defining query"))
			return
		}
		g.renderSelect(s.SourceQuery)
	case ast.ActionDropView:
		g.str("DROP VIEW ")
		g.ident(s.Table)
	case ast.ActionDropMView:
		g.str("DROP MATERIALIZED VIEW ")
		g.ident(s.Table)
	case ast.ActionRefreshMView:
		g.str("REFRESH MATERIALIZED VIEW ")
		g.ident(s.Table)
	case ast.ActionTruncate:
		g.str("TRUNCATE TABLE ")
		g.ident(s.Table)
	case ast.ActionExplain, ast.ActionExplainAnalyze:
		g.str("EXPLAIN ")
		if s.Action == ast.ActionExplainAnalyze {
			g.str("ANALYZE ")
		}
		if s.SourceQuery == nil {
			g.fail(fmt.Errorf("transpiler: EXPLAIN requires an inner statement"))
			return
		}
		g.renderStatement(s.SourceQuery)
	case ast.ActionLock:
		g.str("LOCK TABLE ")
		g.ident(s.Table)
		if s.LockMode != "" {
			g.str(" IN ")
			g.str(s.LockMode)
			g.str(" MODE")
		}
	case ast.ActionTxBegin:
		g.str("BEGIN")
	case ast.ActionTxCommit:
		g.str("COMMIT")
	case ast.ActionTxRollback:
		g.str("ROLLBACK")
	case ast.ActionSavepoint:
		g.str("SAVEPOINT ")
		g.ident(s.SavepointName)
	case ast.ActionReleaseSavepoint:
		g.str("RELEASE SAVEPOINT ")
		g.ident(s.SavepointName)
	case ast.ActionRollbackTo:
		g.str("ROLLBACK TO SAVEPOINT ")
		g.ident(s.SavepointName)
	default:
		g.fail(fmt.Errorf("transpiler: action %s has no SQL form", s.Action))
	}
}

// renderSelect emits [WITH ...] SELECT ... with the clause ordering the IR
// mandates.
func (g *sqlGen) renderSelect(s *ast.Statement) {
	g.renderCTEs(s)

	g.str("SELECT ")
	if len(s.DistinctOn) > 0 {
		g.str("DISTINCT ON (")
		g.renderExprList(s.DistinctOn)
		g.str(") ")
	} else if s.Distinct {
		g.str("DISTINCT ")
	}

	if len(s.Columns) == 0 {
		g.str("*")
	} else {
		g.renderExprList(s.Columns)
	}

	g.str(" FROM ")
	g.ident(s.Table)

	for _, j := range s.Joins {
		g.renderJoin(j)
	}

	g.renderWhere(s)

	if len(s.GroupBy) > 0 {
		g.str(" GROUP BY ")
		switch s.GroupByMode {
		case ast.GroupRollup:
			g.str("ROLLUP (")
			g.renderExprList(s.GroupBy)
			g.str(")")
		case ast.GroupCube:
			g.str("CUBE (")
			g.renderExprList(s.GroupBy)
			g.str(")")
		default:
			g.renderExprList(s.GroupBy)
		}
	}

	if len(s.Having) > 0 {
		g.str(" HAVING ")
		g.renderConditions(s.Having, ast.LogicalAnd)
	}

	for _, op := range s.SetOps {
		switch op.Kind {
		case ast.SetUnion:
			g.str(" UNION ")
		case ast.SetUnionAll:
			g.str(" UNION ALL ")
		case ast.SetIntersect:
			g.str(" INTERSECT ")
		case ast.SetExcept:
			g.str(" EXCEPT ")
		}
		g.renderSelect(op.Stmt)
	}

	g.renderOrderBy(s)

	limit, hasLimit := s.Limit()
	offset, hasOffset := s.Offset()
	var lp, op *uint64
	if hasLimit {
		lp = &limit
	}
	if hasOffset {
		op = &offset
	}
	g.str(g.w.LimitOffset(lp, op))
}

func (g *sqlGen) renderCTEs(s *ast.Statement) {
	if len(s.CTEs) == 0 {
		return
	}
	g.str("WITH ")
	for _, c := range s.CTEs {
		if c.Recursive {
			g.str("RECURSIVE ")
			break
		}
	}
	for i, c := range s.CTEs {
		if i > 0 {
			g.str(", ")
		}
		g.ident(c.Name)
		if len(c.Columns) > 0 {
			g.str("(")
			for j, col := range c.Columns {
				if j > 0 {
					g.str(", ")
				}
				g.ident(col)
			}
			g.str(")")
		}
		g.str(" AS (")
		g.renderSelect(c.Base)
		if c.Recursive && c.RecursivePart != nil {
			g.str(" UNION ALL ")
			g.renderSelect(c.RecursivePart)
		}
		g.str(")")
	}
	g.sp()
}

func (g *sqlGen) renderJoin(j ast.Join) {
	switch j.Kind {
	case ast.JoinInner:
		g.str(" INNER JOIN ")
	case ast.JoinLeft:
		g.str(" LEFT JOIN ")
	case ast.JoinRight:
		g.str(" RIGHT JOIN ")
	case ast.JoinFull:
		g.str(" FULL OUTER JOIN ")
	case ast.JoinCross:
		g.str(" CROSS JOIN ")
	case ast.JoinLateral:
		g.str(" LEFT JOIN LATERAL ")
	}
	g.ident(j.Table)
	if j.OnTrue {
		g.str(" ON TRUE")
		return
	}
	if len(j.On) > 0 {
		g.str(" ON ")
		for i, cond := range j.On {
			if i > 0 {
				g.str(" AND ")
			}
			g.renderExpr(cond.Left)
			g.str(" = ")
			// A column reference renders as an identifier; any other value
			// goes through renderValue, so a literal binds a parameter.
			if ref, ok := cond.Value.(ast.ColumnRef); ok {
				g.ident(string(ref))
			} else {
				g.renderValue(cond.Value)
			}
		}
	}
}

func (g *sqlGen) renderWhere(s *ast.Statement) {
	cage := s.FilterCage()
	if cage == nil || len(cage.Conditions) == 0 {
		return
	}
	g.str(" WHERE ")
	g.renderConditions(cage.Conditions, cage.Op)
}

func (g *sqlGen) renderOrderBy(s *ast.Statement) {
	first := true
	for _, cage := range s.Cages {
		if cage.Kind != ast.CageSort || len(cage.Conditions) == 0 {
			continue
		}
		for _, cond := range cage.Conditions {
			if first {
				g.str(" ORDER BY ")
				first = false
			} else {
				g.str(", ")
			}
			g.renderExpr(cond.Left)
			switch cage.Order {
			case ast.SortDesc:
				g.str(" DESC")
			case ast.SortAscNullsFirst:
				g.str(" ASC NULLS FIRST")
			case ast.SortAscNullsLast:
				g.str(" ASC NULLS LAST")
			case ast.SortDescNullsFirst:
				g.str(" DESC NULLS FIRST")
			case ast.SortDescNullsLast:
				g.str(" DESC NULLS LAST")
			}
		}
	}
}

func (g *sqlGen) renderInsert(s *ast.Statement) {
	g.renderCTEs(s)
	g.str("INSERT INTO ")
	g.ident(s.Table)

	if len(s.Columns) > 0 {
		g.str(" (")
		g.renderExprList(s.Columns)
		g.str(")")
	}

	switch {
	case s.SourceQuery != nil:
		g.sp()
		g.renderSelect(s.SourceQuery)
	case s.DefaultValues:
		g.str(" DEFAULT VALUES")
	default:
		first := true
		for _, cage := range s.Cages {
			if cage.Kind != ast.CagePayload {
				continue
			}
			if first {
				g.str(" VALUES (")
				first = false
			} else {
				g.str(", (")
			}
			for i, cond := range cage.Conditions {
				if i > 0 {
					g.str(", ")
				}
				g.renderValue(cond.Value)
			}
			g.str(")")
		}
	}

	if s.OnConflict != nil {
		g.renderOnConflict(s.OnConflict)
	}
	g.renderReturning(s)
}

func (g *sqlGen) renderOnConflict(oc *ast.OnConflict) {
	g.str(" ON CONFLICT")
	if len(oc.Columns) > 0 {
		g.str(" (")
		for i, c := range oc.Columns {
			if i > 0 {
				g.str(", ")
			}
			g.ident(c)
		}
		g.str(")")
	}
	switch oc.Action {
	case ast.ConflictDoNothing:
		g.str(" DO NOTHING")
	case ast.ConflictDoUpdate:
		g.str(" DO UPDATE SET ")
		for i, a := range oc.Assignments {
			if i > 0 {
				g.str(", ")
			}
			g.ident(a.Column)
			g.str(" = ")
			g.renderExpr(a.Expr)
		}
	}
}

func (g *sqlGen) renderUpdate(s *ast.Statement) {
	g.renderCTEs(s)
	g.str("UPDATE ")
	g.ident(s.Table)
	g.str(" SET ")

	cage := s.PayloadCage()
	if cage == nil {
		g.fail(fmt.Errorf("transpiler: UPDATE requires a payload cage"))
		return
	}
	if len(s.Columns) > 0 {
		// Columns zip positionally with the payload values.
		n := len(s.Columns)
		if len(cage.Conditions) < n {
			n = len(cage.Conditions)
		}
		for i := 0; i < n; i++ {
			if i > 0 {
				g.str(", ")
			}
			g.renderExpr(s.Columns[i])
			g.str(" = ")
			g.renderValue(cage.Conditions[i].Value)
		}
	} else {
		for i, cond := range cage.Conditions {
			if i > 0 {
				g.str(", ")
			}
			g.renderExpr(cond.Left)
			g.str(" = ")
			g.renderValue(cond.Value)
		}
	}

	if len(s.FromAlt) > 0 {
		g.str(" FROM ")
		for i, t := range s.FromAlt {
			if i > 0 {
				g.str(", ")
			}
			g.ident(t)
		}
	}

	g.renderWhere(s)
	g.renderReturning(s)
}

func (g *sqlGen) renderDelete(s *ast.Statement) {
	g.renderCTEs(s)
	g.str("DELETE FROM ")
	g.ident(s.Table)
	if len(s.FromAlt) > 0 {
		g.str(" USING ")
		for i, t := range s.FromAlt {
			if i > 0 {
				g.str(", ")
			}
			g.ident(t)
		}
	}
	g.renderWhere(s)
	g.renderReturning(s)
}

func (g *sqlGen) renderReturning(s *ast.Statement) {
	if len(s.Returning) == 0 {
		return
	}
	g.str(" RETURNING ")
	g.renderExprList(s.Returning)
}

func (g *sqlGen) renderCreateTable(s *ast.Statement) {
	g.str("CREATE TABLE ")
	g.ident(s.Table)
	g.str(" (")
	for i, col := range s.Columns {
		if i > 0 {
			g.str(", ")
		}
		def, ok := col.(ast.Def)
		if !ok {
			g.fail(fmt.Errorf("transpiler: CREATE TABLE columns must be definitions, got %T", col))
			return
		}
		g.renderDef(def)
	}
	for _, tc := range s.TableConstraints {
		g.str(", ")
		g.renderTableConstraint(tc)
	}
	g.str(")")
}

func (g *sqlGen) renderDef(def ast.Def) {
	g.ident(def.Name)
	g.sp()
	g.str(strings.ToUpper(def.DataType))
	for _, c := range def.Constraints {
		switch c.Kind {
		case ast.ConstraintPrimaryKey:
			g.str(" PRIMARY KEY")
		case ast.ConstraintNotNull:
			g.str(" NOT NULL")
		case ast.ConstraintNullable:
			// the default; nothing to emit
		case ast.ConstraintUnique:
			g.str(" UNIQUE")
		case ast.ConstraintDefault:
			g.str(" DEFAULT ")
			g.str(c.Arg)
		case ast.ConstraintReferences:
			g.str(" REFERENCES ")
			g.str(c.Arg)
		case ast.ConstraintCheck:
			g.str(" CHECK (")
			g.str(c.Arg)
			g.str(")")
		}
	}
}

func (g *sqlGen) renderTableConstraint(tc ast.TableConstraint) {
	switch tc.Kind {
	case ast.TablePrimaryKey:
		g.str("PRIMARY KEY (")
		g.identList(tc.Columns)
		g.str(")")
	case ast.TableUnique:
		g.str("UNIQUE (")
		g.identList(tc.Columns)
		g.str(")")
	case ast.TableCheck:
		g.str("CHECK (")
		g.str(tc.Check)
		g.str(")")
	case ast.TableForeignKey:
		g.str("FOREIGN KEY (")
		g.identList(tc.Columns)
		g.str(") REFERENCES ")
		g.ident(tc.RefTable)
		g.str(" (")
		g.identList(tc.RefColumns)
		g.str(")")
	}
}

func (g *sqlGen) identList(names []string) {
	for i, n := range names {
		if i > 0 {
			g.str(", ")
		}
		g.ident(n)
	}
}

func (g *sqlGen) renderCreateIndex(s *ast.Statement) {
	def := s.IndexDef
	if def == nil {
		g.fail(fmt.Errorf("transpiler: CREATE INDEX requires an index definition"))
		return
	}
	g.str("CREATE ")
	if def.Unique {
		g.str("UNIQUE ")
	}
	g.str("INDEX ")
	g.ident(def.Name)
	g.str(" ON ")
	g.ident(def.Table)
	if def.Using != "" {
		g.str(" USING ")
		g.str(def.Using)
	}
	g.str(" (")
	g.identList(def.Columns)
	g.str(")")
}

// renderExprList writes a comma-separated expression list.
func (g *sqlGen) renderExprList(exprs []ast.Expr) {
	for i, e := range exprs {
		if i > 0 {
			g.str(", ")
		}
		g.renderExpr(e)
	}
}

func (g *sqlGen) renderExpr(e ast.Expr) {
	switch x := e.(type) {
	case ast.Star:
		g.str("*")
	case ast.Named:
		g.ident(x.Name)
	case ast.Aliased:
		g.ident(x.Name)
		g.str(" AS ")
		g.ident(x.Alias)
	case ast.Literal:
		g.renderValue(x.Value)
	case ast.Aggregate:
		g.str(x.Func.String())
		g.str("(")
		if x.Distinct {
			g.str("DISTINCT ")
		}
		if x.Col == "*" || x.Col == "" {
			g.str("*")
		} else {
			g.ident(x.Col)
		}
		g.str(")")
		if len(x.Filter) > 0 {
			g.str(" FILTER (WHERE ")
			g.renderConditions(x.Filter, ast.LogicalAnd)
			g.str(")")
		}
		g.alias(x.Alias)
	case ast.Cast:
		g.renderExpr(x.Inner)
		g.str("::")
		g.str(x.Type)
		g.alias(x.Alias)
	case ast.Case:
		g.str("CASE")
		for _, w := range x.Whens {
			g.str(" WHEN ")
			g.renderCondition(w.Cond)
			g.str(" THEN ")
			g.renderExpr(w.Then)
		}
		if x.Else != nil {
			g.str(" ELSE ")
			g.renderExpr(x.Else)
		}
		g.str(" END")
		g.alias(x.Alias)
	case ast.FunctionCall:
		g.str(x.Name)
		g.str("(")
		g.renderExprList(x.Args)
		g.str(")")
		g.alias(x.Alias)
	case ast.Binary:
		if x.Op == ast.BinConcat {
			parts := make([]string, 0, 2)
			parts = append(parts, g.renderedExpr(x.Left), g.renderedExpr(x.Right))
			g.str(g.w.StringConcat(parts))
		} else {
			g.str("(")
			g.renderExpr(x.Left)
			g.sp()
			g.str(x.Op.String())
			g.sp()
			g.renderExpr(x.Right)
			g.str(")")
		}
		g.alias(x.Alias)
	case ast.JSONAccess:
		g.str(g.w.JSONAccess(x.Column, x.Path))
		g.alias(x.Alias)
	case ast.Window:
		g.str(x.Func)
		g.str("(")
		g.renderExprList(x.Args)
		g.str(") OVER (")
		if len(x.Partition) > 0 {
			g.str("PARTITION BY ")
			g.renderExprList(x.Partition)
		}
		if len(x.Order) > 0 {
			if len(x.Partition) > 0 {
				g.sp()
			}
			g.str("ORDER BY ")
			for i, o := range x.Order {
				if i > 0 {
					g.str(", ")
				}
				g.renderExpr(o.Expr)
				if o.Order.Descending() {
					g.str(" DESC")
				}
			}
		}
		if x.Frame != "" {
			g.sp()
			g.str(x.Frame)
		}
		g.str(")")
		g.alias(x.Alias)
	case ast.ArrayConstructor:
		g.str("ARRAY[")
		g.renderExprList(x.Elems)
		g.str("]")
	case ast.RowConstructor:
		g.str("ROW(")
		g.renderExprList(x.Elems)
		g.str(")")
	case ast.Subscript:
		g.renderExpr(x.Inner)
		g.str("[")
		g.renderExpr(x.Index)
		g.str("]")
	case ast.Collate:
		g.renderExpr(x.Inner)
		g.str(" COLLATE \"")
		g.str(x.Collation)
		g.str("\"")
	case ast.SpecialFunction:
		g.str(x.Name)
		g.str("(")
		for i, a := range x.Args {
			if i > 0 && a.Keyword == "" {
				g.str(", ")
			}
			if a.Keyword != "" {
				g.sp()
				g.str(a.Keyword)
				g.sp()
			}
			g.renderExpr(a.Expr)
		}
		g.str(")")
		g.alias(x.Alias)
	case ast.Def:
		// Plain name position (INSERT column list).
		g.ident(x.Name)
	default:
		g.fail(fmt.Errorf("transpiler: expression %T has no SQL form", e))
	}
}

// renderedExpr renders a subexpression into its own string, sharing the
// parameter sequence.
func (g *sqlGen) renderedExpr(e ast.Expr) string {
	saved := g.buf
	g.buf = nil
	g.renderExpr(e)
	out := string(g.buf)
	g.buf = saved
	return out
}

func (g *sqlGen) alias(a string) {
	if a != "" {
		g.str(" AS ")
		g.ident(a)
	}
}

func (g *sqlGen) renderConditions(conds []ast.Condition, op ast.LogicalOp) {
	sep := " AND "
	if op == ast.LogicalOr {
		sep = " OR "
	}
	for i, c := range conds {
		if i > 0 {
			g.str(sep)
		}
		g.renderCondition(c)
	}
}

func (g *sqlGen) renderCondition(c ast.Condition) {
	switch c.Op {
	case ast.OpIsNull, ast.OpIsNotNull:
		// The value is ignored for operators that take none.
		g.renderExpr(c.Left)
		g.sp()
		g.str(c.Op.SQLSymbol())
	case ast.OpExists, ast.OpNotExists:
		g.str(c.Op.SQLSymbol())
		g.str(" (")
		if sub, ok := c.Value.(ast.Subquery); ok {
			g.renderSelect(sub.Stmt)
		} else {
			g.fail(fmt.Errorf("transpiler: EXISTS requires a subquery value"))
		}
		g.str(")")
	case ast.OpIn, ast.OpNotIn:
		g.renderInCondition(c)
	case ast.OpBetween, ast.OpNotBetween:
		arr, ok := c.Value.(ast.Array)
		if !ok || len(arr) != 2 {
			g.fail(fmt.Errorf("transpiler: BETWEEN requires a two-element array value"))
			return
		}
		g.renderExpr(c.Left)
		g.sp()
		g.str(c.Op.SQLSymbol())
		g.sp()
		g.renderValue(arr[0])
		g.str(" AND ")
		g.renderValue(arr[1])
	case ast.OpContains:
		col := g.renderedExpr(c.Left)
		val := g.renderedValue(c.Value)
		g.str(g.w.JSONContains(col, val))
	case ast.OpKeyExists:
		col := g.renderedExpr(c.Left)
		val := g.renderedValue(c.Value)
		g.str(g.w.JSONKeyExists(col, val))
	case ast.OpJSONExists, ast.OpJSONQuery, ast.OpJSONValue:
		col := g.renderedExpr(c.Left)
		path := "$"
		if s, ok := c.Value.(ast.String); ok {
			path = string(s)
		}
		switch c.Op {
		case ast.OpJSONExists:
			g.str(g.w.JSONExists(col, path))
		case ast.OpJSONQuery:
			g.str(g.w.JSONQuery(col, path))
		default:
			g.str(g.w.JSONValue(col, path))
		}
	case ast.OpFuzzy:
		g.renderExpr(c.Left)
		g.sp()
		g.str(g.w.FuzzyOperator())
		g.sp()
		g.renderValue(c.Value)
	default:
		g.renderExpr(c.Left)
		g.sp()
		g.str(c.Op.SQLSymbol())
		g.sp()
		g.renderValue(c.Value)
	}
}

func (g *sqlGen) renderInCondition(c ast.Condition) {
	col := g.renderedExpr(c.Left)

	if sub, ok := c.Value.(ast.Subquery); ok {
		g.str(col)
		g.sp()
		g.str(c.Op.SQLSymbol())
		g.str(" (")
		g.renderSelect(sub.Stmt)
		g.str(")")
		return
	}

	arr, isArr := c.Value.(ast.Array)
	if isArr && g.w.BindsArrays() && !c.ArrayUnnest {
		// One array-typed parameter; Postgres = ANY($n) form.
		data, null, err := EncodeValueText(arr)
		if err != nil {
			g.fail(err)
			return
		}
		g.params = append(g.params, Param{Data: data, Null: null})
		val := g.w.Placeholder(len(g.params))
		if c.Op == ast.OpIn {
			g.str(g.w.InArray(col, val))
		} else {
			g.str(g.w.NotInArray(col, val))
		}
		return
	}

	// Placeholder list form.
	var elems []string
	if isArr {
		for _, e := range arr {
			elems = append(elems, g.renderedValue(e))
		}
	} else {
		elems = append(elems, g.renderedValue(c.Value))
	}
	list := strings.Join(elems, ", ")
	if c.Op == ast.OpIn {
		g.str(g.w.InArray(col, list))
	} else {
		g.str(g.w.NotInArray(col, list))
	}
}

// renderedValue renders a value into its own string, sharing the parameter
// sequence.
func (g *sqlGen) renderedValue(v ast.Value) string {
	saved := g.buf
	g.buf = nil
	g.renderValue(v)
	out := string(g.buf)
	g.buf = saved
	return out
}

// renderValue writes one value. Literals become positional parameters;
// structural values (columns, functions, subqueries, nested expressions)
// are rendered inline.
func (g *sqlGen) renderValue(v ast.Value) {
	switch x := v.(type) {
	case ast.Param:
		// Explicit positional reference: reserve external slots up to n.
		for len(g.params) < int(x) {
			g.params = append(g.params, Param{External: true})
		}
		g.str(g.w.Placeholder(int(x)))
	case ast.NamedParam:
		g.pushParam(Param{Name: string(x), External: true})
	case ast.FuncValue:
		g.str(string(x))
	case ast.ColumnRef:
		g.ident(string(x))
	case ast.Subquery:
		g.str("(")
		g.renderSelect(x.Stmt)
		g.str(")")
	case ast.ExprValue:
		g.renderExpr(x.Expr)
	case ast.Interval:
		g.str("INTERVAL '")
		g.str(strconv.FormatInt(x.Amount, 10))
		g.sp()
		g.str(x.Unit.String())
		g.str("'")
	default:
		data, null, err := EncodeValueText(v)
		if err != nil {
			g.fail(err)
			return
		}
		g.pushParam(Param{Data: data, Null: null})
	}
}
