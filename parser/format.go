package parser

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/qail-io/qail-go/ast"
)

// Format renders a statement back into the surface syntax. For every
// statement the parser can produce, Parse(Format(s)) rebuilds s; opaque
// function values are the known lossy nodes (they survive textually but
// carry no structure).
func Format(s *ast.Statement) string {
	var b strings.Builder
	for i, cte := range s.CTEs {
		if i == 0 {
			b.WriteString("with ")
		} else {
			b.WriteString(", ")
		}
		if cte.Recursive {
			b.WriteString("recursive ")
		}
		b.WriteString(cte.Name)
		if len(cte.Columns) > 0 {
			b.WriteString("(" + strings.Join(cte.Columns, ", ") + ")")
		}
		b.WriteString(" as (")
		b.WriteString(formatBody(cte.Base))
		if cte.RecursivePart != nil {
			b.WriteString(" union all ")
			b.WriteString(formatBody(cte.RecursivePart))
		}
		b.WriteString(") ")
	}
	b.WriteString(formatBody(s))
	return b.String()
}

func formatBody(s *ast.Statement) string {
	var b strings.Builder

	switch s.Action {
	case ast.ActionTxBegin:
		return "begin"
	case ast.ActionTxCommit:
		return "commit"
	case ast.ActionTxRollback:
		return "rollback"
	case ast.ActionTruncate:
		return "truncate " + s.Table
	case ast.ActionLock:
		return "lock " + s.Table + " " + s.LockMode
	case ast.ActionDrop:
		return "drop " + s.Table
	case ast.ActionDropIndex:
		return "drop index " + s.Table
	case ast.ActionExplain:
		return "explain " + formatBody(s.SourceQuery)
	case ast.ActionExplainAnalyze:
		return "explain analyze " + formatBody(s.SourceQuery)
	case ast.ActionMakeIndex:
		def := s.IndexDef
		if def.Unique {
			b.WriteString("unique ")
		}
		b.WriteString("index " + def.Name + " on " + def.Table)
		b.WriteString(" (" + strings.Join(def.Columns, ", ") + ")")
		return b.String()
	case ast.ActionMake:
		b.WriteString("make " + s.Table + " ")
		for i, col := range s.Columns {
			if i > 0 {
				b.WriteString(", ")
			}
			def := col.(ast.Def)
			b.WriteString(def.Name + ":" + def.DataType)
			for _, c := range def.Constraints {
				b.WriteString(":" + formatConstraint(c))
			}
		}
		for _, tc := range s.TableConstraints {
			switch tc.Kind {
			case ast.TablePrimaryKey:
				b.WriteString(" primary key (" + strings.Join(tc.Columns, ", ") + ")")
			case ast.TableUnique:
				b.WriteString(" unique (" + strings.Join(tc.Columns, ", ") + ")")
			}
		}
		return b.String()
	}

	switch s.Action {
	case ast.ActionGet:
		b.WriteString("get ")
	case ast.ActionExport:
		b.WriteString("export ")
	case ast.ActionAdd:
		b.WriteString("add ")
	case ast.ActionSet:
		b.WriteString("set ")
	case ast.ActionDel:
		b.WriteString("del ")
	}

	if s.Distinct {
		b.WriteString("distinct ")
		if len(s.DistinctOn) > 0 {
			b.WriteString("on (" + formatExprList(s.DistinctOn) + ") ")
		}
	}
	b.WriteString(s.Table)

	for _, j := range s.Joins {
		switch j.Kind {
		case ast.JoinInner:
			b.WriteString(" join ")
		case ast.JoinLeft:
			b.WriteString(" left join ")
		case ast.JoinRight:
			b.WriteString(" right join ")
		case ast.JoinFull:
			b.WriteString(" full join ")
		case ast.JoinCross:
			b.WriteString(" cross join ")
		case ast.JoinLateral:
			b.WriteString(" lateral join ")
		}
		b.WriteString(j.Table)
		if j.OnTrue {
			b.WriteString(" on true")
		} else if len(j.On) > 0 {
			b.WriteString(" on ")
			for i, c := range j.On {
				if i > 0 {
					b.WriteString(" and ")
				}
				b.WriteString(formatExpr(c.Left) + " = " + formatValue(c.Value))
			}
		}
	}

	if s.Action == ast.ActionSet {
		if cage := s.PayloadCage(); cage != nil {
			b.WriteString(" values ")
			for i, c := range cage.Conditions {
				if i > 0 {
					b.WriteString(", ")
				}
				b.WriteString(formatExpr(c.Left) + " = " + formatValue(c.Value))
			}
		}
	}

	if len(s.Columns) > 0 {
		b.WriteString(" fields " + formatExprList(s.Columns))
	}

	if s.Action == ast.ActionAdd {
		if s.SourceQuery != nil {
			b.WriteString(" from (" + formatBody(s.SourceQuery) + ")")
		} else if cage := s.PayloadCage(); cage != nil {
			b.WriteString(" values ")
			for i, c := range cage.Conditions {
				if i > 0 {
					b.WriteString(", ")
				}
				b.WriteString(formatValue(c.Value))
			}
		}
	}

	if cage := s.FilterCage(); cage != nil && len(cage.Conditions) > 0 {
		b.WriteString(" where ")
		sep := " and "
		if cage.Op == ast.LogicalOr {
			sep = " or "
		}
		for i, c := range cage.Conditions {
			if i > 0 {
				b.WriteString(sep)
			}
			b.WriteString(formatCondition(c))
		}
	}

	if len(s.GroupBy) > 0 {
		b.WriteString(" group by " + formatExprList(s.GroupBy))
	}
	if len(s.Having) > 0 {
		b.WriteString(" having ")
		for i, c := range s.Having {
			if i > 0 {
				b.WriteString(" and ")
			}
			b.WriteString(formatCondition(c))
		}
	}

	if oc := s.OnConflict; oc != nil {
		b.WriteString(" conflict (" + strings.Join(oc.Columns, ", ") + ")")
		if oc.Action == ast.ConflictDoNothing {
			b.WriteString(" nothing")
		} else {
			b.WriteString(" update ")
			for i, a := range oc.Assignments {
				if i > 0 {
					b.WriteString(", ")
				}
				val := ""
				if lit, ok := a.Expr.(ast.Literal); ok {
					val = formatValue(lit.Value)
				} else {
					val = formatExpr(a.Expr)
				}
				b.WriteString(a.Column + " = " + val)
			}
		}
	}

	if len(s.Returning) > 0 {
		b.WriteString(" returning " + formatExprList(s.Returning))
	}

	first := true
	for _, cage := range s.Cages {
		if cage.Kind != ast.CageSort || len(cage.Conditions) == 0 {
			continue
		}
		if first {
			b.WriteString(" order by ")
			first = false
		} else {
			b.WriteString(", ")
		}
		b.WriteString(formatExpr(cage.Conditions[0].Left))
		if cage.Order.Descending() {
			b.WriteString(" desc")
		}
	}

	if n, ok := s.Limit(); ok {
		b.WriteString(" limit " + strconv.FormatUint(n, 10))
	}
	if n, ok := s.Offset(); ok {
		b.WriteString(" offset " + strconv.FormatUint(n, 10))
	}
	return b.String()
}

func formatConstraint(c ast.Constraint) string {
	switch c.Kind {
	case ast.ConstraintPrimaryKey:
		return "pk"
	case ast.ConstraintNotNull:
		return "notnull"
	case ast.ConstraintNullable:
		return "nullable"
	case ast.ConstraintUnique:
		return "unique"
	case ast.ConstraintDefault:
		return "default=" + c.Arg
	case ast.ConstraintReferences:
		return "references=" + c.Arg
	case ast.ConstraintCheck:
		return "check=" + c.Arg
	}
	return ""
}

func formatCondition(c ast.Condition) string {
	left := formatExpr(c.Left)
	switch c.Op {
	case ast.OpIsNull:
		return left + " is null"
	case ast.OpIsNotNull:
		return left + " is not null"
	case ast.OpIn, ast.OpNotIn:
		arr, _ := c.Value.(ast.Array)
		var elems []string
		for _, e := range arr {
			elems = append(elems, formatValue(e))
		}
		op := "in"
		if c.Op == ast.OpNotIn {
			op = "not in"
		}
		return left + " " + op + " (" + strings.Join(elems, ", ") + ")"
	case ast.OpBetween, ast.OpNotBetween:
		arr, _ := c.Value.(ast.Array)
		if len(arr) == 2 {
			op := "between"
			if c.Op == ast.OpNotBetween {
				op = "not between"
			}
			return left + " " + op + " " + formatValue(arr[0]) + " and " + formatValue(arr[1])
		}
	case ast.OpFuzzy:
		return left + " ~ " + formatValue(c.Value)
	case ast.OpLike:
		return left + " like " + formatValue(c.Value)
	case ast.OpNotLike:
		return left + " not like " + formatValue(c.Value)
	case ast.OpILike:
		return left + " ilike " + formatValue(c.Value)
	case ast.OpNotILike:
		return left + " not ilike " + formatValue(c.Value)
	}
	return left + " " + c.Op.SQLSymbol() + " " + formatValue(c.Value)
}

func formatExprList(exprs []ast.Expr) string {
	var parts []string
	for _, e := range exprs {
		parts = append(parts, formatExpr(e))
	}
	return strings.Join(parts, ", ")
}

func formatExpr(e ast.Expr) string {
	switch x := e.(type) {
	case ast.Star:
		return "*"
	case ast.Named:
		return x.Name
	case ast.Aliased:
		return x.Name + " as " + x.Alias
	case ast.Aggregate:
		inner := x.Col
		if x.Distinct {
			inner = "distinct " + inner
		}
		out := strings.ToLower(x.Func.String()) + "(" + inner + ")"
		if x.Alias != "" {
			out += " as " + x.Alias
		}
		return out
	case ast.Literal:
		return formatValue(x.Value)
	}
	return "*"
}

func formatValue(v ast.Value) string {
	switch x := v.(type) {
	case ast.Null, ast.NullUUID:
		return "null"
	case ast.Bool:
		if x {
			return "true"
		}
		return "false"
	case ast.Int:
		return strconv.FormatInt(int64(x), 10)
	case ast.Float:
		return strconv.FormatFloat(float64(x), 'g', -1, 64)
	case ast.String:
		return "'" + strings.ReplaceAll(string(x), "'", "''") + "'"
	case ast.Param:
		return "$" + strconv.Itoa(int(x))
	case ast.NamedParam:
		return ":" + string(x)
	case ast.FuncValue:
		return string(x)
	case ast.ColumnRef:
		return string(x)
	case ast.Interval:
		return formatInterval(x)
	}
	return fmt.Sprintf("'%v'", v)
}

func formatInterval(iv ast.Interval) string {
	suffix := map[ast.IntervalUnit]string{
		ast.UnitSecond: "s",
		ast.UnitMinute: "m",
		ast.UnitHour:   "h",
		ast.UnitDay:    "d",
		ast.UnitWeek:   "w",
		ast.UnitMonth:  "mo",
		ast.UnitYear:   "y",
	}[iv.Unit]
	return strconv.FormatInt(iv.Amount, 10) + suffix
}
