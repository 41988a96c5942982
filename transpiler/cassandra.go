package transpiler

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/qail-io/qail-go/ast"
)

// renderCassandra lowers a statement into CQL. Reads append ALLOW FILTERING
// because the IR places no partition-key restrictions on filters.
func renderCassandra(s *ast.Statement) string {
	switch s.Action {
	case ast.ActionGet:
		return cqlSelect(s) + " ALLOW FILTERING"
	case ast.ActionAdd:
		return cqlInsert(s)
	case ast.ActionSet:
		return cqlUpdate(s)
	case ast.ActionDel:
		return cqlDelete(s)
	case ast.ActionMake:
		return cqlCreateTable(s)
	case ast.ActionDrop:
		return "DROP TABLE " + s.Table
	case ast.ActionTruncate:
		return "TRUNCATE " + s.Table
	}
	return fmt.Sprintf("-- Action %s not supported for CQL", s.Action)
}

func cqlSelect(s *ast.Statement) string {
	cols := "*"
	if len(s.Columns) > 0 {
		var names []string
		for _, c := range s.Columns {
			if n, ok := c.(ast.Named); ok {
				names = append(names, n.Name)
			}
		}
		if len(names) > 0 {
			cols = strings.Join(names, ", ")
		}
	}

	out := "SELECT " + cols + " FROM " + s.Table
	if w := cqlWhere(s); w != "" {
		out += w
	}
	if limit, ok := s.Limit(); ok {
		out += " LIMIT " + strconv.FormatUint(limit, 10)
	}
	return out
}

func cqlWhere(s *ast.Statement) string {
	cage := s.FilterCage()
	if cage == nil || len(cage.Conditions) == 0 {
		return ""
	}
	var parts []string
	for _, c := range cage.Conditions {
		name := ""
		if n, ok := c.Left.(ast.Named); ok {
			name = n.Name
		}
		op := c.Op.SQLSymbol()
		switch c.Op {
		case ast.OpEq, ast.OpGt, ast.OpGte, ast.OpLt, ast.OpLte, ast.OpIn:
		default:
			op = "=" // CQL has no general operator set
		}
		parts = append(parts, fmt.Sprintf("%s %s %s", name, op, cqlValue(c.Value)))
	}
	return " WHERE " + strings.Join(parts, " AND ")
}

func cqlInsert(s *ast.Statement) string {
	var cols, vals []string
	cage := s.PayloadCage()
	if cage != nil {
		for i, c := range cage.Conditions {
			name := ""
			if n, ok := c.Left.(ast.Named); ok {
				name = n.Name
			}
			if strings.HasPrefix(name, "$") && i < len(s.Columns) {
				if n, ok := s.Columns[i].(ast.Named); ok {
					name = n.Name
				}
			}
			cols = append(cols, name)
			vals = append(vals, cqlValue(c.Value))
		}
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		s.Table, strings.Join(cols, ", "), strings.Join(vals, ", "))
}

func cqlUpdate(s *ast.Statement) string {
	var sets []string
	if cage := s.PayloadCage(); cage != nil {
		for _, c := range cage.Conditions {
			name := ""
			if n, ok := c.Left.(ast.Named); ok {
				name = n.Name
			}
			sets = append(sets, fmt.Sprintf("%s = %s", name, cqlValue(c.Value)))
		}
	}
	return "UPDATE " + s.Table + " SET " + strings.Join(sets, ", ") + cqlWhere(s)
}

func cqlDelete(s *ast.Statement) string {
	return "DELETE FROM " + s.Table + cqlWhere(s)
}

func cqlCreateTable(s *ast.Statement) string {
	var defs []string
	for _, col := range s.Columns {
		def, ok := col.(ast.Def)
		if !ok {
			continue
		}
		line := def.Name + " " + strings.ToUpper(def.DataType)
		for _, c := range def.Constraints {
			if c.Kind == ast.ConstraintPrimaryKey {
				line += " PRIMARY KEY"
			}
		}
		defs = append(defs, line)
	}
	return fmt.Sprintf("CREATE TABLE %s (%s)", s.Table, strings.Join(defs, ", "))
}

func cqlValue(v ast.Value) string {
	switch x := v.(type) {
	case ast.Null, ast.NullUUID:
		return "NULL"
	case ast.Bool:
		return strconv.FormatBool(bool(x))
	case ast.Int:
		return strconv.FormatInt(int64(x), 10)
	case ast.Float:
		return strconv.FormatFloat(float64(x), 'g', -1, 64)
	case ast.String:
		return "'" + strings.ReplaceAll(string(x), "'", "''") + "'"
	case ast.UUID:
		data, _, _ := EncodeValueText(v)
		return string(data)
	case ast.NamedParam:
		return ":" + string(x)
	case ast.Param:
		return "?"
	case ast.Array:
		var elems []string
		for _, e := range x {
			elems = append(elems, cqlValue(e))
		}
		return "(" + strings.Join(elems, ", ") + ")"
	}
	return "NULL"
}
