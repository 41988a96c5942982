package transpiler

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/qail-io/qail-go/ast"
)

// renderMongo lowers a statement into MongoDB shell syntax. Joins force the
// aggregation pipeline form; plain reads use find().
func renderMongo(s *ast.Statement) string {
	switch s.Action {
	case ast.ActionGet:
		if len(s.Joins) > 0 {
			return mongoAggregate(s)
		}
		return mongoFind(s)
	case ast.ActionSet:
		return fmt.Sprintf("db.%s.updateMany(%s, { \"$set\": %s })",
			s.Table, mongoFilter(s), mongoPayload(s))
	case ast.ActionAdd:
		return fmt.Sprintf("db.%s.insertOne(%s)", s.Table, mongoPayload(s))
	case ast.ActionDel:
		return fmt.Sprintf("db.%s.deleteMany(%s)", s.Table, mongoFilter(s))
	case ast.ActionMake:
		return fmt.Sprintf("db.createCollection(%q)", s.Table)
	case ast.ActionDrop:
		return fmt.Sprintf("db.%s.drop()", s.Table)
	case ast.ActionTxBegin:
		return "session.startTransaction()"
	case ast.ActionTxCommit:
		return "session.commitTransaction()"
	case ast.ActionTxRollback:
		return "session.abortTransaction()"
	}
	return fmt.Sprintf("// Action %s not supported for MongoDB", s.Action)
}

func mongoAggregate(s *ast.Statement) string {
	var stages []string

	if f := mongoFilter(s); f != "{}" {
		stages = append(stages, fmt.Sprintf("{ \"$match\": %s }", f))
	}

	for _, j := range s.Joins {
		// users -> user_id naming convention for the foreign field.
		fk := strings.TrimSuffix(s.Table, "s") + "_id"
		stages = append(stages, fmt.Sprintf(
			"{ \"$lookup\": { \"from\": %q, \"localField\": \"_id\", \"foreignField\": %q, \"as\": %q } }",
			j.Table, fk, j.Table))
	}

	if p := mongoProjection(s); p != "{}" {
		stages = append(stages, fmt.Sprintf("{ \"$project\": %s }", p))
	}

	for _, cage := range s.Cages {
		switch cage.Kind {
		case ast.CageSort:
			dir := 1
			if cage.Order.Descending() {
				dir = -1
			}
			if len(cage.Conditions) > 0 {
				if n, ok := cage.Conditions[0].Left.(ast.Named); ok {
					stages = append(stages, fmt.Sprintf("{ \"$sort\": { %q: %d } }", n.Name, dir))
				}
			}
		case ast.CageOffset:
			stages = append(stages, fmt.Sprintf("{ \"$skip\": %d }", cage.N))
		case ast.CageLimit:
			stages = append(stages, fmt.Sprintf("{ \"$limit\": %d }", cage.N))
		}
	}

	return fmt.Sprintf("db.%s.aggregate([%s])", s.Table, strings.Join(stages, ", "))
}

func mongoFind(s *ast.Statement) string {
	out := fmt.Sprintf("db.%s.find(%s, %s)", s.Table, mongoFilter(s), mongoProjection(s))
	for _, cage := range s.Cages {
		switch cage.Kind {
		case ast.CageLimit:
			out += fmt.Sprintf(".limit(%d)", cage.N)
		case ast.CageOffset:
			out += fmt.Sprintf(".skip(%d)", cage.N)
		case ast.CageSort:
			dir := 1
			if cage.Order.Descending() {
				dir = -1
			}
			if len(cage.Conditions) > 0 {
				if n, ok := cage.Conditions[0].Left.(ast.Named); ok {
					out += fmt.Sprintf(".sort({ %q: %d })", n.Name, dir)
				}
			}
		}
	}
	return out
}

func mongoFilter(s *ast.Statement) string {
	cage := s.FilterCage()
	if cage == nil || len(cage.Conditions) == 0 {
		return "{}"
	}
	var parts []string
	for _, c := range cage.Conditions {
		name := "_"
		if n, ok := c.Left.(ast.Named); ok {
			name = n.Name
		}
		switch c.Op {
		case ast.OpEq:
			parts = append(parts, fmt.Sprintf("%q: %s", name, mongoValue(c.Value)))
		case ast.OpNe:
			parts = append(parts, fmt.Sprintf("%q: { \"$ne\": %s }", name, mongoValue(c.Value)))
		case ast.OpGt:
			parts = append(parts, fmt.Sprintf("%q: { \"$gt\": %s }", name, mongoValue(c.Value)))
		case ast.OpGte:
			parts = append(parts, fmt.Sprintf("%q: { \"$gte\": %s }", name, mongoValue(c.Value)))
		case ast.OpLt:
			parts = append(parts, fmt.Sprintf("%q: { \"$lt\": %s }", name, mongoValue(c.Value)))
		case ast.OpLte:
			parts = append(parts, fmt.Sprintf("%q: { \"$lte\": %s }", name, mongoValue(c.Value)))
		case ast.OpIn:
			parts = append(parts, fmt.Sprintf("%q: { \"$in\": %s }", name, mongoValue(c.Value)))
		case ast.OpFuzzy, ast.OpLike, ast.OpILike:
			pat := strings.Trim(mongoValue(c.Value), "\"")
			pat = strings.ReplaceAll(pat, "%", ".*")
			parts = append(parts, fmt.Sprintf("%q: { \"$regex\": %q, \"$options\": \"i\" }", name, pat))
		case ast.OpIsNull:
			parts = append(parts, fmt.Sprintf("%q: null", name))
		case ast.OpIsNotNull:
			parts = append(parts, fmt.Sprintf("%q: { \"$ne\": null }", name))
		default:
			parts = append(parts, fmt.Sprintf("%q: %s", name, mongoValue(c.Value)))
		}
	}
	sep := ", "
	if cage.Op == ast.LogicalOr {
		var wrapped []string
		for _, p := range parts {
			wrapped = append(wrapped, "{ "+p+" }")
		}
		return fmt.Sprintf("{ \"$or\": [%s] }", strings.Join(wrapped, ", "))
	}
	return "{ " + strings.Join(parts, sep) + " }"
}

func mongoProjection(s *ast.Statement) string {
	var parts []string
	for _, col := range s.Columns {
		if n, ok := col.(ast.Named); ok {
			parts = append(parts, fmt.Sprintf("%q: 1", n.Name))
		}
	}
	if len(parts) == 0 {
		return "{}"
	}
	return "{ " + strings.Join(parts, ", ") + " }"
}

func mongoPayload(s *ast.Statement) string {
	cage := s.PayloadCage()
	if cage == nil {
		return "{}"
	}
	var parts []string
	for i, c := range cage.Conditions {
		name := ""
		if n, ok := c.Left.(ast.Named); ok {
			name = n.Name
		}
		if name == "" || strings.HasPrefix(name, "$") {
			// Positional insert values zip with the declared columns.
			if i < len(s.Columns) {
				if n, ok := s.Columns[i].(ast.Named); ok {
					name = n.Name
				}
			}
		}
		parts = append(parts, fmt.Sprintf("%q: %s", name, mongoValue(c.Value)))
	}
	return "{ " + strings.Join(parts, ", ") + " }"
}

func mongoValue(v ast.Value) string {
	switch x := v.(type) {
	case ast.Null, ast.NullUUID:
		return "null"
	case ast.Bool:
		return strconv.FormatBool(bool(x))
	case ast.Int:
		return strconv.FormatInt(int64(x), 10)
	case ast.Float:
		return strconv.FormatFloat(float64(x), 'g', -1, 64)
	case ast.String:
		return strconv.Quote(string(x))
	case ast.NamedParam:
		return strconv.Quote(":" + string(x))
	case ast.Param:
		return strconv.Quote("$" + strconv.Itoa(int(x)))
	case ast.Array:
		var elems []string
		for _, e := range x {
			elems = append(elems, mongoValue(e))
		}
		return "[" + strings.Join(elems, ", ") + "]"
	case ast.JSON:
		return string(x)
	}
	return "null"
}
