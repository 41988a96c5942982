package transpiler

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/qail-io/qail-go/ast"
)

// renderRedis lowers a statement into Redis / RediSearch command text.
// Relational reads become FT.SEARCH against idx:<table>; hash writes become
// HSET; the key-value actions map one-to-one onto Redis commands.
func renderRedis(s *ast.Statement) string {
	switch s.Action {
	case ast.ActionKvGet:
		return "GET " + s.Table
	case ast.ActionKvSet:
		cmd := fmt.Sprintf("SET %s %s", s.Table, redisEscape(string(s.RawValue)))
		if s.TTLSeconds != nil {
			cmd += " EX " + strconv.FormatInt(*s.TTLSeconds, 10)
		}
		if s.SetCondition != "" {
			cmd += " " + s.SetCondition
		}
		return cmd
	case ast.ActionKvDel:
		return "DEL " + s.Table
	case ast.ActionKvIncr:
		return "INCR " + s.Table
	case ast.ActionKvDecr:
		return "DECR " + s.Table
	case ast.ActionKvTtl:
		return "TTL " + s.Table
	case ast.ActionKvExpire:
		secs := int64(0)
		if s.TTLSeconds != nil {
			secs = *s.TTLSeconds
		}
		return fmt.Sprintf("EXPIRE %s %d", s.Table, secs)
	case ast.ActionKvExists:
		return "EXISTS " + s.Table
	case ast.ActionKvPing:
		return "PING"
	case ast.ActionGet:
		return redisSearch(s)
	case ast.ActionAdd, ast.ActionSet:
		return redisHset(s)
	case ast.ActionDel:
		return redisDel(s)
	case ast.ActionTxBegin:
		return "MULTI"
	case ast.ActionTxCommit:
		return "EXEC"
	case ast.ActionTxRollback:
		return "DISCARD"
	}
	return fmt.Sprintf("-- Action %s not supported for Redis", s.Action)
}

// redisKey derives `<table>:<id>` from the id/key condition, falling back
// to the bare table name.
func redisKey(s *ast.Statement) string {
	for _, cage := range s.Cages {
		if cage.Kind != ast.CageFilter && cage.Kind != ast.CagePayload {
			continue
		}
		for _, c := range cage.Conditions {
			n, ok := c.Left.(ast.Named)
			if !ok {
				continue
			}
			if n.Name == "id" || n.Name == "key" {
				return s.Table + ":" + redisValue(c.Value)
			}
		}
	}
	return s.Table
}

func redisHset(s *ast.Statement) string {
	key := redisKey(s)
	var fields []string
	for _, cage := range s.Cages {
		if cage.Kind != ast.CagePayload {
			continue
		}
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
			if name == "id" || name == "key" {
				continue
			}
			fields = append(fields, name+" "+redisEscape(redisValue(c.Value)))
		}
	}
	if len(fields) == 0 {
		return "-- no fields to HSET for key " + key
	}
	return "HSET " + key + " " + strings.Join(fields, " ")
}

func redisDel(s *ast.Statement) string {
	return "DEL " + redisKey(s)
}

func redisSearch(s *ast.Statement) string {
	index := "idx:" + s.Table
	var parts []string
	if cage := s.FilterCage(); cage != nil {
		for _, c := range cage.Conditions {
			name := ""
			if n, ok := c.Left.(ast.Named); ok {
				name = n.Name
			}
			field := "@" + name
			val := redisValue(c.Value)
			switch c.Op {
			case ast.OpEq:
				if _, isNum := c.Value.(ast.Int); isNum {
					parts = append(parts, fmt.Sprintf("%s:[%s %s]", field, val, val))
				} else {
					parts = append(parts, fmt.Sprintf("%s:{%s}", field, val))
				}
			case ast.OpGt, ast.OpGte:
				parts = append(parts, fmt.Sprintf("%s:[%s +inf]", field, val))
			case ast.OpLt, ast.OpLte:
				parts = append(parts, fmt.Sprintf("%s:[-inf %s]", field, val))
			case ast.OpFuzzy, ast.OpLike, ast.OpILike:
				parts = append(parts, fmt.Sprintf("%s:%s", field, strings.Trim(val, "%")))
			default:
				parts = append(parts, fmt.Sprintf("%s:{%s}", field, val))
			}
		}
	}
	query := "*"
	if len(parts) > 0 {
		query = strings.Join(parts, " ")
	}
	out := fmt.Sprintf("FT.SEARCH %s %q", index, query)
	if limit, ok := s.Limit(); ok {
		offset, _ := s.Offset()
		out += fmt.Sprintf(" LIMIT %d %d", offset, limit)
	}
	return out
}

func redisValue(v ast.Value) string {
	switch x := v.(type) {
	case ast.String:
		return string(x)
	case ast.Int:
		return strconv.FormatInt(int64(x), 10)
	case ast.Float:
		return strconv.FormatFloat(float64(x), 'g', -1, 64)
	case ast.Bool:
		return strconv.FormatBool(bool(x))
	case ast.NamedParam:
		return ":" + string(x)
	}
	return "unknown"
}

func redisEscape(s string) string {
	if strings.ContainsAny(s, " \t\n\"") {
		return strconv.Quote(s)
	}
	return s
}
