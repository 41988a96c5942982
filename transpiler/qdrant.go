package transpiler

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/qail-io/qail-go/ast"
)

// renderQdrant lowers a statement into the JSON body of the matching Qdrant
// points API call (search, upsert, or delete).
func renderQdrant(s *ast.Statement) string {
	switch s.Action {
	case ast.ActionGet, ast.ActionVectorSearch:
		return qdrantSearch(s)
	case ast.ActionAdd, ast.ActionVectorUpsert:
		return qdrantUpsert(s)
	case ast.ActionDel, ast.ActionVectorDelete:
		return qdrantDelete(s)
	}
	return fmt.Sprintf("{ \"error\": \"Action %s not supported for Qdrant\" }", s.Action)
}

func qdrantSearch(s *ast.Statement) string {
	var parts []string

	switch {
	case len(s.Vector) > 0:
		if s.VectorName != "" {
			parts = append(parts, fmt.Sprintf("\"vector\": { \"name\": %q, \"vector\": %s }",
				s.VectorName, qdrantFloats(s.Vector)))
		} else {
			parts = append(parts, "\"vector\": "+qdrantFloats(s.Vector))
		}
	default:
		// A fuzzy filter on the vector field carries the query; strings are
		// embedding placeholders resolved at runtime.
		if cage := s.FilterCage(); cage != nil {
			for _, c := range cage.Conditions {
				if c.Op != ast.OpFuzzy {
					continue
				}
				if str, ok := c.Value.(ast.String); ok {
					parts = append(parts, fmt.Sprintf("\"vector\": \"{{EMBED:%s}}\"", string(str)))
				} else {
					parts = append(parts, "\"vector\": "+qdrantValue(c.Value))
				}
				break
			}
		}
	}

	if f := qdrantFilter(s); f != "" {
		parts = append(parts, "\"filter\": "+f)
	}
	if s.ScoreThreshold != nil {
		parts = append(parts, "\"score_threshold\": "+
			strconv.FormatFloat(float64(*s.ScoreThreshold), 'g', -1, 32))
	}
	if s.WithVector {
		parts = append(parts, "\"with_vector\": true")
	}
	limit := uint64(10)
	if n, ok := s.Limit(); ok {
		limit = n
	}
	parts = append(parts, "\"limit\": "+strconv.FormatUint(limit, 10))
	if off, ok := s.Offset(); ok {
		parts = append(parts, "\"offset\": "+strconv.FormatUint(off, 10))
	}

	return "{ " + strings.Join(parts, ", ") + " }"
}

// qdrantFilter renders non-vector conditions as a must clause.
func qdrantFilter(s *ast.Statement) string {
	cage := s.FilterCage()
	if cage == nil {
		return ""
	}
	var must []string
	for _, c := range cage.Conditions {
		if c.Op == ast.OpFuzzy {
			continue
		}
		name := ""
		if n, ok := c.Left.(ast.Named); ok {
			name = n.Name
		}
		switch c.Op {
		case ast.OpEq:
			must = append(must, fmt.Sprintf("{ \"key\": %q, \"match\": { \"value\": %s } }",
				name, qdrantValue(c.Value)))
		case ast.OpGt:
			must = append(must, fmt.Sprintf("{ \"key\": %q, \"range\": { \"gt\": %s } }",
				name, qdrantValue(c.Value)))
		case ast.OpGte:
			must = append(must, fmt.Sprintf("{ \"key\": %q, \"range\": { \"gte\": %s } }",
				name, qdrantValue(c.Value)))
		case ast.OpLt:
			must = append(must, fmt.Sprintf("{ \"key\": %q, \"range\": { \"lt\": %s } }",
				name, qdrantValue(c.Value)))
		case ast.OpLte:
			must = append(must, fmt.Sprintf("{ \"key\": %q, \"range\": { \"lte\": %s } }",
				name, qdrantValue(c.Value)))
		default:
			must = append(must, fmt.Sprintf("{ \"key\": %q, \"match\": { \"value\": %s } }",
				name, qdrantValue(c.Value)))
		}
	}
	if len(must) == 0 {
		return ""
	}
	return "{ \"must\": [" + strings.Join(must, ", ") + "] }"
}

func qdrantUpsert(s *ast.Statement) string {
	pointID := "0"
	vector := qdrantFloats(s.Vector)
	var payload []string

	for _, cage := range s.Cages {
		if cage.Kind != ast.CagePayload && cage.Kind != ast.CageFilter {
			continue
		}
		for _, c := range cage.Conditions {
			name := ""
			if n, ok := c.Left.(ast.Named); ok {
				name = n.Name
			}
			switch name {
			case "id":
				pointID = qdrantValue(c.Value)
			case "vector":
				vector = qdrantValue(c.Value)
			default:
				payload = append(payload, fmt.Sprintf("%q: %s", name, qdrantValue(c.Value)))
			}
		}
	}

	payloadJSON := "{}"
	if len(payload) > 0 {
		payloadJSON = "{ " + strings.Join(payload, ", ") + " }"
	}
	return fmt.Sprintf("{ \"points\": [{ \"id\": %s, \"vector\": %s, \"payload\": %s }] }",
		pointID, vector, payloadJSON)
}

func qdrantDelete(s *ast.Statement) string {
	var ids []string
	if cage := s.FilterCage(); cage != nil {
		for _, c := range cage.Conditions {
			if n, ok := c.Left.(ast.Named); ok && n.Name == "id" {
				ids = append(ids, qdrantValue(c.Value))
			}
		}
	}
	if len(ids) > 0 {
		return "{ \"points\": [" + strings.Join(ids, ", ") + "] }"
	}
	if f := qdrantFilter(s); f != "" {
		return "{ \"filter\": " + f + " }"
	}
	return "{ \"points\": [] }"
}

func qdrantFloats(v []float32) string {
	if len(v) == 0 {
		return "[0.0]"
	}
	var b strings.Builder
	b.WriteByte('[')
	for i, f := range v {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(strconv.FormatFloat(float64(f), 'g', -1, 32))
	}
	b.WriteByte(']')
	return b.String()
}

func qdrantValue(v ast.Value) string {
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
	case ast.Vector:
		return qdrantFloats(x)
	case ast.Array:
		var elems []string
		for _, e := range x {
			elems = append(elems, qdrantValue(e))
		}
		return "[" + strings.Join(elems, ", ") + "]"
	case ast.JSON:
		return string(x)
	case ast.UUID:
		data, _, _ := EncodeValueText(v)
		return strconv.Quote(string(data))
	}
	return "null"
}
