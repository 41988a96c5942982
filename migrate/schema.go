// Package migrate compares two parsed schemas and emits an ordered IR
// migration plan, with each step classified by how safely it can be applied
// or reverted.
package migrate

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Column is one column of a schema table.
type Column struct {
	Name       string `json:"name"`
	Type       string `json:"type"`
	Nullable   bool   `json:"nullable"`
	PrimaryKey bool   `json:"primary_key"`
	Unique     bool   `json:"unique"`
	Default    string `json:"default,omitempty"`
	References string `json:"references,omitempty"` // table(column)
}

// Table is a named ordered column list.
type Table struct {
	Name    string   `json:"name"`
	Columns []Column `json:"columns"`
}

// FindColumn returns the named column, or nil.
func (t *Table) FindColumn(name string) *Column {
	for i := range t.Columns {
		if strings.EqualFold(t.Columns[i].Name, name) {
			return &t.Columns[i]
		}
	}
	return nil
}

// Index is one secondary index declaration.
type Index struct {
	Name    string   `json:"name"`
	Table   string   `json:"table"`
	Columns []string `json:"columns"`
	Unique  bool     `json:"unique"`
}

// HintKind tags a migration hint.
type HintKind int

const (
	HintRename HintKind = iota
	HintTransform
	HintDrop
)

// Hint is a migration annotation: a column rename, an expression-backed
// transform, or a confirmed drop.
type Hint struct {
	Kind      HintKind
	From      string // table.column (rename) or expression (transform)
	To        string // table.column
	Target    string // table (drop)
	Confirmed bool
}

// Schema is the surface schema: tables by name, indexes, and hints.
type Schema struct {
	Tables  map[string]*Table
	Order   []string // table declaration order
	Indexes []Index
	Hints   []Hint
}

// NewSchema returns an empty schema.
func NewSchema() *Schema {
	return &Schema{Tables: map[string]*Table{}}
}

// AddTable registers a table, preserving declaration order.
func (s *Schema) AddTable(t *Table) {
	if _, seen := s.Tables[t.Name]; !seen {
		s.Order = append(s.Order, t.Name)
	}
	s.Tables[t.Name] = t
}

// FindTable returns the named table, or nil.
func (s *Schema) FindTable(name string) *Table {
	return s.Tables[name]
}

// jsonSchema is the JSON form of a schema file.
type jsonSchema struct {
	Tables  []Table `json:"tables"`
	Indexes []Index `json:"indexes,omitempty"`
}

// ParseSchema parses a schema from either the .qail text grammar or its
// JSON form, detected by a leading '{'.
func ParseSchema(input string) (*Schema, error) {
	if strings.HasPrefix(strings.TrimSpace(input), "{") {
		return parseJSONSchema(input)
	}
	return parseTextSchema(input)
}

func parseJSONSchema(input string) (*Schema, error) {
	var js jsonSchema
	if err := json.Unmarshal([]byte(input), &js); err != nil {
		return nil, fmt.Errorf("parse schema JSON: %w", err)
	}
	s := NewSchema()
	for i := range js.Tables {
		t := js.Tables[i]
		s.AddTable(&t)
	}
	s.Indexes = js.Indexes
	return s, nil
}

// ToJSON renders the schema into its JSON form.
func (s *Schema) ToJSON() (string, error) {
	js := jsonSchema{Indexes: s.Indexes}
	for _, name := range s.Order {
		js.Tables = append(js.Tables, *s.Tables[name])
	}
	out, err := json.MarshalIndent(js, "", "  ")
	if err != nil {
		return "", err
	}
	return string(out), nil
}

// parseTextSchema parses the .qail text grammar:
//
//	table NAME { COL+ }
//	[unique ]index NAME on TABLE (COLS)
//	rename TABLE.COL -> TABLE.COL
//	transform EXPR -> TABLE.COL
//	drop TABLE [confirm]
func parseTextSchema(input string) (*Schema, error) {
	s := NewSchema()
	lines := strings.Split(input, "\n")
	for i := 0; i < len(lines); i++ {
		line := strings.TrimSpace(lines[i])
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		switch {
		case strings.HasPrefix(line, "table "):
			t := &Table{Name: strings.TrimSpace(strings.TrimSuffix(strings.TrimPrefix(line, "table "), "{"))}
			if t.Name == "" {
				return nil, fmt.Errorf("line %d: table name required", i+1)
			}
			for i++; i < len(lines); i++ {
				col := strings.TrimSpace(lines[i])
				if col == "}" || strings.HasPrefix(col, "}") {
					break
				}
				if col == "" || strings.HasPrefix(col, "#") {
					continue
				}
				c, err := parseColumnLine(col)
				if err != nil {
					return nil, fmt.Errorf("line %d: %w", i+1, err)
				}
				t.Columns = append(t.Columns, c)
			}
			s.AddTable(t)
		case strings.HasPrefix(line, "unique index "), strings.HasPrefix(line, "index "):
			idx, err := parseIndexLine(line)
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", i+1, err)
			}
			s.Indexes = append(s.Indexes, idx)
		case strings.HasPrefix(line, "rename "):
			parts := strings.Split(strings.TrimPrefix(line, "rename "), "->")
			if len(parts) != 2 {
				return nil, fmt.Errorf("line %d: rename requires 'from -> to'", i+1)
			}
			s.Hints = append(s.Hints, Hint{
				Kind: HintRename,
				From: strings.TrimSpace(parts[0]),
				To:   strings.TrimSpace(parts[1]),
			})
		case strings.HasPrefix(line, "transform "):
			parts := strings.Split(strings.TrimPrefix(line, "transform "), "->")
			if len(parts) != 2 {
				return nil, fmt.Errorf("line %d: transform requires 'expr -> target'", i+1)
			}
			s.Hints = append(s.Hints, Hint{
				Kind: HintTransform,
				From: strings.TrimSpace(parts[0]),
				To:   strings.TrimSpace(parts[1]),
			})
		case strings.HasPrefix(line, "drop "):
			rest := strings.Fields(strings.TrimPrefix(line, "drop "))
			if len(rest) == 0 {
				return nil, fmt.Errorf("line %d: drop requires a target", i+1)
			}
			s.Hints = append(s.Hints, Hint{
				Kind:      HintDrop,
				Target:    rest[0],
				Confirmed: len(rest) > 1 && rest[1] == "confirm",
			})
		default:
			return nil, fmt.Errorf("line %d: unknown statement %q", i+1, line)
		}
	}
	return s, nil
}

// parseColumnLine parses `name type [constraints...]`.
func parseColumnLine(line string) (Column, error) {
	parts := strings.Fields(strings.TrimSuffix(line, ","))
	if len(parts) < 2 {
		return Column{}, fmt.Errorf("invalid column %q", line)
	}
	c := Column{Name: parts[0], Type: strings.ToLower(parts[1]), Nullable: true}
	for i := 2; i < len(parts); i++ {
		switch parts[i] {
		case "primary_key":
			c.PrimaryKey = true
			c.Nullable = false
		case "not_null":
			c.Nullable = false
		case "nullable":
			c.Nullable = true
		case "unique":
			c.Unique = true
		case "default":
			if i+1 < len(parts) {
				i++
				c.Default = parts[i]
			}
		case "references":
			if i+1 < len(parts) {
				i++
				c.References = parts[i]
			}
		default:
			if strings.HasPrefix(parts[i], "references") && strings.Contains(parts[i], "(") {
				c.References = strings.TrimPrefix(parts[i], "references")
			}
		}
	}
	return c, nil
}

// parseIndexLine parses `[unique ]index NAME on TABLE (COLS)`.
func parseIndexLine(line string) (Index, error) {
	idx := Index{}
	rest := line
	if strings.HasPrefix(rest, "unique ") {
		idx.Unique = true
		rest = strings.TrimPrefix(rest, "unique ")
	}
	rest = strings.TrimPrefix(rest, "index ")

	parts := strings.SplitN(rest, " on ", 2)
	if len(parts) != 2 {
		return idx, fmt.Errorf("invalid index %q", line)
	}
	idx.Name = strings.TrimSpace(parts[0])

	open := strings.IndexByte(parts[1], '(')
	closing := strings.IndexByte(parts[1], ')')
	if open < 0 || closing < open {
		return idx, fmt.Errorf("missing column list in index %q", line)
	}
	idx.Table = strings.TrimSpace(parts[1][:open])
	for _, col := range strings.Split(parts[1][open+1:closing], ",") {
		idx.Columns = append(idx.Columns, strings.TrimSpace(col))
	}
	return idx, nil
}
