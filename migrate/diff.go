package migrate

import (
	"strings"

	"github.com/qail-io/qail-go/ast"
	"github.com/qail-io/qail-go/util"
)

// PlanStep is one emitted migration statement with its safety grade.
type PlanStep struct {
	Stmt           *ast.Statement
	Classification Classification
}

// Diff compares two schemas and returns the ordered statement list that
// transforms from into to. Creates come first, then per-table column and
// index work, then destructive drops, so a partial run leaves the database
// ahead rather than broken.
func Diff(from, to *Schema) []PlanStep {
	var plan []PlanStep

	// New tables.
	for _, name := range to.Order {
		if from.FindTable(name) != nil {
			continue
		}
		plan = append(plan, PlanStep{
			Stmt:           createTableStmt(to.Tables[name]),
			Classification: Reversible,
		})
	}

	// Surviving tables: columns and type changes.
	for _, name := range to.Order {
		oldTable := from.FindTable(name)
		newTable := to.Tables[name]
		if oldTable == nil {
			continue
		}

		for i := range newTable.Columns {
			col := &newTable.Columns[i]
			oldCol := oldTable.FindColumn(col.Name)
			if oldCol == nil {
				cls := Reversible
				if !col.Nullable && col.Default == "" {
					// NOT NULL without a default cannot backfill existing rows.
					cls = Irreversible
				}
				plan = append(plan, PlanStep{
					Stmt:           ast.AlterAddColumn(name, columnDef(col)),
					Classification: cls,
				})
				continue
			}
			if cls, changed := ClassifyTypeChange(oldCol.Type, col.Type); changed {
				plan = append(plan, PlanStep{
					Stmt:           ast.AlterColumnType(name, col.Name, col.Type, ""),
					Classification: cls,
				})
			}
		}

		for i := range oldTable.Columns {
			col := &oldTable.Columns[i]
			if newTable.FindColumn(col.Name) == nil {
				plan = append(plan, PlanStep{
					Stmt:           ast.AlterDropColumn(name, col.Name),
					Classification: DataLosing,
				})
			}
		}
	}

	// Indexes.
	oldIdx := indexByName(from.Indexes)
	newIdx := indexByName(to.Indexes)
	for _, idx := range to.Indexes {
		if _, ok := oldIdx[idx.Name]; ok {
			continue
		}
		name := idx.Name
		if name == "" {
			name = util.BuildPostgresConstraintName(idx.Table, strings.Join(idx.Columns, "_"), "idx")
		}
		plan = append(plan, PlanStep{
			Stmt: ast.MakeIndex(ast.IndexDef{
				Name: name, Table: idx.Table, Columns: idx.Columns, Unique: idx.Unique,
			}),
			Classification: Reversible,
		})
	}
	for _, idx := range from.Indexes {
		if _, ok := newIdx[idx.Name]; ok {
			continue
		}
		// Dropping an index is reversible while its definition is retained
		// in the source schema.
		plan = append(plan, PlanStep{
			Stmt:           ast.DropIndex(idx.Name),
			Classification: Reversible,
		})
	}

	// Dropped tables go last; they are the destructive tail of the plan.
	for _, name := range from.Order {
		if to.FindTable(name) != nil {
			continue
		}
		plan = append(plan, PlanStep{
			Stmt:           ast.Drop(name),
			Classification: DataLosing,
		})
	}

	return plan
}

func indexByName(indexes []Index) map[string]Index {
	m := make(map[string]Index, len(indexes))
	for _, idx := range indexes {
		m[idx.Name] = idx
	}
	return m
}

func createTableStmt(t *Table) *ast.Statement {
	stmt := ast.Make(t.Name)
	for i := range t.Columns {
		stmt.Columns = append(stmt.Columns, columnDef(&t.Columns[i]))
	}
	return stmt
}

func columnDef(c *Column) ast.Def {
	def := ast.Def{Name: c.Name, DataType: c.Type}
	if c.PrimaryKey {
		def.Constraints = append(def.Constraints, ast.Constraint{Kind: ast.ConstraintPrimaryKey})
	}
	if !c.Nullable && !c.PrimaryKey {
		def.Constraints = append(def.Constraints, ast.Constraint{Kind: ast.ConstraintNotNull})
	}
	if c.Unique && !c.PrimaryKey {
		def.Constraints = append(def.Constraints, ast.Constraint{Kind: ast.ConstraintUnique})
	}
	if c.Default != "" {
		def.Constraints = append(def.Constraints, ast.Constraint{Kind: ast.ConstraintDefault, Arg: c.Default})
	}
	if c.References != "" {
		def.Constraints = append(def.Constraints, ast.Constraint{Kind: ast.ConstraintReferences, Arg: c.References})
	}
	return def
}
