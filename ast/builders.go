package ast

// Constructors. Each returns a fresh Statement bound to a target name;
// the fluent methods below attach clauses. Builder methods never perform
// I/O and never fail; gross misuse panics.

// Get builds a SELECT.
func Get(table string) *Statement {
	return &Statement{Action: ActionGet, Table: table}
}

// Add builds an INSERT.
func Add(table string) *Statement {
	return &Statement{Action: ActionAdd, Table: table}
}

// Set builds an UPDATE.
func Set(table string) *Statement {
	return &Statement{Action: ActionSet, Table: table}
}

// Del builds a DELETE.
func Del(table string) *Statement {
	return &Statement{Action: ActionDel, Table: table}
}

// Export builds COPY (SELECT ...) TO STDOUT.
func Export(table string) *Statement {
	return &Statement{Action: ActionExport, Table: table}
}

// Make builds a CREATE TABLE.
func Make(table string) *Statement {
	return &Statement{Action: ActionMake, Table: table}
}

// MakeIndex builds a CREATE INDEX.
func MakeIndex(def IndexDef) *Statement {
	return &Statement{Action: ActionMakeIndex, Table: def.Table, IndexDef: &def}
}

// Drop builds a DROP TABLE.
func Drop(table string) *Statement {
	return &Statement{Action: ActionDrop, Table: table}
}

// DropIndex builds a DROP INDEX.
func DropIndex(name string) *Statement {
	return &Statement{Action: ActionDropIndex, Table: name}
}

// Truncate builds TRUNCATE TABLE.
func Truncate(table string) *Statement {
	return &Statement{Action: ActionTruncate, Table: table}
}

// Lock builds LOCK TABLE with the given mode (e.g. "ACCESS EXCLUSIVE").
func Lock(table, mode string) *Statement {
	return &Statement{Action: ActionLock, Table: table, LockMode: mode}
}

// Explain wraps a statement in EXPLAIN.
func Explain(inner *Statement) *Statement {
	return &Statement{Action: ActionExplain, Table: inner.Table, SourceQuery: inner}
}

// ExplainAnalyze wraps a statement in EXPLAIN ANALYZE.
func ExplainAnalyze(inner *Statement) *Statement {
	return &Statement{Action: ActionExplainAnalyze, Table: inner.Table, SourceQuery: inner}
}

// CreateView builds CREATE VIEW name AS query.
func CreateView(name string, query *Statement) *Statement {
	return &Statement{Action: ActionCreateView, Table: name, SourceQuery: query}
}

// DropView builds DROP VIEW.
func DropView(name string) *Statement {
	return &Statement{Action: ActionDropView, Table: name}
}

// CreateMView builds CREATE MATERIALIZED VIEW name AS query.
func CreateMView(name string, query *Statement) *Statement {
	return &Statement{Action: ActionCreateMView, Table: name, SourceQuery: query}
}

// RefreshMView builds REFRESH MATERIALIZED VIEW.
func RefreshMView(name string) *Statement {
	return &Statement{Action: ActionRefreshMView, Table: name}
}

// DropMView builds DROP MATERIALIZED VIEW.
func DropMView(name string) *Statement {
	return &Statement{Action: ActionDropMView, Table: name}
}

// AlterAddColumn builds ALTER TABLE table ADD COLUMN def.
func AlterAddColumn(table string, def Def) *Statement {
	return &Statement{Action: ActionAlterAdd, Table: table, Columns: []Expr{def}}
}

// AlterDropColumn builds ALTER TABLE table DROP COLUMN col.
func AlterDropColumn(table, col string) *Statement {
	return &Statement{Action: ActionAlterDrop, Table: table, Columns: []Expr{Named{Name: col}}}
}

// AlterColumnType builds ALTER TABLE table ALTER COLUMN col TYPE newType.
func AlterColumnType(table, col, newType, using string) *Statement {
	return &Statement{
		Action:    ActionAlterType,
		Table:     table,
		AlterType: &AlterTypeDef{Column: col, NewType: newType, Using: using},
	}
}

// Begin/Commit/Rollback build the transaction control statements.
func Begin() *Statement    { return &Statement{Action: ActionTxBegin} }
func Commit() *Statement   { return &Statement{Action: ActionTxCommit} }
func Rollback() *Statement { return &Statement{Action: ActionTxRollback} }

// Savepoint, ReleaseSavepoint and RollbackTo build savepoint control
// statements.
func Savepoint(name string) *Statement {
	return &Statement{Action: ActionSavepoint, SavepointName: name}
}
func ReleaseSavepoint(name string) *Statement {
	return &Statement{Action: ActionReleaseSavepoint, SavepointName: name}
}
func RollbackTo(name string) *Statement {
	return &Statement{Action: ActionRollbackTo, SavepointName: name}
}

// VectorSearch builds a similarity search against a vector collection.
func VectorSearch(collection string, vector []float32) *Statement {
	return &Statement{Action: ActionVectorSearch, Table: collection, Vector: vector}
}

// VectorUpsert builds a point upsert against a vector collection.
func VectorUpsert(collection string) *Statement {
	return &Statement{Action: ActionVectorUpsert, Table: collection}
}

// VectorDelete builds a point delete against a vector collection.
func VectorDelete(collection string) *Statement {
	return &Statement{Action: ActionVectorDelete, Table: collection}
}

// Key-value constructors; the target is the key (or channel for Ping).
func KvGet(key string) *Statement  { return &Statement{Action: ActionKvGet, Table: key} }
func KvDel(key string) *Statement  { return &Statement{Action: ActionKvDel, Table: key} }
func KvIncr(key string) *Statement { return &Statement{Action: ActionKvIncr, Table: key} }
func KvDecr(key string) *Statement { return &Statement{Action: ActionKvDecr, Table: key} }
func KvTtl(key string) *Statement  { return &Statement{Action: ActionKvTtl, Table: key} }
func KvExists(key string) *Statement {
	return &Statement{Action: ActionKvExists, Table: key}
}
func KvPing() *Statement { return &Statement{Action: ActionKvPing} }

// KvSet builds SET key value.
func KvSet(key string, value []byte) *Statement {
	return &Statement{Action: ActionKvSet, Table: key, RawValue: value}
}

// KvExpire builds EXPIRE key seconds.
func KvExpire(key string, seconds int64) *Statement {
	return &Statement{Action: ActionKvExpire, Table: key, TTLSeconds: &seconds}
}

// Fluent attachments.

// ColumnNames projects plain named columns.
func (s *Statement) ColumnNames(names ...string) *Statement {
	for _, n := range names {
		s.Columns = append(s.Columns, Named{Name: n})
	}
	return s
}

// ColumnExprs projects arbitrary expressions.
func (s *Statement) ColumnExprs(exprs ...Expr) *Statement {
	s.Columns = append(s.Columns, exprs...)
	return s
}

// Filter appends an AND condition to the filter cage.
func (s *Statement) Filter(col string, op Operator, value any) *Statement {
	return s.filterWith(LogicalAnd, Condition{Left: Named{Name: col}, Op: op, Value: ToValue(value)})
}

// OrFilter appends an OR condition to the filter cage.
func (s *Statement) OrFilter(col string, op Operator, value any) *Statement {
	return s.filterWith(LogicalOr, Condition{Left: Named{Name: col}, Op: op, Value: ToValue(value)})
}

// FilterCond appends a prebuilt condition (typed-column layer, expression
// left-hand sides) to the filter cage.
func (s *Statement) FilterCond(cond Condition) *Statement {
	return s.filterWith(LogicalAnd, cond)
}

func (s *Statement) filterWith(op LogicalOp, cond Condition) *Statement {
	if cage := s.FilterCage(); cage != nil {
		if op == LogicalOr {
			cage.Op = LogicalOr
		}
		cage.Conditions = append(cage.Conditions, cond)
		return s
	}
	s.Cages = append(s.Cages, Cage{Kind: CageFilter, Conditions: []Condition{cond}, Op: op})
	return s
}

// Join appends a join on leftCol = rightCol.
func (s *Statement) Join(kind JoinKind, table, leftCol, rightCol string) *Statement {
	s.Joins = append(s.Joins, Join{
		Kind:  kind,
		Table: table,
		On: []Condition{{
			Left:  Named{Name: leftCol},
			Op:    OpEq,
			Value: ColumnRef(rightCol),
		}},
	})
	return s
}

// JoinOnTrue appends a join with ON TRUE (lateral joins).
func (s *Statement) JoinOnTrue(kind JoinKind, table string) *Statement {
	s.Joins = append(s.Joins, Join{Kind: kind, Table: table, OnTrue: true})
	return s
}

// OrderBy appends one ORDER BY element.
func (s *Statement) OrderBy(col string, order SortOrder) *Statement {
	s.Cages = append(s.Cages, Cage{
		Kind:       CageSort,
		Order:      order,
		Conditions: []Condition{{Left: Named{Name: col}}},
	})
	return s
}

// OrderByExpr appends one ORDER BY element over an expression.
func (s *Statement) OrderByExpr(e Expr, order SortOrder) *Statement {
	s.Cages = append(s.Cages, Cage{
		Kind:       CageSort,
		Order:      order,
		Conditions: []Condition{{Left: e}},
	})
	return s
}

// WithLimit attaches LIMIT n.
func (s *Statement) WithLimit(n uint64) *Statement {
	s.Cages = append(s.Cages, Cage{Kind: CageLimit, N: n})
	return s
}

// WithOffset attaches OFFSET n.
func (s *Statement) WithOffset(n uint64) *Statement {
	s.Cages = append(s.Cages, Cage{Kind: CageOffset, N: n})
	return s
}

// GroupByNames attaches GROUP BY over named columns.
func (s *Statement) GroupByNames(names ...string) *Statement {
	for _, n := range names {
		s.GroupBy = append(s.GroupBy, Named{Name: n})
	}
	return s
}

// Rollup and Cube switch the GROUP BY mode.
func (s *Statement) Rollup() *Statement {
	s.GroupByMode = GroupRollup
	return s
}
func (s *Statement) Cube() *Statement {
	s.GroupByMode = GroupCube
	return s
}

// HavingCond appends a HAVING condition.
func (s *Statement) HavingCond(cond Condition) *Statement {
	s.Having = append(s.Having, cond)
	return s
}

// Values appends one VALUES row (insert) as a payload cage.
func (s *Statement) Values(values ...any) *Statement {
	cage := Cage{Kind: CagePayload}
	for i, v := range values {
		cage.Conditions = append(cage.Conditions, Condition{
			Left:  Named{Name: positionalName(i + 1)},
			Op:    OpEq,
			Value: ToValue(v),
		})
	}
	s.Cages = append(s.Cages, cage)
	return s
}

// SetValue appends one col = value assignment (update) to the payload cage.
func (s *Statement) SetValue(col string, value any) *Statement {
	if cage := s.PayloadCage(); cage != nil {
		cage.Conditions = append(cage.Conditions, Condition{
			Left:  Named{Name: col},
			Op:    OpEq,
			Value: ToValue(value),
		})
		return s
	}
	s.Cages = append(s.Cages, Cage{Kind: CagePayload, Conditions: []Condition{{
		Left:  Named{Name: col},
		Op:    OpEq,
		Value: ToValue(value),
	}}})
	return s
}

// ReturningNames attaches RETURNING over named columns.
func (s *Statement) ReturningNames(names ...string) *Statement {
	for _, n := range names {
		s.Returning = append(s.Returning, Named{Name: n})
	}
	return s
}

// With attaches a CTE.
func (s *Statement) With(name string, base *Statement) *Statement {
	s.CTEs = append(s.CTEs, CTE{Name: name, Base: base})
	return s
}

// WithRecursive attaches a recursive CTE whose base and recursive parts are
// joined by UNION ALL.
func (s *Statement) WithRecursive(name string, columns []string, base, recursive *Statement) *Statement {
	s.CTEs = append(s.CTEs, CTE{
		Name:          name,
		Recursive:     true,
		Columns:       columns,
		Base:          base,
		RecursivePart: recursive,
	})
	return s
}

// Conflict attaches ON CONFLICT (cols) DO NOTHING.
func (s *Statement) Conflict(cols ...string) *Statement {
	s.OnConflict = &OnConflict{Columns: cols, Action: ConflictDoNothing}
	return s
}

// ConflictUpdate attaches ON CONFLICT (cols) DO UPDATE SET assignments.
func (s *Statement) ConflictUpdate(cols []string, assignments ...Assignment) *Statement {
	s.OnConflict = &OnConflict{
		Columns:     cols,
		Action:      ConflictDoUpdate,
		Assignments: assignments,
	}
	return s
}

// DistinctRows attaches DISTINCT.
func (s *Statement) DistinctRows() *Statement {
	s.Distinct = true
	return s
}

// DistinctOnNames attaches DISTINCT ON (cols).
func (s *Statement) DistinctOnNames(names ...string) *Statement {
	s.Distinct = true
	for _, n := range names {
		s.DistinctOn = append(s.DistinctOn, Named{Name: n})
	}
	return s
}

// From attaches an INSERT ... SELECT source query.
func (s *Statement) From(query *Statement) *Statement {
	s.SourceQuery = query
	return s
}

// Union/UnionAll/Intersect/Except chain set operations.
func (s *Statement) Union(other *Statement) *Statement {
	s.SetOps = append(s.SetOps, SetOp{Kind: SetUnion, Stmt: other})
	return s
}
func (s *Statement) UnionAll(other *Statement) *Statement {
	s.SetOps = append(s.SetOps, SetOp{Kind: SetUnionAll, Stmt: other})
	return s
}
func (s *Statement) Intersect(other *Statement) *Statement {
	s.SetOps = append(s.SetOps, SetOp{Kind: SetIntersect, Stmt: other})
	return s
}
func (s *Statement) Except(other *Statement) *Statement {
	s.SetOps = append(s.SetOps, SetOp{Kind: SetExcept, Stmt: other})
	return s
}

// Defs attaches column definitions to a CREATE TABLE.
func (s *Statement) Defs(defs ...Def) *Statement {
	for _, d := range defs {
		s.Columns = append(s.Columns, d)
	}
	return s
}

// Constraint attaches a table-level constraint to a CREATE TABLE.
func (s *Statement) Constraint(c TableConstraint) *Statement {
	s.TableConstraints = append(s.TableConstraints, c)
	return s
}

// Threshold sets the minimum similarity score for a vector search.
func (s *Statement) Threshold(score float32) *Statement {
	s.ScoreThreshold = &score
	return s
}

// Ttl sets the TTL of a key-value SET.
func (s *Statement) Ttl(seconds int64) *Statement {
	s.TTLSeconds = &seconds
	return s
}

// IfNotExists makes a key-value SET conditional (SET ... NX).
func (s *Statement) IfNotExists() *Statement {
	s.SetCondition = "NX"
	return s
}

// IfExists makes a key-value SET conditional (SET ... XX).
func (s *Statement) IfExists() *Statement {
	s.SetCondition = "XX"
	return s
}

func positionalName(i int) string {
	return "$" + itoa(i)
}

func itoa(i int) string {
	if i == 0 {
		return "0"
	}
	var b [20]byte
	pos := len(b)
	for i > 0 {
		pos--
		b[pos] = byte('0' + i%10)
		i /= 10
	}
	return string(b[pos:])
}
