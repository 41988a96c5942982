package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qail-io/qail-go/ast"
)

func TestParseSimpleGet(t *testing.T) {
	stmt, err := Parse("get users")
	require.NoError(t, err)
	assert.Equal(t, ast.ActionGet, stmt.Action)
	assert.Equal(t, "users", stmt.Table)
	assert.Empty(t, stmt.Columns)
}

func TestParseGetWithFieldsWhereLimit(t *testing.T) {
	stmt, err := Parse("get users fields id, email where active = true limit 10")
	require.NoError(t, err)
	assert.Equal(t, []ast.Expr{ast.Named{Name: "id"}, ast.Named{Name: "email"}}, stmt.Columns)

	cage := stmt.FilterCage()
	require.NotNil(t, cage)
	require.Len(t, cage.Conditions, 1)
	assert.Equal(t, ast.Named{Name: "active"}, cage.Conditions[0].Left)
	assert.Equal(t, ast.OpEq, cage.Conditions[0].Op)
	assert.Equal(t, ast.Bool(true), cage.Conditions[0].Value)

	limit, ok := stmt.Limit()
	assert.True(t, ok)
	assert.Equal(t, uint64(10), limit)
}

func TestParseDistinctOn(t *testing.T) {
	stmt, err := Parse("get distinct on (phone_number) msgs fields phone_number, created_at order by phone_number, created_at desc")
	require.NoError(t, err)
	assert.True(t, stmt.Distinct)
	assert.Equal(t, []ast.Expr{ast.Named{Name: "phone_number"}}, stmt.DistinctOn)

	var sorts []ast.Cage
	for _, cage := range stmt.Cages {
		if cage.Kind == ast.CageSort {
			sorts = append(sorts, cage)
		}
	}
	require.Len(t, sorts, 2)
	assert.Equal(t, ast.SortAsc, sorts[0].Order)
	assert.Equal(t, ast.SortDesc, sorts[1].Order)
}

func TestParseUpsert(t *testing.T) {
	stmt, err := Parse("add users fields name, email values 'Alice', 'a@x' conflict (email) update name = :name")
	require.NoError(t, err)
	assert.Equal(t, ast.ActionAdd, stmt.Action)

	cage := stmt.PayloadCage()
	require.NotNil(t, cage)
	require.Len(t, cage.Conditions, 2)
	assert.Equal(t, ast.String("Alice"), cage.Conditions[0].Value)
	assert.Equal(t, ast.String("a@x"), cage.Conditions[1].Value)

	oc := stmt.OnConflict
	require.NotNil(t, oc)
	assert.Equal(t, []string{"email"}, oc.Columns)
	assert.Equal(t, ast.ConflictDoUpdate, oc.Action)
	require.Len(t, oc.Assignments, 1)
	assert.Equal(t, "name", oc.Assignments[0].Column)
	assert.Equal(t, ast.Literal{Value: ast.NamedParam("name")}, oc.Assignments[0].Expr)
}

func TestParseUpdate(t *testing.T) {
	stmt, err := Parse("set users values verified = true where id = :id")
	require.NoError(t, err)
	assert.Equal(t, ast.ActionSet, stmt.Action)

	payload := stmt.PayloadCage()
	require.NotNil(t, payload)
	assert.Equal(t, ast.Named{Name: "verified"}, payload.Conditions[0].Left)

	filter := stmt.FilterCage()
	require.NotNil(t, filter)
	assert.Equal(t, ast.NamedParam("id"), filter.Conditions[0].Value)
}

func TestParseDelete(t *testing.T) {
	stmt, err := Parse("del users where id = $1")
	require.NoError(t, err)
	assert.Equal(t, ast.ActionDel, stmt.Action)
	assert.Equal(t, ast.Param(1), stmt.FilterCage().Conditions[0].Value)
}

func TestParseCreateTable(t *testing.T) {
	stmt, err := Parse("make users id:uuid:pk, email:text:unique:notnull, created_at:timestamptz:default=now()")
	require.NoError(t, err)
	assert.Equal(t, ast.ActionMake, stmt.Action)
	require.Len(t, stmt.Columns, 3)

	id := stmt.Columns[0].(ast.Def)
	assert.Equal(t, "id", id.Name)
	assert.Equal(t, "uuid", id.DataType)
	assert.Equal(t, []ast.Constraint{{Kind: ast.ConstraintPrimaryKey}}, id.Constraints)

	email := stmt.Columns[1].(ast.Def)
	assert.Equal(t, []ast.Constraint{
		{Kind: ast.ConstraintUnique},
		{Kind: ast.ConstraintNotNull},
	}, email.Constraints)

	created := stmt.Columns[2].(ast.Def)
	assert.Equal(t, []ast.Constraint{{Kind: ast.ConstraintDefault, Arg: "now()"}}, created.Constraints)
}

func TestParseCreateIndex(t *testing.T) {
	stmt, err := Parse("index idx_name on users (email) unique")
	require.NoError(t, err)
	assert.Equal(t, ast.ActionMakeIndex, stmt.Action)
	require.NotNil(t, stmt.IndexDef)
	assert.Equal(t, "idx_name", stmt.IndexDef.Name)
	assert.Equal(t, "users", stmt.IndexDef.Table)
	assert.Equal(t, []string{"email"}, stmt.IndexDef.Columns)
	assert.True(t, stmt.IndexDef.Unique)
}

func TestParseCTEWithJoin(t *testing.T) {
	stmt, err := Parse("with high_earners as (get employees where salary > 80000) " +
		"get high_earners join departments on high_earners.department_id = departments.id " +
		"order by salary desc limit 100")
	require.NoError(t, err)

	require.Len(t, stmt.CTEs, 1)
	assert.Equal(t, "high_earners", stmt.CTEs[0].Name)
	assert.Equal(t, "employees", stmt.CTEs[0].Base.Table)

	require.Len(t, stmt.Joins, 1)
	assert.Equal(t, ast.JoinInner, stmt.Joins[0].Kind)
	assert.Equal(t, "departments", stmt.Joins[0].Table)
	require.Len(t, stmt.Joins[0].On, 1)
	assert.Equal(t, ast.ColumnRef("departments.id"), stmt.Joins[0].On[0].Value)

	limit, ok := stmt.Limit()
	assert.True(t, ok)
	assert.Equal(t, uint64(100), limit)
}

func TestParseComments(t *testing.T) {
	stmt, err := Parse(`get users -- trailing comment
		/* block
		   comment */ fields id where active = true`)
	require.NoError(t, err)
	assert.Equal(t, "users", stmt.Table)
	require.Len(t, stmt.Columns, 1)
}

func TestParseIntervalShorthand(t *testing.T) {
	stmt, err := Parse("get events where created_at > 24h")
	require.NoError(t, err)
	v := stmt.FilterCage().Conditions[0].Value
	assert.Equal(t, ast.Interval{Amount: 24, Unit: ast.UnitHour}, v)

	stmt, err = Parse("get events where created_at > 6mo")
	require.NoError(t, err)
	assert.Equal(t, ast.Interval{Amount: 6, Unit: ast.UnitMonth},
		stmt.FilterCage().Conditions[0].Value)
}

func TestParseOrConditionsAndOperators(t *testing.T) {
	stmt, err := Parse("get users where age >= 18 or vip = true")
	require.NoError(t, err)
	cage := stmt.FilterCage()
	assert.Equal(t, ast.LogicalOr, cage.Op)
	require.Len(t, cage.Conditions, 2)
	assert.Equal(t, ast.OpGte, cage.Conditions[0].Op)

	stmt, err = Parse("get users where email is not null and name ~ 'ann%'")
	require.NoError(t, err)
	cage = stmt.FilterCage()
	assert.Equal(t, ast.OpIsNotNull, cage.Conditions[0].Op)
	assert.Equal(t, ast.OpFuzzy, cage.Conditions[1].Op)

	stmt, err = Parse("get users where id in (1, 2, 3)")
	require.NoError(t, err)
	assert.Equal(t, ast.Array{ast.Int(1), ast.Int(2), ast.Int(3)},
		stmt.FilterCage().Conditions[0].Value)

	stmt, err = Parse("get events where ts between 10 and 20")
	require.NoError(t, err)
	assert.Equal(t, ast.OpBetween, stmt.FilterCage().Conditions[0].Op)
}

func TestParseAggregates(t *testing.T) {
	stmt, err := Parse("get orders fields count(*) as total, sum(amount) as revenue group by region")
	require.NoError(t, err)
	require.Len(t, stmt.Columns, 2)
	assert.Equal(t, ast.Aggregate{Col: "*", Func: ast.AggCount, Alias: "total"}, stmt.Columns[0])
	assert.Equal(t, ast.Aggregate{Col: "amount", Func: ast.AggSum, Alias: "revenue"}, stmt.Columns[1])
	assert.Equal(t, []ast.Expr{ast.Named{Name: "region"}}, stmt.GroupBy)
}

func TestParseInsertSelect(t *testing.T) {
	stmt, err := Parse("add archive fields id, email from (get users where active = false)")
	require.NoError(t, err)
	require.NotNil(t, stmt.SourceQuery)
	assert.Equal(t, "users", stmt.SourceQuery.Table)
}

func TestParseTransactionKeywords(t *testing.T) {
	for input, action := range map[string]ast.Action{
		"begin":    ast.ActionTxBegin,
		"commit":   ast.ActionTxCommit,
		"rollback": ast.ActionTxRollback,
	} {
		stmt, err := Parse(input)
		require.NoError(t, err)
		assert.Equal(t, action, stmt.Action)
	}
}

func TestParseErrorCarriesPosition(t *testing.T) {
	_, err := Parse("get users where = 5")
	var perr *ParseError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, "parse", perr.Code())
	assert.Greater(t, perr.Position, 0)
}

func TestParseRejectsTrailingGarbage(t *testing.T) {
	_, err := Parse("get users limit 10 garbage")
	require.Error(t, err)
}
