package transpiler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qail-io/qail-go/ast"
)

func TestSelectWithFilterAndLimit(t *testing.T) {
	cmd := ast.Get("users").
		ColumnNames("id", "email").
		Filter("active", ast.OpEq, true).
		WithLimit(10)

	sql, params, err := SQL(cmd, Postgres)
	require.NoError(t, err)
	assert.Equal(t, "SELECT id, email FROM users WHERE active = $1 LIMIT 10", sql)
	require.Len(t, params, 1)
	assert.Equal(t, []byte("t"), params[0].Data)
}

func TestUpsertWithNamedParam(t *testing.T) {
	cmd := ast.Add("users").
		ColumnNames("email").
		Values("a@b").
		ConflictUpdate([]string{"email"}, ast.Assignment{
			Column: "email",
			Expr:   ast.Literal{Value: ast.NamedParam("email")},
		})

	sql, params, err := SQL(cmd, Postgres)
	require.NoError(t, err)
	assert.Equal(t,
		"INSERT INTO users (email) VALUES ($1) ON CONFLICT (email) DO UPDATE SET email = $2",
		sql)
	require.Len(t, params, 2)
	assert.Equal(t, []byte("a@b"), params[0].Data)
	assert.Equal(t, "email", params[1].Name)
	assert.True(t, params[1].External)
}

func TestCTEWithJoinOrderLimit(t *testing.T) {
	highEarners := ast.Get("employees").Filter("salary", ast.OpGt, 80000)
	cmd := ast.Get("high_earners").
		With("high_earners", highEarners).
		Join(ast.JoinInner, "departments", "high_earners.department_id", "departments.id").
		OrderBy("salary", ast.SortDesc).
		WithLimit(100)

	sql, params, err := SQL(cmd, Postgres)
	require.NoError(t, err)
	assert.Equal(t,
		"WITH high_earners AS (SELECT * FROM employees WHERE salary > $1) "+
			"SELECT * FROM high_earners "+
			"INNER JOIN departments ON high_earners.department_id = departments.id "+
			"ORDER BY salary DESC LIMIT 100",
		sql)
	require.Len(t, params, 1)
	assert.Equal(t, []byte("80000"), params[0].Data)
}

func TestTranspileIsDeterministic(t *testing.T) {
	cmd := ast.Get("events").
		ColumnNames("id", "kind").
		Filter("kind", ast.OpIn, []string{"click", "view"}).
		OrFilter("legacy", ast.OpEq, true).
		OrderBy("id", ast.SortAsc).
		WithLimit(5).
		WithOffset(10)

	first, firstParams, err := SQL(cmd, Postgres)
	require.NoError(t, err)
	second, secondParams, err := SQL(cmd, Postgres)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, firstParams, secondParams)
}

func TestUpdateZipsColumnsWithPayload(t *testing.T) {
	cmd := ast.Set("users").
		ColumnNames("name", "email").
		Values("Alice", "a@x").
		Filter("id", ast.OpEq, int64(7))

	sql, params, err := SQL(cmd, Postgres)
	require.NoError(t, err)
	assert.Equal(t, "UPDATE users SET name = $1, email = $2 WHERE id = $3", sql)
	require.Len(t, params, 3)
	assert.Equal(t, []byte("7"), params[2].Data)
}

func TestUpdateWithoutColumnsUsesPayloadNames(t *testing.T) {
	cmd := ast.Set("users").
		SetValue("verified", true).
		Filter("id", ast.OpEq, ast.NamedParam("id"))

	sql, params, err := SQL(cmd, Postgres)
	require.NoError(t, err)
	assert.Equal(t, "UPDATE users SET verified = $1 WHERE id = $2", sql)
	require.Len(t, params, 2)
	assert.Equal(t, "id", params[1].Name)
}

func TestReturningEmittedForAllDML(t *testing.T) {
	ins := ast.Add("users").ColumnNames("email").Values("x@y").ReturningNames("id")
	sql, _, err := SQL(ins, Postgres)
	require.NoError(t, err)
	assert.Equal(t, "INSERT INTO users (email) VALUES ($1) RETURNING id", sql)

	upd := ast.Set("users").SetValue("active", false).Filter("id", ast.OpEq, 1).ReturningNames("id", "active")
	sql, _, err = SQL(upd, Postgres)
	require.NoError(t, err)
	assert.Equal(t, "UPDATE users SET active = $1 WHERE id = $2 RETURNING id, active", sql)

	del := ast.Del("users").Filter("id", ast.OpEq, 1).ReturningNames("email")
	sql, _, err = SQL(del, Postgres)
	require.NoError(t, err)
	assert.Equal(t, "DELETE FROM users WHERE id = $1 RETURNING email", sql)
}

func TestExportWrapsSelectAsCopy(t *testing.T) {
	cmd := ast.Export("users").ColumnNames("id", "name").Filter("active", ast.OpEq, true)
	sql, params, err := SQL(cmd, Postgres)
	require.NoError(t, err)
	assert.Equal(t, "COPY (SELECT id, name FROM users WHERE active = $1) TO STDOUT", sql)
	assert.Len(t, params, 1)
}

func TestDDLForms(t *testing.T) {
	create := ast.Make("users").Defs(
		ast.Def{Name: "id", DataType: "uuid", Constraints: []ast.Constraint{{Kind: ast.ConstraintPrimaryKey}}},
		ast.Def{Name: "email", DataType: "text", Constraints: []ast.Constraint{
			{Kind: ast.ConstraintUnique},
			{Kind: ast.ConstraintNotNull},
		}},
		ast.Def{Name: "created_at", DataType: "timestamptz", Constraints: []ast.Constraint{
			{Kind: ast.ConstraintDefault, Arg: "now()"},
		}},
	)
	sql, _, err := SQL(create, Postgres)
	require.NoError(t, err)
	assert.Equal(t,
		`CREATE TABLE users (id UUID PRIMARY KEY, email TEXT UNIQUE NOT NULL, created_at TIMESTAMPTZ DEFAULT now())`,
		sql)

	idx := ast.MakeIndex(ast.IndexDef{Name: "idx_users_email", Table: "users", Columns: []string{"email"}, Unique: true})
	sql, _, err = SQL(idx, Postgres)
	require.NoError(t, err)
	assert.Equal(t, "CREATE UNIQUE INDEX idx_users_email ON users (email)", sql)

	alter := ast.AlterColumnType("users", "age", "bigint", "age::bigint")
	sql, _, err = SQL(alter, Postgres)
	require.NoError(t, err)
	assert.Equal(t, "ALTER TABLE users ALTER COLUMN age TYPE BIGINT USING age::bigint", sql)

	sql, _, err = SQL(ast.Truncate("users"), Postgres)
	require.NoError(t, err)
	assert.Equal(t, "TRUNCATE TABLE users", sql)

	sql, _, err = SQL(ast.RefreshMView("stats"), Postgres)
	require.NoError(t, err)
	assert.Equal(t, "REFRESH MATERIALIZED VIEW stats", sql)
}

func TestReservedIdentifiersAreQuoted(t *testing.T) {
	cmd := ast.Get("order").ColumnNames("user", "group")
	sql, _, err := SQL(cmd, Postgres)
	require.NoError(t, err)
	assert.Equal(t, `SELECT "user", "group" FROM "order"`, sql)
}

func TestNullByteFailsBeforeIO(t *testing.T) {
	cmd := ast.Get("users").Filter("name", ast.OpEq, "bad\x00value")
	_, _, err := SQL(cmd, Postgres)
	var encErr *EncodeError
	require.ErrorAs(t, err, &encErr)
	assert.Equal(t, "encode_null_byte", encErr.Code())
}

func TestConditionValueIgnoredForNullChecks(t *testing.T) {
	cmd := ast.Get("users").Filter("deleted_at", ast.OpIsNull, "ignored")
	sql, params, err := SQL(cmd, Postgres)
	require.NoError(t, err)
	assert.Equal(t, "SELECT * FROM users WHERE deleted_at IS NULL", sql)
	assert.Empty(t, params)
}

func TestInArrayBindsOneArrayParamOnPostgres(t *testing.T) {
	cmd := ast.Get("users").Filter("id", ast.OpIn, []int{1, 2, 3})
	sql, params, err := SQL(cmd, Postgres)
	require.NoError(t, err)
	assert.Equal(t, "SELECT * FROM users WHERE id = ANY($1)", sql)
	require.Len(t, params, 1)
	assert.Equal(t, []byte("{1,2,3}"), params[0].Data)
}

func TestInExpandsToListOnMySQL(t *testing.T) {
	cmd := ast.Get("users").Filter("id", ast.OpIn, []int{1, 2})
	sql, params, err := SQL(cmd, MySQL)
	require.NoError(t, err)
	assert.Equal(t, "SELECT * FROM users WHERE id IN (?, ?)", sql)
	assert.Len(t, params, 2)
}

func TestBetweenUsesBothBounds(t *testing.T) {
	cmd := ast.Get("events").Filter("ts", ast.OpBetween, ast.Array{ast.Int(1), ast.Int(9)})
	sql, params, err := SQL(cmd, Postgres)
	require.NoError(t, err)
	assert.Equal(t, "SELECT * FROM events WHERE ts BETWEEN $1 AND $2", sql)
	assert.Len(t, params, 2)
}

func TestDialectWriterDifferences(t *testing.T) {
	cmd := ast.Get("users").Filter("name", ast.OpFuzzy, "%ann%").WithLimit(5).WithOffset(10)

	sql, _, err := SQL(cmd, Postgres)
	require.NoError(t, err)
	assert.Equal(t, "SELECT * FROM users WHERE name ILIKE $1 LIMIT 5 OFFSET 10", sql)

	sql, _, err = SQL(cmd, MySQL)
	require.NoError(t, err)
	assert.Equal(t, "SELECT * FROM users WHERE name LIKE ? LIMIT 5 OFFSET 10", sql)

	sql, _, err = SQL(cmd, SQLServer)
	require.NoError(t, err)
	assert.Equal(t, "SELECT * FROM users WHERE name LIKE @p1 OFFSET 10 ROWS FETCH NEXT 5 ROWS ONLY", sql)
}

func TestJSONAccessPerDialect(t *testing.T) {
	cmd := ast.Get("users").ColumnExprs(ast.JSONPath("contact", "phones.0.number"))

	sql, _, err := SQL(cmd, Postgres)
	require.NoError(t, err)
	assert.Equal(t, "SELECT contact->'phones'->0->>'number' FROM users", sql)

	sql, _, err = SQL(cmd, MySQL)
	require.NoError(t, err)
	assert.Equal(t, "SELECT JSON_UNQUOTE(JSON_EXTRACT(contact, '$.phones[0].number')) FROM users", sql)
}

func TestGroupByModesAndHaving(t *testing.T) {
	cmd := ast.Get("sales").
		ColumnExprs(ast.Named{Name: "region"}, ast.Sum("amount", "total")).
		GroupByNames("region").
		HavingCond(ast.Condition{Left: ast.Aggregate{Col: "amount", Func: ast.AggSum}, Op: ast.OpGt, Value: ast.Int(1000)})

	sql, params, err := SQL(cmd, Postgres)
	require.NoError(t, err)
	assert.Equal(t,
		"SELECT region, SUM(amount) AS total FROM sales GROUP BY region HAVING SUM(amount) > $1",
		sql)
	assert.Len(t, params, 1)

	rollup := ast.Get("sales").ColumnNames("region").GroupByNames("region").Rollup()
	sql, _, err = SQL(rollup, Postgres)
	require.NoError(t, err)
	assert.Equal(t, "SELECT region FROM sales GROUP BY ROLLUP (region)", sql)
}

func TestWindowAndDistinctOn(t *testing.T) {
	cmd := ast.Get("msgs").
		DistinctOnNames("phone_number").
		ColumnExprs(
			ast.Named{Name: "phone_number"},
			ast.Window{
				Func:      "row_number",
				Partition: []ast.Expr{ast.Named{Name: "phone_number"}},
				Order:     []ast.OrderExpr{{Expr: ast.Named{Name: "created_at"}, Order: ast.SortDesc}},
				Alias:     "rn",
			},
		).
		OrderBy("phone_number", ast.SortAsc).
		OrderBy("created_at", ast.SortDesc)

	sql, _, err := SQL(cmd, Postgres)
	require.NoError(t, err)
	assert.Equal(t,
		"SELECT DISTINCT ON (phone_number) phone_number, "+
			"row_number() OVER (PARTITION BY phone_number ORDER BY created_at DESC) AS rn "+
			"FROM msgs ORDER BY phone_number, created_at DESC",
		sql)
}

func TestSetOperations(t *testing.T) {
	cmd := ast.Get("a").ColumnNames("id").UnionAll(ast.Get("b").ColumnNames("id"))
	sql, _, err := SQL(cmd, Postgres)
	require.NoError(t, err)
	assert.Equal(t, "SELECT id FROM a UNION ALL SELECT id FROM b", sql)
}

func TestRecursiveCTE(t *testing.T) {
	base := ast.Get("categories").ColumnNames("id", "parent_id").Filter("parent_id", ast.OpIsNull, nil)
	rec := ast.Get("categories").
		ColumnNames("categories.id", "categories.parent_id").
		Join(ast.JoinInner, "tree", "categories.parent_id", "tree.id")
	cmd := ast.Get("tree").WithRecursive("tree", []string{"id", "parent_id"}, base, rec)

	sql, _, err := SQL(cmd, Postgres)
	require.NoError(t, err)
	assert.Equal(t,
		"WITH RECURSIVE tree(id, parent_id) AS ("+
			"SELECT id, parent_id FROM categories WHERE parent_id IS NULL"+
			" UNION ALL "+
			"SELECT categories.id, categories.parent_id FROM categories INNER JOIN tree ON categories.parent_id = tree.id"+
			") SELECT * FROM tree",
		sql)
}

func TestPercentHelperShape(t *testing.T) {
	cmd := ast.Get("stats").ColumnExprs(ast.Percent("wins", "games", "win_pct"))
	sql, params, err := SQL(cmd, Postgres)
	require.NoError(t, err)
	assert.Equal(t,
		"SELECT CASE WHEN games > $1 THEN ((wins::float8 / games::float8) * $2) ELSE $3 END AS win_pct FROM stats",
		sql)
	require.Len(t, params, 3)
	assert.Equal(t, []byte("0"), params[0].Data)
	assert.Equal(t, []byte("100"), params[1].Data)
}

func TestIntervalRendersInline(t *testing.T) {
	iv, ok := ast.ParseIntervalShorthand("7d")
	require.True(t, ok)
	cmd := ast.Get("events").FilterCond(ast.Condition{
		Left: ast.Named{Name: "created_at"},
		Op:   ast.OpGt,
		Value: ast.ExprValue{Expr: ast.Binary{
			Left:  ast.FunctionCall{Name: "NOW"},
			Op:    ast.BinSub,
			Right: ast.Literal{Value: iv},
		}},
	})
	sql, params, err := SQL(cmd, Postgres)
	require.NoError(t, err)
	assert.Equal(t, "SELECT * FROM events WHERE created_at > (NOW() - INTERVAL '7 days')", sql)
	assert.Empty(t, params)
}

func TestMongoWriter(t *testing.T) {
	cmd := ast.Get("users").
		ColumnNames("name").
		Filter("age", ast.OpGte, 18).
		OrderBy("name", ast.SortAsc).
		WithLimit(10)
	out, _, err := SQL(cmd, Mongo)
	require.NoError(t, err)
	assert.Equal(t,
		`db.users.find({ "age": { "$gte": 18 } }, { "name": 1 }).sort({ "name": 1 }).limit(10)`,
		out)

	drop, _, err := SQL(ast.Drop("users"), Mongo)
	require.NoError(t, err)
	assert.Equal(t, "db.users.drop()", drop)
}

func TestMongoUnsupportedEmitsComment(t *testing.T) {
	out, _, err := SQL(ast.RefreshMView("x"), Mongo)
	require.NoError(t, err)
	assert.Contains(t, out, "// Action")
}

func TestCassandraWriter(t *testing.T) {
	cmd := ast.Get("users").ColumnNames("id", "name").Filter("id", ast.OpEq, 5).WithLimit(3)
	out, _, err := SQL(cmd, Cassandra)
	require.NoError(t, err)
	assert.Equal(t, "SELECT id, name FROM users WHERE id = 5 LIMIT 3 ALLOW FILTERING", out)

	out, _, err = SQL(ast.Lock("users", "ACCESS EXCLUSIVE"), Cassandra)
	require.NoError(t, err)
	assert.Contains(t, out, "-- Action")
}

func TestRedisWriter(t *testing.T) {
	out, _, err := SQL(ast.KvGet("session:42"), Redis)
	require.NoError(t, err)
	assert.Equal(t, "GET session:42", out)

	set := ast.KvSet("session:42", []byte("abc")).Ttl(60).IfNotExists()
	out, _, err = SQL(set, Redis)
	require.NoError(t, err)
	assert.Equal(t, "SET session:42 abc EX 60 NX", out)

	search := ast.Get("products").Filter("price", ast.OpLt, 100).WithLimit(5)
	out, _, err = SQL(search, Redis)
	require.NoError(t, err)
	assert.Equal(t, `FT.SEARCH idx:products "@price:[-inf 100]" LIMIT 0 5`, out)
}

func TestQdrantWriter(t *testing.T) {
	search := ast.VectorSearch("docs", []float32{0.1, 0.2}).Threshold(0.8).WithLimit(3)
	out, _, err := SQL(search, Qdrant)
	require.NoError(t, err)
	assert.Equal(t,
		`{ "vector": [0.1, 0.2], "score_threshold": 0.8, "limit": 3 }`,
		out)

	del := ast.VectorDelete("docs").Filter("id", ast.OpEq, 7)
	out, _, err = SQL(del, Qdrant)
	require.NoError(t, err)
	assert.Equal(t, `{ "points": [7] }`, out)
}
