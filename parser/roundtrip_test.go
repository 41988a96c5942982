package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qail-io/qail-go/ast"
)

// The statement registry for the round-trip property: parse(Format(s))
// must rebuild s. The check compares the formatted surface text of s and of
// the reparsed statement. Opaque function values (now(), uuid_generate_v4())
// are the enumerated lossy nodes: they survive as text but carry no
// structure.
var roundTripStatements = []*ast.Statement{
	ast.Get("users"),
	ast.Get("users").ColumnNames("id", "email"),
	ast.Get("users").
		ColumnNames("id").
		FilterCond(ast.Condition{Left: ast.Named{Name: "active"}, Op: ast.OpEq, Value: ast.Bool(true)}).
		WithLimit(10),
	ast.Get("users").
		FilterCond(ast.Condition{Left: ast.Named{Name: "email"}, Op: ast.OpIsNotNull, Value: ast.Null{}}).
		OrderBy("email", ast.SortAsc).
		WithOffset(5),
	ast.Get("events").
		FilterCond(ast.Condition{
			Left: ast.Named{Name: "kind"},
			Op:   ast.OpIn,
			Value: ast.Array{
				ast.String("click"), ast.String("view"),
			},
		}),
	ast.Get("events").
		FilterCond(ast.Condition{
			Left:  ast.Named{Name: "created_at"},
			Op:    ast.OpGt,
			Value: ast.Interval{Amount: 7, Unit: ast.UnitDay},
		}),
	ast.Del("users").
		FilterCond(ast.Condition{Left: ast.Named{Name: "id"}, Op: ast.OpEq, Value: ast.NamedParam("id")}),
	ast.Truncate("audit_log"),
	ast.Drop("legacy"),
	ast.Begin(),
	ast.Commit(),
	ast.Rollback(),
	ast.MakeIndex(ast.IndexDef{Name: "idx_users_email", Table: "users", Columns: []string{"email"}, Unique: true}),
}

func TestRoundTripRegistry(t *testing.T) {
	for _, stmt := range roundTripStatements {
		text := Format(stmt)
		parsed, err := Parse(text)
		require.NoError(t, err, "formatted text should parse: %q", text)
		assert.Equal(t, normalizeForCompare(stmt), normalizeForCompare(parsed), "round trip of %q", text)
	}
}

// normalizeForCompare renders a statement to its surface text, so that
// representation details the text does not carry (such as a nil versus
// empty condition slice in a cage) do not affect the comparison.
func normalizeForCompare(s *ast.Statement) string {
	return Format(s)
}

// Fixed-point check on parsed statements: Format(Parse(x)) reparses to the
// same IR for a corpus of real surface queries.
func TestFormatParseFixedPoint(t *testing.T) {
	inputs := []string{
		"get users",
		"get users fields id, email where active = true limit 10",
		"get distinct on (phone_number) msgs fields phone_number order by phone_number, created_at desc",
		"add users fields name, email values 'Alice', 'a@x' conflict (email) update name = :name",
		"set users values verified = true where id = :id",
		"del users where id = :id",
		"make users id:uuid:pk, email:text:unique:notnull, created_at:timestamptz:default=now()",
		"index idx_name on users (email) unique",
		"get orders fields count(*) as total group by region",
		"get a join b on a.id = b.a_id where a.x > 5 or a.y < 3 order by a.x desc limit 7 offset 2",
		"with winners as (get players where score > 100) get winners fields id limit 3",
		"add archive fields id from (get users where active = false)",
		"export users fields id, email where active = true",
		"get t where c between 1 and 9",
		"get t where name ~ '%ann%'",
	}
	for _, input := range inputs {
		first, err := Parse(input)
		require.NoError(t, err, "input %q", input)
		text := Format(first)
		second, err := Parse(text)
		require.NoError(t, err, "formatted %q from %q", text, input)
		assert.Equal(t, first, second, "fixed point for %q via %q", input, text)
	}
}

// Scalar value round-trip: encoding a value into a literal and parsing it
// back yields the same value.
func TestValueLiteralRoundTrip(t *testing.T) {
	values := []ast.Value{
		ast.Bool(true),
		ast.Bool(false),
		ast.Int(0),
		ast.Int(-42),
		ast.Int(9007199254740993),
		ast.Float(3.5),
		ast.String("hello"),
		ast.String("it''s fine"),
		ast.Param(3),
		ast.NamedParam("user_id"),
		ast.Interval{Amount: 24, Unit: ast.UnitHour},
		ast.Interval{Amount: 6, Unit: ast.UnitMonth},
		ast.Null{},
	}
	for _, v := range values {
		text := "get t where c = " + formatValue(v)
		stmt, err := Parse(text)
		require.NoError(t, err, "literal %q", formatValue(v))
		got := stmt.FilterCage().Conditions[0].Value
		if s, ok := v.(ast.String); ok {
			// the doubled-quote escape collapses on parse
			assert.Equal(t, ast.String(string(s)), got)
			continue
		}
		assert.Equal(t, v, got, "value %v", v)
	}
}
