package pg

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qail-io/qail-go/ast"
)

func TestCopyValueEscaping(t *testing.T) {
	cases := []struct {
		value ast.Value
		want  string
	}{
		{ast.Null{}, `\N`},
		{ast.NullUUID{}, `\N`},
		{ast.Bool(true), "t"},
		{ast.Bool(false), "f"},
		{ast.Int(12345), "12345"},
		{ast.Int(-7), "-7"},
		{ast.String("plain"), "plain"},
		{ast.String("tab\there"), `tab\there`},
		{ast.String("line\nbreak"), `line\nbreak`},
		{ast.String("cr\rhere"), `cr\rhere`},
		{ast.String(`back\slash`), `back\\slash`},
		{ast.Bytes{0xde, 0xad}, `\\xdead`},
		{ast.Timestamp("2024-01-01 00:00:00"), "2024-01-01 00:00:00"},
		{ast.Array{ast.Int(1), ast.Int(2)}, "{1,2}"},
	}
	for _, tc := range cases {
		got := AppendCopyValue(nil, tc.value)
		assert.Equal(t, tc.want, string(got), "%#v", tc.value)
	}
}

func TestEncodeCopyRows(t *testing.T) {
	rows := [][]ast.Value{
		{ast.Int(1), ast.String("foo")},
		{ast.Int(2), ast.String("bar")},
	}
	assert.Equal(t, "1\tfoo\n2\tbar\n", string(EncodeCopyRows(rows)))
}

// Values with tabs, newlines and backslashes must survive an
// encode-then-parse round trip exactly.
func TestCopyRoundTrip(t *testing.T) {
	rows := [][]ast.Value{
		{ast.Int(1), ast.String("with\ttab")},
		{ast.Int(2), ast.String("with\nnewline")},
		{ast.Int(3), ast.String(`with\backslash`)},
		{ast.Int(4), ast.Null{}},
		{ast.Int(5), ast.String("plain")},
	}
	encoded := EncodeCopyRows(rows)

	lines := splitLines(encoded)
	require.Len(t, lines, 5)

	expect := []struct {
		id    string
		null  bool
		value string
	}{
		{"1", false, "with\ttab"},
		{"2", false, "with\nnewline"},
		{"3", false, `with\backslash`},
		{"4", true, ""},
		{"5", false, "plain"},
	}
	for i, line := range lines {
		fields := ParseCopyRow(line)
		require.Len(t, fields, 2)
		assert.Equal(t, expect[i].id, fields[0].Value)
		assert.Equal(t, expect[i].null, fields[1].Null)
		assert.Equal(t, expect[i].value, fields[1].Value)
	}
}

func splitLines(data []byte) [][]byte {
	var lines [][]byte
	start := 0
	for i, c := range data {
		if c == '\n' {
			lines = append(lines, data[start:i])
			start = i + 1
		}
	}
	return lines
}

func TestCommandTagRows(t *testing.T) {
	assert.Equal(t, uint64(42), commandTagRows([]byte("COPY 42")))
	assert.Equal(t, uint64(7), commandTagRows([]byte("INSERT 0 7")))
	assert.Equal(t, uint64(100), commandTagRows([]byte("SELECT 100")))
	assert.Equal(t, uint64(0), commandTagRows([]byte("BEGIN")))
	assert.Equal(t, uint64(3), commandTagRows([]byte("UPDATE 3\x00")))
}

func TestCopyExportSQLShape(t *testing.T) {
	cmd := ast.Export("users").ColumnNames("id", "s")
	enc, err := EncodeStatement(cmd)
	require.NoError(t, err)
	assert.Contains(t, string(enc.Wire), "COPY (SELECT id, s FROM users) TO STDOUT")
}
