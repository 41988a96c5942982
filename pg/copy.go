package pg

import (
	"encoding/hex"
	"strconv"
	"strings"

	"github.com/qail-io/qail-go/ast"
	"github.com/qail-io/qail-go/transpiler"
)

// COPY text format: tab-separated fields, newline row terminator, \N for
// NULL, backslash escapes for tab/newline/carriage-return/backslash, and
// bytea rendered as \\x<hex>.

// AppendCopyValue encodes one value into COPY text form (no SQL quoting).
func AppendCopyValue(buf []byte, v ast.Value) []byte {
	switch x := v.(type) {
	case ast.Null, ast.NullUUID:
		return append(buf, '\\', 'N')
	case ast.Bool:
		if x {
			return append(buf, 't')
		}
		return append(buf, 'f')
	case ast.Int:
		return strconv.AppendInt(buf, int64(x), 10)
	case ast.Float:
		return strconv.AppendFloat(buf, float64(x), 'g', -1, 64)
	case ast.String:
		return appendCopyEscaped(buf, string(x))
	case ast.Timestamp:
		return append(buf, x...)
	case ast.ColumnRef:
		return append(buf, x...)
	case ast.FuncValue:
		return append(buf, x...)
	case ast.NamedParam:
		buf = append(buf, ':')
		return append(buf, x...)
	case ast.Param:
		buf = append(buf, '$')
		return strconv.AppendInt(buf, int64(x), 10)
	case ast.UUID:
		data, _, _ := transpiler.EncodeValueText(v)
		return append(buf, data...)
	case ast.Interval:
		buf = strconv.AppendInt(buf, x.Amount, 10)
		buf = append(buf, ' ')
		return append(buf, x.Unit.String()...)
	case ast.Array:
		buf = append(buf, '{')
		for i, e := range x {
			if i > 0 {
				buf = append(buf, ',')
			}
			buf = AppendCopyValue(buf, e)
		}
		return append(buf, '}')
	case ast.Vector:
		buf = append(buf, '{')
		for i, f := range x {
			if i > 0 {
				buf = append(buf, ',')
			}
			buf = strconv.AppendFloat(buf, float64(f), 'g', -1, 32)
		}
		return append(buf, '}')
	case ast.Bytes:
		buf = append(buf, '\\', '\\', 'x')
		return append(buf, hex.EncodeToString(x)...)
	case ast.JSON:
		return appendCopyEscaped(buf, string(x))
	}
	// Subqueries and expression values have no COPY form.
	return append(buf, '\\', 'N')
}

func appendCopyEscaped(buf []byte, s string) []byte {
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '\\':
			buf = append(buf, '\\', '\\')
		case '\t':
			buf = append(buf, '\\', 't')
		case '\n':
			buf = append(buf, '\\', 'n')
		case '\r':
			buf = append(buf, '\\', 'r')
		default:
			buf = append(buf, s[i])
		}
	}
	return buf
}

// EncodeCopyRows encodes a batch of rows into one COPY data buffer ready to
// ship as a single CopyData message.
func EncodeCopyRows(rows [][]ast.Value) []byte {
	buf := make([]byte, 0, len(rows)*64)
	for _, row := range rows {
		for i, v := range row {
			if i > 0 {
				buf = append(buf, '\t')
			}
			buf = AppendCopyValue(buf, v)
		}
		buf = append(buf, '\n')
	}
	return buf
}

// CopyField is one parsed COPY output field.
type CopyField struct {
	Null  bool
	Value string
}

// ParseCopyRow splits one COPY text line into fields, reversing the
// escapes.
func ParseCopyRow(line []byte) []CopyField {
	var fields []CopyField
	var cur []byte
	null := false
	flush := func() {
		fields = append(fields, CopyField{Null: null, Value: string(cur)})
		cur = cur[:0]
		null = false
	}
	for i := 0; i < len(line); i++ {
		c := line[i]
		switch c {
		case '\t':
			flush()
		case '\\':
			if i+1 >= len(line) {
				cur = append(cur, c)
				continue
			}
			i++
			switch line[i] {
			case 'N':
				null = true
			case 't':
				cur = append(cur, '\t')
			case 'n':
				cur = append(cur, '\n')
			case 'r':
				cur = append(cur, '\r')
			case '\\':
				cur = append(cur, '\\')
			default:
				cur = append(cur, line[i])
			}
		default:
			cur = append(cur, c)
		}
	}
	flush()
	return fields
}

// CopyInRaw streams pre-encoded COPY text into table(cols) with a single
// CopyData write, then returns the affected-row count from the command tag.
func (c *Conn) CopyInRaw(table string, cols []string, data []byte) (uint64, error) {
	if err := c.checkTx("copy", false); err != nil {
		return 0, err
	}
	sql := "COPY " + quoteIdent(table)
	if len(cols) > 0 {
		quoted := make([]string, len(cols))
		for i, col := range cols {
			quoted[i] = quoteIdent(col)
		}
		sql += " (" + strings.Join(quoted, ", ") + ")"
	}
	sql += " FROM STDIN"

	c.wbuf = c.wbuf[:0]
	c.wbuf = appendSimpleQuery(c.wbuf, sql)
	if err := c.write(c.wbuf); err != nil {
		return 0, err
	}

	// Wait for CopyInResponse before shipping data.
	for {
		typ, payload, err := c.recvMainMsg()
		if err != nil {
			return 0, err
		}
		if typ == msgCopyInResponse {
			break
		}
		if typ == msgErrorResponse {
			srvErr := parseErrorResponse(payload)
			c.drainUntilReady()
			return 0, srvErr
		}
	}

	c.wbuf = c.wbuf[:0]
	c.wbuf = appendCopyData(c.wbuf, data)
	c.wbuf = appendCopyDone(c.wbuf)
	if err := c.write(c.wbuf); err != nil {
		return 0, err
	}

	var affected uint64
	var srvErr error
	for {
		typ, payload, err := c.recvMainMsg()
		if err != nil {
			return 0, err
		}
		switch typ {
		case msgCommandComplete:
			affected = commandTagRows(payload)
		case msgErrorResponse:
			srvErr = parseErrorResponse(payload)
		case msgReadyForQuery:
			if len(payload) >= 1 {
				c.status = txStatus(payload[0])
			}
			return affected, srvErr
		}
	}
}

// CopyIn encodes rows into COPY text and streams them into table(cols).
func (c *Conn) CopyIn(table string, cols []string, rows [][]ast.Value) (uint64, error) {
	return c.CopyInRaw(table, cols, EncodeCopyRows(rows))
}

// CopyExport runs an Export statement (COPY (SELECT ...) TO STDOUT) and
// returns the parsed rows: CopyOutResponse, CopyData per row, CopyDone,
// CommandComplete, ReadyForQuery.
func (c *Conn) CopyExport(s *ast.Statement) ([][]CopyField, error) {
	if err := c.checkTx("copy", false); err != nil {
		return nil, err
	}
	sql, _, err := transpiler.SQL(s, transpiler.Postgres)
	if err != nil {
		return nil, err
	}

	c.wbuf = c.wbuf[:0]
	c.wbuf = appendSimpleQuery(c.wbuf, sql)
	if err := c.write(c.wbuf); err != nil {
		return nil, err
	}

	var rows [][]CopyField
	var pending []byte
	var srvErr error
	for {
		typ, payload, err := c.recvMainMsg()
		if err != nil {
			return nil, err
		}
		switch typ {
		case msgCopyOutResponse:
		case msgCopyData:
			// CopyData boundaries need not align with row boundaries.
			pending = append(pending, payload...)
			for {
				nl := indexByte(pending, '\n')
				if nl < 0 {
					break
				}
				rows = append(rows, ParseCopyRow(pending[:nl]))
				pending = pending[nl+1:]
			}
		case msgCopyDone:
			if len(pending) > 0 {
				rows = append(rows, ParseCopyRow(pending))
				pending = nil
			}
		case msgCommandComplete:
		case msgErrorResponse:
			srvErr = parseErrorResponse(payload)
		case msgReadyForQuery:
			if len(payload) >= 1 {
				c.status = txStatus(payload[0])
			}
			if srvErr != nil {
				return nil, srvErr
			}
			return rows, nil
		}
	}
}

// drainUntilReady consumes messages through the next ReadyForQuery to
// resynchronise after a mid-protocol error.
func (c *Conn) drainUntilReady() {
	for {
		typ, payload, err := c.recvMainMsg()
		if err != nil {
			return
		}
		if typ == msgReadyForQuery {
			if len(payload) >= 1 {
				c.status = txStatus(payload[0])
			}
			return
		}
	}
}

func indexByte(b []byte, c byte) int {
	for i, x := range b {
		if x == c {
			return i
		}
	}
	return -1
}
