package pg

import (
	"encoding/hex"
	"strconv"

	"github.com/cespare/xxhash/v2"
)

// Row is one result row: per-column byte values (nil for NULL) paired with
// the server-supplied column metadata shared by all rows of a result.
type Row struct {
	Columns []ColumnDesc
	Values  [][]byte
}

// IsNull reports whether column i is NULL.
func (r Row) IsNull(i int) bool { return i >= len(r.Values) || r.Values[i] == nil }

// String returns column i as a string ("" for NULL).
func (r Row) String(i int) string {
	if r.IsNull(i) {
		return ""
	}
	return string(r.Values[i])
}

// Int returns column i parsed as int64 (0 for NULL or non-numeric).
func (r Row) Int(i int) int64 {
	if r.IsNull(i) {
		return 0
	}
	n, _ := strconv.ParseInt(string(r.Values[i]), 10, 64)
	return n
}

// Float returns column i parsed as float64.
func (r Row) Float(i int) float64 {
	if r.IsNull(i) {
		return 0
	}
	f, _ := strconv.ParseFloat(string(r.Values[i]), 64)
	return f
}

// Bool returns column i parsed as a PostgreSQL text boolean.
func (r Row) Bool(i int) bool {
	if r.IsNull(i) {
		return false
	}
	v := r.Values[i]
	return len(v) > 0 && (v[0] == 't' || v[0] == 'T' || v[0] == '1')
}

// Index returns the position of the named column, or -1.
func (r Row) Index(name string) int {
	for i, c := range r.Columns {
		if c.Name == name {
			return i
		}
	}
	return -1
}

// PreparedStatement is an opaque handle to a server-side statement.
type PreparedStatement struct {
	Name       string
	ParamCount int
	sql        string
}

// stmtName derives the cache name for a SQL text: "s" plus the lowercase
// hex of its 64-bit hash.
func stmtName(sql string) string {
	sum := xxhash.Sum64String(sql)
	var raw [8]byte
	for i := 7; i >= 0; i-- {
		raw[i] = byte(sum)
		sum >>= 8
	}
	return "s" + hex.EncodeToString(raw[:])
}

// checkTx rejects non-rollback work while the transaction is failed.
func (c *Conn) checkTx(op string, rollbackLike bool) error {
	if c.status == txFailed && !rollbackLike {
		return txInvalidErr(op)
	}
	return nil
}

// Query runs a parameterised statement through the Extended protocol with
// the unnamed statement and returns all rows.
func (c *Conn) Query(sql string, params ...[]byte) ([]Row, error) {
	if err := c.checkTx("query", false); err != nil {
		return nil, err
	}
	wp := make([]wireParam, len(params))
	for i, p := range params {
		if p == nil {
			wp[i] = wireParam{null: true}
		} else {
			wp[i] = wireParam{data: p}
		}
	}
	if len(wp) > 32767 {
		return nil, tooManyParamsErr(len(wp))
	}

	c.wbuf = c.wbuf[:0]
	c.wbuf = appendParse(c.wbuf, "", sql)
	c.wbuf = appendBind(c.wbuf, "", wp)
	c.wbuf = appendDescribePortal(c.wbuf)
	c.wbuf = appendExecute(c.wbuf)
	c.wbuf = appendSync(c.wbuf)
	if err := c.write(c.wbuf); err != nil {
		return nil, err
	}
	rows, _, err := c.readExtendedResponse()
	return rows, err
}

// QueryCached runs a statement through the prepared-statement cache keyed
// by the 64-bit hash of the SQL text. The first use of a text parses it
// under its cache name; later uses skip the Parse.
func (c *Conn) QueryCached(sql string, params ...[]byte) ([]Row, error) {
	if err := c.checkTx("query", false); err != nil {
		return nil, err
	}
	name := stmtName(sql)
	_, known := c.prepared[name]

	wp := make([]wireParam, len(params))
	for i, p := range params {
		if p == nil {
			wp[i] = wireParam{null: true}
		} else {
			wp[i] = wireParam{data: p}
		}
	}
	if len(wp) > 32767 {
		return nil, tooManyParamsErr(len(wp))
	}

	c.wbuf = c.wbuf[:0]
	if !known {
		c.wbuf = appendParse(c.wbuf, name, sql)
	}
	c.wbuf = appendBind(c.wbuf, name, wp)
	c.wbuf = appendDescribePortal(c.wbuf)
	c.wbuf = appendExecute(c.wbuf)
	c.wbuf = appendSync(c.wbuf)
	if err := c.write(c.wbuf); err != nil {
		return nil, err
	}

	rows, _, err := c.readExtendedResponse()
	if err == nil && !known {
		c.prepared[name] = sql
	}
	return rows, err
}

// Prepare parses a statement under its cache name and returns the handle.
func (c *Conn) Prepare(sql string) (PreparedStatement, error) {
	if err := c.checkTx("prepare", false); err != nil {
		return PreparedStatement{}, err
	}
	name := stmtName(sql)
	if _, known := c.prepared[name]; known {
		return PreparedStatement{Name: name, ParamCount: countParams(sql), sql: sql}, nil
	}
	c.wbuf = c.wbuf[:0]
	c.wbuf = appendParse(c.wbuf, name, sql)
	c.wbuf = appendSync(c.wbuf)
	if err := c.write(c.wbuf); err != nil {
		return PreparedStatement{}, err
	}
	if _, _, err := c.readExtendedResponse(); err != nil {
		return PreparedStatement{}, err
	}
	c.prepared[name] = sql
	return PreparedStatement{Name: name, ParamCount: countParams(sql), sql: sql}, nil
}

// countParams finds the highest $n placeholder in a SQL text.
func countParams(sql string) int {
	max := 0
	for i := 0; i+1 < len(sql); i++ {
		if sql[i] != '$' {
			continue
		}
		j := i + 1
		n := 0
		for j < len(sql) && sql[j] >= '0' && sql[j] <= '9' {
			n = n*10 + int(sql[j]-'0')
			j++
		}
		if j > i+1 && n > max {
			max = n
		}
	}
	return max
}

// Execute runs a statement through the Simple protocol and returns the
// affected-row count from the command tag.
func (c *Conn) Execute(sql string) (uint64, error) {
	rollbackLike := sql == "ROLLBACK" || hasPrefixFold(sql, "ROLLBACK")
	if err := c.checkTx("execute", rollbackLike); err != nil {
		return 0, err
	}
	c.wbuf = c.wbuf[:0]
	c.wbuf = appendSimpleQuery(c.wbuf, sql)
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
		case msgRowDescription, msgDataRow, msgEmptyQueryResponse, msgNoData:
			// row traffic is legal on the simple path; Execute discards it
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

func hasPrefixFold(s, prefix string) bool {
	if len(s) < len(prefix) {
		return false
	}
	for i := 0; i < len(prefix); i++ {
		a, b := s[i], prefix[i]
		if a >= 'a' && a <= 'z' {
			a -= 32
		}
		if b >= 'a' && b <= 'z' {
			b -= 32
		}
		if a != b {
			return false
		}
	}
	return true
}

// readExtendedResponse consumes one Extended-protocol response up to
// ReadyForQuery and returns the rows and the command tag count. After any
// statement completes, exactly one ReadyForQuery is observed, which keeps
// the connection resynchronised even on errors.
func (c *Conn) readExtendedResponse() ([]Row, uint64, error) {
	var cols []ColumnDesc
	var rows []Row
	var affected uint64
	var srvErr error

	for {
		typ, payload, err := c.recvMainMsg()
		if err != nil {
			return nil, 0, err
		}
		switch typ {
		case msgParseComplete, msgBindComplete, msgCloseComplete, msgNoData, msgParameterDescription:
		case msgRowDescription:
			cols = parseRowDescription(payload)
		case msgDataRow:
			rows = append(rows, Row{Columns: cols, Values: parseDataRow(payload)})
		case msgCommandComplete:
			affected = commandTagRows(payload)
		case msgEmptyQueryResponse:
		case msgErrorResponse:
			srvErr = parseErrorResponse(payload)
		case msgReadyForQuery:
			if len(payload) >= 1 {
				c.status = txStatus(payload[0])
			}
			if srvErr != nil {
				return nil, 0, srvErr
			}
			return rows, affected, nil
		}
	}
}

// Begin, Commit and Rollback drive the transaction state machine; the state
// itself follows the ReadyForQuery status bytes.
func (c *Conn) Begin() error {
	_, err := c.Execute("BEGIN")
	return err
}

func (c *Conn) Commit() error {
	_, err := c.Execute("COMMIT")
	return err
}

func (c *Conn) Rollback() error {
	_, err := c.Execute("ROLLBACK")
	return err
}

// Savepoint, ReleaseSavepoint and RollbackTo manage savepoints inside a
// transaction block. Releasing or rolling back to a savepoint is permitted
// in the failed state.
func (c *Conn) Savepoint(name string) error {
	_, err := c.Execute("SAVEPOINT " + quoteIdent(name))
	return err
}

func (c *Conn) ReleaseSavepoint(name string) error {
	if err := c.checkTx("release savepoint", true); err != nil {
		return err
	}
	_, err := c.executeAllowFailed("RELEASE SAVEPOINT " + quoteIdent(name))
	return err
}

func (c *Conn) RollbackTo(name string) error {
	_, err := c.executeAllowFailed("ROLLBACK TO SAVEPOINT " + quoteIdent(name))
	return err
}

// executeAllowFailed is Execute without the failed-state gate, for the
// statements that are legal while a transaction is failed.
func (c *Conn) executeAllowFailed(sql string) (uint64, error) {
	c.wbuf = c.wbuf[:0]
	c.wbuf = appendSimpleQuery(c.wbuf, sql)
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

func quoteIdent(name string) string {
	out := make([]byte, 0, len(name)+2)
	out = append(out, '"')
	for i := 0; i < len(name); i++ {
		if name[i] == '"' {
			out = append(out, '"')
		}
		out = append(out, name[i])
	}
	return string(append(out, '"'))
}
