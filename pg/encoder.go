package pg

import (
	"github.com/qail-io/qail-go/ast"
	"github.com/qail-io/qail-go/transpiler"
)

// The AST-native encoder serialises a statement straight into Extended-Query
// wire bytes: the SQL body is rendered into a scratch buffer by the Postgres
// writer while literal values peel off into the parameter vector, then the
// Parse/Bind/Describe/Execute/Sync frames are laid around it in one pass.

var pgWriter = transpiler.PostgresWriter{}

// EncodedStatement is a statement rendered for the wire: the frame buffer
// ready to write and the parameters that went into the Bind area.
type EncodedStatement struct {
	Wire   []byte
	Params []transpiler.Param
}

// EncodeStatement renders one statement into a full Extended-Query message
// group. Binding values come out in left-to-right encounter order, so the
// placeholders form the contiguous range $1..$k.
func EncodeStatement(s *ast.Statement) (EncodedStatement, error) {
	sql, params, err := transpiler.AppendSQL(nil, s, pgWriter, nil)
	if err != nil {
		return EncodedStatement{}, err
	}
	if len(params) > 32767 {
		return EncodedStatement{}, tooManyParamsErr(len(params))
	}

	wire := appendExtendedGroup(nil, sql, params)
	wire = appendSync(wire)
	return EncodedStatement{Wire: wire, Params: params}, nil
}

// EncodeBatch concatenates the Parse/Bind/Describe/Execute groups of every statement
// and terminates the whole batch with a single Sync. This is the pipelining
// contract: one flush, one terminal ReadyForQuery.
func EncodeBatch(stmts []*ast.Statement) ([]byte, error) {
	var wire []byte
	for _, s := range stmts {
		sql, params, err := transpiler.AppendSQL(nil, s, pgWriter, nil)
		if err != nil {
			return nil, err
		}
		if len(params) > 32767 {
			return nil, tooManyParamsErr(len(params))
		}
		wire = appendExtendedGroup(wire, sql, params)
	}
	return appendSync(wire), nil
}

// appendExtendedGroup lays down Parse+Bind+Describe(Portal)+Execute for an
// unnamed statement with all-text parameters.
func appendExtendedGroup(wire []byte, sql []byte, params []transpiler.Param) []byte {
	// Parse: 'P', len, "", sql, NUL, int16(0) — no pre-declared types.
	wire = append(wire, msgParse)
	wire = appendInt32(wire, int32(4+1+len(sql)+1+2))
	wire = append(wire, 0)
	wire = append(wire, sql...)
	wire = append(wire, 0)
	wire = append(wire, 0, 0)

	// Bind: unnamed portal, unnamed statement, text params, text results.
	paramsSize := 0
	for _, p := range params {
		paramsSize += 4
		if !p.Null {
			paramsSize += len(p.Data)
		}
	}
	wire = append(wire, msgBind)
	wire = appendInt32(wire, int32(4+1+1+2+2+paramsSize+2))
	wire = append(wire, 0, 0)
	wire = append(wire, 0, 0) // zero param format codes
	wire = appendInt16(wire, int16(len(params)))
	for _, p := range params {
		if p.Null || (p.External && p.Data == nil) {
			wire = appendInt32(wire, -1)
			continue
		}
		wire = appendInt32(wire, int32(len(p.Data)))
		wire = append(wire, p.Data...)
	}
	wire = append(wire, 0, 0) // zero result format codes

	// Describe the unnamed portal; cheap and forces RowDescription.
	wire = append(wire, msgDescribe)
	wire = appendInt32(wire, 6)
	wire = append(wire, 'P', 0)

	// Execute with no row limit.
	wire = append(wire, msgExecute)
	wire = appendInt32(wire, 9)
	wire = append(wire, 0)
	wire = appendInt32(wire, 0)

	return wire
}

func appendInt32(b []byte, v int32) []byte {
	return append(b, byte(uint32(v)>>24), byte(uint32(v)>>16), byte(uint32(v)>>8), byte(uint32(v)))
}

func appendInt16(b []byte, v int16) []byte {
	return append(b, byte(uint16(v)>>8), byte(uint16(v)))
}

// Send writes an encoded statement and reads its response rows.
func (c *Conn) Send(s *ast.Statement) ([]Row, error) {
	if err := c.checkTx("send", false); err != nil {
		return nil, err
	}
	enc, err := EncodeStatement(s)
	if err != nil {
		return nil, err
	}
	if err := c.write(enc.Wire); err != nil {
		return nil, err
	}
	rows, _, err := c.readExtendedResponse()
	return rows, err
}

// Exec writes an encoded statement and returns the affected-row count.
func (c *Conn) Exec(s *ast.Statement) (uint64, error) {
	if err := c.checkTx("exec", false); err != nil {
		return 0, err
	}
	enc, err := EncodeStatement(s)
	if err != nil {
		return 0, err
	}
	if err := c.write(enc.Wire); err != nil {
		return 0, err
	}
	_, affected, err := c.readExtendedResponse()
	return affected, err
}
