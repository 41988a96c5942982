package pg

import (
	"github.com/qail-io/qail-go/ast"
)

// PipelineResult is the outcome of one statement inside a pipeline.
type PipelineResult struct {
	Rows     []Row
	Affected uint64
	Err      error
}

// PipelineAST enqueues every statement into a single write buffer, flushes
// once, then reads responses until the single terminal ReadyForQuery. After
// an individual failure the server skips to the Sync; the failing slot and
// every later slot carry that error while earlier results stand.
func (c *Conn) PipelineAST(stmts []*ast.Statement) ([]PipelineResult, error) {
	if err := c.checkTx("pipeline", false); err != nil {
		return nil, err
	}
	if len(stmts) == 0 {
		return nil, nil
	}
	wire, err := EncodeBatch(stmts)
	if err != nil {
		return nil, err
	}
	if err := c.write(wire); err != nil {
		return nil, err
	}
	return c.readPipelineResponses(len(stmts))
}

// PipelinePrepared binds one prepared statement against many parameter sets
// in a single batch terminated by one Sync.
func (c *Conn) PipelinePrepared(stmt PreparedStatement, paramsBatch [][][]byte) ([]PipelineResult, error) {
	if err := c.checkTx("pipeline", false); err != nil {
		return nil, err
	}
	if len(paramsBatch) == 0 {
		return nil, nil
	}

	c.wbuf = c.wbuf[:0]
	if _, known := c.prepared[stmt.Name]; !known {
		c.wbuf = appendParse(c.wbuf, stmt.Name, stmt.sql)
	}
	for _, params := range paramsBatch {
		wp := make([]wireParam, len(params))
		for i, p := range params {
			if p == nil {
				wp[i] = wireParam{null: true}
			} else {
				wp[i] = wireParam{data: p}
			}
		}
		c.wbuf = appendBind(c.wbuf, stmt.Name, wp)
		c.wbuf = appendDescribePortal(c.wbuf)
		c.wbuf = appendExecute(c.wbuf)
	}
	c.wbuf = appendSync(c.wbuf)
	if err := c.write(c.wbuf); err != nil {
		return nil, err
	}

	results, err := c.readPipelineResponses(len(paramsBatch))
	if err == nil {
		c.prepared[stmt.Name] = stmt.sql
	}
	return results, err
}

// readPipelineResponses demultiplexes n per-statement responses by counting
// completion messages, then consumes the single ReadyForQuery.
func (c *Conn) readPipelineResponses(n int) ([]PipelineResult, error) {
	results := make([]PipelineResult, n)
	idx := 0
	var cols []ColumnDesc
	var failed error

	for {
		typ, payload, err := c.recvMainMsg()
		if err != nil {
			return nil, err
		}
		switch typ {
		case msgParseComplete, msgBindComplete, msgCloseComplete, msgNoData, msgParameterDescription:
		case msgRowDescription:
			cols = parseRowDescription(payload)
		case msgDataRow:
			if idx < n {
				results[idx].Rows = append(results[idx].Rows, Row{Columns: cols, Values: parseDataRow(payload)})
			}
		case msgCommandComplete:
			if idx < n {
				results[idx].Affected = commandTagRows(payload)
			}
			idx++
			cols = nil
		case msgEmptyQueryResponse:
			idx++
			cols = nil
		case msgErrorResponse:
			failed = parseErrorResponse(payload)
			for i := idx; i < n; i++ {
				results[i].Err = failed
				results[i].Rows = nil
			}
			idx = n
		case msgReadyForQuery:
			if len(payload) >= 1 {
				c.status = txStatus(payload[0])
			}
			return results, nil
		}
	}
}
