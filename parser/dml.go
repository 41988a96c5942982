package parser

import (
	"strconv"
	"strings"

	"github.com/qail-io/qail-go/ast"
)

// parseQuery parses the clause tail shared by get/add/set/del/export after
// the action keyword.
func (p *parser) parseQuery(action ast.Action) (*ast.Statement, error) {
	stmt := &ast.Statement{Action: action}

	// get distinct [on (cols)] table
	if action == ast.ActionGet || action == ast.ActionExport {
		if p.keyword("distinct") {
			stmt.Distinct = true
			if p.keyword("on") {
				if !p.char('(') {
					return nil, p.errf("expected '(' after 'distinct on'")
				}
				for {
					e, err := p.parseFieldExpr()
					if err != nil {
						return nil, err
					}
					stmt.DistinctOn = append(stmt.DistinctOn, e)
					if !p.char(',') {
						break
					}
				}
				if !p.char(')') {
					return nil, p.errf("expected ')' after 'distinct on' list")
				}
			}
		}
	}

	table, err := p.ident()
	if err != nil {
		return nil, err
	}
	stmt.Table = table

	// joins come directly after the table
	for {
		kind, ok := p.parseJoinKind()
		if !ok {
			break
		}
		joinTable, err := p.ident()
		if err != nil {
			return nil, err
		}
		j := ast.Join{Kind: kind, Table: joinTable}
		if p.keyword("on") {
			if p.keyword("true") {
				j.OnTrue = true
			} else {
				for {
					left, err := p.ident()
					if err != nil {
						return nil, err
					}
					if !p.char('=') {
						return nil, p.errf("expected '=' in join condition")
					}
					right, err := p.ident()
					if err != nil {
						return nil, err
					}
					j.On = append(j.On, ast.Condition{
						Left:  ast.Named{Name: left},
						Op:    ast.OpEq,
						Value: ast.ColumnRef(right),
					})
					if !p.keyword("and") {
						break
					}
				}
			}
		}
		stmt.Joins = append(stmt.Joins, j)
	}

	// set: `values col = v, ...` is the payload
	if action == ast.ActionSet {
		if p.keyword("values") {
			cage := ast.Cage{Kind: ast.CagePayload}
			for {
				col, err := p.ident()
				if err != nil {
					return nil, err
				}
				if !p.char('=') {
					return nil, p.errf("expected '=' in assignment")
				}
				v, err := p.parseValue()
				if err != nil {
					return nil, err
				}
				cage.Conditions = append(cage.Conditions, ast.Condition{
					Left: ast.Named{Name: col}, Op: ast.OpEq, Value: v,
				})
				if !p.char(',') {
					break
				}
			}
			stmt.Cages = append(stmt.Cages, cage)
		}
	}

	if p.keyword("fields") {
		for {
			e, err := p.parseFieldExpr()
			if err != nil {
				return nil, err
			}
			stmt.Columns = append(stmt.Columns, e)
			if !p.char(',') {
				break
			}
		}
	}

	// add: `from (get ...)` or `values v1, v2, ...`
	if action == ast.ActionAdd {
		save := p.pos
		if p.keyword("from") {
			if p.char('(') {
				sub, err := p.parseSubStatement()
				if err != nil {
					return nil, err
				}
				if !p.char(')') {
					return nil, p.errf("expected ')' after source query")
				}
				stmt.SourceQuery = sub
			} else {
				p.pos = save
			}
		}
		if stmt.SourceQuery == nil && p.keyword("values") {
			cage := ast.Cage{Kind: ast.CagePayload}
			i := 0
			for {
				v, err := p.parseValue()
				if err != nil {
					return nil, err
				}
				i++
				cage.Conditions = append(cage.Conditions, ast.Condition{
					Left: ast.Named{Name: "$" + strconv.Itoa(i)}, Op: ast.OpEq, Value: v,
				})
				if !p.char(',') {
					break
				}
			}
			stmt.Cages = append(stmt.Cages, cage)
		}
	}

	if p.keyword("where") {
		cage, err := p.parseConditions()
		if err != nil {
			return nil, err
		}
		stmt.Cages = append(stmt.Cages, cage)
	}

	if p.keyword("group") {
		if !p.keyword("by") {
			return nil, p.errf("expected 'by' after 'group'")
		}
		for {
			name, err := p.ident()
			if err != nil {
				return nil, err
			}
			stmt.GroupBy = append(stmt.GroupBy, ast.Named{Name: name})
			if !p.char(',') {
				break
			}
		}
	}

	if p.keyword("having") {
		cage, err := p.parseConditions()
		if err != nil {
			return nil, err
		}
		stmt.Having = cage.Conditions
	}

	if action == ast.ActionAdd && p.keyword("conflict") {
		oc := &ast.OnConflict{}
		cols, err := p.parenIdentList()
		if err != nil {
			return nil, err
		}
		oc.Columns = cols
		switch {
		case p.keyword("nothing"):
			oc.Action = ast.ConflictDoNothing
		case p.keyword("update"):
			oc.Action = ast.ConflictDoUpdate
			for {
				col, err := p.ident()
				if err != nil {
					return nil, err
				}
				if !p.char('=') {
					return nil, p.errf("expected '=' in conflict assignment")
				}
				v, err := p.parseValue()
				if err != nil {
					return nil, err
				}
				oc.Assignments = append(oc.Assignments, ast.Assignment{
					Column: col,
					Expr:   ast.Literal{Value: v},
				})
				if !p.char(',') {
					break
				}
			}
		default:
			return nil, p.errf("expected 'nothing' or 'update' after conflict columns")
		}
		stmt.OnConflict = oc
	}

	if p.keyword("returning") {
		for {
			e, err := p.parseFieldExpr()
			if err != nil {
				return nil, err
			}
			stmt.Returning = append(stmt.Returning, e)
			if !p.char(',') {
				break
			}
		}
	}

	if p.keyword("order") {
		if !p.keyword("by") {
			return nil, p.errf("expected 'by' after 'order'")
		}
		for {
			name, err := p.ident()
			if err != nil {
				return nil, err
			}
			order := ast.SortAsc
			if p.keyword("desc") {
				order = ast.SortDesc
			} else {
				p.keyword("asc")
			}
			stmt.Cages = append(stmt.Cages, ast.Cage{
				Kind:       ast.CageSort,
				Order:      order,
				Conditions: []ast.Condition{{Left: ast.Named{Name: name}}},
			})
			if !p.char(',') {
				break
			}
		}
	}

	if p.keyword("limit") {
		n, err := p.parseUint()
		if err != nil {
			return nil, err
		}
		stmt.Cages = append(stmt.Cages, ast.Cage{Kind: ast.CageLimit, N: n})
	}

	if p.keyword("offset") {
		n, err := p.parseUint()
		if err != nil {
			return nil, err
		}
		stmt.Cages = append(stmt.Cages, ast.Cage{Kind: ast.CageOffset, N: n})
	}

	return stmt, nil
}

func (p *parser) parseJoinKind() (ast.JoinKind, bool) {
	switch {
	case p.keyword("join"):
		return ast.JoinInner, true
	case p.keyword("inner"):
		p.keyword("join")
		return ast.JoinInner, true
	case p.keyword("left"):
		p.keyword("join")
		return ast.JoinLeft, true
	case p.keyword("right"):
		p.keyword("join")
		return ast.JoinRight, true
	case p.keyword("full"):
		p.keyword("join")
		return ast.JoinFull, true
	case p.keyword("cross"):
		p.keyword("join")
		return ast.JoinCross, true
	case p.keyword("lateral"):
		p.keyword("join")
		return ast.JoinLateral, true
	}
	return 0, false
}

func (p *parser) parseUint() (uint64, error) {
	p.skipSpace()
	start := p.pos
	for p.pos < len(p.src) && p.src[p.pos] >= '0' && p.src[p.pos] <= '9' {
		p.pos++
	}
	if p.pos == start {
		return 0, p.errf("expected a number")
	}
	n, err := strconv.ParseUint(p.src[start:p.pos], 10, 64)
	if err != nil {
		return 0, p.errf("bad number %q", p.src[start:p.pos])
	}
	return n, nil
}

// parseConditions parses cond (and|or cond)* into one cage. A single
// logical operator governs the cage; any 'or' switches it.
func (p *parser) parseConditions() (ast.Cage, error) {
	cage := ast.Cage{Kind: ast.CageFilter, Op: ast.LogicalAnd}
	for {
		cond, err := p.parseCondition()
		if err != nil {
			return cage, err
		}
		cage.Conditions = append(cage.Conditions, cond)
		if p.keyword("and") {
			continue
		}
		if p.keyword("or") {
			cage.Op = ast.LogicalOr
			continue
		}
		return cage, nil
	}
}

func (p *parser) parseCondition() (ast.Condition, error) {
	left, err := p.ident()
	if err != nil {
		return ast.Condition{}, err
	}
	cond := ast.Condition{Left: ast.Named{Name: left}, Value: ast.Null{}}

	p.skipSpace()
	switch {
	case p.keyword("is"):
		if p.keyword("not") {
			if !p.keyword("null") {
				return cond, p.errf("expected 'null' after 'is not'")
			}
			cond.Op = ast.OpIsNotNull
			return cond, nil
		}
		if !p.keyword("null") {
			return cond, p.errf("expected 'null' after 'is'")
		}
		cond.Op = ast.OpIsNull
		return cond, nil
	case p.keyword("not"):
		switch {
		case p.keyword("in"):
			cond.Op = ast.OpNotIn
		case p.keyword("like"):
			cond.Op = ast.OpNotLike
		case p.keyword("ilike"):
			cond.Op = ast.OpNotILike
		case p.keyword("between"):
			return p.parseBetween(cond, true)
		default:
			return cond, p.errf("expected in/like/ilike/between after 'not'")
		}
	case p.keyword("between"):
		return p.parseBetween(cond, false)
	case p.keyword("in"):
		cond.Op = ast.OpIn
	case p.keyword("like"):
		cond.Op = ast.OpLike
	case p.keyword("ilike"):
		cond.Op = ast.OpILike
	default:
		op, err := p.parseOpSymbol()
		if err != nil {
			return cond, err
		}
		cond.Op = op
	}

	if cond.Op == ast.OpIn || cond.Op == ast.OpNotIn {
		if !p.char('(') {
			return cond, p.errf("expected '(' after in")
		}
		var arr ast.Array
		for {
			v, err := p.parseValue()
			if err != nil {
				return cond, err
			}
			arr = append(arr, v)
			if !p.char(',') {
				break
			}
		}
		if !p.char(')') {
			return cond, p.errf("expected ')' after in list")
		}
		cond.Value = arr
		return cond, nil
	}

	v, err := p.parseValue()
	if err != nil {
		return cond, err
	}
	cond.Value = v
	return cond, nil
}

func (p *parser) parseBetween(cond ast.Condition, negated bool) (ast.Condition, error) {
	lo, err := p.parseValue()
	if err != nil {
		return cond, err
	}
	if !p.keyword("and") {
		return cond, p.errf("expected 'and' in between")
	}
	hi, err := p.parseValue()
	if err != nil {
		return cond, err
	}
	cond.Op = ast.OpBetween
	if negated {
		cond.Op = ast.OpNotBetween
	}
	cond.Value = ast.Array{lo, hi}
	return cond, nil
}

func (p *parser) parseOpSymbol() (ast.Operator, error) {
	p.skipSpace()
	rest := p.src[p.pos:]
	two := ""
	if len(rest) >= 2 {
		two = rest[:2]
	}
	switch two {
	case "!=", "<>":
		p.pos += 2
		return ast.OpNe, nil
	case ">=":
		p.pos += 2
		return ast.OpGte, nil
	case "<=":
		p.pos += 2
		return ast.OpLte, nil
	case "@>":
		p.pos += 2
		return ast.OpContains, nil
	}
	if len(rest) >= 1 {
		switch rest[0] {
		case '=':
			p.pos++
			return ast.OpEq, nil
		case '>':
			p.pos++
			return ast.OpGt, nil
		case '<':
			p.pos++
			return ast.OpLt, nil
		case '~':
			p.pos++
			return ast.OpFuzzy, nil
		case '?':
			p.pos++
			return ast.OpKeyExists, nil
		}
	}
	return 0, p.errf("expected an operator, found %q", p.remaining(5))
}

// parseValue parses a literal, parameter, interval shorthand, function
// call, or bare column reference.
func (p *parser) parseValue() (ast.Value, error) {
	p.skipSpace()
	if p.pos >= len(p.src) {
		return nil, p.errf("expected a value")
	}
	c := p.src[p.pos]

	switch {
	case c == '\'':
		p.pos++
		var b strings.Builder
		for p.pos < len(p.src) {
			if p.src[p.pos] == '\'' {
				// doubled quote is an escaped quote
				if p.pos+1 < len(p.src) && p.src[p.pos+1] == '\'' {
					b.WriteByte('\'')
					p.pos += 2
					continue
				}
				p.pos++
				return ast.String(b.String()), nil
			}
			b.WriteByte(p.src[p.pos])
			p.pos++
		}
		return nil, p.errf("unterminated string literal")
	case c == '$':
		p.pos++
		start := p.pos
		for p.pos < len(p.src) && p.src[p.pos] >= '0' && p.src[p.pos] <= '9' {
			p.pos++
		}
		if p.pos == start {
			return nil, p.errf("expected digits after '$'")
		}
		n, _ := strconv.Atoi(p.src[start:p.pos])
		return ast.Param(n), nil
	case c == ':':
		p.pos++
		name, err := p.ident()
		if err != nil {
			return nil, err
		}
		return ast.NamedParam(name), nil
	case c == '-' || c >= '0' && c <= '9':
		return p.parseNumberOrInterval()
	}

	word, err := p.ident()
	if err != nil {
		return nil, err
	}
	switch strings.ToLower(word) {
	case "true":
		return ast.Bool(true), nil
	case "false":
		return ast.Bool(false), nil
	case "null":
		return ast.Null{}, nil
	}
	// Function call values stay opaque: now(), uuid_generate_v4()
	if p.pos < len(p.src) && p.src[p.pos] == '(' {
		start := p.pos
		depth := 0
		for p.pos < len(p.src) {
			switch p.src[p.pos] {
			case '(':
				depth++
			case ')':
				depth--
			}
			p.pos++
			if depth == 0 {
				break
			}
		}
		return ast.FuncValue(word + p.src[start:p.pos]), nil
	}
	return ast.ColumnRef(word), nil
}

// parseNumberOrInterval reads a numeric literal, promoting trailing unit
// suffixes (24h, 7d, 1w, 6mo, 1y) to intervals.
func (p *parser) parseNumberOrInterval() (ast.Value, error) {
	start := p.pos
	if p.src[p.pos] == '-' {
		p.pos++
	}
	digits := p.pos
	isFloat := false
	for p.pos < len(p.src) {
		c := p.src[p.pos]
		if c >= '0' && c <= '9' {
			p.pos++
			continue
		}
		if c == '.' && !isFloat && p.pos+1 < len(p.src) && p.src[p.pos+1] >= '0' && p.src[p.pos+1] <= '9' {
			isFloat = true
			p.pos++
			continue
		}
		break
	}
	if p.pos == digits {
		return nil, p.errf("expected digits")
	}

	// interval suffix?
	sufStart := p.pos
	for p.pos < len(p.src) && (p.src[p.pos] >= 'a' && p.src[p.pos] <= 'z') {
		p.pos++
	}
	if p.pos > sufStart && !isFloat {
		iv, ok := ast.ParseIntervalShorthand(p.src[start:p.pos])
		if !ok {
			return nil, p.errf("bad interval shorthand %q", p.src[start:p.pos])
		}
		return iv, nil
	}
	p.pos = sufStart

	text := p.src[start:p.pos]
	if isFloat {
		f, err := strconv.ParseFloat(text, 64)
		if err != nil {
			return nil, p.errf("bad float %q", text)
		}
		return ast.Float(f), nil
	}
	n, err := strconv.ParseInt(text, 10, 64)
	if err != nil {
		return nil, p.errf("bad integer %q", text)
	}
	return ast.Int(n), nil
}

// parseFieldExpr parses one projection: *, column, aggregate(col), or a
// column with an alias.
func (p *parser) parseFieldExpr() (ast.Expr, error) {
	p.skipSpace()
	if p.pos < len(p.src) && p.src[p.pos] == '*' {
		p.pos++
		return ast.Star{}, nil
	}

	name, err := p.ident()
	if err != nil {
		return nil, err
	}

	if fn, ok := aggregateFunc(name); ok && p.pos < len(p.src) && p.src[p.pos] == '(' {
		p.pos++
		distinct := p.keyword("distinct")
		p.skipSpace()
		col := "*"
		if p.pos < len(p.src) && p.src[p.pos] == '*' {
			p.pos++
		} else {
			col, err = p.ident()
			if err != nil {
				return nil, err
			}
		}
		if !p.char(')') {
			return nil, p.errf("expected ')' after aggregate")
		}
		alias := ""
		if p.keyword("as") {
			alias, err = p.ident()
			if err != nil {
				return nil, err
			}
		}
		return ast.Aggregate{Col: col, Func: fn, Distinct: distinct, Alias: alias}, nil
	}

	if p.keyword("as") {
		alias, err := p.ident()
		if err != nil {
			return nil, err
		}
		return ast.Aliased{Name: name, Alias: alias}, nil
	}
	return ast.Named{Name: name}, nil
}

func aggregateFunc(name string) (ast.AggregateFunc, bool) {
	switch strings.ToLower(name) {
	case "count":
		return ast.AggCount, true
	case "sum":
		return ast.AggSum, true
	case "avg":
		return ast.AggAvg, true
	case "min":
		return ast.AggMin, true
	case "max":
		return ast.AggMax, true
	}
	return 0, false
}
