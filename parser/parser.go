// Package parser turns the tolerant line-oriented surface syntax into IR.
// The grammar is keyword-first: get/add/set/del/make pick the action, and
// optional clauses (fields, values, where, conflict, order by, limit,
// offset) follow in one fixed order; a clause out of that order is rejected
// as trailing input.
package parser

import (
	"fmt"
	"strings"

	"github.com/qail-io/qail-go/ast"
)

// ParseError is a surface-syntax error with the byte offset of the token
// that failed.
type ParseError struct {
	Message  string
	Position int
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse error at %d: %s", e.Position, e.Message)
}

// Code returns the stable error code.
func (e *ParseError) Code() string { return "parse" }

type parser struct {
	src string
	pos int
}

// Parse parses one surface-syntax statement. Comments (-- line and
// /* block */) are blanked out first with offsets preserved, so error
// positions point into the caller's original text.
func Parse(input string) (*ast.Statement, error) {
	p := &parser{src: stripComments(input)}
	p.skipSpace()

	stmt, err := p.parseStatement()
	if err != nil {
		return nil, err
	}
	p.skipSpace()
	if p.pos < len(p.src) {
		return nil, p.errf("unexpected trailing input %q", p.remaining(20))
	}
	return stmt, nil
}

// stripComments blanks comments with spaces, preserving every other byte's
// offset.
func stripComments(input string) string {
	out := []byte(input)
	i := 0
	for i < len(out) {
		switch {
		case out[i] == '\'':
			// string literal: skip to closing quote
			i++
			for i < len(out) && out[i] != '\'' {
				i++
			}
			i++
		case i+1 < len(out) && out[i] == '-' && out[i+1] == '-':
			for i < len(out) && out[i] != '\n' {
				out[i] = ' '
				i++
			}
		case i+1 < len(out) && out[i] == '/' && out[i+1] == '*':
			for i < len(out) {
				if i+1 < len(out) && out[i] == '*' && out[i+1] == '/' {
					out[i], out[i+1] = ' ', ' '
					i += 2
					break
				}
				if out[i] != '\n' {
					out[i] = ' '
				}
				i++
			}
		default:
			i++
		}
	}
	return string(out)
}

func (p *parser) errf(format string, args ...any) *ParseError {
	return &ParseError{Message: fmt.Sprintf(format, args...), Position: p.pos}
}

func (p *parser) remaining(n int) string {
	r := p.src[p.pos:]
	if len(r) > n {
		r = r[:n]
	}
	return r
}

func (p *parser) skipSpace() {
	for p.pos < len(p.src) {
		c := p.src[p.pos]
		if c == ' ' || c == '\t' || c == '\n' || c == '\r' {
			p.pos++
			continue
		}
		break
	}
}

// keyword consumes a case-insensitive word followed by a word boundary.
func (p *parser) keyword(word string) bool {
	save := p.pos
	p.skipSpace()
	if p.pos+len(word) > len(p.src) {
		p.pos = save
		return false
	}
	if !strings.EqualFold(p.src[p.pos:p.pos+len(word)], word) {
		p.pos = save
		return false
	}
	end := p.pos + len(word)
	if end < len(p.src) && isWordChar(p.src[end]) {
		p.pos = save
		return false
	}
	p.pos = end
	return true
}

func isWordChar(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9' || c == '_'
}

func (p *parser) char(c byte) bool {
	p.skipSpace()
	if p.pos < len(p.src) && p.src[p.pos] == c {
		p.pos++
		return true
	}
	return false
}

// ident consumes an identifier, allowing dots for qualification.
func (p *parser) ident() (string, error) {
	p.skipSpace()
	start := p.pos
	for p.pos < len(p.src) && (isWordChar(p.src[p.pos]) || p.src[p.pos] == '.') {
		p.pos++
	}
	if p.pos == start {
		return "", p.errf("expected identifier, found %q", p.remaining(10))
	}
	return p.src[start:p.pos], nil
}

func (p *parser) parseStatement() (*ast.Statement, error) {
	switch {
	case p.keyword("begin"):
		return ast.Begin(), nil
	case p.keyword("commit"):
		return ast.Commit(), nil
	case p.keyword("rollback"):
		return ast.Rollback(), nil
	case p.keyword("explain"):
		analyze := p.keyword("analyze")
		inner, err := p.parseStatement()
		if err != nil {
			return nil, err
		}
		if analyze {
			return ast.ExplainAnalyze(inner), nil
		}
		return ast.Explain(inner), nil
	case p.keyword("truncate"):
		name, err := p.ident()
		if err != nil {
			return nil, err
		}
		return ast.Truncate(name), nil
	case p.keyword("lock"):
		name, err := p.ident()
		if err != nil {
			return nil, err
		}
		p.skipSpace()
		mode := strings.TrimSpace(p.src[p.pos:])
		p.pos = len(p.src)
		return ast.Lock(name, strings.ToUpper(mode)), nil
	case p.keyword("drop"):
		if p.keyword("index") {
			name, err := p.ident()
			if err != nil {
				return nil, err
			}
			return ast.DropIndex(name), nil
		}
		name, err := p.ident()
		if err != nil {
			return nil, err
		}
		return ast.Drop(name), nil
	case p.keyword("index"):
		return p.parseCreateIndex(false)
	case p.keyword("unique"):
		if !p.keyword("index") {
			return nil, p.errf("expected 'index' after 'unique'")
		}
		return p.parseCreateIndex(true)
	case p.keyword("make"):
		return p.parseCreateTable()
	case p.keyword("with"):
		return p.parseWith()
	case p.keyword("get"):
		return p.parseQuery(ast.ActionGet)
	case p.keyword("export"):
		return p.parseQuery(ast.ActionExport)
	case p.keyword("add"):
		return p.parseQuery(ast.ActionAdd)
	case p.keyword("set"):
		return p.parseQuery(ast.ActionSet)
	case p.keyword("del"):
		return p.parseQuery(ast.ActionDel)
	}
	return nil, p.errf("expected a statement keyword, found %q", p.remaining(10))
}

// parseWith handles `with [recursive] name [(cols)] as (stmt), ... <main>`.
func (p *parser) parseWith() (*ast.Statement, error) {
	var ctes []ast.CTE
	for {
		recursive := p.keyword("recursive")
		name, err := p.ident()
		if err != nil {
			return nil, err
		}
		var cols []string
		if p.char('(') {
			for {
				col, err := p.ident()
				if err != nil {
					return nil, err
				}
				cols = append(cols, col)
				if !p.char(',') {
					break
				}
			}
			if !p.char(')') {
				return nil, p.errf("expected ')' after CTE column list")
			}
		}
		if !p.keyword("as") {
			return nil, p.errf("expected 'as' in CTE definition")
		}
		if !p.char('(') {
			return nil, p.errf("expected '(' before CTE query")
		}
		base, err := p.parseCTEBody()
		if err != nil {
			return nil, err
		}
		cte := ast.CTE{Name: name, Recursive: recursive, Columns: cols, Base: base}
		if recursive && len(base.SetOps) == 1 && base.SetOps[0].Kind == ast.SetUnionAll {
			cte.RecursivePart = base.SetOps[0].Stmt
			base.SetOps = nil
		}
		if !p.char(')') {
			return nil, p.errf("expected ')' after CTE query")
		}
		ctes = append(ctes, cte)
		if !p.char(',') {
			break
		}
	}

	main, err := p.parseStatement()
	if err != nil {
		return nil, err
	}
	main.CTEs = append(ctes, main.CTEs...)
	return main, nil
}

// parseCTEBody parses a statement inside parentheses, allowing a trailing
// `union all <stmt>` for recursive members.
func (p *parser) parseCTEBody() (*ast.Statement, error) {
	stmt, err := p.parseSubStatement()
	if err != nil {
		return nil, err
	}
	if p.keyword("union") {
		if !p.keyword("all") {
			return nil, p.errf("expected 'all' after 'union' in CTE")
		}
		part, err := p.parseSubStatement()
		if err != nil {
			return nil, err
		}
		stmt.SetOps = append(stmt.SetOps, ast.SetOp{Kind: ast.SetUnionAll, Stmt: part})
	}
	return stmt, nil
}

// parseSubStatement parses a nested statement that stops at an unbalanced
// close paren.
func (p *parser) parseSubStatement() (*ast.Statement, error) {
	if !p.keyword("get") {
		return nil, p.errf("expected 'get' in subquery")
	}
	return p.parseQuery(ast.ActionGet)
}

func (p *parser) parseCreateIndex(unique bool) (*ast.Statement, error) {
	name, err := p.ident()
	if err != nil {
		return nil, err
	}
	if !p.keyword("on") {
		return nil, p.errf("expected 'on' in index definition")
	}
	table, err := p.ident()
	if err != nil {
		return nil, err
	}

	var cols []string
	paren := p.char('(')
	for {
		col, err := p.ident()
		if err != nil {
			return nil, err
		}
		cols = append(cols, col)
		if !p.char(',') {
			break
		}
	}
	if paren && !p.char(')') {
		return nil, p.errf("expected ')' after index columns")
	}
	if p.keyword("unique") {
		unique = true
	}
	return ast.MakeIndex(ast.IndexDef{Name: name, Table: table, Columns: cols, Unique: unique}), nil
}

// parseCreateTable handles `make users id:uuid:pk, email:text:unique,...`
// with optional trailing `primary key (...)` / `unique (...)` constraints.
func (p *parser) parseCreateTable() (*ast.Statement, error) {
	table, err := p.ident()
	if err != nil {
		return nil, err
	}
	stmt := ast.Make(table)

	for {
		def, err := p.parseColumnDef()
		if err != nil {
			return nil, err
		}
		stmt.Columns = append(stmt.Columns, def)
		if !p.char(',') {
			break
		}
	}

	for {
		switch {
		case p.keyword("primary"):
			if !p.keyword("key") {
				return nil, p.errf("expected 'key' after 'primary'")
			}
			cols, err := p.parenIdentList()
			if err != nil {
				return nil, err
			}
			stmt.TableConstraints = append(stmt.TableConstraints,
				ast.TableConstraint{Kind: ast.TablePrimaryKey, Columns: cols})
		case p.keyword("unique"):
			cols, err := p.parenIdentList()
			if err != nil {
				return nil, err
			}
			stmt.TableConstraints = append(stmt.TableConstraints,
				ast.TableConstraint{Kind: ast.TableUnique, Columns: cols})
		default:
			return stmt, nil
		}
	}
}

func (p *parser) parenIdentList() ([]string, error) {
	if !p.char('(') {
		return nil, p.errf("expected '('")
	}
	var cols []string
	for {
		col, err := p.ident()
		if err != nil {
			return nil, err
		}
		cols = append(cols, col)
		if !p.char(',') {
			break
		}
	}
	if !p.char(')') {
		return nil, p.errf("expected ')'")
	}
	return cols, nil
}

// parseColumnDef handles name:type[:constraint...]; default values are
// introduced with default=expr.
func (p *parser) parseColumnDef() (ast.Def, error) {
	name, err := p.ident()
	if err != nil {
		return ast.Def{}, err
	}
	if !p.char(':') {
		return ast.Def{}, p.errf("expected ':' after column name %q", name)
	}
	typ, err := p.ident()
	if err != nil {
		return ast.Def{}, err
	}
	def := ast.Def{Name: name, DataType: typ}

	for p.char(':') {
		word, err := p.constraintWord()
		if err != nil {
			return ast.Def{}, err
		}
		lower := strings.ToLower(word)
		switch {
		case lower == "pk" || lower == "primarykey" || lower == "primary_key":
			def.Constraints = append(def.Constraints, ast.Constraint{Kind: ast.ConstraintPrimaryKey})
		case lower == "notnull" || lower == "nn" || lower == "not_null":
			def.Constraints = append(def.Constraints, ast.Constraint{Kind: ast.ConstraintNotNull})
		case lower == "nullable":
			def.Constraints = append(def.Constraints, ast.Constraint{Kind: ast.ConstraintNullable})
		case lower == "unique" || lower == "uniq":
			def.Constraints = append(def.Constraints, ast.Constraint{Kind: ast.ConstraintUnique})
		case strings.HasPrefix(lower, "default="), strings.HasPrefix(lower, "def="):
			arg := word[strings.IndexByte(word, '=')+1:]
			def.Constraints = append(def.Constraints, ast.Constraint{Kind: ast.ConstraintDefault, Arg: arg})
		case strings.HasPrefix(lower, "references="), strings.HasPrefix(lower, "ref="):
			arg := word[strings.IndexByte(word, '=')+1:]
			def.Constraints = append(def.Constraints, ast.Constraint{Kind: ast.ConstraintReferences, Arg: arg})
		case strings.HasPrefix(lower, "check="):
			arg := word[strings.IndexByte(word, '=')+1:]
			def.Constraints = append(def.Constraints, ast.Constraint{Kind: ast.ConstraintCheck, Arg: arg})
		default:
			return ast.Def{}, p.errf("unknown column constraint %q", word)
		}
	}
	return def, nil
}

// constraintWord reads up to the next ':', ',' or whitespace, keeping
// characters like '(' and ')' so default=now() survives.
func (p *parser) constraintWord() (string, error) {
	p.skipSpace()
	start := p.pos
	for p.pos < len(p.src) {
		c := p.src[p.pos]
		if c == ':' || c == ',' || c == ' ' || c == '\t' || c == '\n' || c == '\r' {
			break
		}
		p.pos++
	}
	if p.pos == start {
		return "", p.errf("expected constraint after ':'")
	}
	return p.src[start:p.pos], nil
}
