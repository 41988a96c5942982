package ast

import (
	"strconv"
	"strings"
)

// Expression helpers mirroring the builder shortcuts of the fluent API.

// Col references a column by name.
func Col(name string) Expr {
	return Named{Name: name}
}

// As aliases a named column.
func As(name, alias string) Expr {
	return Aliased{Name: name, Alias: alias}
}

// Count builds COUNT(col) [AS alias]; use "*" for COUNT(*).
func Count(col, alias string) Expr {
	return Aggregate{Col: col, Func: AggCount, Alias: alias}
}

// CountDistinct builds COUNT(DISTINCT col).
func CountDistinct(col, alias string) Expr {
	return Aggregate{Col: col, Func: AggCount, Distinct: true, Alias: alias}
}

// Sum, Avg, Min and Max build the remaining aggregates.
func Sum(col, alias string) Expr { return Aggregate{Col: col, Func: AggSum, Alias: alias} }
func Avg(col, alias string) Expr { return Aggregate{Col: col, Func: AggAvg, Alias: alias} }
func Min(col, alias string) Expr { return Aggregate{Col: col, Func: AggMin, Alias: alias} }
func Max(col, alias string) Expr { return Aggregate{Col: col, Func: AggMax, Alias: alias} }

// CountFilter builds COUNT(col) FILTER (WHERE conds).
func CountFilter(col string, alias string, conds ...Condition) Expr {
	return Aggregate{Col: col, Func: AggCount, Filter: conds, Alias: alias}
}

// Coalesce builds COALESCE(args...).
func Coalesce(args ...Expr) Expr {
	return FunctionCall{Name: "COALESCE", Args: args}
}

// Replace builds REPLACE(expr, from, to).
func Replace(e Expr, from, to string) Expr {
	return FunctionCall{Name: "REPLACE", Args: []Expr{
		e, Literal{Value: String(from)}, Literal{Value: String(to)},
	}}
}

// Substring builds SUBSTRING(expr FROM start FOR length).
func Substring(e Expr, start, length int64) Expr {
	return SpecialFunction{Name: "SUBSTRING", Args: []SpecialArg{
		{Expr: e},
		{Keyword: "FROM", Expr: Literal{Value: Int(start)}},
		{Keyword: "FOR", Expr: Literal{Value: Int(length)}},
	}}
}

// Concat chains expressions with the string concatenation operator.
func Concat(parts ...Expr) Expr {
	if len(parts) == 0 {
		return Literal{Value: String("")}
	}
	e := parts[0]
	for _, p := range parts[1:] {
		e = Binary{Left: e, Op: BinConcat, Right: p}
	}
	return e
}

// CastExpr wraps expr::type.
func CastExpr(e Expr, typ string) Expr {
	return Cast{Inner: e, Type: typ}
}

// CaseWhen builds CASE WHEN cond THEN then [ELSE els] END.
func CaseWhen(whens []When, els Expr, alias string) Expr {
	return Case{Whens: whens, Else: els, Alias: alias}
}

// JSONPath builds column JSON traversal from a dotted path. All segments
// use the object operator (->) except the last, which extracts text (->>).
func JSONPath(column, dotted string) Expr {
	segs := strings.Split(dotted, ".")
	path := make([]PathSeg, len(segs))
	for i, s := range segs {
		path[i] = PathSeg{Key: s, AsText: i == len(segs)-1}
	}
	return JSONAccess{Column: column, Path: path}
}

// Percent builds the guarded percentage expression
// CASE WHEN denom > 0 THEN (num::float8 / denom::float8) * 100 ELSE 0 END.
func Percent(num, denom, alias string) Expr {
	return Case{
		Whens: []When{{
			Cond: Condition{Left: Named{Name: denom}, Op: OpGt, Value: Int(0)},
			Then: Binary{
				Left: Binary{
					Left:  Cast{Inner: Named{Name: num}, Type: "float8"},
					Op:    BinDiv,
					Right: Cast{Inner: Named{Name: denom}, Type: "float8"},
				},
				Op:    BinMul,
				Right: Literal{Value: Int(100)},
			},
		}},
		Else:  Literal{Value: Int(0)},
		Alias: alias,
	}
}

// ParseIntervalShorthand parses duration shorthands like 24h, 7d, 1w, 6mo,
// 1y into an Interval value. The last matching suffix wins, so "6mo" is six
// months, not six minutes-and-an-o. Returns false on malformed input.
func ParseIntervalShorthand(s string) (Interval, bool) {
	units := []struct {
		suffix string
		unit   IntervalUnit
	}{
		{"mo", UnitMonth},
		{"s", UnitSecond},
		{"m", UnitMinute},
		{"h", UnitHour},
		{"d", UnitDay},
		{"w", UnitWeek},
		{"y", UnitYear},
	}
	for _, u := range units {
		if strings.HasSuffix(s, u.suffix) {
			digits := strings.TrimSuffix(s, u.suffix)
			n, err := strconv.ParseInt(digits, 10, 64)
			if err != nil || digits == "" {
				return Interval{}, false
			}
			return Interval{Amount: n, Unit: u.unit}, true
		}
	}
	return Interval{}, false
}

// Recent builds the condition created_at > NOW() - INTERVAL 'shorthand'.
// Malformed shorthands panic; they are compile-time constants in practice.
func Recent(shorthand string) Condition {
	iv, ok := ParseIntervalShorthand(shorthand)
	if !ok {
		panic("ast: invalid interval shorthand " + strconv.Quote(shorthand))
	}
	return Condition{
		Left: Named{Name: "created_at"},
		Op:   OpGt,
		Value: ExprValue{Expr: Binary{
			Left:  FunctionCall{Name: "NOW"},
			Op:    BinSub,
			Right: Literal{Value: iv},
		}},
	}
}
