package ast

import (
	"fmt"

	"github.com/google/uuid"
)

// Value is the right-hand side of a condition or a payload element.
// It is a closed sum; the sealed isValue method keeps the set of kinds
// within this package.
type Value interface {
	isValue()
}

// Null is the SQL NULL.
type Null struct{}

// NullUUID is a NULL destined for a uuid column.
type NullUUID struct{}

type Bool bool

type Int int64

type Float float64

type String string

// Param is a positional parameter reference ($n, 1-based).
type Param int

// NamedParam is a named parameter reference (:name).
type NamedParam string

// FuncValue is an opaque function expression used as a value, e.g. NOW().
type FuncValue string

// Array is an ordered list of values.
type Array []Value

// Subquery embeds a whole statement as a value.
type Subquery struct {
	Stmt *Statement
}

// ColumnRef references another column, e.g. the right side of a join
// condition or `col_a = col_b` filters.
type ColumnRef string

// UUID is a concrete uuid value.
type UUID uuid.UUID

// Interval is a time interval such as 24 hours or 7 days.
type Interval struct {
	Amount int64
	Unit   IntervalUnit
}

// Timestamp carries a preformatted timestamp string.
type Timestamp string

// Bytes is raw binary data (bytea).
type Bytes []byte

// ExprValue wraps an expression used where a value is expected,
// e.g. `col > NOW() - INTERVAL '1 day'`.
type ExprValue struct {
	Expr Expr
}

// Vector is an embedding for similarity search.
type Vector []float32

// JSON carries a raw JSON document destined for a json/jsonb column.
type JSON string

func (Null) isValue()       {}
func (NullUUID) isValue()   {}
func (Bool) isValue()       {}
func (Int) isValue()        {}
func (Float) isValue()      {}
func (String) isValue()     {}
func (Param) isValue()      {}
func (NamedParam) isValue() {}
func (FuncValue) isValue()  {}
func (Array) isValue()      {}
func (Subquery) isValue()   {}
func (ColumnRef) isValue()  {}
func (UUID) isValue()       {}
func (Interval) isValue()   {}
func (Timestamp) isValue()  {}
func (Bytes) isValue()      {}
func (ExprValue) isValue()  {}
func (Vector) isValue()     {}
func (JSON) isValue()       {}

// ToValue converts a plain Go value into a Value. It accepts the kinds the
// builder API takes from callers; anything else panics, which is a
// programming error on the caller's side.
func ToValue(v any) Value {
	switch x := v.(type) {
	case nil:
		return Null{}
	case Value:
		return x
	case bool:
		return Bool(x)
	case int:
		return Int(x)
	case int32:
		return Int(x)
	case int64:
		return Int(x)
	case uint:
		return Int(x)
	case float32:
		return Float(x)
	case float64:
		return Float(x)
	case string:
		return String(x)
	case []byte:
		return Bytes(x)
	case uuid.UUID:
		return UUID(x)
	case *uuid.UUID:
		if x == nil {
			return NullUUID{}
		}
		return UUID(*x)
	case []float32:
		return Vector(x)
	case []any:
		arr := make(Array, len(x))
		for i, e := range x {
			arr[i] = ToValue(e)
		}
		return arr
	case []string:
		arr := make(Array, len(x))
		for i, e := range x {
			arr[i] = String(e)
		}
		return arr
	case []int:
		arr := make(Array, len(x))
		for i, e := range x {
			arr[i] = Int(e)
		}
		return arr
	case []int64:
		arr := make(Array, len(x))
		for i, e := range x {
			arr[i] = Int(e)
		}
		return arr
	}
	panic(fmt.Sprintf("ast: unsupported value type %T", v))
}
