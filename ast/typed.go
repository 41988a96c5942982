package ast

// Column is a typed column handle. Its comparison methods only accept the
// column's Go type, so a filter on an int column cannot be built with a
// string value.
type Column[T any] struct {
	Name string
}

// NewColumn declares a typed column.
func NewColumn[T any](name string) Column[T] {
	return Column[T]{Name: name}
}

func (c Column[T]) cond(op Operator, v T) Condition {
	return Condition{Left: Named{Name: c.Name}, Op: op, Value: ToValue(v)}
}

// Eq, Ne, Gt, Gte, Lt and Lte build comparison conditions with a
// type-matched value.
func (c Column[T]) Eq(v T) Condition  { return c.cond(OpEq, v) }
func (c Column[T]) Ne(v T) Condition  { return c.cond(OpNe, v) }
func (c Column[T]) Gt(v T) Condition  { return c.cond(OpGt, v) }
func (c Column[T]) Gte(v T) Condition { return c.cond(OpGte, v) }
func (c Column[T]) Lt(v T) Condition  { return c.cond(OpLt, v) }
func (c Column[T]) Lte(v T) Condition { return c.cond(OpLte, v) }

// In builds an IN condition over type-matched values.
func (c Column[T]) In(vs ...T) Condition {
	arr := make(Array, len(vs))
	for i, v := range vs {
		arr[i] = ToValue(v)
	}
	return Condition{Left: Named{Name: c.Name}, Op: OpIn, Value: arr}
}

// IsNull and IsNotNull build null checks; no value participates.
func (c Column[T]) IsNull() Condition {
	return Condition{Left: Named{Name: c.Name}, Op: OpIsNull, Value: Null{}}
}
func (c Column[T]) IsNotNull() Condition {
	return Condition{Left: Named{Name: c.Name}, Op: OpIsNotNull, Value: Null{}}
}

// Between builds a range check; the bounds ride as a two-element array.
func (c Column[T]) Between(lo, hi T) Condition {
	return Condition{Left: Named{Name: c.Name}, Op: OpBetween, Value: Array{ToValue(lo), ToValue(hi)}}
}
