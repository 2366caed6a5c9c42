package exec

import (
	"github.com/grafeo-db/grafeo/src/plan"
	"github.com/grafeo-db/grafeo/src/storage"
)

// evalExpr evaluates a scalar expression tree against one row of the
// chunk (row index i in the selection vector), returning storage.NullValue
// for any operand that cannot be resolved -- predicate evaluation never
// panics on a missing column.
func evalExpr(e *plan.Expr, c *Chunk, i int) storage.Value {
	if e == nil {
		return storage.NullValue()
	}
	switch e.Kind {
	case plan.ExprLiteral:
		return literalValue(e.Literal)
	case plan.ExprProperty:
		col, ok := c.Columns[e.Var]
		if !ok {
			return storage.NullValue()
		}
		return col[c.Sel[i]]
	case plan.ExprUnary:
		v := evalExpr(e.Children[0], c, i)
		if e.Op == "not" && v.Kind() == storage.KindBool {
			return storage.BoolValue(!v.AsBool())
		}
		return storage.NullValue()
	case plan.ExprBinary:
		return evalBinary(e, c, i)
	default:
		return storage.NullValue()
	}
}

func literalValue(v any) storage.Value {
	switch t := v.(type) {
	case nil:
		return storage.NullValue()
	case bool:
		return storage.BoolValue(t)
	case int:
		return storage.I64Value(int64(t))
	case int64:
		return storage.I64Value(t)
	case float64:
		return storage.F64Value(t)
	case string:
		return storage.InternedStringValue(0, []byte(t))
	default:
		return storage.NullValue()
	}
}

func evalBinary(e *plan.Expr, c *Chunk, i int) storage.Value {
	lhs := evalExpr(e.Children[0], c, i)
	rhs := evalExpr(e.Children[1], c, i)

	switch e.Op {
	case "and":
		return storage.BoolValue(lhs.Kind() == storage.KindBool && rhs.Kind() == storage.KindBool && lhs.AsBool() && rhs.AsBool())
	case "or":
		return storage.BoolValue((lhs.Kind() == storage.KindBool && lhs.AsBool()) || (rhs.Kind() == storage.KindBool && rhs.AsBool()))
	case "=":
		return storage.BoolValue(lhs.Equal(rhs))
	case "!=":
		return storage.BoolValue(!lhs.Equal(rhs) && lhs.Kind() != storage.KindNull && rhs.Kind() != storage.KindNull)
	case "<", "<=", ">", ">=":
		cmp, ok := lhs.Compare(rhs)
		if !ok {
			return storage.NullValue()
		}
		switch e.Op {
		case "<":
			return storage.BoolValue(cmp < 0)
		case "<=":
			return storage.BoolValue(cmp <= 0)
		case ">":
			return storage.BoolValue(cmp > 0)
		default:
			return storage.BoolValue(cmp >= 0)
		}
	default:
		return storage.NullValue()
	}
}

// truthy applies the null-is-false semantics of a WHERE predicate.
func truthy(v storage.Value) bool {
	return v.Kind() == storage.KindBool && v.AsBool()
}
