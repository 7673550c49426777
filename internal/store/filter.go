package store

import (
	"fmt"
	"strings"
)

// Op is a comparison operator in a typed query predicate.
type Op string

const (
	OpEq  Op = "="
	OpNeq Op = "<>"
	OpLt  Op = "<"
	OpLte Op = "<="
	OpGt  Op = ">"
	OpGte Op = ">="
	OpIn  Op = "IN"
)

// Cond is one (field, operator, value) condition. Fields are logical entity
// field names, mapped to columns per entity; unknown fields are rejected at
// compile time rather than interpolated.
type Cond struct {
	Field string
	Op    Op
	Value any
}

// Filter is a conjunction of conditions.
type Filter []Cond

func (f Filter) Where(field string, op Op, value any) Filter {
	return append(f, Cond{Field: field, Op: op, Value: value})
}

// compile renders the filter as an SQL boolean expression using the given
// field→column map. Placeholders are numbered starting at firstArg.
func (f Filter) compile(columns map[string]string, firstArg int) (string, []any, error) {
	if len(f) == 0 {
		return "TRUE", nil, nil
	}

	var parts []string
	var args []any
	n := firstArg
	for _, c := range f {
		col, ok := columns[c.Field]
		if !ok {
			return "", nil, fmt.Errorf("unknown filter field %q", c.Field)
		}
		switch c.Op {
		case OpEq, OpNeq, OpLt, OpLte, OpGt, OpGte:
			parts = append(parts, fmt.Sprintf("%s %s $%d", col, c.Op, n))
			args = append(args, c.Value)
			n++
		case OpIn:
			parts = append(parts, fmt.Sprintf("%s = ANY($%d)", col, n))
			args = append(args, c.Value)
			n++
		default:
			return "", nil, fmt.Errorf("unknown filter operator %q", c.Op)
		}
	}
	return strings.Join(parts, " AND "), args, nil
}
