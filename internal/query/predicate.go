// Package query turns a browse request into a parameterized level query.
//
// Filters are accumulated as Predicate values carrying their own bound
// arguments, so nothing a client sends is ever spliced into SQL text.
package query

import "strings"

// Predicate is a boolean SQL fragment using '?' placeholders plus the
// arguments for those placeholders, in order.
type Predicate struct {
	SQL  string
	Args []any
}

// False matches no row.
var False = Predicate{SQL: "1 = 0"}

// Raw wraps a static fragment. The fragment must not contain client input.
func Raw(sql string, args ...any) Predicate {
	return Predicate{SQL: sql, Args: args}
}

func Eq(col string, v any) Predicate { return Predicate{SQL: col + " = ?", Args: []any{v}} }
func Ne(col string, v any) Predicate { return Predicate{SQL: col + " <> ?", Args: []any{v}} }
func Gt(col string, v any) Predicate { return Predicate{SQL: col + " > ?", Args: []any{v}} }
func Lt(col string, v any) Predicate { return Predicate{SQL: col + " < ?", Args: []any{v}} }
func Le(col string, v any) Predicate { return Predicate{SQL: col + " <= ?", Args: []any{v}} }

// ILike is a case-insensitive pattern match. pattern is bound as-is.
func ILike(col, pattern string) Predicate {
	return Predicate{SQL: col + " ILIKE ?", Args: []any{pattern}}
}

// In matches col against a list of values. An empty list matches nothing.
func In[T any](col string, vals []T) Predicate {
	if len(vals) == 0 {
		return False
	}
	args := make([]any, len(vals))
	for i, v := range vals {
		args[i] = v
	}
	return Predicate{SQL: col + " IN (" + placeholders(len(vals)) + ")", Args: args}
}

// Not negates p.
func Not(p Predicate) Predicate {
	return Predicate{SQL: "NOT (" + p.SQL + ")", Args: p.Args}
}

// And joins predicates with AND inside parentheses.
func And(ps ...Predicate) Predicate { return join(" AND ", ps) }

// Or joins predicates with OR inside parentheses.
func Or(ps ...Predicate) Predicate { return join(" OR ", ps) }

func join(sep string, ps []Predicate) Predicate {
	if len(ps) == 1 {
		return ps[0]
	}
	parts := make([]string, 0, len(ps))
	var args []any
	for _, p := range ps {
		parts = append(parts, p.SQL)
		args = append(args, p.Args...)
	}
	return Predicate{SQL: "(" + strings.Join(parts, sep) + ")", Args: args}
}

func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}
