package query

import (
	"strings"

	"github.com/gdps-dev/gdps/internal/model"
)

// FilterSet is the product of Build: every predicate is AND-ed, then the
// soft-delete exclusion is appended when rendered.
type FilterSet struct {
	Filters    []Predicate
	Join       string // static join clause, never client input
	Order      Predicate
	Direction  string
	NoLimit    bool
	IsIDSearch bool
	Offset     int
}

func (fs FilterSet) where() (string, []any) {
	var b strings.Builder
	var args []any
	b.WriteString(" WHERE ")
	for _, f := range fs.Filters {
		b.WriteByte('(')
		b.WriteString(f.SQL)
		b.WriteString(") AND ")
		args = append(args, f.Args...)
	}
	b.WriteString("levels.is_deleted = 0")
	return b.String(), args
}

func (fs FilterSet) from() string {
	if fs.Join == "" {
		return " FROM levels"
	}
	return " FROM levels " + fs.Join
}

// SelectSQL renders the data query for the given column list.
func (fs FilterSet) SelectSQL(d Dialect, columns string) (string, []any) {
	where, args := fs.where()

	var b strings.Builder
	b.WriteString("SELECT ")
	b.WriteString(columns)
	b.WriteString(fs.from())
	b.WriteString(where)
	if fs.Order.SQL != "" {
		b.WriteString(" ORDER BY ")
		b.WriteString(fs.Order.SQL)
		if fs.Direction != "" {
			b.WriteByte(' ')
			b.WriteString(fs.Direction)
		}
		args = append(args, fs.Order.Args...)
	}
	if !fs.NoLimit {
		b.WriteString(" LIMIT ? OFFSET ?")
		args = append(args, model.PageSize, fs.Offset)
	}
	return d.Rebind(b.String()), args
}

// CountSQL renders the matching COUNT query: same filters, no order or limit.
func (fs FilterSet) CountSQL(d Dialect) (string, []any) {
	where, args := fs.where()
	return d.Rebind("SELECT COUNT(*)" + fs.from() + where), args
}
