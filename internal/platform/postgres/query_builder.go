package postgres

import (
	"strconv"
	"strings"
)

// queryBuilder assembles a statement with positional ($n) parameters.
type queryBuilder struct {
	sb   strings.Builder
	args []any
}

// write appends raw SQL.
func (b *queryBuilder) write(parts ...string) *queryBuilder {
	for _, p := range parts {
		b.sb.WriteString(p)
	}
	return b
}

// arg records v as the next parameter and returns its placeholder.
func (b *queryBuilder) arg(v any) string {
	b.args = append(b.args, v)
	return "$" + strconv.Itoa(len(b.args))
}

// list records every value and returns a parenthesized placeholder list,
// e.g. "($3, $4)". values must not be empty.
func (b *queryBuilder) list(values []string) string {
	placeholders := make([]string, 0, len(values))
	for _, v := range values {
		placeholders = append(placeholders, b.arg(v))
	}
	return "(" + strings.Join(placeholders, ", ") + ")"
}

// where writes the conditions joined by AND, or nothing when there are none.
func (b *queryBuilder) where(conditions []string) *queryBuilder {
	if len(conditions) == 0 {
		return b
	}
	return b.write(" WHERE ", strings.Join(conditions, " AND "))
}

func (b *queryBuilder) String() string {
	return b.sb.String()
}
