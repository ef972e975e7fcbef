package db

import (
	"fmt"
	"strings"
)

// Conditions accumulates WHERE clauses with positional arguments. Each clause
// is a format string whose %d verbs are replaced by the next placeholder index.
type Conditions struct {
	clauses []string
	args    []any
}

// Add appends a clause using one placeholder per argument.
func (c *Conditions) Add(clause string, args ...any) {
	idx := make([]any, len(args))
	for i := range args {
		idx[i] = len(c.args) + i + 1
	}
	c.clauses = append(c.clauses, fmt.Sprintf(clause, idx...))
	c.args = append(c.args, args...)
}

// AddSearch appends a case-insensitive match of term against every column.
// The same placeholder is reused for each column.
func (c *Conditions) AddSearch(term string, columns ...string) {
	term = strings.TrimSpace(term)
	if term == "" || len(columns) == 0 {
		return
	}
	c.args = append(c.args, "%"+escapeLike(term)+"%")
	n := len(c.args)
	parts := make([]string, len(columns))
	for i, col := range columns {
		parts[i] = fmt.Sprintf("%s ILIKE $%d", col, n)
	}
	c.clauses = append(c.clauses, "("+strings.Join(parts, " OR ")+")")
}

// Where renders the WHERE clause, or an empty string when no clause was added.
func (c *Conditions) Where() string {
	if len(c.clauses) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(c.clauses, " AND ")
}

// Args returns the accumulated arguments.
func (c *Conditions) Args() []any {
	return append([]any(nil), c.args...)
}

// Page appends LIMIT/OFFSET placeholders and returns the clause with its args.
func (c *Conditions) Page(limit, offset int) (string, []any) {
	args := c.Args()
	n := len(args)
	args = append(args, limit, offset)
	return fmt.Sprintf(" LIMIT $%d OFFSET $%d", n+1, n+2), args
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
