package sqlexpr

import (
	"strconv"
	"strings"
)

// Order is an ORDER BY term.
type Order struct {
	field Field
	desc  bool
}

// Asc orders by f ascending.
func Asc(f Field) Order { return Order{field: f} }

// Desc orders by f descending.
func Desc(f Field) Order { return Order{field: f, desc: true} }

// SelectQuery builds a SELECT statement.
type SelectQuery struct {
	fields []Field
	table  string
	where  Criterion
	orders []Order
	limit  int
}

// Select starts a SELECT over the given fields. No fields selects *.
func Select(fields ...Field) *SelectQuery {
	return &SelectQuery{fields: fields}
}

// From sets the source table.
func (q *SelectQuery) From(table string) *SelectQuery {
	q.table = table
	return q
}

// Where sets the filter.
func (q *SelectQuery) Where(c Criterion) *SelectQuery {
	q.where = c
	return q
}

// OrderBy appends ordering terms.
func (q *SelectQuery) OrderBy(orders ...Order) *SelectQuery {
	q.orders = append(q.orders, orders...)
	return q
}

// Limit caps the number of rows. Zero or negative means no limit.
func (q *SelectQuery) Limit(n int) *SelectQuery {
	q.limit = n
	return q
}

// Build renders the statement and its positional arguments.
func (q *SelectQuery) Build() (string, []any) {
	var b strings.Builder
	var args []any

	b.WriteString("SELECT ")
	if len(q.fields) == 0 {
		b.WriteString("*")
	}
	for i, f := range q.fields {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(f.expr)
		args = append(args, f.args...)
	}

	b.WriteString(" FROM ")
	b.WriteString(q.table)

	if !q.where.IsZero() {
		b.WriteString(" WHERE ")
		b.WriteString(q.where.sql)
		args = append(args, q.where.args...)
	}

	for i, o := range q.orders {
		if i == 0 {
			b.WriteString(" ORDER BY ")
		} else {
			b.WriteString(", ")
		}
		b.WriteString(o.field.expr)
		if o.desc {
			b.WriteString(" DESC")
		} else {
			b.WriteString(" ASC")
		}
		args = append(args, o.field.args...)
	}

	if q.limit > 0 {
		b.WriteString(" LIMIT ")
		b.WriteString(strconv.Itoa(q.limit))
	}

	return b.String(), args
}

type assignment struct {
	column Field
	value  any
}

// UpdateQuery builds an UPDATE statement.
type UpdateQuery struct {
	table string
	sets  []assignment
	where Criterion
}

// Update starts an UPDATE of table.
func Update(table string) *UpdateQuery {
	return &UpdateQuery{table: table}
}

// Set assigns value to column. A Field value is inlined as an expression.
func (q *UpdateQuery) Set(column Field, value any) *UpdateQuery {
	q.sets = append(q.sets, assignment{column: column, value: value})
	return q
}

// Where sets the filter. An update without a filter touches every row.
func (q *UpdateQuery) Where(c Criterion) *UpdateQuery {
	q.where = c
	return q
}

// Build renders the statement and its positional arguments.
func (q *UpdateQuery) Build() (string, []any) {
	var b strings.Builder
	var args []any

	b.WriteString("UPDATE ")
	b.WriteString(q.table)
	b.WriteString(" SET ")
	for i, s := range q.sets {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(s.column.expr)
		b.WriteString(" = ")
		args = appendValue(&b, args, s.value)
	}

	if !q.where.IsZero() {
		b.WriteString(" WHERE ")
		b.WriteString(q.where.sql)
		args = append(args, q.where.args...)
	}

	return b.String(), args
}

// InsertQuery builds an INSERT statement.
type InsertQuery struct {
	table  string
	values []assignment
}

// Insert starts an INSERT into table.
func Insert(table string) *InsertQuery {
	return &InsertQuery{table: table}
}

// Value adds a column value. A Field value is inlined as an expression.
func (q *InsertQuery) Value(column Field, value any) *InsertQuery {
	q.values = append(q.values, assignment{column: column, value: value})
	return q
}

// Build renders the statement and its positional arguments.
func (q *InsertQuery) Build() (string, []any) {
	var cols, vals strings.Builder
	var args []any

	for i, v := range q.values {
		if i > 0 {
			cols.WriteString(", ")
			vals.WriteString(", ")
		}
		cols.WriteString(v.column.expr)
		args = appendValue(&vals, args, v.value)
	}

	return "INSERT INTO " + q.table + " (" + cols.String() + ") VALUES (" + vals.String() + ")", args
}

func appendValue(b *strings.Builder, args []any, value any) []any {
	if f, ok := value.(Field); ok {
		b.WriteString(f.expr)
		return append(args, f.args...)
	}
	b.WriteString("?")
	return append(args, value)
}

// DeleteQuery builds a DELETE statement.
type DeleteQuery struct {
	table string
	where Criterion
}

// Delete starts a DELETE from table.
func Delete(table string) *DeleteQuery {
	return &DeleteQuery{table: table}
}

// Where sets the filter. A delete without a filter removes every row.
func (q *DeleteQuery) Where(c Criterion) *DeleteQuery {
	q.where = c
	return q
}

// Build renders the statement and its positional arguments.
func (q *DeleteQuery) Build() (string, []any) {
	if q.where.IsZero() {
		return "DELETE FROM " + q.table, nil
	}
	return "DELETE FROM " + q.table + " WHERE " + q.where.sql, q.where.args
}
