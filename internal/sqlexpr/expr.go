// Package sqlexpr builds SQLite query fragments from typed field references.
//
// Fields and criteria carry their positional arguments with them, so a
// fragment can be embedded in a larger statement without losing the values
// bound to its placeholders.
//
//	crit := sqlexpr.And(TagUUID.Eq(uuid), Key.Eq("tagmember"))
//	query, args := sqlexpr.Select(Value).From("tag_metadata").Where(crit).Build()
package sqlexpr

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
)

// Field is a column reference or a computed expression.
type Field struct {
	expr string
	args []any
}

// NewField returns a field for the given column name or expression.
func NewField(expr string) Field {
	return Field{expr: expr}
}

// String returns the SQL text of the field.
func (f Field) String() string {
	return f.expr
}

// Args returns the positional arguments referenced by the field.
func (f Field) Args() []any {
	return f.args
}

// As aliases the field in a select list.
func (f Field) As(alias string) Field {
	return Field{expr: f.expr + " AS " + alias, args: f.args}
}

// Eq compares the field for equality. A nil value yields IS NULL.
func (f Field) Eq(v any) Criterion {
	if v == nil {
		return f.IsNull()
	}
	return f.compare("=", v)
}

// Neq compares the field for inequality. A nil value yields IS NOT NULL.
func (f Field) Neq(v any) Criterion {
	if v == nil {
		return f.IsNotNull()
	}
	return f.compare("<>", v)
}

// Gt is field > v.
func (f Field) Gt(v any) Criterion { return f.compare(">", v) }

// Gte is field >= v.
func (f Field) Gte(v any) Criterion { return f.compare(">=", v) }

// Lt is field < v.
func (f Field) Lt(v any) Criterion { return f.compare("<", v) }

// Lte is field <= v.
func (f Field) Lte(v any) Criterion { return f.compare("<=", v) }

// Like is field LIKE pattern.
func (f Field) Like(pattern string) Criterion { return f.compare("LIKE", pattern) }

// IsNull is field IS NULL.
func (f Field) IsNull() Criterion {
	return Criterion{sql: f.expr + " IS NULL", args: f.args}
}

// IsNotNull is field IS NOT NULL.
func (f Field) IsNotNull() Criterion {
	return Criterion{sql: f.expr + " IS NOT NULL", args: f.args}
}

// In is field IN (values...). An empty list matches nothing.
func (f Field) In(values ...any) Criterion {
	if len(values) == 0 {
		return Criterion{sql: "0"}
	}
	args := append([]any(nil), f.args...)
	placeholders := make([]string, len(values))
	for i, v := range values {
		if other, ok := v.(Field); ok {
			placeholders[i] = other.expr
			args = append(args, other.args...)
			continue
		}
		placeholders[i] = "?"
		args = append(args, v)
	}
	return Criterion{
		sql:  f.expr + " IN (" + strings.Join(placeholders, ", ") + ")",
		args: args,
	}
}

func (f Field) compare(op string, v any) Criterion {
	args := append([]any(nil), f.args...)
	if other, ok := v.(Field); ok {
		args = append(args, other.args...)
		return Criterion{sql: f.expr + " " + op + " " + other.expr, args: args}
	}
	args = append(args, v)
	return Criterion{sql: f.expr + " " + op + " ?", args: args}
}

// Criterion is a boolean SQL condition with its bound arguments.
type Criterion struct {
	sql  string
	args []any
}

// Raw wraps a hand-written condition.
func Raw(sql string, args ...any) Criterion {
	return Criterion{sql: sql, args: args}
}

// String returns the SQL text of the criterion.
func (c Criterion) String() string {
	return c.sql
}

// Args returns the positional arguments of the criterion.
func (c Criterion) Args() []any {
	return c.args
}

// IsZero reports whether the criterion is empty.
func (c Criterion) IsZero() bool {
	return c.sql == ""
}

// And joins criteria with AND. With no criteria it matches everything.
func And(cs ...Criterion) Criterion {
	return join(" AND ", "1", cs)
}

// Or joins criteria with OR. With no criteria it matches nothing.
func Or(cs ...Criterion) Criterion {
	return join(" OR ", "0", cs)
}

// Not negates a criterion.
func Not(c Criterion) Criterion {
	return Criterion{sql: "NOT (" + c.sql + ")", args: c.args}
}

func join(sep, empty string, cs []Criterion) Criterion {
	parts := make([]string, 0, len(cs))
	var args []any
	for _, c := range cs {
		if c.IsZero() {
			continue
		}
		parts = append(parts, c.sql)
		args = append(args, c.args...)
	}
	switch len(parts) {
	case 0:
		return Criterion{sql: empty}
	case 1:
		return Criterion{sql: parts[0], args: args}
	}
	return Criterion{sql: "(" + strings.Join(parts, sep) + ")", args: args}
}

// Literal renders a Go value as inline SQL text.
// Fields render as their expression; strings are single-quoted. Any integer,
// unsigned or float kind renders as a number, including named types. Other
// values panic, since they have no inline SQL form.
func Literal(v any) string {
	switch val := v.(type) {
	case nil:
		return "NULL"
	case Field:
		return val.expr
	case string:
		return "'" + strings.ReplaceAll(val, "'", "''") + "'"
	case bool:
		if val {
			return "1"
		}
		return "0"
	case interface{ String() string }:
		return Literal(val.String())
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.FormatInt(rv.Int(), 10)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return strconv.FormatUint(rv.Uint(), 10)
	case reflect.Float32:
		return strconv.FormatFloat(rv.Float(), 'g', -1, 32)
	case reflect.Float64:
		return strconv.FormatFloat(rv.Float(), 'g', -1, 64)
	case reflect.String:
		return Literal(rv.String())
	case reflect.Bool:
		return Literal(rv.Bool())
	}
	panic(fmt.Sprintf("sqlexpr: no literal form for %T", v))
}
