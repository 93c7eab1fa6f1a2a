package sqlexpr

// Case returns (CASE WHEN when THEN ifTrue ELSE ifFalse END).
// Branch values are rendered with Literal.
func Case(when Criterion, ifTrue, ifFalse any) Field {
	args := append([]any(nil), when.args...)
	args = append(args, fieldArgs(ifTrue)...)
	args = append(args, fieldArgs(ifFalse)...)
	return Field{
		expr: "(CASE WHEN " + when.sql + " THEN " + Literal(ifTrue) +
			" ELSE " + Literal(ifFalse) + " END)",
		args: args,
	}
}

// Upper returns UPPER(f), used for case-insensitive ordering and comparison.
func Upper(f Field) Field {
	return Field{expr: "UPPER(" + f.expr + ")", args: f.args}
}

// Now returns the current time in unix milliseconds.
func Now() Field {
	return Field{expr: "(strftime('%s','now')*1000)"}
}

// Cast returns CAST(f AS typ).
func Cast(f Field, typ string) Field {
	return Field{expr: "CAST(" + f.expr + " AS " + typ + ")", args: f.args}
}

// Length returns LENGTH(f).
func Length(f Field) Field {
	return Field{expr: "LENGTH(" + f.expr + ")", args: f.args}
}

// Count returns COUNT(f).
func Count(f Field) Field {
	return Field{expr: "COUNT(" + f.expr + ")", args: f.args}
}

func fieldArgs(v any) []any {
	if f, ok := v.(Field); ok {
		return f.args
	}
	return nil
}
