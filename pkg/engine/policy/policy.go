// Package policy compiles user supplied CEL expressions into engine
// predicates. Expressions see the variables id, kind, attrs, tags and
// age_days and must evaluate to a bool.
package policy

import (
	"fmt"
	"time"

	"github.com/DrSkyle/cloudsweep/pkg/engine"
	"github.com/google/cel-go/cel"
)

func newEnv() (*cel.Env, error) {
	env, err := cel.NewEnv(
		cel.Variable("id", cel.StringType),
		cel.Variable("kind", cel.StringType),
		cel.Variable("attrs", cel.MapType(cel.StringType, cel.DynType)),
		cel.Variable("tags", cel.MapType(cel.StringType, cel.StringType)),
		cel.Variable("age_days", cel.IntType),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL env: %w", err)
	}
	return env, nil
}

// Compile turns expr into a Predicate. An empty expression selects everything.
// Compilation problems are configuration errors. age_days is measured from
// the record's createdAt attribute against now and is -1 when it is absent.
func Compile(expr string, now time.Time) (engine.Predicate, error) {
	if expr == "" {
		return engine.Always(""), nil
	}
	env, err := newEnv()
	if err != nil {
		return nil, err
	}
	ast, issues := env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return nil, &engine.ConfigError{Field: "where", Msg: "compilation failed", Err: issues.Err()}
	}
	if !ast.OutputType().IsExactType(cel.BoolType) {
		return nil, engine.Configf("where", "expression must be boolean, got %s", ast.OutputType())
	}
	prg, err := env.Program(ast)
	if err != nil {
		return nil, &engine.ConfigError{Field: "where", Msg: "program creation failed", Err: err}
	}

	return func(rec engine.ResourceRecord) engine.Verdict {
		out, _, err := prg.Eval(activation(rec, now))
		if err != nil {
			return engine.Verdict{Reason: fmt.Sprintf("where: %v", err)}
		}
		if ok, _ := out.Value().(bool); ok {
			return engine.Verdict{Match: true, Reason: "where: " + expr}
		}
		return engine.Verdict{Reason: "where: " + expr + " is false"}
	}, nil
}

func activation(rec engine.ResourceRecord, now time.Time) map[string]any {
	attrs := make(map[string]any)
	for k, v := range rec.Attributes() {
		if norm, ok := normalize(v); ok {
			attrs[k] = norm
		}
	}
	age := int64(-1)
	if ts, ok := rec.Time(engine.AttrCreatedAt); ok {
		age = int64(engine.AgeInDays(ts, now))
	}
	return map[string]any{
		"id":       rec.ID,
		"kind":     rec.Kind,
		"attrs":    attrs,
		"tags":     rec.Tags(),
		"age_days": age,
	}
}

// normalize maps SDK attribute shapes onto types CEL understands.
func normalize(v any) (any, bool) {
	switch x := v.(type) {
	case nil:
		return nil, false
	case string, bool, float64, int64, []string, map[string]string, time.Time:
		return x, true
	case int:
		return int64(x), true
	case int32:
		return int64(x), true
	case *int32:
		if x == nil {
			return nil, false
		}
		return int64(*x), true
	case *int64:
		if x == nil {
			return nil, false
		}
		return *x, true
	case *time.Time:
		if x == nil {
			return nil, false
		}
		return *x, true
	case fmt.Stringer:
		return x.String(), true
	}
	return fmt.Sprintf("%v", v), true
}
