// Package fieldexpr evaluates field expressions against a record value.
// The CLI uses it to compute a field from the fields a record already has,
// as in `mirror set counters c1 count='count + 1' --expr`.
package fieldexpr

import (
	"errors"
	"fmt"

	exprlang "github.com/expr-lang/expr"
	exprparser "github.com/expr-lang/expr/parser"

	"github.com/mesh-intelligence/mirrors/pkg/types"
)

// ErrEmptyExpression is returned for a blank expression.
var ErrEmptyExpression = errors.New("expression must not be empty")

// Program is a parsed field expression.
type Program struct {
	source string
}

// Compile checks the syntax of source. Type checking happens in Run, against
// the record being evaluated: record fields shadow expr builtins of the same
// name (count, len, sum), and fields the value does not have evaluate to nil,
// so `count ?? 0` works on a fresh record.
func Compile(source string) (*Program, error) {
	if source == "" {
		return nil, ErrEmptyExpression
	}
	if _, err := exprparser.Parse(source); err != nil {
		return nil, fmt.Errorf("compile %q: %w", source, err)
	}
	return &Program{source: source}, nil
}

// Source returns the expression text.
func (p *Program) Source() string { return p.source }

// Run evaluates the program with the top-level fields of value as variables.
func (p *Program) Run(value types.Value) (any, error) {
	env := map[string]any(value)
	if env == nil {
		env = map[string]any{}
	}
	program, err := exprlang.Compile(p.source,
		exprlang.Env(env),
		exprlang.AllowUndefinedVariables(),
	)
	if err != nil {
		return nil, fmt.Errorf("compile %q: %w", p.source, err)
	}
	out, err := exprlang.Run(program, env)
	if err != nil {
		return nil, fmt.Errorf("evaluate %q: %w", p.source, err)
	}
	return out, nil
}

// Eval compiles and runs source in one step.
func Eval(source string, value types.Value) (any, error) {
	p, err := Compile(source)
	if err != nil {
		return nil, err
	}
	return p.Run(value)
}
