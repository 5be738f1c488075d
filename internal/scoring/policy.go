package scoring

import (
	"fmt"

	"github.com/google/cel-go/cel"

	"cardfraud/inference-api/internal/domain"
)

// presets maps the named decision policies to their CEL expressions.
var presets = map[string]string{
	domain.PolicyModelOrInvalidCard: "model_fraud || !valid_card",
	domain.PolicyModelOnly:          "model_fraud",
}

// Policy decides the reported is_fraudulent flag from the model label, the
// Luhn result and the model probability. It is compiled once and is safe for
// concurrent use.
//
// Variables available to custom expressions:
//
//	model_fraud  bool    hard label from the classifier
//	valid_card   bool    Luhn checksum result
//	probability  double  positive-class probability
type Policy struct {
	name string
	expr string
	prg  cel.Program
}

// NewPolicy compiles a named preset (see domain.Policy*) or, failing that,
// treats source as a CEL expression that must evaluate to bool.
func NewPolicy(source string) (*Policy, error) {
	name, expr := source, source
	if preset, ok := presets[source]; ok {
		expr = preset
	} else {
		name = "custom"
	}

	env, err := cel.NewEnv(
		cel.Variable("model_fraud", cel.BoolType),
		cel.Variable("valid_card", cel.BoolType),
		cel.Variable("probability", cel.DoubleType),
	)
	if err != nil {
		return nil, fmt.Errorf("policy env: %w", err)
	}
	ast, iss := env.Compile(expr)
	if iss.Err() != nil {
		return nil, fmt.Errorf("compile policy %q: %w", expr, iss.Err())
	}
	if !ast.OutputType().IsExactType(cel.BoolType) {
		return nil, fmt.Errorf("policy %q must evaluate to bool, got %s", expr, ast.OutputType())
	}
	prg, err := env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("program policy %q: %w", expr, err)
	}

	p := &Policy{name: name, expr: expr, prg: prg}
	// Catch runtime-only failures (e.g. division by zero) before serving.
	if _, err := p.Decide(false, true, 0); err != nil {
		return nil, err
	}
	return p, nil
}

// Decide evaluates the policy.
func (p *Policy) Decide(modelFraud, validCard bool, probability float64) (bool, error) {
	out, _, err := p.prg.Eval(map[string]any{
		"model_fraud": modelFraud,
		"valid_card":  validCard,
		"probability": probability,
	})
	if err != nil {
		return false, fmt.Errorf("evaluate policy %q: %w", p.expr, err)
	}
	b, ok := out.Value().(bool)
	if !ok {
		return false, fmt.Errorf("policy %q returned %T, want bool", p.expr, out.Value())
	}
	return b, nil
}

// Name returns the preset name, or "custom".
func (p *Policy) Name() string { return p.name }

// Expression returns the compiled CEL source.
func (p *Policy) Expression() string { return p.expr }
