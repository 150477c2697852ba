package rules

import (
	"fmt"

	"github.com/google/cel-go/cel"
	"github.com/google/cel-go/common/types"
	"github.com/opensource-finance/cropadvisor/internal/domain"
)

// InclusionPolicy decides which evaluated crops are listed in a recommendation.
type InclusionPolicy struct {
	expression string
	threshold  float64
	program    cel.Program
}

// NewInclusionPolicy compiles a CEL inclusion expression.
func NewInclusionPolicy(expression string, threshold float64) (*InclusionPolicy, error) {
	env, err := cel.NewEnv(
		cel.Variable("total_score", cel.DoubleType),
		cel.Variable("threshold", cel.DoubleType),
		cel.Variable("preferred", cel.BoolType),
		cel.Variable("selectable", cel.BoolType),
		cel.Variable("profit_per_acre", cel.DoubleType),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL environment: %w", err)
	}

	ast, issues := env.Compile(expression)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("failed to compile inclusion expression: %w", issues.Err())
	}

	if ast.OutputType() != cel.BoolType {
		return nil, fmt.Errorf("inclusion expression must return bool, got %s", ast.OutputType())
	}

	program, err := env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("failed to create inclusion program: %w", err)
	}

	return &InclusionPolicy{
		expression: expression,
		threshold:  threshold,
		program:    program,
	}, nil
}

// Includes evaluates the policy for one crop evaluation.
func (p *InclusionPolicy) Includes(eval *domain.Evaluation) (bool, error) {
	out, _, err := p.program.Eval(map[string]any{
		"total_score":     eval.TotalScore,
		"threshold":       p.threshold,
		"preferred":       eval.Preferred,
		"selectable":      eval.Selectable,
		"profit_per_acre": eval.ProfitPerAcre,
	})
	if err != nil {
		return false, fmt.Errorf("inclusion evaluation error: %w", err)
	}

	v, ok := out.(types.Bool)
	if !ok {
		return false, fmt.Errorf("inclusion expression returned %v", out.Type())
	}
	return bool(v), nil
}

// Expression returns the CEL source of the policy.
func (p *InclusionPolicy) Expression() string {
	return p.expression
}
