// Package policy evaluates keep decisions for project collections with an
// embedded OPA engine.
package policy

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/open-policy-agent/opa/v1/rego"
)

// Query is the rule every policy must define. It evaluates to true for
// projects that are published.
const Query = "data.apexcat.filter.keep"

// ErrInvalidPolicy wraps failures to read, transpile or compile a policy.
var ErrInvalidPolicy = errors.New("invalid policy")

// Engine defines the policy engine interface.
type Engine interface {
	Evaluate(ctx context.Context, input interface{}) (rego.ResultSet, error)
	LoadPolicy(ctx context.Context, source string) error
}

// OPAEngine implements Engine with embedded OPA.
type OPAEngine struct {
	regoCode string
	prepared *rego.PreparedEvalQuery
}

// NewOPAEngine creates an engine with no policy loaded.
func NewOPAEngine() *OPAEngine {
	return &OPAEngine{}
}

// Evaluate runs Query against input.
func (e *OPAEngine) Evaluate(ctx context.Context, input interface{}) (rego.ResultSet, error) {
	if e.prepared == nil {
		return nil, fmt.Errorf("%w: no policy loaded", ErrInvalidPolicy)
	}
	return e.prepared.Eval(ctx, rego.EvalInput(input))
}

// LoadPolicy reads source and compiles it. Files ending in .rego are used as
// written; .yaml and .yml files are transpiled first.
func (e *OPAEngine) LoadPolicy(ctx context.Context, source string) error {
	absPath, err := filepath.Abs(filepath.Clean(source))
	if err != nil {
		return fmt.Errorf("failed to resolve path: %w", err)
	}

	data, err := os.ReadFile(absPath)
	if err != nil {
		return fmt.Errorf("%w: policy file not accessible: %w", ErrInvalidPolicy, err)
	}

	var code string
	switch strings.ToLower(filepath.Ext(absPath)) {
	case ".rego":
		code = string(data)
	case ".yaml", ".yml":
		code, err = TranspileYAML(data)
		if err != nil {
			return fmt.Errorf("%w: %s: %w", ErrInvalidPolicy, source, err)
		}
	default:
		return fmt.Errorf("%w: %s: unsupported extension (want .rego, .yaml or .yml)", ErrInvalidPolicy, source)
	}

	return e.compile(ctx, filepath.Base(absPath), code)
}

// LoadModule compiles Rego source held in memory.
func (e *OPAEngine) LoadModule(ctx context.Context, name, code string) error {
	return e.compile(ctx, name, code)
}

func (e *OPAEngine) compile(ctx context.Context, name, code string) error {
	if !strings.HasSuffix(name, ".rego") {
		name += ".rego"
	}
	prepared, err := rego.New(
		rego.Query(Query),
		rego.Module(name, code),
	).PrepareForEval(ctx)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrInvalidPolicy, name, err)
	}

	e.regoCode = code
	e.prepared = &prepared
	return nil
}

// Source returns the Rego module currently loaded.
func (e *OPAEngine) Source() string {
	return e.regoCode
}
