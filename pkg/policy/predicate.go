package policy

import (
	"context"
	"fmt"

	"github.com/fulmenhq/apexcat/pkg/catalog"
)

// RegoPredicate decides with a loaded policy. The project collection is the
// policy input; a project is kept when Query evaluates to true.
type RegoPredicate struct {
	engine Engine
}

var _ catalog.KeepPredicate = (*RegoPredicate)(nil)

// NewRegoPredicate wraps engine, which must already have a policy loaded.
func NewRegoPredicate(engine Engine) *RegoPredicate {
	return &RegoPredicate{engine: engine}
}

// LoadPredicate loads the policy file at path and returns a predicate for it.
func LoadPredicate(ctx context.Context, path string) (*RegoPredicate, error) {
	engine := NewOPAEngine()
	if err := engine.LoadPolicy(ctx, path); err != nil {
		return nil, err
	}
	return NewRegoPredicate(engine), nil
}

func (p *RegoPredicate) Keep(ctx context.Context, project catalog.Document) (bool, error) {
	input, err := project.Value()
	if err != nil {
		return false, err
	}

	rs, err := p.engine.Evaluate(ctx, input)
	if err != nil {
		return false, fmt.Errorf("policy evaluation failed: %w", err)
	}
	// An undefined rule keeps nothing.
	if len(rs) == 0 || len(rs[0].Expressions) == 0 {
		return false, nil
	}

	switch v := rs[0].Expressions[0].Value.(type) {
	case bool:
		return v, nil
	default:
		return false, fmt.Errorf("%w: %s evaluated to %T, want boolean", ErrInvalidPolicy, Query, v)
	}
}
