package catalog

import (
	"context"

	"golang.org/x/text/cases"
)

// DefaultLicenseSentinel is the license that excludes a project by default.
const DefaultLicenseSentinel = "proprietary"

// KeepPredicate decides whether a project collection is published.
type KeepPredicate interface {
	Keep(ctx context.Context, project Document) (bool, error)
}

// KeepFunc adapts a plain function to KeepPredicate.
type KeepFunc func(ctx context.Context, project Document) (bool, error)

func (f KeepFunc) Keep(ctx context.Context, project Document) (bool, error) {
	return f(ctx, project)
}

// LicensePredicate keeps every project whose license differs from Sentinel
// under Unicode case folding. Projects without a license are kept.
type LicensePredicate struct {
	Sentinel string
}

func (p LicensePredicate) Keep(_ context.Context, project Document) (bool, error) {
	fold := cases.Fold()
	return fold.String(project.License()) != fold.String(p.Sentinel), nil
}

// KeepPredicateConfig selects the keep predicate used by the project selector.
// Policy wins when set; otherwise a LicensePredicate is built from
// LicenseSentinel (DefaultLicenseSentinel when empty).
type KeepPredicateConfig struct {
	LicenseSentinel string
	Policy          KeepPredicate
}

// Predicate builds the configured predicate.
func (c KeepPredicateConfig) Predicate() KeepPredicate {
	if c.Policy != nil {
		return c.Policy
	}
	sentinel := c.LicenseSentinel
	if sentinel == "" {
		sentinel = DefaultLicenseSentinel
	}
	return LicensePredicate{Sentinel: sentinel}
}
