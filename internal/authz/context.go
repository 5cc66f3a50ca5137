package authz

import "context"

type decisionContextKey struct{}

// ContextWithDecision stores the resolver's decision for the handler, which
// translates the granted scope into a data-layer filter instead of
// re-deriving it.
func ContextWithDecision(ctx context.Context, d Decision) context.Context {
	return context.WithValue(ctx, decisionContextKey{}, d)
}

// DecisionFromContext extracts the resolver's decision. The zero Decision
// (deny) is returned when none was stored.
func DecisionFromContext(ctx context.Context) Decision {
	d, _ := ctx.Value(decisionContextKey{}).(Decision)
	return d
}
