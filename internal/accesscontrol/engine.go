package accesscontrol

import "context"

// Engine turns resolved permission sets into access decisions for single
// records and into scope filters for list queries.
type Engine struct {
	store    Store
	resolver *Resolver
	// ownerColumns maps a resource type to the SQL expression identifying the
	// owning principal in that resource's list query.
	ownerColumns map[string]string
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithOwnership registers the SQL expression that identifies the owning
// principal for a resource type's list queries.
func WithOwnership(resourceType, ownerExpr string) EngineOption {
	return func(e *Engine) {
		e.ownerColumns[resourceType] = ownerExpr
	}
}

// NewEngine constructs an Engine.
func NewEngine(store Store, resolver *Resolver, opts ...EngineOption) *Engine {
	e := &Engine{store: store, resolver: resolver, ownerColumns: make(map[string]string)}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// CheckAccess decides whether a principal may perform action on the record.
// Denial is a normal Decision, never an error; errors mean the decision could
// not be computed at all.
func (e *Engine) CheckAccess(ctx context.Context, principalID int64, record Record, action Action) (Decision, error) {
	principal, err := e.store.GetPrincipal(ctx, principalID)
	if err != nil {
		return Decision{}, err
	}
	if !principal.IsActive {
		return Decision{Allowed: false, Reason: ReasonInsufficient}, nil
	}

	bypass, err := e.resolver.HasBypass(ctx, principalID)
	if err != nil {
		return Decision{}, err
	}
	if bypass {
		return Decision{Allowed: true, Reason: ReasonBypass}, nil
	}

	set, err := e.resolver.Resolve(ctx, principalID)
	if err != nil {
		return Decision{}, err
	}

	if set.Has(Code(record.Type, action, ScopeAll)) {
		return Decision{Allowed: true, Reason: ReasonAll}, nil
	}
	if set.Has(Code(record.Type, action, ScopeOwn)) {
		if owner, ok := record.OwnerRef(); ok && owner == principalID {
			return Decision{Allowed: true, Reason: ReasonOwn}, nil
		}
	}
	return Decision{Allowed: false, Reason: ReasonInsufficient}, nil
}

// ScopeQuery narrows a list query to what the principal may see. Full access
// (bypass or the .all permission) passes base through untouched; own-only
// access adds an ownership constraint; no access at all yields a filter that
// matches zero rows. Defaulting to deny rather than to the unrestricted base
// is deliberate: a principal without view permissions must see an empty list.
func (e *Engine) ScopeQuery(ctx context.Context, principalID int64, resourceType string, base Filter) (Filter, error) {
	principal, err := e.store.GetPrincipal(ctx, principalID)
	if err != nil {
		return Filter{}, err
	}
	if !principal.IsActive {
		return base.MatchNone(), nil
	}

	bypass, err := e.resolver.HasBypass(ctx, principalID)
	if err != nil {
		return Filter{}, err
	}
	if bypass {
		return base, nil
	}

	set, err := e.resolver.Resolve(ctx, principalID)
	if err != nil {
		return Filter{}, err
	}

	if set.Has(Code(resourceType, ActionView, ScopeAll)) {
		return base, nil
	}
	if set.Has(Code(resourceType, ActionView, ScopeOwn)) {
		ownerExpr, ok := e.ownerColumns[resourceType]
		if !ok {
			// Own-scope without a registered ownership expression cannot be
			// enforced, so it must not widen into full visibility.
			return base.MatchNone(), nil
		}
		return base.Where(ownerExpr+" = ?", principalID), nil
	}
	return base.MatchNone(), nil
}
