package shared

import (
	"context"

	"github.com/riskimaulanarahman/Aplikasi-Inventory-sub000/internal/location"
)

type actorContextKey struct{}

// Actor is the caller identity resolved by the access-control collaborator.
type Actor struct {
	ID    string
	Role  string
	Scope location.Scope
}

// ContextWithActor stores the actor in context.
func ContextWithActor(ctx context.Context, actor Actor) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actor)
}

// ActorFromContext extracts the actor from context.
func ActorFromContext(ctx context.Context) (Actor, bool) {
	actor, ok := ctx.Value(actorContextKey{}).(Actor)
	return actor, ok
}

// ScopeFromContext returns the caller scope. Requests without an actor get an
// empty scope so nothing leaks by default.
func ScopeFromContext(ctx context.Context) location.Scope {
	if actor, ok := ActorFromContext(ctx); ok {
		return actor.Scope
	}
	return location.NewScope(false)
}
