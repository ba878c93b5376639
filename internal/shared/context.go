package shared

import "context"

// Actor identifies the authenticated user behind a request.
type Actor struct {
	ID   int64
	Role string
}

type actorContextKey struct{}

// ContextWithActor stores the actor in context.
func ContextWithActor(ctx context.Context, actor Actor) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actor)
}

// ActorFromContext extracts the actor from context.
func ActorFromContext(ctx context.Context) (Actor, bool) {
	actor, ok := ctx.Value(actorContextKey{}).(Actor)
	return actor, ok
}

// ActorID returns the actor id or zero when the request is anonymous.
func ActorID(ctx context.Context) int64 {
	actor, _ := ActorFromContext(ctx)
	return actor.ID
}
