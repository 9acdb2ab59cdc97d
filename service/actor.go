package service

import "context"

type actorKey struct{}

// AnonymousActor is recorded when no authenticated identity is available.
const AnonymousActor = "anonymous"

// ContextWithActor attaches the identity responsible for mutations made with ctx.
func ContextWithActor(ctx context.Context, actor string) context.Context {
	return context.WithValue(ctx, actorKey{}, actor)
}

// ActorFromContext returns the actor attached to ctx, or AnonymousActor.
func ActorFromContext(ctx context.Context) string {
	if actor, ok := ctx.Value(actorKey{}).(string); ok && actor != "" {
		return actor
	}
	return AnonymousActor
}
