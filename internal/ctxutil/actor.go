// Package ctxutil carries the authenticated user id on a request context.
package ctxutil

import "context"

type actorKey struct{}

// WithActorID returns a context with the actor ID embedded.
func WithActorID(ctx context.Context, actorID int) context.Context {
	return context.WithValue(ctx, actorKey{}, actorID)
}

// ActorFromContext returns the actor ID from context and whether one was set.
func ActorFromContext(ctx context.Context) (int, bool) {
	id, ok := ctx.Value(actorKey{}).(int)
	return id, ok && id > 0
}
