package catalog

import (
	"context"
	"time"
)

// Action names a catalog change.
type Action string

// Catalog change actions.
const (
	ActionCreated Action = "created"
	ActionUpdated Action = "updated"
	ActionDeleted Action = "deleted"
)

// Event describes a successful catalog change.
// For updates Product holds only the changed fields; for deletes it is nil.
type Event struct {
	Action    Action    `json:"action"`
	ProductID int64     `json:"product_id"`
	Product   Product   `json:"product,omitempty"`
	Actor     string    `json:"actor,omitempty"`
	At        time.Time `json:"at"`
}

// Notifier receives catalog events. Notify must not block for long and
// handles its own failures.
type Notifier interface {
	Notify(ctx context.Context, ev Event)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(ctx context.Context, ev Event)

// Notify implements Notifier.
func (f NotifierFunc) Notify(ctx context.Context, ev Event) {
	f(ctx, ev)
}

type actorKey struct{}

// WithActor records who is making catalog changes on ctx.
func WithActor(ctx context.Context, actor string) context.Context {
	return context.WithValue(ctx, actorKey{}, actor)
}

// ActorFrom returns the actor stored by WithActor, if any.
func ActorFrom(ctx context.Context) string {
	actor, _ := ctx.Value(actorKey{}).(string)
	return actor
}
