package notify

import (
	"context"

	"github.com/nerrad567/catalog-core/internal/catalog"
	"github.com/nerrad567/catalog-core/internal/infrastructure/logging"
)

// Fanout forwards every event to each notifier in order.
type Fanout struct {
	notifiers []catalog.Notifier
	logger    *logging.Logger
}

// NewFanout creates a Fanout; nil notifiers are skipped.
func NewFanout(logger *logging.Logger, notifiers ...catalog.Notifier) *Fanout {
	f := &Fanout{logger: logger}
	for _, n := range notifiers {
		if n != nil {
			f.notifiers = append(f.notifiers, n)
		}
	}
	return f
}

// Add appends a notifier.
func (f *Fanout) Add(n catalog.Notifier) {
	if n != nil {
		f.notifiers = append(f.notifiers, n)
	}
}

// Len returns the number of notifiers.
func (f *Fanout) Len() int {
	return len(f.notifiers)
}

// Notify implements catalog.Notifier. A panicking notifier does not stop the others.
func (f *Fanout) Notify(ctx context.Context, ev catalog.Event) {
	for _, n := range f.notifiers {
		f.deliver(ctx, n, ev)
	}
}

func (f *Fanout) deliver(ctx context.Context, n catalog.Notifier, ev catalog.Event) {
	defer func() {
		if r := recover(); r != nil {
			f.logger.Error("notifier panic recovered",
				"action", string(ev.Action),
				"product_id", ev.ProductID,
				"panic", r,
			)
		}
	}()
	n.Notify(ctx, ev)
}
