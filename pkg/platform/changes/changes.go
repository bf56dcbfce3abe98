// Package changes carries notifications about committed mutations. Events
// are published after the transaction commits and are best effort: a
// subscriber failure never fails the request.
package changes

import (
	"context"
	"time"
)

type Action string

const (
	ActionCreate Action = "create"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

// Event describes one committed mutation.
type Event struct {
	Entity string    `json:"entity"`
	Action Action    `json:"action"`
	ID     int64     `json:"id"`
	Actor  string    `json:"actor,omitempty"`
	At     time.Time `json:"at"`
}

// Publisher receives committed mutations.
type Publisher interface {
	Publish(ctx context.Context, e Event)
}

// PublisherFunc adapts a function to Publisher.
type PublisherFunc func(ctx context.Context, e Event)

func (f PublisherFunc) Publish(ctx context.Context, e Event) { f(ctx, e) }

// Noop discards events.
type Noop struct{}

func (Noop) Publish(context.Context, Event) {}

// Fanout delivers each event to every non-nil publisher in order.
func Fanout(pubs ...Publisher) Publisher {
	out := make(fanout, 0, len(pubs))
	for _, p := range pubs {
		if p != nil {
			out = append(out, p)
		}
	}
	return out
}

type fanout []Publisher

func (f fanout) Publish(ctx context.Context, e Event) {
	for _, p := range f {
		p.Publish(ctx, e)
	}
}

// Recorder keeps events in memory; tests use it to assert on the feed.
type Recorder struct {
	Events []Event
}

func (r *Recorder) Publish(_ context.Context, e Event) {
	r.Events = append(r.Events, e)
}
