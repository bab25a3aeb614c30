package comet

import (
	"context"
	"errors"
)

// Sink receives decoded events one at a time, in the order the server sent
// them.
type Sink interface {
	Handle(ctx context.Context, unit ContentUnit) error
}

// SinkFunc adapts a function to a Sink.
type SinkFunc func(ctx context.Context, unit ContentUnit) error

func (f SinkFunc) Handle(ctx context.Context, unit ContentUnit) error {
	return f(ctx, unit)
}

// Sinks hands each event to every sink in order. One failing sink does not
// keep the event from the others.
type Sinks []Sink

func (s Sinks) Handle(ctx context.Context, unit ContentUnit) error {
	var errs []error
	for _, sink := range s {
		if err := sink.Handle(ctx, unit); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
