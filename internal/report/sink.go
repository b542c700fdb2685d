// Package report delivers run statistics to logs, files, NATS subjects and
// the report archive. Every sink implements engine.Sink.
package report

import (
	"context"
	"errors"

	"github.com/nvandessel/reciprocity/internal/engine"
)

// Sink is an engine.Sink that holds resources.
type Sink interface {
	engine.Sink
	Close() error
}

// multiSink fans reports out to several sinks.
type multiSink struct {
	sinks []Sink
}

// Multi returns a Sink that delivers every report to each of sinks in order.
// Delivery continues past a failing sink; the errors are joined.
func Multi(sinks ...Sink) Sink {
	return &multiSink{sinks: sinks}
}

func (m *multiSink) RunStarted(ctx context.Context, info engine.RunInfo) error {
	var errs []error
	for _, s := range m.sinks {
		errs = append(errs, s.RunStarted(ctx, info))
	}
	return errors.Join(errs...)
}

func (m *multiSink) RoundCompleted(ctx context.Context, r engine.RoundReport) error {
	var errs []error
	for _, s := range m.sinks {
		errs = append(errs, s.RoundCompleted(ctx, r))
	}
	return errors.Join(errs...)
}

func (m *multiSink) RunFinished(ctx context.Context, r engine.RunReport) error {
	var errs []error
	for _, s := range m.sinks {
		errs = append(errs, s.RunFinished(ctx, r))
	}
	return errors.Join(errs...)
}

func (m *multiSink) Close() error {
	var errs []error
	for _, s := range m.sinks {
		errs = append(errs, s.Close())
	}
	return errors.Join(errs...)
}
