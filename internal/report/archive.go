package report

import (
	"context"

	"github.com/nvandessel/reciprocity/internal/engine"
	"github.com/nvandessel/reciprocity/internal/store"
)

// StoreSink archives reports in a store.ReportStore.
type StoreSink struct {
	store store.ReportStore

	// owned stores are closed with the sink.
	owned bool
}

// NewStoreSink archives into s. When owned is true, Close closes s.
func NewStoreSink(s store.ReportStore, owned bool) *StoreSink {
	return &StoreSink{store: s, owned: owned}
}

// RunStarted implements engine.Sink by creating the run record.
func (a *StoreSink) RunStarted(ctx context.Context, info engine.RunInfo) error {
	return a.store.CreateRun(ctx, info)
}

// RoundCompleted implements engine.Sink by saving the round.
func (a *StoreSink) RoundCompleted(ctx context.Context, r engine.RoundReport) error {
	return a.store.SaveRound(ctx, r)
}

// RunFinished implements engine.Sink by recording the final statistics.
func (a *StoreSink) RunFinished(ctx context.Context, r engine.RunReport) error {
	return a.store.FinishRun(ctx, r)
}

// Close closes the store when the sink owns it.
func (a *StoreSink) Close() error {
	if !a.owned {
		return nil
	}
	return a.store.Close()
}
