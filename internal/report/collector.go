package report

import (
	"context"
	"sync"

	"github.com/nvandessel/reciprocity/internal/engine"
)

// Collector keeps every round summary it sees and forwards all reports to
// Next when set.
type Collector struct {
	Next engine.Sink

	mu     sync.Mutex
	rounds []engine.RoundSummary
}

// Rounds returns the collected summaries in round order.
func (c *Collector) Rounds() []engine.RoundSummary {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]engine.RoundSummary(nil), c.rounds...)
}

// RunStarted implements engine.Sink.
func (c *Collector) RunStarted(ctx context.Context, info engine.RunInfo) error {
	if c.Next == nil {
		return nil
	}
	return c.Next.RunStarted(ctx, info)
}

// RoundCompleted implements engine.Sink. The summary is kept before the
// report is forwarded.
func (c *Collector) RoundCompleted(ctx context.Context, r engine.RoundReport) error {
	c.mu.Lock()
	c.rounds = append(c.rounds, r.Summary)
	c.mu.Unlock()
	if c.Next == nil {
		return nil
	}
	return c.Next.RoundCompleted(ctx, r)
}

// RunFinished implements engine.Sink.
func (c *Collector) RunFinished(ctx context.Context, r engine.RunReport) error {
	if c.Next == nil {
		return nil
	}
	return c.Next.RunFinished(ctx, r)
}

// Close does not close Next.
func (c *Collector) Close() error {
	return nil
}
