package report

import (
	"context"
	"encoding/json"
	"io"
	"sync"

	"github.com/nvandessel/reciprocity/internal/engine"
)

// Message types carried in the "type" field of JSONL lines and NATS payloads.
const (
	TypeRunStarted  = "run_started"
	TypeRound       = "round"
	TypeRunFinished = "run_finished"
)

// Envelope wraps a report with its type for line-oriented transports.
type Envelope struct {
	Type   string              `json:"type"`
	Run    *engine.RunInfo     `json:"run,omitempty"`
	Round  *engine.RoundReport `json:"round,omitempty"`
	Result *engine.RunReport   `json:"result,omitempty"`
}

// JSONLSink writes one JSON envelope per line. It is safe for concurrent use.
type JSONLSink struct {
	mu     sync.Mutex
	enc    *json.Encoder
	closer io.Closer

	// rounds controls whether per-round reports are written.
	rounds bool
}

// NewJSONLSink writes to w. When perRound is false only run start and
// finish are written. If w is an io.Closer it is closed by Close.
func NewJSONLSink(w io.Writer, perRound bool) *JSONLSink {
	s := &JSONLSink{enc: json.NewEncoder(w), rounds: perRound}
	if c, ok := w.(io.Closer); ok {
		s.closer = c
	}
	return s
}

func (s *JSONLSink) write(e Envelope) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.enc.Encode(e)
}

// RunStarted implements engine.Sink.
func (s *JSONLSink) RunStarted(_ context.Context, info engine.RunInfo) error {
	return s.write(Envelope{Type: TypeRunStarted, Run: &info})
}

// RoundCompleted implements engine.Sink. Rounds are skipped unless the sink
// was created with perRound.
func (s *JSONLSink) RoundCompleted(_ context.Context, r engine.RoundReport) error {
	if !s.rounds {
		return nil
	}
	return s.write(Envelope{Type: TypeRound, Round: &r})
}

// RunFinished implements engine.Sink.
func (s *JSONLSink) RunFinished(_ context.Context, r engine.RunReport) error {
	return s.write(Envelope{Type: TypeRunFinished, Result: &r})
}

// Close closes the underlying writer if it is an io.Closer.
func (s *JSONLSink) Close() error {
	if s.closer == nil {
		return nil
	}
	return s.closer.Close()
}
