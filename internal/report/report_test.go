package report

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/nvandessel/reciprocity/internal/engine"
	"github.com/nvandessel/reciprocity/internal/store"
)

func smallConfig() engine.Config {
	cfg := engine.DefaultConfig()
	cfg.Clinics = 15
	cfg.Patients = 20
	cfg.Rounds = 4
	return cfg
}

func TestJSONLSink(t *testing.T) {
	tests := []struct {
		name      string
		perRound  bool
		wantLines int
	}{
		{"run only", false, 2},
		{"per round", true, 6},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			sink := NewJSONLSink(&buf, tt.perRound)

			if _, err := engine.Run(context.Background(), smallConfig(), engine.RunOptions{RunID: "j", Sink: sink}); err != nil {
				t.Fatalf("Run() error = %v", err)
			}
			if err := sink.Close(); err != nil {
				t.Fatalf("Close() error = %v", err)
			}

			var envs []Envelope
			scanner := bufio.NewScanner(&buf)
			for scanner.Scan() {
				var e Envelope
				if err := json.Unmarshal(scanner.Bytes(), &e); err != nil {
					t.Fatalf("invalid JSONL line %q: %v", scanner.Text(), err)
				}
				envs = append(envs, e)
			}
			if len(envs) != tt.wantLines {
				t.Fatalf("got %d lines, want %d", len(envs), tt.wantLines)
			}
			if envs[0].Type != TypeRunStarted || envs[0].Run == nil || envs[0].Run.ID != "j" {
				t.Errorf("first line = %+v", envs[0])
			}
			last := envs[len(envs)-1]
			if last.Type != TypeRunFinished || last.Result == nil || last.Result.Stats.Round != 4 {
				t.Errorf("last line = %+v", last)
			}
			if tt.perRound && (envs[1].Type != TypeRound || envs[1].Round.Summary.Round != 1) {
				t.Errorf("second line = %+v", envs[1])
			}
		})
	}
}

func TestLogSink(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo}))
	sink := NewLogSink(logger)

	if _, err := engine.Run(context.Background(), smallConfig(), engine.RunOptions{RunID: "l", Sink: sink}); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	out := buf.String()
	if !strings.Contains(out, "run started") || !strings.Contains(out, "run finished") {
		t.Errorf("log output missing run lines: %q", out)
	}
	if strings.Contains(out, "round completed") {
		t.Errorf("round lines logged at info level: %q", out)
	}
	if !strings.Contains(out, "run_id=l") {
		t.Errorf("log output missing run id: %q", out)
	}
}

func TestStoreSink(t *testing.T) {
	ctx := context.Background()
	archive := store.NewInMemoryReportStore()
	sink := NewStoreSink(archive, false)

	if _, err := engine.Run(ctx, smallConfig(), engine.RunOptions{RunID: "s", Sink: sink}); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	run, err := archive.GetRun(ctx, "s")
	if err != nil {
		t.Fatalf("GetRun() error = %v", err)
	}
	if !run.Finished() {
		t.Error("archived run not finished")
	}
	rounds, err := archive.GetRounds(ctx, "s")
	if err != nil {
		t.Fatalf("GetRounds() error = %v", err)
	}
	if len(rounds) != 4 {
		t.Errorf("got %d archived rounds, want 4", len(rounds))
	}
}

type failingSink struct {
	closed bool
}

func (f *failingSink) RunStarted(context.Context, engine.RunInfo) error { return nil }
func (f *failingSink) RoundCompleted(context.Context, engine.RoundReport) error {
	return errors.New("round failed")
}
func (f *failingSink) RunFinished(context.Context, engine.RunReport) error { return nil }
func (f *failingSink) Close() error {
	f.closed = true
	return errors.New("close failed")
}

func TestMulti(t *testing.T) {
	var buf bytes.Buffer
	jsonl := NewJSONLSink(&buf, true)
	bad := &failingSink{}
	sink := Multi(bad, jsonl)

	ctx := context.Background()
	if err := sink.RunStarted(ctx, engine.RunInfo{ID: "m"}); err != nil {
		t.Fatalf("RunStarted() error = %v", err)
	}

	err := sink.RoundCompleted(ctx, engine.RoundReport{RunID: "m", Summary: engine.RoundSummary{Round: 1}})
	if err == nil || !strings.Contains(err.Error(), "round failed") {
		t.Errorf("RoundCompleted() error = %v, want the failing sink's error", err)
	}
	// The healthy sink still received the round
	if got := strings.Count(buf.String(), "\n"); got != 2 {
		t.Errorf("healthy sink wrote %d lines, want 2", got)
	}

	if err := sink.Close(); err == nil {
		t.Error("Close() error = nil, want joined close error")
	}
	if !bad.closed {
		t.Error("failing sink not closed")
	}
}

func TestCollector(t *testing.T) {
	t.Run("standalone", func(t *testing.T) {
		c := &Collector{}
		cfg := smallConfig()
		if _, err := engine.Run(context.Background(), cfg, engine.RunOptions{Sink: c}); err != nil {
			t.Fatalf("Run: %v", err)
		}
		rounds := c.Rounds()
		if len(rounds) != cfg.Rounds {
			t.Fatalf("collected %d rounds, want %d", len(rounds), cfg.Rounds)
		}
		for i, r := range rounds {
			if r.Round != i+1 {
				t.Errorf("rounds[%d].Round = %d, want %d", i, r.Round, i+1)
			}
		}
	})

	t.Run("forwards", func(t *testing.T) {
		var buf bytes.Buffer
		c := &Collector{Next: NewJSONLSink(&buf, true)}
		if _, err := engine.Run(context.Background(), smallConfig(), engine.RunOptions{RunID: "c", Sink: c}); err != nil {
			t.Fatalf("Run: %v", err)
		}
		if err := c.Close(); err != nil {
			t.Fatalf("Close: %v", err)
		}
		if got := strings.Count(buf.String(), "\n"); got != 6 {
			t.Errorf("forwarded %d lines, want 6", got)
		}
	})
}
