package mcp

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/nvandessel/reciprocity/internal/engine"
	"github.com/nvandessel/reciprocity/internal/ratelimit"
	"github.com/nvandessel/reciprocity/internal/session"
)

func smallDefaults() engine.Config {
	cfg := engine.DefaultConfig()
	cfg.Clinics = 20
	cfg.Patients = 30
	cfg.Rounds = 6
	return cfg
}

func setupTestServer(t *testing.T) *Server {
	t.Helper()

	server, err := NewServer(&Config{
		Name:     "test-server",
		Version:  "v1.0.0",
		Defaults: smallDefaults(),
		Registry: session.NewRegistry(session.Options{MaxSessions: 4}),
		AuditDir: t.TempDir(),
	})
	if err != nil {
		t.Fatalf("NewServer failed: %v", err)
	}
	t.Cleanup(func() { server.Close() })
	return server
}

// connectClient serves s over in-memory transports and returns a connected
// client session.
func connectClient(t *testing.T, s *Server) *sdk.ClientSession {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	serverTransport, clientTransport := sdk.NewInMemoryTransports()
	serveErr := make(chan error, 1)
	go func() {
		serveErr <- s.serveWithTransport(ctx, serverTransport)
	}()

	client := sdk.NewClient(&sdk.Implementation{Name: "client", Version: "v0.0.1"}, nil)
	clientCtx, clientCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer clientCancel()
	cs, err := client.Connect(clientCtx, clientTransport, nil)
	if err != nil {
		cancel()
		t.Fatalf("connect client: %v", err)
	}

	t.Cleanup(func() {
		cs.Close()
		cancel()
		select {
		case <-serveErr:
		case <-time.After(2 * time.Second):
			t.Error("server did not stop after cancel")
		}
	})
	return cs
}

func decodeStructuredContent[T any](t *testing.T, content any) T {
	t.Helper()

	var out T
	data, err := json.Marshal(content)
	if err != nil {
		t.Fatalf("marshal structured content: %v", err)
	}
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatalf("unmarshal structured content: %v", err)
	}
	return out
}

func callTool[T any](t *testing.T, cs *sdk.ClientSession, name string, args map[string]any) T {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	res, err := cs.CallTool(ctx, &sdk.CallToolParams{Name: name, Arguments: args})
	if err != nil {
		t.Fatalf("call %s: %v", name, err)
	}
	if res == nil || res.IsError {
		t.Fatalf("%s failed: %+v", name, res)
	}
	return decodeStructuredContent[T](t, res.StructuredContent)
}

func TestNewServer(t *testing.T) {
	server := setupTestServer(t)

	if server.server == nil {
		t.Error("Server.server is nil")
	}
	if server.registry == nil {
		t.Error("Server.registry is nil")
	}
	if server.auditLogger == nil {
		t.Error("Server.auditLogger is nil with an audit directory")
	}
}

func TestNewServer_DefaultRegistry(t *testing.T) {
	server, err := NewServer(&Config{Name: "test", Version: "v0"})
	if err != nil {
		t.Fatalf("NewServer failed: %v", err)
	}
	defer server.Close()

	if server.registry == nil {
		t.Fatal("NewServer did not create a registry")
	}
	if server.auditLogger != nil {
		t.Error("auditLogger set without an audit directory")
	}
}

func TestServer_ListTools(t *testing.T) {
	cs := connectClient(t, setupTestServer(t))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	res, err := cs.ListTools(ctx, nil)
	if err != nil {
		t.Fatalf("ListTools: %v", err)
	}

	got := make(map[string]bool)
	for _, tool := range res.Tools {
		got[tool.Name] = true
	}
	for _, name := range []string{
		ratelimit.ToolRun, ratelimit.ToolCreate, ratelimit.ToolStep,
		ratelimit.ToolStats, ratelimit.ToolHistory, ratelimit.ToolClose,
	} {
		if !got[name] {
			t.Errorf("tool %q not registered", name)
		}
	}
}

func TestE2E_DrivenSession(t *testing.T) {
	cs := connectClient(t, setupTestServer(t))

	created := callTool[SimCreateOutput](t, cs, ratelimit.ToolCreate, map[string]any{
		"config": map[string]any{"rounds": 2, "player": true},
	})
	id := created.Session.ID
	if id == "" {
		t.Fatal("sim_create returned empty session id")
	}
	if !created.Session.HasPlayer || created.Session.Rounds != 2 {
		t.Errorf("session = %+v", created.Session)
	}

	step := callTool[SimStepOutput](t, cs, ratelimit.ToolStep, map[string]any{
		"session_id": id,
		"actions":    map[string]any{"read": true, "publish": true, "quality_bias": 1.0},
	})
	if step.Summary.Round != 1 || step.Done {
		t.Errorf("first step = %+v", step)
	}

	step = callTool[SimStepOutput](t, cs, ratelimit.ToolStep, map[string]any{"session_id": id})
	if step.Summary.Round != 2 || !step.Done {
		t.Errorf("second step = %+v", step)
	}

	st := callTool[SimStatsOutput](t, cs, ratelimit.ToolStats, map[string]any{"session_id": id})
	if st.Stats.Round != 2 || !st.Session.Done {
		t.Errorf("stats = %+v", st)
	}
	if st.Stats.Player == nil || st.Stats.Player.ID != "C000" {
		t.Errorf("player = %+v, want C000", st.Stats.Player)
	}

	// A step past the round limit is a tool error, not a transport failure.
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	res, err := cs.CallTool(ctx, &sdk.CallToolParams{
		Name:      ratelimit.ToolStep,
		Arguments: map[string]any{"session_id": id},
	})
	if err != nil {
		t.Fatalf("call sim_step: %v", err)
	}
	if !res.IsError {
		t.Error("sim_step past the round limit did not report an error")
	}

	closed := callTool[SimCloseOutput](t, cs, ratelimit.ToolClose, map[string]any{"session_id": id})
	if !closed.Closed {
		t.Errorf("close = %+v", closed)
	}
}

func TestE2E_Run(t *testing.T) {
	cs := connectClient(t, setupTestServer(t))

	out := callTool[SimRunOutput](t, cs, ratelimit.ToolRun, map[string]any{
		"config":    map[string]any{"seed": 3},
		"per_round": true,
	})

	want := smallDefaults()
	want.Seed = 3
	wantStats, err := engine.Simulate(want)
	if err != nil {
		t.Fatalf("Simulate: %v", err)
	}

	if out.RunID == "" {
		t.Error("sim_run returned empty run id")
	}
	if out.Stats.RemainingClinics != wantStats.RemainingClinics || out.Stats.TotalPublishes != wantStats.TotalPublishes {
		t.Errorf("stats = %+v, want %+v", out.Stats, wantStats)
	}
	if len(out.Rounds) != want.Rounds {
		t.Errorf("len(rounds) = %d, want %d", len(out.Rounds), want.Rounds)
	}
}

func TestServer_ServeStopsOnContext(t *testing.T) {
	server := setupTestServer(t)

	ctx, cancel := context.WithCancel(context.Background())
	serverTransport, clientTransport := sdk.NewInMemoryTransports()
	serveErr := make(chan error, 1)
	go func() {
		serveErr <- server.serveWithTransport(ctx, serverTransport)
	}()

	client := sdk.NewClient(&sdk.Implementation{Name: "client", Version: "v0.0.1"}, nil)
	clientCtx, clientCancel := context.WithTimeout(context.Background(), time.Second)
	defer clientCancel()
	cs, err := client.Connect(clientCtx, clientTransport, nil)
	if err != nil {
		t.Fatalf("connect client: %v", err)
	}
	defer cs.Close()

	cancel()

	select {
	case <-serveErr:
	case <-time.After(2 * time.Second):
		t.Fatal("server did not stop after cancel")
	}
}
