package mcp

import (
	"context"
	"fmt"
	"time"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/nvandessel/reciprocity/internal/engine"
	"github.com/nvandessel/reciprocity/internal/models"
	"github.com/nvandessel/reciprocity/internal/ratelimit"
	"github.com/nvandessel/reciprocity/internal/report"
)

// registerTools registers all simulation tools with the server.
func (s *Server) registerTools() {
	sdk.AddTool(s.server, &sdk.Tool{
		Name:        ratelimit.ToolRun,
		Description: "Run a complete simulation with the automatic policy and return the final statistics",
	}, s.handleSimRun)

	sdk.AddTool(s.server, &sdk.Tool{
		Name:        ratelimit.ToolCreate,
		Description: "Open a driven simulation session that advances one round per sim_step call",
	}, s.handleSimCreate)

	sdk.AddTool(s.server, &sdk.Tool{
		Name:        ratelimit.ToolStep,
		Description: "Run one round of a session with the given player actions, or the automatic policy when actions are omitted",
	}, s.handleSimStep)

	sdk.AddTool(s.server, &sdk.Tool{
		Name:        ratelimit.ToolStats,
		Description: "Get a session's progress and current statistics",
	}, s.handleSimStats)

	sdk.AddTool(s.server, &sdk.Tool{
		Name:        ratelimit.ToolHistory,
		Description: "Get the records published for one patient in a session",
	}, s.handleSimHistory)

	sdk.AddTool(s.server, &sdk.Tool{
		Name:        ratelimit.ToolClose,
		Description: "Close a session and release its state",
	}, s.handleSimClose)
}

// runConfig applies o to the server defaults and enforces the size limits.
func (s *Server) runConfig(o engine.Overrides) (engine.Config, error) {
	cfg := o.Apply(s.defaults)
	if err := s.limits.Check(cfg); err != nil {
		return engine.Config{}, err
	}
	return cfg, nil
}

func (s *Server) handleSimRun(ctx context.Context, req *sdk.CallToolRequest, args SimRunInput) (_ *sdk.CallToolResult, _ SimRunOutput, retErr error) {
	start := time.Now()
	defer func() {
		s.auditTool(ratelimit.ToolRun, "", start, retErr, sanitizeToolParams(configParams(args.Config, map[string]interface{}{
			"per_round": args.PerRound,
		})))
	}()

	if err := ratelimit.CheckLimit(s.toolLimiters, ratelimit.ToolRun); err != nil {
		return nil, SimRunOutput{}, err
	}

	cfg, err := s.runConfig(args.Config)
	if err != nil {
		return nil, SimRunOutput{}, fmt.Errorf("run failed: %w", err)
	}

	collector := &report.Collector{Next: s.sink}
	res, err := engine.Run(ctx, cfg, engine.RunOptions{
		Sink:   collector,
		Logger: s.logger,
	})
	if err != nil {
		return nil, SimRunOutput{}, fmt.Errorf("run failed: %w", err)
	}

	out := SimRunOutput{RunID: res.RunID, Stats: res.Stats}
	if args.PerRound {
		out.Rounds = collector.Rounds()
	}
	return nil, out, nil
}

func (s *Server) handleSimCreate(ctx context.Context, req *sdk.CallToolRequest, args SimCreateInput) (_ *sdk.CallToolResult, _ SimCreateOutput, retErr error) {
	start := time.Now()
	var sessionID string
	defer func() {
		s.auditTool(ratelimit.ToolCreate, sessionID, start, retErr, sanitizeToolParams(configParams(args.Config, nil)))
	}()

	if err := ratelimit.CheckLimit(s.toolLimiters, ratelimit.ToolCreate); err != nil {
		return nil, SimCreateOutput{}, err
	}

	cfg, err := s.runConfig(args.Config)
	if err != nil {
		return nil, SimCreateOutput{}, fmt.Errorf("failed to create session: %w", err)
	}

	info, err := s.registry.Create(ctx, cfg)
	if err != nil {
		return nil, SimCreateOutput{}, fmt.Errorf("failed to create session: %w", err)
	}
	sessionID = info.ID

	return nil, SimCreateOutput{Session: info}, nil
}

func (s *Server) handleSimStep(ctx context.Context, req *sdk.CallToolRequest, args SimStepInput) (_ *sdk.CallToolResult, _ SimStepOutput, retErr error) {
	start := time.Now()
	defer func() {
		params := map[string]interface{}{"actions": args.Actions != nil}
		if args.Actions != nil {
			params["read"] = args.Actions.Read
			params["publish"] = args.Actions.Publish
			params["quality_bias"] = args.Actions.QualityBias
		}
		s.auditTool(ratelimit.ToolStep, args.SessionID, start, retErr, sanitizeToolParams(params))
	}()

	if err := ratelimit.CheckLimit(s.toolLimiters, ratelimit.ToolStep); err != nil {
		return nil, SimStepOutput{}, err
	}

	res, err := s.registry.Step(ctx, args.SessionID, args.Actions)
	if err != nil {
		return nil, SimStepOutput{}, fmt.Errorf("step failed: %w", err)
	}

	return nil, SimStepOutput{Summary: res.Summary, Stats: res.Stats, Done: res.Done, Mode: res.Mode}, nil
}

func (s *Server) handleSimStats(ctx context.Context, req *sdk.CallToolRequest, args SimStatsInput) (_ *sdk.CallToolResult, _ SimStatsOutput, retErr error) {
	start := time.Now()
	defer func() {
		s.auditTool(ratelimit.ToolStats, args.SessionID, start, retErr, nil)
	}()

	if err := ratelimit.CheckLimit(s.toolLimiters, ratelimit.ToolStats); err != nil {
		return nil, SimStatsOutput{}, err
	}

	info, err := s.registry.Info(args.SessionID)
	if err != nil {
		return nil, SimStatsOutput{}, err
	}
	st, err := s.registry.Stats(args.SessionID)
	if err != nil {
		return nil, SimStatsOutput{}, err
	}

	return nil, SimStatsOutput{Session: info, Stats: st}, nil
}

func (s *Server) handleSimHistory(ctx context.Context, req *sdk.CallToolRequest, args SimHistoryInput) (_ *sdk.CallToolResult, _ SimHistoryOutput, retErr error) {
	start := time.Now()
	defer func() {
		s.auditTool(ratelimit.ToolHistory, args.SessionID, start, retErr, sanitizeToolParams(map[string]interface{}{
			"patient_id": args.PatientID,
		}))
	}()

	if err := ratelimit.CheckLimit(s.toolLimiters, ratelimit.ToolHistory); err != nil {
		return nil, SimHistoryOutput{}, err
	}
	if args.PatientID == "" {
		return nil, SimHistoryOutput{}, fmt.Errorf("'patient_id' parameter is required")
	}

	records, err := s.registry.History(args.SessionID, args.PatientID)
	if err != nil {
		return nil, SimHistoryOutput{}, err
	}
	if records == nil {
		records = []models.Record{}
	}

	return nil, SimHistoryOutput{
		PatientID: args.PatientID,
		Records:   records,
		Count:     len(records),
	}, nil
}

func (s *Server) handleSimClose(ctx context.Context, req *sdk.CallToolRequest, args SimCloseInput) (_ *sdk.CallToolResult, _ SimCloseOutput, retErr error) {
	start := time.Now()
	defer func() {
		s.auditTool(ratelimit.ToolClose, args.SessionID, start, retErr, nil)
	}()

	if err := ratelimit.CheckLimit(s.toolLimiters, ratelimit.ToolClose); err != nil {
		return nil, SimCloseOutput{}, err
	}

	if err := s.registry.Delete(ctx, args.SessionID); err != nil {
		return nil, SimCloseOutput{}, err
	}

	return nil, SimCloseOutput{
		Closed:  true,
		Message: fmt.Sprintf("Closed session %s", args.SessionID),
	}, nil
}
