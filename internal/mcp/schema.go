package mcp

import (
	"github.com/nvandessel/reciprocity/internal/constants"
	"github.com/nvandessel/reciprocity/internal/engine"
	"github.com/nvandessel/reciprocity/internal/models"
	"github.com/nvandessel/reciprocity/internal/session"
	"github.com/nvandessel/reciprocity/internal/stats"
)

// SimRunInput defines the input for the sim_run tool.
type SimRunInput struct {
	Config   engine.Overrides `json:"config,omitempty" jsonschema:"Run settings; omitted fields use the server defaults"`
	PerRound bool             `json:"per_round,omitempty" jsonschema:"Include every round's summary in the output (default: false)"`
}

// SimRunOutput defines the output for the sim_run tool.
type SimRunOutput struct {
	RunID  string                `json:"run_id" jsonschema:"ID of the completed run"`
	Stats  stats.Stats           `json:"stats" jsonschema:"Final statistics"`
	Rounds []engine.RoundSummary `json:"rounds,omitempty" jsonschema:"Per-round summaries when per_round was requested"`
}

// SimCreateInput defines the input for the sim_create tool.
type SimCreateInput struct {
	Config engine.Overrides `json:"config,omitempty" jsonschema:"Run settings; omitted fields use the server defaults"`
}

// SimCreateOutput defines the output for the sim_create tool.
type SimCreateOutput struct {
	Session session.Info `json:"session" jsonschema:"The opened session"`
}

// SimStepInput defines the input for the sim_step tool.
type SimStepInput struct {
	SessionID string          `json:"session_id" jsonschema:"ID returned by sim_create"`
	Actions   *models.Actions `json:"actions,omitempty" jsonschema:"Player actions for this round; omit to use the automatic policy"`
}

// SimStepOutput defines the output for the sim_step tool.
type SimStepOutput struct {
	Summary engine.RoundSummary `json:"summary" jsonschema:"What happened in the round"`
	Stats   stats.Stats         `json:"stats" jsonschema:"Statistics after the round"`
	Done    bool                `json:"done" jsonschema:"Whether every configured round has run"`
	Mode    constants.Mode      `json:"mode" jsonschema:"auto when the automatic policy chose the player's actions, driven otherwise"`
}

// SimStatsInput defines the input for the sim_stats tool.
type SimStatsInput struct {
	SessionID string `json:"session_id" jsonschema:"ID returned by sim_create"`
}

// SimStatsOutput defines the output for the sim_stats tool.
type SimStatsOutput struct {
	Session session.Info `json:"session" jsonschema:"Session progress"`
	Stats   stats.Stats  `json:"stats" jsonschema:"Current statistics"`
}

// SimHistoryInput defines the input for the sim_history tool.
type SimHistoryInput struct {
	SessionID string `json:"session_id" jsonschema:"ID returned by sim_create"`
	PatientID string `json:"patient_id" jsonschema:"Patient identifier, e.g. P0370"`
}

// SimHistoryOutput defines the output for the sim_history tool.
type SimHistoryOutput struct {
	PatientID string          `json:"patient_id" jsonschema:"Patient identifier"`
	Records   []models.Record `json:"records" jsonschema:"Published records in publication order, authors removed"`
	Count     int             `json:"count" jsonschema:"Number of records"`
}

// SimCloseInput defines the input for the sim_close tool.
type SimCloseInput struct {
	SessionID string `json:"session_id" jsonschema:"ID returned by sim_create"`
}

// SimCloseOutput defines the output for the sim_close tool.
type SimCloseOutput struct {
	Closed  bool   `json:"closed" jsonschema:"Whether the session was closed"`
	Message string `json:"message" jsonschema:"Human-readable result message"`
}
