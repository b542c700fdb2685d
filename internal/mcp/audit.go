package mcp

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/nvandessel/reciprocity/internal/engine"
)

// AuditFile is the audit log written under the audit directory.
const AuditFile = "audit.jsonl"

// AuditEntry represents a single audit log entry for an MCP tool invocation.
// It captures metadata about the call without including patient identifiers.
type AuditEntry struct {
	Timestamp  time.Time         `json:"timestamp"`
	Tool       string            `json:"tool"`
	SessionID  string            `json:"session_id,omitempty"`
	DurationMs int64             `json:"duration_ms"`
	Status     string            `json:"status"` // "success" or "error"
	Error      string            `json:"error,omitempty"`
	Params     map[string]string `json:"params,omitempty"` // sanitized metadata only
}

// AuditLogger writes audit entries to a JSONL file. It is safe for
// concurrent use. A nil AuditLogger is safe to use; all methods are no-ops
// on nil receiver.
type AuditLogger struct {
	mu   sync.Mutex
	file *os.File
}

// NewAuditLogger opens dir/audit.jsonl for appending. If the file cannot be
// created, a warning is printed to stderr and nil is returned.
func NewAuditLogger(dir string) *AuditLogger {
	if err := os.MkdirAll(dir, 0700); err != nil {
		fmt.Fprintf(os.Stderr, "warning: cannot create audit log directory %s: %v\n", dir, err)
		return nil
	}

	path := filepath.Join(dir, AuditFile)
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		fmt.Fprintf(os.Stderr, "warning: cannot open audit log %s: %v\n", path, err)
		return nil
	}

	return &AuditLogger{file: f}
}

// Log appends a JSON-encoded entry as a single line. Safe to call on nil.
func (a *AuditLogger) Log(entry AuditEntry) {
	if a == nil || a.file == nil {
		return
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return // silently skip malformed entries
	}
	data = append(data, '\n')

	a.mu.Lock()
	defer a.mu.Unlock()
	_, _ = a.file.Write(data)
}

// Close closes the audit log. Safe to call on nil receiver.
func (a *AuditLogger) Close() error {
	if a == nil || a.file == nil {
		return nil
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	return a.file.Close()
}

// sanitizeToolParams extracts safe metadata from tool parameters.
//
// Parameters are classified into three categories:
//   - Safe-value params: both key and value are safe to log (e.g., "seed", "rounds")
//   - Presence-only params: key is logged but value is replaced with "(set)"
//   - Unknown params: not logged at all
//
// A "_param_count" key is always included to indicate how many params were provided.
func sanitizeToolParams(params map[string]interface{}) map[string]string {
	if params == nil {
		return nil
	}

	result := make(map[string]string)

	safeValueParams := map[string]bool{
		"clinics":              true,
		"patients":             true,
		"rounds":               true,
		"starter_credits":      true,
		"free_rider_fraction":  true,
		"low_quality_fraction": true,
		"seed":                 true,
		"player":               true,
		"share_propensity":     true,
		"quality_bias":         true,
		"per_round":            true,
		"actions":              true,
		"read":                 true,
		"publish":              true,
	}

	// Patient identifiers are never written to the audit log.
	presenceOnlyParams := map[string]bool{
		"patient_id": true,
	}

	for key, val := range params {
		if safeValueParams[key] {
			result[key] = fmt.Sprintf("%v", val)
		} else if presenceOnlyParams[key] {
			result[key] = "(set)"
		}
	}

	result["_param_count"] = fmt.Sprintf("%d", len(params))

	return result
}

// configParams flattens the set fields of o into params for auditing.
func configParams(o engine.Overrides, params map[string]interface{}) map[string]interface{} {
	if params == nil {
		params = make(map[string]interface{})
	}
	if o.Clinics != nil {
		params["clinics"] = *o.Clinics
	}
	if o.Patients != nil {
		params["patients"] = *o.Patients
	}
	if o.Rounds != nil {
		params["rounds"] = *o.Rounds
	}
	if o.StarterCredits != nil {
		params["starter_credits"] = *o.StarterCredits
	}
	if o.FreeRiderFraction != nil {
		params["free_rider_fraction"] = *o.FreeRiderFraction
	}
	if o.LowQualityFraction != nil {
		params["low_quality_fraction"] = *o.LowQualityFraction
	}
	if o.Seed != nil {
		params["seed"] = *o.Seed
	}
	if o.Player != nil {
		params["player"] = *o.Player
	}
	if o.SharePropensity != nil {
		params["share_propensity"] = *o.SharePropensity
	}
	if o.QualityBias != nil {
		params["quality_bias"] = *o.QualityBias
	}
	return params
}

// auditTool logs a tool invocation to the audit log.
func (s *Server) auditTool(toolName, sessionID string, start time.Time, err error, params map[string]string) {
	status := "success"
	errMsg := ""
	if err != nil {
		status = "error"
		errMsg = err.Error()
	}

	s.auditLogger.Log(AuditEntry{
		Timestamp:  start,
		Tool:       toolName,
		SessionID:  sessionID,
		DurationMs: time.Since(start).Milliseconds(),
		Status:     status,
		Error:      errMsg,
		Params:     params,
	})
}
