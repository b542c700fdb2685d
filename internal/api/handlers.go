package api

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/nvandessel/reciprocity/internal/engine"
	"github.com/nvandessel/reciprocity/internal/models"
	"github.com/nvandessel/reciprocity/internal/report"
	"github.com/nvandessel/reciprocity/internal/session"
	"github.com/nvandessel/reciprocity/internal/stats"
	"github.com/nvandessel/reciprocity/internal/store"
)

// RunRequest is the body of POST /api/runs.
type RunRequest struct {
	Config   engine.Overrides `json:"config"`
	PerRound bool             `json:"per_round"`
}

// RunResponse is returned by POST /api/runs.
type RunResponse struct {
	RunID  string                `json:"run_id"`
	Stats  stats.Stats           `json:"stats"`
	Rounds []engine.RoundSummary `json:"rounds,omitempty"`
}

// SessionRequest is the body of POST /api/sessions.
type SessionRequest struct {
	Config engine.Overrides `json:"config"`
}

// StepRequest is the body of POST /api/sessions/:id/rounds. Nil actions
// select the automatic policy.
type StepRequest struct {
	Actions *models.Actions `json:"actions"`
}

// ArchivedRun is returned by GET /api/archive/runs/:id.
type ArchivedRun struct {
	Run    store.RunRecord     `json:"run"`
	Rounds []store.RoundRecord `json:"rounds"`
}

// statusFor maps domain errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, engine.ErrInvalidConfiguration):
		return http.StatusBadRequest
	case errors.Is(err, engine.ErrProtocolViolation):
		return http.StatusConflict
	case errors.Is(err, session.ErrNotFound), errors.Is(err, store.ErrRunNotFound):
		return http.StatusNotFound
	case errors.Is(err, session.ErrCapacity):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func writeError(c *gin.Context, err error) {
	c.JSON(statusFor(err), gin.H{"error": err.Error()})
}

// bindOptionalJSON binds the request body into obj. An empty body leaves obj
// unchanged.
func bindOptionalJSON(c *gin.Context, obj any) bool {
	if err := c.ShouldBindJSON(obj); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return false
	}
	return true
}

// runConfig applies o to the server defaults and enforces the size limits.
func (s *Server) runConfig(o engine.Overrides) (engine.Config, error) {
	cfg := o.Apply(s.defaults)
	if err := s.limits.Check(cfg); err != nil {
		return engine.Config{}, err
	}
	return cfg, nil
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":   "ok",
		"version":  s.version,
		"sessions": s.registry.Len(),
	})
}

func (s *Server) createRun(c *gin.Context) {
	var req RunRequest
	if !bindOptionalJSON(c, &req) {
		return
	}

	cfg, err := s.runConfig(req.Config)
	if err != nil {
		writeError(c, err)
		return
	}

	collector := &report.Collector{Next: s.sink}
	res, err := engine.Run(c.Request.Context(), cfg, engine.RunOptions{
		Sink:   collector,
		Logger: s.logger,
	})
	if err != nil {
		writeError(c, err)
		return
	}

	out := RunResponse{RunID: res.RunID, Stats: res.Stats}
	if req.PerRound {
		out.Rounds = collector.Rounds()
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) listSessions(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"sessions": s.registry.List()})
}

func (s *Server) createSession(c *gin.Context) {
	var req SessionRequest
	if !bindOptionalJSON(c, &req) {
		return
	}

	cfg, err := s.runConfig(req.Config)
	if err != nil {
		writeError(c, err)
		return
	}

	info, err := s.registry.Create(c.Request.Context(), cfg)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, info)
}

func (s *Server) getSession(c *gin.Context) {
	info, err := s.registry.Info(c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, info)
}

func (s *Server) stepSession(c *gin.Context) {
	var req StepRequest
	if !bindOptionalJSON(c, &req) {
		return
	}

	res, err := s.registry.Step(c.Request.Context(), c.Param("id"), req.Actions)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (s *Server) sessionStats(c *gin.Context) {
	st, err := s.registry.Stats(c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, st)
}

func (s *Server) sessionHistory(c *gin.Context) {
	records, err := s.registry.History(c.Param("id"), c.Param("patient"))
	if err != nil {
		writeError(c, err)
		return
	}
	if records == nil {
		records = []models.Record{}
	}
	c.JSON(http.StatusOK, gin.H{"patient_id": c.Param("patient"), "records": records})
}

func (s *Server) deleteSession(c *gin.Context) {
	if err := s.registry.Delete(c.Request.Context(), c.Param("id")); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) listArchivedRuns(c *gin.Context) {
	limit := 0
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a non-negative integer"})
			return
		}
		limit = n
	}

	runs, err := s.store.ListRuns(c.Request.Context(), limit)
	if err != nil {
		writeError(c, err)
		return
	}
	if runs == nil {
		runs = []store.RunRecord{}
	}
	c.JSON(http.StatusOK, gin.H{"runs": runs})
}

func (s *Server) getArchivedRun(c *gin.Context) {
	ctx := c.Request.Context()
	run, err := s.store.GetRun(ctx, c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	rounds, err := s.store.GetRounds(ctx, run.ID)
	if err != nil {
		writeError(c, err)
		return
	}
	if rounds == nil {
		rounds = []store.RoundRecord{}
	}
	c.JSON(http.StatusOK, ArchivedRun{Run: *run, Rounds: rounds})
}
