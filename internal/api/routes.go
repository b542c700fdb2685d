package api

// setupRoutes registers every endpoint.
func (s *Server) setupRoutes() {
	api := s.router.Group("/api")
	{
		api.GET("/health", s.health)
		api.POST("/runs", s.createRun)

		api.GET("/sessions", s.listSessions)
		api.POST("/sessions", s.createSession)
		api.GET("/sessions/:id", s.getSession)
		api.POST("/sessions/:id/rounds", s.stepSession)
		api.GET("/sessions/:id/stats", s.sessionStats)
		api.GET("/sessions/:id/history/:patient", s.sessionHistory)
		api.DELETE("/sessions/:id", s.deleteSession)
	}

	if s.store != nil {
		archive := api.Group("/archive")
		{
			archive.GET("/runs", s.listArchivedRuns)
			archive.GET("/runs/:id", s.getArchivedRun)
		}
	}
}
