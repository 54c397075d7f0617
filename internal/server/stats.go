package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// handleOverview returns the statistics across all projects of the user.
func (s *Server) handleOverview(c *gin.Context) {
	overview, err := s.svc.Overview(c.Request.Context(), currentUser(c).ID)
	if err != nil {
		s.respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"stats": overview})
}

func (s *Server) handleProjectStats(c *gin.Context) {
	report, err := s.svc.ProjectReport(c.Request.Context(), currentUser(c).ID, c.Param("id"))
	if err != nil {
		s.respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"stats": report})
}
