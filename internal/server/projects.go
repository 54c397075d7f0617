package server

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"taskzen/internal/service"
)

type projectRequest struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
	Icon        string `json:"icon"`
}

// handleListProjects returns the projects of the current user.
func (s *Server) handleListProjects(c *gin.Context) {
	projects, err := s.svc.ListProjects(c.Request.Context(), currentUser(c).ID)
	if err != nil {
		s.respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"projects": projects})
}

// handleCreateProject creates a new project entity.
func (s *Server) handleCreateProject(c *gin.Context) {
	var req projectRequest
	if !s.bindJSON(c, &req) {
		return
	}
	project, err := s.svc.CreateProject(c.Request.Context(), currentUser(c).ID, service.ProjectInput(req))
	if err != nil {
		s.respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusCreated, gin.H{"project": project})
}

func (s *Server) handleGetProject(c *gin.Context) {
	project, err := s.svc.GetProject(c.Request.Context(), currentUser(c).ID, c.Param("id"))
	if err != nil {
		s.respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"project": project})
}

// handleUpdateProject renames or re-icons an existing project.
func (s *Server) handleUpdateProject(c *gin.Context) {
	var req projectRequest
	if !s.bindJSON(c, &req) {
		return
	}
	project, err := s.svc.UpdateProject(c.Request.Context(), currentUser(c).ID, c.Param("id"), service.ProjectInput(req))
	if err != nil {
		s.respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"project": project})
}

// handleDeleteProject removes a project and all related columns and tasks.
func (s *Server) handleDeleteProject(c *gin.Context) {
	if err := s.svc.DeleteProject(c.Request.Context(), currentUser(c).ID, c.Param("id")); err != nil {
		s.respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"status": "deleted"})
}

func (s *Server) handleBoard(c *gin.Context) {
	board, err := s.svc.Board(c.Request.Context(), currentUser(c).ID, c.Param("id"))
	if err != nil {
		s.respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"board": board})
}

// handleExport downloads a board snapshot as YAML (default) or JSON.
func (s *Server) handleExport(c *gin.Context) {
	format, err := service.ExportFormat(c.Query("format"))
	if err != nil {
		s.respondError(c, err)
		return
	}
	board, err := s.svc.Export(c.Request.Context(), currentUser(c).ID, c.Param("id"))
	if err != nil {
		s.respondError(c, err)
		return
	}

	c.Header("Content-Type", service.ContentType(format))
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", exportName(board.Project.Name, format)))
	c.Status(http.StatusOK)
	if err := service.WriteExport(c.Writer, board, format); err != nil {
		s.logger.Error("export failed", "project_id", board.Project.ID, "error", err)
	}
}

func exportName(project, format string) string {
	name := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		case r == ' ':
			return '-'
		}
		return -1
	}, project)
	if name == "" {
		name = "board"
	}
	return name + "." + format
}
