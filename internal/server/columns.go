package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type columnRequest struct {
	Title string `json:"title"`
}

type moveColumnRequest struct {
	From *int `json:"from" binding:"required"`
	To   *int `json:"to" binding:"required"`
}

func (s *Server) handleListColumns(c *gin.Context) {
	columns, err := s.svc.Columns(c.Request.Context(), currentUser(c).ID, c.Param("id"))
	if err != nil {
		s.respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"columns": columns})
}

// handleAddColumn appends a column; the title is optional.
func (s *Server) handleAddColumn(c *gin.Context) {
	var req columnRequest
	if c.Request.ContentLength != 0 && !s.bindJSON(c, &req) {
		return
	}
	column, err := s.svc.AddColumn(c.Request.Context(), currentUser(c).ID, c.Param("id"), req.Title)
	if err != nil {
		s.respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusCreated, gin.H{"column": column})
}

func (s *Server) handleRenameColumn(c *gin.Context) {
	var req columnRequest
	if !s.bindJSON(c, &req) {
		return
	}
	column, err := s.svc.RenameColumn(c.Request.Context(), currentUser(c).ID, c.Param("id"), c.Param("columnID"), req.Title)
	if err != nil {
		s.respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"column": column})
}

// handleDeleteColumn removes a column together with its tasks.
func (s *Server) handleDeleteColumn(c *gin.Context) {
	if err := s.svc.DeleteColumn(c.Request.Context(), currentUser(c).ID, c.Param("id"), c.Param("columnID")); err != nil {
		s.respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"status": "deleted"})
}

// handleMoveColumn applies a column drag given as list indexes.
func (s *Server) handleMoveColumn(c *gin.Context) {
	var req moveColumnRequest
	if !s.bindJSON(c, &req) {
		return
	}
	columns, err := s.svc.MoveColumn(c.Request.Context(), currentUser(c).ID, c.Param("id"), *req.From, *req.To)
	if err != nil {
		s.respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"columns": columns})
}
