package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"taskzen/internal/board"
	"taskzen/internal/service"
)

type moveTaskRequest struct {
	TaskID            string `json:"task_id"`
	SourceColumn      string `json:"source_column" binding:"required"`
	SourceIndex       *int   `json:"source_index" binding:"required"`
	DestinationColumn string `json:"destination_column" binding:"required"`
	DestinationIndex  *int   `json:"destination_index" binding:"required"`
}

// handleListTasks returns all tasks that belong to a project.
func (s *Server) handleListTasks(c *gin.Context) {
	tasks, err := s.svc.Tasks(c.Request.Context(), currentUser(c).ID, c.Param("id"))
	if err != nil {
		s.respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"tasks": tasks})
}

// handleCreateTask adds a task to a column of the project.
func (s *Server) handleCreateTask(c *gin.Context) {
	var req service.TaskInput
	if !s.bindJSON(c, &req) {
		return
	}
	task, err := s.svc.CreateTask(c.Request.Context(), currentUser(c).ID, c.Param("id"), req)
	if err != nil {
		s.respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusCreated, gin.H{"task": task})
}

// handleUpdateTask modifies task fields and may move it to another column.
func (s *Server) handleUpdateTask(c *gin.Context) {
	var req service.TaskInput
	if !s.bindJSON(c, &req) {
		return
	}
	task, err := s.svc.UpdateTask(c.Request.Context(), currentUser(c).ID, c.Param("id"), c.Param("taskID"), req)
	if err != nil {
		s.respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"task": task})
}

func (s *Server) handleToggleTask(c *gin.Context) {
	task, err := s.svc.ToggleTask(c.Request.Context(), currentUser(c).ID, c.Param("id"), c.Param("taskID"))
	if err != nil {
		s.respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"task": task})
}

// handleDeleteTask removes a task by identifier.
func (s *Server) handleDeleteTask(c *gin.Context) {
	if err := s.svc.DeleteTask(c.Request.Context(), currentUser(c).ID, c.Param("id"), c.Param("taskID")); err != nil {
		s.respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"status": "deleted"})
}

// handleMoveTask applies a card drag and returns the project's tasks.
func (s *Server) handleMoveTask(c *gin.Context) {
	var req moveTaskRequest
	if !s.bindJSON(c, &req) {
		return
	}
	tasks, err := s.svc.MoveTask(c.Request.Context(), currentUser(c).ID, c.Param("id"), board.TaskMove{
		TaskID:            req.TaskID,
		SourceColumn:      req.SourceColumn,
		SourceIndex:       *req.SourceIndex,
		DestinationColumn: req.DestinationColumn,
		DestinationIndex:  *req.DestinationIndex,
	})
	if err != nil {
		s.respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"tasks": tasks})
}
