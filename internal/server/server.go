package server

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"taskzen/internal/models"
	"taskzen/internal/service"
)

const userKey = "taskzen.user"

// Server provides HTTP handlers for the TaskZen API.
type Server struct {
	engine    *gin.Engine
	svc       *service.Service
	logger    *slog.Logger
	staticDir string
}

// New constructs the HTTP server with routes and middleware configured.
func New(svc *service.Service, logger *slog.Logger, staticDir string) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(gin.LoggerWithWriter(gin.DefaultWriter, "/api/healthz", "/api/events"))
	router.MaxMultipartMemory = 8 << 20

	srv := &Server{
		engine:    router,
		svc:       svc,
		logger:    logger,
		staticDir: staticDir,
	}

	srv.registerRoutes()
	return srv
}

// Engine exposes the underlying Gin engine.
func (s *Server) Engine() *gin.Engine {
	return s.engine
}

// registerRoutes wires all API and static handlers together.
func (s *Server) registerRoutes() {
	api := s.engine.Group("/api")
	{
		api.GET("/healthz", s.handleHealth)

		authGroup := api.Group("/auth")
		{
			authGroup.POST("/signup", s.handleSignUp)
			authGroup.POST("/login", s.handleLogIn)
		}

		private := api.Group("", s.requireUser)
		{
			private.GET("/profile", s.handleProfile)
			private.PUT("/profile", s.handleUpdateProfile)
			private.DELETE("/profile", s.handleDeleteAccount)
			private.PUT("/profile/avatar", s.handleUploadAvatar)
			private.GET("/profile/avatar", s.handleAvatar)

			private.GET("/stats", s.handleOverview)
			private.GET("/events", s.handleEvents)

			projects := private.Group("/projects")
			{
				projects.GET("", s.handleListProjects)
				projects.POST("", s.handleCreateProject)
				projects.GET(":id", s.handleGetProject)
				projects.PUT(":id", s.handleUpdateProject)
				projects.DELETE(":id", s.handleDeleteProject)
				projects.GET(":id/board", s.handleBoard)
				projects.GET(":id/stats", s.handleProjectStats)
				projects.GET(":id/export", s.handleExport)

				projects.GET(":id/columns", s.handleListColumns)
				projects.POST(":id/columns", s.handleAddColumn)
				projects.POST(":id/columns/move", s.handleMoveColumn)
				projects.PUT(":id/columns/:columnID", s.handleRenameColumn)
				projects.DELETE(":id/columns/:columnID", s.handleDeleteColumn)

				projects.GET(":id/tasks", s.handleListTasks)
				projects.POST(":id/tasks", s.handleCreateTask)
				projects.POST(":id/tasks/move", s.handleMoveTask)
				projects.PUT(":id/tasks/:taskID", s.handleUpdateTask)
				projects.DELETE(":id/tasks/:taskID", s.handleDeleteTask)
				projects.POST(":id/tasks/:taskID/toggle", s.handleToggleTask)
			}
		}
	}

	s.mountStatic()
}

// handleHealth reports whether the database answers.
func (s *Server) handleHealth(c *gin.Context) {
	if err := s.svc.Ping(c.Request.Context()); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// requireUser authenticates the bearer token and stores the user on the
// context. EventSource and <img> requests cannot set headers, so the token
// may also be passed as the access_token query parameter.
func (s *Server) requireUser(c *gin.Context) {
	header := c.GetHeader("Authorization")
	if header == "" {
		if token := c.Query("access_token"); token != "" {
			header = "Bearer " + token
		}
	}
	user, err := s.svc.Authenticate(c.Request.Context(), header)
	if err != nil {
		s.respondError(c, err)
		c.Abort()
		return
	}
	c.Set(userKey, user)
	c.Next()
}

func currentUser(c *gin.Context) models.User {
	user, _ := c.MustGet(userKey).(models.User)
	return user
}

// bindJSON decodes the request body and reports binding errors as 400.
func (s *Server) bindJSON(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		s.respondError(c, fmt.Errorf("%w: %v", models.ErrInvalid, err))
		return false
	}
	return true
}

// statusFor maps domain errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, models.ErrInvalid):
		return http.StatusBadRequest
	case errors.Is(err, models.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, models.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, models.ErrConflict):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// respondError logs the error and returns a JSON payload. Internal errors
// are not echoed to the client.
func (s *Server) respondError(c *gin.Context, err error) {
	status := statusFor(err)
	attrs := []any{slog.String("path", c.FullPath()), slog.Int("status", status), slog.String("error", err.Error())}
	msg := err.Error()
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", attrs...)
		msg = http.StatusText(status)
	} else {
		s.logger.Warn("request rejected", attrs...)
	}
	c.JSON(status, gin.H{"error": msg})
}

// respondSuccess writes payload as JSON or only the status when it is nil.
func respondSuccess(c *gin.Context, status int, payload any) {
	if payload == nil {
		c.Status(status)
		return
	}
	c.JSON(status, payload)
}
