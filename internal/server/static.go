package server

import (
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"

	"taskzen/internal/models"
)

// mountStatic serves the compiled frontend with a single page app fallback.
// Unknown /api paths always answer with a JSON 404.
func (s *Server) mountStatic() {
	index := s.staticIndex()
	s.engine.NoRoute(func(c *gin.Context) {
		if strings.HasPrefix(c.Request.URL.Path, "/api/") || index == "" {
			s.respondError(c, models.NotFound("endpoint"))
			return
		}
		if c.Request.Method != http.MethodGet && c.Request.Method != http.MethodHead {
			s.respondError(c, models.NotFound("endpoint"))
			return
		}
		if file, ok := s.staticFile(c.Request.URL.Path); ok {
			c.File(file)
			return
		}
		c.File(index)
	})
}

// staticIndex returns the path of index.html or "" in API only mode.
func (s *Server) staticIndex() string {
	if s.staticDir == "" {
		s.logger.Warn("static directory not configured; API only mode")
		return ""
	}
	info, err := os.Stat(s.staticDir)
	if err != nil || !info.IsDir() {
		s.logger.Warn("static directory missing", "path", s.staticDir, "error", err)
		return ""
	}
	index := filepath.Join(s.staticDir, "index.html")
	if _, err := os.Stat(index); err != nil {
		s.logger.Warn("index.html not found", "path", index, "error", err)
		return ""
	}
	return index
}

// staticFile resolves a request path to a regular file inside staticDir.
func (s *Server) staticFile(urlPath string) (string, bool) {
	clean := path.Clean("/" + urlPath)
	if clean == "/" {
		return "", false
	}
	file := filepath.Join(s.staticDir, filepath.FromSlash(clean))
	info, err := os.Stat(file)
	if err != nil || info.IsDir() {
		return "", false
	}
	return file, true
}
