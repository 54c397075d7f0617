package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"taskzen/internal/models"
	"taskzen/internal/service"
)

type signUpRequest struct {
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type logInRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type profileRequest struct {
	Name  string `json:"name" binding:"required"`
	Email string `json:"email" binding:"required"`
}

type deleteAccountRequest struct {
	Password string `json:"password"`
}

// handleSignUp registers an account and returns a session.
func (s *Server) handleSignUp(c *gin.Context) {
	var req signUpRequest
	if !s.bindJSON(c, &req) {
		return
	}
	sess, err := s.svc.SignUp(c.Request.Context(), service.SignUpInput(req))
	if err != nil {
		s.respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusCreated, sess)
}

// handleLogIn exchanges credentials for a session.
func (s *Server) handleLogIn(c *gin.Context) {
	var req logInRequest
	if !s.bindJSON(c, &req) {
		return
	}
	sess, err := s.svc.LogIn(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		s.respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, sess)
}

func (s *Server) handleProfile(c *gin.Context) {
	user, err := s.svc.Profile(c.Request.Context(), currentUser(c).ID)
	if err != nil {
		s.respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"user": user})
}

func (s *Server) handleUpdateProfile(c *gin.Context) {
	var req profileRequest
	if !s.bindJSON(c, &req) {
		return
	}
	user, err := s.svc.UpdateProfile(c.Request.Context(), currentUser(c).ID, service.ProfileInput(req))
	if err != nil {
		s.respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"user": user})
}

// handleDeleteAccount removes the account after the password is confirmed.
func (s *Server) handleDeleteAccount(c *gin.Context) {
	var req deleteAccountRequest
	if c.Request.ContentLength != 0 && !s.bindJSON(c, &req) {
		return
	}
	if err := s.svc.DeleteAccount(c.Request.Context(), currentUser(c).ID, req.Password); err != nil {
		s.respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"status": "deleted"})
}

// handleUploadAvatar stores the multipart field "avatar" as profile picture.
func (s *Server) handleUploadAvatar(c *gin.Context) {
	header, err := c.FormFile("avatar")
	if err != nil {
		s.respondError(c, models.Invalid("missing avatar file: %v", err))
		return
	}
	file, err := header.Open()
	if err != nil {
		s.respondError(c, err)
		return
	}
	defer file.Close()

	user, err := s.svc.UploadAvatar(c.Request.Context(), currentUser(c).ID, file)
	if err != nil {
		s.respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"user": user})
}

func (s *Server) handleAvatar(c *gin.Context) {
	avatar, err := s.svc.Avatar(c.Request.Context(), currentUser(c).ID)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.DataFromReader(http.StatusOK, int64(len(avatar.Data)), avatar.ContentType, avatar.Reader(),
		map[string]string{"Cache-Control": "private, max-age=60"})
}
