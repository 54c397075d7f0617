package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"taskzen/internal/auth"
	"taskzen/internal/avatars"
	"taskzen/internal/events"
	"taskzen/internal/models"
)

// AvatarURL is the photo URL stored for users with an uploaded avatar.
const AvatarURL = "/api/profile/avatar"

// SignUpInput carries the registration form.
type SignUpInput struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// ProfileInput carries the editable profile fields.
type ProfileInput struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Session is returned by sign up and log in.
type Session struct {
	User  models.User `json:"user"`
	Token auth.Token  `json:"token"`
}

// SignUp registers a new account and returns a session for it.
func (s *Service) SignUp(ctx context.Context, in SignUpInput) (sess Session, err error) {
	ctx, span := s.startSpan(ctx, "service.SignUp", "")
	defer func() { endSpan(span, err) }()

	name, err := models.ValidateUserName(in.Name)
	if err != nil {
		return Session{}, err
	}
	email, err := models.ValidateEmail(in.Email)
	if err != nil {
		return Session{}, err
	}
	if err := models.ValidatePassword(in.Password); err != nil {
		return Session{}, err
	}
	if s.auth.External() {
		return Session{}, models.Invalid("accounts are managed by the identity provider")
	}

	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return Session{}, err
	}
	user, err := s.store.CreateUser(ctx, models.User{Name: name, Email: email, PasswordHash: hash})
	if err != nil {
		return Session{}, err
	}
	return s.session(user)
}

// LogIn checks the credentials and returns a session.
func (s *Service) LogIn(ctx context.Context, email, password string) (Session, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return Session{}, models.Invalid("email and password are required")
	}
	user, err := s.store.GetUserByEmail(ctx, email)
	if errors.Is(err, models.ErrNotFound) {
		return Session{}, fmt.Errorf("invalid credentials: %w", models.ErrUnauthorized)
	}
	if err != nil {
		return Session{}, err
	}
	if err := auth.CheckPassword(user.PasswordHash, password); err != nil {
		return Session{}, err
	}
	return s.session(user)
}

func (s *Service) session(user models.User) (Session, error) {
	tok, err := s.auth.Issue(user.ID)
	if err != nil {
		return Session{}, err
	}
	return Session{User: user, Token: tok}, nil
}

// Authenticate resolves the user of an Authorization header. Subjects of
// an external identity provider are provisioned on first use.
func (s *Service) Authenticate(ctx context.Context, header string) (models.User, error) {
	id, err := s.auth.VerifyHeader(header)
	if err != nil {
		return models.User{}, err
	}
	if id.External {
		name := strings.TrimSpace(id.Name)
		if name == "" {
			name = id.UserID
		}
		return s.store.EnsureUser(ctx, models.User{ID: id.UserID, Name: name, Email: strings.ToLower(id.Email)})
	}
	user, err := s.store.GetUser(ctx, id.UserID)
	if errors.Is(err, models.ErrNotFound) {
		return models.User{}, fmt.Errorf("unknown account: %w", models.ErrUnauthorized)
	}
	return user, err
}

// Profile returns the account of userID.
func (s *Service) Profile(ctx context.Context, userID string) (models.User, error) {
	return s.store.GetUser(ctx, userID)
}

// UpdateProfile changes the display name and email.
func (s *Service) UpdateProfile(ctx context.Context, userID string, in ProfileInput) (user models.User, err error) {
	ctx, span := s.startSpan(ctx, "service.UpdateProfile", userID)
	defer func() { endSpan(span, err) }()

	name, err := models.ValidateUserName(in.Name)
	if err != nil {
		return models.User{}, err
	}
	email, err := models.ValidateEmail(in.Email)
	if err != nil {
		return models.User{}, err
	}
	user, err = s.store.UpdateUser(ctx, userID, name, email)
	if err != nil {
		return models.User{}, err
	}
	s.changed(ctx, events.ProfileUpdated, userID, "", userID)
	return user, nil
}

// UploadAvatar stores a new profile picture.
func (s *Service) UploadAvatar(ctx context.Context, userID string, r io.Reader) (user models.User, err error) {
	ctx, span := s.startSpan(ctx, "service.UploadAvatar", userID)
	defer func() { endSpan(span, err) }()

	if _, err := s.store.GetUser(ctx, userID); err != nil {
		return models.User{}, err
	}
	stored, err := s.avatars.Put(userID, r)
	if err != nil {
		return models.User{}, err
	}
	s.logger.Info("avatar stored", "user_id", userID, "size", stored.Size())
	return s.store.SetUserPhoto(ctx, userID, AvatarURL)
}

// Avatar returns the stored profile picture.
func (s *Service) Avatar(_ context.Context, userID string) (avatars.Avatar, error) {
	return s.avatars.Get(userID)
}

// DeleteAccount removes the account and everything it owns. Accounts with
// a password must confirm it.
func (s *Service) DeleteAccount(ctx context.Context, userID, password string) (err error) {
	ctx, span := s.startSpan(ctx, "service.DeleteAccount", userID)
	defer func() { endSpan(span, err) }()

	user, err := s.store.GetUser(ctx, userID)
	if err != nil {
		return err
	}
	if user.PasswordHash != "" {
		if err := auth.CheckPassword(user.PasswordHash, password); err != nil {
			return err
		}
	}
	projects, err := s.store.ListProjects(ctx, userID)
	if err != nil {
		return err
	}
	if err := s.store.DeleteUser(ctx, userID); err != nil {
		return err
	}
	if err := s.avatars.Delete(userID); err != nil {
		s.logger.Warn("delete avatar failed", "user_id", userID, "error", err)
	}
	ids := make([]string, len(projects))
	for i, p := range projects {
		ids[i] = p.ID
	}
	s.cache.Evict(ctx, ids...)
	return nil
}
