package auth

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"taskzen/internal/models"
)

// HashPassword returns the bcrypt hash of password.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

// CheckPassword compares password with hash. A mismatch, or an account
// without a password, yields models.ErrUnauthorized.
func CheckPassword(hash, password string) error {
	if hash == "" {
		return fmt.Errorf("invalid credentials: %w", models.ErrUnauthorized)
	}
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return fmt.Errorf("invalid credentials: %w", models.ErrUnauthorized)
	}
	if err != nil {
		return fmt.Errorf("check password: %w", err)
	}
	return nil
}
