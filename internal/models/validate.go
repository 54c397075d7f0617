package models

import (
	"fmt"
	"net/mail"
	"strings"
)

const (
	minUserNameLen = 2
	minPasswordLen = 6
	chartPalettes  = 5
)

// ValidIcon reports whether name is one of ProjectIcons.
func ValidIcon(name string) bool {
	for _, icon := range ProjectIcons {
		if icon == name {
			return true
		}
	}
	return false
}

// ProjectColor returns the chart color for a user's next project, cycling
// through the five chart palette entries.
func ProjectColor(existing int) string {
	if existing < 0 {
		existing = 0
	}
	return fmt.Sprintf("hsl(var(--chart-%d))", existing%chartPalettes+1)
}

// ValidateUserName checks the display name of an account.
func ValidateUserName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if len([]rune(name)) < minUserNameLen {
		return "", Invalid("name must be at least %d characters", minUserNameLen)
	}
	return name, nil
}

// ValidateEmail normalizes an email address and rejects malformed ones.
func ValidateEmail(email string) (string, error) {
	email = strings.TrimSpace(email)
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", Invalid("invalid email address")
	}
	return strings.ToLower(email), nil
}

// ValidatePassword enforces the minimum password length.
func ValidatePassword(password string) error {
	if len(password) < minPasswordLen {
		return Invalid("password must be at least %d characters", minPasswordLen)
	}
	return nil
}

// ValidateProjectName trims the name and rejects empty ones.
func ValidateProjectName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", Invalid("project name is required")
	}
	return name, nil
}

// ValidateTaskName trims the name and rejects empty ones.
func ValidateTaskName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", Invalid("task name is required")
	}
	return name, nil
}
