package models

import "time"

// User is the owner of projects. Every other record is scoped by UserID.
type User struct {
	ID           string    `json:"id" yaml:"id"`
	Name         string    `json:"name" yaml:"name"`
	Email        string    `json:"email" yaml:"email"`
	PhotoURL     string    `json:"photo_url,omitempty" yaml:"photo_url,omitempty"`
	PasswordHash string    `json:"-" yaml:"-"`
	CreatedAt    time.Time `json:"created_at" yaml:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" yaml:"updated_at"`
}

// Project groups a board of columns and tasks.
type Project struct {
	ID          string    `json:"id" yaml:"id"`
	UserID      string    `json:"user_id" yaml:"user_id"`
	Name        string    `json:"name" yaml:"name"`
	Description string    `json:"description" yaml:"description"`
	Icon        string    `json:"icon" yaml:"icon"`
	Color       string    `json:"color" yaml:"color"`
	CreatedAt   time.Time `json:"created_at" yaml:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" yaml:"updated_at"`
}

// Column is a named, ordered bucket of the kanban board.
type Column struct {
	ID        string `json:"id" yaml:"id"`
	ProjectID string `json:"project_id" yaml:"project_id"`
	Title     string `json:"title" yaml:"title"`
	Order     int    `json:"order" yaml:"order"`
}

// Task represents a single card on the board. Status holds the id of the
// column the card lives in and Order its position inside that column.
type Task struct {
	ID          string    `json:"id" yaml:"id"`
	ProjectID   string    `json:"project_id" yaml:"project_id"`
	UserID      string    `json:"user_id" yaml:"user_id"`
	Name        string    `json:"name" yaml:"name"`
	Description string    `json:"description" yaml:"description"`
	Completed   bool      `json:"completed" yaml:"completed"`
	Deadline    *Date     `json:"deadline" yaml:"deadline"`
	Priority    Priority  `json:"priority" yaml:"priority"`
	Status      string    `json:"status" yaml:"status"`
	Order       int       `json:"order" yaml:"order"`
	CreatedAt   time.Time `json:"created_at" yaml:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" yaml:"updated_at"`
}

// Board is the full view of a project: its columns in display order and all
// of its tasks.
type Board struct {
	Project Project  `json:"project" yaml:"project"`
	Columns []Column `json:"columns" yaml:"columns"`
	Tasks   []Task   `json:"tasks" yaml:"tasks"`
}

// Priority is the urgency of a task.
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// Priorities lists the priorities from most to least urgent.
var Priorities = []Priority{PriorityHigh, PriorityMedium, PriorityLow}

// Valid reports whether p is one of the known priorities.
func (p Priority) Valid() bool {
	switch p {
	case PriorityHigh, PriorityMedium, PriorityLow:
		return true
	}
	return false
}

// DefaultIcon is used when a project is created without an icon.
const DefaultIcon = "Folder"

// ProjectIcons enumerates the icon names a project may use.
var ProjectIcons = []string{"Folder", "Briefcase", "Book", "Code", "PenSquare", "Rocket", "Star"}

// DefaultColumnTitle is the title of a freshly added column.
const DefaultColumnTitle = "New column"
