// Package stats aggregates tasks for the dashboard charts.
package stats

import (
	"math"
	"sort"
	"time"

	"taskzen/internal/models"
)

// Summary counts tasks by completion.
type Summary struct {
	Total     int `json:"total" yaml:"total"`
	Completed int `json:"completed" yaml:"completed"`
	Active    int `json:"active" yaml:"active"`
	Progress  int `json:"progress" yaml:"progress"`
}

// Bucket is one bar of a chart.
type Bucket struct {
	Name  string `json:"name" yaml:"name"`
	Tasks int    `json:"tasks" yaml:"tasks"`
}

// ProjectProgress is the completion percentage of one project.
type ProjectProgress struct {
	ProjectID string  `json:"project_id" yaml:"project_id"`
	Name      string  `json:"name" yaml:"name"`
	Completed float64 `json:"completed" yaml:"completed"`
	Color     string  `json:"color" yaml:"color"`
}

// Overview is the statistics page of a user across all projects.
type Overview struct {
	Summary           Summary           `json:"summary"`
	TotalProjects     int               `json:"total_projects"`
	CompletedProjects int               `json:"completed_projects"`
	ByPriority        []Bucket          `json:"by_priority"`
	Projects          []ProjectProgress `json:"projects"`
}

// ProjectReport is the statistics page of a single project.
type ProjectReport struct {
	ProjectID  string   `json:"project_id"`
	Summary    Summary  `json:"summary"`
	Overdue    int      `json:"overdue"`
	ByPriority []Bucket `json:"by_priority"`
	ByColumn   []Bucket `json:"by_column"`
}

// Summarize counts completed and active tasks. Progress is the rounded
// completion percentage and is 0 for an empty list.
func Summarize(tasks []models.Task) Summary {
	s := Summary{Total: len(tasks)}
	for _, t := range tasks {
		if t.Completed {
			s.Completed++
		}
	}
	s.Active = s.Total - s.Completed
	if s.Total > 0 {
		s.Progress = int(math.Round(float64(s.Completed) / float64(s.Total) * 100))
	}
	return s
}

// Overdue counts open tasks whose deadline day is already over at now.
func Overdue(tasks []models.Task, now time.Time) int {
	today := models.NewDate(now)
	n := 0
	for _, t := range tasks {
		if t.Completed || t.Deadline == nil {
			continue
		}
		if t.Deadline.Before(today) {
			n++
		}
	}
	return n
}

// ByPriority counts tasks per priority, most urgent first, skipping empty
// buckets.
func ByPriority(tasks []models.Task) []Bucket {
	counts := make(map[models.Priority]int, len(models.Priorities))
	for _, t := range tasks {
		counts[t.Priority]++
	}
	buckets := []Bucket{}
	for _, p := range models.Priorities {
		if counts[p] > 0 {
			buckets = append(buckets, Bucket{Name: string(p), Tasks: counts[p]})
		}
	}
	return buckets
}

// ByColumn counts tasks per column title, largest first. Columns without
// tasks are skipped and ties keep the board order.
func ByColumn(tasks []models.Task, columns []models.Column) []Bucket {
	counts := make(map[string]int, len(columns))
	for _, t := range tasks {
		counts[t.Status]++
	}

	ordered := make([]models.Column, len(columns))
	copy(ordered, columns)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].Order < ordered[j].Order })

	buckets := []Bucket{}
	for _, c := range ordered {
		if counts[c.ID] > 0 {
			buckets = append(buckets, Bucket{Name: c.Title, Tasks: counts[c.ID]})
		}
	}
	sort.SliceStable(buckets, func(i, j int) bool { return buckets[i].Tasks > buckets[j].Tasks })
	return buckets
}

// Progress returns the completion percentage of every project.
func Progress(projects []models.Project, tasks []models.Task) []ProjectProgress {
	byProject := groupByProject(tasks)
	out := make([]ProjectProgress, 0, len(projects))
	for _, p := range projects {
		own := byProject[p.ID]
		var pct float64
		if len(own) > 0 {
			pct = float64(Summarize(own).Completed) / float64(len(own)) * 100
		}
		out = append(out, ProjectProgress{ProjectID: p.ID, Name: p.Name, Completed: pct, Color: p.Color})
	}
	return out
}

// CompletedProjects counts projects that have tasks and all of them done.
func CompletedProjects(projects []models.Project, tasks []models.Task) int {
	byProject := groupByProject(tasks)
	n := 0
	for _, p := range projects {
		own := byProject[p.ID]
		if len(own) > 0 && Summarize(own).Active == 0 {
			n++
		}
	}
	return n
}

// BuildOverview composes the user level statistics.
func BuildOverview(projects []models.Project, tasks []models.Task) Overview {
	return Overview{
		Summary:           Summarize(tasks),
		TotalProjects:     len(projects),
		CompletedProjects: CompletedProjects(projects, tasks),
		ByPriority:        ByPriority(tasks),
		Projects:          Progress(projects, tasks),
	}
}

// BuildProjectReport composes the project level statistics.
func BuildProjectReport(projectID string, tasks []models.Task, columns []models.Column, now time.Time) ProjectReport {
	return ProjectReport{
		ProjectID:  projectID,
		Summary:    Summarize(tasks),
		Overdue:    Overdue(tasks, now),
		ByPriority: ByPriority(tasks),
		ByColumn:   ByColumn(tasks, columns),
	}
}

func groupByProject(tasks []models.Task) map[string][]models.Task {
	out := make(map[string][]models.Task)
	for _, t := range tasks {
		out[t.ProjectID] = append(out[t.ProjectID], t)
	}
	return out
}
