package service

import (
	"context"

	"taskzen/internal/stats"
)

// Overview aggregates the statistics of every project of a user.
func (s *Service) Overview(ctx context.Context, userID string) (stats.Overview, error) {
	projects, err := s.store.ListProjects(ctx, userID)
	if err != nil {
		return stats.Overview{}, err
	}
	tasks, err := s.store.ListUserTasks(ctx, userID)
	if err != nil {
		return stats.Overview{}, err
	}
	return stats.BuildOverview(projects, tasks), nil
}

// ProjectReport aggregates the statistics of one project.
func (s *Service) ProjectReport(ctx context.Context, userID, projectID string) (stats.ProjectReport, error) {
	b, err := s.Board(ctx, userID, projectID)
	if err != nil {
		return stats.ProjectReport{}, err
	}
	return stats.BuildProjectReport(projectID, b.Tasks, b.Columns, s.now()), nil
}
