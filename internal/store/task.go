// internal/store/task.go
package store

import (
	"fmt"
	"time"

	"github.com/javajoker/asin-radar/internal/models"
)

// StartTask records a collaborator fetch as running and returns the
// audit row.
func (s *RecordStore) StartTask(keyword string, taskType models.TaskType, sourceValue string) (*models.ScrapeTask, error) {
	task := &models.ScrapeTask{
		Keyword:     keyword,
		TaskType:    taskType,
		SourceValue: sourceValue,
		Status:      models.TaskStatusRunning,
		StartedAt:   time.Now(),
	}
	if err := s.db.Create(task).Error; err != nil {
		return nil, fmt.Errorf("failed to create scrape task: %w", err)
	}
	return task, nil
}

// FinishTask closes an audit row as completed or failed.
func (s *RecordStore) FinishTask(task *models.ScrapeTask, itemCount, pagesFetched int, taskErr error) error {
	now := time.Now()
	task.Status = models.TaskStatusCompleted
	if taskErr != nil {
		task.Status = models.TaskStatusFailed
		task.ErrorText = taskErr.Error()
	}
	task.ItemCount = itemCount
	task.PagesFetched = pagesFetched
	task.FinishedAt = &now

	if err := s.db.Save(task).Error; err != nil {
		return fmt.Errorf("failed to finish scrape task: %w", err)
	}
	return nil
}
