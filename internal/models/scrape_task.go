// internal/models/scrape_task.go
package models

import (
	"time"
)

// ScrapeTask is an audit row recording one collaborator fetch
// (initial search, category expansion, deep expansion).
type ScrapeTask struct {
	BaseModel
	Keyword      string     `json:"keyword" gorm:"size:255;not null;index"`
	TaskType     TaskType   `json:"task_type" gorm:"size:32;not null"`
	SourceValue  string     `json:"source_value" gorm:"size:255"`
	Status       TaskStatus `json:"status" gorm:"size:16;not null;default:'running';index"`
	ItemCount    int        `json:"item_count" gorm:"default:0"`
	PagesFetched int        `json:"pages_fetched" gorm:"default:0"`
	ErrorText    string     `json:"error_text" gorm:"type:text"`
	StartedAt    time.Time  `json:"started_at"`
	FinishedAt   *time.Time `json:"finished_at"`
}
