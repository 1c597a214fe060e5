package models

import "time"

// TaskProgressUpdate is an append-only progress record. Each record is also
// a status mutation on the task, and its HoursWorked is added to the task's
// ActualHours. The accumulation is monotonic across any status sequence.
type TaskProgressUpdate struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	TaskID      uint      `gorm:"index;not null" json:"task_id"`
	AuthorID    uint      `gorm:"index;not null" json:"author_id"`
	Author      *User     `gorm:"foreignKey:AuthorID" json:"author,omitempty"`
	Status      string    `gorm:"size:50;not null" json:"status"`
	Comment     string    `gorm:"type:text" json:"comment"`
	HoursWorked float64   `gorm:"default:0" json:"hours_worked"`
	CreatedAt   time.Time `json:"created_at"`
}

func (TaskProgressUpdate) TableName() string { return "task_progress_updates" }
