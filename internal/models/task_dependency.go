package models

import "time"

// Dependency edge kinds.
const (
	DependencyBlocks    = "blocks"
	DependencyDependsOn = "depends_on"
)

// TaskDependency is a directed edge between two tasks of the same project.
// A task cannot be deleted while a non-terminal task points an edge at it.
type TaskDependency struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	TaskID      uint      `gorm:"uniqueIndex:idx_task_dep;not null" json:"task_id"`
	DependsOnID uint      `gorm:"uniqueIndex:idx_task_dep;index;not null" json:"depends_on_id"`
	DependsOn   *Task     `gorm:"foreignKey:DependsOnID" json:"depends_on,omitempty"`
	Kind        string    `gorm:"size:20;default:depends_on" json:"kind"` // blocks, depends_on
	CreatedAt   time.Time `json:"created_at"`
}

func (TaskDependency) TableName() string { return "task_dependencies" }

// ValidDependencyKind reports whether k is a known edge kind.
func ValidDependencyKind(k string) bool {
	return k == DependencyBlocks || k == DependencyDependsOn
}
