package services

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"github.com/teamtrackhq/teamtrack/internal/config"
	"github.com/teamtrackhq/teamtrack/internal/models"
	"github.com/teamtrackhq/teamtrack/pkg/logger"
	"gorm.io/gorm"
)

const overdueLockName = "overdue_scan"

// OverdueScanner notifies assignees about open tasks past their due date.
// It runs on a cron schedule, skips non-business days and takes a
// database lock so the scan runs once per day across server instances.
type OverdueScanner struct {
	db         *gorm.DB
	workday    *WorkdayService
	cfg        *config.SchedulerConfig
	cron       *cron.Cron
	instanceID string
}

func NewOverdueScanner(db *gorm.DB, cfg *config.SchedulerConfig) *OverdueScanner {
	return &OverdueScanner{
		db:         db,
		workday:    NewWorkdayService(),
		cfg:        cfg,
		instanceID: uuid.New().String(),
	}
}

// Start schedules the daily scan.
func (s *OverdueScanner) Start() error {
	s.cron = cron.New()

	spec := s.cfg.OverdueCron
	if spec == "" {
		spec = "0 8 * * *"
	}

	if _, err := s.cron.AddFunc(spec, func() {
		if err := s.Scan(time.Now()); err != nil {
			logger.Errorf("[OverdueScanner] Scan failed: %v", err)
		}
	}); err != nil {
		return err
	}

	s.cron.Start()
	logger.Infof("[OverdueScanner] Scheduled (cron: %s)", spec)
	return nil
}

// Stop halts the scheduler.
func (s *OverdueScanner) Stop() {
	if s.cron != nil {
		s.cron.Stop()
	}
}

// Scan finds open tasks past their due date and enqueues one overdue
// notification per task to the assignee.
func (s *OverdueScanner) Scan(now time.Time) error {
	country := s.cfg.HolidayCountry
	if country == "" {
		country = "US"
	}
	if !s.workday.IsWorkday(now, country) {
		logger.Infof("[OverdueScanner] %s is not a business day, skipping", now.Format("2006-01-02"))
		return nil
	}

	dateKey := now.Format("2006-01-02")
	acquired, err := s.acquireLock(dateKey, now)
	if err != nil {
		return err
	}
	if !acquired {
		logger.Infof("[OverdueScanner] Scan for %s already ran on another instance", dateKey)
		return nil
	}

	var tasks []models.Task
	if err := s.db.Preload("Project").
		Where("due_date < ? AND status IN ?", now, models.TaskOpenStatuses).
		Find(&tasks).Error; err != nil {
		return err
	}

	for i := range tasks {
		t := &tasks[i]
		projectName := ""
		if t.Project != nil {
			projectName = t.Project.Name
		}
		notify(t.AssigneeID, models.NotifyTaskOverdue, &t.ID, &t.ProjectID,
			fmt.Sprintf("Task %q in project %q is overdue (due %s)",
				t.Title, projectName, t.DueDate.Format("2006-01-02")))
	}

	LogInfo("scheduler", "overdue_scan",
		fmt.Sprintf("Overdue scan for %s flagged %d tasks", dateKey, len(tasks)), nil, "", "", nil)
	logger.Infof("[OverdueScanner] Scan for %s flagged %d overdue tasks", dateKey, len(tasks))
	return nil
}

// acquireLock inserts the per-date lock row. A unique-index violation
// means another instance already ran today's scan.
func (s *OverdueScanner) acquireLock(dateKey string, now time.Time) (bool, error) {
	// Expired locks from aborted runs are reclaimed first.
	s.db.Where("lock_name = ? AND expires_at < ?", overdueLockName, now).
		Delete(&models.SchedulerLock{})

	lock := models.SchedulerLock{
		LockName:  overdueLockName,
		LockKey:   dateKey,
		LockedBy:  s.instanceID,
		LockedAt:  now,
		ExpiresAt: now.Add(24 * time.Hour),
	}
	result := s.db.Create(&lock)
	if result.Error != nil {
		var count int64
		s.db.Model(&models.SchedulerLock{}).
			Where("lock_name = ? AND lock_key = ?", overdueLockName, dateKey).
			Count(&count)
		if count > 0 {
			return false, nil
		}
		return false, result.Error
	}
	return true, nil
}
