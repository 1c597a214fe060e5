package services

import (
	"context"
	"testing"
	"time"

	"github.com/teamtrackhq/teamtrack/internal/config"
	"github.com/teamtrackhq/teamtrack/internal/models"
)

func TestOverdueScanner_LockOncePerDay(t *testing.T) {
	db := setupTestDB(t)
	s := NewOverdueScanner(db, &config.SchedulerConfig{HolidayCountry: "NONE"})

	now := time.Date(2026, 3, 4, 8, 0, 0, 0, time.UTC) // a Wednesday

	acquired, err := s.acquireLock("2026-03-04", now)
	if err != nil {
		t.Fatalf("first acquire failed: %v", err)
	}
	if !acquired {
		t.Fatal("first acquire should succeed")
	}

	other := NewOverdueScanner(db, &config.SchedulerConfig{HolidayCountry: "NONE"})
	acquired, err = other.acquireLock("2026-03-04", now)
	if err != nil {
		t.Fatalf("second acquire errored: %v", err)
	}
	if acquired {
		t.Error("second acquire for the same date should fail")
	}

	// A new date is a new lock.
	acquired, err = other.acquireLock("2026-03-05", now.Add(24*time.Hour))
	if err != nil {
		t.Fatalf("next-day acquire failed: %v", err)
	}
	if !acquired {
		t.Error("next-day acquire should succeed")
	}
}

func TestOverdueScanner_SkipsWeekends(t *testing.T) {
	db := setupTestDB(t)
	s := NewOverdueScanner(db, &config.SchedulerConfig{HolidayCountry: "NONE"})

	saturday := time.Date(2026, 3, 7, 8, 0, 0, 0, time.UTC)
	if err := s.Scan(saturday); err != nil {
		t.Fatalf("weekend scan errored: %v", err)
	}

	// No lock row means the scan body never ran.
	var locks int64
	db.Model(&models.SchedulerLock{}).Count(&locks)
	if locks != 0 {
		t.Errorf("lock rows after weekend scan = %d, expected 0", locks)
	}
}

func TestWorkdayService(t *testing.T) {
	s := NewWorkdayService()

	monday := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)
	sunday := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	july4 := time.Date(2026, 7, 3, 12, 0, 0, 0, time.UTC) // observed US holiday

	if !s.IsWorkday(monday, "US") {
		t.Error("a plain Monday should be a workday")
	}
	if s.IsWorkday(sunday, "US") {
		t.Error("Sunday should not be a workday")
	}
	if s.IsWorkday(july4, "US") {
		t.Error("Independence Day (observed) should not be a US workday")
	}
	// Unknown country falls back to the weekday check.
	if !s.IsWorkday(july4, "ZZ") {
		t.Error("unknown country should fall back to weekday check")
	}
}

func TestNotificationService_ProcessAndRead(t *testing.T) {
	db := setupTestDB(t)
	svc := NewNotificationService(db)
	user := createUser(t, db, "dev@example.com", models.RoleMember)

	taskID := uint(7)
	job := NewNotificationTask(user.ID, models.NotifyTaskAssigned, &taskID, nil, "You have been assigned a task")
	if job.ID == "" {
		t.Fatal("job should carry an id")
	}

	if err := svc.Process(context.Background(), job); err != nil {
		t.Fatalf("process failed: %v", err)
	}

	count, err := svc.UnreadCount(user.ID)
	if err != nil {
		t.Fatalf("unread count failed: %v", err)
	}
	if count != 1 {
		t.Errorf("unread = %d, expected 1", count)
	}

	list, err := svc.List(user.ID, &NotificationListRequest{})
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if list.Total != 1 {
		t.Fatalf("total = %d, expected 1", list.Total)
	}

	if err := svc.MarkRead(user.ID, list.Items[0].ID); err != nil {
		t.Fatalf("mark read failed: %v", err)
	}
	count, _ = svc.UnreadCount(user.ID)
	if count != 0 {
		t.Errorf("unread after mark = %d, expected 0", count)
	}
}
