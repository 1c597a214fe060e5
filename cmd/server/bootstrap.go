package main

import (
	"github.com/teamtrackhq/teamtrack/internal/config"
	"github.com/teamtrackhq/teamtrack/internal/models"
	"github.com/teamtrackhq/teamtrack/internal/services"
	"github.com/teamtrackhq/teamtrack/internal/utils"
	"github.com/teamtrackhq/teamtrack/pkg/logger"
)

// appServices holds all initialized services needed by the application.
type appServices struct {
	notificationService *services.NotificationService
	overdueScanner      *services.OverdueScanner
	notifyQueue         services.NotifyQueue
	worker              *services.Worker
}

// bootstrap initializes all application dependencies: database, services,
// schedulers. No accounts are seeded; the first registration becomes the
// admin.
func bootstrap(cfg *config.Config) *appServices {
	utils.SetJWTSecret(cfg.JWT.Secret)

	// Initialize database
	if err := models.InitDB(&cfg.Database); err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}

	// Auto migrate database
	if err := models.AutoMigrate(); err != nil {
		logger.Fatalf("Failed to migrate database: %v", err)
	}

	// Initialize activity logger
	services.InitActivityLogger(models.GetDB())

	// Initialize notification queue (uses Redis if enabled, otherwise sync mode)
	notificationService := services.NewNotificationService(models.GetDB())
	notifyQueue := services.InitNotifyQueue(cfg)
	if syncQueue, ok := notifyQueue.(*services.SyncNotifyQueue); ok {
		syncQueue.SetProcessor(notificationService.Process)
	}

	// Start async worker if Redis is enabled
	var worker *services.Worker
	if cfg.Redis.Enabled {
		worker = services.InitWorker(&cfg.Redis)
		if worker != nil {
			worker.SetProcessor(notificationService.Process)
			worker.Start()
		}
	}

	// Start the overdue task scanner
	overdueScanner := services.NewOverdueScanner(models.GetDB(), &cfg.Scheduler)
	if err := overdueScanner.Start(); err != nil {
		logger.Warn().Err(err).Msg("Failed to start overdue scanner")
	}

	return &appServices{
		notificationService: notificationService,
		overdueScanner:      overdueScanner,
		notifyQueue:         notifyQueue,
		worker:              worker,
	}
}

// shutdown gracefully stops all services.
func (s *appServices) shutdown() {
	s.overdueScanner.Stop()
	logger.Info().Msg("Scheduler stopped")

	if s.worker != nil {
		s.worker.Stop()
	}
	if s.notifyQueue != nil {
		s.notifyQueue.Close()
	}
}
