package services

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/teamtrackhq/teamtrack/internal/config"
	"github.com/teamtrackhq/teamtrack/pkg/logger"
)

const (
	TaskTypeNotify = "notify:dispatch"
)

// NotificationTask is a notification dispatch job.
type NotificationTask struct {
	ID        string `json:"id"`
	UserID    uint   `json:"user_id"`
	Kind      string `json:"kind"`
	TaskID    *uint  `json:"task_id,omitempty"`
	ProjectID *uint  `json:"project_id,omitempty"`
	Message   string `json:"message"`
}

// NewNotificationTask builds a dispatch job with a fresh id.
func NewNotificationTask(userID uint, kind string, taskID, projectID *uint, message string) *NotificationTask {
	return &NotificationTask{
		ID:        uuid.New().String(),
		UserID:    userID,
		Kind:      kind,
		TaskID:    taskID,
		ProjectID: projectID,
		Message:   message,
	}
}

// NotifyQueue defines the interface for notification dispatch.
type NotifyQueue interface {
	// Enqueue adds a job to the queue
	Enqueue(task *NotificationTask) error
	// IsAsync returns true if the queue dispatches through Redis
	IsAsync() bool
	// Close gracefully shuts down the queue
	Close() error
}

// Global notify queue instance
var (
	globalNotifyQueue NotifyQueue
	notifyQueueOnce   sync.Once
)

// InitNotifyQueue initializes the global queue based on config. When Redis
// is disabled or unreachable it falls back to in-process dispatch.
func InitNotifyQueue(cfg *config.Config) NotifyQueue {
	notifyQueueOnce.Do(func() {
		if cfg.Redis.Enabled {
			queue, err := NewAsyncNotifyQueue(&cfg.Redis)
			if err != nil {
				logger.Infof("[NotifyQueue] Redis unavailable, falling back to sync mode: %v", err)
				globalNotifyQueue = NewSyncNotifyQueue()
			} else {
				logger.Infof("[NotifyQueue] Async queue initialized with Redis at %s", cfg.Redis.Addr)
				globalNotifyQueue = queue
			}
		} else {
			logger.Infof("[NotifyQueue] Sync queue initialized (Redis disabled)")
			globalNotifyQueue = NewSyncNotifyQueue()
		}
	})
	return globalNotifyQueue
}

// GetNotifyQueue returns the global queue instance.
func GetNotifyQueue() NotifyQueue {
	return globalNotifyQueue
}

// AsyncNotifyQueue implements NotifyQueue using asynq (Redis-based).
type AsyncNotifyQueue struct {
	client *asynq.Client
}

// NewAsyncNotifyQueue creates a new Redis-based queue.
func NewAsyncNotifyQueue(cfg *config.RedisConfig) (*AsyncNotifyQueue, error) {
	redisOpt := asynq.RedisClientOpt{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	}

	client := asynq.NewClient(redisOpt)

	// Verify connection before committing to async mode.
	inspector := asynq.NewInspector(redisOpt)
	defer inspector.Close()

	if _, err := inspector.Queues(); err != nil {
		client.Close()
		return nil, err
	}

	return &AsyncNotifyQueue{client: client}, nil
}

func (q *AsyncNotifyQueue) Enqueue(task *NotificationTask) error {
	payload, err := json.Marshal(task)
	if err != nil {
		return err
	}

	t := asynq.NewTask(TaskTypeNotify, payload)
	info, err := q.client.Enqueue(t,
		asynq.Queue("default"),
		asynq.MaxRetry(3),
	)
	if err != nil {
		return err
	}

	logger.Infof("[NotifyQueue] Job enqueued: id=%s, queue=%s", info.ID, info.Queue)
	return nil
}

func (q *AsyncNotifyQueue) IsAsync() bool {
	return true
}

func (q *AsyncNotifyQueue) Close() error {
	return q.client.Close()
}

// SyncNotifyQueue implements NotifyQueue with in-process dispatch (no Redis).
type SyncNotifyQueue struct {
	processor func(context.Context, *NotificationTask) error
}

func NewSyncNotifyQueue() *SyncNotifyQueue {
	return &SyncNotifyQueue{}
}

// SetProcessor sets the function invoked for each job.
func (q *SyncNotifyQueue) SetProcessor(processor func(context.Context, *NotificationTask) error) {
	q.processor = processor
}

// Enqueue dispatches the job in a goroutine so the request handler is not
// blocked on the notification write.
func (q *SyncNotifyQueue) Enqueue(task *NotificationTask) error {
	if q.processor == nil {
		logger.Infof("[SyncNotifyQueue] Warning: no processor set, job will be dropped")
		return nil
	}

	go func() {
		ctx := context.Background()
		if err := q.processor(ctx, task); err != nil {
			logger.Infof("[SyncNotifyQueue] Dispatch failed: %v", err)
		}
	}()

	return nil
}

func (q *SyncNotifyQueue) IsAsync() bool {
	return false
}

func (q *SyncNotifyQueue) Close() error {
	return nil
}
