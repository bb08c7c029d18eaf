package jobs

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// CleanupTask identifies one stored file superseded by a document
// replacement and awaiting removal.
type CleanupTask struct {
	RelPath       string
	ApplicationID string
	DocType       string
	Attempt       int
	Enqueued      time.Time
}

// FileRemover deletes a stored file by its storage-relative path.
type FileRemover interface {
	Delete(relPath string) error
}

// CleanupConfig configures worker pool behaviour.
type CleanupConfig struct {
	Workers    int
	BufferSize int
	MaxRetries int
	RetryDelay time.Duration
	Logger     *zap.Logger
}

// CleanupQueue removes superseded document files in the background so the
// resubmission request path never blocks on storage I/O.
type CleanupQueue struct {
	files FileRemover

	workers    int
	bufferSize int
	maxRetries int
	retryDelay time.Duration
	logger     *zap.Logger

	tasks   chan CleanupTask
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	mu      sync.Mutex
	started bool
}

// NewCleanupQueue builds a queue deleting files through the given remover.
func NewCleanupQueue(files FileRemover, cfg CleanupConfig) *CleanupQueue {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = cfg.Workers * 4
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	return &CleanupQueue{
		files:      files,
		workers:    cfg.Workers,
		bufferSize: cfg.BufferSize,
		maxRetries: cfg.MaxRetries,
		retryDelay: cfg.RetryDelay,
		logger:     cfg.Logger,
		tasks:      make(chan CleanupTask, cfg.BufferSize),
	}
}

// Start begins worker consumption. Safe to call once.
func (q *CleanupQueue) Start(ctx context.Context) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.started {
		return
	}
	q.ctx, q.cancel = context.WithCancel(ctx)
	for i := 0; i < q.workers; i++ {
		q.wg.Add(1)
		go q.worker()
	}
	q.started = true
	q.logger.Sugar().Infow("cleanup queue started", "workers", q.workers)
}

// Stop cancels workers and waits for them to exit.
func (q *CleanupQueue) Stop() {
	q.mu.Lock()
	if !q.started {
		q.mu.Unlock()
		return
	}
	q.cancel()
	q.mu.Unlock()
	q.wg.Wait()
	q.logger.Sugar().Infow("cleanup queue stopped")
}

// Enqueue schedules one file for removal.
func (q *CleanupQueue) Enqueue(task CleanupTask) error {
	q.mu.Lock()
	ctx := q.ctx
	started := q.started
	q.mu.Unlock()

	if !started {
		return fmt.Errorf("cleanup queue not started")
	}
	if task.Enqueued.IsZero() {
		task.Enqueued = time.Now().UTC()
	}

	select {
	case <-ctx.Done():
		return fmt.Errorf("cleanup queue stopped: %w", ctx.Err())
	case q.tasks <- task:
		return nil
	}
}

func (q *CleanupQueue) worker() {
	defer q.wg.Done()
	for {
		select {
		case <-q.ctx.Done():
			return
		case task := <-q.tasks:
			if err := q.files.Delete(task.RelPath); err != nil {
				q.handleFailure(task, err)
			}
		}
	}
}

func (q *CleanupQueue) handleFailure(task CleanupTask, err error) {
	task.Attempt++
	if task.Attempt > q.maxRetries {
		q.logger.Sugar().Errorw("file cleanup exceeded retries",
			"path", task.RelPath, "application_id", task.ApplicationID, "error", err)
		return
	}
	q.logger.Sugar().Warnw("file cleanup failed, retrying",
		"path", task.RelPath, "attempt", task.Attempt, "error", err)

	go func(t CleanupTask) {
		timer := time.NewTimer(q.retryDelay)
		defer timer.Stop()
		select {
		case <-q.ctx.Done():
			return
		case <-timer.C:
			if err := q.Enqueue(t); err != nil {
				q.logger.Sugar().Errorw("failed to requeue file cleanup", "path", t.RelPath, "error", err)
			}
		}
	}(task)
}
