package notify

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/pusat-bantuan/helpcenter-auth/pkg/mail"
)

// Notification is a queued, non-critical security mail. Only notifications
// whose loss is acceptable go through this queue; the reset-link mail is
// sent synchronously by the reset flow.
type Notification struct {
	Email    string
	FullName string
	attempt  int
}

// QueueConfig tunes the worker pool.
type QueueConfig struct {
	Workers    int
	BufferSize int
	MaxRetries int
	RetryDelay time.Duration
}

// Queue dispatches password-changed notifications in the background so the
// reset response never waits on a slow relay.
type Queue struct {
	mailer     mail.Mailer
	logger     *zap.Logger
	workers    int
	maxRetries int
	retryDelay time.Duration

	jobs    chan Notification
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	mu      sync.Mutex
	started bool
}

// NewQueue builds a notification queue backed by the given mailer.
func NewQueue(mailer mail.Mailer, logger *zap.Logger, cfg QueueConfig) *Queue {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = cfg.Workers * 8
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Queue{
		mailer:     mailer,
		logger:     logger,
		workers:    cfg.Workers,
		maxRetries: cfg.MaxRetries,
		retryDelay: cfg.RetryDelay,
		jobs:       make(chan Notification, cfg.BufferSize),
	}
}

// Start begins worker consumption. Safe to call once.
func (q *Queue) Start(ctx context.Context) {
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
	q.logger.Sugar().Infow("notification queue started", "workers", q.workers)
}

// Stop cancels workers and waits for them to exit.
func (q *Queue) Stop() {
	q.mu.Lock()
	if !q.started {
		q.mu.Unlock()
		return
	}
	q.cancel()
	q.mu.Unlock()
	q.wg.Wait()
	q.logger.Sugar().Infow("notification queue stopped")
}

// EnqueuePasswordChanged queues a password-changed notice. Best effort: a
// full buffer drops the notification rather than blocking the caller.
func (q *Queue) EnqueuePasswordChanged(email, fullName string) {
	q.mu.Lock()
	started := q.started
	q.mu.Unlock()
	if !started {
		return
	}

	select {
	case q.jobs <- Notification{Email: email, FullName: fullName}:
	default:
		q.logger.Warn("notification queue full, dropping password-changed notice", zap.String("to", email))
	}
}

func (q *Queue) worker() {
	defer q.wg.Done()
	for {
		select {
		case <-q.ctx.Done():
			return
		case n := <-q.jobs:
			if err := q.mailer.SendPasswordChanged(q.ctx, n.Email, n.FullName); err != nil {
				q.retry(n, err)
			}
		}
	}
}

func (q *Queue) retry(n Notification, err error) {
	n.attempt++
	if n.attempt > q.maxRetries {
		q.logger.Sugar().Errorw("notification exceeded retries", "to", n.Email, "error", err)
		return
	}
	q.logger.Sugar().Warnw("notification failed, retrying", "to", n.Email, "attempt", n.attempt, "error", err)

	go func(n Notification) {
		timer := time.NewTimer(q.retryDelay)
		defer timer.Stop()
		select {
		case <-q.ctx.Done():
		case <-timer.C:
			select {
			case q.jobs <- n:
			case <-q.ctx.Done():
			}
		}
	}(n)
}
