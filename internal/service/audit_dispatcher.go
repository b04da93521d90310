package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/thesis-pipeline-api/internal/models"
	"github.com/noah-isme/thesis-pipeline-api/pkg/jobs"
)

const auditWriteTimeout = 5 * time.Second

// AuditDispatcher moves audit inserts off the request path. When the queue is
// full or not running the row is written synchronously instead.
type AuditDispatcher struct {
	repo   auditLogger
	queue  *jobs.Queue
	logger *zap.Logger
}

// NewAuditDispatcher builds a dispatcher writing through repo.
func NewAuditDispatcher(repo auditLogger, cfg jobs.QueueConfig) *AuditDispatcher {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	d := &AuditDispatcher{repo: repo, logger: cfg.Logger}
	d.queue = jobs.NewQueue("audit", d.write, cfg)
	return d
}

// Start launches the workers.
func (d *AuditDispatcher) Start(ctx context.Context) {
	d.queue.Start(ctx)
}

// Stop flushes buffered audit rows.
func (d *AuditDispatcher) Stop() {
	d.queue.Stop()
}

// CreateAuditLog queues the entry for insertion.
func (d *AuditDispatcher) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	if log.CreatedAt.IsZero() {
		log.CreatedAt = time.Now().UTC()
	}
	err := d.queue.Enqueue(jobs.Job{ID: uuid.NewString(), Type: log.Action, Payload: log})
	if err == nil {
		return nil
	}
	d.logger.Debug("audit queue unavailable, writing inline", zap.String("action", log.Action), zap.Error(err))
	return d.repo.CreateAuditLog(ctx, log)
}

func (d *AuditDispatcher) write(ctx context.Context, job jobs.Job) error {
	entry, ok := job.Payload.(*models.AuditLog)
	if !ok {
		return fmt.Errorf("unexpected audit payload %T", job.Payload)
	}
	writeCtx, cancel := context.WithTimeout(ctx, auditWriteTimeout)
	defer cancel()
	return d.repo.CreateAuditLog(writeCtx, entry)
}
