package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/thesis-pipeline-api/internal/models"
	"github.com/noah-isme/thesis-pipeline-api/pkg/jobs"
)

type flakyAuditRepo struct {
	mu       sync.Mutex
	failures int
	written  []string
}

func (r *flakyAuditRepo) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failures > 0 {
		r.failures--
		return errors.New("deadlock detected")
	}
	r.written = append(r.written, log.Action)
	return nil
}

func TestAuditDispatcherFlushesOnStop(t *testing.T) {
	repo := &flakyAuditRepo{failures: 1}
	dispatcher := NewAuditDispatcher(repo, jobs.QueueConfig{Workers: 1, MaxRetries: 2, RetryDelay: time.Millisecond})
	dispatcher.Start(context.Background())

	require.NoError(t, dispatcher.CreateAuditLog(context.Background(), &models.AuditLog{Action: models.AuditActionSubmissionCreate}))
	require.NoError(t, dispatcher.CreateAuditLog(context.Background(), &models.AuditLog{Action: models.AuditActionSubmissionReview}))
	dispatcher.Stop()

	assert.ElementsMatch(t, []string{models.AuditActionSubmissionCreate, models.AuditActionSubmissionReview}, repo.written)
}

func TestAuditDispatcherWritesInlineWhenStopped(t *testing.T) {
	repo := &flakyAuditRepo{}
	dispatcher := NewAuditDispatcher(repo, jobs.QueueConfig{})

	require.NoError(t, dispatcher.CreateAuditLog(context.Background(), &models.AuditLog{Action: models.AuditActionCommitteeAssign}))
	assert.Equal(t, []string{models.AuditActionCommitteeAssign}, repo.written)
}
