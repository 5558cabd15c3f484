// Package queue is the boundary to the hosting job system: a Redis list
// carrying report generation jobs, plus per-job status hashes the admin
// surface reads.
package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"career-report-workers/internal/common/config"
	"career-report-workers/internal/common/errors"
	"career-report-workers/internal/common/logger"
)

// statusTTL keeps finished job status records around long enough for the
// admin screens without growing Redis unbounded.
const statusTTL = 7 * 24 * time.Hour

// Job is the queue envelope for one report generation.
type Job struct {
	ID         string    `json:"id"`
	ReportID   string    `json:"reportId"`
	Attempt    int       `json:"attempt"`
	EnqueuedAt time.Time `json:"enqueuedAt"`
}

// Producer enqueues report generation jobs.
type Producer struct {
	rdb    *redis.Client
	cfg    config.QueueConfig
	logger logger.Logger
}

func NewProducer(rdb *redis.Client, cfg config.QueueConfig, log logger.Logger) *Producer {
	return &Producer{
		rdb:    rdb,
		cfg:    cfg,
		logger: log.WithFields(map[string]interface{}{"component": "queue-producer"}),
	}
}

// Enqueue pushes a generation job for the report and records its status
// hash. Returns the job id.
func (p *Producer) Enqueue(ctx context.Context, reportID string) (string, error) {
	job := Job{
		ID:         uuid.New().String(),
		ReportID:   reportID,
		EnqueuedAt: time.Now().UTC(),
	}

	payload, err := json.Marshal(job)
	if err != nil {
		return "", errors.NewQueuePublishFailedError(err)
	}

	if err := p.rdb.LPush(ctx, p.cfg.Name, payload).Err(); err != nil {
		return "", errors.NewQueuePublishFailedError(err)
	}

	statusKey := jobStatusKey(p.cfg.Name, job.ID)
	p.rdb.HSet(ctx, statusKey, map[string]interface{}{
		"status":     "queued",
		"reportId":   reportID,
		"enqueuedAt": job.EnqueuedAt.Format(time.RFC3339),
	})
	p.rdb.Expire(ctx, statusKey, statusTTL)

	p.logger.Info("job enqueued", map[string]interface{}{
		"jobId":    job.ID,
		"reportId": reportID,
		"queue":    p.cfg.Name,
	})
	return job.ID, nil
}

func jobStatusKey(queueName, jobID string) string {
	return fmt.Sprintf("jobs:%s:%s", queueName, jobID)
}
