package queue

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"career-report-workers/internal/common/config"
	"career-report-workers/internal/common/errors"
	"career-report-workers/internal/common/logger"
	"career-report-workers/internal/common/metrics"
	"career-report-workers/internal/common/observability"
)

const jobType = "career-report"

// Generator runs the full pipeline for one report.
type Generator interface {
	GenerateReport(ctx context.Context, reportID string) error
}

// Notifier is told about completed reports. May be nil when notifications
// are disabled.
type Notifier interface {
	ReportCompleted(ctx context.Context, reportID string) error
}

// Consumer pops jobs off the Redis list and drives the generator. One
// report is never processed by two workers at once because each job is a
// single list element.
type Consumer struct {
	rdb       *redis.Client
	cfg       config.QueueConfig
	generator Generator
	notifier  Notifier
	errs      *errors.ErrorHandler
	obs       *observability.Observability
	logger    logger.Logger

	// sleep is swapped for a recorder in tests
	sleep func(ctx context.Context, d time.Duration) error
}

func NewConsumer(
	rdb *redis.Client,
	cfg config.QueueConfig,
	generator Generator,
	notifier Notifier,
	errs *errors.ErrorHandler,
	obs *observability.Observability,
	log logger.Logger,
) *Consumer {
	return &Consumer{
		rdb:       rdb,
		cfg:       cfg,
		generator: generator,
		notifier:  notifier,
		errs:      errs,
		obs:       obs,
		logger:    log.WithFields(map[string]interface{}{"component": "queue-consumer"}),
		sleep:     sleepContext,
	}
}

// Run blocks popping jobs until ctx is cancelled. With concurrency > 1 it
// runs that many independent pop loops; a job in flight finishes before
// its loop exits.
func (c *Consumer) Run(ctx context.Context) error {
	workers := c.cfg.Concurrency
	if workers < 1 {
		workers = 1
	}

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			c.loop(ctx, worker)
		}(i)
	}
	wg.Wait()

	c.logger.Info("consumer drained", map[string]interface{}{"queue": c.cfg.Name})
	return nil
}

func (c *Consumer) loop(ctx context.Context, worker int) {
	pollTimeout := time.Duration(c.cfg.PollIntervalMs) * time.Millisecond
	if pollTimeout <= 0 {
		pollTimeout = time.Second
	}

	for {
		if ctx.Err() != nil {
			return
		}

		res, err := c.rdb.BRPop(ctx, pollTimeout, c.cfg.Name).Result()
		if err == redis.Nil {
			continue
		}
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			c.logger.Error("queue pop failed", map[string]interface{}{"error": err.Error()})
			_ = c.sleep(ctx, pollTimeout)
			continue
		}

		var job Job
		if err := json.Unmarshal([]byte(res[1]), &job); err != nil {
			c.logger.Error("dropping malformed job payload", map[string]interface{}{"payload": res[1]})
			continue
		}

		c.process(ctx, &job, worker)
	}
}

func (c *Consumer) process(ctx context.Context, job *Job, worker int) {
	log := c.logger.WithFields(map[string]interface{}{
		"jobId":    job.ID,
		"reportId": job.ReportID,
		"worker":   worker,
	})
	log.Info("processing job", map[string]interface{}{"attempt": job.Attempt})

	c.setJobStatus(ctx, job, "processing", "")
	metrics.ReportJobsActive.Inc()
	defer metrics.ReportJobsActive.Dec()

	started := time.Now()
	err := c.generator.GenerateReport(ctx, job.ReportID)
	duration := time.Since(started)

	if err != nil {
		c.handleFailure(ctx, job, err, log)
		metrics.ReportJobDuration.WithLabelValues("failed").Observe(duration.Seconds())
		if c.obs != nil {
			c.obs.RecordReportProcessed(ctx, "failed")
			c.obs.RecordReportDuration(ctx, duration, "failed")
		}
		return
	}

	c.setJobStatus(ctx, job, "completed", "")
	metrics.ReportJobsCompleted.WithLabelValues("completed").Inc()
	metrics.ReportJobDuration.WithLabelValues("completed").Observe(duration.Seconds())
	if c.obs != nil {
		c.obs.RecordReportProcessed(ctx, "completed")
		c.obs.RecordReportDuration(ctx, duration, "completed")
	}
	log.Info("job completed", map[string]interface{}{"durationMs": duration.Milliseconds()})

	if c.notifier != nil {
		if err := c.notifier.ReportCompleted(ctx, job.ReportID); err != nil {
			// the report itself succeeded, a lost email is not a job failure
			log.Warn("completion notification failed", map[string]interface{}{"error": err.Error()})
		}
	}
}

func (c *Consumer) handleFailure(ctx context.Context, job *Job, err error, log logger.Logger) {
	decision := c.errs.HandleJobError(job.ID, jobType, job.Attempt, err)
	metrics.ReportJobsFailed.WithLabelValues(string(decision.Error.Code)).Inc()

	if decision.Retry {
		job.Attempt++
		c.setJobStatus(ctx, job, "retrying", string(decision.Error.Code))
		if err := c.sleep(ctx, decision.Delay); err != nil {
			// shutting down, push back unretried so the next worker gets it
			c.requeue(context.Background(), job, c.cfg.Name)
			return
		}
		c.requeue(ctx, job, c.cfg.Name)
		return
	}

	c.setJobStatus(ctx, job, "failed", string(decision.Error.Code))
	c.requeue(ctx, job, c.cfg.DeadLetterName)
	log.Error("job dead-lettered", map[string]interface{}{
		"errorCode": string(decision.Error.Code),
		"attempt":   job.Attempt,
	})
}

func (c *Consumer) requeue(ctx context.Context, job *Job, queueName string) {
	payload, err := json.Marshal(job)
	if err != nil {
		c.logger.Error("requeue encode failed", map[string]interface{}{"jobId": job.ID})
		return
	}
	if err := c.rdb.LPush(ctx, queueName, payload).Err(); err != nil {
		c.logger.Error("requeue push failed", map[string]interface{}{
			"jobId": job.ID,
			"queue": queueName,
			"error": err.Error(),
		})
	}
}

func (c *Consumer) setJobStatus(ctx context.Context, job *Job, status, errorCode string) {
	fields := map[string]interface{}{
		"status":    status,
		"updatedAt": time.Now().UTC().Format(time.RFC3339),
	}
	if errorCode != "" {
		fields["errorCode"] = errorCode
	}
	key := jobStatusKey(c.cfg.Name, job.ID)
	c.rdb.HSet(ctx, key, fields)
	c.rdb.Expire(ctx, key, statusTTL)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
