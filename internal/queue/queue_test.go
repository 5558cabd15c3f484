package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redismock/v9"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"career-report-workers/internal/common/config"
	"career-report-workers/internal/common/errors"
	"career-report-workers/internal/common/logger"
)

func testQueueConfig() config.QueueConfig {
	return config.QueueConfig{
		Name:           "career-reports",
		DeadLetterName: "career-reports:dead",
		PollIntervalMs: 50,
		Concurrency:    1,
	}
}

func TestEnqueue(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	p := NewProducer(rdb, testQueueConfig(), logger.NewTestLogger(t))

	jobID, err := p.Enqueue(context.Background(), "rep-1")
	require.NoError(t, err)
	require.NotEmpty(t, jobID)

	payloads, err := mr.List("career-reports")
	require.NoError(t, err)
	require.Len(t, payloads, 1)

	var job Job
	require.NoError(t, json.Unmarshal([]byte(payloads[0]), &job))
	assert.Equal(t, jobID, job.ID)
	assert.Equal(t, "rep-1", job.ReportID)
	assert.Zero(t, job.Attempt)

	statusKey := fmt.Sprintf("jobs:career-reports:%s", jobID)
	assert.Equal(t, "queued", mr.HGet(statusKey, "status"))
	assert.Equal(t, "rep-1", mr.HGet(statusKey, "reportId"))
	assert.Greater(t, mr.TTL(statusKey).Hours(), 1.0)
}

func TestEnqueue_PushFailure(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	mock.CustomMatch(func(expected, actual []interface{}) error {
		// the payload embeds a fresh uuid, match on command and key only
		if fmt.Sprint(expected[0]) != fmt.Sprint(actual[0]) || fmt.Sprint(expected[1]) != fmt.Sprint(actual[1]) {
			return fmt.Errorf("expected %v, got %v", expected, actual)
		}
		return nil
	}).ExpectLPush("career-reports", "ignored").SetErr(fmt.Errorf("connection refused"))

	p := NewProducer(rdb, testQueueConfig(), logger.NewNoOpLogger())

	_, err := p.Enqueue(context.Background(), "rep-1")
	require.Error(t, err)

	var stdErr *errors.StandardError
	require.ErrorAs(t, err, &stdErr)
	assert.Equal(t, errors.ErrCodeQueuePublishFailed, stdErr.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}
