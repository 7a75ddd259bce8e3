package jobqueue

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJobStatusTransitions(t *testing.T) {
	job := &Job{
		ID:         "test-job",
		Type:       JobTypeNotification,
		Status:     JobStatusPending,
		MaxRetries: 2,
	}

	job.MarkAsProcessing()
	assert.Equal(t, JobStatusProcessing, job.Status)
	require.NotNil(t, job.ProcessedAt)
	assert.WithinDuration(t, time.Now(), *job.ProcessedAt, time.Second)

	job.MarkAsCompleted()
	assert.Equal(t, JobStatusCompleted, job.Status)
	require.NotNil(t, job.CompletedAt)
}

func TestJobRetryAccounting(t *testing.T) {
	job := &Job{ID: "retry-job", Type: JobTypeNotification, MaxRetries: 2}

	job.MarkAsFailed("smtp unreachable")
	assert.Equal(t, JobStatusFailed, job.Status)
	assert.Equal(t, "smtp unreachable", job.ErrorMsg)
	assert.Equal(t, 1, job.RetryCount)
	assert.True(t, job.IsRetryable())

	job.MarkAsFailed("smtp unreachable")
	job.MarkAsFailed("smtp unreachable")
	assert.Equal(t, 3, job.RetryCount)
	assert.False(t, job.IsRetryable())
}

func TestNotificationPayloadRoundTrip(t *testing.T) {
	payload := NotificationJobPayload{
		Kind:  NotificationAccountActivation,
		Email: "importer@example.com",
		Token: "abc123",
	}

	restored, err := NotificationJobPayloadFromMap(payload.ToMap())
	require.NoError(t, err)
	assert.Equal(t, NotificationAccountActivation, restored.Kind)
	assert.Equal(t, "importer@example.com", restored.Email)
	assert.Equal(t, "abc123", restored.Token)
	assert.Empty(t, restored.ServiceType)
}
