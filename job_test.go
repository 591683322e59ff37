package siterag_test

import (
	"testing"

	"github.com/fwojciec/siterag"
	"github.com/stretchr/testify/assert"
)

func validJob() *siterag.Job {
	return &siterag.Job{
		ID:       "job-1",
		StartURL: "https://example.com",
		Strategy: siterag.StrategyLightweight,
		MaxDepth: 1,
		MaxPages: 10,
	}
}

func TestJob_Validate(t *testing.T) {
	t.Parallel()

	t.Run("accepts valid job", func(t *testing.T) {
		t.Parallel()

		assert.NoError(t, validJob().Validate())
	})

	t.Run("accepts seed URLs without start URL", func(t *testing.T) {
		t.Parallel()

		job := validJob()
		job.StartURL = ""
		job.SeedURLs = []string{"https://a.example.com", "https://b.example.com"}

		assert.NoError(t, job.Validate())
		assert.Len(t, job.Seeds(), 2)
	})

	tests := []struct {
		name   string
		mutate func(*siterag.Job)
		msg    string
	}{
		{"missing URL", func(j *siterag.Job) { j.StartURL = "" }, "start URL"},
		{"non-http URL", func(j *siterag.Job) { j.StartURL = "ftp://example.com" }, "invalid job URL"},
		{"unknown strategy", func(j *siterag.Job) { j.Strategy = "teleport" }, "unknown strategy"},
		{"zero depth", func(j *siterag.Job) { j.MaxDepth = 0 }, "max depth"},
		{"zero pages", func(j *siterag.Job) { j.MaxPages = 0 }, "max pages"},
		{"negative concurrency", func(j *siterag.Job) { j.Concurrency = -1 }, "concurrency"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			job := validJob()
			tt.mutate(job)
			err := job.Validate()

			assert.Equal(t, siterag.EINVALID, siterag.ErrorCode(err))
			assert.Contains(t, siterag.ErrorMessage(err), tt.msg)
		})
	}
}

func TestJobStatus_Terminal(t *testing.T) {
	t.Parallel()

	assert.False(t, siterag.JobPending.Terminal())
	assert.False(t, siterag.JobRunning.Terminal())
	assert.True(t, siterag.JobCompleted.Terminal())
	assert.True(t, siterag.JobPending.Valid())
	assert.False(t, siterag.JobStatus("paused").Valid())
	assert.True(t, siterag.JobFailed.Terminal())
	assert.True(t, siterag.JobCancelled.Terminal())
}
