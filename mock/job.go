package mock

import (
	"context"

	"github.com/fwojciec/siterag"
)

var _ siterag.JobService = (*JobService)(nil)

// JobService is a mock implementation of siterag.JobService.
type JobService struct {
	CreateJobFn   func(ctx context.Context, job *siterag.Job) error
	FindJobByIDFn func(ctx context.Context, id string) (*siterag.Job, error)
	FindJobsFn    func(ctx context.Context, filter siterag.JobFilter) ([]*siterag.Job, error)
	UpdateJobFn   func(ctx context.Context, id string, upd siterag.JobUpdate) (*siterag.Job, error)
}

func (s *JobService) CreateJob(ctx context.Context, job *siterag.Job) error {
	return s.CreateJobFn(ctx, job)
}

func (s *JobService) FindJobByID(ctx context.Context, id string) (*siterag.Job, error) {
	return s.FindJobByIDFn(ctx, id)
}

func (s *JobService) FindJobs(ctx context.Context, filter siterag.JobFilter) ([]*siterag.Job, error) {
	return s.FindJobsFn(ctx, filter)
}

func (s *JobService) UpdateJob(ctx context.Context, id string, upd siterag.JobUpdate) (*siterag.Job, error) {
	return s.UpdateJobFn(ctx, id, upd)
}
