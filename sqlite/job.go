package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/fwojciec/siterag"
	"github.com/google/uuid"
	"github.com/ncruces/go-sqlite3"
)

// Compile-time interface verification.
var _ siterag.JobService = (*JobService)(nil)

// JobService implements siterag.JobService using SQLite.
type JobService struct {
	db *DB
}

// NewJobService creates a new JobService.
func NewJobService(db *DB) *JobService {
	return &JobService{db: db}
}

const jobColumns = `id, start_url, seed_urls, query, strategy, max_depth, max_pages, concurrency,
	status, stats, error, created_at, started_at, finished_at`

// CreateJob creates a new job in the pending state. A job without an ID is
// assigned a random one. Returns ECONFLICT if the ID is taken.
func (s *JobService) CreateJob(ctx context.Context, job *siterag.Job) error {
	if err := job.Validate(); err != nil {
		return err
	}
	if job.ID == "" {
		job.ID = uuid.New().String()
	}
	if err := siterag.ValidateNamespace(job.ID, false); err != nil {
		return err
	}
	job.Status = siterag.JobPending
	if job.CreatedAt.IsZero() {
		job.CreatedAt = time.Now().UTC()
	}

	seeds, err := marshalJSON(job.SeedURLs, "seed_urls")
	if err != nil {
		return err
	}
	stats, err := marshalJSON(job.Stats, "stats")
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO jobs (`+jobColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, job.ID, job.StartURL, seeds, job.Query, string(job.Strategy), job.MaxDepth, job.MaxPages, job.Concurrency,
		string(job.Status), stats, job.Error, formatTime(job.CreatedAt), formatTime(job.StartedAt), formatTime(job.FinishedAt))
	if errors.Is(err, sqlite3.CONSTRAINT) {
		return siterag.Errorf(siterag.ECONFLICT, "job %q already exists", job.ID)
	}
	return err
}

// FindJobByID retrieves a job by ID.
func (s *JobService) FindJobByID(ctx context.Context, id string) (*siterag.Job, error) {
	job, err := scanJob(s.db.QueryRowContext(ctx, `SELECT `+jobColumns+` FROM jobs WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, siterag.Errorf(siterag.ENOTFOUND, "job not found")
	}
	return job, err
}

// FindJobs retrieves jobs matching the filter, newest first.
func (s *JobService) FindJobs(ctx context.Context, filter siterag.JobFilter) ([]*siterag.Job, error) {
	var query strings.Builder
	var args []any

	query.WriteString(`SELECT ` + jobColumns + ` FROM jobs WHERE 1=1`)

	if filter.ID != nil {
		query.WriteString(" AND id = ?")
		args = append(args, *filter.ID)
	}
	if filter.Status != nil {
		query.WriteString(" AND status = ?")
		args = append(args, string(*filter.Status))
	}

	query.WriteString(" ORDER BY created_at DESC, rowid DESC")
	appendPagination(&query, &args, filter.Limit, filter.Offset)

	rows, err := s.db.QueryContext(ctx, query.String(), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var jobs []*siterag.Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

// UpdateJob updates an existing job.
func (s *JobService) UpdateJob(ctx context.Context, id string, upd siterag.JobUpdate) (*siterag.Job, error) {
	job, err := s.FindJobByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if upd.Status != nil {
		job.Status = *upd.Status
	}
	if upd.Stats != nil {
		job.Stats = *upd.Stats
	}
	if upd.Error != nil {
		job.Error = *upd.Error
	}
	if upd.StartedAt != nil {
		job.StartedAt = *upd.StartedAt
	}
	if upd.FinishedAt != nil {
		job.FinishedAt = *upd.FinishedAt
	}

	stats, err := marshalJSON(job.Stats, "stats")
	if err != nil {
		return nil, err
	}

	_, err = s.db.ExecContext(ctx, `
		UPDATE jobs
		SET status = ?, stats = ?, error = ?, started_at = ?, finished_at = ?
		WHERE id = ?
	`, string(job.Status), stats, job.Error, formatTime(job.StartedAt), formatTime(job.FinishedAt), id)
	if err != nil {
		return nil, err
	}

	return job, nil
}

// scanner is implemented by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanJob(row scanner) (*siterag.Job, error) {
	var job siterag.Job
	var seeds, stats, createdAt, startedAt, finishedAt string

	if err := row.Scan(&job.ID, &job.StartURL, &seeds, &job.Query, &job.Strategy, &job.MaxDepth,
		&job.MaxPages, &job.Concurrency, &job.Status, &stats, &job.Error,
		&createdAt, &startedAt, &finishedAt); err != nil {
		return nil, err
	}

	if err := unmarshalJSON(seeds, &job.SeedURLs, "seed_urls"); err != nil {
		return nil, err
	}
	if err := unmarshalJSON(stats, &job.Stats, "stats"); err != nil {
		return nil, err
	}

	var err error
	if job.CreatedAt, err = parseRFC3339(createdAt, "created_at"); err != nil {
		return nil, err
	}
	if job.StartedAt, err = parseOptionalTime(startedAt, "started_at"); err != nil {
		return nil, err
	}
	if job.FinishedAt, err = parseOptionalTime(finishedAt, "finished_at"); err != nil {
		return nil, err
	}
	return &job, nil
}
