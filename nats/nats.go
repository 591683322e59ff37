// Package nats publishes crawl progress and document links to NATS subjects
// and accepts job cancellation requests over NATS.
//
// Subjects:
//
//	siterag.jobs.<id>.progress   one ProgressEvent per processed URL
//	siterag.jobs.<id>.completed  the job's Completion
//	siterag.jobs.<id>.cancel     request to stop the job
//	siterag.documents            DocumentLinks found during crawls
package nats

import (
	"strings"

	"github.com/fwojciec/siterag"
	"github.com/nats-io/nats.go"
)

// Subject names.
const (
	JobsPrefix       = "siterag.jobs"
	DocumentsSubject = "siterag.documents"
	CancelWildcard   = JobsPrefix + ".*.cancel"
)

// ProgressSubject returns the subject progress events of jobID go to.
func ProgressSubject(jobID string) string {
	return JobsPrefix + "." + jobID + ".progress"
}

// CompletedSubject returns the subject the completion of jobID goes to.
func CompletedSubject(jobID string) string {
	return JobsPrefix + "." + jobID + ".completed"
}

// CancelSubject returns the subject that cancels jobID.
func CancelSubject(jobID string) string {
	return JobsPrefix + "." + jobID + ".cancel"
}

// jobIDFromSubject extracts the job ID from a siterag.jobs.<id>.<event>
// subject.
func jobIDFromSubject(subject string) (string, bool) {
	rest, ok := strings.CutPrefix(subject, JobsPrefix+".")
	if !ok {
		return "", false
	}
	id, _, ok := strings.Cut(rest, ".")
	return id, ok && id != ""
}

// Connect connects to a NATS server. Connection failures return
// EUNAVAILABLE.
func Connect(url string, opts ...nats.Option) (*nats.Conn, error) {
	opts = append([]nats.Option{nats.Name("siterag")}, opts...)
	conn, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, siterag.Errorf(siterag.EUNAVAILABLE, "connect to NATS at %s: %v", url, err)
	}
	return conn, nil
}
