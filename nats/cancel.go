package nats

import (
	"context"
	"log/slog"
	"time"

	"github.com/fwojciec/siterag"
	"github.com/nats-io/nats.go"
)

// Replies sent to cancel requests.
const (
	ReplyCancelled  = "cancelled"
	ReplyNotRunning = "not running"
)

// CancelFunc stops the job with the given ID and reports whether it was
// running. crawl.Controller.Cancel satisfies it.
type CancelFunc func(jobID string) bool

// CancelListener stops jobs when a message arrives on their cancel subject.
type CancelListener struct {
	conn   *nats.Conn
	cancel CancelFunc
	logger *slog.Logger
	sub    *nats.Subscription
}

// NewCancelListener creates a new CancelListener.
func NewCancelListener(conn *nats.Conn, cancel CancelFunc, logger *slog.Logger) *CancelListener {
	return &CancelListener{conn: conn, cancel: cancel, logger: logger}
}

// Start subscribes to the cancel subjects of all jobs.
func (l *CancelListener) Start() error {
	sub, err := l.conn.Subscribe(CancelWildcard, l.handle)
	if err != nil {
		return siterag.Errorf(siterag.EUNAVAILABLE, "subscribe %s: %v", CancelWildcard, err)
	}
	l.sub = sub
	return l.conn.Flush()
}

// Close unsubscribes.
func (l *CancelListener) Close() error {
	if l.sub == nil {
		return nil
	}
	return l.sub.Unsubscribe()
}

func (l *CancelListener) handle(msg *nats.Msg) {
	id, ok := jobIDFromSubject(msg.Subject)
	if !ok {
		return
	}
	reply := ReplyNotRunning
	if l.cancel(id) {
		reply = ReplyCancelled
	}
	l.logger.Info("cancel request", "job", id, "result", reply)
	if msg.Reply != "" {
		if err := msg.Respond([]byte(reply)); err != nil {
			l.logger.Warn("reply to cancel request", "job", id, "err", err)
		}
	}
}

// RequestCancel asks whichever process runs jobID to stop it. It reports
// whether the job was running there. Returns EUNAVAILABLE when no listener
// answers before ctx is done.
func RequestCancel(ctx context.Context, conn *nats.Conn, jobID string) (bool, error) {
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
	}
	msg, err := conn.RequestWithContext(ctx, CancelSubject(jobID), nil)
	if err != nil {
		return false, siterag.Errorf(siterag.EUNAVAILABLE, "cancel job %s: %v", jobID, err)
	}
	return string(msg.Data) == ReplyCancelled, nil
}
