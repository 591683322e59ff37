package nats_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/fwojciec/siterag"
	ragnats "github.com/fwojciec/siterag/nats"
	"github.com/nats-io/nats-server/v2/server"
	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

// runServer starts an embedded NATS server on a random port and returns a
// connection to it.
func runServer(t *testing.T) *nats.Conn {
	t.Helper()
	ns, err := server.NewServer(&server.Options{Port: -1, NoLog: true, NoSigs: true})
	require.NoError(t, err)
	go ns.Start()
	require.True(t, ns.ReadyForConnections(5*time.Second), "server not ready")
	t.Cleanup(ns.Shutdown)

	conn, err := ragnats.Connect(ns.ClientURL())
	require.NoError(t, err)
	t.Cleanup(conn.Close)
	return conn
}

func receive(t *testing.T, ch <-chan *nats.Msg) *nats.Msg {
	t.Helper()
	select {
	case msg := <-ch:
		return msg
	case <-time.After(5 * time.Second):
		t.Fatal("no message received")
		return nil
	}
}

func TestSubjects(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "siterag.jobs.job-1.progress", ragnats.ProgressSubject("job-1"))
	assert.Equal(t, "siterag.jobs.job-1.completed", ragnats.CompletedSubject("job-1"))
	assert.Equal(t, "siterag.jobs.job-1.cancel", ragnats.CancelSubject("job-1"))
}

func TestProgressSink(t *testing.T) {
	t.Parallel()

	conn := runServer(t)
	ch := make(chan *nats.Msg, 4)
	sub, err := conn.ChanSubscribe("siterag.jobs.job-1.>", ch)
	require.NoError(t, err)
	defer sub.Unsubscribe()
	require.NoError(t, conn.Flush())

	sink := ragnats.NewProgressSink(conn, discard)
	ctx := context.Background()
	sink.OnProgress(ctx, siterag.ProgressEvent{JobID: "job-1", URL: "https://example.com/", Status: siterag.PageSuccess, Scraped: 1, Discovered: 3})
	sink.OnCompletion(ctx, siterag.Completion{JobID: "job-1", Status: siterag.JobCompleted, Stats: siterag.JobStats{Scraped: 1}})

	msg := receive(t, ch)
	assert.Equal(t, "siterag.jobs.job-1.progress", msg.Subject)
	var event siterag.ProgressEvent
	require.NoError(t, json.Unmarshal(msg.Data, &event))
	assert.Equal(t, "https://example.com/", event.URL)
	assert.Equal(t, 3, event.Discovered)

	msg = receive(t, ch)
	assert.Equal(t, "siterag.jobs.job-1.completed", msg.Subject)
	var completion siterag.Completion
	require.NoError(t, json.Unmarshal(msg.Data, &completion))
	assert.Equal(t, siterag.JobCompleted, completion.Status)
	assert.Equal(t, 1, completion.Stats.Scraped)
}

func TestDocumentSink(t *testing.T) {
	t.Parallel()

	t.Run("publishes links", func(t *testing.T) {
		t.Parallel()

		conn := runServer(t)
		ch := make(chan *nats.Msg, 1)
		sub, err := conn.ChanSubscribe(ragnats.DocumentsSubject, ch)
		require.NoError(t, err)
		defer sub.Unsubscribe()
		require.NoError(t, conn.Flush())

		link := siterag.DocumentLink{JobID: "job-1", URL: "https://example.com/a.pdf", SourceURL: "https://example.com/", Depth: 1}
		require.NoError(t, ragnats.NewDocumentSink(conn).HandleDocument(context.Background(), link))

		var got siterag.DocumentLink
		require.NoError(t, json.Unmarshal(receive(t, ch).Data, &got))
		assert.Equal(t, link, got)
	})

	t.Run("closed connection is unavailable", func(t *testing.T) {
		t.Parallel()

		conn := runServer(t)
		conn.Close()

		err := ragnats.NewDocumentSink(conn).HandleDocument(context.Background(), siterag.DocumentLink{JobID: "job-1", URL: "https://example.com/a.pdf"})

		assert.Equal(t, siterag.EUNAVAILABLE, siterag.ErrorCode(err))
	})
}

func TestCancelListener(t *testing.T) {
	t.Parallel()

	conn := runServer(t)
	var mu sync.Mutex
	var cancelled []string
	listener := ragnats.NewCancelListener(conn, func(id string) bool {
		mu.Lock()
		defer mu.Unlock()
		cancelled = append(cancelled, id)
		return id == "job-1"
	}, discard)
	require.NoError(t, listener.Start())
	defer listener.Close()

	ctx := context.Background()
	ok, err := ragnats.RequestCancel(ctx, conn, "job-1")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = ragnats.RequestCancel(ctx, conn, "job-2")
	require.NoError(t, err)
	assert.False(t, ok)

	mu.Lock()
	assert.Equal(t, []string{"job-1", "job-2"}, cancelled)
	mu.Unlock()
}

func TestRequestCancel_NoListener(t *testing.T) {
	t.Parallel()

	conn := runServer(t)
	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	_, err := ragnats.RequestCancel(ctx, conn, "job-1")

	assert.Equal(t, siterag.EUNAVAILABLE, siterag.ErrorCode(err))
}
