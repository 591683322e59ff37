package nats

import (
	"context"
	"encoding/json"

	"github.com/fwojciec/siterag"
	"github.com/nats-io/nats.go"
)

var _ siterag.DocumentSink = (*DocumentSink)(nil)

// DocumentSink publishes document links as JSON to DocumentsSubject for a
// separate document-processing service.
type DocumentSink struct {
	conn *nats.Conn
}

// NewDocumentSink creates a new DocumentSink.
func NewDocumentSink(conn *nats.Conn) *DocumentSink {
	return &DocumentSink{conn: conn}
}

// HandleDocument publishes link. Returns EUNAVAILABLE if the connection is
// closed.
func (s *DocumentSink) HandleDocument(_ context.Context, link siterag.DocumentLink) error {
	data, err := json.Marshal(link)
	if err != nil {
		return err
	}
	if err := s.conn.Publish(DocumentsSubject, data); err != nil {
		return siterag.Errorf(siterag.EUNAVAILABLE, "publish document link: %v", err)
	}
	return nil
}
