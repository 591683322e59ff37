package mock_test

import (
	"context"
	"testing"

	"github.com/fwojciec/siterag"
	"github.com/fwojciec/siterag/mock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPageService_SavePage(t *testing.T) {
	t.Parallel()

	t.Run("delegates to SavePageFn", func(t *testing.T) {
		t.Parallel()

		var calledWith *siterag.PageRecord
		svc := &mock.PageService{
			SavePageFn: func(_ context.Context, page *siterag.PageRecord) error {
				calledWith = page
				return nil
			},
		}

		page := &siterag.PageRecord{URL: "https://example.com/", Title: "Home"}

		err := svc.SavePage(context.Background(), page)

		require.NoError(t, err)
		assert.Same(t, page, calledWith)
	})
}

func TestProgressSink_NilFunctionsAreIgnored(t *testing.T) {
	t.Parallel()

	sink := &mock.ProgressSink{}

	assert.NotPanics(t, func() {
		sink.OnProgress(context.Background(), siterag.ProgressEvent{})
		sink.OnCompletion(context.Background(), siterag.Completion{})
	})
}
