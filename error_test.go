package siterag_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/fwojciec/siterag"
	"github.com/stretchr/testify/assert"
)

func TestErrorf(t *testing.T) {
	t.Parallel()

	err := siterag.Errorf(siterag.ENOTFOUND, "job %q not found", "test")

	assert.Equal(t, siterag.ENOTFOUND, siterag.ErrorCode(err))
	assert.Equal(t, "job \"test\" not found", siterag.ErrorMessage(err))
}

func TestErrorCode_NilError(t *testing.T) {
	t.Parallel()

	assert.Empty(t, siterag.ErrorCode(nil))
}

func TestErrorMessage_NilError(t *testing.T) {
	t.Parallel()

	assert.Empty(t, siterag.ErrorMessage(nil))
}

func TestErrorCode_Wrapped(t *testing.T) {
	t.Parallel()

	err := fmt.Errorf("fetching page: %w", siterag.Errorf(siterag.ETRANSIENT, "timeout"))

	assert.Equal(t, siterag.ETRANSIENT, siterag.ErrorCode(err))
	assert.Equal(t, "timeout", siterag.ErrorMessage(err))
}

func TestErrorCode_PlainError(t *testing.T) {
	t.Parallel()

	err := errors.New("boom")

	assert.Equal(t, siterag.EINTERNAL, siterag.ErrorCode(err))
	assert.Equal(t, "Internal error.", siterag.ErrorMessage(err))
}

func TestIsRetryable(t *testing.T) {
	t.Parallel()

	assert.True(t, siterag.IsRetryable(siterag.Errorf(siterag.ETRANSIENT, "reset")))
	assert.False(t, siterag.IsRetryable(siterag.Errorf(siterag.EPERMANENT, "404")))
	assert.False(t, siterag.IsRetryable(errors.New("unknown")))
	assert.False(t, siterag.IsRetryable(nil))
}
