package siterag_test

import (
	"testing"

	"github.com/fwojciec/siterag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompileURLFilter(t *testing.T) {
	t.Parallel()

	t.Run("returns nil filter for no patterns", func(t *testing.T) {
		t.Parallel()

		f, err := siterag.CompileURLFilter(nil, nil)

		require.NoError(t, err)
		assert.Nil(t, f)
		assert.True(t, f.Match("https://example.com/anything"))
	})

	t.Run("applies include then exclude", func(t *testing.T) {
		t.Parallel()

		f, err := siterag.CompileURLFilter([]string{`/docs/`}, []string{`/docs/legacy/`})
		require.NoError(t, err)

		assert.True(t, f.Match("https://example.com/docs/intro"))
		assert.False(t, f.Match("https://example.com/blog/post"))
		assert.False(t, f.Match("https://example.com/docs/legacy/old"))
	})

	t.Run("rejects invalid pattern", func(t *testing.T) {
		t.Parallel()

		_, err := siterag.CompileURLFilter([]string{"("}, nil)

		assert.Equal(t, siterag.EINVALID, siterag.ErrorCode(err))
	})
}
