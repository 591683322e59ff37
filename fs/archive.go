// Package fs provides a file-based archive of crawled pages.
package fs

import (
	"context"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/fwojciec/siterag"
)

// Ensure Archive implements siterag.PageArchive at compile time.
var _ siterag.PageArchive = (*Archive)(nil)

// Archive writes successfully crawled pages as markdown files with YAML
// frontmatter. Pages are saved to a temporary directory and moved into
// place on Commit, so a failed or cancelled crawl never replaces a
// previous archive.
type Archive struct {
	baseDir   string
	name      string
	converter siterag.Converter
}

// PageConverter is a Converter that can resolve links against the URL the
// HTML was fetched from. The archive prefers it when available.
type PageConverter interface {
	ConvertPage(html, pageURL string) (string, error)
}

// NewArchive creates a new Archive.
// Files are saved to baseDir/name.tmp and moved to baseDir/name on Commit.
// When converter is nil, or conversion fails, the page's plain text is
// written instead of Markdown.
func NewArchive(baseDir, name string, converter siterag.Converter) *Archive {
	return &Archive{
		baseDir:   baseDir,
		name:      name,
		converter: converter,
	}
}

func (a *Archive) tempDir() string {
	return filepath.Join(a.baseDir, a.name+".tmp")
}

func (a *Archive) finalDir() string {
	return filepath.Join(a.baseDir, a.name)
}

// SavePage writes page to the temporary directory. Failed pages are skipped.
func (a *Archive) SavePage(ctx context.Context, page *siterag.PageRecord) error {
	if page.Status != siterag.PageSuccess {
		return nil
	}

	relPath, err := URLToPath(page.URL)
	if err != nil {
		return err
	}
	fullPath := filepath.Join(a.tempDir(), relPath)
	if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		return err
	}

	return os.WriteFile(fullPath, []byte(FormatPage(page, a.body(page))), 0644)
}

func (a *Archive) body(page *siterag.PageRecord) string {
	if a.converter == nil || page.ContentHTML == "" {
		return page.Text
	}
	var md string
	var err error
	if pc, ok := a.converter.(PageConverter); ok {
		md, err = pc.ConvertPage(page.ContentHTML, page.URL)
	} else {
		md, err = a.converter.Convert(page.ContentHTML)
	}
	if err != nil || md == "" {
		return page.Text
	}
	return md
}

// Commit replaces the final directory with the pages saved so far.
func (a *Archive) Commit() error {
	if _, err := os.Stat(a.tempDir()); os.IsNotExist(err) {
		if err := os.MkdirAll(a.tempDir(), 0755); err != nil {
			return err
		}
	}
	if err := os.RemoveAll(a.finalDir()); err != nil {
		return err
	}
	return os.Rename(a.tempDir(), a.finalDir())
}

// Abort discards the pages saved so far.
func (a *Archive) Abort() error {
	return os.RemoveAll(a.tempDir())
}

// URLToPath converts a page URL to a relative file path under its host.
// Example: https://example.com/docs/api/users → example.com/docs/api/users.md
func URLToPath(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", siterag.Errorf(siterag.EINVALID, "invalid page URL %q", rawURL)
	}
	host := strings.ReplaceAll(u.Host, ":", "_")
	if host == "" {
		return "", siterag.Errorf(siterag.EINVALID, "page URL %q has no host", rawURL)
	}

	p := strings.TrimPrefix(filepath.Clean("/"+u.Path), "/")
	switch {
	case p == "" || p == ".":
		p = "index.md"
	case strings.HasSuffix(u.Path, "/"):
		p = filepath.Join(p, "index.md")
	default:
		p += ".md"
	}
	return filepath.Join(host, p), nil
}

// FormatPage formats a page body with YAML frontmatter.
func FormatPage(page *siterag.PageRecord, body string) string {
	var b strings.Builder
	b.WriteString("---\n")
	b.WriteString("source: ")
	b.WriteString(page.URL)
	b.WriteString("\ntitle: ")
	b.WriteString(yamlString(page.Title))
	if page.Description != "" {
		b.WriteString("\ndescription: ")
		b.WriteString(yamlString(page.Description))
	}
	b.WriteString("\ncrawled: ")
	b.WriteString(page.FetchedAt.Format("2006-01-02"))
	b.WriteString("\n---\n\n")
	b.WriteString(body)
	b.WriteString("\n")
	return b.String()
}

// yamlString quotes s when it contains characters YAML would interpret.
func yamlString(s string) string {
	if s == "" || strings.ContainsAny(s, ":#\"'\n[]{}&*!|>%@`") {
		return `"` + strings.NewReplacer(`\`, `\\`, `"`, `\"`, "\n", " ").Replace(s) + `"`
	}
	return s
}
