package siterag

import (
	"net/url"
	"path"
	"strings"
)

// documentExtensions lists file extensions treated as documents rather than
// crawlable pages.
var documentExtensions = map[string]bool{
	".pdf":  true,
	".doc":  true,
	".docx": true,
	".ppt":  true,
	".pptx": true,
	".xls":  true,
	".xlsx": true,
	".odt":  true,
	".rtf":  true,
	".epub": true,
}

// NormalizeURL returns the canonical form of an absolute HTTP(S) URL used for
// deduplication: lowercase scheme and host, no fragment, no default port and
// no trailing slash except on the root path.
// Returns EINVALID for relative or non-HTTP(S) URLs.
func NormalizeURL(rawURL string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return "", Errorf(EINVALID, "invalid URL %q", rawURL)
	}
	u.Scheme = strings.ToLower(u.Scheme)
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", Errorf(EINVALID, "unsupported URL scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return "", Errorf(EINVALID, "URL %q has no host", rawURL)
	}

	u.Host = strings.ToLower(u.Host)
	if port := u.Port(); (u.Scheme == "http" && port == "80") || (u.Scheme == "https" && port == "443") {
		u.Host = u.Hostname()
	}
	u.Fragment = ""
	u.RawFragment = ""
	u.User = nil

	if u.Path == "" {
		u.Path = "/"
		u.RawPath = ""
	} else if u.Path != "/" && strings.HasSuffix(u.Path, "/") {
		u.Path = strings.TrimRight(u.Path, "/")
		if u.Path == "" {
			u.Path = "/"
		}
		u.RawPath = ""
	}
	return u.String(), nil
}

// Hostname returns the lowercase host of rawURL without port, or the empty
// string if rawURL cannot be parsed.
func Hostname(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return strings.ToLower(u.Hostname())
}

// IsDocumentURL reports whether rawURL points at a document file such as a
// PDF instead of an HTML page.
func IsDocumentURL(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	p := strings.ToLower(u.Path)
	if documentExtensions[path.Ext(p)] {
		return true
	}
	if strings.Contains(p, "/pdf/") {
		return true
	}
	return strings.Contains(strings.ToLower(u.RawQuery), "=pdf")
}
