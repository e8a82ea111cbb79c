// Package datasource abstracts where input bytes come from. CSV inputs are
// local paths or http(s) URLs; Resolve picks the implementation.
package datasource

import (
	"context"
	"io"
	"net/url"
	"path"
	"path/filepath"
	"strings"

	"starload/internal/datasource/file"
	"starload/internal/datasource/httpds"
)

// Source opens a stream of input bytes.
type Source interface {
	Open(ctx context.Context) (io.ReadCloser, error)
}

// IsURL reports whether loc is an http or https URL.
func IsURL(loc string) bool {
	l := strings.ToLower(loc)
	return strings.HasPrefix(l, "http://") || strings.HasPrefix(l, "https://")
}

// Resolve returns the Source for loc. client is used for URLs and may be nil.
func Resolve(loc string, client *httpds.Client) Source {
	if IsURL(loc) {
		return httpds.NewRemote(client, loc)
	}
	return file.NewLocal(loc)
}

// Join places name under base, which is a directory or a URL prefix.
// Absolute paths and URLs in name are returned unchanged.
func Join(base, name string) string {
	if base == "" || IsURL(name) || filepath.IsAbs(name) {
		return name
	}
	if IsURL(base) {
		u, err := url.Parse(base)
		if err != nil {
			return strings.TrimRight(base, "/") + "/" + name
		}
		u.Path = path.Join("/", u.Path, name)
		return u.String()
	}
	return filepath.Join(base, name)
}
