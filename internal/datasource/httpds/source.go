package httpds

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
)

// Remote is a datasource.Source backed by an HTTP GET.
type Remote struct {
	client *Client
	url    string
}

// NewRemote binds url to client. A nil client gets NewClient(Config{}).
func NewRemote(client *Client, url string) *Remote {
	if client == nil {
		client = NewClient(Config{})
	}
	return &Remote{client: client, url: url}
}

// Open fetches the resource. 404 and 410 wrap os.ErrNotExist so callers
// treat a missing remote file like a missing local one.
func (r *Remote) Open(ctx context.Context) (io.ReadCloser, error) {
	resp, err := r.client.Get(ctx, r.url)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", r.url, err)
	}
	switch {
	case resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone:
		resp.Body.Close()
		return nil, fmt.Errorf("open %s: status %d: %w", r.url, resp.StatusCode, os.ErrNotExist)
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		resp.Body.Close()
		return nil, fmt.Errorf("open %s: unexpected status %d", r.url, resp.StatusCode)
	}
	return resp.Body, nil
}

// String returns the URL.
func (r *Remote) String() string { return r.url }
