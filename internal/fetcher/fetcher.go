// Package fetcher retrieves holdings documents over HTTP(S), FTP, or
// from the local filesystem, and decodes them into tabular rows.
package fetcher

import (
	"bytes"
	"context"
	"io"
	"net/url"
	"os"
	"time"

	"github.com/rotisserie/eris"
)

// ErrEmptyResponse is returned when a fetch succeeds but the document
// body contains no data.
var ErrEmptyResponse = eris.New("fetcher: empty response")

// Fetcher downloads a document from a location.
type Fetcher interface {
	// Fetch retrieves the document and returns its body. One outbound
	// request per call; retry policy is the caller's concern.
	Fetch(ctx context.Context, location string) (io.ReadCloser, error)
}

// Options configures the dispatching client.
type Options struct {
	UserAgent string
	Timeout   time.Duration
}

// Client dispatches fetches by location scheme: http(s), ftp, or a
// local file path.
type Client struct {
	http *HTTPFetcher
	ftp  *FTPFetcher
}

// NewClient creates a dispatching fetch client.
func NewClient(opts Options) *Client {
	return &Client{
		http: NewHTTPFetcher(HTTPOptions{UserAgent: opts.UserAgent, Timeout: opts.Timeout}),
		ftp:  NewFTPFetcher(FTPOptions{Timeout: opts.Timeout}),
	}
}

// Fetch retrieves the document at the given location.
func (c *Client) Fetch(ctx context.Context, location string) (io.ReadCloser, error) {
	u, err := url.Parse(location)
	if err == nil {
		switch u.Scheme {
		case "http", "https":
			return c.http.Fetch(ctx, location)
		case "ftp":
			return c.ftp.Fetch(ctx, location)
		}
	}

	// Anything without a recognized scheme is a local path. Used for
	// fixture documents and ad hoc re-ingestion of saved files.
	f, err := os.Open(location)
	if err != nil {
		return nil, eris.Wrapf(err, "fetcher: open %s", location)
	}
	return f, nil
}

// FetchBytes retrieves the document and returns its raw bytes,
// rejecting empty bodies.
func FetchBytes(ctx context.Context, f Fetcher, location string) ([]byte, error) {
	body, err := f.Fetch(ctx, location)
	if err != nil {
		return nil, err
	}
	defer body.Close() //nolint:errcheck

	data, err := io.ReadAll(body)
	if err != nil {
		return nil, eris.Wrapf(err, "fetcher: read body from %s", location)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, eris.Wrapf(ErrEmptyResponse, "fetcher: %s", location)
	}
	return data, nil
}
