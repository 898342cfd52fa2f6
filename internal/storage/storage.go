// package storage is the HTTP client for the hosted object store that holds
// the downloadable audio files.
//
// The store exposes a Supabase-style REST surface: objects are fetched by
// bucket and path with a bearer key. Two credential tiers exist on purpose:
// the restricted key covers listing and metadata, while the elevated service
// key is used for binary retrieval only when the restricted key is rejected.
package storage

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/packstore/internal/shared"
)

// Store defines the object retrieval surface consumed by the fulfillment
// handler.
type Store interface {
	// Download fetches the raw bytes of the object at path inside the
	// configured bucket.
	Download(ctx context.Context, path string) ([]byte, error)

	// Bucket returns the bucket name, for diagnostics in error responses.
	Bucket() string
}

// Credentials names the two capability tiers for the same object store.
// They are kept as separate fields and selected per operation, never merged
// into one ambient credential.
type Credentials struct {
	// Restricted is the anon-scope key used for all reads first.
	Restricted string
	// Service is the elevated key, used for binary retrieval only when the
	// restricted key lacks permission on the bucket.
	Service string
}

// Client implements [Store] against an HTTP object store.
type Client struct {
	baseURL    string
	bucket     string
	creds      Credentials
	httpClient *http.Client
	logger     *log.Logger
}

// NewClient creates an object store client for the given bucket.
func NewClient(baseURL, bucket string, creds Credentials, httpClient *http.Client, logger *log.Logger) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		bucket:     bucket,
		creds:      creds,
		httpClient: httpClient,
		logger:     logger,
	}
}

// Bucket returns the bucket this client reads from.
func (c *Client) Bucket() string {
	return c.bucket
}

// Download fetches the object at path with the restricted key, retrying once
// with the elevated service key when the restricted key is rejected with
// 401/403. The elevation is an explicit exception path and is logged.
func (c *Client) Download(ctx context.Context, path string) ([]byte, error) {
	body, status, err := c.fetch(ctx, path, c.creds.Restricted)
	if err != nil {
		return nil, err
	}

	if (status == http.StatusUnauthorized || status == http.StatusForbidden) && c.creds.Service != "" {
		c.logger.Warn("restricted key rejected, retrying with service key",
			"bucket", c.bucket, "path", path, "status", status)
		body, status, err = c.fetch(ctx, path, c.creds.Service)
		if err != nil {
			return nil, err
		}
	}

	switch {
	case status == http.StatusOK:
		return body, nil
	case status == http.StatusNotFound:
		return nil, fmt.Errorf("object %s/%s: %w", c.bucket, path, shared.ErrFileNotFound)
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return nil, fmt.Errorf("object %s/%s: access rejected with status %d: %w", c.bucket, path, status, shared.ErrFileNotFound)
	default:
		return nil, fmt.Errorf("object %s/%s: unexpected status %d: %w", c.bucket, path, status, shared.ErrUpstream)
	}
}

// fetch performs one authenticated GET for the object and returns the body
// and status. Transport failures map to [shared.ErrUpstream].
func (c *Client) fetch(ctx context.Context, path, key string) ([]byte, int, error) {
	fullURL := fmt.Sprintf("%s/object/%s/%s", c.baseURL, url.PathEscape(c.bucket), escapePath(path))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to create request: %w", err)
	}

	if key != "" {
		req.Header.Set("Authorization", "Bearer "+key)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("object store request failed: %v: %w", err, shared.ErrUpstream)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to read object body: %v: %w", err, shared.ErrUpstream)
	}

	return body, resp.StatusCode, nil
}

// escapePath escapes each segment of a storage path while preserving the
// separators.
func escapePath(path string) string {
	segments := strings.Split(path, "/")
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}
	return strings.Join(segments, "/")
}
