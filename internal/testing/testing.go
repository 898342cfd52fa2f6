// package testing contains shared testing utilities
package testing

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"testing"

	"github.com/desertthunder/packstore/internal/shared"
)

// MockStore is a test double for storage.Store backed by an in-memory map.
type MockStore struct {
	BucketName string
	Objects    map[string][]byte
	Err        error
}

func NewMockStore(bucket string) *MockStore {
	return &MockStore{BucketName: bucket, Objects: map[string][]byte{}}
}

func (m *MockStore) Download(ctx context.Context, path string) ([]byte, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	data, ok := m.Objects[path]
	if !ok {
		return nil, fmt.Errorf("object %s/%s: %w", m.BucketName, path, shared.ErrFileNotFound)
	}
	return data, nil
}

func (m *MockStore) Bucket() string { return m.BucketName }

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}

// MockRoundTripper allows custom HTTP responses for testing
type MockRoundTripper struct {
	response *http.Response
	err      error
}

func NewMockRoundTripper(r *http.Response, e error) *MockRoundTripper {
	return &MockRoundTripper{response: r, err: e}
}

func (m *MockRoundTripper) RoundTrip(*http.Request) (*http.Response, error) {
	return m.response, m.err
}

// FCloser simulates a failure when reading response body
type FCloser struct{}

func (f *FCloser) Read(p []byte) (n int, err error) {
	return 0, errors.New("read failed")
}

func (f *FCloser) Close() error {
	return nil
}

func MustGetwd(t *testing.T) string {
	t.Helper()
	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("Failed to get working directory: %v", err)
	}
	return wd
}

func AssertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("File does not exist: %s", path)
	}
}

func MustReadFile(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file %s: %v", path, err)
	}
	return string(content)
}

var _ io.Reader = (*FCloser)(nil)
