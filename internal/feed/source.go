package feed

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/signalsfoundry/peerglobe/model"
)

// ErrNotModified reports that the source has nothing new since the last fetch.
var ErrNotModified = errors.New("feed: not modified")

// maxBody bounds a single entity list.
const maxBody = 32 << 20

// Source yields the raw entity list.
type Source interface {
	Fetch(ctx context.Context) ([]byte, error)
	String() string
}

// NewSource picks a file or HTTP source. Exactly one of path and url must be set.
func NewSource(path, url string, timeout time.Duration) (Source, error) {
	switch {
	case path != "" && url != "":
		return nil, errors.New("feed: path and url are mutually exclusive")
	case path != "":
		return FileSource{Path: path}, nil
	case url != "":
		return NewHTTPSource(url, &http.Client{Timeout: timeout}), nil
	default:
		return nil, errors.New("feed: no source configured")
	}
}

// FileSource reads the entity list from a local file on every fetch.
type FileSource struct {
	Path string
}

func (s FileSource) Fetch(context.Context) ([]byte, error) {
	data, err := os.ReadFile(s.Path)
	if err != nil {
		return nil, fmt.Errorf("feed: read %s: %w", s.Path, err)
	}
	return data, nil
}

func (s FileSource) String() string { return "file:" + s.Path }

// HTTPSource polls a URL, using ETag revalidation when the server offers it.
type HTTPSource struct {
	url    string
	client *http.Client

	mu   sync.Mutex
	etag string
}

// NewHTTPSource returns a source for url. A nil client uses http.DefaultClient.
func NewHTTPSource(url string, client *http.Client) *HTTPSource {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPSource{url: url, client: client}
}

func (s *HTTPSource) Fetch(ctx context.Context) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return nil, fmt.Errorf("feed: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	s.mu.Lock()
	if s.etag != "" {
		req.Header.Set("If-None-Match", s.etag)
	}
	s.mu.Unlock()

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("feed: get %s: %w", s.url, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotModified:
		return nil, ErrNotModified
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("feed: get %s: unexpected status %s", s.url, resp.Status)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return nil, fmt.Errorf("feed: read body: %w", err)
	}
	if etag := resp.Header.Get("ETag"); etag != "" {
		s.mu.Lock()
		s.etag = etag
		s.mu.Unlock()
	}
	return data, nil
}

func (s *HTTPSource) String() string { return s.url }

// Decode accepts either a bare JSON array of entities or an object with an
// "entities" array.
func Decode(data []byte) ([]model.Entity, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, errors.New("feed: empty document")
	}
	if data[0] == '[' {
		var entities []model.Entity
		if err := json.Unmarshal(data, &entities); err != nil {
			return nil, fmt.Errorf("feed: decode entity array: %w", err)
		}
		return entities, nil
	}
	var doc struct {
		Entities *[]model.Entity `json:"entities"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("feed: decode document: %w", err)
	}
	if doc.Entities == nil {
		return nil, errors.New(`feed: document has no "entities" array`)
	}
	return *doc.Entities, nil
}
