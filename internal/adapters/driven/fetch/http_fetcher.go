package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/custodia-labs/retriva-core/internal/core/domain"
	"github.com/custodia-labs/retriva-core/internal/core/ports/driven"
)

// Ensure HTTPFetcher implements ContentFetcher
var _ driven.ContentFetcher = (*HTTPFetcher)(nil)

// maxContentBytes caps how much of a document body is read
const maxContentBytes = 10 << 20 // 10 MiB

// HTTPFetcher retrieves document content over plain HTTP GET.
type HTTPFetcher struct {
	client *http.Client
}

// NewHTTPFetcher creates a new HTTPFetcher
func NewHTTPFetcher(timeout time.Duration) *HTTPFetcher {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &HTTPFetcher{
		client: &http.Client{
			Timeout: timeout,
		},
	}
}

// Fetch returns the text content for a document reference.
func (f *HTTPFetcher) Fetch(ctx context.Context, ref domain.DocumentRef) (string, error) {
	if ref.URI == "" {
		return "", fmt.Errorf("%w: empty document URI", domain.ErrInvalidInput)
	}

	req, err := http.NewRequestWithContext(ctx, "GET", ref.URI, nil)
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}
	req.Header.Set("Accept", "text/plain, text/html, application/json, */*")

	resp, err := f.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to fetch %s: %w", ref.URI, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("fetch %s returned status %d", ref.URI, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxContentBytes))
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", ref.URI, err)
	}

	return string(body), nil
}
