package player

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"sort"
	"time"

	"github.com/goccy/go-json"

	"github.com/tkanok/slidewall/internal/domain"
)

const loadTimeout = 10 * time.Second

// Loader performs the one-time full-sequence fetch that seeds the state
// machine before incremental patches begin.
type Loader struct {
	httpClient *http.Client
	baseURL    string
}

// NewLoader creates a loader against the server's HTTP base URL
// (e.g., "https://slides.example").
func NewLoader(baseURL string) *Loader {
	return &Loader{
		httpClient: &http.Client{Timeout: loadTimeout},
		baseURL:    baseURL,
	}
}

// Load fetches the full ordered active media sequence of a group. Any
// network or decoding failure yields an empty sequence, never an error: the
// display falls back to the empty state and retries on its next reconnect.
func (l *Loader) Load(ctx context.Context, groupSlug string) []domain.MediaItem {
	endpoint := fmt.Sprintf("%s/api/groups/%s/media", l.baseURL, url.PathEscape(groupSlug))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		slog.Warn("Bootstrap request creation failed", "group_slug", groupSlug, "error", err)
		return nil
	}

	resp, err := l.httpClient.Do(req)
	if err != nil {
		slog.Warn("Bootstrap fetch failed", "group_slug", groupSlug, "error", err)
		return nil
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		slog.Warn("Bootstrap fetch returned non-OK status", "group_slug", groupSlug, "status", resp.StatusCode)
		return nil
	}

	var items []domain.MediaItem
	if err := json.NewDecoder(resp.Body).Decode(&items); err != nil {
		slog.Warn("Bootstrap response malformed", "group_slug", groupSlug, "error", err)
		return nil
	}

	// The server already orders by position with creation-time tie breaks;
	// the stable sort preserves those tie breaks while tolerating any
	// out-of-order transport.
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].Position < items[j].Position
	})

	return items
}
