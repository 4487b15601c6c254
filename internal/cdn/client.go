// Package cdn implements the client for the object/CDN collaborator that
// stores uploaded media and serves it at stable public URLs.
package cdn

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/tkanok/slidewall/internal/domain"
	apperrors "github.com/tkanok/slidewall/internal/errors"
)

const requestTimeout = 30 * time.Second

// Client talks to the CDN's HTTP upload API. The returned URLs are opaque to
// the rest of the system.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
}

func New(baseURL, apiKey string) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: requestTimeout},
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		apiKey:     apiKey,
	}
}

type uploadResponse struct {
	PublicID     string `json:"public_id"`
	SecureURL    string `json:"secure_url"`
	ResourceType string `json:"resource_type"`
}

// Upload stores the file and returns its public id, retrievable URL, and
// detected media kind.
func (c *Client) Upload(ctx context.Context, filename, contentType string, r io.Reader) (*domain.UploadResult, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		return nil, fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := io.Copy(part, r); err != nil {
		return nil, fmt.Errorf("failed to copy file contents: %w", err)
	}
	if err := writer.WriteField("resource_type", "auto"); err != nil {
		return nil, fmt.Errorf("failed to write resource_type field: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to finalize multipart body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/upload", &body)
	if err != nil {
		return nil, fmt.Errorf("failed to create upload request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	c.authorize(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, apperrors.ExternalError("cdn upload failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return nil, apperrors.ExternalError(fmt.Sprintf("cdn upload returned status %d", resp.StatusCode), nil)
	}

	var result uploadResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, apperrors.ExternalError("cdn upload returned malformed response", err)
	}
	if result.PublicID == "" || result.SecureURL == "" {
		return nil, apperrors.ExternalError("cdn upload response missing public_id or secure_url", nil)
	}

	kind := domain.MediaKindImage
	if result.ResourceType == "video" || strings.HasPrefix(contentType, "video/") {
		kind = domain.MediaKindVideo
	}

	return &domain.UploadResult{
		PublicID: result.PublicID,
		URL:      result.SecureURL,
		Kind:     kind,
	}, nil
}

// Destroy removes a stored asset. Missing assets are not an error: the
// caller only needs the asset gone.
func (c *Client) Destroy(ctx context.Context, publicID string) error {
	payload, err := json.Marshal(map[string]string{"public_id": publicID})
	if err != nil {
		return fmt.Errorf("failed to marshal destroy request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/destroy", bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create destroy request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	c.authorize(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return apperrors.ExternalError("cdn destroy failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNotFound {
		return apperrors.ExternalError(fmt.Sprintf("cdn destroy returned status %d", resp.StatusCode), nil)
	}
	return nil
}

func (c *Client) authorize(req *http.Request) {
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
}
