package recipeapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// CredentialSource supplies the per-device API key. An empty key means the
// request is sent unauthenticated.
type CredentialSource interface {
	APIKey(ctx context.Context) (string, error)
}

// JobAPI is the extraction surface used by the polling state machine.
type JobAPI interface {
	SubmitExtraction(ctx context.Context, youtubeURL string) (*ExtractResponse, error)
	JobStatus(ctx context.Context, jobID string) (*JobStatusResponse, error)
	JobResults(ctx context.Context, jobID string) (*Results, error)
}

// GalleryAPI is the saved-recipe surface.
type GalleryAPI interface {
	ListCards(ctx context.Context, limit, offset int) (*ListCardsResponse, error)
	SaveCard(ctx context.Context, req SaveCardRequest) (*Card, error)
	GetCard(ctx context.Context, cardID string) (*Card, error)
	GenerateImage(ctx context.Context, cardID string) (*GenerateImageResponse, error)
	DeleteCard(ctx context.Context, cardID string) (*DeleteCardResponse, error)
}

// DeviceAPI is the registration surface.
type DeviceAPI interface {
	RegisterDevice(ctx context.Context, deviceID string) (*RegisterDeviceResponse, error)
	DeviceMe(ctx context.Context) (*DeviceMeResponse, error)
}

// SwapAPI suggests ingredient substitutes.
type SwapAPI interface {
	SwapSuggestions(ctx context.Context, req SwapRequest) (*SwapResponse, error)
}

// Ensure Client implements every surface at compile time.
var (
	_ JobAPI     = (*Client)(nil)
	_ GalleryAPI = (*Client)(nil)
	_ DeviceAPI  = (*Client)(nil)
	_ SwapAPI    = (*Client)(nil)
)

// Client talks to the recipe extraction HTTP API.
type Client struct {
	baseURL   *url.URL
	http      *http.Client
	creds     CredentialSource
	userAgent string
}

const (
	defaultBaseURL   = "http://localhost:3000"
	defaultUserAgent = "larder/0.1"
	requestTimeout   = 30 * time.Second
	apiKeyHeader     = "X-API-Key"
)

// NewClient builds a Client for baseURL. creds may be nil.
func NewClient(baseURL string, creds CredentialSource) (*Client, error) {
	base, err := parseBaseURL(baseURL)
	if err != nil {
		return nil, err
	}
	return &Client{
		baseURL: base,
		http: &http.Client{
			Timeout: requestTimeout,
		},
		creds:     creds,
		userAgent: defaultUserAgent,
	}, nil
}

// BaseURL returns the normalised server address.
func (c *Client) BaseURL() string {
	return c.baseURL.String()
}

// Health checks that the backend is reachable and answering.
func (c *Client) Health(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/api/health", nil, nil)
}

// RegisterDevice registers deviceID and returns a fresh credential.
func (c *Client) RegisterDevice(ctx context.Context, deviceID string) (*RegisterDeviceResponse, error) {
	var payload RegisterDeviceResponse
	body := RegisterDeviceRequest{DeviceID: deviceID}
	if err := c.do(ctx, http.MethodPost, "/api/devices/register", body, &payload); err != nil {
		return nil, err
	}
	return &payload, nil
}

// DeviceMe returns the entitlement for the stored credential.
func (c *Client) DeviceMe(ctx context.Context) (*DeviceMeResponse, error) {
	var payload DeviceMeResponse
	if err := c.do(ctx, http.MethodGet, "/api/devices/me", nil, &payload); err != nil {
		return nil, err
	}
	return &payload, nil
}

// SubmitExtraction queues a new extraction for youtubeURL.
func (c *Client) SubmitExtraction(ctx context.Context, youtubeURL string) (*ExtractResponse, error) {
	var payload ExtractResponse
	body := ExtractRequest{YouTubeURL: youtubeURL}
	if err := c.do(ctx, http.MethodPost, "/api/extract", body, &payload); err != nil {
		return nil, err
	}
	if strings.TrimSpace(payload.JobID) == "" {
		return nil, fmt.Errorf("extract response missing job id")
	}
	return &payload, nil
}

// JobStatus polls the status of jobID once.
func (c *Client) JobStatus(ctx context.Context, jobID string) (*JobStatusResponse, error) {
	if jobID == "" {
		return nil, fmt.Errorf("job id required")
	}
	var payload JobStatusResponse
	if err := c.do(ctx, http.MethodGet, "/api/status/"+url.PathEscape(jobID), nil, &payload); err != nil {
		return nil, err
	}
	return &payload, nil
}

// JobResults fetches the results of a completed job.
func (c *Client) JobResults(ctx context.Context, jobID string) (*Results, error) {
	if jobID == "" {
		return nil, fmt.Errorf("job id required")
	}
	var payload Results
	if err := c.do(ctx, http.MethodGet, "/api/results/"+url.PathEscape(jobID), nil, &payload); err != nil {
		return nil, err
	}
	return &payload, nil
}

// ListCards returns one page of saved cards.
func (c *Client) ListCards(ctx context.Context, limit, offset int) (*ListCardsResponse, error) {
	values := url.Values{}
	if limit > 0 {
		values.Set("limit", strconv.Itoa(limit))
	}
	if offset > 0 {
		values.Set("offset", strconv.Itoa(offset))
	}
	rel := &url.URL{Path: "/api/gallery", RawQuery: values.Encode()}
	var payload ListCardsResponse
	if err := c.doURL(ctx, http.MethodGet, rel, nil, &payload); err != nil {
		return nil, err
	}
	return &payload, nil
}

// SaveCard stores a recipe snapshot in the gallery.
func (c *Client) SaveCard(ctx context.Context, req SaveCardRequest) (*Card, error) {
	var payload Card
	if err := c.do(ctx, http.MethodPost, "/api/gallery", req, &payload); err != nil {
		return nil, err
	}
	return &payload, nil
}

// GetCard fetches a single card.
func (c *Client) GetCard(ctx context.Context, cardID string) (*Card, error) {
	if cardID == "" {
		return nil, fmt.Errorf("card id required")
	}
	var payload Card
	if err := c.do(ctx, http.MethodGet, "/api/gallery/"+url.PathEscape(cardID), nil, &payload); err != nil {
		return nil, err
	}
	return &payload, nil
}

// GenerateImage asks the server to start image generation for a card.
func (c *Client) GenerateImage(ctx context.Context, cardID string) (*GenerateImageResponse, error) {
	if cardID == "" {
		return nil, fmt.Errorf("card id required")
	}
	var payload GenerateImageResponse
	if err := c.do(ctx, http.MethodPost, "/api/gallery/"+url.PathEscape(cardID)+"/image", nil, &payload); err != nil {
		return nil, err
	}
	return &payload, nil
}

// DeleteCard removes a card.
func (c *Client) DeleteCard(ctx context.Context, cardID string) (*DeleteCardResponse, error) {
	if cardID == "" {
		return nil, fmt.Errorf("card id required")
	}
	var payload DeleteCardResponse
	if err := c.do(ctx, http.MethodDelete, "/api/gallery/"+url.PathEscape(cardID), nil, &payload); err != nil {
		return nil, err
	}
	return &payload, nil
}

// SwapSuggestions asks for substitutes for an ingredient.
func (c *Client) SwapSuggestions(ctx context.Context, req SwapRequest) (*SwapResponse, error) {
	if strings.TrimSpace(req.Ingredient) == "" {
		return nil, fmt.Errorf("ingredient required")
	}
	var payload SwapResponse
	if err := c.do(ctx, http.MethodPost, "/api/swaps", req, &payload); err != nil {
		return nil, err
	}
	return &payload, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, dest any) error {
	rel, err := url.Parse(path)
	if err != nil {
		return fmt.Errorf("parse path %q: %w", path, err)
	}
	return c.doURL(ctx, method, rel, body, dest)
}

func (c *Client) doURL(ctx context.Context, method string, rel *url.URL, body, dest any) error {
	if c == nil {
		return fmt.Errorf("client is nil")
	}
	reqURL := c.baseURL.ResolveReference(rel)

	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, reqURL.String(), reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	if c.creds != nil {
		key, err := c.creds.APIKey(ctx)
		if err != nil {
			return fmt.Errorf("read api key: %w", err)
		}
		if key != "" {
			req.Header.Set(apiKeyHeader, key)
		}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return &TransportError{Path: rel.Path, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeAPIError(resp, rel.Path)
	}
	if dest == nil {
		return nil
	}
	decoder := json.NewDecoder(resp.Body)
	if err := decoder.Decode(dest); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func decodeAPIError(resp *http.Response, path string) error {
	apiErr := &APIError{
		StatusCode: resp.StatusCode,
		Message:    fmt.Sprintf("HTTP %d", resp.StatusCode),
		Path:       path,
	}
	var body ErrorResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&body); err == nil {
		if strings.TrimSpace(body.Error) != "" {
			apiErr.Message = body.Error
		}
		apiErr.Stack = body.Stack
	}
	return apiErr
}

func parseBaseURL(raw string) (*url.URL, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		trimmed = defaultBaseURL
	}
	if !strings.Contains(trimmed, "://") {
		trimmed = "http://" + trimmed
	}
	u, err := url.Parse(trimmed)
	if err != nil {
		return nil, fmt.Errorf("parse backend url %q: %w", raw, err)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("parse backend url %q: missing host", raw)
	}
	u.Path = ""
	u.RawPath = ""
	u.RawQuery = ""
	u.Fragment = ""
	return u, nil
}
