package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/manash/cinestudio/internal/logging"
	"github.com/manash/cinestudio/pkg/models"
)

const (
	DefaultBaseURL = "http://127.0.0.1:8000"
	defaultTimeout = 300 * time.Second
)

type errorBody struct {
	Detail json.RawMessage `json:"detail"`
}

type Client struct {
	baseURL    string
	httpClient *http.Client
	verbose    bool
	log        *slog.Logger
}

func New(cfg *Config) *Client {
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	timeout := defaultTimeout
	if cfg.TimeoutSec > 0 {
		timeout = time.Duration(cfg.TimeoutSec) * time.Second
	}

	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
		verbose:    cfg.Verbose,
		log:        logging.WithComponent("backend"),
	}
}

func (c *Client) BaseURL() string {
	return c.baseURL
}

func (c *Client) History(ctx context.Context) ([]models.GenerationRecord, error) {
	var records []models.GenerationRecord
	if err := c.doJSON(ctx, http.MethodGet, "/history", nil, &records, historySchema); err != nil {
		return nil, err
	}
	return records, nil
}

func (c *Client) Uploads(ctx context.Context) ([]models.UploadRecord, error) {
	var uploads []models.UploadRecord
	if err := c.doJSON(ctx, http.MethodGet, "/uploads", nil, &uploads, uploadsSchema); err != nil {
		return nil, err
	}
	return uploads, nil
}

func (c *Client) Upload(ctx context.Context, base64Data string) error {
	return c.doJSON(ctx, http.MethodPost, "/upload", &models.UploadRequest{Base64Data: base64Data}, nil, nil)
}

func (c *Client) GenerateImage(ctx context.Context, req *models.GenerateImageRequest) (*models.GenerateImageResponse, error) {
	var resp models.GenerateImageResponse
	if err := c.doJSON(ctx, http.MethodPost, "/generate-image", req, &resp, nil); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrGenerationFailed, err)
	}
	if resp.Status != models.StatusSuccess {
		return nil, fmt.Errorf("%w: %s", ErrGenerationFailed, statusDetail(resp.Status, resp.Detail))
	}
	if resp.ImageURL == "" {
		return nil, fmt.Errorf("%w: %w: missing image_url", ErrGenerationFailed, ErrInvalidResponse)
	}
	return &resp, nil
}

func (c *Client) GenerateVideo(ctx context.Context, req *models.GenerateVideoRequest) (*models.GenerateVideoResponse, error) {
	var resp models.GenerateVideoResponse
	if err := c.doJSON(ctx, http.MethodPost, "/generate-video", req, &resp, nil); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrGenerationFailed, err)
	}
	if resp.Status != models.StatusSuccess {
		return nil, fmt.Errorf("%w: %s", ErrGenerationFailed, statusDetail(resp.Status, resp.Detail))
	}
	if resp.VideoURL == "" {
		return nil, fmt.Errorf("%w: %w: missing video_url", ErrGenerationFailed, ErrInvalidResponse)
	}
	return &resp, nil
}

func (c *Client) Proxies(ctx context.Context, sourceID int64) ([]models.ProxyShot, error) {
	var proxies []models.ProxyShot
	path := "/proxies/" + strconv.FormatInt(sourceID, 10)
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &proxies, proxiesSchema); err != nil {
		return nil, err
	}
	return proxies, nil
}

func (c *Client) GenerateMultishot(ctx context.Context, sourceID int64) (*models.MultishotResponse, error) {
	var resp models.MultishotResponse
	req := &models.MultishotRequest{SourceImageID: sourceID}
	if err := c.doJSON(ctx, http.MethodPost, "/generate-multishot", req, &resp, nil); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMultishotFailed, err)
	}
	if resp.Status != models.StatusSuccess {
		return nil, fmt.Errorf("%w: %s", ErrMultishotFailed, statusDetail(resp.Status, resp.Detail))
	}
	return &resp, nil
}

func (c *Client) UpscaleProxies(ctx context.Context, proxyIDs []int64) (*models.UpscaleResponse, error) {
	var resp models.UpscaleResponse
	if err := c.doJSON(ctx, http.MethodPost, "/upscale-proxies", &models.UpscaleRequest{ProxyIDs: proxyIDs}, &resp, nil); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUpscaleFailed, err)
	}
	if resp.Status != models.StatusSuccess {
		return nil, fmt.Errorf("%w: %s", ErrUpscaleFailed, statusDetail(resp.Status, resp.Detail))
	}
	return &resp, nil
}

func (c *Client) SetFavorite(ctx context.Context, id int64, favorite bool) error {
	path := "/history/" + strconv.FormatInt(id, 10) + "/favorite"
	return c.doJSON(ctx, http.MethodPut, path, &models.FavoriteRequest{IsFavorite: favorite}, nil, nil)
}

func (c *Client) Duplicate(ctx context.Context, id int64) error {
	path := "/history/" + strconv.FormatInt(id, 10) + "/duplicate"
	return c.doJSON(ctx, http.MethodPost, path, nil, nil, nil)
}

func (c *Client) Delete(ctx context.Context, id int64) error {
	return c.doJSON(ctx, http.MethodDelete, "/history/"+strconv.FormatInt(id, 10), nil, nil, nil)
}

func (c *Client) Fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.resolve(url), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create download request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDownloadFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d", ErrDownloadFailed, resp.StatusCode)
	}

	return io.ReadAll(resp.Body)
}

// resolve turns backend-relative media paths into absolute URLs.
func (c *Client) resolve(url string) string {
	if strings.HasPrefix(url, "/") {
		return c.baseURL + url
	}
	return url
}

func (c *Client) doJSON(ctx context.Context, method, path string, body, out any, schema *responseSchema) error {
	var payload []byte
	var reader io.Reader
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	url := c.baseURL + path
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	c.logRequest(method, url, payload)
	start := time.Now()

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s %s: %w", ErrBackend, method, path, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	c.logResponse(method, url, resp.StatusCode, time.Since(start), respBody)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		if detail := parseDetail(respBody); detail != "" {
			return fmt.Errorf("%w: %s %s: status %d: %s", ErrBackend, method, path, resp.StatusCode, detail)
		}
		return fmt.Errorf("%w: %s %s: status %d", ErrBackend, method, path, resp.StatusCode)
	}

	if out == nil {
		return nil
	}

	if schema != nil {
		if err := schema.validate(respBody); err != nil {
			return fmt.Errorf("%w: %s %s: %w", ErrInvalidResponse, method, path, err)
		}
	}

	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("%w: failed to parse %s: %w", ErrInvalidResponse, path, err)
	}
	return nil
}

func parseDetail(body []byte) string {
	var eb errorBody
	if err := json.Unmarshal(body, &eb); err != nil || len(eb.Detail) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(eb.Detail, &s); err == nil {
		return s
	}
	return string(eb.Detail)
}

func statusDetail(status, detail string) string {
	if detail != "" {
		return detail
	}
	if status == "" {
		return "missing status"
	}
	return "status " + strconv.Quote(status)
}
