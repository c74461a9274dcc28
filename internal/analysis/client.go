package analysis

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"sc2summariser/internal/replay"

	json "github.com/goccy/go-json"
	"go.uber.org/zap"
)

const (
	uploadEndpoint = "/upload"
	formField      = "file"

	// Default timeout for the whole upload round trip
	defaultTimeout = 60 * time.Second

	// How much of an error body is kept for diagnostics
	maxErrorBody = 512
)

var (
	// ErrRequestFailed is returned when the service answers with a non-200 status
	ErrRequestFailed = errors.New("analysis request failed")
	// ErrTransport covers network failures and undecodable responses
	ErrTransport = errors.New("analysis transport error")
)

// StatusError carries the status and a truncated body of a failed request
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("analysis service returned status %d", e.StatusCode)
}

func (e *StatusError) Unwrap() error {
	return ErrRequestFailed
}

// Client uploads replays to the analysis service
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
}

// Option configures a Client
type Option func(*Client)

// WithTimeout sets the HTTP timeout for uploads
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

// WithHTTPClient replaces the underlying HTTP client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithLogger sets the logger used for request diagnostics
func WithLogger(logger *zap.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// NewClient creates a client for the service at baseURL
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: defaultTimeout,
		},
		logger: zap.NewNop(),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Upload posts the replay as multipart form field "file" and decodes the
// match summary. Errors wrap ErrRequestFailed or ErrTransport.
func (c *Client) Upload(ctx context.Context, fileName string, content io.Reader) (*replay.SummarisedData, error) {
	body, contentType, err := encodeForm(fileName, content)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrTransport, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+uploadEndpoint, body)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create request: %w", ErrTransport, err)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: request failed: %w", ErrTransport, err)
	}
	defer resp.Body.Close()

	c.logger.Debug("analysis response",
		zap.String("file", fileName),
		zap.Int("status", resp.StatusCode),
		zap.Duration("elapsed", time.Since(start)),
	)

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: string(snippet)}
	}

	var data *replay.SummarisedData
	dec := json.NewDecoder(resp.Body)
	if err := dec.Decode(&data); err != nil {
		return nil, fmt.Errorf("%w: failed to decode response: %w", ErrTransport, err)
	}
	if data == nil {
		return nil, fmt.Errorf("%w: empty response", ErrTransport)
	}
	var extra json.RawMessage
	if err := dec.Decode(&extra); !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: unexpected content after response", ErrTransport)
	}

	return data, nil
}

// encodeForm builds the multipart body. Replays are capped at 1 MiB by
// validation, so buffering the whole form is fine.
func encodeForm(fileName string, content io.Reader) (*bytes.Buffer, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	part, err := w.CreateFormFile(formField, fileName)
	if err != nil {
		return nil, "", fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := io.Copy(part, content); err != nil {
		return nil, "", fmt.Errorf("failed to read replay: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("failed to finish form: %w", err)
	}

	return &buf, w.FormDataContentType(), nil
}
