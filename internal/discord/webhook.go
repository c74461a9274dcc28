package discord

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"sc2summariser/internal/replay"

	json "github.com/goccy/go-json"
)

const (
	// Embed colors
	colorBlue  = 3447003 // 0x3498DB - shared summaries
	colorGreen = 5763719 // 0x57F287 - wins

	// Discord rejects embed descriptions longer than this
	maxDescriptionLength = 4096

	defaultWebhookTimeout = 10 * time.Second

	// Max retries for rate limiting
	maxRetries = 3
)

// ErrDisabled is returned when no webhook URL is configured
var ErrDisabled = errors.New("discord: no webhook configured")

// WebhookPayload represents a Discord webhook message
type WebhookPayload struct {
	Content string  `json:"content,omitempty"`
	Embeds  []Embed `json:"embeds,omitempty"`
}

// Embed represents a Discord embed
type Embed struct {
	Title       string       `json:"title,omitempty"`
	Description string       `json:"description,omitempty"`
	Color       int          `json:"color,omitempty"`
	Fields      []EmbedField `json:"fields,omitempty"`
	Footer      *EmbedFooter `json:"footer,omitempty"`
	Timestamp   string       `json:"timestamp,omitempty"`
}

// EmbedField represents a field in a Discord embed
type EmbedField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline,omitempty"`
}

// EmbedFooter represents the footer of a Discord embed
type EmbedFooter struct {
	Text string `json:"text"`
}

// NewSummaryPayload builds the embed posted when a player shares a replay
func NewSummaryPayload(fileName string, data replay.SummarisedData, summary string, now time.Time) WebhookPayload {
	color := colorBlue
	for _, p := range data.Players {
		if p.IsHuman && strings.EqualFold(p.Result, "Win") {
			color = colorGreen
			break
		}
	}

	return WebhookPayload{
		Embeds: []Embed{
			{
				Title:       "🎮 Replay: " + fallback(data.Map, "Unknown map"),
				Description: codeBlock(summary),
				Color:       color,
				Fields: []EmbedField{
					{
						Name:   "Map",
						Value:  fallback(data.Map, "-"),
						Inline: true,
					},
					{
						Name:   "Duration",
						Value:  replay.FormatSeconds(data.Duration),
						Inline: true,
					},
					{
						Name:  "Players",
						Value: fallback(rosterLines(data.Players), "-"),
					},
				},
				Footer: &EmbedFooter{
					Text: fileName,
				},
				Timestamp: now.UTC().Format(time.RFC3339),
			},
		},
	}
}

// WebhookClient posts summaries to a Discord webhook
type WebhookClient struct {
	webhookURL string
	httpClient *http.Client
	now        func() time.Time
}

// NewWebhookClient returns nil when webhookURL is empty, which callers treat as disabled
func NewWebhookClient(webhookURL string) *WebhookClient {
	if webhookURL == "" {
		return nil
	}
	return &WebhookClient{
		webhookURL: webhookURL,
		httpClient: &http.Client{
			Timeout: defaultWebhookTimeout,
		},
		now: time.Now,
	}
}

// ShareSummary posts one replay summary
func (c *WebhookClient) ShareSummary(ctx context.Context, fileName string, data replay.SummarisedData, summary string) error {
	if c == nil {
		return ErrDisabled
	}
	payload := NewSummaryPayload(fileName, data, summary, c.now())
	return c.sendPayload(ctx, payload)
}

// sendPayload sends a webhook payload with retry on rate limiting
func (c *WebhookClient) sendPayload(ctx context.Context, payload WebhookPayload) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	for attempt := 0; attempt < maxRetries; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.webhookURL, bytes.NewReader(data))
		if err != nil {
			return fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("request failed: %w", err)
		}
		resp.Body.Close()

		// Discord returns 204 No Content
		if resp.StatusCode == http.StatusNoContent || resp.StatusCode == http.StatusOK {
			return nil
		}

		if resp.StatusCode == http.StatusTooManyRequests {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(retryAfter(resp.Header.Get("Retry-After"))):
				continue
			}
		}

		return fmt.Errorf("webhook request failed with status %d", resp.StatusCode)
	}

	return fmt.Errorf("webhook request failed after %d retries", maxRetries)
}

// retryAfter parses Discord's Retry-After header, which may be fractional seconds
func retryAfter(header string) time.Duration {
	if header == "" {
		return time.Second
	}
	seconds, err := strconv.ParseFloat(header, 64)
	if err != nil || seconds < 0 {
		return time.Second
	}
	return time.Duration(seconds * float64(time.Second))
}

func rosterLines(players []replay.PlayerStats) string {
	lines := make([]string, 0, len(players))
	for _, p := range players {
		line := fmt.Sprintf("%s (%s)", p.Name, p.Race)
		if p.Result != "" {
			line += " - " + p.Result
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}

// codeBlock wraps the summary in a code fence, truncated to fit an embed
func codeBlock(summary string) string {
	const fence = "```"
	const ellipsis = "\n…"
	limit := maxDescriptionLength - 2*len(fence) - 2

	if utf8.RuneCountInString(summary) > limit {
		runes := []rune(summary)
		summary = string(runes[:limit-utf8.RuneCountInString(ellipsis)]) + ellipsis
	}
	return fence + "\n" + summary + "\n" + fence
}

func fallback(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
