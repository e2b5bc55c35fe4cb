package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// ErrDisabled is returned by Send when no webhook URL is configured.
var ErrDisabled = errors.New("webhook: no url configured")

// Report is the body posted to the spreadsheet webhook.
type Report struct {
	Date   string             `json:"date"`
	Errors map[string]float64 `json:"errors"`
}

// Client posts reports to the spreadsheet webhook. The receiver gives no
// usable response, so a request that was sent counts as delivered.
type Client struct {
	url  string
	http *http.Client
	log  *zap.Logger
}

// NewClient creates a Client for url with the given request timeout.
func NewClient(url string, timeout time.Duration, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		url:  url,
		http: &http.Client{Timeout: timeout},
		log:  logger,
	}
}

// Enabled reports whether a URL is configured.
func (c *Client) Enabled() bool {
	return c != nil && c.url != ""
}

// Send posts r. Only transport failures are errors; the response status and
// body are ignored.
func (c *Client) Send(ctx context.Context, r Report) error {
	if !c.Enabled() {
		return ErrDisabled
	}
	if r.Errors == nil {
		r.Errors = map[string]float64{}
	}
	body, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("failed to encode report: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("webhook request failed: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	c.log.Info("Weigh feeder report sent", zap.String("date", r.Date), zap.Int("tags", len(r.Errors)))
	return nil
}
