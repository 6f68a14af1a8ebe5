package notifications

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"messenger_orders/internal/orders"
	"messenger_orders/internal/retry"

	"github.com/rs/zerolog/log"
)

const (
	breakerThreshold = 5
	breakerCooldown  = 30 * time.Second
	requestTimeout   = 10 * time.Second
)

// Client posts plain-text messages to an ntfy topic.
type Client struct {
	httpClient *http.Client
	baseURL    string
	topic      string
	enabled    bool
	priority   string
	retry      retry.Config

	mutex       sync.Mutex
	failures    int
	lastFailure time.Time
	circuitOpen bool
	totalSent   int64
	totalFailed int64
}

type Options struct {
	BaseURL    string
	Topic      string
	Enabled    bool
	Priority   string
	MaxRetries int
	BaseDelay  time.Duration
	MaxDelay   time.Duration
}

type NotificationError struct {
	Type       string
	StatusCode int
	Attempt    int
	Underlying error
}

func (e *NotificationError) Error() string {
	return fmt.Sprintf("notification failed [%s] attempt %d: %v", e.Type, e.Attempt, e.Underlying)
}

func (e *NotificationError) Unwrap() error {
	return e.Underlying
}

func (e *NotificationError) IsRetryable() bool {
	switch e.Type {
	case "network", "server", "rate_limit":
		return true
	default:
		return false
	}
}

func NewClient(opts Options) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: requestTimeout,
		},
		baseURL:    strings.TrimSuffix(opts.BaseURL, "/"),
		topic:      opts.Topic,
		enabled:    opts.Enabled,
		priority:   opts.Priority,
		retry: retry.Config{
			MaxRetries: opts.MaxRetries,
			BaseDelay:  opts.BaseDelay,
			MaxDelay:   opts.MaxDelay,
			Timeout:    requestTimeout,
		},
	}
}

// NotifyOrder sends a summary of a saved order in the background.
func (c *Client) NotifyOrder(ctx context.Context, senderID string, record orders.Record) {
	if c == nil || !c.enabled {
		return
	}
	message := FormatOrderMessage(senderID, record)
	go func() {
		if err := c.SendNotification(ctx, message); err != nil {
			log.Warn().Err(err).Str("sender_id", senderID).Msg("Order notification failed")
		}
	}()
}

// FormatOrderMessage renders one line per field in column order.
func FormatOrderMessage(senderID string, record orders.Record) string {
	var sb strings.Builder
	sb.WriteString("🛒 New order")
	if senderID != "" {
		sb.WriteString(fmt.Sprintf(" from %s", senderID))
	}
	for _, v := range record.Values() {
		sb.WriteString(fmt.Sprintf("\n%s: %s", v.Field, v.Text))
	}
	return sb.String()
}

func (c *Client) SendNotification(ctx context.Context, message string) error {
	if !c.enabled {
		log.Debug().Msg("Notifications disabled, skipping")
		return nil
	}

	if c.isCircuitOpen() {
		log.Warn().Msg("Circuit breaker open, skipping notification")
		return &NotificationError{Type: "circuit_open", Underlying: fmt.Errorf("circuit breaker is open")}
	}

	attempt := 0
	_, err := retry.WithRetry(ctx, c.retry, func(ctx context.Context) (struct{}, error) {
		attempt++
		err := c.send(ctx, message, attempt)
		if err == nil {
			return struct{}{}, nil
		}
		if notifErr, ok := err.(*NotificationError); ok && !notifErr.IsRetryable() {
			log.Warn().Err(err).Int("attempt", attempt).Msg("Non-retryable error, giving up")
			return struct{}{}, retry.Permanent(err)
		}
		log.Warn().
			Err(err).
			Int("attempt", attempt).
			Int("max_retries", c.retry.MaxRetries).
			Msg("Notification attempt failed")
		return struct{}{}, err
	})
	if err == nil {
		c.recordSuccess()
		return nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(err, ctxErr) {
		return err
	}

	c.recordFailure()
	var notifErr *NotificationError
	if errors.As(err, &notifErr) && !notifErr.IsRetryable() {
		return notifErr
	}
	return &NotificationError{
		Type:       "max_retries_exceeded",
		Attempt:    attempt,
		Underlying: err,
	}
}

func (c *Client) send(ctx context.Context, message string, attempt int) error {
	url := fmt.Sprintf("%s/%s", c.baseURL, c.topic)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBufferString(message))
	if err != nil {
		return &NotificationError{Type: "client", Attempt: attempt, Underlying: err}
	}
	req.Header.Set("Content-Type", "text/plain")
	req.Header.Set("Tags", "shopping_cart")
	if c.priority != "" {
		req.Header.Set("Priority", c.priority)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &NotificationError{Type: "network", Attempt: attempt, Underlying: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return &NotificationError{
			Type:       categorizeHTTPError(resp.StatusCode),
			StatusCode: resp.StatusCode,
			Attempt:    attempt,
			Underlying: fmt.Errorf("HTTP %d: %s", resp.StatusCode, resp.Status),
		}
	}

	log.Debug().
		Int("status_code", resp.StatusCode).
		Int("attempt", attempt).
		Msg("Notification sent successfully")
	return nil
}

func (c *Client) isCircuitOpen() bool {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if c.circuitOpen && time.Since(c.lastFailure) > breakerCooldown {
		c.circuitOpen = false
		c.failures = 0
		log.Info().Msg("Circuit breaker moving to half-open state")
	}
	return c.circuitOpen
}

func (c *Client) recordSuccess() {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.totalSent++
	c.failures = 0
	if c.circuitOpen {
		c.circuitOpen = false
		log.Info().Msg("Circuit breaker closed after successful notification")
	}
}

func (c *Client) recordFailure() {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.totalFailed++
	c.failures++
	c.lastFailure = time.Now()

	if c.failures >= breakerThreshold && !c.circuitOpen {
		c.circuitOpen = true
		log.Warn().Int("failures", c.failures).Msg("Circuit breaker opened due to consecutive failures")
	}
}

func categorizeHTTPError(statusCode int) string {
	switch {
	case statusCode == 401 || statusCode == 403:
		return "auth"
	case statusCode == 429:
		return "rate_limit"
	case statusCode >= 500:
		return "server"
	default:
		return "client"
	}
}

// GetMetrics returns the sent and failed notification counts.
func (c *Client) GetMetrics() (sent, failed int64) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return c.totalSent, c.totalFailed
}
