package messenger

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"messenger_orders/internal/config"
	"messenger_orders/internal/orders"
	"messenger_orders/internal/retry"

	"github.com/rs/zerolog/log"
)

const DefaultGraphURL = "https://graph.facebook.com/v19.0"

// Client sends replies through the Messenger Send API.
type Client struct {
	pageToken    string
	baseURL      string
	client       *http.Client
	retry        retry.Config
	apiCallCount int64
	apiCallMutex sync.Mutex
}

type sendRequest struct {
	Recipient     recipient   `json:"recipient"`
	MessagingType string      `json:"messaging_type"`
	Message       textMessage `json:"message"`
}

type recipient struct {
	ID string `json:"id"`
}

type textMessage struct {
	Text string `json:"text"`
}

type SendResponse struct {
	RecipientID string `json:"recipient_id"`
	MessageID   string `json:"message_id"`
}

func NewClient(pageToken, baseURL string) *Client {
	if baseURL == "" {
		baseURL = DefaultGraphURL
	}
	return &Client{
		pageToken: pageToken,
		baseURL:   strings.TrimSuffix(baseURL, "/"),
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
		retry: config.DefaultResilienceConfig.MessengerSend,
	}
}

// WithRetryConfig replaces the retry policy used by SendText.
func (c *Client) WithRetryConfig(cfg retry.Config) *Client {
	c.retry = cfg
	return c
}

func (c *Client) incrementAPICall() {
	c.apiCallMutex.Lock()
	c.apiCallCount++
	c.apiCallMutex.Unlock()
}

// GetAPICallCount returns the number of Send API requests made.
func (c *Client) GetAPICallCount() int64 {
	c.apiCallMutex.Lock()
	defer c.apiCallMutex.Unlock()
	return c.apiCallCount
}

// SendText delivers text to recipientID. 4xx responses other than 429 are not retried.
func (c *Client) SendText(ctx context.Context, recipientID, text string) (*SendResponse, error) {
	return retry.WithRetry(ctx, c.retry, func(ctx context.Context) (*SendResponse, error) {
		return c.send(ctx, recipientID, text)
	})
}

func (c *Client) send(ctx context.Context, recipientID, text string) (*SendResponse, error) {
	body, err := json.Marshal(sendRequest{
		Recipient:     recipient{ID: recipientID},
		MessagingType: "RESPONSE",
		Message:       textMessage{Text: text},
	})
	if err != nil {
		return nil, retry.Permanent(fmt.Errorf("failed to encode message: %w", err))
	}

	// token stays out of the URL, *url.Error prints it
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/me/messages", bytes.NewReader(body))
	if err != nil {
		return nil, retry.Permanent(fmt.Errorf("failed to create request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.pageToken)

	c.incrementAPICall()

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(resp.Body)
		err := fmt.Errorf("send API request failed with status %d: %s", resp.StatusCode, string(data))
		if resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests {
			return nil, retry.Permanent(err)
		}
		return nil, err
	}

	var result SendResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return &result, nil
}

// ConfirmOrder replies to the customer in the background. Errors are logged only.
func (c *Client) ConfirmOrder(ctx context.Context, recipientID string, record orders.Record) {
	if c == nil || recipientID == "" {
		return
	}
	text := ConfirmationText(record)
	go func() {
		resp, err := c.SendText(ctx, recipientID, text)
		if err != nil {
			log.Warn().Err(err).Str("sender_id", recipientID).Msg("Failed to send order confirmation")
			return
		}
		log.Debug().
			Str("sender_id", recipientID).
			Str("message_id", resp.MessageID).
			Msg("Sent order confirmation")
	}()
}

// ConfirmationText summarizes the order back to the customer.
func ConfirmationText(record orders.Record) string {
	product, _ := record.Get("Product Name")
	qty, _ := record.Get("Quantity")
	if product == "" {
		return "Thanks! Your order has been recorded."
	}
	if qty == "" {
		return fmt.Sprintf("Thanks! Your order for %s has been recorded.", product)
	}
	return fmt.Sprintf("Thanks! Your order for %s x%s has been recorded.", product, qty)
}
