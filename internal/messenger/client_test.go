package messenger

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"messenger_orders/internal/orders"
	"messenger_orders/internal/retry"
)

var testRetry = retry.Config{
	MaxRetries: 2,
	BaseDelay:  5 * time.Millisecond,
	MaxDelay:   20 * time.Millisecond,
	Timeout:    time.Second,
}

func TestSendText(t *testing.T) {
	var got sendRequest
	var token string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/me/messages" {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		token = r.Header.Get("Authorization")
		json.NewDecoder(r.Body).Decode(&got)
		w.Write([]byte(`{"recipient_id":"U1","message_id":"m-1"}`))
	}))
	defer srv.Close()

	client := NewClient("page-token", srv.URL).WithRetryConfig(testRetry)
	resp, err := client.SendText(context.Background(), "U1", "hi")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if resp.MessageID != "m-1" {
		t.Errorf("Expected message id 'm-1', got '%s'", resp.MessageID)
	}
	if token != "Bearer page-token" {
		t.Errorf("Expected 'Bearer page-token', got '%s'", token)
	}
	if got.Recipient.ID != "U1" || got.Message.Text != "hi" || got.MessagingType != "RESPONSE" {
		t.Errorf("Unexpected request body %+v", got)
	}
	if client.GetAPICallCount() != 1 {
		t.Errorf("Expected 1 API call, got %d", client.GetAPICallCount())
	}
}

func TestSendTextRetriesServerErrors(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(`{"recipient_id":"U1","message_id":"m-2"}`))
	}))
	defer srv.Close()

	client := NewClient("page-token", srv.URL).WithRetryConfig(testRetry)
	if _, err := client.SendText(context.Background(), "U1", "hi"); err != nil {
		t.Fatalf("Expected success after retry, got %v", err)
	}
	if calls != 2 {
		t.Errorf("Expected 2 calls, got %d", calls)
	}
}

func TestSendTextDoesNotRetryClientErrors(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":{"message":"invalid recipient"}}`))
	}))
	defer srv.Close()

	client := NewClient("page-token", srv.URL).WithRetryConfig(testRetry)
	if _, err := client.SendText(context.Background(), "U1", "hi"); err == nil {
		t.Fatal("Expected error, got nil")
	}
	if calls != 1 {
		t.Errorf("Expected 1 call, got %d", calls)
	}
}

func TestConfirmationText(t *testing.T) {
	tests := []struct {
		record orders.Record
		want   string
	}{
		{
			record: orders.NewRecord(
				orders.Value{Field: "Product Name", Text: "Widget"},
				orders.Value{Field: "Quantity", Text: "2"},
			),
			want: "Thanks! Your order for Widget x2 has been recorded.",
		},
		{
			record: orders.NewRecord(orders.Value{Field: "Product Name", Text: "Widget"}),
			want:   "Thanks! Your order for Widget has been recorded.",
		},
		{
			record: orders.NewRecord(),
			want:   "Thanks! Your order has been recorded.",
		},
	}

	for _, test := range tests {
		if got := ConfirmationText(test.record); got != test.want {
			t.Errorf("Expected %q, got %q", test.want, got)
		}
	}
}

func TestSendTextErrorsOmitToken(t *testing.T) {
	const token = "private-page-token"
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	baseURL := srv.URL
	srv.Close()

	client := NewClient(token, baseURL).WithRetryConfig(retry.Config{
		BaseDelay: time.Millisecond,
		MaxDelay:  time.Millisecond,
		Timeout:   time.Second,
	})
	_, err := client.SendText(context.Background(), "U1", "hi")
	if err == nil {
		t.Fatal("Expected error from closed server, got nil")
	}
	if strings.Contains(err.Error(), token) {
		t.Errorf("Expected error without the page token, got %v", err)
	}
}
