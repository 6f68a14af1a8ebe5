package notifications

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"messenger_orders/internal/orders"
)

func testOptions(url string) Options {
	return Options{
		BaseURL:    url,
		Topic:      "orders",
		Enabled:    true,
		MaxRetries: 2,
		BaseDelay:  5 * time.Millisecond,
		MaxDelay:   20 * time.Millisecond,
	}
}

func TestSendNotification(t *testing.T) {
	var body, path string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, _ := io.ReadAll(r.Body)
		body = string(data)
		path = r.URL.Path
	}))
	defer srv.Close()

	client := NewClient(testOptions(srv.URL))
	if err := client.SendNotification(context.Background(), "hello"); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if path != "/orders" || body != "hello" {
		t.Errorf("Unexpected request path=%s body=%s", path, body)
	}
	if sent, failed := client.GetMetrics(); sent != 1 || failed != 0 {
		t.Errorf("Expected 1 sent 0 failed, got %d sent %d failed", sent, failed)
	}
}

func TestSendNotificationRetriesServerErrors(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
		}
	}))
	defer srv.Close()

	client := NewClient(testOptions(srv.URL))
	if err := client.SendNotification(context.Background(), "hello"); err != nil {
		t.Fatalf("Expected success after retries, got %v", err)
	}
	if calls != 3 {
		t.Errorf("Expected 3 calls, got %d", calls)
	}
}

func TestSendNotificationGivesUpAfterMaxRetries(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	client := NewClient(testOptions(srv.URL))
	err := client.SendNotification(context.Background(), "hello")

	var notifErr *NotificationError
	if !errors.As(err, &notifErr) || notifErr.Type != "max_retries_exceeded" {
		t.Fatalf("Expected max_retries_exceeded, got %v", err)
	}
	if calls != 3 {
		t.Errorf("Expected 3 calls, got %d", calls)
	}
	if _, failed := client.GetMetrics(); failed != 1 {
		t.Errorf("Expected 1 failure, got %d", failed)
	}
}

func TestSendNotificationStopsOnClientError(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	client := NewClient(testOptions(srv.URL))
	err := client.SendNotification(context.Background(), "hello")

	var notifErr *NotificationError
	if !errors.As(err, &notifErr) {
		t.Fatalf("Expected *NotificationError, got %v", err)
	}
	if notifErr.Type != "auth" || notifErr.StatusCode != http.StatusForbidden {
		t.Errorf("Unexpected error %+v", notifErr)
	}
	if calls != 1 {
		t.Errorf("Expected 1 call, got %d", calls)
	}
}

func TestCircuitBreakerOpens(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	client := NewClient(testOptions(srv.URL))
	for i := 0; i < breakerThreshold; i++ {
		client.SendNotification(context.Background(), "hello")
	}

	err := client.SendNotification(context.Background(), "hello")
	var notifErr *NotificationError
	if !errors.As(err, &notifErr) || notifErr.Type != "circuit_open" {
		t.Errorf("Expected circuit_open error, got %v", err)
	}
}

func TestDisabledClientIsNoop(t *testing.T) {
	client := NewClient(Options{BaseURL: "http://127.0.0.1:0", Topic: "orders"})
	if err := client.SendNotification(context.Background(), "hello"); err != nil {
		t.Errorf("Expected nil for disabled client, got %v", err)
	}

	var nilClient *Client
	nilClient.NotifyOrder(context.Background(), "U1", orders.Record{})
}

func TestFormatOrderMessage(t *testing.T) {
	record := orders.NewRecord(
		orders.Value{Field: "Customer Name", Text: "Alice"},
		orders.Value{Field: "Quantity", Text: "2"},
	)
	msg := FormatOrderMessage("U1", record)

	if !strings.HasPrefix(msg, "🛒 New order from U1") {
		t.Errorf("Unexpected title in %q", msg)
	}
	if !strings.Contains(msg, "\nCustomer Name: Alice\nQuantity: 2") {
		t.Errorf("Expected fields in column order, got %q", msg)
	}
}
