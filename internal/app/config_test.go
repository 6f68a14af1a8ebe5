package app

import (
	"testing"
	"time"

	"messenger_orders/internal/sheets"
	"messenger_orders/internal/xlsx"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("VERIFY_TOKEN", "token")
	for _, key := range []string{"PORT", "GOOGLE_SHEET_NAME", "SPREADSHEET_ID", "GOOGLE_CREDENTIALS_FILE", "ORDER_SINK", "ORDERS_XLSX_PATH", "NTFY_ENABLED", "PAGE_ACCESS_TOKEN"} {
		t.Setenv(key, "")
	}

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if cfg.Port != "8000" || cfg.SheetName != "orders" || cfg.CredentialsFile != "credentials.json" {
		t.Errorf("Unexpected defaults %+v", cfg)
	}
	if cfg.Sink != SinkSheets || cfg.XLSXPath != "orders.xlsx" {
		t.Errorf("Unexpected sink defaults %s %s", cfg.Sink, cfg.XLSXPath)
	}
	if cfg.Notifications.Enabled || cfg.Notifications.MaxRetries != 3 || cfg.Notifications.BaseDelay != time.Second {
		t.Errorf("Unexpected notification defaults %+v", cfg.Notifications)
	}
}

func TestLoadConfigErrors(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{name: "missing token", env: map[string]string{"VERIFY_TOKEN": ""}},
		{name: "bad sink", env: map[string]string{"VERIFY_TOKEN": "t", "ORDER_SINK": "csv"}},
		{name: "bad retries", env: map[string]string{"VERIFY_TOKEN": "t", "ORDER_SINK": "", "NTFY_MAX_RETRIES": "many"}},
		{name: "bad delay", env: map[string]string{"VERIFY_TOKEN": "t", "ORDER_SINK": "", "NTFY_BASE_DELAY": "soon"}},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			for k, v := range test.env {
				t.Setenv(k, v)
			}
			if _, err := LoadConfig(); err == nil {
				t.Error("Expected error, got nil")
			}
		})
	}
}

func TestInitializeStore(t *testing.T) {
	if _, ok := InitializeStore(Config{Sink: SinkXLSX, XLSXPath: "orders.xlsx"}, nil).(xlsx.Store); !ok {
		t.Error("Expected xlsx.Store for xlsx sink")
	}
	if _, ok := InitializeStore(Config{Sink: SinkSheets}, nil).(*sheets.Sink); !ok {
		t.Error("Expected *sheets.Sink for sheets sink")
	}
}

func TestOptionalClientsDisabled(t *testing.T) {
	if InitializeNotificationClient(NotificationConfig{}) != nil {
		t.Error("Expected nil notification client when disabled")
	}
	if InitializeMessengerClient(Config{}) != nil {
		t.Error("Expected nil messenger client without token")
	}
}
