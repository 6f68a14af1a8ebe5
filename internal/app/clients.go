package app

import (
	"messenger_orders/internal/messenger"
	"messenger_orders/internal/notifications"
	"messenger_orders/internal/orders"
	"messenger_orders/internal/sheets"
	"messenger_orders/internal/webhook"
	"messenger_orders/internal/xlsx"

	"github.com/rs/zerolog/log"
)

// InitializeStore returns the configured order sink.
func InitializeStore(cfg Config, patterns orders.PatternSet) webhook.OrderStore {
	if cfg.Sink == SinkXLSX {
		log.Info().Str("path", cfg.XLSXPath).Msg("Saving orders to local workbook")
		return xlsx.Store{Sink: xlsx.NewSink(cfg.XLSXPath, patterns)}
	}

	log.Info().
		Str("sheet_name", cfg.SheetName).
		Str("spreadsheet_id", cfg.SpreadsheetID).
		Msg("Saving orders to Google Sheets")

	opener := sheets.ClientOpener(sheets.Target{
		CredentialsFile: cfg.CredentialsFile,
		SpreadsheetID:   cfg.SpreadsheetID,
		Name:            cfg.SheetName,
	})
	return sheets.NewSink(opener, patterns)
}

// InitializeNotificationClient returns nil when notifications are disabled.
func InitializeNotificationClient(cfg NotificationConfig) *notifications.Client {
	log.Debug().
		Bool("enabled", cfg.Enabled).
		Str("base_url", cfg.BaseURL).
		Str("topic", cfg.Topic).
		Msg("Initializing notification client")

	if !cfg.Enabled {
		log.Debug().Msg("Notifications disabled")
		return nil
	}

	log.Info().Str("topic", cfg.Topic).Msg("Notifications enabled")
	return notifications.NewClient(notifications.Options{
		BaseURL:    cfg.BaseURL,
		Topic:      cfg.Topic,
		Enabled:    true,
		Priority:   cfg.Priority,
		MaxRetries: cfg.MaxRetries,
		BaseDelay:  cfg.BaseDelay,
		MaxDelay:   cfg.MaxDelay,
	})
}

// InitializeMessengerClient returns nil when no page access token is set.
func InitializeMessengerClient(cfg Config) *messenger.Client {
	if cfg.PageAccessToken == "" {
		log.Debug().Msg("PAGE_ACCESS_TOKEN not set, order confirmations disabled")
		return nil
	}
	log.Info().Msg("Order confirmations enabled")
	return messenger.NewClient(cfg.PageAccessToken, cfg.GraphAPIURL)
}

// NewWebhookHandler wires the handler from cfg.
func NewWebhookHandler(cfg Config) *webhook.Handler {
	patterns := orders.DefaultPatterns
	opts := webhook.Options{
		VerifyToken: cfg.VerifyToken,
		Patterns:    patterns,
		Store:       InitializeStore(cfg, patterns),
	}
	// assign only non-nil clients so the interfaces stay nil
	if n := InitializeNotificationClient(cfg.Notifications); n != nil {
		opts.Notifier = n
	}
	if m := InitializeMessengerClient(cfg); m != nil {
		opts.Replier = m
	}
	return webhook.NewHandler(opts)
}
