package config

import (
	"time"

	"messenger_orders/internal/retry"
)

// ResilienceConfig holds retry policies for outbound calls made after an
// order is saved. The ingestion path itself is never retried.
type ResilienceConfig struct {
	MessengerSend retry.Config
}

var DefaultResilienceConfig = ResilienceConfig{
	MessengerSend: retry.Config{
		MaxRetries: 3,
		BaseDelay:  1 * time.Second,
		MaxDelay:   15 * time.Second,
		Timeout:    10 * time.Second,
	},
}
