package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestGetDuration(t *testing.T) {
	tests := []struct {
		name     string
		value    string
		expected time.Duration
	}{
		{name: "unset uses fallback", value: "", expected: 30 * time.Second},
		{name: "go duration", value: "45s", expected: 45 * time.Second},
		{name: "bare seconds", value: "10", expected: 10 * time.Second},
		{name: "garbage uses fallback", value: "soon", expected: 30 * time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("TEST_GATEWAY_TIMEOUT", tt.value)
			assert.Equal(t, tt.expected, getDuration("TEST_GATEWAY_TIMEOUT", 30*time.Second))
		})
	}
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("PAYMENT_GATEWAY", "")
	t.Setenv("APP_URL", "https://school.example.com/")
	t.Setenv("SMTP_PORT", "2525")
	t.Setenv("CACHE_PREFIX", "")
	t.Setenv("CACHE_TTL", "")

	cfg := Load()

	assert.Equal(t, "paystack", cfg.PaymentGateway)
	assert.Equal(t, "https://school.example.com", cfg.AppURL)
	assert.Equal(t, 2525, cfg.SMTPPort)
	assert.Equal(t, 30*time.Second, cfg.GatewayTimeout)
	assert.Equal(t, "GHS", cfg.Currency)
	assert.Equal(t, "school_fees", cfg.CachePrefix)
	assert.Equal(t, 5*time.Minute, cfg.CacheTTL)
}
