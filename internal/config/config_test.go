package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLoad_Defaults(t *testing.T) {
	for _, k := range []string{"APP_PORT", "MONGO_DB", "TOKEN_TTL_HOURS", "OTP_TTL_MINUTES", "OTP_RATE_LIMIT", "MAIL_TRANSPORT", "STORAGE_BACKEND", "LOG_PROD"} {
		t.Setenv(k, "")
	}
	c := Load()
	assert.Equal(t, "3000", c.Port)
	assert.Equal(t, "doux_event", c.MongoDB)
	assert.Equal(t, 24, c.TokenTTLHours)
	assert.Equal(t, 5, c.OTPTTLMinutes)
	assert.Zero(t, c.OTPRateLimit)
	assert.Equal(t, "direct", c.MailTransport)
	assert.Equal(t, "disk", c.StorageBackend)
	assert.False(t, c.LogProd)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("APP_PORT", "8080")
	t.Setenv("MAIL_TRANSPORT", "QUEUE")
	t.Setenv("TOKEN_HISTORY_LIMIT", "20")
	t.Setenv("OTP_RATE_LIMIT", "10")
	t.Setenv("LOG_PROD", "true")
	t.Setenv("EMAIL_HOST", "events@example.com")
	t.Setenv("SMTP_USER", "")
	t.Setenv("MAIL_FROM", "")

	c := Load()
	assert.Equal(t, "8080", c.Port)
	assert.Equal(t, "queue", c.MailTransport)
	assert.Equal(t, 20, c.TokenHistoryLimit)
	assert.Equal(t, 10, c.OTPRateLimit)
	assert.True(t, c.LogProd)
	assert.Equal(t, "events@example.com", c.SMTPUser)
	assert.Equal(t, "events@example.com", c.MailFrom)
}
