package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig(t *testing.T) {
	content := `
server:
  addr: ":5002"
phonepe:
  host: "https://api.phonepe.test"
  merchantId: "MID"
  saltKey: "salt"
  saltIndex: "1"
  callbackUrl: "http://localhost:5002/api/v1/payments/callback"
  timeoutSeconds: 5
smtp:
  adminEmail: "admin@example.com"
`
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, ":5002", cfg.Server.Addr)
	assert.Equal(t, "MID", cfg.PhonePe.MerchantID)
	assert.Equal(t, "1", cfg.PhonePe.SaltIndex)
	assert.Equal(t, 5, cfg.PhonePe.TimeoutSeconds)
	assert.Equal(t, "admin@example.com", cfg.SMTP.AdminEmail)
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
