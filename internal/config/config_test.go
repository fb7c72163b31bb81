package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	// 指向空文件，全部依赖默认值
	cfg, err := Load(writeConfig(t, "{}\n"))
	require.NoError(t, err)

	assert.Equal(t, "rf-gateway", cfg.App.Name)
	assert.Equal(t, ":1433", cfg.TCP.Addr)
	assert.Equal(t, 5*time.Minute, cfg.TCP.ReadTimeout)
	assert.Equal(t, 32, cfg.Decoder.MaxDevices)
	assert.InDelta(t, 12.0, cfg.Decoder.MaxTempDelta, 1e-9)
	assert.False(t, cfg.Database.Enabled)
	assert.True(t, cfg.Sinks.Log)
	assert.Equal(t, "rtl_433", cfg.MQTT.TopicPrefix)
	assert.Equal(t, 500*time.Millisecond, cfg.Webhook.Backoff)
}

func TestLoad_FileOverrides(t *testing.T) {
	path := writeConfig(t, `
decoder:
  maxDevices: 8
  maxTempDelta: 5.5
mqtt:
  enabled: true
  broker: tcp://localhost:1883
  qos: 1
api:
  auth:
    enabled: true
    apiKeys: ["k1", "k2"]
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 8, cfg.Decoder.MaxDevices)
	assert.InDelta(t, 5.5, cfg.Decoder.MaxTempDelta, 1e-9)
	assert.Equal(t, byte(1), cfg.MQTT.QoS)
	assert.Equal(t, []string{"k1", "k2"}, cfg.API.Auth.APIKeys)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("RFGW_DECODER_MAXDEVICES", "4")
	t.Setenv("RFGW_TCP_ADDR", ":9000")
	cfg, err := Load(writeConfig(t, "{}\n"))
	require.NoError(t, err)
	assert.Equal(t, 4, cfg.Decoder.MaxDevices)
	assert.Equal(t, ":9000", cfg.TCP.Addr)
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	base := func() Config {
		return Config{Decoder: DecoderConfig{MaxDevices: 32, MaxTempDelta: 12}}
	}
	tests := []struct {
		name   string
		mutate func(*Config)
		ok     bool
	}{
		{"默认合法", func(*Config) {}, true},
		{"容量为0", func(c *Config) { c.Decoder.MaxDevices = 0 }, false},
		{"阈值为负", func(c *Config) { c.Decoder.MaxTempDelta = -1 }, false},
		{"mqtt缺少broker", func(c *Config) { c.MQTT.Enabled = true }, false},
		{"mqtt qos非法", func(c *Config) { c.MQTT.QoS = 3 }, false},
		{"webhook缺少url", func(c *Config) { c.Webhook.Enabled = true }, false},
		{"认证缺少key", func(c *Config) { c.API.Auth.Enabled = true }, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := base()
			tt.mutate(&c)
			err := c.Validate()
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}
