package app

import (
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	cfgpkg "github.com/taoyao-code/rf-gateway/internal/config"
	"github.com/taoyao-code/rf-gateway/internal/coremodel"
	"github.com/taoyao-code/rf-gateway/internal/health"
	"github.com/taoyao-code/rf-gateway/internal/metrics"
	"github.com/taoyao-code/rf-gateway/internal/protocol/oria"
)

func TestNewDecoderFromConfig(t *testing.T) {
	dec := NewDecoder(cfgpkg.DecoderConfig{MaxDevices: 4, MaxTempDelta: 5.5}, zap.NewNop())
	assert.Equal(t, 4, dec.Table().Cap())
	assert.Equal(t, coremodel.Tenths(55), dec.MaxDelta())
}

func TestDisabledIntegrations(t *testing.T) {
	log := zap.NewNop()
	rc, err := NewRedisClient(cfgpkg.RedisConfig{Enabled: false}, log)
	assert.NoError(t, err)
	assert.Nil(t, rc)

	mc, err := NewMQTTClient(cfgpkg.MQTTConfig{Enabled: false}, log)
	assert.NoError(t, err)
	assert.Nil(t, mc)

	assert.Nil(t, NewWebhookSink(cfgpkg.WebhookConfig{Enabled: false}))
	assert.Nil(t, NewWebhookSink(cfgpkg.WebhookConfig{Enabled: true}))
	assert.NotNil(t, NewWebhookSink(cfgpkg.WebhookConfig{Enabled: true, URL: "http://127.0.0.1:1/hook", Retries: 1}))
}

func TestTCPServerDecodesIntoHandler(t *testing.T) {
	_, appm := NewMetrics()
	dec := NewDecoder(cfgpkg.DecoderConfig{MaxDevices: 8, MaxTempDelta: 12}, zap.NewNop())
	got := make(chan coremodel.Reading, 1)
	srv := NewTCPServer(cfgpkg.TCPConfig{Addr: "127.0.0.1:0", ReadTimeout: time.Second}, dec,
		func(r coremodel.Reading) { got <- r }, appm, zap.NewNop())
	require.NoError(t, srv.Start())
	defer func() { _ = srv.Shutdown(t.Context()) }()

	f, err := oria.BuildFrame(0x42, 2, 15, oria.DefaultMsgType)
	require.NoError(t, err)
	conn, err := net.Dial("tcp", srv.Addr().String())
	require.NoError(t, err)
	defer conn.Close()
	_, err = conn.Write([]byte(oria.EncodeCodes(f) + "\n"))
	require.NoError(t, err)

	select {
	case r := <-got:
		assert.Equal(t, uint8(0x42), r.DeviceID)
		assert.Equal(t, 1.5, r.TemperatureC)
	case <-time.After(2 * time.Second):
		t.Fatal("reading not delivered")
	}

	agg := NewHealthAggregator(health.New(), dec)
	AddTCPChecker(agg, srv)
	assert.Len(t, agg.CheckAll(t.Context()), 3)
}

func TestHTTPServerMetricsToggle(t *testing.T) {
	reg, _ := NewMetrics()
	cfg := &cfgpkg.Config{HTTP: cfgpkg.HTTPConfig{Addr: ":0"}, Metrics: cfgpkg.MetricsConfig{Enable: false, Path: "/metrics"}}
	srv := NewHTTPServer(cfg, metrics.Handler(reg), nil, zap.NewNop())

	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}
