package sink

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	cfgpkg "github.com/taoyao-code/rf-gateway/internal/config"
	"github.com/taoyao-code/rf-gateway/internal/coremodel"
	"github.com/taoyao-code/rf-gateway/internal/metrics"
	"github.com/taoyao-code/rf-gateway/internal/thirdparty"
)

var testTime = time.Date(2025, 6, 1, 8, 30, 0, 0, time.UTC)

func reading(id, ch uint8, temp coremodel.Tenths) coremodel.Reading {
	return coremodel.NewReading("Oria-WA150KM", id, ch, temp, testTime)
}

type recorder struct {
	mu   sync.Mutex
	name string
	got  []coremodel.Reading
	err  error
}

func (r *recorder) Name() string { return r.name }

func (r *recorder) Emit(_ context.Context, rd coremodel.Reading) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.got = append(r.got, rd)
	return r.err
}

func (r *recorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.got)
}

func TestFanout_ContinuesAfterFailure(t *testing.T) {
	m := metrics.NewAppMetrics(metrics.NewRegistry())
	core, logs := observer.New(zapcore.WarnLevel)
	bad := &recorder{name: "bad", err: errors.New("down")}
	good := &recorder{name: "good"}
	f := NewFanout(zap.New(core), m, bad, nil, good)

	err := f.Emit(context.Background(), reading(0x42, 1, 40))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad: down")
	assert.Equal(t, 1, good.count())
	assert.Equal(t, []string{"bad", "good"}, f.Names())
	assert.Equal(t, 1, logs.FilterMessage("sink emit failed").Len())
	assert.Equal(t, float64(1), testutil.ToFloat64(m.SinkEmitTotal.WithLabelValues("bad", "error")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.SinkEmitTotal.WithLabelValues("good", "ok")))
}

func TestDispatcher_DeliversInOrder(t *testing.T) {
	rec := &recorder{name: "rec"}
	d := NewDispatcher(rec, 16, 1, nil, nil)
	d.Start()
	for i := 0; i < 10; i++ {
		require.True(t, d.Submit(reading(0x42, 1, coremodel.Tenths(i))))
	}
	require.NoError(t, d.Close(context.Background()))
	require.Equal(t, 10, rec.count())
	for i, r := range rec.got {
		assert.Equal(t, coremodel.Tenths(i), r.Temperature)
	}
	assert.False(t, d.Submit(reading(0x42, 1, 0)), "closed dispatcher must refuse")
}

func TestDispatcher_DropsWhenFull(t *testing.T) {
	m := metrics.NewAppMetrics(metrics.NewRegistry())
	rec := &recorder{name: "rec"}
	d := NewDispatcher(rec, 2, 1, m, nil)
	// 未启动 worker，队列只能容纳 2 条
	assert.True(t, d.Submit(reading(1, 1, 0)))
	assert.True(t, d.Submit(reading(1, 1, 0)))
	assert.False(t, d.Submit(reading(1, 1, 0)))
	assert.Equal(t, 2, d.Pending())
	assert.Equal(t, float64(1), testutil.ToFloat64(m.DispatchDropped))

	d.Start()
	require.NoError(t, d.Close(context.Background()))
	assert.Equal(t, 2, rec.count())
}

func TestCSVSink(t *testing.T) {
	var buf bytes.Buffer
	s := NewCSVSink(&buf, []string{"model", "id", "channel", "temperature_C"})
	require.NoError(t, s.Emit(context.Background(), reading(0x42, 3, -185)))
	require.NoError(t, s.Emit(context.Background(), reading(0x07, 1, 600)))
	assert.Equal(t, "model,id,channel,temperature_C\nOria-WA150KM,66,3,-18.5\nOria-WA150KM,7,1,60.0\n", buf.String())
}

func TestJSONSink(t *testing.T) {
	var buf bytes.Buffer
	s := NewJSONSink(&buf)
	require.NoError(t, s.Emit(context.Background(), reading(0x42, 3, -185)))
	var got map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, "Oria-WA150KM", got["model"])
	assert.Equal(t, float64(66), got["id"])
	assert.Equal(t, -18.5, got["temperature_C"])
}

func TestLogSink(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	require.NoError(t, NewLogSink(zap.New(core)).Emit(context.Background(), reading(0x42, 3, -185)))
	entries := logs.All()
	require.Len(t, entries, 1)
	assert.Equal(t, "-18.5", entries[0].ContextMap()["temperature_C"])
}

type fakeStore struct {
	recorder
}

func (f *fakeStore) InsertReading(ctx context.Context, r coremodel.Reading) error {
	return f.Emit(ctx, r)
}

func (f *fakeStore) TouchDevice(ctx context.Context, r coremodel.Reading) error {
	return f.Emit(ctx, r)
}

func TestPGSink(t *testing.T) {
	store := &fakeStore{}
	registry := &fakeStore{}
	s := NewPGSink(store, registry)
	require.NoError(t, s.Emit(context.Background(), reading(1, 1, 0)))
	assert.Equal(t, 1, store.count())
	assert.Equal(t, 1, registry.count())

	// 写日志失败时不登记设备
	store.err = errors.New("insert failed")
	require.Error(t, s.Emit(context.Background(), reading(1, 1, 0)))
	assert.Equal(t, 1, registry.count())

	require.NoError(t, NewPGSink(&fakeStore{}, nil).Emit(context.Background(), reading(1, 1, 0)))
}

type fakeCache struct {
	set, published int
	pubErr         error
}

func (f *fakeCache) SetLatest(context.Context, coremodel.Reading) error { f.set++; return nil }

func (f *fakeCache) Publish(context.Context, coremodel.Reading) error {
	f.published++
	return f.pubErr
}

func TestRedisSink(t *testing.T) {
	c := &fakeCache{pubErr: errors.New("no subscribers")}
	err := NewRedisSink(c).Emit(context.Background(), reading(1, 1, 0))
	assert.Error(t, err)
	assert.Equal(t, 1, c.set)
	assert.Equal(t, 1, c.published)
}

type fakeToken struct {
	done chan struct{}
	err  error
}

func (t *fakeToken) Wait() bool                     { <-t.done; return true }
func (t *fakeToken) WaitTimeout(time.Duration) bool { return true }
func (t *fakeToken) Done() <-chan struct{}          { return t.done }
func (t *fakeToken) Error() error                   { return t.err }

type fakePublisher struct {
	connected bool
	topic     string
	qos       byte
	retained  bool
	payload   []byte
}

func (p *fakePublisher) IsConnected() bool { return p.connected }

func (p *fakePublisher) Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token {
	p.topic, p.qos, p.retained = topic, qos, retained
	p.payload, _ = payload.([]byte)
	tok := &fakeToken{done: make(chan struct{})}
	close(tok.done)
	return tok
}

func TestMQTTSink(t *testing.T) {
	pub := &fakePublisher{connected: true}
	s := NewMQTTSink(pub, cfgpkg.MQTTConfig{TopicPrefix: "rtl_433", QoS: 1, Retain: true})
	require.NoError(t, s.Emit(context.Background(), reading(0x42, 3, -185)))
	assert.Equal(t, "rtl_433/Oria-WA150KM/3/66", pub.topic)
	assert.Equal(t, byte(1), pub.qos)
	assert.True(t, pub.retained)
	assert.Contains(t, string(pub.payload), `"temperature_C":-18.5`)

	pub.connected = false
	assert.ErrorIs(t, s.Emit(context.Background(), reading(0x42, 3, -185)), ErrMQTTNotConnected)

	noPrefix := NewMQTTSink(pub, cfgpkg.MQTTConfig{})
	assert.Equal(t, "Oria-WA150KM/1/7", noPrefix.Topic(reading(7, 1, 0)))
}

func TestWebhookSink(t *testing.T) {
	events := make(chan WebhookEvent, 1)
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get(thirdparty.HeaderSignature) == "" || !strings.HasSuffix(r.URL.Path, "/hook") {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		var ev WebhookEvent
		_ = json.NewDecoder(r.Body).Decode(&ev)
		events <- ev
		w.WriteHeader(http.StatusOK)
	}))
	defer ts.Close()

	s := NewWebhookSink(thirdparty.NewPusher(ts.Client(), "secret", 0, 0), ts.URL+"/hook")
	require.NoError(t, s.Emit(context.Background(), reading(0x42, 3, -185)))
	got := <-events
	assert.Equal(t, "reading", got.Event)
	assert.Equal(t, uint8(0x42), got.Reading.DeviceID)
	assert.InDelta(t, -18.5, got.Reading.TemperatureC, 1e-9)
}
