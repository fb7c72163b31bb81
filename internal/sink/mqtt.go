package sink

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"

	cfgpkg "github.com/taoyao-code/rf-gateway/internal/config"
	"github.com/taoyao-code/rf-gateway/internal/coremodel"
)

// ErrMQTTNotConnected broker 连接断开期间的发布失败
var ErrMQTTNotConnected = errors.New("mqtt not connected")

// publisher MQTT 客户端中本包用到的部分
type publisher interface {
	IsConnected() bool
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
}

// MQTTSink 发布到 <prefix>/<model>/<channel>/<id>，负载为读数 JSON
type MQTTSink struct {
	client  publisher
	prefix  string
	qos     byte
	retain  bool
	timeout time.Duration
}

// DialMQTT 连接 broker 并返回客户端；自动重连
func DialMQTT(cfg cfgpkg.MQTTConfig, logger *zap.Logger) (mqtt.Client, error) {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(cfg.Broker)
	opts.SetClientID(cfg.ClientID)
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
	}
	if cfg.Password != "" {
		opts.SetPassword(cfg.Password)
	}
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(10 * time.Second)
	opts.SetKeepAlive(60 * time.Second)
	opts.SetPingTimeout(10 * time.Second)
	opts.SetOnConnectHandler(func(mqtt.Client) {
		logger.Info("mqtt connected", zap.String("broker", cfg.Broker))
	})
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		logger.Warn("mqtt connection lost", zap.Error(err))
	})

	client := mqtt.NewClient(opts)
	token := client.Connect()
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	// ConnectRetry 开启时 Connect 在后台重试，超时不视为失败
	if token.WaitTimeout(timeout) && token.Error() != nil {
		return nil, fmt.Errorf("connect mqtt broker: %w", token.Error())
	}
	return client, nil
}

// NewMQTTSink 创建 MQTT 输出端
func NewMQTTSink(client publisher, cfg cfgpkg.MQTTConfig) *MQTTSink {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &MQTTSink{client: client, prefix: cfg.TopicPrefix, qos: cfg.QoS, retain: cfg.Retain, timeout: timeout}
}

func (s *MQTTSink) Name() string { return "mqtt" }

// Topic 读数对应的主题
func (s *MQTTSink) Topic(r coremodel.Reading) string {
	t := fmt.Sprintf("%s/%d/%d", r.Model, r.Channel, r.DeviceID)
	if s.prefix == "" {
		return t
	}
	return s.prefix + "/" + t
}

func (s *MQTTSink) Emit(ctx context.Context, r coremodel.Reading) error {
	if !s.client.IsConnected() {
		return ErrMQTTNotConnected
	}
	payload, err := json.Marshal(r)
	if err != nil {
		return err
	}
	token := s.client.Publish(s.Topic(r), s.qos, s.retain, payload)
	select {
	case <-token.Done():
		return token.Error()
	case <-time.After(s.timeout):
		return fmt.Errorf("mqtt publish timeout after %s", s.timeout)
	case <-ctx.Done():
		return ctx.Err()
	}
}
