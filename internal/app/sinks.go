package app

import (
	"net/http"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"

	cfgpkg "github.com/taoyao-code/rf-gateway/internal/config"
	"github.com/taoyao-code/rf-gateway/internal/sink"
	"github.com/taoyao-code/rf-gateway/internal/thirdparty"
)

// NewMQTTClient 连接 MQTT broker，未启用时返回 nil, nil
func NewMQTTClient(cfg cfgpkg.MQTTConfig, logger *zap.Logger) (mqtt.Client, error) {
	if !cfg.Enabled {
		logger.Info("mqtt is disabled, skipping initialization")
		return nil, nil
	}
	client, err := sink.DialMQTT(cfg, logger.Named("mqtt"))
	if err != nil {
		return nil, err
	}
	logger.Info("mqtt client initialized",
		zap.String("broker", cfg.Broker),
		zap.String("topic_prefix", cfg.TopicPrefix))
	return client, nil
}

// NewWebhookSink 按配置创建签名推送出口，未启用时返回 nil
func NewWebhookSink(cfg cfgpkg.WebhookConfig) *sink.WebhookSink {
	if !cfg.Enabled || cfg.URL == "" {
		return nil
	}
	client := &http.Client{Timeout: cfg.Timeout}
	pusher := thirdparty.NewPusher(client, cfg.Secret, cfg.Retries, cfg.Backoff)
	return sink.NewWebhookSink(pusher, cfg.URL)
}
