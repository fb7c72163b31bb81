package sink

import (
	"context"

	"github.com/taoyao-code/rf-gateway/internal/coremodel"
	"github.com/taoyao-code/rf-gateway/internal/thirdparty"
)

// WebhookEvent 推送负载
type WebhookEvent struct {
	Event   string            `json:"event"`
	Reading coremodel.Reading `json:"reading"`
}

// WebhookSink 以签名 JSON 推送每条读数
type WebhookSink struct {
	pusher *thirdparty.Pusher
	url    string
}

func NewWebhookSink(p *thirdparty.Pusher, url string) *WebhookSink {
	return &WebhookSink{pusher: p, url: url}
}

func (s *WebhookSink) Name() string { return "webhook" }

func (s *WebhookSink) Emit(ctx context.Context, r coremodel.Reading) error {
	_, _, err := s.pusher.SendJSON(ctx, s.url, WebhookEvent{Event: "reading", Reading: r})
	return err
}
