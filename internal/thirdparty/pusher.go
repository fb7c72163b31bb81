package thirdparty

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/google/uuid"
)

// 推送请求头
const (
	HeaderSignature = "X-Signature"
	HeaderTimestamp = "X-Timestamp"
	HeaderNonce     = "X-Nonce"
	HeaderEventID   = "X-Event-Id"
)

// ErrNilPusher 未配置推送器
var ErrNilPusher = errors.New("nil pusher")

// Pusher 签名 JSON 推送，5xx 与网络错误按退避重试，连续失败时熔断
type Pusher struct {
	Client  *http.Client
	Secret  string
	Retries int
	Backoff []time.Duration
	Breaker *CircuitBreaker

	now func() time.Time
}

// NewPusher 创建推送器；backoff 为首次重试等待，之后每次翻倍
func NewPusher(client *http.Client, secret string, retries int, backoff time.Duration) *Pusher {
	if client == nil {
		client = &http.Client{Timeout: 5 * time.Second}
	}
	if retries < 0 {
		retries = 0
	}
	if backoff <= 0 {
		backoff = 200 * time.Millisecond
	}
	steps := make([]time.Duration, 0, retries)
	for i := 0; i < retries; i++ {
		steps = append(steps, backoff<<i)
	}
	return &Pusher{
		Client:  client,
		Secret:  secret,
		Retries: retries,
		Backoff: steps,
		Breaker: NewCircuitBreaker(5, 30*time.Second),
		now:     time.Now,
	}
}

// SendJSON 发送 JSON，自动添加签名头；返回最后一次的状态码与响应体
func (p *Pusher) SendJSON(ctx context.Context, endpoint string, payload any) (int, []byte, error) {
	if p == nil || p.Client == nil {
		return 0, nil, ErrNilPusher
	}
	u, err := url.Parse(endpoint)
	if err != nil {
		return 0, nil, err
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return 0, nil, err
	}

	var code int
	var respBody []byte
	send := func() error {
		code, respBody, err = p.sendWithRetry(ctx, u, body)
		return err
	}
	if p.Breaker == nil {
		err = send()
	} else {
		err = p.Breaker.Call(send)
	}
	return code, respBody, err
}

func (p *Pusher) sendWithRetry(ctx context.Context, u *url.URL, body []byte) (int, []byte, error) {
	eventID := uuid.NewString()
	var lastErr error
	var code int
	var respBody []byte
	for attempt := 0; attempt <= p.Retries; attempt++ {
		code, respBody, lastErr = p.do(ctx, u, body, eventID)
		if lastErr == nil {
			if code >= 200 && code < 300 {
				return code, respBody, nil
			}
			// 4xx 不重试
			if code < 500 {
				return code, respBody, fmt.Errorf("http %d", code)
			}
			lastErr = fmt.Errorf("http %d", code)
		}
		if attempt == p.Retries {
			break
		}
		wait := p.Backoff[min(attempt, len(p.Backoff)-1)]
		select {
		case <-ctx.Done():
			return code, respBody, ctx.Err()
		case <-time.After(wait):
		}
	}
	return code, respBody, lastErr
}

// do 每次尝试重新构造请求与签名（请求体不可复用）
func (p *Pusher) do(ctx context.Context, u *url.URL, body []byte, eventID string) (int, []byte, error) {
	ts := p.now().Unix()
	nonce := uuid.NewString()[:8]
	sig := SignHMAC(p.Secret, Canonical(http.MethodPost, u.Path, ts, nonce, body))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.String(), bytes.NewReader(body))
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(HeaderSignature, sig)
	req.Header.Set(HeaderTimestamp, strconv.FormatInt(ts, 10))
	req.Header.Set(HeaderNonce, nonce)
	req.Header.Set(HeaderEventID, eventID)

	resp, err := p.Client.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()
	rb, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	return resp.StatusCode, rb, nil
}
