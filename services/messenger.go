package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"chatorder-backend/apperr"
	"chatorder-backend/config"
)

// Messenger 出站消息通道，失败只返回错误，不重试
type Messenger interface {
	SendText(ctx context.Context, to, text string) error
	SendMedia(ctx context.Context, to, mediaURL, caption string) error
}

// NewMessenger 配了网关地址走 HTTP，否则只打日志
func NewMessenger(cfg config.TransportConfig) Messenger {
	if cfg.OutboundURL == "" {
		return LogMessenger{}
	}
	timeout := time.Duration(cfg.TimeoutSec) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HTTPMessenger{
		URL:    cfg.OutboundURL,
		Token:  cfg.Token,
		client: &http.Client{Timeout: timeout},
	}
}

type outboundPayload struct {
	To       string `json:"to"`
	Text     string `json:"text,omitempty"`
	MediaURL string `json:"media_url,omitempty"`
	Caption  string `json:"caption,omitempty"`
}

// HTTPMessenger 把消息 POST 给传输网关
type HTTPMessenger struct {
	URL    string
	Token  string
	client *http.Client
}

func (m *HTTPMessenger) SendText(ctx context.Context, to, text string) error {
	return m.post(ctx, outboundPayload{To: to, Text: text})
}

func (m *HTTPMessenger) SendMedia(ctx context.Context, to, mediaURL, caption string) error {
	return m.post(ctx, outboundPayload{To: to, MediaURL: mediaURL, Caption: caption})
}

func (m *HTTPMessenger) post(ctx context.Context, payload outboundPayload) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return apperr.External("messenger.Send", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.URL, bytes.NewReader(body))
	if err != nil {
		return apperr.External("messenger.Send", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if m.Token != "" {
		req.Header.Set("Authorization", "Bearer "+m.Token)
	}

	resp, err := m.client.Do(req)
	if err != nil {
		return apperr.External("messenger.Send", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		out, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return apperr.External("messenger.Send", fmt.Errorf("gateway error (%d): %s", resp.StatusCode, string(out)))
	}
	return nil
}

// LogMessenger 没有网关时的占位实现
type LogMessenger struct{}

func (LogMessenger) SendText(ctx context.Context, to, text string) error {
	logrus.WithFields(logrus.Fields{"to": to, "text": text}).Info("✉️ 出站消息(未配置网关)")
	return nil
}

func (LogMessenger) SendMedia(ctx context.Context, to, mediaURL, caption string) error {
	logrus.WithFields(logrus.Fields{"to": to, "media": mediaURL, "caption": caption}).Info("🖼️ 出站图片(未配置网关)")
	return nil
}
