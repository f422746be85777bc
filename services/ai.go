package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"chatorder-backend/config"
)

var (
	ErrRateLimited = errors.New("ai: rate limited")
	ErrNoAnswer    = errors.New("ai: no answer")
)

// AIContext 给兜底模型的精简店铺信息
type AIContext struct {
	Business string
	Catalog  string // 最多 50 条
	Hours    string
	Address  string
	Payment  string
}

// Responder AI 兜底回答
type Responder interface {
	Answer(ctx context.Context, question string, info AIContext) (string, error)
}

type responsesInputMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type responsesCreateRequest struct {
	Model           string                  `json:"model"`
	Instructions    string                  `json:"instructions,omitempty"`
	Input           []responsesInputMessage `json:"input"`
	MaxOutputTokens int                     `json:"max_output_tokens,omitempty"`
}

type responsesCreateResponse struct {
	Status     string `json:"status"`
	OutputText string `json:"output_text"`
	Error      *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
	Output []struct {
		Type    string `json:"type"`
		Role    string `json:"role"`
		Content []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"content"`
	} `json:"output"`
}

// OpenAIResponder 调 OpenAI Responses API
type OpenAIResponder struct {
	APIKey  string
	Model   string
	BaseURL string
	client  *http.Client
}

func NewOpenAIResponder(cfg config.AIConfig) *OpenAIResponder {
	timeout := time.Duration(cfg.TimeoutSec) * time.Second
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	return &OpenAIResponder{
		APIKey:  cfg.APIKey,
		Model:   cfg.Model,
		BaseURL: strings.TrimRight(cfg.BaseURL, "/"),
		client:  &http.Client{Timeout: timeout},
	}
}

const noAnswerToken = "NO_ANSWER"

func buildInstructions(info AIContext) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Sos el asistente de %s. Respondé en español, breve y amable, solo sobre la tienda.\n", info.Business)
	if info.Hours != "" {
		fmt.Fprintf(&b, "Horarios: %s\n", info.Hours)
	}
	if info.Address != "" {
		fmt.Fprintf(&b, "Dirección: %s\n", info.Address)
	}
	if info.Payment != "" {
		fmt.Fprintf(&b, "Medios de pago: %s\n", info.Payment)
	}
	if info.Catalog != "" {
		b.WriteString("Catálogo:\n")
		b.WriteString(info.Catalog)
	}
	fmt.Fprintf(&b, "Si no sabés la respuesta, respondé exactamente %s.", noAnswerToken)
	return b.String()
}

func (o *OpenAIResponder) Answer(ctx context.Context, question string, info AIContext) (string, error) {
	reqBody := responsesCreateRequest{
		Model:           o.Model,
		Instructions:    buildInstructions(info),
		Input:           []responsesInputMessage{{Role: "user", Content: question}},
		MaxOutputTokens: 300,
	}
	j, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("openai marshal error: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.BaseURL+"/responses", bytes.NewReader(j))
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+o.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := o.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	out, _ := io.ReadAll(resp.Body)
	if resp.StatusCode == http.StatusTooManyRequests {
		return "", ErrRateLimited
	}
	if resp.StatusCode >= 300 {
		return "", fmt.Errorf("openai responses api error (%d): %s", resp.StatusCode, string(out))
	}

	var parsed responsesCreateResponse
	if err := json.Unmarshal(out, &parsed); err != nil {
		return "", fmt.Errorf("openai parse error: %w", err)
	}
	if parsed.Error != nil {
		if parsed.Error.Code == "rate_limit_exceeded" {
			return "", ErrRateLimited
		}
		return "", fmt.Errorf("openai error (%s): %s", parsed.Error.Code, parsed.Error.Message)
	}

	reply := extractResponseText(parsed)
	if reply == "" || strings.Contains(reply, noAnswerToken) {
		return "", ErrNoAnswer
	}
	return reply, nil
}

func extractResponseText(parsed responsesCreateResponse) string {
	if s := strings.TrimSpace(parsed.OutputText); s != "" {
		return s
	}
	var reply strings.Builder
	for _, item := range parsed.Output {
		if item.Type != "message" || item.Role != "assistant" {
			continue
		}
		for _, c := range item.Content {
			if c.Type == "output_text" {
				reply.WriteString(c.Text)
			}
		}
	}
	return strings.TrimSpace(reply.String())
}

// AskWithRetry 被限流时等一小会儿再试一次
func AskWithRetry(ctx context.Context, r Responder, question string, info AIContext, delay time.Duration) (string, error) {
	answer, err := r.Answer(ctx, question, info)
	if !errors.Is(err, ErrRateLimited) {
		return answer, err
	}
	logrus.WithField("delay", delay).Warn("⏳ AI 被限流，稍后重试一次")
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case <-time.After(delay):
	}
	return r.Answer(ctx, question, info)
}
