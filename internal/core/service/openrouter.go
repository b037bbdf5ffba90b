package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"pku-kitchen/internal/infrastructure/config"
	"pku-kitchen/internal/pkg/common"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// chatMessage OpenRouter chat 訊息
type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// chatRequest /chat/completions 請求
type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Temperature float64       `json:"temperature"`
}

// chatResponse /chat/completions 回應中需要的欄位
type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// OpenRouterService OpenRouter 服務
type OpenRouterService struct {
	config config.OpenRouterConfig
	client *resty.Client
}

// NewOpenRouterService 創建 OpenRouter 服務
func NewOpenRouterService(cfg config.OpenRouterConfig) *OpenRouterService {
	client := resty.New().
		SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
		SetHeader("Authorization", fmt.Sprintf("Bearer %s", cfg.APIKey)).
		SetHeader("HTTP-Referer", "https://pku-kitchen.local").
		SetHeader("X-Title", "PKU Kitchen")
	if cfg.Timeout > 0 {
		client.SetTimeout(cfg.Timeout)
	}

	return &OpenRouterService{
		config: cfg,
		client: client,
	}
}

// GenerateResponse 送出單輪對話並回傳模型輸出
func (s *OpenRouterService) GenerateResponse(ctx context.Context, systemPrompt, prompt string) (string, error) {
	messages := make([]chatMessage, 0, 2)
	if systemPrompt != "" {
		messages = append(messages, chatMessage{Role: "system", Content: systemPrompt})
	}
	messages = append(messages, chatMessage{Role: "user", Content: prompt})

	req := chatRequest{
		Model:       s.config.Model,
		Messages:    messages,
		MaxTokens:   s.config.MaxTokens,
		Temperature: 0.3,
	}

	start := time.Now()
	resp, err := s.client.R().
		SetContext(ctx).
		SetBody(req).
		Post("/chat/completions")
	if err != nil {
		err = common.ErrAIServiceError.Wrap(fmt.Errorf("failed to send request to OpenRouter: %w", err))
		common.LogUpstreamCall("openrouter", time.Since(start), err)
		return "", err
	}

	var result chatResponse
	parseErr := common.ParseJSONBytes(resp.Body(), &result)
	switch {
	case !resp.IsSuccess():
		msg := resp.String()
		if parseErr == nil && result.Error != nil && result.Error.Message != "" {
			msg = result.Error.Message
		}
		err = common.ErrAIServiceError.WithMessage(fmt.Sprintf("OpenRouter API returned %d: %s", resp.StatusCode(), msg))
	case parseErr != nil:
		err = common.ErrAIServiceError.Wrap(fmt.Errorf("failed to parse OpenRouter response: %w", parseErr))
	case len(result.Choices) == 0 || strings.TrimSpace(result.Choices[0].Message.Content) == "":
		err = common.ErrAIServiceError.WithMessage("no choices in OpenRouter response")
	}

	common.LogUpstreamCall("openrouter", time.Since(start), err,
		zap.String("model", s.config.Model),
		zap.Int("status", resp.StatusCode()),
	)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(result.Choices[0].Message.Content), nil
}
