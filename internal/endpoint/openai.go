package endpoint

import (
	"context"
	"fmt"
	log "log/slog"
	"net/http"
	"strings"

	openai "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"delta/internal/domain"
)

const systemPrompt = `You are Delta, a voice assistant.
Your replies are read aloud by a speech synthesizer.
Answer in one or two short plain sentences. No markdown, lists or emoji.`

type OpenAIConfig struct {
	APIKey  string
	Model   string
	BaseURL string // empty for the public API
}

// OpenAI answers commands with a chat completion. It has no server session,
// so Logout is a no-op.
type OpenAI struct {
	client openai.Client
	model  string
	lg     *log.Logger
}

func NewOpenAI(cfg OpenAIConfig, hc *http.Client, lg *log.Logger) (*OpenAI, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openai: api key not set")
	}
	if cfg.Model == "" {
		cfg.Model = string(openai.ChatModelGPT5Nano)
	}

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(1),
	}
	if hc != nil {
		opts = append(opts, option.WithHTTPClient(hc))
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	if lg == nil {
		lg = log.Default()
	}
	return &OpenAI{
		client: openai.NewClient(opts...),
		model:  cfg.Model,
		lg:     lg.With("component", "openai"),
	}, nil
}

func (o *OpenAI) Send(ctx context.Context, command string) (string, error) {
	resp, err := o.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPrompt),
			openai.UserMessage(command),
		},
		Model: openai.ChatModel(o.model),
	})
	if err != nil {
		return "", fmt.Errorf("%w: chat completion: %w", domain.ErrTransport, err)
	}
	if len(resp.Choices) == 0 {
		return "", domain.ErrEmptyReply
	}

	reply := strings.TrimSpace(resp.Choices[0].Message.Content)
	if reply == "" {
		return "", domain.ErrEmptyReply
	}

	o.lg.Debug("Completion ready", "model", resp.Model, "tokens", resp.Usage.TotalTokens)
	return reply, nil
}

func (o *OpenAI) Logout(context.Context) error {
	return nil
}
