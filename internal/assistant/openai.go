package assistant

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	openai "github.com/sashabaranov/go-openai"
)

// Ensure OpenAIGateway implements Gateway.
var _ Gateway = (*OpenAIGateway)(nil)

// OpenAIGateway talks to the OpenAI Assistants API.
type OpenAIGateway struct {
	client      *openai.Client
	assistantID string
	logger      *slog.Logger
}

// OpenAIConfig holds the credentials for the gateway. Both fields are
// required; validation happens at startup, not mid-request.
type OpenAIConfig struct {
	APIKey      string
	AssistantID string
}

// NewOpenAIGateway creates a gateway backed by the OpenAI Assistants API.
func NewOpenAIGateway(cfg OpenAIConfig, logger *slog.Logger) (*OpenAIGateway, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("assistant: API key is required")
	}
	if cfg.AssistantID == "" {
		return nil, errors.New("assistant: assistant id is required")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &OpenAIGateway{
		client:      openai.NewClient(cfg.APIKey),
		assistantID: cfg.AssistantID,
		logger:      logger,
	}, nil
}

// CreateThread creates a new remote conversation thread.
func (g *OpenAIGateway) CreateThread(ctx context.Context) (string, error) {
	thread, err := g.client.CreateThread(ctx, openai.ThreadRequest{})
	if err != nil {
		return "", fmt.Errorf("create thread: %w", err)
	}
	g.logger.Debug("created assistant thread", "thread_id", thread.ID)
	return thread.ID, nil
}

// RetrieveThread verifies that a thread still exists remotely.
func (g *OpenAIGateway) RetrieveThread(ctx context.Context, threadID string) error {
	if _, err := g.client.RetrieveThread(ctx, threadID); err != nil {
		if isNotFound(err) {
			return fmt.Errorf("retrieve thread %s: %w", threadID, ErrThreadNotFound)
		}
		return fmt.Errorf("retrieve thread %s: %w", threadID, err)
	}
	return nil
}

// PostUserMessage appends a user message to a thread.
func (g *OpenAIGateway) PostUserMessage(ctx context.Context, threadID, content string) error {
	_, err := g.client.CreateMessage(ctx, threadID, openai.MessageRequest{
		Role:    openai.ChatMessageRoleUser,
		Content: content,
	})
	if err != nil {
		return fmt.Errorf("post message to thread %s: %w", threadID, err)
	}
	return nil
}

// StartRun starts an assistant run against a thread's messages.
func (g *OpenAIGateway) StartRun(ctx context.Context, threadID string) (string, error) {
	run, err := g.client.CreateRun(ctx, threadID, openai.RunRequest{
		AssistantID: g.assistantID,
	})
	if err != nil {
		return "", fmt.Errorf("start run on thread %s: %w", threadID, err)
	}
	return run.ID, nil
}

// GetRun fetches the current state of a run.
func (g *OpenAIGateway) GetRun(ctx context.Context, threadID, runID string) (Run, error) {
	run, err := g.client.RetrieveRun(ctx, threadID, runID)
	if err != nil {
		return Run{}, fmt.Errorf("retrieve run %s: %w", runID, err)
	}
	return Run{
		ID:               run.ID,
		Status:           RunStatus(run.Status),
		PromptTokens:     run.Usage.PromptTokens,
		CompletionTokens: run.Usage.CompletionTokens,
	}, nil
}

// LatestMessage fetches the most recent message in a thread.
func (g *OpenAIGateway) LatestMessage(ctx context.Context, threadID string) (ThreadMessage, error) {
	limit := 1
	order := "desc"
	list, err := g.client.ListMessage(ctx, threadID, &limit, &order, nil, nil, nil)
	if err != nil {
		return ThreadMessage{}, fmt.Errorf("list messages on thread %s: %w", threadID, err)
	}
	if len(list.Messages) == 0 || len(list.Messages[0].Content) == 0 {
		return ThreadMessage{}, nil
	}

	latest := list.Messages[0]
	content := latest.Content[0]
	msg := ThreadMessage{
		Role: string(latest.Role),
		Kind: content.Type,
	}
	if content.Text != nil {
		msg.Text = content.Text.Value
	}
	return msg, nil
}

// DeleteThread deletes a remote thread.
func (g *OpenAIGateway) DeleteThread(ctx context.Context, threadID string) error {
	if _, err := g.client.DeleteThread(ctx, threadID); err != nil {
		if isNotFound(err) {
			return fmt.Errorf("delete thread %s: %w", threadID, ErrThreadNotFound)
		}
		return fmt.Errorf("delete thread %s: %w", threadID, err)
	}
	return nil
}

func isNotFound(err error) bool {
	var apiErr *openai.APIError
	return errors.As(err, &apiErr) && apiErr.HTTPStatusCode == http.StatusNotFound
}
