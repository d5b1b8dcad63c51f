// Package agent produces the autonomous research event stream for one
// query: understand, plan, execute the plan with research tools, then
// stream the answer.
package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/SebastianBO/quant-platform-sub005/internal/config"
	"github.com/SebastianBO/quant-platform-sub005/internal/research"
)

// LLM is the language-model surface the runner needs: a plan call and a
// streamed answer call.
type LLM interface {
	PlanTasks(ctx context.Context, query string, maxTasks int) ([]research.Task, error)
	StreamAnswer(ctx context.Context, query string, history []research.HistoryEntry, findings string, emit func(chunk string) error) error
}

const planSystemPrompt = `You are a financial research planner. Given a user question about a stock
or sector, reply with a JSON array of 2-5 short task descriptions, for
example: ["Fetch the latest price snapshot","Review profitability metrics"].
Reply with the JSON array only.`

const answerSystemPrompt = `You are a financial research assistant. Answer the user's question using
the findings below. Be concise, cite concrete figures from the findings and
note that estimates are estimates. Findings:

%s`

// OpenAILLM implements LLM on the OpenAI chat completion API.
type OpenAILLM struct {
	client *openai.Client
	model  string
}

func NewOpenAILLM(cfg config.OpenAIConfig) *OpenAILLM {
	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}
	return &OpenAILLM{
		client: openai.NewClientWithConfig(clientConfig),
		model:  cfg.Model,
	}
}

func (l *OpenAILLM) PlanTasks(ctx context.Context, query string, maxTasks int) ([]research.Task, error) {
	resp, err := l.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: l.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: planSystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: query},
		},
	})
	if err != nil {
		return nil, err
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("empty plan response")
	}

	descriptions, err := parsePlanJSON(resp.Choices[0].Message.Content)
	if err != nil {
		return nil, err
	}
	if len(descriptions) > maxTasks {
		descriptions = descriptions[:maxTasks]
	}

	tasks := make([]research.Task, 0, len(descriptions))
	for i, desc := range descriptions {
		tasks = append(tasks, research.Task{
			ID:          fmt.Sprintf("%d", i+1),
			Description: desc,
			Status:      research.TaskPending,
		})
	}
	return tasks, nil
}

// parsePlanJSON extracts the task descriptions, tolerating markdown fences
// around the array.
func parsePlanJSON(content string) ([]string, error) {
	content = strings.TrimSpace(content)
	if start := strings.Index(content, "["); start >= 0 {
		if end := strings.LastIndex(content, "]"); end > start {
			content = content[start : end+1]
		}
	}

	var descriptions []string
	if err := json.Unmarshal([]byte(content), &descriptions); err != nil {
		return nil, fmt.Errorf("unparseable plan: %w", err)
	}

	out := descriptions[:0]
	for _, d := range descriptions {
		if d = strings.TrimSpace(d); d != "" {
			out = append(out, d)
		}
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("plan contained no tasks")
	}
	return out, nil
}

func (l *OpenAILLM) StreamAnswer(ctx context.Context, query string, history []research.HistoryEntry, findings string, emit func(chunk string) error) error {
	messages := []openai.ChatCompletionMessage{
		{Role: openai.ChatMessageRoleSystem, Content: fmt.Sprintf(answerSystemPrompt, findings)},
	}
	for _, h := range history {
		role := openai.ChatMessageRoleUser
		if h.Role == research.RoleAssistant {
			role = openai.ChatMessageRoleAssistant
		}
		messages = append(messages, openai.ChatCompletionMessage{Role: role, Content: h.Content})
	}
	messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: query})

	stream, err := l.client.CreateChatCompletionStream(ctx, openai.ChatCompletionRequest{
		Model:    l.model,
		Messages: messages,
		Stream:   true,
	})
	if err != nil {
		return err
	}
	defer stream.Close()

	for {
		resp, err := stream.Recv()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
		if len(resp.Choices) == 0 {
			continue
		}
		if delta := resp.Choices[0].Delta.Content; delta != "" {
			if err := emit(delta); err != nil {
				return err
			}
		}
	}
}
