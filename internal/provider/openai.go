package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"trivia-service/internal/domain"
)

// OpenAI generates questions with a chat completion in JSON mode.
type OpenAI struct {
	client *openai.Client
	model  string
}

// NewOpenAI creates a provider. An empty baseURL keeps the public API endpoint.
func NewOpenAI(apiKey, model, baseURL string) *OpenAI {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &OpenAI{client: openai.NewClientWithConfig(cfg), model: model}
}

type generatedQuestion struct {
	Question         string   `json:"question"`
	CorrectAnswer    string   `json:"correct_answer"`
	IncorrectAnswers []string `json:"incorrect_answers"`
}

const systemPrompt = "You write multiple choice trivia questions. Reply with a JSON object " +
	`{"question": string, "correct_answer": string, "incorrect_answers": [string, string, string]}. ` +
	"The correct answer must not appear among the incorrect answers."

func (o *OpenAI) FetchQuestion(ctx context.Context, difficulty domain.Difficulty, category int) (domain.Content, error) {
	prompt := fmt.Sprintf("Write one %s trivia question in the category %q.", difficulty, CategoryName(category))

	resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: o.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		return domain.Content{}, fmt.Errorf("%w: openai completion: %v", domain.ErrProvider, err)
	}
	if len(resp.Choices) == 0 {
		return domain.Content{}, fmt.Errorf("%w: openai returned no choices", domain.ErrProvider)
	}

	var q generatedQuestion
	raw := strings.TrimSpace(resp.Choices[0].Message.Content)
	if err := json.Unmarshal([]byte(raw), &q); err != nil {
		return domain.Content{}, fmt.Errorf("%w: decode openai question: %v", domain.ErrProvider, err)
	}
	content := domain.Content{
		Question:         strings.TrimSpace(q.Question),
		CorrectAnswer:    strings.TrimSpace(q.CorrectAnswer),
		IncorrectAnswers: q.IncorrectAnswers,
	}
	if err := checkContent(content); err != nil {
		return domain.Content{}, err
	}
	return content, nil
}
