package analysis

import (
	"context"
	"errors"

	openai "github.com/sashabaranov/go-openai"
)

// openAICompleter adapts the OpenAI chat completions API.
type openAICompleter struct {
	client *openai.Client
	model  string
}

func newOpenAICompleter(apiKey, model string) Completer {
	return &openAICompleter{client: openai.NewClient(apiKey), model: model}
}

func (c *openAICompleter) Complete(ctx context.Context, prompt string) (string, error) {
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("empty completion")
	}
	return resp.Choices[0].Message.Content, nil
}
