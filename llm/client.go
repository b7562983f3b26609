package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"trend-signals/analysis"
)

// systemMessage is the default system message for the trend analyst
const systemMessage = "You are a cultural trend analyst. Comment only on the correlation figures you are given. " +
	"Do not invent events, news or causes that the numbers do not show. Keep it under 120 words."

// Narrator writes a short commentary on a set of pair verdicts using an
// OpenAI-compatible chat completion endpoint.
type Narrator struct {
	client openai.Client
	model  string
}

// NewNarrator creates a new narrator
func NewNarrator(endpoint, apiKey, model string) *Narrator {
	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if endpoint != "" {
		opts = append(opts, option.WithBaseURL(endpoint))
	}
	return &Narrator{
		client: openai.NewClient(opts...),
		model:  model,
	}
}

// Summarize asks the model for a commentary on verdicts
func (n *Narrator) Summarize(ctx context.Context, verdicts []analysis.PairVerdict) (string, error) {
	if len(verdicts) == 0 {
		return "", fmt.Errorf("no verdicts to summarize")
	}

	completion, err := n.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: n.model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemMessage),
			openai.UserMessage(BuildPrompt(verdicts)),
		},
		Temperature: openai.Float(0.3),
	})
	if err != nil {
		return "", fmt.Errorf("chat completion failed: %w", err)
	}
	if len(completion.Choices) == 0 {
		return "", fmt.Errorf("no response choices returned")
	}

	return strings.TrimSpace(completion.Choices[0].Message.Content), nil
}

// BuildPrompt renders verdicts as the user message
func BuildPrompt(verdicts []analysis.PairVerdict) string {
	var sb strings.Builder
	sb.WriteString("Search interest correlations (smoothed, normalized 0-100):\n")
	for _, v := range verdicts {
		fmt.Fprintf(&sb, "- %s: r = %.2f (%s)\n", v.Label(), v.Coefficient, v.Verdict)
	}
	sb.WriteString("Summarize what these relationships suggest.")
	return sb.String()
}
