package bedrock

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	brtypes "github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"

	"travel-assistant/internal/domain"
)

const (
	defaultMaxTokens   = 500
	defaultTemperature = 0.7
)

// ErrNotConfigured is returned by Chat when no model id is set.
var ErrNotConfigured = errors.New("bedrock: model id not configured")

type converseAPI interface {
	Converse(ctx context.Context, params *bedrockruntime.ConverseInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.ConverseOutput, error)
}

// Client completes chats through the Bedrock Converse API, one call per Chat.
type Client struct {
	api         converseAPI
	modelID     string
	maxTokens   int32
	temperature float32
}

type Option func(*Client)

// WithMaxTokens sets the output token limit; values beyond int32 are clamped.
func WithMaxTokens(n int) Option {
	return func(c *Client) {
		if n <= 0 {
			return
		}
		if n > math.MaxInt32 {
			n = math.MaxInt32
		}
		c.maxTokens = int32(n)
	}
}

func WithTemperature(t float64) Option {
	return func(c *Client) {
		c.temperature = float32(t)
	}
}

func NewClient(api converseAPI, modelID string, opts ...Option) (*Client, error) {
	if api == nil {
		return nil, errors.New("bedrock: converse client must not be nil")
	}
	c := &Client{
		api:         api,
		modelID:     strings.TrimSpace(modelID),
		maxTokens:   defaultMaxTokens,
		temperature: defaultTemperature,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func (c *Client) Name() string { return "bedrock" }

func (c *Client) Configured() bool {
	return c != nil && c.modelID != ""
}

func (c *Client) Chat(ctx context.Context, messages []domain.ChatMessage) (string, error) {
	if !c.Configured() {
		return "", ErrNotConfigured
	}

	var system []brtypes.SystemContentBlock
	conv := make([]brtypes.Message, 0, len(messages))
	for _, msg := range messages {
		content := strings.TrimSpace(msg.Content)
		if content == "" {
			continue
		}
		switch msg.Role {
		case domain.RoleSystem:
			system = append(system, &brtypes.SystemContentBlockMemberText{Value: content})
		case domain.RoleUser:
			conv = append(conv, textMessage(brtypes.ConversationRoleUser, content))
		case domain.RoleAssistant:
			conv = append(conv, textMessage(brtypes.ConversationRoleAssistant, content))
		default:
			return "", fmt.Errorf("bedrock: unsupported role %q", msg.Role)
		}
	}
	if len(conv) == 0 {
		return "", errors.New("bedrock: no user message to send")
	}

	out, err := c.api.Converse(ctx, &bedrockruntime.ConverseInput{
		ModelId:  aws.String(c.modelID),
		System:   system,
		Messages: conv,
		InferenceConfig: &brtypes.InferenceConfiguration{
			MaxTokens:   aws.Int32(c.maxTokens),
			Temperature: aws.Float32(c.temperature),
		},
	})
	if err != nil {
		return "", fmt.Errorf("bedrock: converse: %w", err)
	}
	return extractText(out)
}

func textMessage(role brtypes.ConversationRole, text string) brtypes.Message {
	return brtypes.Message{
		Role:    role,
		Content: []brtypes.ContentBlock{&brtypes.ContentBlockMemberText{Value: text}},
	}
}

func extractText(out *bedrockruntime.ConverseOutput) (string, error) {
	if out == nil || out.Output == nil {
		return "", errors.New("bedrock: empty converse output")
	}
	msg, ok := out.Output.(*brtypes.ConverseOutputMemberMessage)
	if !ok {
		return "", fmt.Errorf("bedrock: unexpected converse output %T", out.Output)
	}
	var b strings.Builder
	for _, block := range msg.Value.Content {
		if text, ok := block.(*brtypes.ContentBlockMemberText); ok {
			b.WriteString(text.Value)
		}
	}
	result := strings.TrimSpace(b.String())
	if result == "" {
		return "", errors.New("bedrock: no text in converse output")
	}
	return result, nil
}
