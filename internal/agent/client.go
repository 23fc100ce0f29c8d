// Package agent implements the Conversation Agent (C6): a bounded state
// machine (Router -> Create/Modify/Clarify/Validate -> Respond) that turns
// one user message into an updated workflow draft and a user-facing
// response, backed by an LLM client wrapping the Anthropic Messages API.
package agent

import (
	"context"
	"errors"
	"fmt"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/shankarbhavani/workflow-builder/internal/model"
)

// MessagesClient captures the subset of the Anthropic SDK used by Client,
// so tests can substitute a fake without depending on the real transport.
type MessagesClient interface {
	New(ctx context.Context, body sdk.MessageNewParams, opts ...option.RequestOption) (*sdk.Message, error)
}

// ClientOptions configures the Anthropic-backed LLM client.
type ClientOptions struct {
	// Model is the Claude model identifier used for every call. A single
	// model suffices here — unlike the teacher's multi-tier planner, one
	// conversation turn never needs a reasoning/small-model split.
	Model string

	// MaxTokens bounds a single completion.
	MaxTokens int

	// Temperature controls sampling; zero uses the Anthropic default.
	Temperature float64
}

// Client is the LLM boundary the state machine calls through. Exactly one
// method, Complete, is needed since conversation turns are single-shot
// (no tool use, no streaming).
type Client interface {
	Complete(ctx context.Context, req Request) (Response, error)
}

// Request is one LLM call: an optional system prompt plus the
// conversation history to send.
type Request struct {
	System   string
	Messages []model.Message
}

// Response is the LLM's reply text.
type Response struct {
	Text string
}

// anthropicClient implements Client on top of Anthropic Claude Messages.
type anthropicClient struct {
	msg   MessagesClient
	model string
	maxTk int
	temp  float64
}

// NewClient builds an Anthropic-backed Client.
func NewClient(msg MessagesClient, opts ClientOptions) (Client, error) {
	if msg == nil {
		return nil, errors.New("agent: anthropic messages client is required")
	}
	if opts.Model == "" {
		return nil, errors.New("agent: model identifier is required")
	}
	maxTokens := opts.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 1024
	}
	return &anthropicClient{msg: msg, model: opts.Model, maxTk: maxTokens, temp: opts.Temperature}, nil
}

// NewClientFromAPIKey constructs a Client using the default Anthropic HTTP
// transport, authenticating with the given apiKey.
func NewClientFromAPIKey(apiKey, model string) (Client, error) {
	if apiKey == "" {
		return nil, errors.New("agent: api key is required")
	}
	ac := sdk.NewClient(option.WithAPIKey(apiKey))
	return NewClient(&ac.Messages, ClientOptions{Model: model})
}

func (c *anthropicClient) Complete(ctx context.Context, req Request) (Response, error) {
	if len(req.Messages) == 0 {
		return Response{}, errors.New("agent: at least one message is required")
	}

	msgs := make([]sdk.MessageParam, 0, len(req.Messages))
	for _, m := range req.Messages {
		block := sdk.NewTextBlock(m.Content)
		switch m.Role {
		case model.RoleUser:
			msgs = append(msgs, sdk.NewUserMessage(block))
		case model.RoleAssistant:
			msgs = append(msgs, sdk.NewAssistantMessage(block))
		default:
			// System-role turns are carried via req.System, not the
			// conversation array.
			continue
		}
	}
	if len(msgs) == 0 {
		return Response{}, errors.New("agent: at least one user/assistant message is required")
	}

	params := sdk.MessageNewParams{
		Model:     sdk.Model(c.model),
		MaxTokens: int64(c.maxTk),
		Messages:  msgs,
	}
	if req.System != "" {
		params.System = []sdk.TextBlockParam{{Text: req.System}}
	}
	if c.temp > 0 {
		params.Temperature = sdk.Float(c.temp)
	}

	msg, err := c.msg.New(ctx, params)
	if err != nil {
		return Response{}, fmt.Errorf("agent: anthropic messages.new: %w", err)
	}

	var text string
	for _, block := range msg.Content {
		if block.Type == "text" {
			text += block.Text
		}
	}
	return Response{Text: text}, nil
}
