// Package anthropic implements ports.Provider on the Anthropic Messages API.
package anthropic

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/anthropics/anthropic-sdk-go/packages/ssestream"
	"github.com/anthropics/anthropic-sdk-go/shared/constant"
	"github.com/aretw0/callflow/pkg/domain"
	"github.com/aretw0/callflow/pkg/ports"
)

// Name is the model.provider value served by this adapter.
const Name = "anthropic"

// Provider adapts the Anthropic client to ports.Provider.
// Tool choice is left unset; the API defaults to auto.
type Provider struct {
	client *anthropic.Client
}

var _ ports.Provider = (*Provider)(nil)

// New creates a Provider. Without options the client reads ANTHROPIC_API_KEY from the environment.
func New(opts ...option.RequestOption) *Provider {
	client := anthropic.NewClient(opts...)
	return NewFromClient(&client)
}

// NewFromClient creates a Provider from an existing client.
func NewFromClient(client *anthropic.Client) *Provider {
	return &Provider{client: client}
}

// Complete returns the provider response JSON verbatim.
func (p *Provider) Complete(ctx context.Context, req domain.ProviderRequest) (domain.Completion, error) {
	resp, err := p.client.Messages.New(ctx, buildParams(req))
	if err != nil {
		return nil, fmt.Errorf("anthropic api error: %w", err)
	}
	if raw := resp.RawJSON(); raw != "" {
		return domain.Completion(raw), nil
	}
	b, err := json.Marshal(resp)
	if err != nil {
		return nil, fmt.Errorf("anthropic: failed to encode completion: %w", err)
	}
	return b, nil
}

// Stream opens a streaming message.
func (p *Provider) Stream(ctx context.Context, req domain.ProviderRequest) (ports.FragmentStream, error) {
	stream := p.client.Messages.NewStreaming(ctx, buildParams(req))
	if err := stream.Err(); err != nil {
		_ = stream.Close()
		return nil, fmt.Errorf("anthropic streaming error: %w", err)
	}
	return &fragmentStream{stream: stream, tools: map[int64]*toolUse{}}, nil
}

func buildParams(req domain.ProviderRequest) anthropic.MessageNewParams {
	params := anthropic.MessageNewParams{
		Model:       anthropic.Model(req.Model),
		MaxTokens:   req.MaxTokens,
		Temperature: anthropic.Float(req.Temperature),
	}

	for _, m := range req.Messages {
		if m.Content == "" {
			continue
		}
		switch m.Role {
		case "system":
			params.System = append(params.System, anthropic.TextBlockParam{Text: m.Content})
		case "assistant":
			params.Messages = append(params.Messages, anthropic.NewAssistantMessage(anthropic.NewTextBlock(m.Content)))
		default:
			params.Messages = append(params.Messages, anthropic.NewUserMessage(anthropic.NewTextBlock(m.Content)))
		}
	}

	if len(req.Functions) > 0 {
		params.Tools = buildTools(req.Functions)
	}
	return params
}

func buildTools(functions []domain.FunctionSpec) []anthropic.ToolUnionParam {
	tools := make([]anthropic.ToolUnionParam, len(functions))
	for i, fn := range functions {
		schema := anthropic.ToolInputSchemaParam{
			Type: constant.Object("object"),
		}
		if properties, ok := fn.Parameters["properties"]; ok {
			schema.Properties = properties
		}
		switch required := fn.Parameters["required"].(type) {
		case []string:
			schema.Required = required
		case []any:
			for _, r := range required {
				if s, ok := r.(string); ok {
					schema.Required = append(schema.Required, s)
				}
			}
		}

		tool := anthropic.ToolUnionParamOfTool(schema, fn.Name)
		if tool.OfTool != nil && fn.Description != "" {
			tool.OfTool.Description = anthropic.String(fn.Description)
		}
		tools[i] = tool
	}
	return tools
}

// toolUse accumulates one tool_use content block.
type toolUse struct {
	name string
	args []byte
}

type fragmentStream struct {
	stream *ssestream.Stream[anthropic.MessageStreamEventUnion]

	tools   map[int64]*toolUse
	current domain.Fragment
}

func (s *fragmentStream) Next() bool {
	for s.stream.Next() {
		switch ev := s.stream.Current().AsAny().(type) {
		case anthropic.ContentBlockStartEvent:
			if ev.ContentBlock.Type == "tool_use" {
				s.tools[ev.Index] = &toolUse{name: ev.ContentBlock.Name}
			}
		case anthropic.ContentBlockDeltaEvent:
			switch delta := ev.Delta.AsAny().(type) {
			case anthropic.TextDelta:
				if delta.Text != "" {
					s.current = domain.Fragment{Content: delta.Text}
					return true
				}
			case anthropic.InputJSONDelta:
				if tu, ok := s.tools[ev.Index]; ok {
					tu.args = append(tu.args, delta.PartialJSON...)
				}
			}
		case anthropic.ContentBlockStopEvent:
			tu, ok := s.tools[ev.Index]
			if !ok {
				continue
			}
			delete(s.tools, ev.Index)
			args := string(tu.args)
			if args == "" {
				args = "{}"
			}
			s.current = domain.Fragment{FunctionCall: &domain.FunctionCall{Name: tu.name, Arguments: args}}
			return true
		}
	}
	return false
}

func (s *fragmentStream) Current() domain.Fragment {
	return s.current
}

func (s *fragmentStream) Err() error {
	if err := s.stream.Err(); err != nil {
		return fmt.Errorf("anthropic streaming error: %w", err)
	}
	return nil
}

func (s *fragmentStream) Close() error {
	return s.stream.Close()
}
