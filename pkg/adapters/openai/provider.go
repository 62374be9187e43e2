// Package openai implements ports.Provider on the OpenAI Chat Completions API.
//
// Functions are advertised as tools. Streaming tool-call deltas are aggregated
// by index and surfaced as one complete domain.FunctionCall when the choice
// finishes, so consumers never see partial arguments.
package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/aretw0/callflow/pkg/domain"
	"github.com/aretw0/callflow/pkg/ports"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/packages/ssestream"
)

// Name is the model.provider value served by this adapter.
const Name = "openai"

// aggCall aggregates partial tool call deltas.
type aggCall struct{ name, args string }

// Provider adapts the OpenAI client to ports.Provider.
type Provider struct {
	client *openai.Client
}

var _ ports.Provider = (*Provider)(nil)

// New creates a Provider. Without options the client reads OPENAI_API_KEY
// and OPENAI_BASE_URL from the environment.
func New(opts ...option.RequestOption) *Provider {
	client := openai.NewClient(opts...)
	return NewFromClient(&client)
}

// NewFromClient creates a Provider from an existing client.
func NewFromClient(client *openai.Client) *Provider {
	return &Provider{client: client}
}

// Complete returns the provider response JSON verbatim.
func (p *Provider) Complete(ctx context.Context, req domain.ProviderRequest) (domain.Completion, error) {
	resp, err := p.client.Chat.Completions.New(ctx, buildParams(req))
	if err != nil {
		return nil, fmt.Errorf("openai api error: %w", err)
	}
	if raw := resp.RawJSON(); raw != "" {
		return domain.Completion(raw), nil
	}
	b, err := json.Marshal(resp)
	if err != nil {
		return nil, fmt.Errorf("openai: failed to encode completion: %w", err)
	}
	return b, nil
}

// Stream opens a streaming completion.
func (p *Provider) Stream(ctx context.Context, req domain.ProviderRequest) (ports.FragmentStream, error) {
	stream := p.client.Chat.Completions.NewStreaming(ctx, buildParams(req))
	if err := stream.Err(); err != nil {
		_ = stream.Close()
		return nil, fmt.Errorf("openai streaming error: %w", err)
	}
	return &fragmentStream{stream: stream, agg: map[int64]*aggCall{}}, nil
}

func buildMessages(msgs []domain.Message) []openai.ChatCompletionMessageParamUnion {
	messages := make([]openai.ChatCompletionMessageParamUnion, 0, len(msgs))
	for _, m := range msgs {
		switch m.Role {
		case "system":
			messages = append(messages, openai.SystemMessage(m.Content))
		case "assistant":
			messages = append(messages, openai.AssistantMessage(m.Content))
		default:
			messages = append(messages, openai.UserMessage(m.Content))
		}
	}
	return messages
}

func buildParams(req domain.ProviderRequest) openai.ChatCompletionNewParams {
	params := openai.ChatCompletionNewParams{
		Messages:            buildMessages(req.Messages),
		Model:               req.Model,
		Temperature:         openai.Float(req.Temperature),
		MaxCompletionTokens: openai.Int(req.MaxTokens),
	}
	if len(req.Functions) == 0 {
		return params
	}

	tools := make([]openai.ChatCompletionToolParam, len(req.Functions))
	for i, fn := range req.Functions {
		tools[i] = openai.ChatCompletionToolParam{
			Type: "function",
			Function: openai.FunctionDefinitionParam{
				Name:        fn.Name,
				Description: openai.String(fn.Description),
				Parameters:  fn.Parameters,
			},
		}
	}
	params.Tools = tools
	if req.FunctionCall != "" {
		params.ToolChoice = openai.ChatCompletionToolChoiceOptionUnionParam{
			OfAuto: openai.String(req.FunctionCall),
		}
	}
	return params
}

// fragmentStream turns chunks into fragments.
type fragmentStream struct {
	stream *ssestream.Stream[openai.ChatCompletionChunk]

	agg     map[int64]*aggCall
	pending []domain.Fragment
	current domain.Fragment
	ended   bool
}

func (s *fragmentStream) Next() bool {
	for {
		if len(s.pending) > 0 {
			s.current, s.pending = s.pending[0], s.pending[1:]
			return true
		}
		if s.ended {
			return false
		}
		if !s.stream.Next() {
			s.ended = true
			// Some gateways end the stream without a finish reason.
			if s.stream.Err() == nil {
				s.flushCalls()
			}
			continue
		}
		for _, ch := range s.stream.Current().Choices {
			if ch.Delta.Content != "" {
				s.pending = append(s.pending, domain.Fragment{Content: ch.Delta.Content})
			}
			for _, tc := range ch.Delta.ToolCalls {
				ac, ok := s.agg[tc.Index]
				if !ok {
					ac = &aggCall{}
					s.agg[tc.Index] = ac
				}
				if tc.Function.Name != "" {
					ac.name = tc.Function.Name
				}
				ac.args += tc.Function.Arguments
			}
			if ch.FinishReason != "" {
				s.flushCalls()
			}
		}
	}
}

func (s *fragmentStream) flushCalls() {
	if len(s.agg) == 0 {
		return
	}
	indexes := make([]int64, 0, len(s.agg))
	for i := range s.agg {
		indexes = append(indexes, i)
	}
	sort.Slice(indexes, func(a, b int) bool { return indexes[a] < indexes[b] })

	for _, i := range indexes {
		ac := s.agg[i]
		s.pending = append(s.pending, domain.Fragment{
			FunctionCall: &domain.FunctionCall{Name: ac.name, Arguments: ac.args},
		})
	}
	s.agg = map[int64]*aggCall{}
}

func (s *fragmentStream) Current() domain.Fragment {
	return s.current
}

func (s *fragmentStream) Err() error {
	if err := s.stream.Err(); err != nil {
		return fmt.Errorf("openai streaming error: %w", err)
	}
	return nil
}

func (s *fragmentStream) Close() error {
	return s.stream.Close()
}
