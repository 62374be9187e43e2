package dispatch

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/aretw0/callflow/pkg/config"
	"github.com/aretw0/callflow/pkg/domain"
	"github.com/aretw0/callflow/pkg/observability"
	"github.com/aretw0/callflow/pkg/ports"
)

type textFrame struct {
	Choices []textChoice `json:"choices"`
}

type textChoice struct {
	Delta textDelta `json:"delta"`
}

type textDelta struct {
	Content string `json:"content"`
}

type transferFrame struct {
	FunctionCall transferCall `json:"function_call"`
}

type transferCall struct {
	Name      string       `json:"name"`
	Arguments transferArgs `json:"arguments"`
}

type transferArgs struct {
	Destination string `json:"destination"`
}

// TextFrame encodes a content delta.
func TextFrame(content string) json.RawMessage {
	b, _ := json.Marshal(textFrame{Choices: []textChoice{{Delta: textDelta{Content: content}}}})
	return b
}

// TransferFrame encodes a transfer request to destination.
func TransferFrame(destination string) json.RawMessage {
	b, _ := json.Marshal(transferFrame{FunctionCall: transferCall{
		Name:      config.TransferFunctionName,
		Arguments: transferArgs{Destination: destination},
	}})
	return b
}

// FrameStream is the lazy outbound frame sequence of a streaming turn.
// It must be closed by the consumer; closing cancels the provider call.
type FrameStream struct {
	src    ports.FragmentStream
	cancel context.CancelFunc
	parent context.Context
	pctx   context.Context

	forwarding string
	provider   string
	started    time.Time
	advanced   bool

	logger  *slog.Logger
	metrics *observability.Metrics

	pending []json.RawMessage
	current json.RawMessage
	err     error
	done    bool
	closed  bool
}

// Next advances to the next frame. It returns false at the end of the stream
// or on error; check Err afterwards.
func (s *FrameStream) Next() bool {
	for {
		if len(s.pending) > 0 {
			s.current, s.pending = s.pending[0], s.pending[1:]
			return true
		}
		if s.done {
			s.current = nil
			return false
		}
		if !s.src.Next() {
			s.finish()
			continue
		}
		s.pending = append(s.pending, s.translate(s.src.Current())...)
	}
}

// Frame returns the current frame as JSON.
func (s *FrameStream) Frame() json.RawMessage {
	return s.current
}

// Err returns the error that ended the stream, if any.
func (s *FrameStream) Err() error {
	return s.err
}

// Close releases the provider stream. It is safe to call more than once.
func (s *FrameStream) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	s.done = true
	s.cancel()
	return s.src.Close()
}

func (s *FrameStream) finish() {
	s.done = true
	s.metrics.ObserveProvider(s.provider, time.Since(s.started))

	err := s.src.Err()
	if err == nil {
		return
	}
	s.err = mapProviderError(s.parent, s.pctx, err)
	switch {
	case s.parent.Err() != nil:
		s.logger.Info("Stream canceled by caller")
	default:
		reason := "error"
		if s.pctx.Err() != nil {
			reason = "timeout"
		}
		s.metrics.ProviderFailed(s.provider, reason)
		s.logger.Warn("Provider stream failed", "err", s.err, "advanced", s.advanced)
	}
}

// translate applies the transfer filter to one fragment.
func (s *FrameStream) translate(frag domain.Fragment) []json.RawMessage {
	var frames []json.RawMessage
	if frag.Content != "" {
		frames = append(frames, TextFrame(frag.Content))
	}

	fc := frag.FunctionCall
	if fc == nil {
		return frames
	}
	if fc.Name != config.TransferFunctionName {
		s.metrics.DroppedFunctionCall("other_function")
		s.logger.Debug("Dropping function call", "function", fc.Name)
		return frames
	}

	destination, err := transferDestination(fc.Arguments, s.forwarding)
	if err != nil {
		s.metrics.DroppedFunctionCall("malformed_arguments")
		s.logger.Warn("Dropping transferCall with malformed arguments", "arguments", fc.Arguments, "err", err)
		return frames
	}

	s.metrics.Transferred()
	s.logger.Info("Transfer requested", "destination", destination)
	return append(frames, TransferFrame(destination))
}

// transferDestination extracts the destination argument, defaulting to fallback
// when it is missing or empty.
func transferDestination(arguments, fallback string) (string, error) {
	var args map[string]any
	if err := json.Unmarshal([]byte(arguments), &args); err != nil {
		return "", err
	}
	if dest, ok := args["destination"].(string); ok && dest != "" {
		return dest, nil
	}
	return fallback, nil
}
