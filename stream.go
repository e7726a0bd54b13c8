package anychat

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
)

// ChatStream is a finite pull iterator over the chunks of one streaming
// call. It is not restartable: once Next returns io.EOF or the stream is
// closed, the call is over. Close releases the underlying provider
// connection exactly once, however many times it is called.
type ChatStream struct {
	src ProviderStream

	mu     sync.Mutex
	closed bool
}

func newChatStream(src ProviderStream) *ChatStream {
	return &ChatStream{src: src}
}

// Next returns the next chunk, or io.EOF once the provider signals
// completion. The stream closes itself on EOF and on any error, so a caller
// that drains to the end does not need a separate Close (though calling it
// is harmless).
func (s *ChatStream) Next(ctx context.Context) (*ChatChunk, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, io.EOF
	}
	s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		_ = s.Close()
		return nil, err
	}

	chunk, err := s.src.Next(ctx)
	if err != nil {
		_ = s.Close()
		return nil, err
	}
	return chunk, nil
}

// Close releases the underlying provider connection. Safe to call multiple
// times; only the first call reaches the provider stream.
func (s *ChatStream) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()
	return s.src.Close()
}

// CollectStream drains a stream and assembles one ChatResponse from it:
// chunk deltas concatenate into the text content, tool call chunks append in
// order, and the last reported usage and finish reason win. The stream is
// closed before returning.
func CollectStream(ctx context.Context, stream *ChatStream) (*ChatResponse, error) {
	defer stream.Close()

	var (
		text      strings.Builder
		toolCalls []ToolCallData
		finish    string
		usage     Usage
	)
	for {
		chunk, err := stream.Next(ctx)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		text.WriteString(chunk.Delta)
		toolCalls = append(toolCalls, chunk.ToolCalls...)
		if chunk.FinishReason != "" {
			finish = chunk.FinishReason
		}
		if chunk.Usage != nil {
			usage = *chunk.Usage
		}
	}

	content := []ContentPart{}
	if text.Len() > 0 {
		content = append(content, TextPart(text.String()))
	}
	for i := range toolCalls {
		tc := toolCalls[i]
		content = append(content, ContentPart{Kind: ContentToolCall, ToolCall: &tc})
	}

	return &ChatResponse{
		Message:      Message{Role: RoleAssistant, Content: content},
		FinishReason: finish,
		Usage:        usage,
	}, nil
}
