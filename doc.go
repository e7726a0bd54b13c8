// Package anychat exposes a provider-agnostic chat model on top of the gollm
// unified LLM client (github.com/teilomillet/gollm). It is a translation
// layer, not an engine: each call maps a generic chat request onto the call
// shape the underlying client accepts, performs exactly one exchange, and
// maps the result back.
//
// # Quick Start
//
// Create a model from a "<provider>:<model-name>" identifier. API keys
// resolve from the provider's environment variable unless set explicitly:
//
//	model, err := anychat.New("openai:gpt-4o-mini")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	resp, err := model.Invoke(ctx, []anychat.Message{
//	    anychat.UserMessage("Explain quantum computing in one paragraph"),
//	})
//	fmt.Println(resp.Text())
//
// # Streaming
//
// Stream returns a pull iterator; callers that stop early must Close it so
// the provider connection is released:
//
//	stream, err := model.Stream(ctx, msgs)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer stream.Close()
//	for {
//	    chunk, err := stream.Next(ctx)
//	    if errors.Is(err, io.EOF) {
//	        break
//	    }
//	    fmt.Print(chunk.Delta)
//	}
//
// StreamEvents delivers the same chunks over a channel whose producer shuts
// down, closing the provider connection, when the context is cancelled.
//
// # Tools
//
// Tools bind to a model together with a tool choice directive. A directive
// with an empty tool list is dropped before it reaches the provider, and the
// generic "any" directive becomes the provider's "required" literal:
//
//	bound := model.BindTools([]anychat.Tool{weatherTool}, anychat.ChooseAny())
//	resp, err := bound.Invoke(ctx, msgs)
//	for _, call := range resp.ToolCalls() {
//	    // dispatch
//	}
//
// # Structured Output
//
// Output schemas are explicit tagged variants, either a raw JSON Schema map
// or a reflected Go struct; the kind is declared by the caller, never
// guessed:
//
//	structured, err := model.WithStructuredOutput(
//	    anychat.StructSchema("person", Person{}),
//	)
//
// # Errors
//
// Failures reported by the underlying client are classified into typed
// errors (AuthenticationError, RateLimitError, ...) with the original error
// preserved as the cause. This package performs no retries and owns no
// timeout policy; context deadlines pass through to the provider call.
package anychat
