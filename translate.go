package anychat

// translate.go holds the parameter translation core shared by every call
// mode: generic chat requests in, provider call params out.

// translateToolChoice maps the generic tool choice vocabulary onto the
// provider's accepted values. Callers must have already checked that at
// least one tool is declared.
func translateToolChoice(choice ToolChoice) (any, error) {
	switch choice.Mode {
	case ToolChoiceAuto:
		return "auto", nil
	case ToolChoiceNone:
		return "none", nil
	case ToolChoiceAny, ToolChoiceRequired:
		// Generic "any" and the provider spelling collapse to "required".
		return "required", nil
	case ToolChoiceNamed:
		if choice.ToolName == "" {
			return nil, &InvalidToolChoiceError{
				BaseError: BaseError{Message: "named tool choice requires a tool name"},
				Choice:    string(choice.Mode),
			}
		}
		// The provider's native forced-function structure, passed through
		// unchanged.
		return map[string]any{
			"type": "function",
			"function": map[string]any{
				"name": choice.ToolName,
			},
		}, nil
	default:
		return nil, &InvalidToolChoiceError{
			BaseError: BaseError{Message: "unknown tool choice mode"},
			Choice:    string(choice.Mode),
		}
	}
}

// buildCallParams translates a ChatRequest into the CallParams accepted by
// the provider client. It never performs I/O; every translation failure
// surfaces before the network call.
func (m *ChatModel) buildCallParams(req ChatRequest) (*CallParams, error) {
	params := &CallParams{
		Provider: m.provider,
		Model:    m.model,
		APIKey:   m.apiKey,
		APIBase:  m.apiBase,
		Messages: req.Messages,
	}

	info := GetProviderInfo(m.provider)
	for _, msg := range req.Messages {
		for _, part := range msg.Content {
			if info != nil && !info.SupportsContentKind(part.Kind) {
				return nil, &InvalidRequestError{ProviderError: ProviderError{
					BaseError: BaseError{Message: "provider " + m.provider + " does not accept content kind " + string(part.Kind)},
					Provider:  m.provider,
				}}
			}
		}
	}

	extra := mergeKwargs(m.modelKwargs, req.ModelKwargs)
	if len(req.Stop) > 0 {
		if _, ok := extra["stop"]; ok {
			return nil, configErrorf("`stop` found in both the call and the model kwargs")
		}
		params.Stop = req.Stop
	}
	params.Extra = extra

	// A tool choice directive is only valid alongside at least one tool;
	// with an empty tool list it is dropped entirely, whatever its value.
	if len(req.Tools) > 0 {
		params.Tools = req.Tools
		if req.ToolChoice != nil {
			translated, err := translateToolChoice(*req.ToolChoice)
			if err != nil {
				return nil, err
			}
			params.ToolChoice = translated
		}
	}

	if req.OutputSchema != nil {
		schema, err := req.OutputSchema.normalize()
		if err != nil {
			return nil, err
		}
		params.ResponseSchema = schema
		params.ResponseSchemaName = req.OutputSchema.Name
	}

	return params, nil
}

// mergeKwargs overlays per-call kwargs on the model's bound kwargs. Call
// values win; neither input map is mutated.
func mergeKwargs(bound, call map[string]any) map[string]any {
	if len(bound) == 0 && len(call) == 0 {
		return nil
	}
	merged := make(map[string]any, len(bound)+len(call))
	for k, v := range bound {
		merged[k] = v
	}
	for k, v := range call {
		merged[k] = v
	}
	return merged
}
