package gemini

import (
	"errors"
	"fmt"

	"github.com/Cyclone1070/reactor/internal/message"
	"github.com/Cyclone1070/reactor/internal/provider"
	"github.com/Cyclone1070/reactor/internal/tool"
	"github.com/google/uuid"
	"google.golang.org/genai"
)

const (
	roleUser  = "user"
	roleModel = "model"
)

// toGeminiContents converts a window to Gemini contents. Leading developer
// messages become the system instruction; later ones are sent as user turns.
func toGeminiContents(window []message.ChatMessage) (*genai.Content, []*genai.Content, error) {
	var system *genai.Content
	contents := make([]*genai.Content, 0, len(window))

	leading := true
	for _, msg := range window {
		if err := provider.CheckOutbound(msg); err != nil {
			return nil, nil, err
		}

		if leading && msg.Author() == message.AuthorDeveloper {
			if system == nil {
				system = &genai.Content{Role: roleUser}
			}
			system.Parts = append(system.Parts, genai.NewPartFromText(msg.Text()))
			continue
		}
		leading = false

		content := messageToGeminiContent(msg)
		if content != nil {
			contents = append(contents, content)
		}
	}

	return system, contents, nil
}

// messageToGeminiContent converts a single message to Gemini Content format.
func messageToGeminiContent(msg message.ChatMessage) *genai.Content {
	role := roleUser
	if msg.Author() == message.AuthorBot {
		role = roleModel
	}

	parts := make([]*genai.Part, 0, msg.Len())
	for _, p := range msg.Parts() {
		switch v := p.(type) {
		case message.Text:
			if v.Content != "" {
				parts = append(parts, genai.NewPartFromText(v.Content))
			}
		case message.File:
			if v.URI != "" {
				parts = append(parts, &genai.Part{FileData: &genai.FileData{FileURI: v.URI, MIMEType: v.MIMEType}})
			} else {
				parts = append(parts, &genai.Part{InlineData: &genai.Blob{Data: v.Data, MIMEType: v.MIMEType}})
			}
		case message.ToolCall:
			parts = append(parts, &genai.Part{
				FunctionCall: &genai.FunctionCall{
					ID:   v.ID(),
					Name: v.ToolID(),
					Args: v.Arguments(),
				},
			})
		case message.ToolCallResult:
			key := "output"
			if v.IsError() {
				key = "error"
			}
			parts = append(parts, &genai.Part{
				FunctionResponse: &genai.FunctionResponse{
					ID:       v.ToolCallID(),
					Name:     v.ToolID(),
					Response: map[string]any{key: v.ResultString()},
				},
			})
		}
	}

	// Skip empty messages
	if len(parts) == 0 {
		return nil
	}

	return &genai.Content{Role: role, Parts: parts}
}

// toGeminiConfig converts GenerateConfig to Gemini config.
func toGeminiConfig(config *provider.GenerateConfig) *genai.GenerateContentConfig {
	geminiConfig := &genai.GenerateContentConfig{
		SafetySettings: defaultSafetySettings(),
	}

	if config == nil {
		return geminiConfig
	}

	if config.Temperature != nil {
		temperature := *config.Temperature
		geminiConfig.Temperature = &temperature
	}
	if config.TopP != nil {
		topP := *config.TopP
		geminiConfig.TopP = &topP
	}
	if config.MaxOutputTokens != nil {
		geminiConfig.MaxOutputTokens = int32(*config.MaxOutputTokens)
	}
	if len(config.StopSequences) > 0 {
		geminiConfig.StopSequences = append([]string(nil), config.StopSequences...)
	}

	return geminiConfig
}

// defaultSafetySettings returns safety settings with BLOCK_NONE for all categories.
func defaultSafetySettings() []*genai.SafetySetting {
	return []*genai.SafetySetting{
		{Category: genai.HarmCategoryHateSpeech, Threshold: genai.HarmBlockThresholdOff},
		{Category: genai.HarmCategoryDangerousContent, Threshold: genai.HarmBlockThresholdOff},
		{Category: genai.HarmCategoryHarassment, Threshold: genai.HarmBlockThresholdOff},
		{Category: genai.HarmCategorySexuallyExplicit, Threshold: genai.HarmBlockThresholdOff},
	}
}

// toGeminiTools converts tools to Gemini function declarations.
func toGeminiTools(tools []tool.Tool) []*genai.Tool {
	if len(tools) == 0 {
		return nil
	}

	functionDeclarations := make([]*genai.FunctionDeclaration, 0, len(tools))
	for _, t := range tools {
		decl := tool.Declare(t)
		fd := &genai.FunctionDeclaration{
			Name:        decl.Name,
			Description: decl.Description,
		}
		if decl.Parameters != nil {
			fd.Parameters = toGeminiSchema(decl.Parameters)
		}
		functionDeclarations = append(functionDeclarations, fd)
	}

	return []*genai.Tool{
		{FunctionDeclarations: functionDeclarations},
	}
}

// toGeminiSchema converts a tool Schema to Gemini Schema.
func toGeminiSchema(s *tool.Schema) *genai.Schema {
	if s == nil {
		return nil
	}
	schema := &genai.Schema{
		Type:        toGeminiType(s.Type),
		Description: s.Description,
		Items:       toGeminiSchema(s.Items),
	}
	if len(s.Enum) > 0 {
		schema.Enum = append([]string(nil), s.Enum...)
	}
	if len(s.Required) > 0 {
		schema.Required = append([]string(nil), s.Required...)
	}
	if s.Properties != nil {
		schema.Properties = make(map[string]*genai.Schema, len(s.Properties))
		for name, prop := range s.Properties {
			schema.Properties[name] = toGeminiSchema(prop)
		}
	}
	return schema
}

// toGeminiType converts a tool Type to Gemini Type.
func toGeminiType(t tool.Type) genai.Type {
	switch t {
	case tool.TypeString:
		return genai.TypeString
	case tool.TypeNumber:
		return genai.TypeNumber
	case tool.TypeInteger:
		return genai.TypeInteger
	case tool.TypeBoolean:
		return genai.TypeBoolean
	case tool.TypeArray:
		return genai.TypeArray
	case tool.TypeObject:
		return genai.TypeObject
	default:
		return genai.TypeString
	}
}

// fromGeminiResponse converts Gemini response to the normalized reply.
func fromGeminiResponse(resp *genai.GenerateContentResponse, tools []tool.Tool) (*provider.Response, error) {
	usage := buildUsage(resp.UsageMetadata)

	if len(resp.Candidates) == 0 {
		if fb := resp.PromptFeedback; fb != nil && fb.BlockReason != "" {
			refusal := fb.BlockReasonMessage
			if refusal == "" {
				refusal = string(fb.BlockReason)
			}
			msg, _ := provider.Reply{Refusal: refusal}.Message()
			return &provider.Response{FinishReason: provider.FinishInappropriate, Message: msg, Usage: usage}, nil
		}
		return nil, &provider.ProviderError{
			Code:    provider.ErrorCodeInvalidRequest,
			Message: "no candidates in response",
		}
	}

	candidate := resp.Candidates[0]

	var reply provider.Reply
	if candidate.Content != nil {
		for _, part := range candidate.Content.Parts {
			switch {
			case part.FunctionCall != nil:
				fc := part.FunctionCall
				id := fc.ID
				if id == "" {
					// Gemini does not always return call IDs
					id = uuid.NewString()
				}
				reply.Calls = append(reply.Calls, message.NewToolCall(id, fc.Name, invoker(tools, fc.Name), fc.Args))
			case part.Thought && part.Text != "":
				reply.Reasoning = append(reply.Reasoning, part.Text)
			case part.Text != "":
				reply.Texts = append(reply.Texts, part.Text)
			}
		}
	}

	reason := toFinishReason(candidate.FinishReason)
	if len(reply.Calls) > 0 {
		reason = provider.FinishCompleted
	}
	if reason == provider.FinishInappropriate {
		reply.Refusal = fmt.Sprintf("blocked: %s", candidate.FinishReason)
		if candidate.FinishMessage != "" {
			reply.Refusal = candidate.FinishMessage
		}
	}

	msg, err := reply.Message()
	if err != nil {
		return nil, err
	}
	return &provider.Response{FinishReason: reason, Message: msg, Usage: usage}, nil
}

// invoker returns the resolved tool, or a nil interface when unknown.
func invoker(tools []tool.Tool, name string) message.Invoker {
	if t := provider.ResolveTool(tools, name); t != nil {
		return t
	}
	return nil
}

func toFinishReason(r genai.FinishReason) provider.FinishReason {
	switch r {
	case genai.FinishReasonStop:
		return provider.FinishCompleted
	case genai.FinishReasonMaxTokens:
		return provider.FinishTruncated
	case genai.FinishReasonSafety, genai.FinishReasonRecitation, genai.FinishReasonBlocklist,
		genai.FinishReasonProhibitedContent, genai.FinishReasonSPII:
		return provider.FinishInappropriate
	case "", genai.FinishReasonUnspecified:
		return provider.FinishInProgress
	default:
		return provider.FinishOther
	}
}

// buildUsage converts usage metadata.
func buildUsage(usage *genai.GenerateContentResponseUsageMetadata) provider.Usage {
	if usage == nil {
		return provider.Usage{}
	}
	return provider.Usage{
		PromptTokens:     int(usage.PromptTokenCount),
		CompletionTokens: int(usage.CandidatesTokenCount),
		TotalTokens:      int(usage.TotalTokenCount),
	}
}

// mapGeminiError maps Gemini API errors to provider errors.
func mapGeminiError(err error) error {
	if err == nil {
		return nil
	}

	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return provider.FromStatus(apiErr.Code, apiErr.Message, err)
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) {
		return provider.FromStatus(apiErrPtr.Code, apiErrPtr.Message, err)
	}

	// Generic network error
	return &provider.ProviderError{
		Code:       provider.ErrorCodeNetwork,
		Message:    "network error",
		Underlying: err,
		Retryable:  true,
	}
}
