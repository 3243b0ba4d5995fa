package llm

import (
	"context"
	"fmt"

	"google.golang.org/genai"

	"protoforge/internal/logging"
	"protoforge/internal/types"
)

// GeminiClient implements types.LLMClient over the Google GenAI SDK.
// Retry for transient failures is delegated to the SDK transport; the
// protoforge retry policy applies to the OpenAI-compatible backend.
type GeminiClient struct {
	client *genai.Client
	model  string
}

// NewGeminiClient creates a Gemini-backed model client.
func NewGeminiClient(cfg Config) (*GeminiClient, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini API key is required")
	}
	model := cfg.Model
	if model == "" {
		model = "gemini-2.0-flash"
	}

	client, err := genai.NewClient(context.Background(), &genai.ClientConfig{
		APIKey: cfg.APIKey,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}
	return &GeminiClient{client: client, model: model}, nil
}

// buildContents converts the conversation into genai contents plus an
// optional system instruction. Tool messages become function responses;
// the call id to function name mapping comes from the preceding assistant
// manifests.
func buildContents(msgs []types.ConversationMessage) (system string, contents []*genai.Content) {
	callNames := make(map[string]string)

	for _, m := range msgs {
		switch m.Role {
		case types.RoleSystem:
			if system != "" {
				system += "\n"
			}
			system += m.Content

		case types.RoleUser:
			contents = append(contents, genai.NewContentFromText(m.Content, genai.RoleUser))

		case types.RoleAssistant:
			var parts []*genai.Part
			if m.Content != "" {
				parts = append(parts, genai.NewPartFromText(m.Content))
			}
			for _, tc := range m.ToolCalls {
				callNames[tc.ID] = tc.Name
				parts = append(parts, genai.NewPartFromFunctionCall(tc.Name, tc.Args))
			}
			if len(parts) > 0 {
				contents = append(contents, genai.NewContentFromParts(parts, genai.RoleModel))
			}

		case types.RoleTool:
			name := callNames[m.ToolCallID]
			if name == "" {
				name = "tool"
			}
			part := genai.NewPartFromFunctionResponse(name, map[string]any{"result": m.Content})
			contents = append(contents, genai.NewContentFromParts([]*genai.Part{part}, genai.RoleUser))
		}
	}
	return system, contents
}

func (c *GeminiClient) generate(ctx context.Context, msgs []types.ConversationMessage, tools []types.ToolDefinition, temperature float64, maxTokens int) (*genai.GenerateContentResponse, error) {
	system, contents := buildContents(msgs)

	cfg := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(float32(temperature)),
	}
	if maxTokens > 0 {
		cfg.MaxOutputTokens = int32(maxTokens)
	}
	if system != "" {
		cfg.SystemInstruction = genai.NewContentFromText(system, genai.RoleUser)
	}
	if len(tools) > 0 {
		decls := make([]*genai.FunctionDeclaration, len(tools))
		for i, t := range tools {
			decls[i] = &genai.FunctionDeclaration{
				Name:                 t.Name,
				Description:          t.Description,
				ParametersJsonSchema: t.InputSchema,
			}
		}
		cfg.Tools = []*genai.Tool{{FunctionDeclarations: decls}}
	}

	logging.ModelDebug("gemini generate: %d contents, %d tools", len(contents), len(tools))
	return c.client.Models.GenerateContent(ctx, c.model, contents, cfg)
}

func usageFrom(resp *genai.GenerateContentResponse) types.UsageMetadata {
	if resp.UsageMetadata == nil {
		return types.UsageMetadata{}
	}
	return types.UsageMetadata{
		InputTokens:  int(resp.UsageMetadata.PromptTokenCount),
		OutputTokens: int(resp.UsageMetadata.CandidatesTokenCount),
		TotalTokens:  int(resp.UsageMetadata.TotalTokenCount),
	}
}

// Chat sends a plain completion request.
func (c *GeminiClient) Chat(ctx context.Context, req types.ChatRequest) (*types.ChatResponse, error) {
	resp, err := c.generate(ctx, req.Messages, nil, req.Temperature, req.MaxTokens)
	if err != nil {
		return nil, fmt.Errorf("gemini chat failed: %w", err)
	}

	text := resp.Text()
	if text == "" {
		return nil, ErrEmptyResponse
	}
	usage := usageFrom(resp)
	return &types.ChatResponse{Content: text, Model: c.model, Usage: &usage}, nil
}

// ChatWithTools sends a completion request carrying tool definitions.
func (c *GeminiClient) ChatWithTools(ctx context.Context, req types.ToolChatRequest) (*types.ToolChatResponse, error) {
	resp, err := c.generate(ctx, req.Messages, req.Tools, req.Temperature, req.MaxTokens)
	if err != nil {
		return nil, fmt.Errorf("gemini chat failed: %w", err)
	}

	out := &types.ToolChatResponse{
		Content:      resp.Text(),
		FinishReason: "stop",
		Usage:        usageFrom(resp),
	}
	for i, fc := range resp.FunctionCalls() {
		id := fc.ID
		if id == "" {
			id = fmt.Sprintf("call_%d", i)
		}
		out.ToolCalls = append(out.ToolCalls, types.ToolCall{ID: id, Name: fc.Name, Args: fc.Args})
	}
	if len(out.ToolCalls) > 0 {
		out.FinishReason = "tool_calls"
	}
	if out.Content == "" && len(out.ToolCalls) == 0 {
		return nil, ErrEmptyResponse
	}
	return out, nil
}
