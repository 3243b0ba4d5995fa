package types

import (
	"context"
)

// ChatRequest is a plain (no tools) model request.
type ChatRequest struct {
	Messages    []ConversationMessage
	Temperature float64
	MaxTokens   int
}

// ChatResponse is the model's answer to a plain request.
type ChatResponse struct {
	Content string
	Model   string
	Usage   *UsageMetadata
}

// ToolChatRequest is a model request carrying tool definitions.
type ToolChatRequest struct {
	Messages    []ConversationMessage
	Tools       []ToolDefinition
	Temperature float64
	MaxTokens   int
	Thinking    bool
}

// ToolChatResponse is the model's answer to a tool-calling request.
type ToolChatResponse struct {
	Content      string
	ToolCalls    []ToolCall
	FinishReason string // "stop", "tool_calls", ...
	Thinking     string
	Usage        UsageMetadata
}

// ToolDefinition describes a tool the model can invoke.
type ToolDefinition struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	InputSchema map[string]any `json:"input_schema"` // JSON Schema for parameters
}

// ToolCall represents a tool invocation requested by the model.
type ToolCall struct {
	ID   string         `json:"id"`
	Name string         `json:"name"`
	Args map[string]any `json:"args"`
}

// UsageMetadata captures token usage metrics from the model.
type UsageMetadata struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
	TotalTokens  int `json:"total_tokens"`
}

// Add accumulates usage from another response.
func (u *UsageMetadata) Add(other UsageMetadata) {
	u.InputTokens += other.InputTokens
	u.OutputTokens += other.OutputTokens
	u.TotalTokens += other.TotalTokens
}

// LLMClient is the generative model collaborator. Implementations retry
// transport failures with bounded exponential backoff; client-class (4xx)
// failures are not retried.
type LLMClient interface {
	Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error)
	ChatWithTools(ctx context.Context, req ToolChatRequest) (*ToolChatResponse, error)
}

// ImageGenerator renders one style-variant image and returns its URL.
// External collaborator; fan-out and partial-failure handling belong to
// the caller.
type ImageGenerator interface {
	GenerateImage(ctx context.Context, prompt string) (string, error)
}

// ProjectStore is the persistence collaborator. It supplies the initial
// ProjectSpec at session start and accepts the working copy back after
// each mutation.
type ProjectStore interface {
	Load(ctx context.Context, projectID string) (*ProjectSpec, error)
	Save(ctx context.Context, spec *ProjectSpec) error
}

// InputFunc is the optional interactive-input collaborator. When absent,
// the core self-answers from the first offered option.
type InputFunc func(ctx context.Context, question string, options []string) (string, error)

// StateChangeFunc observes orchestrator state after every mutation. It must
// not block the loop; there is no backpressure.
type StateChangeFunc func(state *OrchestratorState)
