package tools

import (
	"time"

	"github.com/google/uuid"

	"protoforge/internal/types"
)

// Context is the explicit execution context passed to every handler. It
// replaces implicit shared state: handlers read and mutate the project
// document and runtime state only through this object, which keeps
// ownership visible at every call site.
type Context struct {
	// Spec is the in-memory working copy of the project document.
	// Handlers mutate it in place; the loop persists it after each turn.
	Spec *types.ProjectSpec

	// Catalog is the read-only board-block catalog for this session.
	Catalog []types.BoardBlock

	// Model is the generative model collaborator.
	Model types.LLMClient

	// Images renders style-variant images. Optional.
	Images types.ImageGenerator

	// Input is the interactive-input collaborator. Nil in the
	// fully-autonomous mode.
	Input types.InputFunc

	// State is the runtime orchestrator state handlers may patch.
	State *types.OrchestratorState

	// OnChange fires after every state mutation. Optional; must not block.
	OnChange types.StateChangeFunc

	// nameCandidates is cross-tool scratch state: project names proposed
	// by generate_project_name, pending confirmation.
	nameCandidates []string
}

// AppendHistory records one UI-facing loop event and notifies observers.
func (tc *Context) AppendHistory(kind types.HistoryKind, stage types.Stage, message string, data map[string]any) {
	if tc.State == nil {
		return
	}
	tc.State.History = append(tc.State.History, types.HistoryItem{
		ID:        uuid.NewString(),
		Kind:      kind,
		Stage:     stage,
		Message:   message,
		Data:      data,
		Timestamp: time.Now().UTC(),
	})
	tc.notify()
}

// SetStatus patches the runtime status and notifies observers.
func (tc *Context) SetStatus(status types.OrchestratorStatus) {
	if tc.State == nil {
		return
	}
	tc.State.Status = status
	tc.State.UpdatedAt = time.Now().UTC()
	tc.notify()
}

// SetValidation records the latest validator outcome on runtime state.
func (tc *Context) SetValidation(result *types.ValidationResult) {
	if tc.State == nil {
		return
	}
	tc.State.Validation = result
	tc.State.UpdatedAt = time.Now().UTC()
	tc.notify()
}

// SetCurrentStage patches the runtime current-stage pointer.
func (tc *Context) SetCurrentStage(stage types.Stage) {
	if tc.State == nil {
		return
	}
	tc.State.CurrentStage = stage
	tc.State.UpdatedAt = time.Now().UTC()
	tc.notify()
}

// SetNameCandidates stores proposed project names for later confirmation.
func (tc *Context) SetNameCandidates(names []string) {
	tc.nameCandidates = names
}

// NameCandidates returns the pending proposed project names.
func (tc *Context) NameCandidates() []string {
	return tc.nameCandidates
}

func (tc *Context) notify() {
	if tc.OnChange != nil {
		tc.OnChange(tc.State)
	}
}
