// Package project owns the in-memory working copy of the project document:
// construction, named state patches with explicit merge semantics, and the
// forward-only stage state machine.
package project

import (
	"fmt"
	"time"

	"protoforge/internal/logging"
	"protoforge/internal/types"
)

// New creates a fresh project document with all five stages pending.
func New(id, description string) *types.ProjectSpec {
	spec := &types.ProjectSpec{
		ID:              id,
		Description:     description,
		Decisions:       make(map[string]string),
		SelectedVariant: -1,
		Stages:          make(map[types.Stage]*types.StageState, len(types.StageOrder)),
		UpdatedAt:       time.Now().UTC(),
	}
	for _, st := range types.StageOrder {
		spec.Stages[st] = &types.StageState{Status: types.StagePending}
	}
	return spec
}

// Merge normalizes an existing document for a new session: the five stage
// keys are guaranteed present (missing ones default to pending), statuses
// already set are preserved, and the description is filled in if empty.
func Merge(existing *types.ProjectSpec, description string) *types.ProjectSpec {
	if existing == nil {
		return New("", description)
	}
	if existing.Description == "" {
		existing.Description = description
	}
	if existing.Decisions == nil {
		existing.Decisions = make(map[string]string)
	}
	if existing.Stages == nil {
		existing.Stages = make(map[types.Stage]*types.StageState, len(types.StageOrder))
	}
	for _, st := range types.StageOrder {
		if existing.Stages[st] == nil {
			existing.Stages[st] = &types.StageState{Status: types.StagePending}
		}
	}
	return existing
}

// CurrentStage returns the first stage that is not complete. When every
// stage is complete it returns the export stage.
func CurrentStage(spec *types.ProjectSpec) types.Stage {
	for _, st := range types.StageOrder {
		if state := spec.Stages[st]; state == nil || state.Status != types.StageComplete {
			return st
		}
	}
	return types.StageExport
}

// CompletedStages returns the stages with status complete, in order.
func CompletedStages(spec *types.ProjectSpec) []types.Stage {
	var done []types.Stage
	for _, st := range types.StageOrder {
		if state := spec.Stages[st]; state != nil && state.Status == types.StageComplete {
			done = append(done, st)
		}
	}
	return done
}

// stageRank orders statuses for the forward-only rule. Error is terminal
// from any live status.
var stageRank = map[types.StageStatus]int{
	types.StagePending:    0,
	types.StageInProgress: 1,
	types.StageComplete:   2,
	types.StageError:      2,
}

// Transition moves a stage to a new status, enforcing forward-only
// movement: pending -> in_progress -> complete, or -> error. Moving
// backward is an error; transitioning to the current status is a no-op.
func Transition(spec *types.ProjectSpec, stage types.Stage, status types.StageStatus) error {
	state := spec.Stages[stage]
	if state == nil {
		return fmt.Errorf("unknown stage %q", stage)
	}
	if state.Status == status {
		return nil
	}
	if stageRank[status] < stageRank[state.Status] || state.Status == types.StageComplete || state.Status == types.StageError {
		return fmt.Errorf("stage %s cannot move %s -> %s", stage, state.Status, status)
	}

	logging.OrchestratorDebug("stage %s: %s -> %s", stage, state.Status, status)
	state.Status = status
	if status == types.StageComplete {
		now := time.Now().UTC()
		state.CompletedAt = &now
	}
	touch(spec)
	return nil
}

// MarkStageComplete completes a stage and, unless it is the last stage,
// moves the next stage to in_progress.
func MarkStageComplete(spec *types.ProjectSpec, stage types.Stage) error {
	if err := Transition(spec, stage, types.StageComplete); err != nil {
		return err
	}
	if next := types.NextStage(stage); next != "" {
		if state := spec.Stages[next]; state != nil && state.Status == types.StagePending {
			return Transition(spec, next, types.StageInProgress)
		}
	}
	return nil
}

// MarkStageError records a stage failure.
func MarkStageError(spec *types.ProjectSpec, stage types.Stage, msg string) error {
	state := spec.Stages[stage]
	if state == nil {
		return fmt.Errorf("unknown stage %q", stage)
	}
	state.Error = msg
	return Transition(spec, stage, types.StageError)
}

func touch(spec *types.ProjectSpec) {
	spec.UpdatedAt = time.Now().UTC()
}

// Named state patches. Merge semantics are explicit per field: artifact
// fields overwrite, decisions accumulate.

// SetFeasibility overwrites the feasibility artifact.
func SetFeasibility(spec *types.ProjectSpec, f map[string]any) {
	spec.Feasibility = f
	touch(spec)
}

// AddDecision accumulates one answered question. Re-answering the same
// question overwrites that single entry.
func AddDecision(spec *types.ProjectSpec, question, answer string) {
	if spec.Decisions == nil {
		spec.Decisions = make(map[string]string)
	}
	spec.Decisions[question] = answer
	touch(spec)
}

// SetStyleVariants overwrites the candidate list and clears any previous
// selection.
func SetStyleVariants(spec *types.ProjectSpec, variants []types.StyleVariant) {
	spec.StyleVariants = variants
	spec.SelectedVariant = -1
	touch(spec)
}

// SelectVariant records the chosen variant by index, bounds-checked.
func SelectVariant(spec *types.ProjectSpec, index int) error {
	if index < 0 || index >= len(spec.StyleVariants) {
		return fmt.Errorf("variant index %d out of range [0,%d)", index, len(spec.StyleVariants))
	}
	spec.SelectedVariant = index
	touch(spec)
	return nil
}

// SetName overwrites the project name.
func SetName(spec *types.ProjectSpec, name string) {
	spec.Name = name
	touch(spec)
}

// SetFinalSpec overwrites the finalized specification.
func SetFinalSpec(spec *types.ProjectSpec, fs *types.FinalSpec) {
	spec.FinalSpec = fs
	touch(spec)
}

// SetBoardLayout overwrites the board artifact.
func SetBoardLayout(spec *types.ProjectSpec, layout *types.BoardLayout) {
	spec.BoardLayout = layout
	touch(spec)
}

// SetEnclosure overwrites the enclosure artifact.
func SetEnclosure(spec *types.ProjectSpec, enc *types.EnclosureArtifact) {
	spec.Enclosure = enc
	touch(spec)
}

// SetFirmware overwrites the firmware artifact.
func SetFirmware(spec *types.ProjectSpec, fw *types.FirmwareArtifact) {
	spec.Firmware = fw
	touch(spec)
}

// SetPersisted stores the resumable orchestrator snapshot on the document.
func SetPersisted(spec *types.ProjectSpec, p *types.PersistedOrchestratorState) {
	spec.Orchestrator = p
	touch(spec)
}
