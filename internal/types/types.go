// Package types holds the shared data model for protoforge: the project
// document, stage tracking, conversation records, validation results, and
// the interfaces between the orchestration core and its collaborators.
//
// Everything here is plain data. Behavior lives in the packages that own
// each concern (orchestrator, tools, board, validate).
package types

import (
	"time"
)

// Stage identifies one of the five sequential generation stages.
type Stage string

const (
	StageSpec      Stage = "spec"
	StageBoard     Stage = "board"
	StageEnclosure Stage = "enclosure"
	StageFirmware  Stage = "firmware"
	StageExport    Stage = "export"
)

// StageOrder lists the stages in execution order.
// The orchestrator advances through this slice left to right.
var StageOrder = []Stage{StageSpec, StageBoard, StageEnclosure, StageFirmware, StageExport}

// NextStage returns the stage after s, or "" if s is the last stage.
func NextStage(s Stage) Stage {
	for i, st := range StageOrder {
		if st == s && i+1 < len(StageOrder) {
			return StageOrder[i+1]
		}
	}
	return ""
}

// StageStatus represents the status of a single stage.
// Transitions only move forward: pending -> in_progress -> complete,
// or -> error. Never backward.
type StageStatus string

const (
	StagePending    StageStatus = "pending"
	StageInProgress StageStatus = "in_progress"
	StageComplete   StageStatus = "complete"
	StageError      StageStatus = "error"
)

// StageState tracks one stage's progress inside a ProjectSpec.
type StageState struct {
	Status      StageStatus `json:"status"`
	CompletedAt *time.Time  `json:"completed_at,omitempty"`
	Error       string      `json:"error,omitempty"`
}

// OutputSpec declares one output the device must drive.
type OutputSpec struct {
	Type  string `json:"type"`
	Count int    `json:"count"`
}

// InputSpec declares one input the device must read.
type InputSpec struct {
	Type  string `json:"type"`
	Count int    `json:"count"`
}

// PowerSpec declares how the device is powered.
type PowerSpec struct {
	Source string `json:"source"`
}

// FinalSpec is the confirmed project specification produced at the end of
// the spec stage. Board auto-selection and cross-stage validation both
// read from it.
type FinalSpec struct {
	Name        string       `json:"name"`
	Description string       `json:"description"`
	Power       PowerSpec    `json:"power"`
	Outputs     []OutputSpec `json:"outputs"`
	Inputs      []InputSpec  `json:"inputs"`
	Features    []string     `json:"features,omitempty"`
}

// GridPosition is a block's placement on the board grid.
type GridPosition struct {
	Col int `json:"col"`
	Row int `json:"row"`
}

// GridSize is a footprint in grid units.
type GridSize struct {
	Cols int `json:"cols"`
	Rows int `json:"rows"`
}

// BoardBlock is one catalog entry: a selectable circuit function with a
// grid footprint. The catalog is supplied read-only at session start.
type BoardBlock struct {
	Slug     string   `json:"slug"`
	Name     string   `json:"name"`
	Category string   `json:"category"` // mcu, power, sensor, output, input, connector
	Size     GridSize `json:"size"`
	I2CAddr  string   `json:"i2c_addr,omitempty"` // hex literal, e.g. "0x76"
}

// PlacedBlock is a catalog block placed at a grid position.
type PlacedBlock struct {
	Slug     string       `json:"slug"`
	Category string       `json:"category"`
	Position GridPosition `json:"position"`
	Size     GridSize     `json:"size"`
}

// Net is one electrical net in the board layout. Pin is the assigned MCU
// pin number, or -1 when unassigned.
type Net struct {
	Name string `json:"name"`
	Pin  int    `json:"pin"`
}

// BoardLayout is the board stage artifact.
type BoardLayout struct {
	Blocks   []PlacedBlock `json:"blocks"`
	WidthMM  float64       `json:"width_mm"`
	HeightMM float64       `json:"height_mm"`
	Nets     []Net         `json:"nets,omitempty"`
	Warnings []string      `json:"warnings,omitempty"`
}

// EnclosureArtifact is the enclosure stage artifact: the full generated
// model source plus cheap derived signals. Content is intentionally kept
// whole so fix/review iterations can re-examine it.
type EnclosureArtifact struct {
	Content     string    `json:"content"`
	InnerWidth  float64   `json:"inner_width,omitempty"`
	InnerHeight float64   `json:"inner_height,omitempty"`
	Features    []string  `json:"features,omitempty"`
	GeneratedAt time.Time `json:"generated_at"`
}

// SourceFile is one generated firmware source file.
type SourceFile struct {
	Path    string `json:"path"`
	Content string `json:"content"`
}

// FirmwareArtifact is the firmware stage artifact.
type FirmwareArtifact struct {
	Files       []SourceFile `json:"files"`
	GeneratedAt time.Time    `json:"generated_at"`
}

// StyleVariant is one generated enclosure style candidate.
type StyleVariant struct {
	Style    string `json:"style"`
	ImageURL string `json:"image_url"`
}

// ReviewVerdict is the structured outcome of an artifact review.
type ReviewVerdict struct {
	Score     int      `json:"score"`   // 0-100
	Verdict   string   `json:"verdict"` // accept, revise, reject
	Issues    []string `json:"issues"`
	Positives []string `json:"positives"`
}

// ProjectSpec is the durable project document. The persistence collaborator
// owns the authoritative copy; the orchestrator works on an in-memory copy
// and pushes it back after each mutation.
type ProjectSpec struct {
	ID          string `json:"id"`
	Name        string `json:"name,omitempty"`
	Description string `json:"description"`

	// Per-stage artifacts.
	Feasibility map[string]any     `json:"feasibility,omitempty"`
	BoardLayout *BoardLayout       `json:"board_layout,omitempty"`
	Enclosure   *EnclosureArtifact `json:"enclosure,omitempty"`
	Firmware    *FirmwareArtifact  `json:"firmware,omitempty"`
	FinalSpec   *FinalSpec         `json:"final_spec,omitempty"`

	// Accumulated answers to open questions (user or auto).
	Decisions map[string]string `json:"decisions,omitempty"`

	// Style variant candidates from the spec stage.
	StyleVariants   []StyleVariant `json:"style_variants,omitempty"`
	SelectedVariant int            `json:"selected_variant"` // index into StyleVariants, -1 if none

	// Stage tracking. Always has exactly the five stage keys.
	Stages map[Stage]*StageState `json:"stages"`

	// Resumable orchestrator snapshot, if a session was interrupted.
	Orchestrator *PersistedOrchestratorState `json:"orchestrator,omitempty"`

	UpdatedAt time.Time `json:"updated_at"`
}

// Role is a conversation message role in the model protocol.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// ConversationMessage is one entry in the model-facing message log.
//
// Ordering invariant: every tool message is preceded, within the same turn,
// by the assistant message that declared the corresponding tool call, and
// tool messages match the declared calls one-to-one, in order. This is a
// hard contract of the model protocol.
type ConversationMessage struct {
	Role       Role       `json:"role"`
	Content    string     `json:"content"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`   // assistant messages only
	ToolCallID string     `json:"tool_call_id,omitempty"` // tool messages only
}

// HistoryKind classifies UI-facing history items.
type HistoryKind string

const (
	HistoryToolCall   HistoryKind = "tool_call"
	HistoryToolResult HistoryKind = "tool_result"
	HistoryValidation HistoryKind = "validation"
	HistoryError      HistoryKind = "error"
	HistoryFix        HistoryKind = "fix"
	HistoryProgress   HistoryKind = "progress"
	HistoryThinking   HistoryKind = "thinking"
)

// HistoryItem is one UI-facing record of a loop event. The history log is
// append-only and unbounded, unlike the trimmed conversation log.
type HistoryItem struct {
	ID        string         `json:"id"`
	Kind      HistoryKind    `json:"kind"`
	Stage     Stage          `json:"stage"`
	Message   string         `json:"message"`
	Data      map[string]any `json:"data,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// OrchestratorStatus is the runtime status of the loop.
type OrchestratorStatus string

const (
	StatusIdle       OrchestratorStatus = "idle"
	StatusRunning    OrchestratorStatus = "running"
	StatusPaused     OrchestratorStatus = "paused"
	StatusValidating OrchestratorStatus = "validating"
	StatusFixing     OrchestratorStatus = "fixing"
	StatusComplete   OrchestratorStatus = "complete"
	StatusError      OrchestratorStatus = "error"
)

// OrchestratorState is the runtime state of one session. It is created at
// session start, mutated only by the loop and handlers, and discarded at
// process end; the durable continuation is PersistedOrchestratorState.
type OrchestratorState struct {
	Status       OrchestratorStatus `json:"status"`
	CurrentStage Stage              `json:"current_stage"`
	History      []HistoryItem      `json:"history"`
	Iteration    int                `json:"iteration"`
	Validation   *ValidationResult  `json:"validation,omitempty"`
	Error        string             `json:"error,omitempty"`
	Usage        UsageMetadata      `json:"usage"`
	StartedAt    time.Time          `json:"started_at"`
	UpdatedAt    time.Time          `json:"updated_at"`
}

// PersistedOrchestratorState is the resumable snapshot written after every
// iteration and on pause/completion/error. Tool messages are stripped from
// the conversation before persisting.
type PersistedOrchestratorState struct {
	Conversation []ConversationMessage `json:"conversation"`
	Iteration    int                   `json:"iteration"`
	Status       OrchestratorStatus    `json:"status"`
	CurrentStage Stage                 `json:"current_stage"`
	UpdatedAt    time.Time             `json:"updated_at"`
}

// Severity grades a validation issue.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
	SeverityInfo    Severity = "info"
)

// ValidationIssue is one structured consistency problem.
type ValidationIssue struct {
	ID       string   `json:"id"`
	Severity Severity `json:"severity"`
	Stage    Stage    `json:"stage"`
	Message  string   `json:"message"`
	Details  string   `json:"details,omitempty"`
}

// ValidationSuggestion is a suggested fix for an issue.
type ValidationSuggestion struct {
	IssueID     string `json:"issue_id"`
	Stage       Stage  `json:"stage"`
	Action      string `json:"action"`
	AutoFixable bool   `json:"auto_fixable"`
}

// ValidationResult aggregates validator output. Valid is derived: true iff
// no issue has severity error.
type ValidationResult struct {
	Valid       bool                   `json:"valid"`
	Issues      []ValidationIssue      `json:"issues"`
	Suggestions []ValidationSuggestion `json:"suggestions"`
}

// Recompute derives Valid from the collected issues.
func (r *ValidationResult) Recompute() {
	r.Valid = true
	for _, iss := range r.Issues {
		if iss.Severity == SeverityError {
			r.Valid = false
			return
		}
	}
}
