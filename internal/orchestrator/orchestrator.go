// Package orchestrator implements the autonomous session loop: it seeds
// or resumes a conversation with the generative model, dispatches the
// tool calls the model requests, persists a resumable snapshot after
// every iteration, and stops on completion, fatal error, or the
// iteration cap.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"protoforge/internal/logging"
	"protoforge/internal/project"
	"protoforge/internal/tools"
	"protoforge/internal/types"
)

// maxIterationsDefault is the safety cap converting a stuck loop into a
// reported error instead of an infinite hang.
const maxIterationsDefault = 100

// Fatal control errors.
var (
	ErrAlreadyRunning = errors.New("orchestrator already running")
	ErrIterationCap   = errors.New("iteration cap exceeded")
	ErrNoModel        = errors.New("no model client configured")
)

// Config wires an orchestrator to its collaborators.
type Config struct {
	ProjectID string

	Model  types.LLMClient
	Store  types.ProjectStore
	Images types.ImageGenerator
	Input  types.InputFunc

	// Catalog is the read-only board-block catalog for the session.
	Catalog []types.BoardBlock

	// Registry defaults to tools.DefaultRegistry.
	Registry *tools.Registry

	// OnChange fires after every state mutation. Must not block.
	OnChange types.StateChangeFunc

	// OnComplete and OnError report terminal outcomes.
	OnComplete func(*types.ProjectSpec)
	OnError    func(error)

	// MaxIterations defaults to 100.
	MaxIterations int

	// TrimThreshold and KeepRecent bound the conversation; both default
	// to the package constants.
	TrimThreshold int
	KeepRecent    int
}

// Orchestrator drives one project session. Not re-entrant: a second Run
// while one is in flight fails fast.
//
// Only the run flag and the stop hook live behind the mutex. Everything
// else (spec, state, conversation) is owned by the loop goroutine; Stop
// never touches it.
type Orchestrator struct {
	cfg      Config
	registry *tools.Registry

	mu      sync.Mutex
	running bool
	stop    context.CancelFunc

	spec      *types.ProjectSpec
	state     *types.OrchestratorState
	conv      []types.ConversationMessage
	tctx      *tools.Context
	iteration int
}

// New builds an orchestrator. The model client is the only hard
// requirement.
func New(cfg Config) (*Orchestrator, error) {
	if cfg.Model == nil {
		return nil, ErrNoModel
	}
	if cfg.Registry == nil {
		cfg.Registry = tools.DefaultRegistry()
	}
	if cfg.MaxIterations <= 0 {
		cfg.MaxIterations = maxIterationsDefault
	}
	if cfg.TrimThreshold <= 0 {
		cfg.TrimThreshold = defaultTrimThreshold
	}
	if cfg.KeepRecent <= 0 {
		cfg.KeepRecent = defaultKeepRecent
	}
	return &Orchestrator{cfg: cfg, registry: cfg.Registry}, nil
}

// State returns the runtime state for observation. Nil before Run.
func (o *Orchestrator) State() *types.OrchestratorState {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// Run drives the session to completion. An existing document (resume or
// re-run) may be passed directly; otherwise it is loaded from the store
// by project id. Terminal outcomes are also reported through the
// OnComplete/OnError callbacks.
func (o *Orchestrator) Run(ctx context.Context, description string, existing *types.ProjectSpec) error {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	o.mu.Lock()
	if o.running {
		o.mu.Unlock()
		return ErrAlreadyRunning
	}
	o.running = true
	o.stop = cancel
	o.mu.Unlock()

	defer func() {
		o.mu.Lock()
		o.running = false
		o.mu.Unlock()
	}()

	if err := o.initSession(runCtx, description, existing); err != nil {
		return o.fail(runCtx, err)
	}

	for o.isRunning() && !o.exportComplete() {
		o.iteration++
		if o.iteration > o.cfg.MaxIterations {
			return o.fail(runCtx, fmt.Errorf("%w: %d iterations without completing export", ErrIterationCap, o.cfg.MaxIterations))
		}

		if err := o.runIteration(runCtx); err != nil {
			if !o.isRunning() {
				// Stop cut the iteration short; the cancellation is the
				// pause, not a failure.
				return o.pause(context.WithoutCancel(ctx))
			}
			return o.fail(runCtx, err)
		}
		o.persist(runCtx, o.state.Status)
	}

	if !o.isRunning() {
		return o.pause(context.WithoutCancel(ctx))
	}

	o.setStatus(types.StatusComplete)
	o.persist(runCtx, types.StatusComplete)
	logging.Orchestrator("session complete after %d iterations", o.iteration)
	if o.cfg.OnComplete != nil {
		o.cfg.OnComplete(o.spec)
	}
	return nil
}

// Stop requests a cooperative pause and releases an in-flight model call.
// It only flips the run flag and cancels the iteration context; the loop
// goroutine writes the paused snapshot on its way out, so project state
// is never mutated from two goroutines. The flag flips before the cancel
// fires: by the time the canceled iteration error surfaces, the loop
// already sees the stop.
func (o *Orchestrator) Stop() {
	o.mu.Lock()
	if !o.running {
		o.mu.Unlock()
		return
	}
	o.running = false
	cancel := o.stop
	o.mu.Unlock()

	cancel()
	logging.Orchestrator("stop requested")
}

// pause writes the resumable paused snapshot. Runs on the loop goroutine
// with a context that survives the canceled iteration context.
func (o *Orchestrator) pause(ctx context.Context) error {
	o.setStatus(types.StatusPaused)
	o.persist(ctx, types.StatusPaused)
	logging.Orchestrator("session paused at iteration %d", o.iteration)
	return nil
}

// initSession merges or loads the project document, builds runtime state,
// and decides resume vs fresh-start.
func (o *Orchestrator) initSession(ctx context.Context, description string, existing *types.ProjectSpec) error {
	if existing == nil && o.cfg.Store != nil && o.cfg.ProjectID != "" {
		loaded, err := o.cfg.Store.Load(ctx, o.cfg.ProjectID)
		if err != nil {
			return fmt.Errorf("failed to load project: %w", err)
		}
		existing = loaded
	}

	o.spec = project.Merge(existing, description)
	if o.spec.ID == "" {
		if o.cfg.ProjectID != "" {
			o.spec.ID = o.cfg.ProjectID
		} else {
			o.spec.ID = uuid.NewString()
		}
	}

	now := time.Now().UTC()
	o.state = &types.OrchestratorState{
		Status:       types.StatusRunning,
		CurrentStage: project.CurrentStage(o.spec),
		StartedAt:    now,
		UpdatedAt:    now,
	}
	o.tctx = &tools.Context{
		Spec:     o.spec,
		Catalog:  o.cfg.Catalog,
		Model:    o.cfg.Model,
		Images:   o.cfg.Images,
		Input:    o.cfg.Input,
		State:    o.state,
		OnChange: o.cfg.OnChange,
	}

	if persisted := o.spec.Orchestrator; project.ShouldResume(persisted) {
		o.conv = append([]types.ConversationMessage{}, persisted.Conversation...)
		o.conv = append(o.conv, types.ConversationMessage{
			Role:    types.RoleUser,
			Content: buildResumeNotice(persisted.CurrentStage, persisted.Iteration),
		})
		o.iteration = persisted.Iteration
		o.state.Iteration = persisted.Iteration
		o.state.CurrentStage = persisted.CurrentStage
		logging.Orchestrator("resuming session at stage %s, iteration %d, %d replayed messages",
			persisted.CurrentStage, persisted.Iteration, len(persisted.Conversation))
		return nil
	}

	o.conv = []types.ConversationMessage{
		{Role: types.RoleSystem, Content: systemPrompt},
		{Role: types.RoleUser, Content: buildInitMessage(o.spec.Description, project.CompletedStages(o.spec))},
	}
	logging.Orchestrator("fresh session for project %s", o.spec.ID)
	return nil
}

// runIteration performs one model call and dispatches its tool calls.
func (o *Orchestrator) runIteration(ctx context.Context) error {
	o.state.Iteration = o.iteration
	o.conv = Trim(o.conv, TrimConfig{
		Threshold:    o.cfg.TrimThreshold,
		KeepRecent:   o.cfg.KeepRecent,
		CurrentStage: o.state.CurrentStage,
		Completed:    project.CompletedStages(o.spec),
		Iteration:    o.iteration,
	})

	resp, err := o.cfg.Model.ChatWithTools(ctx, types.ToolChatRequest{
		Messages:    o.conv,
		Tools:       o.registry.Definitions(),
		Temperature: 0.7,
	})
	if err != nil {
		return fmt.Errorf("model call failed at iteration %d: %w", o.iteration, err)
	}

	o.state.Usage.Add(resp.Usage)
	if resp.Thinking != "" {
		o.tctx.AppendHistory(types.HistoryThinking, o.state.CurrentStage, resp.Thinking, nil)
	}

	logging.OrchestratorDebug("iteration %d: %d tool calls, finish=%s, tokens=%d",
		o.iteration, len(resp.ToolCalls), resp.FinishReason, o.state.Usage.TotalTokens)
	o.dispatch(ctx, resp)
	return nil
}

// persist writes the resumable snapshot and the project document.
func (o *Orchestrator) persist(ctx context.Context, status types.OrchestratorStatus) {
	project.SetPersisted(o.spec, project.Snapshot(o.conv, o.iteration, status, o.state.CurrentStage))
	if o.cfg.Store == nil {
		return
	}
	if err := o.cfg.Store.Save(ctx, o.spec); err != nil {
		// Persistence failure must not kill the session; the in-memory
		// copy is still live and the next iteration retries the save.
		logging.Orchestrator("snapshot save failed: %v", err)
	}
}

// fail marks the terminal error state, persists it, and reports it.
func (o *Orchestrator) fail(ctx context.Context, err error) error {
	logging.Orchestrator("session failed: %v", err)
	if o.state != nil {
		o.state.Error = err.Error()
		o.setStatus(types.StatusError)
		o.persist(ctx, types.StatusError)
	}
	if o.cfg.OnError != nil {
		o.cfg.OnError(err)
	}
	return err
}

func (o *Orchestrator) setStatus(status types.OrchestratorStatus) {
	o.state.Status = status
	o.state.UpdatedAt = time.Now().UTC()
	if o.cfg.OnChange != nil {
		o.cfg.OnChange(o.state)
	}
}

func (o *Orchestrator) isRunning() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.running
}

func (o *Orchestrator) exportComplete() bool {
	state := o.spec.Stages[types.StageExport]
	return state != nil && state.Status == types.StageComplete
}
