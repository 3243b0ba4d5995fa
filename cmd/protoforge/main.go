package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"protoforge/internal/board"
	"protoforge/internal/config"
	"protoforge/internal/llm"
	"protoforge/internal/logging"
	"protoforge/internal/orchestrator"
	"protoforge/internal/project"
	"protoforge/internal/store"
	"protoforge/internal/types"
	"protoforge/internal/validate"
)

var (
	// Global flags
	configPath string
	debug      bool
	projectID  string

	cfg *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "protoforge",
	Short: "protoforge - autonomous hardware project generator",
	Long: `protoforge drives a free-text hardware idea through five generation
stages (spec, board, enclosure, firmware, export) by letting a generative
model call project tools until the design validates end to end.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			return err
		}
		if debug {
			cfg.Logging.Debug = true
		}
		return logging.Init(cfg.Logging.Debug, cfg.Logging.File)
	},
}

var runCmd = &cobra.Command{
	Use:   "run [description]",
	Short: "Run a new project session from a free-text idea",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		description := args[0]
		if projectID == "" {
			projectID = uuid.NewString()
		}
		return runSession(cmd.Context(), description, nil)
	},
}

var resumeCmd = &cobra.Command{
	Use:   "resume",
	Short: "Resume a paused project session",
	RunE: func(cmd *cobra.Command, args []string) error {
		if projectID == "" {
			return fmt.Errorf("--project is required to resume")
		}
		st, err := openStore()
		if err != nil {
			return err
		}
		spec, err := st.Load(cmd.Context(), projectID)
		if err != nil {
			return err
		}
		if spec == nil {
			return fmt.Errorf("project %s not found", projectID)
		}
		if !project.ShouldResume(spec.Orchestrator) {
			return fmt.Errorf("project %s has no resumable session", projectID)
		}
		return runSession(cmd.Context(), spec.Description, spec)
	},
}

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Run cross-stage validation against a stored project",
	RunE: func(cmd *cobra.Command, args []string) error {
		if projectID == "" {
			return fmt.Errorf("--project is required")
		}
		st, err := openStore()
		if err != nil {
			return err
		}
		spec, err := st.Load(cmd.Context(), projectID)
		if err != nil {
			return err
		}
		if spec == nil {
			return fmt.Errorf("project %s not found", projectID)
		}

		result := validate.Run(spec)
		fmt.Println(validate.GenerateReport(result))
		if !result.Valid {
			os.Exit(1)
		}
		return nil
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show stage status for a stored project",
	RunE: func(cmd *cobra.Command, args []string) error {
		if projectID == "" {
			return fmt.Errorf("--project is required")
		}
		st, err := openStore()
		if err != nil {
			return err
		}
		spec, err := st.Load(cmd.Context(), projectID)
		if err != nil {
			return err
		}
		if spec == nil {
			return fmt.Errorf("project %s not found", projectID)
		}

		name := spec.Name
		if name == "" {
			name = "(unnamed)"
		}
		fmt.Printf("%s  %s\n", spec.ID, name)
		for _, stage := range types.StageOrder {
			state := spec.Stages[stage]
			fmt.Printf("  %-10s %s\n", stage, state.Status)
		}
		if spec.Orchestrator != nil {
			fmt.Printf("  session: %s at iteration %d\n", spec.Orchestrator.Status, spec.Orchestrator.Iteration)
		}
		return nil
	},
}

func runSession(ctx context.Context, description string, existing *types.ProjectSpec) error {
	st, err := openStore()
	if err != nil {
		return err
	}

	model, err := llm.NewClient(llm.Config{
		Provider:         cfg.Model.Provider,
		APIKey:           cfg.Model.APIKey,
		BaseURL:          cfg.Model.BaseURL,
		Model:            cfg.Model.Model,
		Timeout:          parseDuration(cfg.Model.Timeout, 120*time.Second),
		MaxRetries:       cfg.Model.MaxRetries,
		RetryBackoffBase: parseDuration(cfg.Model.Backoff, time.Second),
	})
	if err != nil {
		return err
	}

	o, err := orchestrator.New(orchestrator.Config{
		ProjectID:     projectID,
		Model:         model,
		Store:         st,
		Catalog:       board.DefaultCatalog(),
		MaxIterations: cfg.Orchestrator.MaxIterations,
		TrimThreshold: cfg.Orchestrator.TrimThreshold,
		KeepRecent:    cfg.Orchestrator.KeepRecent,
		OnChange: func(state *types.OrchestratorState) {
			// Progress surface; the loop must never block on it.
		},
		OnComplete: func(spec *types.ProjectSpec) {
			fmt.Printf("project %s complete: %s\n", spec.ID, spec.Name)
		},
	})
	if err != nil {
		return err
	}

	// SIGINT pauses the session so it can be resumed later. Stop cancels
	// the in-flight model call itself; the run context stays live so the
	// paused snapshot can still be written.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigs)
	go func() {
		<-sigs
		o.Stop()
	}()

	return o.Run(ctx, description, existing)
}

func openStore() (types.ProjectStore, error) {
	switch cfg.Store.Backend {
	case "file":
		return store.NewFileStore(cfg.Store.Path)
	case "", "sqlite":
		return store.NewSQLiteStore(cfg.Store.Path)
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
	}
}

func parseDuration(s string, fallback time.Duration) time.Duration {
	if s == "" {
		return fallback
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return fallback
	}
	return d
}

func main() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "protoforge.yaml", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&debug, "debug", "d", false, "debug logging")
	rootCmd.PersistentFlags().StringVarP(&projectID, "project", "p", "", "project id")

	rootCmd.AddCommand(runCmd, resumeCmd, validateCmd, statusCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		logging.Sync()
		os.Exit(1)
	}
	logging.Sync()
}
