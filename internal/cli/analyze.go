package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/reconlens/reconlens/internal/config"
	"github.com/reconlens/reconlens/internal/engine"
	"github.com/reconlens/reconlens/internal/logging"
	"github.com/reconlens/reconlens/internal/recon"
	"github.com/reconlens/reconlens/internal/remark"
	"github.com/reconlens/reconlens/internal/store"
)

// AnalyzeOptions holds flags for the analyze command.
type AnalyzeOptions struct {
	*RootOptions
	Database  string
	Workspace string
	Rulepack  string
	Scenario  string
	NoRemarks bool
}

// Scenario filter values accepted by --scenario.
var validScenarios = []string{"all", "timestamp", "missing", "rules"}

// NewAnalyzeCommand creates the analyze command: the full explanation
// pipeline for one or more record identifiers.
func NewAnalyzeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &AnalyzeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "analyze <value>...",
		Short: "Explain why records did or did not reconcile",
		Long: `Analyze one or more records identified by their unique-column value.

For each value the command assembles the internal/MIS record pair from
the journal and runs three checks: reconciled records whose transaction
timestamp never synced, pairs with a missing counterpart, and pairs
where both sides exist but rule matching placed them short of
reconciled.

Example:
  reconlens analyze --db ./recon.db --workspace ws_1 TXN12345
  reconlens analyze --db ./recon.db --workspace ws_1 --scenario rules TXN1 TXN2`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAnalyze(opts, args, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	cmd.Flags().StringVar(&opts.Workspace, "workspace", "", "workspace ID (required)")
	cmd.Flags().StringVar(&opts.Rulepack, "rulepack", "", "load rules from a CUE rulepack instead of the database")
	cmd.Flags().StringVar(&opts.Scenario, "scenario", "all", "scenario filter (all|timestamp|missing|rules)")
	cmd.Flags().BoolVar(&opts.NoRemarks, "no-remarks", false, "skip remark generation")
	_ = cmd.MarkFlagRequired("db")
	_ = cmd.MarkFlagRequired("workspace")

	return cmd
}

func runAnalyze(opts *AnalyzeOptions, values []string, cmd *cobra.Command) error {
	if !contains(validScenarios, opts.Scenario) {
		return WrapExitError(ExitCommandError, fmt.Sprintf("invalid scenario %q: must be one of %v", opts.Scenario, validScenarios), nil)
	}

	cfg, err := loadConfig(opts.Config)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load config", err)
	}

	level := cfg.Log.Level
	if opts.Verbose {
		level = "debug"
	}
	log, err := logging.New(level)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to build logger", err)
	}
	defer func() { _ = log.Sync() }()

	st, err := store.Open(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	ctx := cmd.Context()

	ws, err := st.Workspace(ctx, opts.Workspace)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load workspace", err)
	}
	if ws == nil {
		return WrapExitError(ExitCommandError, fmt.Sprintf("workspace %s not found", opts.Workspace), nil)
	}

	fileTypes, err := st.FileTypes(ctx, opts.Workspace)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load file types", err)
	}

	fragments, entries, states, err := loadRules(cmd, opts.Rulepack, opts.Database, opts.Workspace)
	if err != nil {
		return err
	}

	snap, err := engine.BuildSnapshot(log, fragments, entries, states,
		engine.Options{Confidence: engine.ConfidencePolicy{KeepMixedHigh: cfg.Engine.KeepMixedHigh}})
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to build rule snapshot", err)
	}
	log.Info("snapshot ready",
		zap.String("run_id", snap.RunID()),
		zap.Int("rules", snap.RuleCount()),
		zap.Int("skipped", snap.SkippedCount()))

	// Gather pairs and previously resolved records for every value.
	statesByName := make(map[string]recon.State, len(states))
	for _, s := range states {
		statesByName[s.Name] = s
	}
	var pairs []recon.RecordPair
	var resolved []engine.ResolvedRecord
	for _, value := range values {
		pair, journal, err := st.AssemblePair(ctx, fileTypes, value)
		if err != nil {
			return WrapExitError(ExitCommandError, fmt.Sprintf("failed to load records for %s", value), err)
		}
		pairs = append(pairs, pair)
		for _, jr := range journal {
			state, ok := statesByName[jr.ReconStatus]
			if !ok {
				continue
			}
			resolved = append(resolved, engine.ResolvedRecord{
				RecordID: pair.ID,
				EntityID: jr.EntityID,
				State:    state,
				ReconAt:  jr.ReconAt,
			})
		}
	}

	var findings []recon.Finding

	if opts.Scenario == "all" || opts.Scenario == "timestamp" {
		tsFindings, err := engine.TimestampSync(ctx, log, resolved, cfg.Engine.ReconciledRank, st)
		if err != nil {
			return WrapExitError(ExitCommandError, "timestamp-sync scenario failed", err)
		}
		findings = append(findings, tsFindings...)
	}

	if opts.Scenario == "all" || opts.Scenario == "missing" {
		findings = append(findings, snap.MissingCounterpart(ctx, pairs, st, st)...)
	}

	if opts.Scenario == "all" || opts.Scenario == "rules" {
		if opts.NoRemarks {
			// No remark attachment needed, so resolution can fan out
			// across workers.
			twoSided := make([]recon.RecordPair, 0, len(pairs))
			for _, p := range pairs {
				if p.HasInternal() && p.HasMIS() {
					twoSided = append(twoSided, p)
				}
			}
			batch, err := engine.EvaluateBatch(ctx, snap, twoSided, cfg.Engine.Workers)
			if err != nil {
				return WrapExitError(ExitCommandError, "rule evaluation failed", err)
			}
			for i := range batch {
				batch[i].Scenario = engine.ScenarioRuleFailure
				batch[i].Issue = engine.IssueRuleMatchFailure
			}
			findings = append(findings, batch...)
		} else {
			provider := buildRemarkProvider(cfg, log)
			findings = append(findings, snap.RuleFailure(ctx, pairs, provider)...)
		}
	}

	formatter := NewFormatter(opts.Format, cmd.OutOrStdout(), opts.Verbose)
	return formatter.Findings(snap.RunID(), findings)
}

// loadConfig reads the config file when given, defaults otherwise.
func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.Default(), nil
	}
	return config.Load(path)
}

// buildRemarkProvider wires the configured remark provider. The OpenAI
// provider always falls back to templates so remark generation stays
// best-effort.
func buildRemarkProvider(cfg *config.Config, log *zap.Logger) remark.Provider {
	template := remark.NewTemplateProvider()
	if cfg.Remarks.Provider != "openai" {
		return template
	}
	primary := remark.NewOpenAIProvider(cfg.Remarks.OpenAI.APIKey, cfg.Remarks.OpenAI.Model, cfg.Remarks.OpenAI.BaseURL)
	timeout := time.Duration(cfg.Remarks.TimeoutSeconds) * time.Second
	return remark.WithFallback(primary, template, timeout, log)
}

func contains(values []string, v string) bool {
	for _, x := range values {
		if x == v {
			return true
		}
	}
	return false
}
