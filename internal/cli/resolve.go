package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/reconlens/reconlens/internal/recon"
	"github.com/reconlens/reconlens/internal/rule"
	"github.com/reconlens/reconlens/internal/store"
)

// ResolveOptions holds flags for the resolve command.
type ResolveOptions struct {
	*RootOptions
	Database  string
	Workspace string
	Rulepack  string
}

// NewResolveCommand creates the resolve command: it substitutes every
// fragment reference in the workspace mapping expressions and prints
// the fully resolved rules in priority order, surfacing unknown and
// cyclic references as per-rule errors instead of output.
func NewResolveCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ResolveOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "resolve",
		Short: "Resolve workspace rule expressions",
		Long: `Resolve the rule expressions of a workspace.

Mapping expressions reference reusable rule fragments by integer ID.
This command substitutes every reference transitively and prints the
final executable expressions in evaluation priority order.

Example:
  reconlens resolve --db ./recon.db --workspace ws_1
  reconlens resolve --rulepack ./rules`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runResolve(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database")
	cmd.Flags().StringVar(&opts.Workspace, "workspace", "", "workspace ID")
	cmd.Flags().StringVar(&opts.Rulepack, "rulepack", "", "path to a CUE rulepack directory")

	return cmd
}

// resolvedRuleView is one row of resolve output.
type resolvedRuleView struct {
	EntryID  int64  `json:"entry_id"`
	Seq      *int64 `json:"seq,omitempty"`
	State    string `json:"state"`
	Source   string `json:"source_expression"`
	Resolved string `json:"resolved_expression,omitempty"`
	Error    string `json:"error,omitempty"`
}

func runResolve(opts *ResolveOptions, cmd *cobra.Command) error {
	fragments, entries, _, err := loadRules(cmd, opts.Rulepack, opts.Database, opts.Workspace)
	if err != nil {
		return err
	}

	fragStore, err := rule.NewStore(fragments)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid fragment set", err)
	}
	resolver := rule.NewResolver(fragStore)
	table := rule.NewTable(entries)

	var views []resolvedRuleView
	for _, entry := range table.ByPriority() {
		view := resolvedRuleView{
			EntryID: entry.ID,
			State:   entry.State.Name,
			Source:  entry.RuleExpression,
		}
		if entry.HasSeq {
			seq := entry.Seq
			view.Seq = &seq
		}
		resolved, err := resolver.Resolve(entry)
		if err != nil {
			view.Error = err.Error()
		} else {
			view.Resolved = resolved
		}
		views = append(views, view)
	}

	formatter := NewFormatter(opts.Format, cmd.OutOrStdout(), opts.Verbose)
	if formatter.Format == "json" {
		return formatter.Success("", views)
	}
	for _, v := range views {
		seq := "-"
		if v.Seq != nil {
			seq = fmt.Sprintf("%d", *v.Seq)
		}
		if v.Error != "" {
			fmt.Fprintf(cmd.OutOrStdout(), "entry %d (seq %s, state %s)\n  source: %s\n  ERROR:  %s\n",
				v.EntryID, seq, v.State, v.Source, v.Error)
			continue
		}
		fmt.Fprintf(cmd.OutOrStdout(), "entry %d (seq %s, state %s)\n  source:   %s\n  resolved: %s\n",
			v.EntryID, seq, v.State, v.Source, v.Resolved)
	}
	return nil
}

// loadRules loads fragments, mapping entries, and states from either a
// CUE rulepack or the workspace tables, preferring the rulepack when
// both are given.
func loadRules(cmd *cobra.Command, rulepack, database, workspace string) ([]rule.Fragment, []rule.MappingEntry, []recon.State, error) {
	if rulepack != "" {
		pack, err := LoadRulepack(rulepack)
		if err != nil {
			return nil, nil, nil, WrapExitError(ExitCommandError, "failed to load rulepack", err)
		}
		return pack.Fragments, pack.Mappings, pack.States, nil
	}

	if database == "" || workspace == "" {
		return nil, nil, nil, WrapExitError(ExitCommandError, "either --rulepack or both --db and --workspace are required", nil)
	}

	st, err := store.Open(database)
	if err != nil {
		return nil, nil, nil, WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	ctx := cmd.Context()
	ws, err := st.Workspace(ctx, workspace)
	if err != nil {
		return nil, nil, nil, WrapExitError(ExitCommandError, "failed to load workspace", err)
	}
	if ws == nil {
		return nil, nil, nil, WrapExitError(ExitCommandError, fmt.Sprintf("workspace %s not found", workspace), nil)
	}

	fragments, err := st.Fragments(ctx, workspace)
	if err != nil {
		return nil, nil, nil, WrapExitError(ExitCommandError, "failed to load rules", err)
	}
	entries, states, err := st.MappingEntries(ctx, workspace)
	if err != nil {
		return nil, nil, nil, WrapExitError(ExitCommandError, "failed to load rule mappings", err)
	}
	return fragments, entries, states, nil
}
