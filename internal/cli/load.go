package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/reconlens/reconlens/internal/store"
)

// LoadOptions holds flags for the load command.
type LoadOptions struct {
	*RootOptions
	Database  string
	Workspace string
}

// NewLoadCommand creates the load command: it validates a CUE rulepack
// and imports its fragments, states, and mappings into the workspace
// tables.
func NewLoadCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &LoadOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "load <rulepack-dir>",
		Short: "Import a CUE rulepack into the database",
		Long: `Validate a CUE rulepack directory and import it into the database.

The workspace row is created when it does not exist yet. Import is not
idempotent: rows with IDs already present in the database fail the
import.

Example:
  reconlens load --db ./recon.db --workspace ws_1 ./rules`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLoad(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	cmd.Flags().StringVar(&opts.Workspace, "workspace", "", "workspace ID (required)")
	_ = cmd.MarkFlagRequired("db")
	_ = cmd.MarkFlagRequired("workspace")

	return cmd
}

func runLoad(opts *LoadOptions, dir string, cmd *cobra.Command) error {
	pack, err := LoadRulepack(dir)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load rulepack", err)
	}

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
		if err := st.InsertWorkspace(ctx, store.Workspace{ID: opts.Workspace, Name: opts.Workspace}); err != nil {
			return WrapExitError(ExitCommandError, "failed to create workspace", err)
		}
	}

	for _, state := range pack.States {
		if err := st.InsertState(ctx, state); err != nil {
			return WrapExitError(ExitCommandError, "failed to import states", err)
		}
	}
	for _, fragment := range pack.Fragments {
		if err := st.InsertFragment(ctx, opts.Workspace, fragment); err != nil {
			return WrapExitError(ExitCommandError, "failed to import fragments", err)
		}
	}
	for _, entry := range pack.Mappings {
		if err := st.InsertMappingEntry(ctx, opts.Workspace, entry); err != nil {
			return WrapExitError(ExitCommandError, "failed to import mappings", err)
		}
	}

	formatter := NewFormatter(opts.Format, cmd.OutOrStdout(), opts.Verbose)
	return formatter.Success("", fmt.Sprintf("Imported %d fragments, %d states, %d mappings into workspace %s.",
		len(pack.Fragments), len(pack.States), len(pack.Mappings), opts.Workspace))
}
