package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/gsync/internal/gitexec"
	"github.com/roach88/gsync/internal/store"
)

// HistoryOptions holds flags for the history command.
type HistoryOptions struct {
	*RootOptions
	SessionID string
}

// NewHistoryCommand creates the history command, which lists recorded
// sync sessions or, with --session, one session's commit cycles.
func NewHistoryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &HistoryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recorded sync sessions",
		Long: `List the sync sessions recorded in the state database.

With --session, list that session's commit cycles instead: one line per
push, with the mirror revision and whether the cycle amended in place.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistory(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.SessionID, "session", "", "show commit cycles for one session")

	return cmd
}

func runHistory(cmd *cobra.Command, opts *HistoryOptions) error {
	setupLogging(opts.Verbose)

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	dbPath := opts.Database
	if dbPath == "" {
		git := gitexec.Git{}
		root, err := superprojectRoot(ctx, git)
		if err != nil {
			return WrapExitError(ExitCommandError, "not inside a git repository", err)
		}
		dbPath = filepath.Join(root, ".git", "gsync.db")
	}
	if _, err := os.Stat(dbPath); err != nil {
		return WrapExitError(ExitCommandError, "no state database (run gsync first)", err)
	}

	st, err := store.Open(dbPath)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open state database", err)
	}
	defer st.Close()

	if opts.SessionID != "" {
		return printCycles(ctx, cmd, st, opts.SessionID)
	}
	return printSessions(ctx, cmd, st)
}

func printSessions(ctx context.Context, cmd *cobra.Command, st *store.Store) error {
	sessions, err := st.Sessions(ctx)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read sessions", err)
	}
	if len(sessions) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No sessions recorded.")
		return nil
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 2, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tBRANCH\tMODE\tSTARTED\tENDED")
	for _, s := range sessions {
		ended := "-"
		if !s.EndedAt.IsZero() {
			ended = s.EndedAt.Local().Format(time.DateTime)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			s.ID, s.Branch, s.Mode, s.StartedAt.Local().Format(time.DateTime), ended)
	}
	return w.Flush()
}

func printCycles(ctx context.Context, cmd *cobra.Command, st *store.Store, sessionID string) error {
	cycles, err := st.Cycles(ctx, sessionID)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read cycles", err)
	}
	if len(cycles) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No cycles recorded for this session.")
		return nil
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 2, 4, 2, ' ', 0)
	fmt.Fprintln(w, "SEQ\tREPO\tREVISION\tAMEND\tPUSHED")
	for _, c := range cycles {
		fmt.Fprintf(w, "%d\t%s\t%.12s\t%t\t%s\n",
			c.Seq, c.RepoID, c.Revision, c.Amend, c.PushedAt.Local().Format(time.DateTime))
	}
	return w.Flush()
}
