// Package cli is the gsync command surface: the root sync command and
// the history subcommand, flag parsing, persisted value resolution and
// exit code mapping.
package cli

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/roach88/gsync/internal/config"
	"github.com/roach88/gsync/internal/gitexec"
	"github.com/roach88/gsync/internal/session"
	"github.com/roach88/gsync/internal/store"
)

// RootOptions holds the root command's flags.
type RootOptions struct {
	Update   bool
	Pull     bool
	Message  string
	Master   string
	Database string
	Verbose  bool
}

// NewRootCommand creates the gsync root command.
//
//	gsync <branch> [repository-uri]   start (or resume) a sync session
//	gsync --update <branch> [uri]     publish the local state as the new baseline
//	gsync --pull -m "message"         fold the mirror branch back into the working branch
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "gsync [branch] [repository-uri]",
		Short: "Mirror local edits onto a remote staging branch",
		Long: `gsync keeps a working repository's local edits continuously mirrored onto
a remote staging branch, so a second machine can follow a developer's
working tree without seeing raw, unsquashed history.

The branch and repository URI are remembered between runs; after the
first session both arguments may be omitted.`,
		Args:          cobra.MaximumNArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSync(cmd, opts, args)
		},
	}

	cmd.Flags().BoolVarP(&opts.Update, "update", "u", false, "publish the local working branch as the new remote baseline")
	cmd.Flags().BoolVarP(&opts.Pull, "pull", "p", false, "squash-merge the mirror branch back into the working branch")
	cmd.Flags().StringVarP(&opts.Message, "message", "m", "", "commit message for --pull")
	cmd.Flags().StringVar(&opts.Master, "master", "", "working branch name (default \"master\")")
	cmd.Flags().StringVar(&opts.Database, "db", "", "path to the state database (default <root>/.git/gsync.db)")
	cmd.Flags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")

	cmd.AddCommand(NewHistoryCommand(opts))

	return cmd
}

func runSync(cmd *cobra.Command, opts *RootOptions, args []string) error {
	setupLogging(opts.Verbose)

	if opts.Pull && opts.Message == "" {
		return NewExitError(ExitCommandError, "--pull requires a commit message (-m)")
	}
	if opts.Pull && opts.Update {
		return NewExitError(ExitCommandError, "--pull and --update are mutually exclusive")
	}

	ctx, cancel := signalContext(cmd.Context())
	defer cancel()

	git := gitexec.Git{}

	root, err := superprojectRoot(ctx, git)
	if err != nil {
		return WrapExitError(ExitCommandError, "not inside a git repository", err)
	}

	st, err := store.Open(databasePath(opts, root))
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open state database", err)
	}
	defer func() {
		if closeErr := st.Close(); closeErr != nil {
			slog.Error("error closing state database", "error", closeErr)
		}
	}()

	cfg, err := resolveConfig(ctx, st, opts, args, root)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to resolve configuration", err)
	}

	ctl := &session.Controller{
		Config: cfg,
		Store:  st,
		Git:    git,
		Log:    slog.Default(),
	}
	if err := ctl.Run(ctx); err != nil {
		return WrapExitError(ExitFailure, "sync session failed", err)
	}
	return nil
}

// resolveConfig merges flags over stored values and writes the resolved
// branch, URI and mode back so the next run can omit them.
func resolveConfig(ctx context.Context, st *store.Store, opts *RootOptions, args []string, root string) (*config.Session, error) {
	var flagBranch, flagURI string
	if len(args) > 0 {
		flagBranch = args[0]
	}
	if len(args) > 1 {
		flagURI = args[1]
	}

	stored, err := loadStored(ctx, st)
	if err != nil {
		return nil, err
	}

	proj, err := config.LoadProject(root)
	if err != nil {
		return nil, err
	}

	cfg, err := config.Resolve(root, config.Flags{
		Branch:      flagBranch,
		URI:         flagURI,
		Master:      opts.Master,
		Update:      opts.Update,
		Pull:        opts.Pull,
		PullMessage: opts.Message,
	}, stored, proj)
	if err != nil {
		return nil, err
	}

	if err := st.Put(ctx, "", config.KeyBranch, cfg.Branch); err != nil {
		return nil, err
	}
	if cfg.URI != "" {
		if err := st.Put(ctx, "", config.KeyURI, cfg.URI); err != nil {
			return nil, err
		}
	}
	if err := st.PutBool(ctx, "", config.KeyUpdate, cfg.Update); err != nil {
		return nil, err
	}

	return cfg, nil
}

func loadStored(ctx context.Context, st *store.Store) (config.Stored, error) {
	var stored config.Stored
	var err error

	if stored.Branch, err = st.Get(ctx, "", config.KeyBranch); err != nil {
		return stored, err
	}
	if stored.URI, err = st.Get(ctx, "", config.KeyURI); err != nil {
		return stored, err
	}
	if stored.Update, err = st.GetBool(ctx, "", config.KeyUpdate); err != nil {
		return stored, err
	}
	return stored, nil
}

// superprojectRoot resolves the repository root containing the current
// working directory.
func superprojectRoot(ctx context.Context, git gitexec.Runner) (string, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return "", err
	}
	return git.Run(ctx, cwd, "rev-parse", "--show-toplevel")
}

func databasePath(opts *RootOptions, root string) string {
	if opts.Database != "" {
		return opts.Database
	}
	return filepath.Join(root, ".git", "gsync.db")
}

func setupLogging(verbose bool) {
	logLevel := slog.LevelInfo
	if verbose {
		logLevel = slog.LevelDebug
	}
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel,
	})
	slog.SetDefault(slog.New(handler))
}

// signalContext derives a context cancelled by SIGINT or SIGTERM,
// replacing any keypress-driven shutdown: the watch loop ends on
// Ctrl-C and teardown runs before the process exits.
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := context.WithCancel(parent)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		select {
		case sig := <-sigChan:
			slog.Info("received signal, shutting down", "signal", sig)
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(sigChan)
	}()

	return ctx, cancel
}
