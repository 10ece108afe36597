package ame

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/gookit/color"
	"github.com/spf13/cobra"

	"ame/internal/aur"
	"ame/internal/logging"
)

// cli holds the parsed flags and the state shared by every command.
type cli struct {
	configPath string
	sync       bool
	remove     bool
	aurSearch  bool
	recursive  bool
	noConfirm  bool
	asDeps     bool
	skipReview bool
	verbose    int

	cfg *Config
	h   *logging.Handler
	out io.Writer
}

func newRootCmd(c *cli) *cobra.Command {
	root := &cobra.Command{
		Use:           appName + " [-S|-R] [flags] <packages...>",
		Short:         "Install packages from the repositories and the AUR",
		Version:       fmt.Sprintf("%s (built %s)", version, buildDate),
		Args:          cobra.ArbitraryArgs,
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, args []string) error {
			switch {
			case c.sync && c.aurSearch:
				return c.runSearch(cmd.Context(), args)
			case c.sync:
				return c.runInstall(cmd.Context(), args)
			case c.remove:
				return c.runRemove(cmd.Context(), args)
			}
			return cmd.Help()
		},
	}
	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return &usageError{msg: err.Error()}
	})

	pf := root.PersistentFlags()
	pf.StringVar(&c.configPath, "config", "", "configuration file")
	pf.BoolVarP(&c.noConfirm, "noconfirm", "n", false, "do not ask for any confirmation")
	pf.CountVarP(&c.verbose, "verbose", "v", "increase verbosity (repeatable)")

	f := root.Flags()
	f.BoolVarP(&c.sync, "sync", "S", false, "install packages")
	f.BoolVarP(&c.remove, "remove", "R", false, "remove packages")
	f.BoolVarP(&c.aurSearch, "aur", "a", false, "with -S, search the AUR")
	f.BoolVarP(&c.recursive, "recursive", "s", false, "with -R, also remove unneeded dependencies")
	f.BoolVar(&c.asDeps, "asdeps", false, "mark installed packages as dependencies")
	f.BoolVar(&c.skipReview, "skip-review", false, "do not offer to review build recipes")

	ins := &cobra.Command{
		Use:   "ins <packages...>",
		Short: "Install packages (same as -S)",
		Args:  requireArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runInstall(cmd.Context(), args)
		},
	}
	ins.Flags().BoolVar(&c.asDeps, "asdeps", false, "mark installed packages as dependencies")
	ins.Flags().BoolVar(&c.skipReview, "skip-review", false, "do not offer to review build recipes")

	rm := &cobra.Command{
		Use:   "rm <packages...>",
		Short: "Remove packages (same as -R)",
		Args:  requireArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runRemove(cmd.Context(), args)
		},
	}
	rm.Flags().BoolVarP(&c.recursive, "recursive", "s", false, "also remove unneeded dependencies")

	sea := &cobra.Command{
		Use:   "aursea <query>",
		Short: "Search the AUR (same as -Sa)",
		Args:  requireArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runSearch(cmd.Context(), args)
		},
	}

	root.AddCommand(ins, rm, sea)
	root.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		return c.setup()
	}
	return root
}

func requireArgs(n int) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if len(args) < n {
			return &usageError{msg: fmt.Sprintf("%s needs at least %d argument(s)", cmd.Name(), n)}
		}
		return nil
	}
}

// setup loads the configuration and builds the log sink.
func (c *cli) setup() error {
	path := c.configPath
	if path == "" {
		path = defaultConfigFile(os.Getenv)
	}
	cfg, err := loadConfig(path, os.Getenv, os.Environ())
	if err != nil {
		return err
	}
	level, err := logging.ParseVerbosity(cfg.Verbosity)
	if err != nil {
		return err
	}
	level = min(level+logging.Verbosity(c.verbose), logging.Trace)

	c.cfg = cfg
	if c.h == nil {
		c.h = logging.NewTerminal(level)
	} else {
		c.h.SetVerbosity(level)
	}
	return nil
}

func (c *cli) options() Options {
	return Options{
		NoConfirm:  c.noConfirm || c.cfg.NoConfirm,
		AsDeps:     c.asDeps,
		SkipReview: c.skipReview || c.cfg.SkipReview,
		Verbosity:  c.h.Verbosity(),
	}
}

func (c *cli) aurClient() *aur.Client {
	return aur.New(c.cfg.AURURL,
		aur.WithLogger(c.h.Logger()),
		aur.WithBatchSize(c.cfg.RPCBatchSize),
		aur.WithHTTPClient(&http.Client{Timeout: c.cfg.RPCTimeout}),
	)
}

func (c *cli) runInstall(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return &usageError{msg: "no packages given"}
	}
	targets, err := ParsePackageNames(args)
	if err != nil {
		return err
	}

	client := c.aurClient()
	executor := NewExecutor(ctx, c.cfg.Elevator)
	var logRoot string
	if c.cfg.BuildLogs {
		logRoot = filepath.Join(c.cfg.CacheDir, ".logs")
	}
	l := c.h.Logger()
	p := NewPipeline(c.h, Collaborators{
		Registry: client,
		Names:    client.NameIndex(filepath.Join(c.cfg.CacheDir, ".index")),
		Manager:  NewPacman(l, c.cfg.Pacman, executor),
		Builder:  NewMakepkg(l, c.cfg.Makepkg, executor, c.cfg.IdleBuild, logRoot),
		Source:   NewGitSource(l),
		Pager:    NewTermPager(os.Stdout),
		Prompter: NewTermPrompter(c.h, os.Stdin, os.Stdout),
	}, c.cfg.CacheDir, c.cfg.AURURL, c.options())

	err = p.Run(ctx, targets)
	c.summarize(p.Report(), err)
	return err
}

func (c *cli) summarize(r Report, err error) {
	if len(r.RepoInstalled) > 0 {
		c.h.Infof("Repository packages: %s", strings.Join(r.RepoInstalled, ", "))
	}
	if len(r.Built) > 0 {
		c.h.Infof("AUR packages built: %s", strings.Join(r.Built, ", "))
	}
	if err == nil {
		c.h.Infof("Done")
	}
}

func (c *cli) runRemove(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return &usageError{msg: "no packages given"}
	}
	pm := NewPacman(c.h.Logger(), c.cfg.Pacman, NewExecutor(ctx, c.cfg.Elevator))
	flags := RemoveFlags{Recursive: c.recursive, NoConfirm: c.noConfirm || c.cfg.NoConfirm}
	if err := pm.Uninstall(ctx, args, flags); err != nil {
		return cancelled(ctx, fmt.Errorf("removing %s: %w", strings.Join(args, ", "), err))
	}
	return nil
}

func (c *cli) runSearch(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return &usageError{msg: "no search query given"}
	}
	query := strings.Join(args, " ")
	spinner := c.h.NewSpinner("Searching the AUR for " + query)
	results, err := c.aurClient().Search(ctx, query, aur.ByName)
	spinner.Finish("")
	if err != nil {
		return cancelled(ctx, fmt.Errorf("searching the AUR: %w", err))
	}
	if len(results) == 0 {
		c.h.Warnf("No AUR packages match %q", query)
		return nil
	}
	printSearchResults(c.out, results)
	return nil
}

// printSearchResults lists results, most popular last so the best match
// ends up next to the prompt.
func printSearchResults(w io.Writer, results []aur.Package) {
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Popularity < results[j].Popularity
	})
	for _, pkg := range results {
		line := cSprint(colNote, "aur/") + cSprint(colInfo, pkg.Name) + " " + cSprint(colSuccess, pkg.Version)
		if pkg.OutOfDate != nil {
			line += " " + cSprint(colWarn, "(out of date)")
		}
		fmt.Fprintln(w, line)
		if pkg.Description != "" {
			fmt.Fprintln(w, "    "+pkg.Description)
		}
	}
}

// handleSignals cancels ctx on the first interrupt. During a native-manager
// transaction the first interrupt only warns; a second one always exits.
func handleSignals(ctx context.Context, cancel context.CancelFunc, sigs <-chan os.Signal) {
	for {
		select {
		case sig := <-sigs:
			if isCriticalAtomic.Load() == 1 {
				fmt.Fprintln(os.Stderr, cSprint(colArrow, "\n-> ")+cSprint(colError, "Critical operation in progress. Press Ctrl+C AGAIN to force exit NOW."))
				select {
				case <-sigs:
					fmt.Fprintln(os.Stderr, cSprint(colError, "Forced immediate exit."))
					os.Exit(130)
				case <-time.After(5 * time.Second):
					continue
				case <-ctx.Done():
					return
				}
			}

			fmt.Fprintln(os.Stderr, cSprint(colArrow, "\n-> ")+color.Danger.Sprintf("Received %v. Cancelling", sig))
			cancel()
			select {
			case <-sigs:
				fmt.Fprintln(os.Stderr, color.Danger.Sprint("Second interrupt received. Forcing immediate exit."))
				os.Exit(130)
			case <-time.After(10 * time.Second):
				fmt.Fprintln(os.Stderr, color.Danger.Sprint("Graceful shutdown timeout. Exiting."))
				os.Exit(ExitUserCancellation)
			}
		case <-ctx.Done():
			return
		}
	}
}

// Main is the CLI entrypoint.
func Main() {
	ctx, cancel := context.WithCancel(context.Background())

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, os.Interrupt, syscall.SIGTERM)
	go handleSignals(ctx, cancel, sigs)

	c := &cli{out: os.Stdout}
	err := newRootCmd(c).ExecuteContext(ctx)
	if err != nil {
		render(c.h, err)
	}
	signal.Stop(sigs)
	cancel()
	os.Exit(ExitCode(err))
}

// render prints the one-line failure summary.
func render(h *logging.Handler, err error) {
	if h == nil {
		fmt.Fprintln(os.Stderr, cSprint(colError, "error: ", err))
		return
	}
	var pe *PipelineError
	if errors.As(err, &pe) && pe.Kind == UserCancellation {
		h.Warnf("%v", err)
		return
	}
	h.Errorf("%v", err)
}
