package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/charmbracelet/x/term"
	"github.com/spf13/cobra"

	"github.com/fakeyudi/gitmind/internal/ai"
	"github.com/fakeyudi/gitmind/internal/catalog"
	"github.com/fakeyudi/gitmind/internal/config"
	"github.com/fakeyudi/gitmind/internal/engine"
	"github.com/fakeyudi/gitmind/internal/intent"
	"github.com/fakeyudi/gitmind/internal/logging"
	"github.com/fakeyudi/gitmind/internal/profile"
	"github.com/fakeyudi/gitmind/internal/render"
	"github.com/fakeyudi/gitmind/internal/state"
)

// Version is stamped at build time with -ldflags.
var Version = "dev"

// cfg holds the merged configuration, populated in PersistentPreRunE.
var cfg config.Config

// activeProfile holds the loaded user profile.
var activeProfile *profile.Profile

var (
	debugFlag  bool
	formatFlag string
	noPersist  bool
	workDir    string
)

var rootCmd = &cobra.Command{
	Use:           "gitmind",
	Short:         "Resolve natural-language git requests against live repository context",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Skip setup check for the setup command itself.
		if cmd.Name() == "setup" {
			return nil
		}

		// First-run: profile missing → run setup wizard automatically.
		// Only do this when stdin is an interactive terminal.
		if in, ok := cmd.InOrStdin().(*os.File); ok && !profile.Exists() && term.IsTerminal(in.Fd()) && cmd.Name() != "serve" {
			fmt.Fprintln(cmd.OutOrStdout())
			fmt.Fprintln(cmd.OutOrStdout(), "  Welcome to gitmind! Looks like this is your first time.")
			if err := runSetup(cmd, in); err != nil {
				return err
			}
		}

		activeProfile = nil
		if profile.Exists() {
			p, err := profile.Load()
			if err != nil {
				return fmt.Errorf("loading profile: %w", err)
			}
			activeProfile = p
		}

		if workDir == "" {
			workDir = "."
		}
		abs, err := filepath.Abs(workDir)
		if err != nil {
			return err
		}
		workDir = abs

		global, err := config.LoadGlobal()
		if err != nil {
			return fmt.Errorf("loading global config: %w", err)
		}
		project, err := config.LoadProject(workDir)
		if err != nil {
			return fmt.Errorf("loading project config: %w", err)
		}
		cfg = config.Merge(global, project)
		activeProfile.Apply(&cfg)

		level := cfg.LogLevel
		if debugFlag || logging.DebugFromEnv() {
			level = "debug"
		}
		logging.Setup(cmd.ErrOrStderr(), level, false)
		return nil
	},
}

// Execute runs the root command. Exits with code 1 on error.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		fmt.Fprintln(os.Stderr, "gitmind:", err)
		os.Exit(1)
	}
}

// openStore returns the persistence backend for this invocation.
func openStore() (state.Store, error) {
	if noPersist {
		return state.NewMemoryStore(), nil
	}
	s, err := state.Open(state.Config{Path: cfg.DatabasePath})
	if err != nil {
		return nil, fmt.Errorf("opening state store: %w", err)
	}
	return s, nil
}

// openEngine builds a context engine over the working directory. The
// caller must Dispose it, which also closes the store.
func openEngine() (*engine.Engine, error) {
	store, err := openStore()
	if err != nil {
		return nil, err
	}
	return engine.New(engine.Options{
		WorkDir: workDir,
		Config:  cfg,
		Store:   store,
	}), nil
}

// newResolver builds an intent resolver that reads context from eng and
// records every resolution on it.
func newResolver(eng *engine.Engine) (*intent.Resolver, error) {
	cat, err := catalog.Load(cfg.CatalogPath)
	if err != nil {
		return nil, fmt.Errorf("loading command catalog: %w", err)
	}
	rc := intent.Config{
		Catalog:   cat,
		Context:   eng,
		Recorder:  eng,
		CacheSize: cfg.CacheSize,
	}
	client, err := ai.NewFromConfig(cfg)
	switch {
	case err == nil:
		rc.AI = client
	case !errors.Is(err, ai.ErrNotConfigured):
		return nil, err
	}
	return intent.New(rc), nil
}

// renderer picks the output renderer. Styled text degrades to plain text
// when stdout is not a terminal.
func renderer(cmd *cobra.Command) (render.Renderer, error) {
	format := formatFlag
	if format == "" {
		format = cfg.OutputFormat
	}
	if format == "text" && !isTerminal(cmd.OutOrStdout()) {
		format = "plain"
	}
	return render.For(format)
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(f.Fd())
}

// write prints rendered output, ending it with a newline.
func write(cmd *cobra.Command, data []byte) error {
	out := cmd.OutOrStdout()
	if _, err := out.Write(data); err != nil {
		return err
	}
	if len(data) > 0 && data[len(data)-1] != '\n' {
		_, err := io.WriteString(out, "\n")
		return err
	}
	return nil
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.BoolVar(&debugFlag, "debug", false, "enable debug logging (or set GITMIND_DEBUG=1)")
	pf.StringVarP(&formatFlag, "format", "f", "", "output format: text, plain or json")
	pf.BoolVar(&noPersist, "no-persist", false, "keep history in memory instead of the state database")
	pf.StringVarP(&workDir, "dir", "C", "", "repository directory (default: current directory)")
}
