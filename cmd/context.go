package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/fakeyudi/gitmind/internal/engine"
	"github.com/fakeyudi/gitmind/internal/inference"
	"github.com/fakeyudi/gitmind/internal/render"
	"github.com/fakeyudi/gitmind/internal/snapshot"
	"github.com/fakeyudi/gitmind/internal/state"
)

var refreshFlag bool

var contextCmd = &cobra.Command{
	Use:       "context [section]",
	Short:     "Show the repository and project context",
	Long:      "Show the most recently persisted context snapshot, or collect a fresh one with --refresh.\nSections: " + strings.Join(render.Sections, ", ") + ".",
	Args:      cobra.MaximumNArgs(1),
	ValidArgs: render.Sections,
	RunE: func(cmd *cobra.Command, args []string) error {
		section := ""
		if len(args) == 1 {
			section = args[0]
		}
		r, err := renderer(cmd)
		if err != nil {
			return err
		}
		eng, err := openEngine()
		if err != nil {
			return err
		}
		defer eng.Dispose()

		snap, ok := lastPersisted(cmd.Context(), eng)
		if refreshFlag || !ok {
			eng.Refresh(cmd.Context())
			snap = eng.Snapshot()
		}
		out, err := r.RenderSnapshot(snap, inference.RuleInferrer{}.Infer(snap), section)
		if err != nil {
			return err
		}
		return write(cmd, out)
	},
}

// lastPersisted decodes the newest full snapshot written by a running
// `gitmind watch` for this working directory.
func lastPersisted(ctx context.Context, eng *engine.Engine) (*snapshot.ContextSnapshot, bool) {
	h, err := eng.History(ctx, "snapshots", state.SnapshotFull, 10)
	if err != nil {
		return nil, false
	}
	for _, rec := range h.Snapshots {
		s := snapshot.New()
		if err := json.Unmarshal(rec.Data, s); err != nil {
			continue
		}
		if s.Project.Root == workDir {
			return s, true
		}
	}
	return nil, false
}

var cachedQuery bool

var queryCmd = &cobra.Command{
	Use:   "query <path>",
	Short: "Read one dotted path from a fresh context snapshot",
	Example: `  gitmind query git.currentBranch
  gitmind query project.scripts -f json`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, err := openEngine()
		if err != nil {
			return err
		}
		defer eng.Dispose()

		eng.Refresh(cmd.Context())
		v, ok := eng.Query(args[0], engine.QueryOptions{Cached: cachedQuery})
		if !ok {
			return fmt.Errorf("nothing at %q", args[0])
		}
		if s, isString := v.(string); isString && formatFlag != "json" {
			return write(cmd, []byte(s))
		}
		data, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return err
		}
		return write(cmd, data)
	},
}

func init() {
	contextCmd.Flags().BoolVarP(&refreshFlag, "refresh", "r", false, "collect fresh git and project state")
	queryCmd.Flags().BoolVar(&cachedQuery, "cached", false, "serve from the query cache when possible")
	rootCmd.AddCommand(contextCmd, queryCmd)
}
