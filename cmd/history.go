package cmd

import (
	"github.com/spf13/cobra"
)

var (
	historyKind   string
	historyFilter string
	historyLimit  int
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show persisted snapshots, activities and git states",
	Example: `  gitmind history --kind activities --filter intent
  gitmind history --kind git --filter main --limit 5`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		r, err := renderer(cmd)
		if err != nil {
			return err
		}
		eng, err := openEngine()
		if err != nil {
			return err
		}
		defer eng.Dispose()

		h, err := eng.History(cmd.Context(), historyKind, historyFilter, historyLimit)
		if err != nil {
			return err
		}
		out, err := r.RenderHistory(h)
		if err != nil {
			return err
		}
		return write(cmd, out)
	},
}

var pruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Delete persisted records older than the retention window",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, err := openEngine()
		if err != nil {
			return err
		}
		defer eng.Dispose()

		n, err := eng.Prune(cmd.Context())
		if err != nil {
			return err
		}
		cmd.Printf("Removed %d records older than %s.\n", n, cfg.Retention())
		return nil
	},
}

func init() {
	f := historyCmd.Flags()
	f.StringVarP(&historyKind, "kind", "k", "", "snapshots, activities or git (default: all)")
	f.StringVar(&historyFilter, "filter", "", "snapshot type, activity type or branch")
	f.IntVarP(&historyLimit, "limit", "n", 20, "records per kind")
	rootCmd.AddCommand(historyCmd, pruneCmd)
}
