package cmd

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/fakeyudi/gitmind/internal/intent"
)

var noAI bool

var resolveCmd = &cobra.Command{
	Use:   "resolve <request...>",
	Short: "Resolve a natural-language git request into a command",
	Example: `  gitmind resolve commit all changes
  gitmind resolve "push to remote" --no-ai -f json`,
	Args: cobra.MinimumNArgs(1),
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

		res, err := newResolver(eng)
		if err != nil {
			return err
		}

		// Only the git section feeds refinement.
		eng.RefreshGit(cmd.Context())

		var opts intent.Options
		if noAI {
			off := false
			opts.UseAI = &off
		}
		in := res.Resolve(cmd.Context(), strings.Join(args, " "), opts)
		out, err := r.RenderIntent(&in)
		if err != nil {
			return err
		}
		return write(cmd, out)
	},
}

var commandsCmd = &cobra.Command{
	Use:   "commands",
	Short: "List the commands the resolver can return",
	Args:  cobra.NoArgs,
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

		res, err := newResolver(eng)
		if err != nil {
			return err
		}
		out, err := r.RenderCommands(res.AvailableCommands())
		if err != nil {
			return err
		}
		return write(cmd, out)
	},
}

func init() {
	resolveCmd.Flags().BoolVar(&noAI, "no-ai", false, "skip the AI fallback strategy")
	rootCmd.AddCommand(resolveCmd, commandsCmd)
}
