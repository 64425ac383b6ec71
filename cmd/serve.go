package cmd

import (
	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"github.com/fakeyudi/gitmind/internal/mcpserver"
)

var serveWatch bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the resolver and context engine as MCP tools over stdio",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, err := openEngine()
		if err != nil {
			return err
		}
		defer eng.Dispose()

		res, err := newResolver(eng)
		if err != nil {
			return err
		}

		ctx := cmd.Context()
		eng.Refresh(ctx)
		eng.StartMaintenance(ctx)
		if serveWatch {
			go func() {
				if err := eng.Watch(ctx); err != nil {
					cmd.PrintErrf("watch stopped: %v\n", err)
				}
			}()
		}

		return server.ServeStdio(mcpserver.New(eng, res, Version))
	},
}

func init() {
	serveCmd.Flags().BoolVar(&serveWatch, "watch", true, "refresh context as the repository changes")
	rootCmd.AddCommand(serveCmd)
}
