package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/fakeyudi/gitmind/internal/engine"
	"github.com/fakeyudi/gitmind/internal/tui"
)

var plainWatch bool

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Keep the context current while the repository changes",
	Long: `Watch the working tree and repository, refresh the context snapshot as
they change, persist it periodically and prune old history. On a terminal
the live dashboard is shown; otherwise every update is printed as a line.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, err := openEngine()
		if err != nil {
			return err
		}
		defer eng.Dispose()

		ctx, cancel := context.WithCancel(cmd.Context())
		defer cancel()

		eng.Refresh(ctx)
		eng.StartMaintenance(ctx)

		g, ctx := errgroup.WithContext(ctx)
		g.Go(func() error { return eng.Watch(ctx) })

		if !plainWatch && isTerminal(cmd.OutOrStdout()) {
			events := make(chan engine.Event, 64)
			unsubscribe := eng.Subscribe(func(ev engine.Event) {
				select {
				case events <- ev:
				default:
				}
			})
			defer unsubscribe()

			g.Go(func() error {
				defer cancel()
				return tui.Run(eng, events, func() { eng.Refresh(ctx) }, workDir)
			})
			return g.Wait()
		}

		out := cmd.OutOrStdout()
		unsubscribe := eng.Subscribe(func(ev engine.Event) {
			fmt.Fprintf(out, "%s  %-8s %s\n", ev.Time.Format("15:04:05"), ev.Kind, tui.Describe(ev))
		})
		defer unsubscribe()

		inferred := eng.InferredContext()
		cmd.Printf("Watching %s (%s). Press Ctrl+C to stop.\n", workDir, inferred.Workflow)
		g.Go(func() error {
			<-ctx.Done()
			return nil
		})
		return g.Wait()
	},
}

func init() {
	watchCmd.Flags().BoolVar(&plainWatch, "plain", false, "print updates as lines instead of the dashboard")
	rootCmd.AddCommand(watchCmd)
}
