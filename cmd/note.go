package cmd

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/fakeyudi/gitmind/internal/snapshot"
)

var noteType string

var noteCmd = &cobra.Command{
	Use:   "note <description...>",
	Short: "Record an activity in the context history",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, err := openEngine()
		if err != nil {
			return err
		}
		defer eng.Dispose()

		ctx := map[string]any{"source": "cli", "work_dir": workDir}
		if activeProfile != nil && activeProfile.Name != "" {
			ctx["author"] = activeProfile.Name
		}
		eng.TrackUserActivity(snapshot.Activity{
			Type:        noteType,
			Description: strings.Join(args, " "),
			Context:     ctx,
		})

		cmd.Println("Note added.")
		return nil
	},
}

func init() {
	noteCmd.Flags().StringVarP(&noteType, "type", "t", "note", "activity type")
	rootCmd.AddCommand(noteCmd)
}
