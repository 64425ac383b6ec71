package cmd

import (
	"context"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/fakeyudi/gitmind/internal/config"
	"github.com/fakeyudi/gitmind/internal/profile"
)

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Configure gitmind (re-run anytime to edit settings)",
	// Bypass the normal PersistentPreRunE so setup works before profile exists.
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSetup(cmd, cmd.InOrStdin())
	},
}

// runSetup runs the interactive setup wizard and saves the profile.
func runSetup(cmd *cobra.Command, in io.Reader) error {
	// Load existing profile as defaults if present.
	var existing *profile.Profile
	if profile.Exists() {
		if p, err := profile.Load(); err == nil {
			existing = p
		}
	}

	out := cmd.OutOrStdout()
	prof, err := profile.RunSetup(existing, gitIdentity(), in, out)
	if err != nil {
		return fmt.Errorf("setup cancelled: %w", err)
	}
	if err := profile.Save(prof); err != nil {
		return fmt.Errorf("saving profile: %w", err)
	}
	fmt.Fprintln(out, "  ✓ Profile saved.")
	if prof.AIEndpoint != "" {
		fmt.Fprintf(out, "  Put the API key in $%s to enable the AI fallback.\n", config.Defaults().AIKeyEnv)
	}
	fmt.Fprintln(out, "  Setup complete. Try: gitmind resolve \"commit all changes\"")
	fmt.Fprintln(out)
	return nil
}

// gitIdentity reads user.name and user.email from git config, best effort.
func gitIdentity() profile.Identity {
	get := func(key string) string {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		out, err := exec.CommandContext(ctx, "git", "config", "--get", key).Output()
		if err != nil {
			return ""
		}
		return strings.TrimSpace(string(out))
	}
	return profile.Identity{Name: get("user.name"), Email: get("user.email")}
}

func init() {
	rootCmd.AddCommand(setupCmd)
}
