// Package profile manages the user's persistent gitmind profile.
// The profile is stored at ~/.config/gitmind/profile.json and is created
// once via the interactive setup flow, then layered under the merged
// configuration on every command.
package profile

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/fakeyudi/gitmind/internal/config"
)

// Profile holds user-level preferences set during first-run setup.
type Profile struct {
	Name          string `json:"name"`
	Email         string `json:"email"`
	AIEndpoint    string `json:"ai_endpoint,omitempty"`
	AIModel       string `json:"ai_model,omitempty"`
	DefaultFormat string `json:"default_format"` // "text" | "json"
}

// profilePath returns the path to the profile file.
func profilePath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "profile.json"), nil
}

// ConfigDir returns the gitmind config directory.
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "gitmind"), nil
}

// Exists reports whether a profile file is present on disk.
func Exists() bool {
	p, err := profilePath()
	if err != nil {
		return false
	}
	_, err = os.Stat(p)
	return err == nil
}

// Load reads the profile from disk. Returns an error if the file is missing or malformed.
func Load() (*Profile, error) {
	p, err := profilePath()
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(p)
	if err != nil {
		return nil, fmt.Errorf("profile not found, run 'gitmind setup' to configure: %w", err)
	}
	var prof Profile
	if err := json.Unmarshal(data, &prof); err != nil {
		return nil, fmt.Errorf("malformed profile at %s: %w", p, err)
	}
	return &prof, nil
}

// Save writes the profile to disk, creating the config directory if needed.
func Save(prof *Profile) error {
	p, err := profilePath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(prof, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(p, data, 0o644)
}

// Apply fills configuration gaps from the profile. Values set in a config
// file always win.
func (p *Profile) Apply(cfg *config.Config) {
	if p == nil {
		return
	}
	if cfg.AIEndpoint == "" {
		cfg.AIEndpoint = p.AIEndpoint
	}
	if cfg.AIModel == "" {
		cfg.AIModel = p.AIModel
	}
	if !cfg.OutputFormatSet() && p.DefaultFormat != "" {
		cfg.OutputFormat = p.DefaultFormat
	}
}

// Identity supplies defaults for the name and email prompts, usually read
// from git config.
type Identity struct {
	Name  string
	Email string
}

// RunSetup runs the interactive setup wizard over in/out and returns the
// resulting profile. If existing is non-nil, it is used as the default for
// each prompt (edit mode).
func RunSetup(existing *Profile, ident Identity, in io.Reader, out io.Writer) (*Profile, error) {
	r := bufio.NewReader(in)

	ask := func(prompt, defaultVal string) (string, error) {
		if defaultVal != "" {
			fmt.Fprintf(out, "%s [%s]: ", prompt, defaultVal)
		} else {
			fmt.Fprintf(out, "%s: ", prompt)
		}
		line, err := r.ReadString('\n')
		if err != nil && !(err == io.EOF && line != "") {
			return "", err
		}
		line = strings.TrimSpace(line)
		if line == "" {
			return defaultVal, nil
		}
		return line, nil
	}

	prof := &Profile{
		Name:          ident.Name,
		Email:         ident.Email,
		DefaultFormat: "text",
	}
	if existing != nil {
		*prof = *existing
	}

	fmt.Fprintln(out)
	fmt.Fprintln(out, "  ┌─────────────────────────────────┐")
	fmt.Fprintln(out, "  │   gitmind · first-time setup    │")
	fmt.Fprintln(out, "  └─────────────────────────────────┘")
	fmt.Fprintln(out)

	var err error

	if prof.Name, err = ask("  Your name", prof.Name); err != nil {
		return nil, err
	}
	if prof.Email, err = ask("  Your email", prof.Email); err != nil {
		return nil, err
	}

	format, err := ask("  Default output format (text/json)", prof.DefaultFormat)
	if err != nil {
		return nil, err
	}
	if strings.EqualFold(format, "json") {
		prof.DefaultFormat = "json"
	} else {
		prof.DefaultFormat = "text"
	}

	if prof.AIEndpoint, err = ask("  AI endpoint (blank to disable)", prof.AIEndpoint); err != nil {
		return nil, err
	}
	if prof.AIEndpoint == "" {
		prof.AIModel = ""
	} else if prof.AIModel, err = ask("  AI model", prof.AIModel); err != nil {
		return nil, err
	}

	fmt.Fprintln(out)
	return prof, nil
}
