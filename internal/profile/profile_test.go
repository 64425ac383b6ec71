package profile

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/fakeyudi/gitmind/internal/config"
)

func TestSaveLoadRoundTrip(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	if Exists() {
		t.Fatal("profile exists in a fresh home")
	}
	want := &Profile{Name: "Ada", Email: "ada@example.com", AIEndpoint: "http://localhost:8080/v1", AIModel: "small", DefaultFormat: "json"}
	if err := Save(want); err != nil {
		t.Fatal(err)
	}
	if !Exists() {
		t.Fatal("profile missing after Save")
	}
	got, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("profile mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadMissing(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	if _, err := Load(); err == nil || !strings.Contains(err.Error(), "gitmind setup") {
		t.Errorf("err = %v", err)
	}
}

func TestRunSetupUsesDefaults(t *testing.T) {
	in := strings.NewReader("\n\njson\nhttp://localhost:8080/v1\nsmall\n")
	got, err := RunSetup(nil, Identity{Name: "Ada", Email: "ada@example.com"}, in, io.Discard)
	if err != nil {
		t.Fatal(err)
	}
	want := &Profile{Name: "Ada", Email: "ada@example.com", AIEndpoint: "http://localhost:8080/v1", AIModel: "small", DefaultFormat: "json"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("profile mismatch (-want +got):\n%s", diff)
	}
}

func TestRunSetupEditMode(t *testing.T) {
	existing := &Profile{Name: "Ada", Email: "a@x", AIEndpoint: "http://old", AIModel: "m", DefaultFormat: "json"}
	// Blank answers keep the existing values.
	got, err := RunSetup(existing, Identity{}, strings.NewReader("Grace\n\n\n\n\n"), io.Discard)
	if err != nil {
		t.Fatal(err)
	}
	if got.Name != "Grace" || got.AIEndpoint != "http://old" || got.AIModel != "m" || got.DefaultFormat != "json" {
		t.Errorf("got %+v", got)
	}
}

func TestRunSetupWithoutAI(t *testing.T) {
	got, err := RunSetup(nil, Identity{}, strings.NewReader("Ada\nada@example.com\n\n\n"), io.Discard)
	if err != nil {
		t.Fatal(err)
	}
	if got.AIEndpoint != "" || got.AIModel != "" || got.DefaultFormat != "text" {
		t.Errorf("got %+v", got)
	}
}

func TestRunSetupEOF(t *testing.T) {
	if _, err := RunSetup(nil, Identity{}, strings.NewReader(""), io.Discard); err == nil {
		t.Error("expected error on empty input")
	}
}

func TestApplyFillsGaps(t *testing.T) {
	p := &Profile{AIEndpoint: "http://p", AIModel: "pm", DefaultFormat: "json"}

	cfg := config.Defaults()
	p.Apply(&cfg)
	if cfg.AIEndpoint != "http://p" || cfg.AIModel != "pm" || cfg.OutputFormat != "json" {
		t.Errorf("gaps not filled: %+v", cfg)
	}

	cfg = config.Defaults()
	cfg.AIEndpoint = "http://cfg"
	p.Apply(&cfg)
	if cfg.AIEndpoint != "http://cfg" {
		t.Errorf("config value overridden: %s", cfg.AIEndpoint)
	}

	var nilProfile *Profile
	nilProfile.Apply(&cfg)
}

func TestApplyKeepsExplicitTextFormat(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, ".gitmindconfig"), []byte(`{"output_format": "text"}`), 0o644); err != nil {
		t.Fatal(err)
	}
	project, err := config.LoadProject(dir)
	if err != nil {
		t.Fatal(err)
	}
	cfg := config.Merge(nil, project)
	(&Profile{DefaultFormat: "json"}).Apply(&cfg)
	if cfg.OutputFormat != "text" {
		t.Errorf("OutputFormat = %q, want the config file's text", cfg.OutputFormat)
	}
}
