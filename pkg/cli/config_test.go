package cli

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.User != "default" {
		t.Errorf("User = %q", cfg.User)
	}
	if cfg.BaseURL != "http://localhost:5000" {
		t.Errorf("BaseURL = %q", cfg.BaseURL)
	}
	if cfg.Summarizer != BackendHalo {
		t.Errorf("Summarizer = %q", cfg.Summarizer)
	}
	if cfg.SegmentInterval() != 5*time.Second {
		t.Errorf("SegmentInterval = %v", cfg.SegmentInterval())
	}
	if cfg.DataDir == "" {
		t.Error("DataDir not defaulted")
	}
}

func TestLoadParsesYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := strings.Join([]string{
		"user: nurse7",
		"summarizer: openai",
		"openai_model: gpt-4o",
		"segment_seconds: 10",
		"archive:",
		"  dir: /var/lib/halo/segments",
	}, "\n")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.User != "nurse7" {
		t.Errorf("User = %q", cfg.User)
	}
	if cfg.Summarizer != BackendOpenAI || cfg.OpenAIModel != "gpt-4o" {
		t.Errorf("summarizer = %q/%q", cfg.Summarizer, cfg.OpenAIModel)
	}
	if cfg.SegmentInterval() != 10*time.Second {
		t.Errorf("SegmentInterval = %v", cfg.SegmentInterval())
	}
	if cfg.Archive == nil || cfg.Archive.Dir != "/var/lib/halo/segments" {
		t.Errorf("Archive = %+v", cfg.Archive)
	}
}

func TestLoadRejectsUnknownSummarizer(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("summarizer: bard\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected error for unknown summarizer")
	}
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	cfg.User = "nurse7"
	if err := cfg.Save(); err != nil {
		t.Fatal(err)
	}

	again, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if again.User != "nurse7" {
		t.Errorf("User after round trip = %q", again.User)
	}
}
