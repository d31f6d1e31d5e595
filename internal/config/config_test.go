package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoadDefaultsWhenFileMissing(t *testing.T) {
	cfg, _, exists, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if exists {
		t.Fatal("expected exists=false for missing file")
	}
	if cfg.FFmpeg.Binary != "ffmpeg" {
		t.Fatalf("ffmpeg binary default = %q", cfg.FFmpeg.Binary)
	}
	if cfg.Workflow.Workers != 2 {
		t.Fatalf("workers default = %d", cfg.Workflow.Workers)
	}
	if cfg.Vision.TopLevelFrames != 3 {
		t.Fatalf("top level frames default = %d", cfg.Vision.TopLevelFrames)
	}
}

func TestLoadParsesAndNormalizes(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	content := `
[paths]
scratch_dir = "` + dir + `/scratch"
log_dir = "` + dir + `/logs"

[staging]
endpoint = "http://localhost:9000/"

[workflow]
workers = 4
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, resolved, exists, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !exists || resolved == "" {
		t.Fatalf("exists=%v resolved=%q", exists, resolved)
	}
	if cfg.Workflow.Workers != 4 {
		t.Fatalf("workers = %d, want 4", cfg.Workflow.Workers)
	}
	if strings.HasSuffix(cfg.Staging.Endpoint, "/") {
		t.Fatalf("endpoint not trimmed: %q", cfg.Staging.Endpoint)
	}
}

func TestValidateRejectsSharedBucket(t *testing.T) {
	cfg := Default()
	cfg.Staging.Bucket = "same"
	cfg.Staging.QuarantineBucket = "same"
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected validation failure for shared bucket")
	}
}

func TestScratchDirForIsItemScoped(t *testing.T) {
	cfg := Default()
	cfg.Paths.ScratchDir = "/tmp/vidgate"
	a := cfg.ScratchDirFor("aaa")
	b := cfg.ScratchDirFor("bbb")
	if a == b {
		t.Fatal("scratch dirs must differ per item key")
	}
	if !strings.HasPrefix(filepath.Base(a), "item-") {
		t.Fatalf("unexpected scratch dir name: %q", a)
	}
}

func TestSampleConfigParses(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sample.toml")
	if err := os.WriteFile(path, []byte(SampleConfig()), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, _, _, err := Load(path); err != nil {
		t.Fatalf("sample config should load cleanly: %v", err)
	}
}
