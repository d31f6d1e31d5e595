package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"vidgate/internal/config"
)

// NewConfig returns a fully populated configuration rooted under a temp
// directory so tests never touch real paths or real services.
func NewConfig(t *testing.T) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.ScratchDir = filepath.Join(base, "scratch")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.Staging.Endpoint = "http://127.0.0.1:0"
	cfg.Speech.Endpoint = "http://127.0.0.1:0"
	cfg.Vision.Endpoint = "http://127.0.0.1:0"
	cfg.TextMod.Endpoint = "http://127.0.0.1:0"
	cfg.CDN.Endpoint = "http://127.0.0.1:0"
	cfg.Records.PostEndpoint = "http://127.0.0.1:0"
	cfg.Records.CommentEndpoint = "http://127.0.0.1:0"
	cfg.Records.MessageEndpoint = "http://127.0.0.1:0"

	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure directories: %v", err)
	}
	return &cfg
}

// WriteSourceFile drops a small file into the temp tree and returns its path.
func WriteSourceFile(t *testing.T, cfg *config.Config, name, contents string) string {
	t.Helper()

	path := filepath.Join(cfg.Paths.ScratchDir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for source file: %v", err)
	}
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("write source file: %v", err)
	}
	return path
}
