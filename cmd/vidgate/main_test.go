package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeTestConfig(t *testing.T) string {
	t.Helper()
	base := t.TempDir()
	cfgPath := filepath.Join(base, "vidgate.toml")
	contents := fmt.Sprintf("[paths]\nscratch_dir = %q\nlog_dir = %q\n",
		filepath.Join(base, "scratch"),
		filepath.Join(base, "logs"),
	)
	if err := os.WriteFile(cfgPath, []byte(contents), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return cfgPath
}

func runCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestIngestAndQueueList(t *testing.T) {
	cfgPath := writeTestConfig(t)
	clip := filepath.Join(t.TempDir(), "clip.mov")
	if err := os.WriteFile(clip, []byte("raw upload"), 0o644); err != nil {
		t.Fatalf("write clip: %v", err)
	}

	out, err := runCommand(t, "--config", cfgPath, "ingest", clip, "--kind", "reply_comment", "--duration", "9.5")
	if err != nil {
		t.Fatalf("ingest: %v\n%s", err, out)
	}
	if !strings.Contains(out, "Queued item 1") {
		t.Fatalf("ingest output = %q", out)
	}

	out, err = runCommand(t, "--config", cfgPath, "queue", "list")
	if err != nil {
		t.Fatalf("queue list: %v\n%s", err, out)
	}
	if !strings.Contains(out, "uploading") || !strings.Contains(out, "reply_comment") {
		t.Fatalf("queue list output = %q", out)
	}
}

func TestIngestRejectsUnknownKind(t *testing.T) {
	cfgPath := writeTestConfig(t)
	out, err := runCommand(t, "--config", cfgPath, "ingest", "whatever.mov", "--kind", "banner_ad")
	if err == nil {
		t.Fatalf("expected an error, got output %q", out)
	}
}

func TestQueueListFiltersByStatus(t *testing.T) {
	cfgPath := writeTestConfig(t)
	out, err := runCommand(t, "--config", cfgPath, "queue", "list", "--status", "failed")
	if err != nil {
		t.Fatalf("queue list: %v\n%s", err, out)
	}
	if !strings.Contains(out, "Queue is empty") {
		t.Fatalf("queue list output = %q", out)
	}

	if _, err := runCommand(t, "--config", cfgPath, "queue", "list", "--status", "sideways"); err == nil {
		t.Fatal("unknown status must error")
	}
}

func TestQueueRetryRejectsBadID(t *testing.T) {
	cfgPath := writeTestConfig(t)
	if _, err := runCommand(t, "--config", cfgPath, "queue", "retry", "abc"); err == nil {
		t.Fatal("non-numeric id must error")
	}
}

func TestQueueHealthReportsCounts(t *testing.T) {
	cfgPath := writeTestConfig(t)
	out, err := runCommand(t, "--config", cfgPath, "queue", "health")
	if err != nil {
		t.Fatalf("queue health: %v\n%s", err, out)
	}
	if !strings.Contains(out, "pending_moderation") || !strings.Contains(out, "Database:") {
		t.Fatalf("queue health output = %q", out)
	}
}

func TestVersionCommand(t *testing.T) {
	out, err := runCommand(t, "version")
	if err != nil {
		t.Fatalf("version: %v", err)
	}
	if !strings.Contains(out, "vidgate") {
		t.Fatalf("version output = %q", out)
	}
}

func TestConfigShow(t *testing.T) {
	cfgPath := writeTestConfig(t)
	out, err := runCommand(t, "--config", cfgPath, "config", "show")
	if err != nil {
		t.Fatalf("config show: %v\n%s", err, out)
	}
	if !strings.Contains(out, cfgPath) {
		t.Fatalf("config show output = %q", out)
	}
}
