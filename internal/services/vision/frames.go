package vision

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
)

var commandContext = exec.CommandContext

// ExtractFrames samples a clip at one frame per second into outDir and
// returns the frame paths in playback order.
func ExtractFrames(ctx context.Context, ffmpegBinary, source, outDir string) ([]string, error) {
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, fmt.Errorf("create frame directory: %w", err)
	}
	pattern := filepath.Join(outDir, "frame-%04d.jpg")
	args := []string{
		"-y",
		"-hide_banner",
		"-loglevel", "error",
		"-i", source,
		"-vf", "fps=1",
		"-q:v", "3",
		pattern,
	}
	cmd := commandContext(ctx, ffmpegBinary, args...) //nolint:gosec
	if output, err := cmd.CombinedOutput(); err != nil {
		return nil, fmt.Errorf("ffmpeg extract frames: %w: %s", err, strings.TrimSpace(string(output)))
	}

	entries, err := os.ReadDir(outDir)
	if err != nil {
		return nil, fmt.Errorf("list frames: %w", err)
	}
	var frames []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasPrefix(entry.Name(), "frame-") {
			continue
		}
		frames = append(frames, filepath.Join(outDir, entry.Name()))
	}
	sort.Strings(frames)
	if len(frames) == 0 {
		return nil, fmt.Errorf("ffmpeg extract frames: no frames produced from %s", source)
	}
	return frames, nil
}
