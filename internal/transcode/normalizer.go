package transcode

import (
	"context"
	"fmt"
	"math"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"vidgate/internal/config"
	"vidgate/internal/services"
)

var commandContext = exec.CommandContext

// Rung names the ladder step that produced the normalized artifact.
type Rung string

const (
	RungRemux     Rung = "remux"
	RungRepair    Rung = "repair"
	RungTranscode Rung = "transcode"
)

// ProgressUpdate reports ladder progress back to the stage.
type ProgressUpdate struct {
	Percent float64
	Stage   string
	Message string
}

// Result describes the normalized output.
type Result struct {
	OutputPath string
	Rung       Rung
	Duration   float64
	Width      int
	Height     int
}

// Normalizer runs the ffmpeg recovery ladder.
type Normalizer struct {
	ffmpegBinary     string
	probeBinary      string
	remuxTimeout     time.Duration
	repairTimeout    time.Duration
	transcodeTimeout time.Duration
}

// NewNormalizer constructs a Normalizer from configuration.
func NewNormalizer(cfg *config.Config) *Normalizer {
	return &Normalizer{
		ffmpegBinary:     cfg.FFmpeg.Binary,
		probeBinary:      cfg.FFmpeg.ProbeBinary,
		remuxTimeout:     cfg.FFmpeg.RemuxBudget(),
		repairTimeout:    cfg.FFmpeg.RepairBudget(),
		transcodeTimeout: cfg.FFmpeg.TranscodeBudget(),
	}
}

// Normalize climbs the recovery ladder until one rung yields a playable MP4.
// durationHint, when positive, caps the output length on the re-encode rung
// whenever the source's own duration is untrustworthy, so a corrupted index
// cannot inflate a short clip into hours of garbage. A source that reports a
// sane duration keeps its real length even when it disagrees with the hint.
func (n *Normalizer) Normalize(ctx context.Context, sourcePath, outputDir string, durationHint float64, progress func(ProgressUpdate)) (Result, error) {
	if sourcePath == "" {
		return Result{}, services.Wrap(
			services.ErrValidation, "transcode", "normalize",
			"Source path is required", nil)
	}
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return Result{}, fmt.Errorf("create output directory: %w", err)
	}
	outputPath := filepath.Join(outputDir, "normalized.mp4")

	report := func(percent float64, stage, message string) {
		if progress != nil {
			progress(ProgressUpdate{Percent: percent, Stage: stage, Message: message})
		}
	}

	report(5, "Probing", "Inspecting source container")
	probe, probeErr := Probe(ctx, n.probeBinary, sourcePath)

	var lastErr error

	// A readable, conformant source only needs a stream copy with the moov
	// atom moved up front.
	if probeErr == nil && probe.Conformant() {
		report(25, "Remuxing", "Stream-copying conformant source")
		if err := n.remux(ctx, sourcePath, outputPath); err == nil {
			report(100, "Normalized", "Remux complete")
			return n.finish(ctx, outputPath, RungRemux)
		} else {
			lastErr = err
			_ = os.Remove(outputPath)
		}
	}
	if probeErr != nil {
		lastErr = probeErr
	}

	report(45, "Repairing", "Rebuilding timestamps from damaged container")
	if err := n.repair(ctx, sourcePath, outputPath); err == nil {
		report(100, "Normalized", "Repair remux complete")
		return n.finish(ctx, outputPath, RungRepair)
	} else {
		lastErr = err
		_ = os.Remove(outputPath)
	}

	report(65, "Transcoding", "Re-encoding to canonical layout")
	trim := durationHint > 0 && untrustworthyDuration(probe, probeErr, durationHint)
	if err := n.transcodeFull(ctx, sourcePath, outputPath, durationHint, trim); err == nil {
		report(100, "Normalized", "Transcode complete")
		return n.finish(ctx, outputPath, RungTranscode)
	} else {
		lastErr = err
		_ = os.Remove(outputPath)
	}

	return Result{}, services.Wrap(
		services.ErrExternalTool, "transcode", "normalize",
		"Source is unrecoverable; every ladder rung failed", lastErr)
}

// finish probes the artifact the winning rung produced and fills the result.
func (n *Normalizer) finish(ctx context.Context, outputPath string, rung Rung) (Result, error) {
	result := Result{OutputPath: outputPath, Rung: rung}
	probe, err := Probe(ctx, n.probeBinary, outputPath)
	if err != nil {
		_ = os.Remove(outputPath)
		return Result{}, services.Wrap(
			services.ErrExternalTool, "transcode", "verify output",
			"Normalized artifact failed verification probe", err)
	}
	if !probe.HasVideo {
		_ = os.Remove(outputPath)
		return Result{}, services.Wrap(
			services.ErrExternalTool, "transcode", "verify output",
			"Normalized artifact carries no video stream", nil)
	}
	result.Duration = probe.Duration
	result.Width = probe.Width
	result.Height = probe.Height
	return result, nil
}

func (n *Normalizer) remux(ctx context.Context, sourcePath, outputPath string) error {
	args := []string{
		"-y",
		"-hide_banner",
		"-loglevel", "error",
		"-i", sourcePath,
		"-c", "copy",
		"-movflags", "+faststart",
		outputPath,
	}
	return n.runFFmpeg(ctx, "remux", args, n.remuxTimeout)
}

func (n *Normalizer) repair(ctx context.Context, sourcePath, outputPath string) error {
	args := []string{
		"-y",
		"-hide_banner",
		"-loglevel", "error",
		"-err_detect", "ignore_err",
		"-fflags", "+genpts+igndts",
		"-i", sourcePath,
		"-c", "copy",
		"-movflags", "+faststart",
		outputPath,
	}
	return n.runFFmpeg(ctx, "repair", args, n.repairTimeout)
}

// untrustworthyDuration reports whether the source's own duration cannot be
// relied on: the probe failed outright, the container claims a non-positive
// or infinite length, or it claims more than double what the uploader
// declared.
func untrustworthyDuration(probe ProbeResult, probeErr error, hint float64) bool {
	if probeErr != nil {
		return true
	}
	if probe.Duration <= 0 || math.IsInf(probe.Duration, 0) {
		return true
	}
	return probe.Duration > 2*hint
}

func (n *Normalizer) transcodeFull(ctx context.Context, sourcePath, outputPath string, durationHint float64, trim bool) error {
	args := []string{
		"-y",
		"-hide_banner",
		"-loglevel", "error",
		"-err_detect", "ignore_err",
		"-fflags", "+genpts+igndts",
		"-i", sourcePath,
	}
	if trim {
		args = append(args, "-t", strconv.FormatFloat(durationHint, 'f', 3, 64))
	}
	args = append(args,
		"-c:v", "libx264",
		"-preset", "veryfast",
		"-pix_fmt", "yuv420p",
		// Codecs require even dimensions; odd sources get cropped by a pixel.
		"-vf", "crop=trunc(iw/2)*2:trunc(ih/2)*2",
		"-c:a", "aac",
		"-ar", "44100",
		"-ac", "2",
		"-movflags", "+faststart",
		outputPath,
	)
	return n.runFFmpeg(ctx, "transcode", args, n.transcodeTimeout)
}

func (n *Normalizer) runFFmpeg(ctx context.Context, rung string, args []string, timeout time.Duration) error {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	cmd := commandContext(ctx, n.ffmpegBinary, args...) //nolint:gosec
	output, err := cmd.CombinedOutput()
	if err != nil {
		if ctx.Err() != nil {
			return services.Wrap(
				services.ErrTimeout, "transcode", rung,
				fmt.Sprintf("ffmpeg %s exceeded its %s budget", rung, timeout), ctx.Err())
		}
		return fmt.Errorf("ffmpeg %s: %w: %s", rung, err, tail(string(output)))
	}
	return nil
}

// tail keeps the last few lines of ffmpeg chatter for the error message.
func tail(output string) string {
	output = strings.TrimSpace(output)
	lines := strings.Split(output, "\n")
	if len(lines) > 4 {
		lines = lines[len(lines)-4:]
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}
