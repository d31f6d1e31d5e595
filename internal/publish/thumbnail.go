package publish

import (
	"context"
	"fmt"
	"hash/fnv"
	"image"
	"image/color"
	"image/jpeg"
	"os"
	"os/exec"
	"strings"
	"time"

	"vidgate/internal/queue"
)

var commandContext = exec.CommandContext

// Thumbnail grabs the first frame of the clip as a JPEG poster. When ffmpeg
// cannot produce one, a deterministic placeholder keyed by the item kind is
// written instead so every published item has artwork.
func Thumbnail(ctx context.Context, ffmpegBinary, clipPath, destPath string, kind queue.Kind, timeout time.Duration) error {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	args := []string{
		"-y",
		"-hide_banner",
		"-loglevel", "error",
		"-i", clipPath,
		"-vframes", "1",
		"-q:v", "4",
		destPath,
	}
	cmd := commandContext(ctx, ffmpegBinary, args...) //nolint:gosec
	if output, err := cmd.CombinedOutput(); err != nil {
		_ = os.Remove(destPath)
		if placeholderErr := writePlaceholder(destPath, kind); placeholderErr != nil {
			return fmt.Errorf("thumbnail fallback after ffmpeg failure (%s): %w",
				strings.TrimSpace(string(output)), placeholderErr)
		}
	}
	return nil
}

// writePlaceholder renders a small solid-color JPEG whose color is derived
// from the item kind, so identical kinds always get identical artwork.
func writePlaceholder(destPath string, kind queue.Kind) error {
	hasher := fnv.New32a()
	_, _ = hasher.Write([]byte(kind))
	seed := hasher.Sum32()

	fill := color.RGBA{
		R: uint8(seed >> 16),
		G: uint8(seed >> 8),
		B: uint8(seed),
		A: 255,
	}
	img := image.NewRGBA(image.Rect(0, 0, 320, 180))
	for y := 0; y < 180; y++ {
		for x := 0; x < 320; x++ {
			img.SetRGBA(x, y, fill)
		}
	}

	out, err := os.Create(destPath)
	if err != nil {
		return fmt.Errorf("create placeholder: %w", err)
	}
	defer out.Close()
	if err := jpeg.Encode(out, img, &jpeg.Options{Quality: 85}); err != nil {
		return fmt.Errorf("encode placeholder: %w", err)
	}
	return out.Close()
}
