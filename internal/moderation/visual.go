package moderation

import (
	"context"
	"fmt"
	"math"
	"path/filepath"

	"vidgate/internal/services"
	"vidgate/internal/services/vision"
)

// FrameClassifier scores sampled frames against the visual policy model.
type FrameClassifier interface {
	ClassifyFrames(ctx context.Context, framePaths []string) ([]vision.FrameResult, error)
}

// VisualThresholds tune when frame verdicts reject a clip.
type VisualThresholds struct {
	// TopLevelFrames rejects once this many frames score at the top
	// likelihood step, regardless of clip length.
	TopLevelFrames int
	// ShortClipFrames marks the sample count at or below which a clip is
	// considered short and judged proportionally instead.
	ShortClipFrames int
	// ShortClipProportion rejects a short clip when this share of its frames
	// scores in the top two likelihood steps.
	ShortClipProportion float64
}

// VisualResult is the visual classifier verdict for a clip.
type VisualResult struct {
	Passed     bool
	FrameCount int
	TopLevel   int
	TopTwo     int
	Reasons    []string
}

// VisualClassifier samples frames from a clip and applies the rejection
// thresholds to the per-frame verdicts.
type VisualClassifier struct {
	classifier   FrameClassifier
	ffmpegBinary string
	thresholds   VisualThresholds
}

// NewVisualClassifier constructs a visual classifier.
func NewVisualClassifier(classifier FrameClassifier, ffmpegBinary string, thresholds VisualThresholds) *VisualClassifier {
	if thresholds.TopLevelFrames <= 0 {
		thresholds.TopLevelFrames = 3
	}
	if thresholds.ShortClipFrames <= 0 {
		thresholds.ShortClipFrames = 8
	}
	if thresholds.ShortClipProportion <= 0 || thresholds.ShortClipProportion > 1 {
		thresholds.ShortClipProportion = 0.5
	}
	return &VisualClassifier{
		classifier:   classifier,
		ffmpegBinary: ffmpegBinary,
		thresholds:   thresholds,
	}
}

// Classify samples the clip at one frame per second and judges the results.
func (v *VisualClassifier) Classify(ctx context.Context, clipPath, scratchDir string) (VisualResult, error) {
	frames, err := vision.ExtractFrames(ctx, v.ffmpegBinary, clipPath, filepath.Join(scratchDir, "frames"))
	if err != nil {
		return VisualResult{}, services.Wrap(
			services.ErrExternalTool, "moderate", "extract frames",
			"Frames could not be sampled from the normalized clip", err)
	}

	results, err := v.classifier.ClassifyFrames(ctx, frames)
	if err != nil {
		return VisualResult{}, err
	}
	return v.judge(results), nil
}

// judge applies the thresholds to a set of frame verdicts.
func (v *VisualClassifier) judge(results []vision.FrameResult) VisualResult {
	verdict := VisualResult{FrameCount: len(results)}
	for _, frame := range results {
		if frame.Likelihood.AtLeast(vision.VeryLikely) {
			verdict.TopLevel++
		}
		if frame.Likelihood.AtLeast(vision.Likely) {
			verdict.TopTwo++
		}
	}

	if verdict.TopLevel >= v.thresholds.TopLevelFrames {
		verdict.Reasons = append(verdict.Reasons, fmt.Sprintf(
			"%d frames scored %s (threshold %d)",
			verdict.TopLevel, vision.VeryLikely, v.thresholds.TopLevelFrames))
		return verdict
	}

	if verdict.FrameCount > 0 && verdict.FrameCount <= v.thresholds.ShortClipFrames {
		needed := int(math.Ceil(v.thresholds.ShortClipProportion * float64(verdict.FrameCount)))
		if verdict.TopTwo >= needed {
			verdict.Reasons = append(verdict.Reasons, fmt.Sprintf(
				"short clip: %d of %d frames scored %s or above (threshold %d)",
				verdict.TopTwo, verdict.FrameCount, vision.Likely, needed))
			return verdict
		}
	}

	verdict.Passed = true
	return verdict
}
