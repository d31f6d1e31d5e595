package moderation

import (
	"context"
	"fmt"
	"path/filepath"

	"vidgate/internal/services"
	"vidgate/internal/services/speech"
	"vidgate/internal/services/textmod"
)

// Transcriber produces a transcript from an extracted audio file.
type Transcriber interface {
	Transcribe(ctx context.Context, audioPath string) (speech.Transcript, error)
}

// TextChecker asks the remote model whether a transcript violates policy.
type TextChecker interface {
	Check(ctx context.Context, text string) (textmod.Result, error)
}

// AudioResult is the audio classifier verdict for a clip.
type AudioResult struct {
	Passed     bool
	Transcript string
	Keywords   []string
	Reasons    []string
}

// AudioClassifier transcribes a clip's audio and moderates the transcript,
// cheapest check first: empty transcript, blocklist, greeting short-circuit,
// then the remote model.
type AudioClassifier struct {
	transcriber  Transcriber
	checker      TextChecker
	blocklist    *Blocklist
	ffmpegBinary string
}

// NewAudioClassifier constructs an audio classifier.
func NewAudioClassifier(transcriber Transcriber, checker TextChecker, blocklist *Blocklist, ffmpegBinary string) *AudioClassifier {
	return &AudioClassifier{
		transcriber:  transcriber,
		checker:      checker,
		blocklist:    blocklist,
		ffmpegBinary: ffmpegBinary,
	}
}

// Classify moderates the clip's audio track. Clips without audio and clips
// whose audio transcribes to nothing pass trivially.
func (a *AudioClassifier) Classify(ctx context.Context, clipPath, scratchDir string, hasAudio bool) (AudioResult, error) {
	if !hasAudio {
		return AudioResult{Passed: true}, nil
	}

	audioPath := filepath.Join(scratchDir, "audio.wav")
	if err := speech.ExtractAudio(ctx, a.ffmpegBinary, clipPath, audioPath); err != nil {
		return AudioResult{}, services.Wrap(
			services.ErrExternalTool, "moderate", "extract audio",
			"Audio track could not be extracted for transcription", err)
	}

	transcript, err := a.transcriber.Transcribe(ctx, audioPath)
	if err != nil {
		return AudioResult{}, err
	}
	if transcript.Text == "" {
		return AudioResult{Passed: true}, nil
	}

	result := AudioResult{
		Transcript: transcript.Text,
		Keywords:   ExtractKeywords(transcript.Text, 10),
	}
	if hits := a.blocklist.Match(transcript.Text); len(hits) > 0 {
		for _, term := range hits {
			result.Reasons = append(result.Reasons, fmt.Sprintf("transcript matched blocklist term %q", term))
		}
		return result, nil
	}
	if IsTrivialGreeting(transcript.Text) {
		result.Passed = true
		return result, nil
	}

	verdict, err := a.checker.Check(ctx, transcript.Text)
	if err != nil {
		return AudioResult{}, err
	}
	if verdict.Flagged {
		if len(verdict.Categories) == 0 {
			result.Reasons = append(result.Reasons, "transcript flagged by text moderation model")
		}
		for _, category := range verdict.Categories {
			result.Reasons = append(result.Reasons, fmt.Sprintf("transcript flagged for %s", category))
		}
		return result, nil
	}

	result.Passed = true
	return result, nil
}
