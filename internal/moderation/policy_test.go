package moderation

import (
	"errors"
	"testing"

	"vidgate/internal/services"
)

func TestEvaluateApprovesWhenBothPass(t *testing.T) {
	decision, err := Evaluate(
		VisualResult{Passed: true, FrameCount: 10},
		nil,
		AudioResult{Passed: true, Transcript: "hello world"},
		nil,
	)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if !decision.Approved || !decision.VisualPassed || !decision.AudioPassed {
		t.Fatalf("decision = %+v", decision)
	}
	if decision.Transcript != "hello world" {
		t.Fatalf("transcript = %q", decision.Transcript)
	}
}

func TestEvaluateRejectsOnEitherFailure(t *testing.T) {
	decision, err := Evaluate(
		VisualResult{Passed: false, FrameCount: 10, TopTwo: 4, Reasons: []string{"too many flagged frames"}},
		nil,
		AudioResult{Passed: true},
		nil,
	)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if decision.Approved {
		t.Fatal("visual failure must reject")
	}
	if len(decision.RejectionReasons) != 1 {
		t.Fatalf("reasons = %v", decision.RejectionReasons)
	}

	decision, err = Evaluate(
		VisualResult{Passed: true, FrameCount: 10},
		nil,
		AudioResult{Passed: false, Reasons: []string{"transcript flagged for hate"}},
		nil,
	)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if decision.Approved {
		t.Fatal("audio failure must reject")
	}
}

func TestEvaluateVisualErrorFailsClosed(t *testing.T) {
	visualErr := services.Wrap(services.ErrUnavailable, "vision", "classify frames", "outage", nil)
	_, err := Evaluate(VisualResult{}, visualErr, AudioResult{Passed: true}, nil)
	if !errors.Is(err, services.ErrUnavailable) {
		t.Fatalf("visual outage must propagate, got %v", err)
	}
}

func TestEvaluateAudioInfrastructureFailureFailsOpen(t *testing.T) {
	audioErr := services.Wrap(services.ErrTransient, "speech", "transcribe", "connection refused", nil)
	decision, err := Evaluate(VisualResult{Passed: true, FrameCount: 10}, nil, AudioResult{}, audioErr)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if !decision.Approved {
		t.Fatal("speech outage with a clean visual signal should approve")
	}
	if !decision.AudioSkipped || decision.AudioPassed {
		t.Fatalf("decision = %+v", decision)
	}
}

func TestEvaluateAudioSemanticErrorFailsClosed(t *testing.T) {
	audioErr := services.Wrap(services.ErrExternalTool, "moderate", "extract audio", "corrupt audio track", nil)
	_, err := Evaluate(VisualResult{Passed: true}, nil, AudioResult{}, audioErr)
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("non-infrastructure audio error must propagate, got %v", err)
	}
}

func TestEvaluateAudioSkipDoesNotMaskVisualRejection(t *testing.T) {
	audioErr := services.Wrap(services.ErrUnavailable, "speech", "transcribe", "outage", nil)
	decision, err := Evaluate(
		VisualResult{Passed: false, Reasons: []string{"flagged"}},
		nil,
		AudioResult{},
		audioErr,
	)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if decision.Approved {
		t.Fatal("visual rejection must stand even when audio is skipped")
	}
}

func TestDecisionRoundTrip(t *testing.T) {
	decision, err := Evaluate(
		VisualResult{Passed: false, FrameCount: 6, TopTwo: 3, Reasons: []string{"short clip"}},
		nil,
		AudioResult{Passed: true, Transcript: "words"},
		nil,
	)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	raw, err := decision.Encode()
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	decoded, err := DecodeDecision(raw)
	if err != nil {
		t.Fatalf("DecodeDecision: %v", err)
	}
	if decoded.Approved != decision.Approved || decoded.FlaggedFrames != 3 || len(decoded.RejectionReasons) != 1 {
		t.Fatalf("decoded = %+v", decoded)
	}
}
