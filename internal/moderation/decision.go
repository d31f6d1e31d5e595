package moderation

import (
	"encoding/json"
	"fmt"
	"time"
)

// Decision records the moderation verdict persisted alongside the item.
type Decision struct {
	Approved         bool      `json:"approved"`
	VisualPassed     bool      `json:"visual_passed"`
	AudioPassed      bool      `json:"audio_passed"`
	AudioSkipped     bool      `json:"audio_skipped,omitempty"`
	RejectionReasons []string  `json:"rejection_reasons,omitempty"`
	FrameCount       int       `json:"frame_count"`
	FlaggedFrames    int       `json:"flagged_frames"`
	Transcript       string    `json:"transcript,omitempty"`
	Keywords         []string  `json:"keywords,omitempty"`
	EvaluatedAt      time.Time `json:"evaluated_at"`
}

// Encode serializes the decision for storage on the queue item.
func (d Decision) Encode() (string, error) {
	data, err := json.Marshal(d)
	if err != nil {
		return "", fmt.Errorf("encode decision: %w", err)
	}
	return string(data), nil
}

// DecodeDecision parses a stored decision payload.
func DecodeDecision(raw string) (Decision, error) {
	var decision Decision
	if err := json.Unmarshal([]byte(raw), &decision); err != nil {
		return Decision{}, fmt.Errorf("decode decision: %w", err)
	}
	return decision, nil
}
