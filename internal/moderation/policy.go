package moderation

import (
	"time"

	"vidgate/internal/services"
)

// Evaluate combines classifier outcomes into a single fail-closed decision.
//
// A visual classifier error always propagates: the item cannot be judged and
// must not be published. Audio is asymmetric on purpose: when the speech
// pipeline itself is down (infrastructure failure), the clip is judged on the
// visual signal alone rather than blocking every upload behind an outage. An
// audio error that is not infrastructural still propagates.
func Evaluate(visual VisualResult, visualErr error, audio AudioResult, audioErr error) (Decision, error) {
	if visualErr != nil {
		return Decision{}, visualErr
	}

	audioSkipped := false
	if audioErr != nil {
		if !services.IsInfrastructure(audioErr) {
			return Decision{}, audioErr
		}
		audioSkipped = true
		audio = AudioResult{}
	}

	decision := Decision{
		VisualPassed:  visual.Passed,
		AudioPassed:   audio.Passed,
		AudioSkipped:  audioSkipped,
		FrameCount:    visual.FrameCount,
		FlaggedFrames: visual.TopTwo,
		Transcript:    audio.Transcript,
		Keywords:      audio.Keywords,
		EvaluatedAt:   time.Now().UTC(),
	}
	decision.RejectionReasons = append(decision.RejectionReasons, visual.Reasons...)
	decision.RejectionReasons = append(decision.RejectionReasons, audio.Reasons...)
	decision.Approved = visual.Passed && (audio.Passed || audioSkipped)
	if !decision.Approved {
		// Audio-derived metadata feeds search and must not survive on
		// rejected content.
		decision.Transcript = ""
		decision.Keywords = nil
	}
	return decision, nil
}
