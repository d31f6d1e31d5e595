// Package moderation decides whether a normalized clip may be published.
// Visual and audio classifiers run against external services; their results
// feed a fail-closed evaluator that only approves when every required signal
// passed. The single deliberate exception is audio: an infrastructure outage
// in the speech pipeline does not block publication, because the visual
// signal alone is considered sufficient and transcription backlogs must not
// freeze the whole platform.
package moderation
