// Package services defines shared utilities consumed by the pipeline stage
// handlers and external integrations.
//
// Key responsibilities:
//   - Context helpers that stamp item IDs, stage names, and correlation
//     identifiers for logging and tracing.
//   - The typed error taxonomy plus the Wrap helper that keeps failure
//     classification uniform across collaborators (transcoder, staging
//     store, classifiers, CDN).
//
// Use these helpers when wiring new stage logic so operational behaviour
// (error handling, observability) stays uniform across the pipeline.
package services
