// Package queue persists media items in SQLite and exposes helpers for
// driving their lifecycle.
//
// The Store manages database connections, schema initialization, atomic
// claims, heartbeat tracking, stale-item recovery, and the status
// transitions that make up the moderation state machine. Unlike a job
// queue, rows are never pruned automatically: terminal items remain for
// audit and appeal, while their temporary artifacts (scratch files,
// staging objects) are removed by the pipeline itself.
//
// Treat this package as the single source of truth for lifecycle
// semantics; when you add new statuses or fields, update schema.sql and
// bump schemaVersion.
package queue
