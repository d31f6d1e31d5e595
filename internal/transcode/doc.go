// Package transcode normalizes uploaded clips into the canonical H.264/AAC
// MP4 layout. It climbs a recovery ladder from cheap stream copies to a full
// re-encode so damaged uploads still produce a playable artifact whenever
// the essence is recoverable.
package transcode
