package config

import "time"

func seconds(value int) time.Duration {
	if value <= 0 {
		return 0
	}
	return time.Duration(value) * time.Second
}

// Timeout returns the staging request timeout.
func (s Staging) Timeout() time.Duration { return seconds(s.RequestTimeout) }

// Timeout returns the speech request timeout.
func (s Speech) Timeout() time.Duration { return seconds(s.RequestTimeout) }

// Timeout returns the vision request timeout.
func (v Vision) Timeout() time.Duration { return seconds(v.RequestTimeout) }

// Timeout returns the text moderation request timeout.
func (t TextMod) Timeout() time.Duration { return seconds(t.RequestTimeout) }

// Timeout returns the CDN request timeout.
func (c CDN) Timeout() time.Duration { return seconds(c.RequestTimeout) }

// PollInterval returns the edge readiness polling interval.
func (c CDN) PollInterval() time.Duration { return seconds(c.ReadyPollInterval) }

// ReadyDeadline returns how long to wait for the edge to serve new content.
func (c CDN) ReadyDeadline() time.Duration { return seconds(c.ReadyTimeout) }

// Timeout returns the record update request timeout.
func (r Records) Timeout() time.Duration { return seconds(r.RequestTimeout) }

// Timeout returns the ntfy request timeout.
func (n Notifications) Timeout() time.Duration { return seconds(n.RequestTimeout) }

// RemuxBudget returns the time budget for the stream-copy rung.
func (f FFmpeg) RemuxBudget() time.Duration { return seconds(f.RemuxTimeout) }

// RepairBudget returns the time budget for the repair rung.
func (f FFmpeg) RepairBudget() time.Duration { return seconds(f.RepairTimeout) }

// TranscodeBudget returns the time budget for the re-encode rung.
func (f FFmpeg) TranscodeBudget() time.Duration { return seconds(f.TranscodeTimeout) }

// ThumbnailBudget returns the time budget for poster extraction.
func (f FFmpeg) ThumbnailBudget() time.Duration { return seconds(f.ThumbnailTimeout) }

// PollInterval returns how often idle workers poll the queue.
func (w Workflow) PollInterval() time.Duration { return seconds(w.QueuePollInterval) }

// RetryInterval returns the back-off applied after a queue access error.
func (w Workflow) RetryInterval() time.Duration { return seconds(w.ErrorRetryInterval) }

// HeartbeatEvery returns the heartbeat refresh cadence for claimed items.
func (w Workflow) HeartbeatEvery() time.Duration { return seconds(w.HeartbeatInterval) }

// HeartbeatExpiry returns how stale a heartbeat must be before an item is
// reclaimed from a dead worker.
func (w Workflow) HeartbeatExpiry() time.Duration { return seconds(w.HeartbeatTimeout) }

// JanitorEvery returns the scratch and staging cleanup cadence.
func (w Workflow) JanitorEvery() time.Duration { return seconds(w.JanitorInterval) }
