package queue

import (
	"strings"
	"time"
)

// Status represents the lifecycle of a media item.
type Status string

const (
	StatusUploading         Status = "uploading"
	StatusPendingModeration Status = "pending_moderation"
	StatusApproved          Status = "approved"
	StatusRejected          Status = "rejected"
	StatusFailed            Status = "failed"
	// StatusUnderAppeal is reserved for the external appeal workflow; the
	// pipeline never produces it.
	StatusUnderAppeal Status = "under_appeal"
)

// DaemonStopReason is the error message set when items are failed due to daemon shutdown.
const DaemonStopReason = "Daemon stopped"

var allStatuses = []Status{
	StatusUploading,
	StatusPendingModeration,
	StatusApproved,
	StatusRejected,
	StatusFailed,
	StatusUnderAppeal,
}

var statusSet = func() map[Status]struct{} {
	set := make(map[Status]struct{}, len(allStatuses))
	for _, status := range allStatuses {
		set[status] = struct{}{}
	}
	return set
}()

var terminalStatuses = map[Status]struct{}{
	StatusApproved: {},
	StatusRejected: {},
	StatusFailed:   {},
}

// validTransitions enumerates every allowed status edge. Each non-terminal
// status has one deterministic successor per outcome; terminal statuses are
// only left through the appeal workflow, which lives outside this daemon.
var validTransitions = map[Status][]Status{
	StatusUploading:         {StatusPendingModeration, StatusFailed},
	StatusPendingModeration: {StatusApproved, StatusRejected, StatusFailed},
	StatusApproved:          {StatusUnderAppeal},
	StatusRejected:          {StatusUnderAppeal},
	StatusUnderAppeal:       {StatusApproved, StatusRejected},
}

// Kind identifies which downstream record type receives the final result.
// It never changes pipeline behavior.
type Kind string

const (
	KindPrimaryPost   Kind = "primary_post"
	KindReplyComment  Kind = "reply_comment"
	KindThreadMessage Kind = "thread_message"
)

var kindSet = map[Kind]struct{}{
	KindPrimaryPost:   {},
	KindReplyComment:  {},
	KindThreadMessage: {},
}

// ParseKind converts a string into a known Kind.
func ParseKind(value string) (Kind, bool) {
	normalized := Kind(strings.ToLower(strings.TrimSpace(value)))
	_, ok := kindSet[normalized]
	return normalized, ok
}

// Item represents a media item persisted in SQLite.
type Item struct {
	ID               int64
	ItemKey          string
	SourcePath       string
	Kind             Kind
	DeclaredDuration float64
	Status           Status
	NormalizedPath   string
	StagingURI       string
	DecisionJSON     string
	PublicURL        string
	ThumbnailURL     string
	QuarantineRef    string
	ErrorMessage     string
	ProgressStage    string
	ProgressPercent  float64
	ProgressMessage  string
	CreatedAt        time.Time
	UpdatedAt        time.Time
	LastHeartbeat    *time.Time
}

// AllStatuses returns the ordered list of known statuses.
func AllStatuses() []Status {
	cp := make([]Status, len(allStatuses))
	copy(cp, allStatuses)
	return cp
}

// ParseStatus converts a string into a known Status.
func ParseStatus(value string) (Status, bool) {
	normalized := Status(strings.ToLower(strings.TrimSpace(value)))
	if normalized == "" {
		return "", false
	}
	_, ok := statusSet[normalized]
	return normalized, ok
}

// IsTerminal reports whether a status ends the pipeline's ownership of an item.
func IsTerminal(status Status) bool {
	_, ok := terminalStatuses[status]
	return ok
}

// CanTransition reports whether the state machine permits the edge.
func CanTransition(from, to Status) bool {
	for _, next := range validTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// IsTerminal reports whether the item reached a terminal status.
func (i Item) IsTerminal() bool {
	return IsTerminal(i.Status)
}

// SetProgress updates all three progress fields together.
func (i *Item) SetProgress(stage, message string, percent float64) {
	i.ProgressStage = stage
	i.ProgressMessage = message
	i.ProgressPercent = percent
}

// SetFailed records the failure details on the item. The status move itself
// happens through Store.Transition so the edge stays a conditional write.
func (i *Item) SetFailed(message string) {
	i.ErrorMessage = message
	i.ProgressPercent = 0
	i.ProgressMessage = message
	i.ProgressStage = "Failed"
	i.LastHeartbeat = nil
}

// HealthSummary describes aggregated queue counts per key lifecycle state.
type HealthSummary struct {
	Total     int
	Uploading int
	Pending   int
	Approved  int
	Rejected  int
	Failed    int
}

// DatabaseHealth captures diagnostic information about the queue database.
type DatabaseHealth struct {
	DBPath           string
	DatabaseExists   bool
	DatabaseReadable bool
	TableExists      bool
	IntegrityCheck   bool
	TotalItems       int
	Error            string
}
