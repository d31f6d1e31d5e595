package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Kind buckets collaborator failures for operator triage and user messaging.
// Kinds are diagnostic only; control flow matches the sentinel markers below
// with errors.Is.
type Kind string

const (
	KindTechnical  Kind = "technical"
	KindDependency Kind = "dependency"
	KindService    Kind = "service"
	KindStorage    Kind = "storage"
	KindNetwork    Kind = "network"
	KindValidation Kind = "validation"
)

var (
	ErrExternalTool  = errors.New("external tool error")
	ErrValidation    = errors.New("validation error")
	ErrConfiguration = errors.New("configuration error")
	ErrNotFound      = errors.New("not found")
	ErrTimeout       = errors.New("timeout")
	ErrTransient     = errors.New("transient failure")
	ErrStorage       = errors.New("storage error")
	ErrUnavailable   = errors.New("service unavailable")
)

// ServiceError carries stage context alongside the marker and root cause.
type ServiceError struct {
	marker    error
	Stage     string
	Operation string
	Message   string
	Cause     error
}

func (e *ServiceError) Error() string {
	detail := buildDetail(e.Stage, e.Operation, e.Message)
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.marker.Error(), detail, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.marker.Error(), detail)
}

func (e *ServiceError) Unwrap() []error {
	if e.Cause != nil {
		return []error{e.marker, e.Cause}
	}
	return []error{e.marker}
}

// Wrap builds an error that includes stage context while tagging it with the
// provided marker for later classification. The marker should be one of the
// exported sentinel errors above.
func Wrap(marker error, stage, operation, message string, err error) error {
	if marker == nil {
		marker = ErrTransient
	}
	return &ServiceError{
		marker:    marker,
		Stage:     stage,
		Operation: operation,
		Message:   message,
		Cause:     err,
	}
}

// ErrorDetails is the diagnostic view of a pipeline error.
type ErrorDetails struct {
	Kind      Kind
	Operation string
	Message   string
	Hint      string
	Cause     error
}

// Details extracts diagnostic fields from an error produced by Wrap. Errors
// from other sources are classified best-effort.
func Details(err error) ErrorDetails {
	details := ErrorDetails{Kind: KindTechnical}
	if err == nil {
		return details
	}

	var svcErr *ServiceError
	if errors.As(err, &svcErr) {
		details.Operation = svcErr.Operation
		details.Message = buildDetail(svcErr.Stage, svcErr.Operation, svcErr.Message)
		details.Cause = svcErr.Cause
	} else {
		details.Message = err.Error()
	}

	details.Kind = classify(err)
	details.Hint = hintFor(details.Kind, err)
	return details
}

// IsInfrastructure reports whether the error represents an inability to reach
// or run a collaborator, as opposed to the collaborator rejecting the input.
func IsInfrastructure(err error) bool {
	switch {
	case errors.Is(err, ErrTimeout),
		errors.Is(err, ErrTransient),
		errors.Is(err, ErrUnavailable),
		errors.Is(err, ErrStorage),
		errors.Is(err, context.DeadlineExceeded):
		return true
	default:
		return false
	}
}

func classify(err error) Kind {
	switch {
	case errors.Is(err, ErrStorage):
		return KindStorage
	case errors.Is(err, ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return KindNetwork
	case errors.Is(err, ErrUnavailable), errors.Is(err, ErrTransient):
		return KindService
	case errors.Is(err, ErrExternalTool):
		return KindDependency
	case errors.Is(err, ErrValidation), errors.Is(err, ErrNotFound):
		return KindValidation
	case errors.Is(err, ErrConfiguration):
		return KindTechnical
	default:
		return kindFromMessage(err)
	}
}

// kindFromMessage matches well-known substrings from collaborators that do
// not tag their errors. Diagnostic only.
func kindFromMessage(err error) Kind {
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "connection refused"),
		strings.Contains(msg, "no such host"),
		strings.Contains(msg, "i/o timeout"):
		return KindNetwork
	case strings.Contains(msg, "no space left"),
		strings.Contains(msg, "permission denied"),
		strings.Contains(msg, "no such file"):
		return KindStorage
	default:
		return KindTechnical
	}
}

func hintFor(kind Kind, err error) string {
	switch kind {
	case KindStorage:
		return "check scratch and staging storage availability"
	case KindNetwork:
		return "check connectivity to the analysis services"
	case KindService:
		return "collaborating service degraded; retry may succeed"
	case KindDependency:
		return "check external tool installation and logs"
	case KindValidation:
		return "input rejected; inspect the item source"
	default:
		if err != nil && errors.Is(err, ErrConfiguration) {
			return "fix configuration and restart"
		}
		return "check logs for details"
	}
}

// UserMessage renders the caller-facing outcome line for a failed run.
func UserMessage(err error) string {
	kind := classify(err)
	switch kind {
	case KindValidation:
		return "upload could not be processed, please check the file and retry"
	default:
		return "processing error, please retry upload"
	}
}

func buildDetail(stage, operation, message string) string {
	parts := make([]string, 0, 3)
	if stage = strings.TrimSpace(stage); stage != "" {
		parts = append(parts, stage)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
