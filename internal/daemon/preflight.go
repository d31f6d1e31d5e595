package daemon

import (
	"context"
	"fmt"
	"strings"

	"vidgate/internal/logging"
	"vidgate/internal/preflight"
)

// Preflight validates directories, binaries, and collaborator reachability
// before the worker pool starts. Returns nil when all checks pass, or an
// error describing all failures.
func (d *Daemon) Preflight(ctx context.Context) error {
	var failures []string

	for _, r := range preflight.RunAll(ctx, d.cfg) {
		if r.Passed {
			d.logger.Info("preflight check passed",
				logging.String("check", r.Name),
				logging.String("detail", r.Detail),
				logging.String(logging.FieldEventType, "preflight_passed"),
			)
			continue
		}
		d.logger.Error("preflight check failed",
			logging.String("check", r.Name),
			logging.String("detail", r.Detail),
			logging.String(logging.FieldEventType, "preflight_failed"),
			logging.String(logging.FieldErrorHint, "fix the reported issue and restart the daemon"),
		)
		failures = append(failures, fmt.Sprintf("%s: %s", r.Name, r.Detail))
	}

	for _, status := range preflight.CheckSystemDeps(d.cfg) {
		if status.Available {
			continue
		}
		d.logger.Error("required binary missing",
			logging.String("binary", status.Name),
			logging.String("detail", status.Detail),
			logging.String(logging.FieldEventType, "preflight_failed"),
			logging.String(logging.FieldErrorHint, "required for "+status.Purpose),
		)
		failures = append(failures, fmt.Sprintf("%s: %s", status.Name, status.Detail))
	}

	if len(failures) > 0 {
		return fmt.Errorf("preflight checks failed: %s", strings.Join(failures, "; "))
	}
	return nil
}
