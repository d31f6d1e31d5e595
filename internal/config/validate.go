package config

import (
	"fmt"
	"strings"
)

// Validate checks configuration invariants that normalize cannot repair.
func (c *Config) Validate() error {
	var problems []string

	if strings.TrimSpace(c.Paths.ScratchDir) == "" {
		problems = append(problems, "paths.scratch_dir is required")
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		problems = append(problems, "paths.log_dir is required")
	}
	if c.Staging.Bucket == c.Staging.QuarantineBucket {
		problems = append(problems, "staging.bucket and staging.quarantine_bucket must differ")
	}
	switch c.Logging.Format {
	case "console", "json":
	default:
		problems = append(problems, fmt.Sprintf("logging.format %q is not supported", c.Logging.Format))
	}
	if c.Vision.ShortClipProportion <= 0 || c.Vision.ShortClipProportion > 1 {
		problems = append(problems, "vision.short_clip_proportion must be in (0, 1]")
	}

	if len(problems) == 0 {
		return nil
	}
	return fmt.Errorf("invalid configuration: %s", strings.Join(problems, "; "))
}
