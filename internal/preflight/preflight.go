package preflight

import (
	"context"

	"vidgate/internal/config"
	"vidgate/internal/services/cdn"
	"vidgate/internal/services/speech"
	"vidgate/internal/services/textmod"
	"vidgate/internal/services/vision"
	"vidgate/internal/staging"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes all applicable preflight checks for the given config.
// Checks for remote services run only when an endpoint is configured.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	var results []Result

	// Local directories (always checked)
	results = append(results, CheckDirectoryAccess("Scratch directory", cfg.Paths.ScratchDir))
	results = append(results, CheckDirectoryAccess("Log directory", cfg.Paths.LogDir))

	if cfg.Staging.Endpoint != "" {
		client := staging.NewClient(cfg.Staging.Endpoint, cfg.Staging.Timeout())
		results = append(results, CheckService(ctx, "Staging store", client.Ping))
	}
	if cfg.Speech.Endpoint != "" {
		client := speech.NewClient(cfg.Speech.Endpoint, cfg.Speech.Language, cfg.Speech.Timeout())
		results = append(results, CheckService(ctx, "Speech service", client.Ping))
	}
	if cfg.Vision.Endpoint != "" {
		client := vision.NewClient(cfg.Vision.Endpoint, cfg.Vision.Timeout())
		results = append(results, CheckService(ctx, "Vision service", client.Ping))
	}
	if cfg.TextMod.Endpoint != "" {
		client := textmod.NewClient(cfg.TextMod.Endpoint, cfg.TextMod.Timeout())
		results = append(results, CheckService(ctx, "Text moderation service", client.Ping))
	}
	if cfg.CDN.Endpoint != "" {
		client := cdn.NewClient(cfg.CDN.Endpoint, cfg.CDN.Timeout())
		results = append(results, CheckService(ctx, "CDN", client.Ping))
	}

	return results
}
