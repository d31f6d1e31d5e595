package stage

import (
	"fmt"
	"os"

	"vidgate/internal/services"
)

// RequireLocalFile verifies that a checkpointed artifact actually exists on
// disk. On failure it returns a services.ErrValidation suitable for stage
// Execute methods.
func RequireLocalFile(stageName, operation, path string) error {
	if path == "" {
		return services.Wrap(
			services.ErrValidation, stageName, operation,
			"Required file path is empty; the item checkpoint is incomplete", nil)
	}
	info, err := os.Stat(path)
	if err != nil {
		return services.Wrap(
			services.ErrValidation, stageName, operation,
			fmt.Sprintf("Required file %s is missing; retrying restarts from the last durable checkpoint", path), err)
	}
	if info.IsDir() {
		return services.Wrap(
			services.ErrValidation, stageName, operation,
			fmt.Sprintf("Path %s is a directory, expected a media file", path), nil)
	}
	return nil
}
