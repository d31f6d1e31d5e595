package preflight

import (
	"fmt"
	"os/exec"
	"strings"

	"vidgate/internal/config"
)

// BinaryStatus reports the availability of one required external binary.
type BinaryStatus struct {
	Name      string
	Command   string
	Purpose   string
	Available bool
	Detail    string
}

// CheckSystemDeps evaluates the external binaries the pipeline shells out
// to. Both the daemon startup path and the CLI health command use this to
// avoid duplicating the requirements list.
func CheckSystemDeps(cfg *config.Config) []BinaryStatus {
	return []BinaryStatus{
		checkBinary("FFmpeg", cfg.FFmpeg.Binary, "normalization, remux recovery, and thumbnails"),
		checkBinary("FFprobe", cfg.FFmpeg.ProbeBinary, "container and stream inspection"),
	}
}

func checkBinary(name, command, purpose string) BinaryStatus {
	status := BinaryStatus{Name: name, Command: strings.TrimSpace(command), Purpose: purpose}
	if status.Command == "" {
		status.Detail = "command not configured"
		return status
	}
	resolved, err := exec.LookPath(status.Command)
	if err != nil {
		status.Detail = fmt.Sprintf("binary %q not found", status.Command)
		return status
	}
	status.Command = resolved
	status.Available = true
	return status
}
