package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains local directory configuration.
type Paths struct {
	ScratchDir string `toml:"scratch_dir"`
	LogDir     string `toml:"log_dir"`
}

// Staging contains configuration for the temporary analysis object store.
type Staging struct {
	Endpoint         string `toml:"endpoint"`
	Bucket           string `toml:"bucket"`
	QuarantineBucket string `toml:"quarantine_bucket"`
	RequestTimeout   int    `toml:"request_timeout"`
}

// Speech contains configuration for the speech-to-text service.
type Speech struct {
	Endpoint       string `toml:"endpoint"`
	Language       string `toml:"language"`
	RequestTimeout int    `toml:"request_timeout"`
}

// Vision contains configuration for the visual classification service and
// the rejection thresholds applied to its per-frame annotations.
type Vision struct {
	Endpoint       string `toml:"endpoint"`
	RequestTimeout int    `toml:"request_timeout"`
	// TopLevelFrames is the minimum count of frames at the top likelihood
	// level that rejects an item outright.
	TopLevelFrames int `toml:"top_level_frames"`
	// ShortClipFrames is the sampled-frame count at or below which the
	// proportional rule applies instead.
	ShortClipFrames int `toml:"short_clip_frames"`
	// ShortClipProportion is the fraction of frames in the top two
	// likelihood levels that rejects a short clip.
	ShortClipProportion float64 `toml:"short_clip_proportion"`
}

// TextMod contains configuration for transcript moderation.
type TextMod struct {
	Endpoint       string `toml:"endpoint"`
	RequestTimeout int    `toml:"request_timeout"`
	BlocklistPath  string `toml:"blocklist_path"`
}

// CDN contains configuration for the publishing service.
type CDN struct {
	Endpoint          string `toml:"endpoint"`
	RequestTimeout    int    `toml:"request_timeout"`
	ReadyPollInterval int    `toml:"ready_poll_interval"`
	ReadyTimeout      int    `toml:"ready_timeout"`
}

// Records contains endpoints for the downstream record services, one per
// media item kind.
type Records struct {
	PostEndpoint    string `toml:"post_endpoint"`
	CommentEndpoint string `toml:"comment_endpoint"`
	MessageEndpoint string `toml:"message_endpoint"`
	RequestTimeout  int    `toml:"request_timeout"`
}

// FFmpeg contains subprocess configuration for the transcoder adapter.
type FFmpeg struct {
	Binary           string `toml:"binary"`
	ProbeBinary      string `toml:"probe_binary"`
	RemuxTimeout     int    `toml:"remux_timeout"`
	RepairTimeout    int    `toml:"repair_timeout"`
	TranscodeTimeout int    `toml:"transcode_timeout"`
	ThumbnailTimeout int    `toml:"thumbnail_timeout"`
}

// Workflow contains daemon scheduling configuration.
type Workflow struct {
	Workers            int `toml:"workers"`
	QueuePollInterval  int `toml:"queue_poll_interval"`
	ErrorRetryInterval int `toml:"error_retry_interval"`
	HeartbeatInterval  int `toml:"heartbeat_interval"`
	HeartbeatTimeout   int `toml:"heartbeat_timeout"`
	JanitorInterval    int `toml:"janitor_interval"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Notifications contains configuration for ntfy push notifications.
type Notifications struct {
	NtfyTopic      string `toml:"ntfy_topic"`
	RequestTimeout int    `toml:"request_timeout"`
	Approved       bool   `toml:"approved"`
	Rejected       bool   `toml:"rejected"`
	Errors         bool   `toml:"errors"`
	Queue          bool   `toml:"queue"`
}

// Config encapsulates all configuration values for vidgate.
//
// Configuration sections by subsystem:
//   - Paths: scratch and log directories
//   - Staging: temporary analysis object store
//   - Speech / Vision / TextMod: content analysis services
//   - CDN: publishing service
//   - Records: downstream record routing per item kind
//   - FFmpeg: transcoder subprocess and timeouts
//   - Workflow: worker pool sizing and polling intervals
//   - Logging: log format and level
//   - Notifications: ntfy operator notifications
type Config struct {
	Paths         Paths         `toml:"paths"`
	Staging       Staging       `toml:"staging"`
	Speech        Speech        `toml:"speech"`
	Vision        Vision        `toml:"vision"`
	TextMod       TextMod       `toml:"textmod"`
	CDN           CDN           `toml:"cdn"`
	Records       Records       `toml:"records"`
	FFmpeg        FFmpeg        `toml:"ffmpeg"`
	Workflow      Workflow      `toml:"workflow"`
	Logging       Logging       `toml:"logging"`
	Notifications Notifications `toml:"notifications"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/vidgate/config.toml")
}

// SampleConfig returns the embedded sample configuration file contents.
func SampleConfig() string {
	return sampleConfig
}

// Load locates, parses, and validates a configuration file. The returned
// config has all path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("vidgate.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates required directories for daemon operation.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.ScratchDir, c.Paths.LogDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// ScratchDirFor returns the item-scoped scratch directory for an item key.
// Item-scoped paths keep concurrent workers from colliding on disk.
func (c *Config) ScratchDirFor(itemKey string) string {
	return filepath.Join(c.Paths.ScratchDir, "item-"+itemKey)
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}
