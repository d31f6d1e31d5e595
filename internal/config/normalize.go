package config

import (
	"fmt"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeStaging()
	c.normalizeServices()
	c.normalizeFFmpeg()
	c.normalizeWorkflow()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if c.Paths.ScratchDir, err = expandPath(c.Paths.ScratchDir); err != nil {
		return fmt.Errorf("paths.scratch_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeStaging() {
	c.Staging.Endpoint = strings.TrimRight(strings.TrimSpace(c.Staging.Endpoint), "/")
	c.Staging.Bucket = strings.TrimSpace(c.Staging.Bucket)
	if c.Staging.Bucket == "" {
		c.Staging.Bucket = defaultStagingBucket
	}
	c.Staging.QuarantineBucket = strings.TrimSpace(c.Staging.QuarantineBucket)
	if c.Staging.QuarantineBucket == "" {
		c.Staging.QuarantineBucket = defaultQuarantineBucket
	}
	if c.Staging.RequestTimeout <= 0 {
		c.Staging.RequestTimeout = defaultRequestTimeout
	}
}

func (c *Config) normalizeServices() {
	c.Speech.Endpoint = strings.TrimRight(strings.TrimSpace(c.Speech.Endpoint), "/")
	if c.Speech.Language == "" {
		c.Speech.Language = defaultSpeechLanguage
	}
	if c.Speech.RequestTimeout <= 0 {
		c.Speech.RequestTimeout = defaultSpeechTimeout
	}

	c.Vision.Endpoint = strings.TrimRight(strings.TrimSpace(c.Vision.Endpoint), "/")
	if c.Vision.RequestTimeout <= 0 {
		c.Vision.RequestTimeout = defaultVisionTimeout
	}
	if c.Vision.TopLevelFrames <= 0 {
		c.Vision.TopLevelFrames = defaultTopLevelFrames
	}
	if c.Vision.ShortClipFrames <= 0 {
		c.Vision.ShortClipFrames = defaultShortClipFrames
	}
	if c.Vision.ShortClipProportion <= 0 || c.Vision.ShortClipProportion > 1 {
		c.Vision.ShortClipProportion = defaultShortClipProportion
	}

	c.TextMod.Endpoint = strings.TrimRight(strings.TrimSpace(c.TextMod.Endpoint), "/")
	if c.TextMod.RequestTimeout <= 0 {
		c.TextMod.RequestTimeout = defaultRequestTimeout
	}

	c.CDN.Endpoint = strings.TrimRight(strings.TrimSpace(c.CDN.Endpoint), "/")
	if c.CDN.RequestTimeout <= 0 {
		c.CDN.RequestTimeout = defaultRequestTimeout
	}
	if c.CDN.ReadyPollInterval <= 0 {
		c.CDN.ReadyPollInterval = defaultCDNReadyPoll
	}
	if c.CDN.ReadyTimeout <= 0 {
		c.CDN.ReadyTimeout = defaultCDNReadyTimeout
	}

	c.Records.PostEndpoint = strings.TrimSpace(c.Records.PostEndpoint)
	c.Records.CommentEndpoint = strings.TrimSpace(c.Records.CommentEndpoint)
	c.Records.MessageEndpoint = strings.TrimSpace(c.Records.MessageEndpoint)
	if c.Records.RequestTimeout <= 0 {
		c.Records.RequestTimeout = defaultRequestTimeout
	}
}

func (c *Config) normalizeFFmpeg() {
	if strings.TrimSpace(c.FFmpeg.Binary) == "" {
		c.FFmpeg.Binary = defaultFFmpegBinary
	}
	if strings.TrimSpace(c.FFmpeg.ProbeBinary) == "" {
		c.FFmpeg.ProbeBinary = defaultFFprobeBinary
	}
	if c.FFmpeg.RemuxTimeout <= 0 {
		c.FFmpeg.RemuxTimeout = defaultRemuxTimeout
	}
	if c.FFmpeg.RepairTimeout <= 0 {
		c.FFmpeg.RepairTimeout = defaultRepairTimeout
	}
	if c.FFmpeg.TranscodeTimeout <= 0 {
		c.FFmpeg.TranscodeTimeout = defaultTranscodeTimeout
	}
	if c.FFmpeg.ThumbnailTimeout <= 0 {
		c.FFmpeg.ThumbnailTimeout = defaultThumbnailTimeout
	}
}

func (c *Config) normalizeWorkflow() {
	if c.Workflow.Workers <= 0 {
		c.Workflow.Workers = defaultWorkers
	}
	if c.Workflow.QueuePollInterval <= 0 {
		c.Workflow.QueuePollInterval = defaultQueuePollInterval
	}
	if c.Workflow.ErrorRetryInterval <= 0 {
		c.Workflow.ErrorRetryInterval = defaultErrorRetryInterval
	}
	if c.Workflow.HeartbeatInterval <= 0 {
		c.Workflow.HeartbeatInterval = defaultHeartbeatInterval
	}
	if c.Workflow.HeartbeatTimeout <= 0 {
		c.Workflow.HeartbeatTimeout = defaultHeartbeatTimeout
	}
	if c.Workflow.JanitorInterval <= 0 {
		c.Workflow.JanitorInterval = defaultJanitorInterval
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
