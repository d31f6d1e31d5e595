package config

const (
	defaultScratchDir          = "~/.local/share/vidgate/scratch"
	defaultLogDir              = "~/.local/share/vidgate/logs"
	defaultStagingBucket       = "vidgate-staging"
	defaultQuarantineBucket    = "vidgate-quarantine"
	defaultRequestTimeout      = 30
	defaultSpeechTimeout       = 120
	defaultVisionTimeout       = 120
	defaultSpeechLanguage      = "en-US"
	defaultTopLevelFrames      = 3
	defaultShortClipFrames     = 8
	defaultShortClipProportion = 0.5
	defaultFFmpegBinary        = "ffmpeg"
	defaultFFprobeBinary       = "ffprobe"
	defaultRemuxTimeout        = 60
	defaultRepairTimeout       = 120
	defaultTranscodeTimeout    = 600
	defaultThumbnailTimeout    = 30
	defaultCDNReadyPoll        = 2
	defaultCDNReadyTimeout     = 300
	defaultWorkers             = 2
	defaultQueuePollInterval   = 2
	defaultErrorRetryInterval  = 5
	defaultHeartbeatInterval   = 15
	defaultHeartbeatTimeout    = 120
	defaultJanitorInterval     = 300
	defaultLogFormat           = "console"
	defaultLogLevel            = "info"
	defaultNotifyTimeout       = 10
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			ScratchDir: defaultScratchDir,
			LogDir:     defaultLogDir,
		},
		Staging: Staging{
			Bucket:           defaultStagingBucket,
			QuarantineBucket: defaultQuarantineBucket,
			RequestTimeout:   defaultRequestTimeout,
		},
		Speech: Speech{
			Language:       defaultSpeechLanguage,
			RequestTimeout: defaultSpeechTimeout,
		},
		Vision: Vision{
			RequestTimeout:      defaultVisionTimeout,
			TopLevelFrames:      defaultTopLevelFrames,
			ShortClipFrames:     defaultShortClipFrames,
			ShortClipProportion: defaultShortClipProportion,
		},
		TextMod: TextMod{
			RequestTimeout: defaultRequestTimeout,
		},
		CDN: CDN{
			RequestTimeout:    defaultRequestTimeout,
			ReadyPollInterval: defaultCDNReadyPoll,
			ReadyTimeout:      defaultCDNReadyTimeout,
		},
		Records: Records{
			RequestTimeout: defaultRequestTimeout,
		},
		FFmpeg: FFmpeg{
			Binary:           defaultFFmpegBinary,
			ProbeBinary:      defaultFFprobeBinary,
			RemuxTimeout:     defaultRemuxTimeout,
			RepairTimeout:    defaultRepairTimeout,
			TranscodeTimeout: defaultTranscodeTimeout,
			ThumbnailTimeout: defaultThumbnailTimeout,
		},
		Workflow: Workflow{
			Workers:            defaultWorkers,
			QueuePollInterval:  defaultQueuePollInterval,
			ErrorRetryInterval: defaultErrorRetryInterval,
			HeartbeatInterval:  defaultHeartbeatInterval,
			HeartbeatTimeout:   defaultHeartbeatTimeout,
			JanitorInterval:    defaultJanitorInterval,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyTimeout,
			Approved:       false,
			Rejected:       true,
			Errors:         true,
			Queue:          true,
		},
	}
}
