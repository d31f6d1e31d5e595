package transcode

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// ProbeResult is the subset of ffprobe output the ladder decides on.
type ProbeResult struct {
	Container  string
	Duration   float64
	HasVideo   bool
	HasAudio   bool
	VideoCodec string
	AudioCodec string
	Width      int
	Height     int
}

type ffprobePayload struct {
	Format struct {
		FormatName string `json:"format_name"`
		Duration   string `json:"duration"`
	} `json:"format"`
	Streams []struct {
		CodecType string `json:"codec_type"`
		CodecName string `json:"codec_name"`
		Width     int    `json:"width"`
		Height    int    `json:"height"`
	} `json:"streams"`
}

// Probe inspects a media file with ffprobe.
func Probe(ctx context.Context, probeBinary, path string) (ProbeResult, error) {
	args := []string{
		"-v", "error",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		path,
	}
	cmd := commandContext(ctx, probeBinary, args...) //nolint:gosec
	output, err := cmd.Output()
	if err != nil {
		return ProbeResult{}, fmt.Errorf("ffprobe %s: %w", path, err)
	}

	var payload ffprobePayload
	if err := json.Unmarshal(output, &payload); err != nil {
		return ProbeResult{}, fmt.Errorf("ffprobe %s: decode output: %w", path, err)
	}

	result := ProbeResult{Container: payload.Format.FormatName}
	if payload.Format.Duration != "" {
		if duration, parseErr := strconv.ParseFloat(payload.Format.Duration, 64); parseErr == nil {
			result.Duration = duration
		}
	}
	for _, stream := range payload.Streams {
		switch stream.CodecType {
		case "video":
			if !result.HasVideo {
				result.HasVideo = true
				result.VideoCodec = stream.CodecName
				result.Width = stream.Width
				result.Height = stream.Height
			}
		case "audio":
			if !result.HasAudio {
				result.HasAudio = true
				result.AudioCodec = stream.CodecName
			}
		}
	}
	return result, nil
}

// Conformant reports whether the probed file already matches the canonical
// layout so a stream copy is enough.
func (p ProbeResult) Conformant() bool {
	if !p.HasVideo || p.VideoCodec != "h264" {
		return false
	}
	if p.HasAudio && p.AudioCodec != "aac" {
		return false
	}
	if p.Width <= 0 || p.Height <= 0 || p.Width%2 != 0 || p.Height%2 != 0 {
		return false
	}
	for _, name := range strings.Split(p.Container, ",") {
		if name == "mp4" {
			return true
		}
	}
	return false
}
