package media

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

type probeStream struct {
	CodecType  string `json:"codec_type"`
	Width      int    `json:"width"`
	Height     int    `json:"height"`
	RFrameRate string `json:"r_frame_rate"`
}

type probeFormat struct {
	Duration string `json:"duration"`
}

type probeOutput struct {
	Streams []probeStream `json:"streams"`
	Format  probeFormat   `json:"format"`
}

// parseProbeOutput maps ffprobe's JSON report onto a VideoInfo. Size and
// container format are filled in by the caller from the filesystem.
func parseProbeOutput(raw string) (VideoInfo, error) {
	var probe probeOutput
	if err := json.Unmarshal([]byte(raw), &probe); err != nil {
		return VideoInfo{}, fmt.Errorf("unmarshal ffprobe json: %w", err)
	}

	var info VideoInfo
	if probe.Format.Duration != "" {
		d, err := strconv.ParseFloat(probe.Format.Duration, 64)
		if err != nil {
			return VideoInfo{}, fmt.Errorf("parse duration %q: %w", probe.Format.Duration, err)
		}
		info.Duration = d
	}

	for _, s := range probe.Streams {
		switch s.CodecType {
		case "video":
			info.Width = s.Width
			info.Height = s.Height
			if fps, err := parseFrameRate(s.RFrameRate); err == nil {
				info.FPS = fps
			}
		case "audio":
			info.HasAudio = true
		}
	}

	return info, nil
}

// parseFrameRate parses ffprobe's rational frame rate, e.g. "30000/1001".
func parseFrameRate(raw string) (float64, error) {
	if raw == "" {
		return 0, fmt.Errorf("empty frame rate")
	}

	num, den, found := strings.Cut(raw, "/")
	n, err := strconv.ParseFloat(num, 64)
	if err != nil {
		return 0, err
	}
	if !found {
		return n, nil
	}

	d, err := strconv.ParseFloat(den, 64)
	if err != nil {
		return 0, err
	}
	if d == 0 {
		return 0, fmt.Errorf("zero denominator in frame rate %q", raw)
	}
	return n / d, nil
}
