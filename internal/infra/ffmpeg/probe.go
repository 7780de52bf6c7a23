package ffmpeg

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/fiapx/fiapx-fingerprint-service/internal/domain/entity"
	ffmpeggo "github.com/u2takey/ffmpeg-go"
)

// probeResult matches the parts of ffprobe's JSON output we read.
type probeResult struct {
	Format struct {
		Duration string `json:"duration"`
	} `json:"format"`
	Streams []struct {
		CodecType    string `json:"codec_type"`
		Width        int    `json:"width"`
		Height       int    `json:"height"`
		AvgFrameRate string `json:"avg_frame_rate"`
		RFrameRate   string `json:"r_frame_rate"`
		Duration     string `json:"duration"`
	} `json:"streams"`
}

func probeVideo(videoPath string, timeout time.Duration) (entity.VideoInfo, error) {
	out, err := ffmpeggo.ProbeWithTimeout(videoPath, timeout, ffmpeggo.KwArgs{})
	if err != nil {
		return entity.VideoInfo{}, fmt.Errorf("ffprobe %s: %w", videoPath, err)
	}
	return parseProbe([]byte(out))
}

// parseProbe reads the first video stream. Total frames is fps*duration
// truncated, which is what the decoder can be expected to deliver.
func parseProbe(raw []byte) (entity.VideoInfo, error) {
	var probe probeResult
	if err := json.Unmarshal(raw, &probe); err != nil {
		return entity.VideoInfo{}, fmt.Errorf("parse ffprobe output: %w", err)
	}

	for _, stream := range probe.Streams {
		if stream.CodecType != "video" {
			continue
		}

		fps := parseFrameRate(stream.AvgFrameRate)
		if fps <= 0 {
			fps = parseFrameRate(stream.RFrameRate)
		}
		duration, _ := strconv.ParseFloat(probe.Format.Duration, 64)
		if duration <= 0 {
			duration, _ = strconv.ParseFloat(stream.Duration, 64)
		}
		if fps <= 0 || duration <= 0 || stream.Width <= 0 || stream.Height <= 0 {
			return entity.VideoInfo{}, fmt.Errorf("%w: incomplete video stream (fps=%g duration=%g size=%dx%d)",
				entity.ErrDecode, fps, duration, stream.Width, stream.Height)
		}

		return entity.VideoInfo{
			FPS:         fps,
			Duration:    duration,
			TotalFrames: int(fps * duration),
			Width:       stream.Width,
			Height:      stream.Height,
		}, nil
	}
	return entity.VideoInfo{}, fmt.Errorf("%w: no video stream", entity.ErrDecode)
}

// parseFrameRate parses ffprobe rates such as "30000/1001" or "25".
func parseFrameRate(rate string) float64 {
	num, den, found := strings.Cut(strings.TrimSpace(rate), "/")
	n, err := strconv.ParseFloat(num, 64)
	if err != nil {
		return 0
	}
	if !found {
		return n
	}
	d, err := strconv.ParseFloat(den, 64)
	if err != nil || d == 0 {
		return 0
	}
	return n / d
}
