package ffmpeg

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"os/exec"
	"slices"
	"strings"
	"time"

	"github.com/fiapx/fiapx-fingerprint-service/internal/domain/entity"
	"github.com/fiapx/fiapx-fingerprint-service/internal/domain/port"
	ffmpeggo "github.com/u2takey/ffmpeg-go"
	"go.uber.org/zap"
)

const bytesPerPixel = 4 // rgba

// Decoder opens local video files as indexed frame sources backed by an
// ffmpeg process that streams raw RGBA frames.
type Decoder struct {
	ffmpegPath   string
	probeTimeout time.Duration
	logger       *zap.Logger
}

func NewDecoder(ffmpegPath string, probeTimeout time.Duration, logger *zap.Logger) *Decoder {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	return &Decoder{ffmpegPath: ffmpegPath, probeTimeout: probeTimeout, logger: logger}
}

// Open probes videoPath. The decoder process is started lazily and is bound
// to ctx for the lifetime of the returned source.
func (d *Decoder) Open(ctx context.Context, videoPath string) (port.FrameSource, error) {
	info, err := probeVideo(videoPath, d.probeTimeout)
	if err != nil {
		return nil, err
	}
	return &frameSource{
		ctx:        ctx,
		ffmpegPath: d.ffmpegPath,
		path:       videoPath,
		info:       info,
		frameSize:  info.Width * info.Height * bytesPerPixel,
		endAt:      -1,
		logger:     d.logger.With(zap.String("video", videoPath)),
	}, nil
}

// frameSource reads frames sequentially from one ffmpeg process. Asking for
// any index other than the next one restarts ffmpeg at that index.
type frameSource struct {
	ctx        context.Context
	ffmpegPath string
	path       string
	info       entity.VideoInfo
	frameSize  int
	logger     *zap.Logger

	cmd    *exec.Cmd
	stdout io.ReadCloser
	stderr *bytes.Buffer
	next   int
	endAt  int
}

func (s *frameSource) Info() entity.VideoInfo {
	return s.info
}

func (s *frameSource) Frame(ctx context.Context, index int) (image.Image, error) {
	if index < 0 || index >= s.info.TotalFrames {
		return nil, fmt.Errorf("frame %d outside [0,%d): %w", index, s.info.TotalFrames, entity.ErrEndOfStream)
	}
	if s.endAt >= 0 && index >= s.endAt {
		return nil, fmt.Errorf("frame %d after stream end at %d: %w", index, s.endAt, entity.ErrEndOfStream)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if s.cmd == nil || index != s.next {
		s.stop()
		if err := s.start(index); err != nil {
			return nil, err
		}
	}

	buf := make([]byte, s.frameSize)
	_, err := io.ReadFull(s.stdout, buf)
	switch {
	case err == nil:
	case errors.Is(err, io.EOF):
		s.endAt = index
		return nil, fmt.Errorf("frame %d: %w%s", index, entity.ErrEndOfStream, s.finish())
	case errors.Is(err, io.ErrUnexpectedEOF):
		s.endAt = index
		return nil, fmt.Errorf("frame %d short read: %w%s", index, entity.ErrDecode, s.finish())
	default:
		s.stop()
		return nil, fmt.Errorf("frame %d: %w: %v", index, entity.ErrDecode, err)
	}
	s.next = index + 1

	return &image.RGBA{
		Pix:    buf,
		Stride: s.info.Width * bytesPerPixel,
		Rect:   image.Rect(0, 0, s.info.Width, s.info.Height),
	}, nil
}

func (s *frameSource) start(index int) error {
	args := decodeArgs(s.path, index)
	s.logger.Debug("starting decoder", zap.Int("from_frame", index), zap.Strings("args", args))

	cmd := exec.CommandContext(s.ctx, s.ffmpegPath, args...)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("ffmpeg stdout pipe: %w", err)
	}
	stderr := &bytes.Buffer{}
	cmd.Stderr = stderr

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start ffmpeg: %w", err)
	}

	s.cmd = cmd
	s.stdout = stdout
	s.stderr = stderr
	s.next = index
	return nil
}

// finish waits for a decoder that ran out of output and describes how it exited.
func (s *frameSource) finish() string {
	if s.cmd == nil {
		return ""
	}
	err := s.cmd.Wait()
	msg := strings.TrimSpace(s.stderr.String())
	s.cmd, s.stdout, s.stderr = nil, nil, nil
	if err != nil {
		return fmt.Sprintf(" (ffmpeg: %v: %s)", err, msg)
	}
	return ""
}

func (s *frameSource) stop() {
	if s.cmd == nil {
		return
	}
	_ = s.stdout.Close()
	if s.cmd.Process != nil {
		_ = s.cmd.Process.Kill()
	}
	_ = s.cmd.Wait()
	s.cmd, s.stdout, s.stderr = nil, nil, nil
}

func (s *frameSource) Close() error {
	s.stop()
	return nil
}

// decodeArgs builds an ffmpeg command line that writes raw RGBA frames of the
// first video stream to stdout, starting at frame index start. Rotation
// metadata is ignored so every frame keeps the probed coded dimensions.
func decodeArgs(videoPath string, start int) []string {
	args := ffmpeggo.Input(videoPath).
		Filter("trim", ffmpeggo.Args{}, ffmpeggo.KwArgs{"start_frame": start}).
		Output("pipe:", ffmpeggo.KwArgs{
			"format":  "rawvideo",
			"pix_fmt": "rgba",
			"vsync":   "passthrough",
		}).
		GlobalArgs("-nostdin", "-hide_banner", "-loglevel", "error").
		GetArgs()
	// -noautorotate is an input option and must precede -i
	if i := slices.Index(args, "-i"); i >= 0 {
		return slices.Insert(args, i, "-noautorotate")
	}
	return append([]string{"-noautorotate"}, args...)
}
