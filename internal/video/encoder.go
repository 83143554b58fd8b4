package video

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strconv"
	"strings"
	"sync"
)

// Encoder opens one output file per chunk.
type Encoder interface {
	Open(ctx context.Context, path string, width, height int, fps float64) (Stream, error)
}

// Stream receives tightly packed RGBA frames (width*height*4 bytes each).
type Stream interface {
	WriteFrame(pix []byte) error
	// Close flushes and finalizes the file.
	Close() error
}

// FFmpegEncoder encodes chunks with an ffmpeg child process reading raw
// frames on stdin.
type FFmpegEncoder struct {
	Binary string
	Codec  string
	Preset string
}

// Args builds the ffmpeg argument list for one chunk.
func (e FFmpegEncoder) Args(path string, width, height int, fps float64) []string {
	codec := strings.TrimSpace(e.Codec)
	if codec == "" {
		codec = "libx264"
	}
	preset := strings.TrimSpace(e.Preset)
	if preset == "" {
		preset = "ultrafast"
	}
	rate := strconv.FormatFloat(fps, 'f', -1, 64)
	return []string{
		"-hide_banner",
		"-loglevel", "error",
		"-y",
		"-f", "rawvideo",
		"-pix_fmt", "rgba",
		"-s", fmt.Sprintf("%dx%d", width, height),
		"-r", rate,
		"-i", "pipe:0",
		"-an",
		"-c:v", codec,
		"-preset", preset,
		"-pix_fmt", "yuv420p",
		// yuv420p needs even dimensions
		"-vf", "pad=ceil(iw/2)*2:ceil(ih/2)*2",
		"-movflags", "+faststart",
		path,
	}
}

// Open starts ffmpeg for path.
func (e FFmpegEncoder) Open(ctx context.Context, path string, width, height int, fps float64) (Stream, error) {
	binary := strings.TrimSpace(e.Binary)
	if binary == "" {
		binary = "ffmpeg"
	}
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("invalid frame size %dx%d", width, height)
	}
	cmd := exec.CommandContext(ctx, binary, e.Args(path, width, height, fps)...) //nolint:gosec
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("stdin pipe: %w", err)
	}
	stderr := &tailBuffer{limit: 4096}
	cmd.Stderr = stderr
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start %s: %w", binary, err)
	}
	return &ffmpegStream{cmd: cmd, stdin: stdin, buf: bufio.NewWriterSize(stdin, width*height*4), stderr: stderr, frameSize: width * height * 4}, nil
}

type ffmpegStream struct {
	cmd       *exec.Cmd
	stdin     io.WriteCloser
	buf       *bufio.Writer
	stderr    *tailBuffer
	frameSize int
	closed    bool
}

func (s *ffmpegStream) WriteFrame(pix []byte) error {
	if s.closed {
		return errors.New("stream closed")
	}
	if len(pix) != s.frameSize {
		return fmt.Errorf("frame is %d bytes, stream expects %d", len(pix), s.frameSize)
	}
	if _, err := s.buf.Write(pix); err != nil {
		return s.withStderr(fmt.Errorf("write frame: %w", err))
	}
	return nil
}

func (s *ffmpegStream) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	flushErr := s.buf.Flush()
	closeErr := s.stdin.Close()
	waitErr := s.cmd.Wait()
	if waitErr != nil {
		return s.withStderr(fmt.Errorf("ffmpeg exited: %w", waitErr))
	}
	if err := errors.Join(flushErr, closeErr); err != nil {
		return s.withStderr(err)
	}
	return nil
}

func (s *ffmpegStream) withStderr(err error) error {
	if tail := strings.TrimSpace(s.stderr.String()); tail != "" {
		return fmt.Errorf("%w: %s", err, tail)
	}
	return err
}

// tailBuffer keeps the last limit bytes written to it.
type tailBuffer struct {
	mu    sync.Mutex
	limit int
	buf   bytes.Buffer
}

func (b *tailBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.buf.Write(p)
	if over := b.buf.Len() - b.limit; over > 0 {
		b.buf.Next(over)
	}
	return len(p), nil
}

func (b *tailBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}
