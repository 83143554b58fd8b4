package video

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"k21/internal/frames"
	"k21/internal/logging"
	"k21/internal/services"
)

const chunkTimeLayout = "20060102T150405Z"

// Chunk describes one finished (or in-progress) video file.
type Chunk struct {
	Seq    int
	Path   string
	Start  time.Time
	End    time.Time
	Frames int
	Width  int
	Height int
}

// Duration returns the capture time spanned by the chunk's frames.
func (c Chunk) Duration() time.Duration { return c.End.Sub(c.Start) }

// ChunkName returns the file name for chunk seq starting at start.
func ChunkName(seq int, start time.Time) string {
	return fmt.Sprintf("chunk_%05d_%s.mp4", seq, start.UTC().Format(chunkTimeLayout))
}

// ChunkWriterConfig configures chunk rotation.
type ChunkWriterConfig struct {
	Dir           string
	ChunkDuration time.Duration
	// FPS is the nominal input rate handed to the encoder.
	FPS float64
}

// ChunkWriter splits the frame stream into fixed-duration video files.
// It is not safe for concurrent use; the pipeline feeds it from one goroutine.
type ChunkWriter struct {
	cfg     ChunkWriterConfig
	encoder Encoder
	logger  *slog.Logger

	stream  Stream
	current *Chunk
	nextSeq int
	chunks  []Chunk
	packBuf []byte
}

// ChunkOption configures a ChunkWriter.
type ChunkOption func(*ChunkWriter)

// WithChunkLogger sets the writer logger.
func WithChunkLogger(logger *slog.Logger) ChunkOption {
	return func(w *ChunkWriter) {
		if logger != nil {
			w.logger = logger
		}
	}
}

// NewChunkWriter validates cfg and builds a writer.
func NewChunkWriter(cfg ChunkWriterConfig, encoder Encoder, opts ...ChunkOption) (*ChunkWriter, error) {
	if cfg.Dir == "" {
		return nil, services.Wrap(services.ErrConfiguration, "video", "validate", "output directory required", nil)
	}
	if cfg.ChunkDuration <= 0 {
		return nil, services.Wrap(services.ErrConfiguration, "video", "validate", "chunk duration must be positive", nil)
	}
	if !(cfg.FPS > 0) {
		return nil, services.Wrap(services.ErrConfiguration, "video", "validate", "fps must be positive", nil)
	}
	if encoder == nil {
		return nil, services.Wrap(services.ErrConfiguration, "video", "validate", "encoder required", nil)
	}
	w := &ChunkWriter{cfg: cfg, encoder: encoder, logger: logging.NewNop()}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

// Accept appends f to the current chunk, rotating first when the chunk has
// reached its duration or the frame size changed. The caller keeps ownership
// of f. Errors are ErrFrameWrite and leave the writer usable: the next frame
// opens a fresh chunk.
func (w *ChunkWriter) Accept(ctx context.Context, f *frames.Frame) error {
	img := f.Image()
	if img == nil {
		return services.Wrap(services.ErrFrameWrite, "video", "accept", fmt.Sprintf("frame %d already released", f.Index), nil)
	}
	width, height := f.Width(), f.Height()

	var rotateErr error
	if w.current != nil {
		elapsed := f.Timestamp.Sub(w.current.Start)
		if elapsed >= w.cfg.ChunkDuration || width != w.current.Width || height != w.current.Height {
			rotateErr = w.closeCurrent()
		}
	}

	if w.current == nil {
		if err := w.open(ctx, f.Timestamp, width, height); err != nil {
			return errors.Join(rotateErr, err)
		}
	}

	if err := w.stream.WriteFrame(w.pack(img.Pix, img.Stride, width, height)); err != nil {
		path := w.current.Path
		closeErr := w.closeCurrent()
		return errors.Join(rotateErr, services.Wrap(services.ErrFrameWrite, "video", "write frame",
			fmt.Sprintf("frame %d to %s", f.Index, filepath.Base(path)), errors.Join(err, closeErr)))
	}
	w.current.Frames++
	w.current.End = f.Timestamp
	return rotateErr
}

// Finalize closes the partial last chunk.
func (w *ChunkWriter) Finalize() error {
	return w.closeCurrent()
}

// Chunks returns the chunks closed so far, in sequence order.
func (w *ChunkWriter) Chunks() []Chunk {
	return append([]Chunk(nil), w.chunks...)
}

func (w *ChunkWriter) open(ctx context.Context, start time.Time, width, height int) error {
	path := filepath.Join(w.cfg.Dir, ChunkName(w.nextSeq, start))
	stream, err := w.encoder.Open(ctx, path, width, height, w.cfg.FPS)
	if err != nil {
		return services.Wrap(services.ErrFrameWrite, "video", "open chunk", filepath.Base(path), err)
	}
	w.stream = stream
	w.current = &Chunk{Seq: w.nextSeq, Path: path, Start: start, End: start, Width: width, Height: height}
	w.nextSeq++
	w.logger.Debug("video chunk opened", logging.String("path", path), logging.Int("seq", w.current.Seq))
	return nil
}

func (w *ChunkWriter) closeCurrent() error {
	if w.current == nil {
		return nil
	}
	chunk := *w.current
	stream := w.stream
	w.current, w.stream = nil, nil

	if err := stream.Close(); err != nil {
		return services.Wrap(services.ErrFrameWrite, "video", "close chunk", filepath.Base(chunk.Path), err)
	}
	if chunk.Frames > 0 {
		w.chunks = append(w.chunks, chunk)
		w.logger.Info("video chunk written",
			logging.String("path", chunk.Path),
			logging.Int("frames", chunk.Frames),
			logging.Duration("span", chunk.Duration()),
		)
	}
	return nil
}

// pack returns pix without row padding.
func (w *ChunkWriter) pack(pix []byte, stride, width, height int) []byte {
	rowBytes := width * 4
	if stride == rowBytes {
		return pix[:rowBytes*height]
	}
	need := rowBytes * height
	if cap(w.packBuf) < need {
		w.packBuf = make([]byte, need)
	}
	out := w.packBuf[:need]
	for y := 0; y < height; y++ {
		copy(out[y*rowBytes:(y+1)*rowBytes], pix[y*stride:y*stride+rowBytes])
	}
	return out
}
