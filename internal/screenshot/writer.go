package screenshot

import (
	"fmt"
	"image/jpeg"
	"image/png"
	"io"
	"path/filepath"
	"strings"
	"time"

	"k21/internal/fileutil"
	"k21/internal/frames"
	"k21/internal/services"
)

const (
	FormatPNG  = "png"
	FormatJPEG = "jpeg"

	timeLayout     = "20060102T150405.000Z"
	defaultQuality = 90
)

// Config selects the output directory and encoding.
type Config struct {
	Dir    string
	Format string
	// Quality applies to jpeg only (1-100).
	Quality int
}

// Writer stores one still image per accepted frame.
type Writer struct {
	dir     string
	format  string
	quality int
}

// NewWriter validates cfg. The directory must already exist.
func NewWriter(cfg Config) (*Writer, error) {
	dir := strings.TrimSpace(cfg.Dir)
	if dir == "" {
		return nil, services.Wrap(services.ErrConfiguration, "screenshot", "validate", "output directory required", nil)
	}
	format := strings.ToLower(strings.TrimSpace(cfg.Format))
	switch format {
	case "":
		format = FormatPNG
	case "jpg":
		format = FormatJPEG
	case FormatPNG, FormatJPEG:
	default:
		return nil, services.Wrap(services.ErrConfiguration, "screenshot", "validate",
			fmt.Sprintf("unsupported format %q", cfg.Format), nil)
	}
	quality := cfg.Quality
	if quality == 0 {
		quality = defaultQuality
	}
	if quality < 1 || quality > 100 {
		return nil, services.Wrap(services.ErrConfiguration, "screenshot", "validate",
			fmt.Sprintf("quality %d outside 1-100", quality), nil)
	}
	return &Writer{dir: dir, format: format, quality: quality}, nil
}

// FileName returns the name used for a frame.
func FileName(index uint64, ts time.Time, format string) string {
	ext := "png"
	if format == FormatJPEG {
		ext = "jpg"
	}
	return fmt.Sprintf("frame_%06d_%s.%s", index, ts.UTC().Format(timeLayout), ext)
}

// Accept writes f and returns the file path. The caller keeps ownership of f.
// Failures are ErrFrameWrite.
func (w *Writer) Accept(f *frames.Frame) (string, error) {
	path := filepath.Join(w.dir, FileName(f.Index, f.Timestamp, w.format))
	img := f.Image()
	if img == nil {
		return "", services.Wrap(services.ErrFrameWrite, "screenshot", "write", filepath.Base(path), frames.ErrReleased)
	}
	err := fileutil.WriteAtomic(path, 0o644, func(out io.Writer) error {
		if w.format == FormatJPEG {
			return jpeg.Encode(out, img, &jpeg.Options{Quality: w.quality})
		}
		enc := png.Encoder{CompressionLevel: png.BestSpeed}
		return enc.Encode(out, img)
	})
	if err != nil {
		return "", services.Wrap(services.ErrFrameWrite, "screenshot", "write", filepath.Base(path), err)
	}
	return path, nil
}

// Dir returns the output directory.
func (w *Writer) Dir() string { return w.dir }
