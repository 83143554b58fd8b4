package tesseract

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"k21/internal/services"
)

const defaultTimeout = 60 * time.Second

// Executor abstracts command execution for testability.
type Executor interface {
	Run(ctx context.Context, binary string, args []string, stdin []byte) ([]byte, error)
}

// Options tune a single recognition call. Nil pointers leave tesseract's own
// defaults in place.
type Options struct {
	Language string
	DPI      *int
	PSM      *int
	OEM      *int
}

// Word is one recognized word with its pixel box and 0-100 confidence.
type Word struct {
	Text       string
	Left       int
	Top        int
	Width      int
	Height     int
	Confidence float64
}

// Result is the outcome of one recognition call.
type Result struct {
	Text string
	// Confidence is the mean word confidence scaled to 0..1; zero when no
	// words were recognized.
	Confidence float64
	Words      []Word
}

// Option configures the client.
type Option func(*Client)

// WithExecutor injects a custom executor (primarily for tests).
func WithExecutor(exec Executor) Option {
	return func(c *Client) {
		if exec != nil {
			c.exec = exec
		}
	}
}

// WithTimeout bounds each tesseract invocation.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.timeout = timeout
		}
	}
}

// Client wraps the tesseract binary.
type Client struct {
	binary  string
	timeout time.Duration
	exec    Executor
}

// New constructs a tesseract client.
func New(binary string, opts ...Option) (*Client, error) {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		return nil, errors.New("tesseract binary required")
	}
	client := &Client{binary: binary, timeout: defaultTimeout, exec: commandExecutor{}}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

// Recognize runs OCR over an encoded image (PNG, JPEG or anything tesseract
// reads through leptonica).
func (c *Client) Recognize(ctx context.Context, image []byte, opts Options) (Result, error) {
	if len(image) == 0 {
		return Result{}, services.Wrap(services.ErrFrameProcess, "process", "tesseract", "Empty image", nil)
	}
	runCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	output, err := c.exec.Run(runCtx, c.binary, BuildArgs(opts), image)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return Result{}, ctxErr
		}
		if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
			return Result{}, services.Wrap(services.ErrTimeout, "process", "tesseract", "OCR timed out", err)
		}
		return Result{}, services.Wrap(services.ErrExternalTool, "process", "tesseract", "OCR engine failed", err)
	}
	result, err := ParseTSV(output)
	if err != nil {
		return Result{}, services.Wrap(services.ErrExternalTool, "process", "tesseract", "Unreadable TSV output", err)
	}
	return result, nil
}

// BuildArgs assembles the tesseract argument list for stdin-to-stdout TSV.
func BuildArgs(opts Options) []string {
	args := []string{"stdin", "stdout"}
	if lang := strings.TrimSpace(opts.Language); lang != "" {
		args = append(args, "-l", lang)
	}
	if opts.DPI != nil {
		args = append(args, "--dpi", strconv.Itoa(*opts.DPI))
	}
	if opts.PSM != nil {
		args = append(args, "--psm", strconv.Itoa(*opts.PSM))
	}
	if opts.OEM != nil {
		args = append(args, "--oem", strconv.Itoa(*opts.OEM))
	}
	return append(args, "tsv")
}

type lineKey struct {
	page, block, par, line int
}

// ParseTSV rebuilds text from tesseract TSV output. Words on the same
// page/block/paragraph/line are joined with spaces; lines are joined with
// newlines in the order tesseract reports them.
func ParseTSV(data []byte) (Result, error) {
	rows := strings.Split(strings.ReplaceAll(string(data), "\r\n", "\n"), "\n")
	if len(rows) == 0 || !strings.HasPrefix(strings.TrimSpace(rows[0]), "level") {
		return Result{}, errors.New("missing TSV header")
	}

	var (
		lines    []string
		current  []string
		haveKey  bool
		key      lineKey
		words    []Word
		confSum  float64
		confUsed int
	)
	flush := func() {
		if len(current) > 0 {
			lines = append(lines, strings.Join(current, " "))
		}
		current = current[:0]
	}

	for i, row := range rows[1:] {
		if strings.TrimSpace(row) == "" {
			continue
		}
		cols := strings.Split(row, "\t")
		if len(cols) < 11 {
			return Result{}, fmt.Errorf("row %d: expected at least 11 columns, got %d", i+2, len(cols))
		}
		if cols[0] != "5" {
			continue
		}
		text := ""
		if len(cols) > 11 {
			text = strings.TrimSpace(strings.Join(cols[11:], "\t"))
		}
		if text == "" {
			continue
		}
		ints := make([]int, 10)
		for j := 0; j < 10; j++ {
			v, err := strconv.Atoi(strings.TrimSpace(cols[j]))
			if err != nil {
				return Result{}, fmt.Errorf("row %d column %d: %w", i+2, j+1, err)
			}
			ints[j] = v
		}
		conf, err := strconv.ParseFloat(strings.TrimSpace(cols[10]), 64)
		if err != nil {
			return Result{}, fmt.Errorf("row %d confidence: %w", i+2, err)
		}

		k := lineKey{page: ints[1], block: ints[2], par: ints[3], line: ints[4]}
		if !haveKey || k != key {
			flush()
			key = k
			haveKey = true
		}
		current = append(current, text)
		words = append(words, Word{
			Text:       text,
			Left:       ints[6],
			Top:        ints[7],
			Width:      ints[8],
			Height:     ints[9],
			Confidence: conf,
		})
		if conf >= 0 {
			confSum += conf
			confUsed++
		}
	}
	flush()

	result := Result{Text: strings.Join(lines, "\n"), Words: words}
	if confUsed > 0 {
		result.Confidence = confSum / float64(confUsed) / 100
	}
	return result, nil
}

type commandExecutor struct{}

func (commandExecutor) Run(ctx context.Context, binary string, args []string, stdin []byte) ([]byte, error) {
	cmd := exec.CommandContext(ctx, binary, args...) //nolint:gosec
	cmd.Stdin = bytes.NewReader(stdin)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if detail := strings.TrimSpace(stderr.String()); detail != "" {
			return nil, fmt.Errorf("%w: %s", err, detail)
		}
		return nil, err
	}
	return stdout.Bytes(), nil
}
