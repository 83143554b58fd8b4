package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"k21/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	cfg *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// Sinks and the store are disabled unless an option enables them.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Capture.OutputDirVideo = filepath.Join(base, "video")
	cfgVal.Capture.OutputDirScreenshot = filepath.Join(base, "screenshots")
	cfgVal.Logging.Dir = filepath.Join(base, "logs")
	cfgVal.Store.Path = filepath.Join(base, "records.db")
	cfgVal.Vision.APIKey = "test"

	builder := &configBuilder{cfg: &cfgVal}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithVideo enables chunked video output.
func WithVideo() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Capture.SaveVideo = true
	}
}

// WithScreenshots enables screenshot output.
func WithScreenshots() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Capture.SaveScreenshot = true
	}
}

// WithProcessor selects the processor type.
func WithProcessor(kind string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Processor.Type = kind
	}
}

// StubBinaries writes script under dir for every name and prepends dir to PATH
// for the rest of the test.
func StubBinaries(t testing.TB, dir, script string, names ...string) {
	t.Helper()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir bin dir: %v", err)
	}
	for _, name := range names {
		target := filepath.Join(dir, name)
		if err := os.WriteFile(target, []byte(script), 0o755); err != nil {
			t.Fatalf("write stub %s: %v", name, err)
		}
	}
	t.Setenv("PATH", dir+string(os.PathListSeparator)+os.Getenv("PATH"))
}
