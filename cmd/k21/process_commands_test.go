package main

import (
	"encoding/json"
	"errors"
	"image/color"
	"path/filepath"
	"testing"

	"k21/internal/records"
	"k21/internal/services"
	"k21/internal/testsupport"
)

const stubTesseract = `#!/bin/sh
cat >/dev/null
printf 'level\tpage_num\tblock_num\tpar_num\tline_num\tword_num\tleft\ttop\twidth\theight\tconf\ttext\n'
printf '1\t1\t0\t0\t0\t0\t0\t0\t64\t32\t-1\t\n'
printf '5\t1\t1\t1\t1\t1\t2\t4\t20\t10\t90\tHello\n'
printf '5\t1\t1\t1\t1\t2\t30\t4\t20\t10\t80\tworld\n'
`

func TestImageCommandWithStubTesseract(t *testing.T) {
	env := setupCLIEnv(t, "")
	testsupport.StubBinaries(t, env.binDir, stubTesseract, "tesseract")
	img := filepath.Join(env.baseDir, "shot.png")
	testsupport.WritePNG(t, img, 64, 32, color.RGBA{R: 255, G: 255, B: 255, A: 255})

	out, _, err := runCLI(t, env, "image", img)
	if err != nil {
		t.Fatalf("image: %v", err)
	}
	var recs []records.TextRecord
	if err := json.Unmarshal([]byte(out), &recs); err != nil {
		t.Fatalf("decode output %q: %v", out, err)
	}
	if len(recs) != 1 {
		t.Fatalf("records = %d, want 1", len(recs))
	}
	rec := recs[0]
	if rec.Text != "Hello world" || rec.FrameNumber != 0 || rec.ProcessingType != records.TypeOCR {
		t.Fatalf("unexpected record %+v", rec)
	}
	if len(rec.BoundingBoxes) != 2 || rec.BoundingBoxes[1].Left != 30 {
		t.Fatalf("bounding boxes = %+v", rec.BoundingBoxes)
	}
	if rec.Confidence < 0.84 || rec.Confidence > 0.86 {
		t.Fatalf("confidence = %v", rec.Confidence)
	}

	again, _, err := runCLI(t, env, "image", img)
	if err != nil {
		t.Fatalf("image again: %v", err)
	}
	var second []records.TextRecord
	if err := json.Unmarshal([]byte(again), &second); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if second[0].Text != rec.Text {
		t.Fatalf("text changed between runs: %q vs %q", second[0].Text, rec.Text)
	}
}

func TestImageCommandMissingFile(t *testing.T) {
	env := setupCLIEnv(t, "")
	_, _, err := runCLI(t, env, "image", filepath.Join(env.baseDir, "nope.png"))
	if !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestImageCommandFailingEngine(t *testing.T) {
	env := setupCLIEnv(t, "")
	testsupport.StubBinaries(t, env.binDir, "#!/bin/sh\ncat >/dev/null\necho boom >&2\nexit 3\n", "tesseract")
	img := filepath.Join(env.baseDir, "shot.png")
	testsupport.WritePNG(t, img, 8, 8, color.RGBA{A: 255})

	_, _, err := runCLI(t, env, "image", img)
	if !errors.Is(err, services.ErrFrameProcess) {
		t.Fatalf("expected frame process error, got %v", err)
	}
}

func TestVideoCommandMissingFile(t *testing.T) {
	env := setupCLIEnv(t, "")
	_, _, err := runCLI(t, env, "video", filepath.Join(env.baseDir, "missing.mp4"), "--fps", "2")
	if !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}
