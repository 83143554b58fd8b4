package main

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"k21/internal/pipeline"
	"k21/internal/records"
	"k21/internal/video"
)

func TestSummarizeText(t *testing.T) {
	cases := []struct {
		in    string
		limit int
		want  string
	}{
		{"hello\n  world", 20, "hello world"},
		{"abcdefghij", 5, "abcd…"},
		{"äöüßéè", 6, "äöüßéè"},
		{"", 5, ""},
	}
	for _, tc := range cases {
		if got := summarizeText(tc.in, tc.limit); got != tc.want {
			t.Fatalf("summarizeText(%q, %d) = %q, want %q", tc.in, tc.limit, got, tc.want)
		}
	}
}

func TestRecordRows(t *testing.T) {
	ts := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	ocr := records.New("line one\nline two", ts, 7, "ocr")
	ocr.Confidence = 0.912
	vision := records.New("caption", ts, 8, "vision")

	rows := recordRows([]records.TextRecord{ocr, vision})
	if rows[0][0] != "7" || rows[0][3] != "0.9" || rows[0][4] != "line one line two" {
		t.Fatalf("ocr row = %v", rows[0])
	}
	if rows[1][2] != "vision" || rows[1][3] != "-" {
		t.Fatalf("vision row = %v", rows[1])
	}
}

func TestWriteRecordsJSONWhenNotTerminal(t *testing.T) {
	ctx := newCommandContext(&globalFlags{})
	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	if err := ctx.writeRecords(cmd, nil); err != nil {
		t.Fatalf("write: %v", err)
	}
	if strings.TrimSpace(out.String()) != "[]" {
		t.Fatalf("output = %q, want []", out.String())
	}
}

func TestWriteRunSummary(t *testing.T) {
	cmd := newRootCommand()
	var errOut bytes.Buffer
	cmd.SetErr(&errOut)
	start := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	writeRunSummary(cmd, pipeline.Result{
		RunID:      "abc",
		State:      pipeline.StateCompleted,
		Stats:      pipeline.StatsSnapshot{FramesCaptured: 5, FramesFailed: 1, SinkQueueDrops: 2},
		Notices:    []string{`video disabled: ffmpeg binary "ffmpeg" not found`},
		Chunks:     []video.Chunk{{Path: "/tmp/chunk_00000.mp4", Frames: 5}},
		StartedAt:  start,
		FinishedAt: start.Add(2500 * time.Millisecond),
	})
	out := errOut.String()
	for _, want := range []string{"Run abc", "completed", "Frames captured", "Sink queue drops", "2.5s", "chunk_00000.mp4 (5 frames)", "Notice: video disabled"} {
		requireContains(t, out, want)
	}
}
