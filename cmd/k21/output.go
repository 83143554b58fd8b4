package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"k21/internal/pipeline"
	"k21/internal/records"
)

const maxTableText = 72

// writeJSON encodes v as indented JSON to the command's stdout.
func writeJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// wantJSON reports whether machine output was requested or stdout is not a
// terminal.
func (c *commandContext) wantJSON(cmd *cobra.Command) bool {
	if c.flags.json {
		return true
	}
	return !isTerminal(cmd.OutOrStdout())
}

func isTerminal(w io.Writer) bool {
	file, ok := w.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

func (c *commandContext) writeRecords(cmd *cobra.Command, recs []records.TextRecord) error {
	if recs == nil {
		recs = []records.TextRecord{}
	}
	if c.wantJSON(cmd) {
		return writeJSON(cmd, recs)
	}
	if len(recs) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No text records")
		return nil
	}
	fmt.Fprintln(cmd.OutOrStdout(), renderTable(
		[]string{"Frame", "Timestamp", "Type", "Confidence", "Text"},
		recordRows(recs),
		[]columnAlignment{alignRight, alignLeft, alignLeft, alignRight, alignLeft},
	))
	return nil
}

func recordRows(recs []records.TextRecord) [][]string {
	rows := make([][]string, 0, len(recs))
	for _, rec := range recs {
		confidence := "-"
		if rec.Confidence > 0 {
			confidence = strconv.FormatFloat(rec.Confidence, 'f', 1, 64)
		}
		rows = append(rows, []string{
			strconv.FormatUint(rec.FrameNumber, 10),
			rec.Timestamp,
			rec.ProcessingType,
			confidence,
			summarizeText(rec.Text, maxTableText),
		})
	}
	return rows
}

// summarizeText flattens whitespace and truncates to limit runes.
func summarizeText(s string, limit int) string {
	flat := strings.Join(strings.Fields(s), " ")
	runes := []rune(flat)
	if limit <= 0 || len(runes) <= limit {
		return flat
	}
	return string(runes[:limit-1]) + "…"
}

// writeRunSummary prints run statistics and notices to stderr.
func writeRunSummary(cmd *cobra.Command, result pipeline.Result) {
	out := cmd.ErrOrStderr()
	s := result.Stats
	rows := [][]string{
		{"State", result.State.String()},
		{"Frames captured", strconv.FormatUint(s.FramesCaptured, 10)},
		{"Frames processed", strconv.FormatUint(s.FramesProcessed, 10)},
		{"Frames failed", strconv.FormatUint(s.FramesFailed, 10)},
		{"Frames dropped", strconv.FormatUint(s.FramesDropped, 10)},
		{"Capture retries", strconv.FormatUint(s.CaptureRetries, 10)},
		{"Screenshots", strconv.FormatUint(s.ScreenshotsWritten, 10)},
		{"Video chunks", strconv.FormatUint(s.ChunksWritten, 10)},
	}
	if s.ScreenshotFailures > 0 || s.VideoFrameFailures > 0 || s.SinkQueueDrops > 0 {
		rows = append(rows,
			[]string{"Screenshot failures", strconv.FormatUint(s.ScreenshotFailures, 10)},
			[]string{"Video frame failures", strconv.FormatUint(s.VideoFrameFailures, 10)},
			[]string{"Sink queue drops", strconv.FormatUint(s.SinkQueueDrops, 10)},
		)
	}
	if !result.FinishedAt.IsZero() && !result.StartedAt.IsZero() {
		rows = append(rows, []string{"Elapsed", result.FinishedAt.Sub(result.StartedAt).Round(10 * time.Millisecond).String()})
	}
	if result.RunID != "" {
		fmt.Fprintf(out, "Run %s\n", result.RunID)
	}
	fmt.Fprintln(out, renderTable([]string{"Metric", "Value"}, rows, []columnAlignment{alignLeft, alignRight}))
	for _, chunk := range result.Chunks {
		fmt.Fprintf(out, "Chunk %s (%d frames)\n", chunk.Path, chunk.Frames)
	}
	for _, notice := range result.Notices {
		fmt.Fprintf(out, "Notice: %s\n", notice)
	}
}
