package records

import (
	"encoding/json"
	"strings"
	"testing"
	"time"
)

func TestNewNormalizesText(t *testing.T) {
	// "e" followed by a combining acute accent composes to U+00E9 under NFC.
	rec := New("  cafe\u0301 menu \n", time.Date(2026, 3, 1, 12, 0, 0, 0, time.FixedZone("X", 3600)), 7, TypeOCR)
	if rec.Text != "caf\u00e9 menu" {
		t.Fatalf("text = %q", rec.Text)
	}
	if rec.Timestamp != "2026-03-01T11:00:00Z" {
		t.Fatalf("timestamp = %q", rec.Timestamp)
	}
	parsed, err := rec.Time()
	if err != nil || !parsed.Equal(time.Date(2026, 3, 1, 11, 0, 0, 0, time.UTC)) {
		t.Fatalf("Time() = %v, %v", parsed, err)
	}
}

func TestSortByFrameNumber(t *testing.T) {
	recs := []TextRecord{{FrameNumber: 4}, {FrameNumber: 0}, {FrameNumber: 2, Text: "a"}, {FrameNumber: 1}, {FrameNumber: 2, Text: "b"}}
	Sort(recs)
	var got []uint64
	for _, r := range recs {
		got = append(got, r.FrameNumber)
	}
	want := []uint64{0, 1, 2, 2, 4}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("order = %v, want %v", got, want)
		}
	}
	if recs[2].Text != "a" || recs[3].Text != "b" {
		t.Fatal("sort should be stable for equal frame numbers")
	}
}

func TestJSONOmitsOptionalFields(t *testing.T) {
	data, err := json.Marshal(TextRecord{Text: "x", Timestamp: "t", FrameNumber: 1, ProcessingType: TypeVision})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	out := string(data)
	if strings.Contains(out, "confidence") || strings.Contains(out, "bounding_boxes") {
		t.Fatalf("optional fields should be omitted: %s", out)
	}
	for _, key := range []string{`"text"`, `"timestamp"`, `"frame_number"`, `"processing_type"`} {
		if !strings.Contains(out, key) {
			t.Fatalf("missing %s in %s", key, out)
		}
	}
}
