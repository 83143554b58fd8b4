package records

import (
	"sort"
	"strings"
	"time"

	"golang.org/x/text/unicode/norm"
)

// Processing types stamped on records.
const (
	TypeOCR    = "OCR"
	TypeVision = "Vision"
)

// TimestampLayout is the layout of TextRecord.Timestamp.
const TimestampLayout = time.RFC3339Nano

// BoundingBox locates one recognized word in frame pixel coordinates.
type BoundingBox struct {
	Text       string  `json:"text"`
	Left       int     `json:"left"`
	Top        int     `json:"top"`
	Width      int     `json:"width"`
	Height     int     `json:"height"`
	Confidence float64 `json:"confidence"`
}

// TextRecord is the text extracted from one frame.
type TextRecord struct {
	Text           string        `json:"text"`
	Timestamp      string        `json:"timestamp"`
	FrameNumber    uint64        `json:"frame_number"`
	ProcessingType string        `json:"processing_type"`
	Confidence     float64       `json:"confidence,omitempty"`
	BoundingBoxes  []BoundingBox `json:"bounding_boxes,omitempty"`
}

// New builds a record with normalized text and a UTC timestamp.
func New(text string, captured time.Time, frame uint64, processingType string) TextRecord {
	return TextRecord{
		Text:           NormalizeText(text),
		Timestamp:      FormatTimestamp(captured),
		FrameNumber:    frame,
		ProcessingType: processingType,
	}
}

// NormalizeText applies Unicode NFC and trims surrounding whitespace.
func NormalizeText(text string) string {
	return strings.TrimSpace(norm.NFC.String(text))
}

// FormatTimestamp renders t in the record timestamp layout.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

// Time parses the record timestamp.
func (r TextRecord) Time() (time.Time, error) {
	return time.Parse(TimestampLayout, r.Timestamp)
}

// Sort orders records by frame number, ascending. Equal frame numbers keep
// their relative order.
func Sort(recs []TextRecord) {
	sort.SliceStable(recs, func(i, j int) bool {
		return recs[i].FrameNumber < recs[j].FrameNumber
	})
}
