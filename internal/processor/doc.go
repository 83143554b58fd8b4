// Package processor turns captured frames into text records.
//
// A Processor wraps one backend: the tesseract OCR engine or an
// OpenAI-compatible vision endpoint. Every call returns an Outcome rather than
// an error; a failed attempt is retried once and then reported as
// ErrFrameProcess so the pipeline can skip the frame.
package processor
