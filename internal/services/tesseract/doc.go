// Package tesseract drives the tesseract CLI as an OCR engine.
//
// Images are streamed on stdin and the TSV report is read from stdout, so no
// temp files are involved. The TSV word rows are regrouped into lines to
// rebuild the page text, and the per-word confidences and boxes are kept for
// callers that want layout information.
package tesseract
