// Package deps reports on the external binaries k21 drives (ffmpeg, ffprobe,
// tesseract) so the CLI status command and the orchestrator can tell a user
// what is missing before a capture starts.
package deps
