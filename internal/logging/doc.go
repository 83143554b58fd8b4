// Package logging builds the slog loggers used by the capture pipeline and
// the k21 CLI.
//
// Two output shapes are supported: a compact console format meant for humans
// watching a capture session, and a JSON format with ts/level/msg keys for
// machine consumption. Context helpers tag log lines with the run ID, stage
// and frame index carried on a context by the services package, so frame
// level warnings can be traced back to the exact capture that produced them.
package logging
