// Package pipeline coordinates a capture run: it drives the frame source,
// fans each frame out to the enabled writer sinks and the processing
// dispatcher, applies backpressure, and assembles the sorted result.
//
// A run moves through Idle, Validating, Running and Draining before ending
// in Completed or FailedFatal. Only validation, sink setup and fatal capture
// errors end a run early; per-frame failures are skipped and counted in
// Stats.
package pipeline
