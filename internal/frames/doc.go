// Package frames produces the screen frames that feed a k21 run.
//
// A Source samples a Grabber at a fixed rate and hands each capture out as a
// Frame: an immutable, reference-counted pixel snapshot that several sinks
// may read concurrently. Every holder calls Release exactly once; the last
// release drops the pixel buffer.
package frames
