// Package fileutil holds the small filesystem primitives shared by the
// output sinks: atomic temp-file-and-rename writes and per-directory run
// locks backed by flock.
package fileutil
