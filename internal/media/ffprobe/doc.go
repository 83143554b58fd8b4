// Package ffprobe wraps ffprobe JSON output for the two facts k21 needs about
// a video: how long it is and its frame geometry. Offline video processing
// uses the duration to place extracted stills on a wall-clock timeline.
package ffprobe
