// Package video turns the frame stream into playable video chunks and turns
// existing video files back into stills.
//
// ChunkWriter rotates output files on elapsed capture time, streaming each
// chunk's frames straight into an Encoder. FFmpegEncoder pipes raw RGBA into
// an ffmpeg process. Extractor runs ffmpeg the other way round for offline
// processing of recorded videos.
package video
