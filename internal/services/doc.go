// Package services defines shared utilities consumed by the pipeline stages
// and the external engine integrations.
//
// Key responsibilities:
//   - Context helpers that stamp run IDs, stage names, and frame indices for
//     logging.
//   - Structured error markers plus the Wrap helper that classify failures as
//     fatal to a run (configuration, sink setup, capture) or as per-frame skips.
//
// Use these helpers when wiring new sinks or engines so error handling and
// observability stay uniform across the pipeline.
package services
