// Package config loads, normalizes, and validates k21 configuration.
//
// It supplies capture and pipeline defaults, expands user paths (including
// tilde shortcuts), reads TOML files, and honours environment fallbacks for
// the vision API key (K21_VISION_API_KEY, then OPENAI_API_KEY). CLI flags are
// layered on top of the loaded Config by cmd/k21; the pipeline itself never
// reads this package.
package config
