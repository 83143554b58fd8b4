// Package main hosts the k21 CLI entrypoint and command graph.
//
// The Cobra-based command tree turns terminal invocations into pipeline runs
// (capture, run), one-shot processing (image, video), dependency reporting
// and configuration scaffolding. It centralizes configuration resolution,
// flag overrides and logging setup so subcommands can focus on output.
//
// Keep this package lean: add new functionality by extending the internal
// packages first, then surface it through dedicated commands or flags here.
package main
