// Package preflight provides readiness checks for the output directories,
// external binaries and vision endpoint that k21 depends on.
//
// These checks run in two contexts:
//   - The pipeline orchestrator calls EnsureWritableDir for every enabled
//     output directory before the first frame is captured.
//   - The CLI "k21 status" command uses RunAll and CheckSystemDeps to
//     display readiness.
//
// Each check is gated by its config toggle; disabled features are skipped.
package preflight
