// Package preflight provides readiness checks for the external services,
// binaries, and filesystem paths a production run depends on.
//
// These checks run in two contexts:
//   - The pipeline runner calls RunAll before processing a batch. If any
//     check fails, the run halts instead of burning API credits on a doomed
//     pipeline.
//   - The CLI "reelsmith config show" and "reelsmith run" paths use
//     individual check functions to display service health.
//
// Each check is gated by its config section -- unconfigured integrations are
// skipped.
package preflight
