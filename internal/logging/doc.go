// Package logging centralizes slog handler construction and the structured
// logging conventions used across the pipeline.
//
// A Handle is created once per run and closed when the run finishes so file
// sinks are flushed deterministically; nothing in this package holds global
// state. Console output uses a compact human-oriented handler (colorized when
// stdout is a terminal), while the json format suits log shippers. The package
// also provides typed attribute helpers, context-derived fields (run id, title
// id, stage), and a Metrics recorder for named timers and numeric metrics.
package logging
