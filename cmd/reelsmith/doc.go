// Package main hosts the reelsmith CLI entrypoint and command graph.
//
// The Cobra-based command tree covers catalog maintenance (add, list, show),
// production runs (run, checkpoint), environment checks (status), and
// configuration scaffolding (config). It centralizes configuration resolution
// and catalog access so subcommands can focus on user experience instead of
// wiring.
//
// Keep this package lean: add new functionality by extending the internal
// packages first, then surface it through dedicated commands or flags here.
package main
