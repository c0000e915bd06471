// Package catalog persists the titles reelsmith knows about and their
// production state.
//
// The catalog is a SQLite database in the log directory. Each row tracks one
// title (unit of work): where its brief lives, its lifecycle status, progress
// fields updated while a run is active, and the final artifact once a run
// completes. The per-run completion ledger itself lives with the title's
// workspace (see the checkpoint package); the catalog is the cross-run view
// the CLI lists and the runner updates.
package catalog
