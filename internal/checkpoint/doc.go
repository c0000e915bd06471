// Package checkpoint persists the per-run completion ledger that makes an
// interrupted run resumable.
//
// A Ledger records which step identifiers have fully completed and an opaque
// payload per completed step (typically a reference to where the step's output
// landed). The Manager stores one ledger per unit of work as a JSON file in
// the title's workspace; saves go through a temp-file-and-rename so a crash
// mid-write never leaves a corrupt ledger visible to a later load. Loading a
// ledger that was never saved yields an empty one, and the file is deleted
// once a run finishes end to end.
package checkpoint
