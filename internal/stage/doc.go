// Package stage defines the typed stage contract, the shared execution
// harness, and the registry of known stage types.
//
// A stage is a unit of work from one input type to one output type. The Run
// harness wraps every stage identically: input validation fails fast before
// any side effect, a 0% progress event precedes the core, and a 100% event is
// emitted only on success. The registry catalogs stage metadata (name,
// description, category, declared dependencies) under unique identifiers;
// dependency declarations are informational and execution order comes solely
// from the per-run step configuration.
package stage
