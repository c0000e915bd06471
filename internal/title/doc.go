// Package title models the unit of work: a story brief describing what one
// run should produce.
//
// Briefs are small YAML documents authored by hand or by an upstream idea
// generator. Loading normalizes and validates the document so a malformed
// brief is rejected before any pipeline work starts.
package title
