// Package config loads, normalizes, and validates the reelsmith configuration.
//
// Configuration lives in a TOML document (default ~/.config/reelsmith/
// config.toml) with one section per concern: paths, generation parameters,
// processing policy, logging, per-step tuning, and the external service
// integrations. Environment references of the form ${NAME} or $NAME are
// resolved against the process environment before parsing caller-supplied
// documents. Loading layers the document over Default(), expands paths, and
// runs the validator; a config that fails validation never reaches the
// pipeline. Validation is a pure function producing the full list of errors
// and warnings rather than stopping at the first problem.
package config
