// Package config loads, normalizes, and validates the TOML configuration for
// the reelsmith pipeline.
//
// Loading order: defaults, then the TOML file (explicit --config path,
// ~/.config/reelsmith/config.toml, or ./reelsmith.toml), then environment
// variable fallbacks for secrets (API keys are usually provided via a .env
// file rather than committed to the TOML). Validation runs after
// normalization; a validation failure is the only condition that aborts a run
// before any window is processed.
package config
