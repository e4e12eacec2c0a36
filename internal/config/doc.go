// Package config loads, normalizes, and validates mpvctl configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours the MPVCTL_SOCKET environment
// override. The Config type centralizes every knob the CLI and the player
// launcher need, so socket location, timeouts and transcript storage are
// discovered in one pass.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
