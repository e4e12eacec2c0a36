// Package logging assembles structured slog loggers and formatting helpers
// used across mpvctl.
//
// It owns the console and JSON handlers, routes console output to the
// terminal and JSON lines to the optional log file, and exposes helpers that
// tag records with component and session identifiers. A no-op logger is
// provided for tests and wiring code that cannot fail.
package logging
