// Package preflight provides readiness checks for the mpv binary, the
// scripts it is asked to load and the directories mpvctl writes to.
//
// These checks run in two contexts:
//   - `mpvctl launch` calls LaunchChecks before spawning mpv so a missing
//     binary or script fails with a readable message instead of an exec
//     error or a ready-event timeout.
//   - `mpvctl check` runs RunAll, which also probes the configured socket,
//     and renders the results as a table.
//
// Checks are gated by config: the transcript directory is only checked when
// recording is enabled.
package preflight
