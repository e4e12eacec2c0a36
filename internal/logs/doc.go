// Package logs locates and tails the output files of players started by
// `mpvctl launch`.
//
// Every launched mpv writes its stdout and stderr to mpv-<id>.log under the
// log directory, where id is the player's session id. The package lists
// those files, reads the last N lines with bounded memory and follows a
// file by polling until the caller's context ends.
package logs
