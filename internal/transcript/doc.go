// Package transcript persists IPC session traffic in SQLite.
//
// A Store implements ipc.Recorder: every command sent and every event or
// reply received is written as a message row under its session id, so a
// session can be replayed with `mpvctl transcript` after the player exits.
// Writes retry on SQLITE_BUSY so several mpvctl processes can share one
// database file.
package transcript
