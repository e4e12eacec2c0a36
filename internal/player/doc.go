// Package player launches and owns an mpv process for mpvctl.
//
// A Player picks a unique IPC socket under paths.runtime_dir, guards it
// with a lock file so two launchers never share a socket, starts mpv with
// a headless argument set and attaches an ipc.Session once the socket
// accepts connections. Attach also performs the configured setup: enabling
// events, loading scripts and waiting for a ready event.
//
// DialOptions translates the [ipc] config section into ipc options and is
// shared with the CLI commands that talk to an already running mpv.
package player
