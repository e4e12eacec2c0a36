// Package ipc speaks mpv's line-delimited JSON IPC protocol over a local
// stream socket.
//
// A Conn is an open stream; Start turns it into a Session that owns a single
// background reader. The reader reassembles newline-delimited frames,
// classifies each object as an Event or a Reply, and wakes whichever callers
// are blocked in SendCommand or WaitForEvent. Every event is kept in the
// session's event log and every reply nobody was waiting for is kept in the
// unmatched-reply log, so callers can inspect what the player pushed after
// the fact.
//
// A dropped socket ends the session: the reader exits, SendCommand fails
// with ErrNotRunning, and callers still waiting run into their own timeouts.
// There is no reconnection.
package ipc
