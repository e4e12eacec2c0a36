// Package main hosts the mpvctl CLI entrypoint and command graph.
//
// The Cobra-based command tree translates terminal invocations into JSON IPC
// commands against a running mpv, event waits and streams, managed player
// launches, transcript inspection and configuration scaffolding. It
// centralizes configuration resolution, socket discovery and logging setup
// so subcommands can focus on user experience instead of wiring.
//
// Keep this package lean: add new functionality by extending the internal
// packages first, then surface it through dedicated commands or flags here.
package main
