package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"mpvctl/internal/ipc"
)

var titleCaser = cases.Title(language.English)

// parseArg turns a command-line argument into a JSON value: anything that
// parses as JSON (numbers, booleans, null, arrays, objects, quoted strings)
// is sent as such, everything else as a plain string.
func parseArg(raw string) any {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return raw
	}
	dec := json.NewDecoder(strings.NewReader(trimmed))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil || dec.More() {
		return raw
	}
	return v
}

func parseArgs(raw []string) []any {
	out := make([]any, len(raw))
	for i, arg := range raw {
		out[i] = parseArg(arg)
	}
	return out
}

// eventKind labels an event for humans: "Client Message" or "Event".
func eventKind(ev ipc.Event) string {
	switch ev.(type) {
	case ipc.ScriptMessage:
		return titleCaser.String(strings.ReplaceAll(ipc.EventClientMessage, "-", " "))
	default:
		return titleCaser.String("event")
	}
}

// eventView is the JSON shape of an event in CLI output.
type eventView struct {
	Kind string   `json:"kind"`
	Name string   `json:"name"`
	Args []string `json:"args,omitempty"`
}

func viewEvent(ev ipc.Event) eventView {
	switch e := ev.(type) {
	case ipc.ScriptMessage:
		return eventView{Kind: "script-message", Name: e.Name(), Args: e.Args}
	default:
		return eventView{Kind: "event", Name: ev.Name()}
	}
}

func formatEvent(ev ipc.Event) string {
	view := viewEvent(ev)
	line := fmt.Sprintf("%s: %s", eventKind(ev), view.Name)
	if len(view.Args) > 1 {
		line += " " + strings.Join(view.Args[1:], " ")
	}
	return line
}

// formatData renders reply data compactly; an absent payload prints as
// nothing.
func formatData(data json.RawMessage) string {
	if len(data) == 0 {
		return ""
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, data); err != nil {
		return string(data)
	}
	return buf.String()
}

func formatTimestamp(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format("2006-01-02 15:04:05")
}

func truncateText(value string, max int) string {
	if max <= 3 || len(value) <= max {
		return value
	}
	return value[:max-3] + "..."
}
