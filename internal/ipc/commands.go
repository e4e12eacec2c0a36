package ipc

import (
	"context"
	"time"
)

// NewCommand builds {"command": [name, args...]}.
func NewCommand(name string, args ...any) Command {
	list := make([]any, 0, len(args)+1)
	list = append(list, name)
	list = append(list, args...)
	return Command{"command": list}
}

func GetProperty(name string) Command { return NewCommand("get_property", name) }

func SetProperty(name string, value any) Command { return NewCommand("set_property", name, value) }

// EnableEvent asks mpv to deliver the named event. "all" enables every
// event.
func EnableEvent(name string) Command { return NewCommand("enable_event", name) }

func DisableEvent(name string) Command { return NewCommand("disable_event", name) }

func LoadScript(path string) Command { return NewCommand("load-script", path) }

// LoadFile loads path with the given mode ("replace", "append", ...). An
// empty mode means replace.
func LoadFile(path, mode string) Command {
	if mode == "" {
		mode = "replace"
	}
	return NewCommand("loadfile", path, mode)
}

func Keypress(key string) Command { return NewCommand("keypress", key) }

// BroadcastScriptMessage sends a script message to every script.
func BroadcastScriptMessage(args ...string) Command {
	return NewCommand("script-message", stringArgs(args)...)
}

// ScriptMessageTo sends a script message to a single named script.
func ScriptMessageTo(target string, args ...string) Command {
	list := make([]any, 0, len(args)+1)
	list = append(list, target)
	list = append(list, stringArgs(args)...)
	return NewCommand("script-message-to", list...)
}

func Quit() Command { return NewCommand("quit") }

func stringArgs(args []string) []any {
	out := make([]any, len(args))
	for i, a := range args {
		out[i] = a
	}
	return out
}

// GetProperty reads a property and decodes its value into v.
func (s *Session) GetProperty(ctx context.Context, name string, v any, timeout time.Duration) error {
	reply, err := s.SendCommandOK(ctx, GetProperty(name), timeout)
	if err != nil {
		return err
	}
	return reply.Decode(v)
}

// SetProperty writes a property.
func (s *Session) SetProperty(ctx context.Context, name string, value any, timeout time.Duration) error {
	_, err := s.SendCommandOK(ctx, SetProperty(name, value), timeout)
	return err
}
