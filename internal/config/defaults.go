package config

const (
	defaultConfigPath       = "~/.config/mpvctl/config.toml"
	defaultLogDir           = "~/.local/share/mpvctl/logs"
	defaultTranscriptPath   = "~/.local/share/mpvctl/transcript.db"
	defaultSocketPath       = "/tmp/mpvsocket"
	defaultNetwork          = "unix"
	defaultConnectTimeoutMS = 5000
	defaultCommandTimeoutMS = 5000
	defaultEventTimeoutMS   = 5000
	defaultPollIntervalMS   = 100
	defaultMaxLineBytes     = 1 << 20
	minMaxLineBytes         = 1024
	defaultPlayerBinary     = "mpv"
	defaultLogFormat        = "console"
	defaultLogLevel         = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			LogDir:     defaultLogDir,
			RuntimeDir: defaultRuntimeDir(),
		},
		IPC: IPC{
			SocketPath:       defaultSocketPath,
			Network:          defaultNetwork,
			ConnectTimeoutMS: defaultConnectTimeoutMS,
			CommandTimeoutMS: defaultCommandTimeoutMS,
			EventTimeoutMS:   defaultEventTimeoutMS,
			PollIntervalMS:   defaultPollIntervalMS,
			MaxLineBytes:     defaultMaxLineBytes,
		},
		Player: Player{
			Binary: defaultPlayerBinary,
		},
		Transcript: Transcript{
			Path: defaultTranscriptPath,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
