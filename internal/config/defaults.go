package config

const (
	defaultWorkDir           = "."
	defaultUmask             = 0o022
	defaultPidFile           = "warden.pid"
	defaultStdout            = "/dev/null"
	defaultStderr            = "/dev/null"
	defaultShutdownGrace     = 5
	defaultHeartbeatInterval = 10
	defaultJournalPath       = "~/.local/share/warden/journal.db"
	defaultJournalRetention  = 30
	defaultLogDir            = "~/.local/share/warden/logs"
	defaultLogFormat         = "console"
	defaultLogLevel          = "info"
	defaultLogRetentionDays  = 30
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Daemon: Daemon{
			WorkDir:       defaultWorkDir,
			Umask:         defaultUmask,
			PidFile:       defaultPidFile,
			Stdout:        defaultStdout,
			Stderr:        defaultStderr,
			ShutdownGrace: defaultShutdownGrace,
		},
		Workload: Workload{
			HeartbeatInterval: defaultHeartbeatInterval,
		},
		Journal: Journal{
			Path:          defaultJournalPath,
			RetentionDays: defaultJournalRetention,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			Dir:           defaultLogDir,
			RetentionDays: defaultLogRetentionDays,
		},
	}
}
