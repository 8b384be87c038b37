package config

import "time"

// Default configuration values.
const (
	DefaultAddr          = "127.0.0.1:1111"
	DefaultReadTimeout   = 30 * time.Second
	DefaultWriteTimeout  = 30 * time.Second
	DefaultIdleTimeout   = 5 * time.Minute
	DefaultMaxLineLength = 4096
	DefaultGracePeriod   = 5 * time.Second

	DefaultStoragePath   = ".save"
	DefaultStorageFormat = "binary"

	DefaultLogLevel   = "info"
	DefaultLogFormat  = "json"
	DefaultLogBackend = "slog"
)

// Default returns the default server configuration.
func Default() *ServerConfig {
	return &ServerConfig{
		Server: ServerSection{
			Addr:          DefaultAddr,
			ReadTimeout:   DefaultReadTimeout,
			WriteTimeout:  DefaultWriteTimeout,
			IdleTimeout:   DefaultIdleTimeout,
			MaxLineLength: DefaultMaxLineLength,
			GracePeriod:   DefaultGracePeriod,
		},
		Storage: StorageSection{
			Path:   DefaultStoragePath,
			Format: DefaultStorageFormat,
		},
		Log: LogSection{
			Level:   DefaultLogLevel,
			Format:  DefaultLogFormat,
			Backend: DefaultLogBackend,
		},
	}
}
