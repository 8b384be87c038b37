package config

import "time"

// ServerConfig is the root configuration for minidb-server.
type ServerConfig struct {
	Server   ServerSection   `koanf:"server"`
	Storage  StorageSection  `koanf:"storage"`
	Security SecuritySection `koanf:"security"`
	Log      LogSection      `koanf:"log"`
}

// ServerSection configures the line-protocol listener.
type ServerSection struct {
	// Addr is the TCP listen address.
	Addr string `koanf:"addr"`

	// ReadTimeout bounds reading the rest of a line once it has started.
	ReadTimeout time.Duration `koanf:"read_timeout"`

	// WriteTimeout bounds writing one response.
	WriteTimeout time.Duration `koanf:"write_timeout"`

	// IdleTimeout closes connections idle between commands. 0 disables it.
	IdleTimeout time.Duration `koanf:"idle_timeout"`

	// MaxLineLength is the longest accepted request line in bytes.
	MaxLineLength int `koanf:"max_line_length"`

	// RateLimit caps commands per second per connection. 0 disables it.
	RateLimit float64 `koanf:"rate_limit"`

	// GracePeriod bounds how long shutdown waits for in-flight commands.
	GracePeriod time.Duration `koanf:"grace_period"`

	Admin AdminConfig `koanf:"admin"`
}

// AdminConfig configures the admin HTTP server.
type AdminConfig struct {
	// Addr enables the admin server when non-empty.
	Addr string `koanf:"addr"`
}

// StorageSection configures the persisted image.
type StorageSection struct {
	Path   string `koanf:"path"`
	Format string `koanf:"format"`
}

// SecuritySection configures image encryption.
type SecuritySection struct {
	// EncryptionKey is a passphrase; binary images are encrypted when set.
	EncryptionKey string `koanf:"encryption_key"`
}

// LogSection configures logging.
type LogSection struct {
	Level   string `koanf:"level"`
	Format  string `koanf:"format"`
	Backend string `koanf:"backend"`
}
