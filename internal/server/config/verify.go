package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/multierr"
)

// Verify validates the configuration and reports every problem found.
func Verify(cfg *ServerConfig) error {
	return multierr.Combine(
		verifyServer(&cfg.Server),
		verifyStorage(&cfg.Storage, &cfg.Security),
		verifyLog(&cfg.Log),
	)
}

func verifyServer(cfg *ServerSection) error {
	var err error
	if _, _, e := net.SplitHostPort(cfg.Addr); e != nil {
		err = multierr.Append(err, fmt.Errorf("server.addr %q: %w", cfg.Addr, e))
	}
	if cfg.Admin.Addr != "" {
		if _, _, e := net.SplitHostPort(cfg.Admin.Addr); e != nil {
			err = multierr.Append(err, fmt.Errorf("server.admin.addr %q: %w", cfg.Admin.Addr, e))
		}
	}
	if cfg.ReadTimeout < 0 || cfg.WriteTimeout < 0 || cfg.IdleTimeout < 0 {
		err = multierr.Append(err, errors.New("server timeouts must not be negative"))
	}
	if cfg.MaxLineLength < 16 {
		err = multierr.Append(err, errors.New("server.max_line_length must be at least 16"))
	}
	if cfg.RateLimit < 0 {
		err = multierr.Append(err, errors.New("server.rate_limit must not be negative"))
	}
	if cfg.GracePeriod < 0 {
		err = multierr.Append(err, errors.New("server.grace_period must not be negative"))
	}
	return err
}

func verifyStorage(cfg *StorageSection, sec *SecuritySection) error {
	if cfg.Path == "" {
		return errors.New("storage.path is required")
	}

	var err error
	if st, e := os.Stat(filepath.Dir(cfg.Path)); e != nil || !st.IsDir() {
		err = multierr.Append(err, fmt.Errorf("storage.path: directory of %q does not exist", cfg.Path))
	}

	switch strings.ToLower(cfg.Format) {
	case "binary", "":
	case "text", "bolt":
		if sec.EncryptionKey != "" {
			err = multierr.Append(err, fmt.Errorf("security.encryption_key requires storage.format binary, got %q", cfg.Format))
		}
	default:
		err = multierr.Append(err, fmt.Errorf("storage.format %q is not one of binary, text, bolt", cfg.Format))
	}
	return err
}

func verifyLog(cfg *LogSection) error {
	var err error
	switch strings.ToLower(cfg.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		err = multierr.Append(err, fmt.Errorf("log.level %q is not one of debug, info, warn, error", cfg.Level))
	}
	switch strings.ToLower(cfg.Format) {
	case "json", "text", "console":
	default:
		err = multierr.Append(err, fmt.Errorf("log.format %q is not one of json, text", cfg.Format))
	}
	switch strings.ToLower(cfg.Backend) {
	case "", "slog", "zap":
	default:
		err = multierr.Append(err, fmt.Errorf("log.backend %q is not one of slog, zap", cfg.Backend))
	}
	return err
}
