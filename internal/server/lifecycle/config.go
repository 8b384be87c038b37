package lifecycle

import (
	"github.com/yndnr/minidb-go/internal/server/config"
	"github.com/yndnr/minidb-go/internal/server/lineserver"
	"github.com/yndnr/minidb-go/internal/storage/snapshot"
	"github.com/yndnr/minidb-go/internal/telemetry/logger"
	"github.com/yndnr/minidb-go/internal/telemetry/metric"
)

// FromServerConfig builds a Controller configuration, including the image
// manager, from a verified server configuration.
func FromServerConfig(cfg *config.ServerConfig, log logger.Logger, metrics *metric.Registry) (Config, error) {
	format, err := snapshot.ParseFormat(cfg.Storage.Format)
	if err != nil {
		return Config{}, err
	}

	var passphrase []byte
	if cfg.Security.EncryptionKey != "" {
		passphrase = []byte(cfg.Security.EncryptionKey)
	}

	mgr, err := snapshot.NewManager(snapshot.Config{
		Path:       cfg.Storage.Path,
		Format:     format,
		Passphrase: passphrase,
		Logger:     log,
		Metrics:    metrics,
	})
	if err != nil {
		return Config{}, err
	}

	return Config{
		Server: lineserver.Config{
			Addr:          cfg.Server.Addr,
			ReadTimeout:   cfg.Server.ReadTimeout,
			WriteTimeout:  cfg.Server.WriteTimeout,
			IdleTimeout:   cfg.Server.IdleTimeout,
			MaxLineLength: cfg.Server.MaxLineLength,
			RateLimit:     cfg.Server.RateLimit,
		},
		GracePeriod: cfg.Server.GracePeriod,
		AdminAddr:   cfg.Server.Admin.Addr,
		Persister:   mgr,
		Logger:      log,
		Metrics:     metrics,
	}, nil
}
