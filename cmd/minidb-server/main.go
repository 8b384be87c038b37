package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"strconv"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/minidb-go/internal/infra/buildinfo"
	"github.com/yndnr/minidb-go/internal/infra/confloader"
	"github.com/yndnr/minidb-go/internal/server/config"
	"github.com/yndnr/minidb-go/internal/server/lifecycle"
	"github.com/yndnr/minidb-go/internal/telemetry/logger"
	"github.com/yndnr/minidb-go/internal/telemetry/metric"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:      "minidb-server",
		Usage:     "line-protocol key-value server",
		ArgsUsage: "[PORT [PATH]]",
		Version:   buildinfo.String(),
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "YAML configuration file",
				EnvVars: []string{"MINIDB_CONFIG"},
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "debug, info, warn or error",
			},
			&cli.StringFlag{
				Name:  "log-format",
				Usage: "json or text",
			},
		},
		Action: run,
	}
}

func run(c *cli.Context) error {
	overrides, err := buildOverrides(c.String("log-level"), c.String("log-format"), c.Args().Slice())
	if err != nil {
		return err
	}
	configFile := c.String("config")

	cfg, err := loadConfig(configFile, overrides)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log, err := initLogger(cfg)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	log.Info("starting minidb-server",
		"version", buildinfo.Get().Version,
		"config", configFile,
		"settings", config.Sanitize(cfg))

	metrics := metric.NewRegistry()
	lcfg, err := lifecycle.FromServerConfig(cfg, log, metrics)
	if err != nil {
		return err
	}
	ctrl, err := lifecycle.New(lcfg)
	if err != nil {
		return err
	}

	if configFile != "" {
		stop, err := watchConfig(configFile, overrides, log)
		if err != nil {
			log.Warn("config watch disabled", "error", err)
		} else {
			defer stop()
		}
	}

	ctx := c.Context
	if ctx == nil {
		ctx = context.Background()
	}
	if err := ctrl.Run(ctx); err != nil {
		return err
	}
	log.Info("server stopped")
	return nil
}

// buildOverrides maps flags and the positional PORT and PATH onto config
// keys. They take precedence over the file and the environment.
func buildOverrides(level, format string, args []string) (map[string]any, error) {
	if len(args) > 2 {
		return nil, fmt.Errorf("usage: minidb-server [flags] [PORT [PATH]]")
	}

	o := map[string]any{}
	if level != "" {
		o["log.level"] = level
	}
	if format != "" {
		o["log.format"] = format
	}
	if len(args) > 0 {
		port, err := strconv.ParseUint(args[0], 10, 16)
		if err != nil {
			return nil, fmt.Errorf("invalid port %q", args[0])
		}
		o["server.addr"] = net.JoinHostPort("", strconv.FormatUint(port, 10))
	}
	if len(args) > 1 {
		o["storage.path"] = args[1]
	}
	return o, nil
}

// loadConfig layers defaults, environment, file and overrides, then
// verifies the result.
func loadConfig(configFile string, overrides map[string]any) (*config.ServerConfig, error) {
	cfg := config.Default()

	opts := []confloader.Option{confloader.WithOverrides(overrides)}
	if configFile != "" {
		opts = append(opts, confloader.WithConfigFile(configFile))
	}
	if err := confloader.NewLoader(opts...).Load(cfg); err != nil {
		return nil, err
	}

	if err := config.Verify(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func initLogger(cfg *config.ServerConfig) (logger.Logger, error) {
	log, err := logger.New(logger.Config{
		Level:   cfg.Log.Level,
		Format:  cfg.Log.Format,
		Backend: cfg.Log.Backend,
		Output:  os.Stderr,
	})
	if err != nil {
		return nil, err
	}
	logger.SetDefault(log)
	return log, nil
}

// watchConfig reloads the file on change and applies the log level.
// Other settings need a restart.
func watchConfig(configFile string, overrides map[string]any, log logger.Logger) (func(), error) {
	w, err := confloader.NewWatcher(confloader.WithWatcherLogger(log))
	if err != nil {
		return nil, err
	}
	if err := w.Watch(configFile); err != nil {
		_ = w.Stop()
		return nil, err
	}

	w.OnChange(func(path string) {
		cfg, err := loadConfig(configFile, overrides)
		if err != nil {
			log.Warn("config reload rejected", "path", path, "error", err)
			return
		}
		if old := logger.GetLevel(); old != cfg.Log.Level {
			logger.SetLevel(cfg.Log.Level)
			log.Info("log level changed", "from", old, "to", cfg.Log.Level)
		}
	})
	w.StartAsync()

	return func() { _ = w.Stop() }, nil
}
