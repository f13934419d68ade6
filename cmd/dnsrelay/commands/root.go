// Package commands implements the CLI commands for the relay.
package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"dnsrelay/internal/config"
	"dnsrelay/internal/logger"
	"dnsrelay/internal/service"
)

var (
	// Version information injected at build time.
	Version   = "dev"
	BuildTime = "unknown"

	// Global flags.
	cfgFile  string
	logLevel int
)

// rootCmd runs the relay in the foreground when called without a
// subcommand.
var rootCmd = &cobra.Command{
	Use:   "dnsrelay",
	Short: "DNS privacy relay",
	Long: `dnsrelay forwards DNS queries to an upstream resolver over a private
transport (DNS-over-TLS by default). It runs in the foreground for
development and as a managed service under the Windows service control
manager in production.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		// The service manager normally launches the binary with the
		// registered run-as-service argument, but handle a bare launch too.
		asService := service.IsService()

		cfg, cleanup, err := setup(asService)
		if err != nil {
			return err
		}
		defer cleanup()

		if asService {
			return service.RunAsService(cfg)
		}
		return service.RunInteractive(cfg, logLevel)
	},
}

// Execute runs the root command. Called by main.main().
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "conf/dnsrelay.json", "path to the configuration file")
	rootCmd.Flags().IntVar(&logLevel, "log-level", -1, "engine verbosity 0-7 (default: leave configured verbosity)")

	rootCmd.AddCommand(installCmd)
	rootCmd.AddCommand(removeCmd)
	rootCmd.AddCommand(startCmd)
	rootCmd.AddCommand(stopCmd)
	rootCmd.AddCommand(runServiceCmd)
	rootCmd.AddCommand(versionCmd)
}

// startupErrorLogDir is where startup errors land before the logger is up.
const startupErrorLogDir = "logs"

// setup loads configuration, initializes logging, and starts the logging
// hot-reload watcher. The returned cleanup stops the watcher.
func setup(serviceMode bool) (*config.Config, func(), error) {
	if serviceMode {
		logger.SetServiceMode(true)
	}

	cfg, err := config.Load(cfgFile)
	if err != nil {
		service.ReportStartupError(err)
		service.WriteStartupErrorFile(startupErrorLogDir, err)
		return nil, nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	if err := logger.Init(cfg.Logging); err != nil {
		service.ReportStartupError(err)
		service.WriteStartupErrorFile(startupErrorLogDir, err)
		return nil, nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	log := logger.WithComponent("main")
	log.Info().
		Str("version", Version).
		Str("config", cfgFile).
		Msg("Starting DNSRelay")

	cleanup := func() {}
	watcher, err := config.NewLoggingWatcher(cfgFile, func(lc logger.Config) {
		if err := logger.Init(lc); err != nil {
			reloadLog := logger.WithComponent("main")
			reloadLog.Error().Err(err).Msg("Failed to apply logging configuration")
			return
		}
		reloadLog := logger.WithComponent("main")
		reloadLog.Info().Msg("Logging configuration updated")
	})
	if err != nil {
		log.Warn().Err(err).Msg("Failed to create logging watcher, hot reload disabled")
	} else if err := watcher.Start(); err != nil {
		log.Warn().Err(err).Msg("Failed to start logging watcher")
		if stopErr := watcher.Stop(); stopErr != nil {
			log.Error().Err(stopErr).Msg("Error closing logging watcher")
		}
	} else {
		cleanup = func() {
			if err := watcher.Stop(); err != nil {
				log.Error().Err(err).Msg("Error stopping logging watcher")
			}
		}
	}

	return cfg, cleanup, nil
}
