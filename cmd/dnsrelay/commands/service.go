package commands

import (
	"fmt"
	"path/filepath"
	"strconv"

	"github.com/spf13/cobra"

	"dnsrelay/internal/service"
)

var installCmd = &cobra.Command{
	Use:   "install",
	Short: "Register the relay with the service manager",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		// The service runs with an unpredictable working directory, so
		// the registered command line carries an absolute config path.
		absCfg, err := filepath.Abs(cfgFile)
		if err != nil {
			return fmt.Errorf("resolve config path: %w", err)
		}
		if err := service.Install(absCfg); err != nil {
			return err
		}
		fmt.Println("Service installed successfully")
		return nil
	},
}

var removeCmd = &cobra.Command{
	Use:   "remove",
	Short: "Remove the relay's service registration",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := service.Remove(); err != nil {
			return err
		}
		fmt.Println("Service removed successfully")
		return nil
	},
}

var startCmd = &cobra.Command{
	Use:   "start [logLevel]",
	Short: "Start the registered service",
	Long: `Start asks the service manager to start the registered relay service.
The optional logLevel (0-7) is passed to the service as its engine
verbosity for this run.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		level, err := parseLevelArg(args)
		if err != nil {
			return err
		}
		if err := service.Start(level); err != nil {
			return err
		}
		fmt.Println("Service started successfully")
		return nil
	},
}

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the running service",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := service.Stop(); err != nil {
			return err
		}
		fmt.Println("Service stopped successfully")
		return nil
	},
}

// runServiceCmd is what the service manager invokes; it is not meant for
// operators.
var runServiceCmd = &cobra.Command{
	Use:    service.CommandRunAsService,
	Short:  "Run under the service control manager",
	Hidden: true,
	Args:   cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, cleanup, err := setup(true)
		if err != nil {
			return err
		}
		defer cleanup()

		return service.RunAsService(cfg)
	},
}

// parseLevelArg validates the optional start verbosity argument.
func parseLevelArg(args []string) (int, error) {
	if len(args) == 0 {
		return -1, nil
	}
	level, err := strconv.Atoi(args[0])
	if err != nil || level < 0 || level > 7 {
		return 0, fmt.Errorf("invalid log level %q: expected 0-7", args[0])
	}
	return level, nil
}
