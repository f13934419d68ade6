// Package service integrates the relay with the platform service manager:
// registration (install/remove), control (start/stop), the service entry
// point, and the event log bridge. On non-Windows platforms only the
// interactive runner is available.
package service

import "strconv"

const (
	// Name is the service name in the OS service registry and the event
	// log source name.
	Name = "DNSRelay"

	displayName = "DNS Privacy Relay"
	description = "Forwards DNS name lookups to an upstream resolver over a private transport."

	// CommandRunAsService is the fixed argument baked into the registered
	// service command line so the binary knows it was launched by the
	// service manager.
	CommandRunAsService = "run-as-service"
)

// registrationArgs builds the argument vector baked into the registered
// service command line: the run-as-service marker plus, when present, the
// configuration path. The path must be absolute because the service
// manager launches the binary with an unpredictable working directory.
func registrationArgs(configPath string) []string {
	args := []string{CommandRunAsService}
	if configPath != "" {
		args = append(args, "--config", configPath)
	}
	return args
}

// parseStartArgs extracts the numeric log level from the service start
// arguments (args[0] is the service name, args[1] the level). Returns -1
// when absent or unparsable, which leaves the engine verbosity untouched.
func parseStartArgs(args []string) int {
	if len(args) < 2 {
		return -1
	}
	level, err := strconv.Atoi(args[1])
	if err != nil || level < 0 {
		return -1
	}
	return level
}
