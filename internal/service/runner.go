package service

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"

	"dnsrelay/internal/config"
	"dnsrelay/internal/logger"
	"dnsrelay/internal/supervisor"
)

// RunInteractive runs the relay in the foreground until SIGINT or SIGTERM.
// The same supervisor drives the engine as under the service manager;
// lifecycle transitions go to the structured log instead of the SCM.
func RunInteractive(cfg *config.Config, logLevel int) error {
	log := logger.WithComponent("service")

	host := supervisor.New(supervisor.Config{
		Reporter: &logReporter{log: logger.WithComponent("lifecycle")},
		Engine:   newEngineFactory(cfg),
		Events:   NewEventSink(),
	})

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	done := make(chan uint32, 1)
	go func() { done <- host.Run(logLevel) }()

	for {
		select {
		case sig := <-sigChan:
			log.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
			host.RequestStop()

		case code := <-done:
			if code != 0 {
				return fmt.Errorf("relay stopped with exit code %d", code)
			}
			return nil
		}
	}
}

// logReporter publishes lifecycle transitions to the structured log when
// no service manager is watching.
type logReporter struct {
	log zerolog.Logger
}

func (r *logReporter) Report(st supervisor.Status) {
	r.log.Info().
		Str("state", st.State.String()).
		Uint32("checkpoint", st.Checkpoint).
		Uint32("exit_code", st.ExitCode).
		Msg("Service state")
}
