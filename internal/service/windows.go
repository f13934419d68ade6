//go:build windows

package service

import (
	"time"

	"golang.org/x/sys/windows/svc"

	"dnsrelay/internal/config"
	"dnsrelay/internal/logger"
	"dnsrelay/internal/supervisor"
)

// relayService implements svc.Handler. Execute runs on the control
// dispatch context; the supervisor's main loop runs on its own goroutine.
// The only state shared between them is the host's stop signal and the
// status channel, both safe for concurrent use.
type relayService struct {
	cfg *config.Config
}

// RunAsService hands the process over to the service control dispatcher.
// Returns when the service has stopped; a registration failure is the one
// error no status can be published for, so it is returned to the caller.
func RunAsService(cfg *config.Config) error {
	return svc.Run(Name, &relayService{cfg: cfg})
}

// IsService reports whether the process was launched by the service
// control manager.
func IsService() bool {
	isService, err := svc.IsWindowsService()
	if err != nil {
		return false
	}
	return isService
}

// Execute implements the svc.Handler interface.
func (s *relayService) Execute(args []string, r <-chan svc.ChangeRequest, changes chan<- svc.Status) (ssec bool, errno uint32) {
	log := logger.WithComponent("windows-service")

	host := supervisor.New(supervisor.Config{
		Reporter: &scmReporter{changes: changes},
		Engine:   newEngineFactory(s.cfg),
		Events:   NewEventSink(),
	})

	done := make(chan uint32, 1)
	go func() { done <- host.Run(parseStartArgs(args)) }()

	for {
		select {
		case c := <-r:
			switch c.Cmd {
			case svc.Interrogate:
				// Acknowledge receipt only; no state change.
				changes <- c.CurrentStatus

			case svc.Stop, svc.Shutdown:
				log.Info().Msg("Stop requested by service control manager")
				host.RequestStop()

			default:
				log.Warn().Int("cmd", int(c.Cmd)).Msg("Ignoring service control command")
			}

		case code := <-done:
			// Host has already published Stopped; the exit code also
			// travels through the handler return value.
			return false, code
		}
	}
}

// scmReporter forwards supervisor status snapshots to the service control
// manager.
type scmReporter struct {
	changes chan<- svc.Status
}

func (r *scmReporter) Report(st supervisor.Status) {
	out := svc.Status{
		State:      svcState(st.State),
		CheckPoint: st.Checkpoint,
		WaitHint:   uint32(st.WaitHint / time.Millisecond),
	}
	// No controls are accepted until startup completes.
	if st.State != supervisor.StartPending {
		out.Accepts = svc.AcceptStop | svc.AcceptShutdown
	}
	r.changes <- out
}

func svcState(s supervisor.State) svc.State {
	switch s {
	case supervisor.StartPending:
		return svc.StartPending
	case supervisor.Running:
		return svc.Running
	case supervisor.StopPending:
		return svc.StopPending
	default:
		return svc.Stopped
	}
}
