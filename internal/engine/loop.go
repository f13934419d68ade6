package engine

import (
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/net/dns/dnsmessage"

	"dnsrelay/internal/config"
)

// maxUDPPayload covers EDNS0-sized datagrams on the listener side.
const maxUDPPayload = 4096

// Loop is the engine's event loop. One RunOnce call waits up to the
// iteration bound for a query across the listeners, relays it upstream
// and writes the answer back.
type Loop struct {
	conns []*net.UDPConn
	fwd   *forwarder
	bound time.Duration
	log   zerolog.Logger
	next  int
	buf   [maxUDPPayload]byte
}

func newLoop(conns []*net.UDPConn, cfg *config.Config, log zerolog.Logger) *Loop {
	return &Loop{
		conns: conns,
		fwd:   newForwarder(cfg.Upstream),
		bound: cfg.IterationBound,
		log:   log,
	}
}

// RunOnce runs one bounded iteration: poll each listener round-robin for
// a share of the iteration bound, handle at most one query, and return.
// ErrIdle means no query arrived. A closed listener is fatal; per-query
// failures are logged and dropped.
func (l *Loop) RunOnce() error {
	per := l.bound / time.Duration(len(l.conns))
	if per <= 0 {
		per = l.bound
	}

	for range l.conns {
		conn := l.conns[l.next]
		l.next = (l.next + 1) % len(l.conns)

		if err := conn.SetReadDeadline(time.Now().Add(per)); err != nil {
			return fmt.Errorf("set read deadline: %w", err)
		}

		n, client, err := conn.ReadFromUDP(l.buf[:])
		if err != nil {
			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				continue
			}
			if errors.Is(err, net.ErrClosed) {
				return fmt.Errorf("listener closed: %w", err)
			}
			l.log.Warn().Err(err).Msg("Read failed")
			continue
		}

		l.handle(conn, client, l.buf[:n])
		return nil
	}

	return ErrIdle
}

// handle relays a single query and writes the upstream answer back to the
// client. Failures drop the query; the client retries per DNS convention.
func (l *Loop) handle(conn *net.UDPConn, client *net.UDPAddr, query []byte) {
	id, name, ok := parseQuery(query)
	if !ok {
		l.log.Debug().Str("client", client.String()).Msg("Dropping malformed query")
		return
	}

	l.log.Debug().
		Uint16("id", id).
		Str("name", name).
		Str("client", client.String()).
		Msg("Relaying query")

	resp, err := l.fwd.exchange(query)
	if err != nil {
		l.log.Warn().Err(err).Uint16("id", id).Str("name", name).Msg("Upstream exchange failed")
		return
	}

	if len(resp) < 2 || uint16(resp[0])<<8|uint16(resp[1]) != id {
		l.log.Warn().Uint16("id", id).Msg("Upstream response ID mismatch, dropping")
		return
	}

	if _, err := conn.WriteToUDP(resp, client); err != nil {
		l.log.Warn().Err(err).Str("client", client.String()).Msg("Write to client failed")
	}
}

// parseQuery validates the datagram is a DNS query and extracts its ID
// and first question name for diagnostics.
func parseQuery(msg []byte) (id uint16, name string, ok bool) {
	var p dnsmessage.Parser
	hdr, err := p.Start(msg)
	if err != nil || hdr.Response {
		return 0, "", false
	}

	q, err := p.Question()
	if err != nil {
		// A query with no question section is still relayed; the
		// upstream decides what to make of it.
		return hdr.ID, "", true
	}
	return hdr.ID, q.Name.String(), true
}
