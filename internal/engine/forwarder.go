package engine

import (
	"crypto/tls"
	"encoding/binary"
	"fmt"
	"io"
	"net"
	"time"

	"dnsrelay/internal/config"
)

// maxStreamPayload is the largest DNS message a TCP/TLS upstream can
// return (16-bit length prefix).
const maxStreamPayload = 65535

// forwarder performs one synchronous exchange with the upstream resolver.
// Each exchange dials a fresh connection and is bounded by the configured
// timeout.
type forwarder struct {
	upstream config.UpstreamConfig
}

func newForwarder(upstream config.UpstreamConfig) *forwarder {
	return &forwarder{upstream: upstream}
}

func (f *forwarder) exchange(query []byte) ([]byte, error) {
	switch f.upstream.Transport {
	case config.TransportUDP:
		return f.exchangeUDP(query)
	default:
		return f.exchangeStream(query)
	}
}

func (f *forwarder) exchangeUDP(query []byte) ([]byte, error) {
	conn, err := net.DialTimeout("udp", f.upstream.Address, f.upstream.Timeout)
	if err != nil {
		return nil, fmt.Errorf("dial upstream: %w", err)
	}
	defer conn.Close()

	deadline := time.Now().Add(f.upstream.Timeout)
	if err := conn.SetDeadline(deadline); err != nil {
		return nil, err
	}

	if _, err := conn.Write(query); err != nil {
		return nil, fmt.Errorf("write upstream: %w", err)
	}

	resp := make([]byte, maxUDPPayload)
	n, err := conn.Read(resp)
	if err != nil {
		return nil, fmt.Errorf("read upstream: %w", err)
	}
	return resp[:n], nil
}

// exchangeStream sends the query over TCP or TLS with the RFC 1035
// two-byte length prefix.
func (f *forwarder) exchangeStream(query []byte) ([]byte, error) {
	conn, err := f.dialStream()
	if err != nil {
		return nil, fmt.Errorf("dial upstream: %w", err)
	}
	defer conn.Close()

	deadline := time.Now().Add(f.upstream.Timeout)
	if err := conn.SetDeadline(deadline); err != nil {
		return nil, err
	}

	framed := make([]byte, 2+len(query))
	binary.BigEndian.PutUint16(framed, uint16(len(query)))
	copy(framed[2:], query)
	if _, err := conn.Write(framed); err != nil {
		return nil, fmt.Errorf("write upstream: %w", err)
	}

	var lenBuf [2]byte
	if _, err := io.ReadFull(conn, lenBuf[:]); err != nil {
		return nil, fmt.Errorf("read upstream length: %w", err)
	}
	respLen := binary.BigEndian.Uint16(lenBuf[:])
	if respLen == 0 || respLen > maxStreamPayload {
		return nil, fmt.Errorf("upstream response length %d out of range", respLen)
	}

	resp := make([]byte, respLen)
	if _, err := io.ReadFull(conn, resp); err != nil {
		return nil, fmt.Errorf("read upstream: %w", err)
	}
	return resp, nil
}

func (f *forwarder) dialStream() (net.Conn, error) {
	dialer := &net.Dialer{Timeout: f.upstream.Timeout}

	if f.upstream.Transport == config.TransportTLS {
		return tls.DialWithDialer(dialer, "tcp", f.upstream.Address, &tls.Config{
			ServerName: f.upstream.TLSServerName,
			MinVersion: tls.VersionTLS12,
		})
	}
	return dialer.Dial("tcp", f.upstream.Address)
}
