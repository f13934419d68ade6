package engine

import (
	"encoding/binary"
	"errors"
	"io"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/net/dns/dnsmessage"

	"dnsrelay/internal/config"
)

func buildQuery(t *testing.T, id uint16, name string) []byte {
	t.Helper()
	msg := dnsmessage.Message{
		Header: dnsmessage.Header{ID: id, RecursionDesired: true},
		Questions: []dnsmessage.Question{{
			Name:  dnsmessage.MustNewName(name),
			Type:  dnsmessage.TypeA,
			Class: dnsmessage.ClassINET,
		}},
	}
	data, err := msg.Pack()
	if err != nil {
		t.Fatalf("failed to pack query: %v", err)
	}
	return data
}

// buildAnswer fabricates an upstream response for the given query.
func buildAnswer(query []byte) ([]byte, error) {
	var p dnsmessage.Parser
	hdr, err := p.Start(query)
	if err != nil {
		return nil, err
	}
	q, err := p.Question()
	if err != nil {
		return nil, err
	}

	msg := dnsmessage.Message{
		Header: dnsmessage.Header{
			ID:                 hdr.ID,
			Response:           true,
			RecursionAvailable: true,
		},
		Questions: []dnsmessage.Question{q},
		Answers: []dnsmessage.Resource{{
			Header: dnsmessage.ResourceHeader{
				Name:  q.Name,
				Type:  dnsmessage.TypeA,
				Class: dnsmessage.ClassINET,
				TTL:   60,
			},
			Body: &dnsmessage.AResource{A: [4]byte{192, 0, 2, 1}},
		}},
	}
	return msg.Pack()
}

// startUDPUpstream runs a fake resolver that answers every query with a
// single A record.
func startUDPUpstream(t *testing.T) string {
	t.Helper()
	conn, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	if err != nil {
		t.Fatalf("failed to start fake upstream: %v", err)
	}
	t.Cleanup(func() { conn.Close() })

	go func() {
		buf := make([]byte, maxUDPPayload)
		for {
			n, addr, err := conn.ReadFromUDP(buf)
			if err != nil {
				return
			}
			resp, err := buildAnswer(buf[:n])
			if err != nil {
				continue
			}
			conn.WriteToUDP(resp, addr)
		}
	}()

	return conn.LocalAddr().String()
}

// startTCPUpstream runs a fake resolver speaking the length-prefixed
// stream framing.
func startTCPUpstream(t *testing.T) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to start fake TCP upstream: %v", err)
	}
	t.Cleanup(func() { ln.Close() })

	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			go func(c net.Conn) {
				defer c.Close()
				var lenBuf [2]byte
				if _, err := io.ReadFull(c, lenBuf[:]); err != nil {
					return
				}
				query := make([]byte, binary.BigEndian.Uint16(lenBuf[:]))
				if _, err := io.ReadFull(c, query); err != nil {
					return
				}
				resp, err := buildAnswer(query)
				if err != nil {
					return
				}
				framed := make([]byte, 2+len(resp))
				binary.BigEndian.PutUint16(framed, uint16(len(resp)))
				copy(framed[2:], resp)
				c.Write(framed)
			}(conn)
		}
	}()

	return ln.Addr().String()
}

func relayConfig(upstreamAddr, transport string) *config.Config {
	cfg := config.Default()
	cfg.Listen = []string{"127.0.0.1:0"}
	cfg.Upstream = config.UpstreamConfig{
		Address:   upstreamAddr,
		Transport: transport,
		Timeout:   2 * time.Second,
	}
	cfg.IterationBound = 200 * time.Millisecond
	return cfg
}

// startedContext builds a listening context and its loop for the given
// upstream, with teardown registered.
func startedContext(t *testing.T, cfg *config.Config) (*Context, *Loop) {
	t.Helper()
	ctx, err := New()
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	t.Cleanup(ctx.Destroy)

	if err := ctx.LoadConfig(cfg); err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if err := ctx.Listen(); err != nil {
		t.Fatalf("Listen failed: %v", err)
	}
	loop, err := ctx.EventLoop()
	if err != nil {
		t.Fatalf("EventLoop failed: %v", err)
	}
	return ctx, loop
}

func exchangeViaRelay(t *testing.T, ctx *Context, loop *Loop, query []byte) []byte {
	t.Helper()
	client, err := net.Dial("udp", ctx.Addrs()[0].String())
	if err != nil {
		t.Fatalf("failed to dial relay: %v", err)
	}
	defer client.Close()

	if _, err := client.Write(query); err != nil {
		t.Fatalf("failed to send query: %v", err)
	}
	if err := loop.RunOnce(); err != nil {
		t.Fatalf("RunOnce failed: %v", err)
	}

	client.SetReadDeadline(time.Now().Add(2 * time.Second))
	buf := make([]byte, maxUDPPayload)
	n, err := client.Read(buf)
	if err != nil {
		t.Fatalf("failed to read relay response: %v", err)
	}
	return buf[:n]
}

func TestRelay_UDPUpstreamRoundTrip(t *testing.T) {
	upstream := startUDPUpstream(t)
	ctx, loop := startedContext(t, relayConfig(upstream, config.TransportUDP))

	query := buildQuery(t, 0x1234, "example.com.")
	resp := exchangeViaRelay(t, ctx, loop, query)

	var msg dnsmessage.Message
	if err := msg.Unpack(resp); err != nil {
		t.Fatalf("failed to unpack response: %v", err)
	}
	if msg.Header.ID != 0x1234 {
		t.Errorf("expected response ID 0x1234, got 0x%04x", msg.Header.ID)
	}
	if !msg.Header.Response {
		t.Error("expected QR bit set in response")
	}
	if len(msg.Answers) != 1 {
		t.Fatalf("expected 1 answer, got %d", len(msg.Answers))
	}
}

func TestRelay_TCPUpstreamRoundTrip(t *testing.T) {
	upstream := startTCPUpstream(t)
	ctx, loop := startedContext(t, relayConfig(upstream, config.TransportTCP))

	query := buildQuery(t, 0x4242, "example.org.")
	resp := exchangeViaRelay(t, ctx, loop, query)

	var msg dnsmessage.Message
	if err := msg.Unpack(resp); err != nil {
		t.Fatalf("failed to unpack response: %v", err)
	}
	if msg.Header.ID != 0x4242 {
		t.Errorf("expected response ID 0x4242, got 0x%04x", msg.Header.ID)
	}
}

func TestLoop_IdleIterationReturnsErrIdle(t *testing.T) {
	cfg := relayConfig("127.0.0.1:1", config.TransportUDP)
	cfg.IterationBound = 50 * time.Millisecond
	_, loop := startedContext(t, cfg)

	if err := loop.RunOnce(); !errors.Is(err, ErrIdle) {
		t.Errorf("expected ErrIdle, got %v", err)
	}
}

func TestLoop_MalformedQueryIsDropped(t *testing.T) {
	upstream := startUDPUpstream(t)
	ctx, loop := startedContext(t, relayConfig(upstream, config.TransportUDP))

	client, err := net.Dial("udp", ctx.Addrs()[0].String())
	if err != nil {
		t.Fatalf("failed to dial relay: %v", err)
	}
	defer client.Close()

	if _, err := client.Write([]byte{0x01}); err != nil {
		t.Fatalf("failed to send garbage: %v", err)
	}
	if err := loop.RunOnce(); err != nil {
		t.Errorf("expected malformed query to be dropped quietly, got %v", err)
	}
}

func TestLoop_ClosedListenerIsFatal(t *testing.T) {
	cfg := relayConfig("127.0.0.1:1", config.TransportUDP)
	ctx, loop := startedContext(t, cfg)

	ctx.Destroy()

	err := loop.RunOnce()
	if err == nil || errors.Is(err, ErrIdle) {
		t.Fatalf("expected fatal error after Destroy, got %v", err)
	}
}

func TestContext_LifecycleErrors(t *testing.T) {
	ctx, err := New()
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer ctx.Destroy()

	if err := ctx.Listen(); err == nil {
		t.Error("expected Listen without config to fail")
	}
	if _, err := ctx.EventLoop(); err == nil {
		t.Error("expected EventLoop without listeners to fail")
	}
	if err := ctx.LoadConfig(nil); err == nil {
		t.Error("expected LoadConfig(nil) to fail")
	}

	bad := config.Default()
	bad.Upstream.Transport = "quic"
	if err := ctx.LoadConfig(bad); err == nil {
		t.Error("expected invalid transport to fail validation")
	}

	cfg := relayConfig("127.0.0.1:1", config.TransportUDP)
	cfg.Listen = []string{"127.0.0.1:999999"}
	if err := ctx.LoadConfig(cfg); err != nil {
		// Port range is not checked by Validate; Listen reports it.
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if err := ctx.Listen(); err == nil {
		t.Error("expected Listen on out-of-range port to fail")
	} else if !strings.Contains(err.Error(), "999999") {
		t.Errorf("expected error naming the bad address, got %v", err)
	}
}

func TestContext_DestroyIdempotent(t *testing.T) {
	cfg := relayConfig("127.0.0.1:1", config.TransportUDP)
	ctx, _ := startedContext(t, cfg)

	ctx.Destroy()
	ctx.Destroy() // must not panic on double close
}

func TestParseQuery(t *testing.T) {
	query := buildQuery(t, 7, "example.net.")
	id, name, ok := parseQuery(query)
	if !ok {
		t.Fatal("expected query to parse")
	}
	if id != 7 {
		t.Errorf("expected ID 7, got %d", id)
	}
	if name != "example.net." {
		t.Errorf("expected name example.net., got %q", name)
	}

	resp, err := buildAnswer(query)
	if err != nil {
		t.Fatalf("buildAnswer failed: %v", err)
	}
	if _, _, ok := parseQuery(resp); ok {
		t.Error("expected a response to be rejected")
	}
}

func TestLevelFromVerbosity(t *testing.T) {
	tests := []struct {
		verbosity int
		want      zerolog.Level
	}{
		{0, zerolog.ErrorLevel},
		{3, zerolog.ErrorLevel},
		{4, zerolog.WarnLevel},
		{5, zerolog.WarnLevel},
		{6, zerolog.InfoLevel},
		{7, zerolog.DebugLevel},
		{99, zerolog.DebugLevel},
	}
	for _, tt := range tests {
		if got := levelFromVerbosity(tt.verbosity); got != tt.want {
			t.Errorf("levelFromVerbosity(%d): expected %v, got %v", tt.verbosity, tt.want, got)
		}
	}
}
