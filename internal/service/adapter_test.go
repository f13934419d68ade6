package service

import (
	"errors"
	"testing"
	"time"

	"dnsrelay/internal/config"
	"dnsrelay/internal/supervisor"
)

func TestEngineFactory_FullLifecycle(t *testing.T) {
	cfg := config.Default()
	cfg.Listen = []string{"127.0.0.1:0"}
	cfg.Upstream = config.UpstreamConfig{
		Address:   "127.0.0.1:1",
		Transport: config.TransportUDP,
		Timeout:   time.Second,
	}
	cfg.IterationBound = 20 * time.Millisecond

	eng, err := newEngineFactory(cfg)()
	if err != nil {
		t.Fatalf("factory failed: %v", err)
	}
	defer eng.Destroy()

	if err := eng.LoadConfig(); err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if err := eng.Listen(); err != nil {
		t.Fatalf("Listen failed: %v", err)
	}

	drv, err := eng.EventLoop()
	if err != nil {
		t.Fatalf("EventLoop failed: %v", err)
	}

	// No traffic: the adapter must surface the supervisor's idle error,
	// not the engine's.
	if err := drv.RunOnce(); !errors.Is(err, supervisor.ErrIdle) {
		t.Errorf("expected supervisor.ErrIdle, got %v", err)
	}
}

func TestEngineFactory_LoadConfigRejectsBadConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Upstream.Transport = "carrier-pigeon"

	eng, err := newEngineFactory(cfg)()
	if err != nil {
		t.Fatalf("factory failed: %v", err)
	}
	defer eng.Destroy()

	if err := eng.LoadConfig(); err == nil {
		t.Error("expected LoadConfig to reject invalid transport")
	}
}
