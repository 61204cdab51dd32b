package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/grandcat/zeroconf"
)

// discoveryInstance returns the mDNS instance name: the configured one, or
// "<hostname>-viastudio".
func discoveryInstance(cfg DiscoveryConfig) string {
	if cfg.Instance != "" {
		return cfg.Instance
	}
	hostname, err := os.Hostname()
	if err != nil || hostname == "" {
		hostname = "localhost"
	}
	return hostname + "-viastudio"
}

// discoveryTXT builds the TXT records published alongside the service.
func discoveryTXT(cfg StateWSConfig, joints int) []string {
	return []string{
		"version=" + version,
		"ws_path=" + cfg.Path,
		fmt.Sprintf("joints=%d", joints),
	}
}

// runDiscovery advertises the state WebSocket over mDNS until ctx is canceled.
func runDiscovery(ctx context.Context, cfg Config, logger *slog.Logger) error {
	port, err := cfg.StateWSPort()
	if err != nil {
		return fmt.Errorf("discovery: %w", err)
	}
	instance := discoveryInstance(cfg.Discovery)

	server, err := zeroconf.Register(
		instance,
		discoveryServiceType,
		discoveryServiceDomain,
		port,
		discoveryTXT(cfg.StateWS, len(cfg.Robot.JointNames)),
		nil, // all interfaces
	)
	if err != nil {
		return fmt.Errorf("register mDNS service: %w", err)
	}
	logger.Info("mDNS service registered", "instance", instance, "type", discoveryServiceType, "port", port)

	<-ctx.Done()
	server.Shutdown()
	logger.Info("mDNS service stopped")
	return nil
}
