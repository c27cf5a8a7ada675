package services

import (
	"context"
	"errors"
	"strings"
	"syscall"
	"time"

	"cctv-monitoring/be/config"

	probing "github.com/prometheus-community/pro-bing"
	"go.uber.org/zap"
)

// ProbeResult is the outcome of probing one network address.
type ProbeResult int

const (
	// ProbeError means the probe itself failed; nothing is known about the target.
	ProbeError ProbeResult = iota
	Reachable
	HostDown
	// NetworkUnreachable means the monitoring host cannot route at all.
	NetworkUnreachable
)

func (r ProbeResult) String() string {
	switch r {
	case Reachable:
		return "reachable"
	case HostDown:
		return "host_down"
	case NetworkUnreachable:
		return "network_unreachable"
	default:
		return "probe_error"
	}
}

func (r ProbeResult) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

// Prober checks whether a camera answers on the network. Implementations
// never return an error for an unreachable target.
type Prober interface {
	Probe(ctx context.Context, address string) ProbeResult
}

// ICMPProber sends ICMP echo requests and stops at the first reply.
type ICMPProber struct {
	count      int
	timeout    time.Duration
	interval   time.Duration
	privileged bool
	logger     *zap.Logger
}

func NewICMPProber(cfg config.ProbeConfig, logger *zap.Logger) *ICMPProber {
	count := cfg.Count
	if count <= 0 {
		count = 3
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	interval := cfg.Interval
	if interval <= 0 {
		interval = time.Second
	}
	return &ICMPProber{
		count:      count,
		timeout:    timeout,
		interval:   interval,
		privileged: cfg.Privileged,
		logger:     logger.Named("prober"),
	}
}

func (p *ICMPProber) Probe(ctx context.Context, address string) ProbeResult {
	if address == "" {
		return ProbeError
	}

	pinger, err := probing.NewPinger(address)
	if err != nil {
		result := classifyProbeError(err)
		p.logger.Warn("Failed to create pinger",
			zap.String("address", address),
			zap.Stringer("result", result),
			zap.Error(err),
		)
		return result
	}

	pinger.Count = p.count
	pinger.Interval = p.interval
	pinger.Timeout = time.Duration(p.count) * p.timeout
	pinger.SetPrivileged(p.privileged)
	pinger.OnRecv = func(*probing.Packet) {
		pinger.Stop()
	}

	if err := pinger.RunWithContext(ctx); err != nil {
		result := classifyProbeError(err)
		p.logger.Warn("Ping failed",
			zap.String("address", address),
			zap.Stringer("result", result),
			zap.Error(err),
		)
		return result
	}

	if pinger.Statistics().PacketsRecv > 0 {
		return Reachable
	}
	return HostDown
}

// classifyProbeError separates a broken local network from a dead target.
func classifyProbeError(err error) ProbeResult {
	if err == nil {
		return Reachable
	}
	msg := strings.ToLower(err.Error())
	switch {
	case errors.Is(err, syscall.ENETUNREACH), strings.Contains(msg, "network is unreachable"):
		return NetworkUnreachable
	case errors.Is(err, syscall.EHOSTUNREACH), strings.Contains(msg, "no route to host"),
		strings.Contains(msg, "host is unreachable"):
		return HostDown
	default:
		return ProbeError
	}
}
