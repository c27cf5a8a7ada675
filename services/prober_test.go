package services

import (
	"context"
	"errors"
	"fmt"
	"syscall"
	"testing"

	"cctv-monitoring/be/config"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestClassifyProbeError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ProbeResult
	}{
		{"nil", nil, Reachable},
		{"enetunreach", fmt.Errorf("write: %w", syscall.ENETUNREACH), NetworkUnreachable},
		{"network unreachable text", errors.New("sendto: Network is unreachable"), NetworkUnreachable},
		{"ehostunreach", fmt.Errorf("write: %w", syscall.EHOSTUNREACH), HostDown},
		{"no route text", errors.New("sendto: no route to host"), HostDown},
		{"permission", errors.New("socket: operation not permitted"), ProbeError},
		{"resolve", errors.New("lookup cam.local: no such host"), ProbeError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, classifyProbeError(tt.err))
		})
	}
}

func TestProbeResultText(t *testing.T) {
	assert.Equal(t, "reachable", Reachable.String())
	assert.Equal(t, "host_down", HostDown.String())
	assert.Equal(t, "network_unreachable", NetworkUnreachable.String())
	assert.Equal(t, "probe_error", ProbeError.String())

	text, err := HostDown.MarshalText()
	assert.NoError(t, err)
	assert.Equal(t, "host_down", string(text))
}

func TestICMPProberEmptyAddress(t *testing.T) {
	p := NewICMPProber(config.ProbeConfig{}, zap.NewNop())
	assert.Equal(t, ProbeError, p.Probe(context.Background(), ""))
}

func TestNewICMPProberDefaults(t *testing.T) {
	p := NewICMPProber(config.ProbeConfig{}, zap.NewNop())
	assert.Equal(t, 3, p.count)
	assert.Equal(t, "5s", p.timeout.String())
	assert.Equal(t, "1s", p.interval.String())
}
