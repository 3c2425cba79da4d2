package ptz

import (
	"context"
	"strings"
	"sync"
)

// ConnectionConfig describes how to reach one monitor's PTZ endpoint.
type ConnectionConfig struct {
	MonitorID       uint32
	Address         string
	Username        string
	Password        string
	Protocol        string
	AutoStopTimeout float64
}

// Control is the behaviour every protocol implementation (native socket or
// process-exec fallback) provides.
type Control interface {
	ProtocolName() string
	IsNative() bool
	Execute(ctx context.Context, cmd Command) (Result, error)
}

// ControlFactory builds a Control for one monitor's connection config and
// capability record.
type ControlFactory interface {
	ProtocolName() string
	IsNative() bool
	Create(cfg ConnectionConfig, cap Capability) Control
}

// ProtocolInfo describes one registered protocol for introspection.
type ProtocolInfo struct {
	Name        string
	IsNative    bool
	Description string
}

// Registry resolves a protocol name to a ControlFactory, preferring a
// registered native implementation and falling back to the process-exec
// factory when none exists and fallback is allowed.
type Registry struct {
	mu               sync.RWMutex
	native           map[string]ControlFactory
	execFactory      ControlFactory
	allowExecFallback bool
}

// NewRegistry constructs a Registry backed by the given process-exec
// fallback factory.
func NewRegistry(execFactory ControlFactory, allowExecFallback bool) *Registry {
	return &Registry{
		native:            make(map[string]ControlFactory),
		execFactory:       execFactory,
		allowExecFallback: allowExecFallback,
	}
}

// RegisterNative adds a native protocol factory, keyed case-insensitively.
func (r *Registry) RegisterNative(factory ControlFactory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.native[strings.ToLower(factory.ProtocolName())] = factory
}

// HasNative reports whether a native implementation is registered for a
// protocol name.
func (r *Registry) HasNative(protocol string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.native[strings.ToLower(protocol)]
	return ok
}

// GetFactory resolves a protocol name to a factory, preferring native and
// falling back to the process-exec factory when allowed.
func (r *Registry) GetFactory(protocol string) (ControlFactory, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if factory, ok := r.native[strings.ToLower(protocol)]; ok {
		return factory, true
	}
	if r.allowExecFallback && r.execFactory != nil {
		return r.execFactory, true
	}
	return nil, false
}

// CreateControl builds a Control instance for a monitor using the factory
// resolved for its protocol.
func (r *Registry) CreateControl(protocol string, cfg ConnectionConfig, cap Capability) (Control, bool) {
	factory, ok := r.GetFactory(protocol)
	if !ok {
		return nil, false
	}
	return factory.Create(cfg, cap), true
}

// ListProtocols enumerates every registered native protocol plus a "*"
// marker row for the process-exec fallback, when enabled.
func (r *Registry) ListProtocols() []ProtocolInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()

	infos := make([]ProtocolInfo, 0, len(r.native)+1)
	for name, factory := range r.native {
		infos = append(infos, ProtocolInfo{Name: name, IsNative: factory.IsNative(), Description: "native socket implementation"})
	}
	if r.allowExecFallback {
		infos = append(infos, ProtocolInfo{Name: "*", IsNative: false, Description: "process-exec fallback"})
	}
	return infos
}
