package api

import (
	"fmt"
	"sync"

	"github.com/zmstream/streamcore/internal/core"
	"github.com/zmstream/streamcore/internal/core/ptz"
)

// MonitorConfig is what the monitor registry collaborator returns for a
// monitor id: audio presence, a PTZ protocol name and a control id. It
// carries no pipe path parameters and no control-helper path.
type MonitorConfig struct {
	MonitorID    core.MonitorID
	HasAudio     bool
	PTZProtocol  string
	ControlID    string
}

// MonitorRegistry resolves a monitor id to its configuration. The real
// implementation lives behind the relational store named out of scope; this
// is a minimal in-memory stand-in so the HTTP surface is exercisable end to
// end.
type MonitorRegistry struct {
	mu       sync.RWMutex
	monitors map[core.MonitorID]MonitorConfig
}

// NewMonitorRegistry constructs an empty registry.
func NewMonitorRegistry() *MonitorRegistry {
	return &MonitorRegistry{monitors: make(map[core.MonitorID]MonitorConfig)}
}

// Register adds or replaces a monitor's configuration.
func (r *MonitorRegistry) Register(cfg MonitorConfig) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.monitors[cfg.MonitorID] = cfg
}

// Get returns a monitor's configuration, or false if unknown.
func (r *MonitorRegistry) Get(id core.MonitorID) (MonitorConfig, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	cfg, ok := r.monitors[id]
	return cfg, ok
}

// CapabilityStore resolves a PTZ control id to its capability record. The
// real implementation is the relational store; this is an in-memory
// stand-in keyed by the same control id the monitor registry names.
type CapabilityStore struct {
	mu   sync.RWMutex
	caps map[string]ptz.Capability
}

// NewCapabilityStore constructs an empty store.
func NewCapabilityStore() *CapabilityStore {
	return &CapabilityStore{caps: make(map[string]ptz.Capability)}
}

// Set registers a capability record under a control id.
func (s *CapabilityStore) Set(controlID string, cap ptz.Capability) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.caps[controlID] = cap
}

// Get returns a control id's capability record, or false if unknown.
func (s *CapabilityStore) Get(controlID string) (ptz.Capability, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cap, ok := s.caps[controlID]
	return cap, ok
}

// Principal identifies the caller a token validated to.
type Principal struct {
	Subject string
	Scopes  []string
}

// Authenticator validates a bearer token into a Principal. Credential
// hashing, JWT issuance, and refresh-token semantics are out of scope; this
// stand-in only recognizes a fixed set of static tokens, enough to exercise
// the HTTP surface's auth gate end to end.
type Authenticator struct {
	mu     sync.RWMutex
	tokens map[string]Principal
}

// NewAuthenticator constructs an Authenticator with no tokens registered; if
// no tokens are ever registered, Validate accepts every request (open mode),
// matching a deployment that fronts the API with its own auth proxy.
func NewAuthenticator() *Authenticator {
	return &Authenticator{tokens: make(map[string]Principal)}
}

// Register associates a bearer token with a principal.
func (a *Authenticator) Register(token string, p Principal) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.tokens[token] = p
}

// Validate resolves a bearer token to its principal.
func (a *Authenticator) Validate(token string) (Principal, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if len(a.tokens) == 0 {
		return Principal{Subject: "anonymous"}, nil
	}
	p, ok := a.tokens[token]
	if !ok {
		return Principal{}, fmt.Errorf("invalid bearer token")
	}
	return p, nil
}
