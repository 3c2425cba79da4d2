package ptz

import (
	"context"
	"fmt"
	"sync"

	"github.com/zmstream/streamcore/internal/config"
	"github.com/zmstream/streamcore/internal/core"
	"github.com/zmstream/streamcore/internal/logger"
)

// Controller is the single entry point for dispatching PTZ commands: it
// resolves a monitor's protocol and capability record, queues the command,
// and executes it against whatever Control the registry hands back.
type Controller struct {
	registry *Registry
	queue    *Queue
	cfg      config.PTZConfig
	log      *logger.Logger

	mu           sync.RWMutex
	monitorProto map[uint32]string
	monitorCap   map[uint32]Capability
}

// NewController wires a Registry (native socket + process-exec fallback)
// and a priority Queue into a ready-to-use Controller.
func NewController(cfg config.PTZConfig, log *logger.Logger) *Controller {
	registry := NewRegistry(&ExecFactory{HelperPath: cfg.ZMControlPath}, cfg.AllowExecFallback)
	registry.RegisterNative(&socketFactory{sockDir: cfg.SocketDir})

	queue := NewQueue(cfg.CommandRateHz, log)
	queue.Start()

	return &Controller{
		registry:     registry,
		queue:        queue,
		cfg:          cfg,
		log:          log,
		monitorProto: make(map[uint32]string),
		monitorCap:   make(map[uint32]Capability),
	}
}

// Close stops the command queue; commands still waiting in it fail with
// context.Canceled.
func (c *Controller) Close() {
	c.queue.Stop()
}

// RegisterMonitor associates a monitor with its PTZ protocol and capability
// record, populated by the monitor registry collaborator.
func (c *Controller) RegisterMonitor(monitorID uint32, protocol string, cap Capability) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.monitorProto[monitorID] = protocol
	c.monitorCap[monitorID] = cap
}

// Dispatch resolves a monitor's control implementation and queues the
// command, returning a single {success, message} result. When a native
// control fails and exec fallback is allowed, the command is run once more
// through the helper process.
func (c *Controller) Dispatch(ctx context.Context, monitorID uint32, cmd Command) (Result, error) {
	c.mu.RLock()
	protocol, ok := c.monitorProto[monitorID]
	cap := c.monitorCap[monitorID]
	c.mu.RUnlock()

	if !ok {
		return Result{}, &core.PTZError{Kind: core.PTZErrNoCapability, Message: fmt.Sprintf("no ptz capability registered for monitor %d", monitorID)}
	}

	control, ok := c.registry.CreateControl(protocol, ConnectionConfig{
		MonitorID:       monitorID,
		Protocol:        protocol,
		AutoStopTimeout: 0,
	}, cap)
	if !ok {
		return Result{}, &core.PTZError{Kind: core.PTZErrUnsupportedProtocol, Message: fmt.Sprintf("no factory for protocol %q", protocol)}
	}

	return c.queue.Submit(monitorID, cmd, func() (Result, error) {
		res, err := control.Execute(ctx, cmd)
		if err != nil && control.IsNative() && c.cfg.AllowExecFallback {
			c.log.Warn("ptz native control failed, falling back to helper", "monitor_id", monitorID, "error", err)
			return NewExecControl(c.cfg.ZMControlPath, monitorID, cap).Execute(ctx, cmd)
		}
		return res, err
	})
}

// socketFactory builds SocketControl instances for the configured socket
// directory; registered as the registry's native protocol under "socket".
type socketFactory struct {
	sockDir string
}

func (f *socketFactory) ProtocolName() string { return "socket" }
func (f *socketFactory) IsNative() bool        { return true }

func (f *socketFactory) Create(cfg ConnectionConfig, cap Capability) Control {
	return NewSocketControl(f.sockDir, cfg.MonitorID, cap)
}
