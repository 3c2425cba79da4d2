package webrtcsession

import (
	"context"
	"fmt"
	"sync"

	"github.com/zmstream/streamcore/internal/config"
	"github.com/zmstream/streamcore/internal/core"
	"github.com/zmstream/streamcore/internal/core/sourcerouter"
	"github.com/zmstream/streamcore/internal/logger"
)

// forwarder is the goroutine that drains a router subscription into a
// Session's RTP track; it owns the subscription's cancel func.
type forwarder struct {
	cancel context.CancelFunc
	done   chan struct{}
}

// Manager owns every viewer's Session, keyed by an opaque viewer/connection
// ID, and wires new sessions to the source router's packet stream.
type Manager struct {
	engine *Engine
	router *sourcerouter.Router
	log    *logger.Logger

	mu       sync.Mutex
	sessions map[string]*Session
	fwds     map[string]*forwarder
}

// NewManager constructs a Manager backed by a shared Engine and the given
// source router.
func NewManager(cfg config.WebRTCConfig, router *sourcerouter.Router, log *logger.Logger) (*Manager, error) {
	engine, err := NewEngine(cfg, log)
	if err != nil {
		return nil, fmt.Errorf("new webrtc engine: %w", err)
	}
	return &Manager{
		engine:   engine,
		router:   router,
		log:      log,
		sessions: make(map[string]*Session),
		fwds:     make(map[string]*forwarder),
	}, nil
}

// CreateSession builds a peer connection for one viewer watching one
// monitor and starts forwarding that monitor's video into it. With
// withAudio set an audio track is attached, but no audio is forwarded to it.
func (m *Manager) CreateSession(ctx context.Context, viewerID string, monitorID core.MonitorID, withAudio bool) (*Session, error) {
	pc, videoTrack, audioTrack, err := m.engine.newPeerConnection(fmt.Sprintf("monitor-%d", monitorID), withAudio)
	if err != nil {
		return nil, err
	}

	sess, err := newSession(ctx, monitorID, viewerID, pc, videoTrack, audioTrack, m.log)
	if err != nil {
		pc.Close()
		return nil, err
	}

	videoCh, unsubscribe, err := m.router.SubscribeVideo(ctx, monitorID)
	if err != nil {
		sess.Close()
		return nil, err
	}

	fwdCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		defer unsubscribe()
		for {
			select {
			case <-fwdCtx.Done():
				return
			case pkt, ok := <-videoCh:
				if !ok {
					return
				}
				if err := sess.ForwardVideo(pkt); err != nil {
					m.log.DebugWebRTC("forward video failed", "monitor_id", monitorID, "viewer_id", viewerID, "error", err)
					return
				}
			}
		}
	}()

	m.mu.Lock()
	m.sessions[viewerID] = sess
	m.fwds[viewerID] = &forwarder{cancel: cancel, done: done}
	m.mu.Unlock()

	m.log.Info("webrtc session created", "monitor_id", monitorID, "viewer_id", viewerID)
	return sess, nil
}

// Get returns a viewer's session.
func (m *Manager) Get(viewerID string) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sess, ok := m.sessions[viewerID]
	return sess, ok
}

// CloseSession tears down one viewer's session and stops its forwarder.
func (m *Manager) CloseSession(viewerID string) error {
	m.mu.Lock()
	sess, ok := m.sessions[viewerID]
	fwd := m.fwds[viewerID]
	delete(m.sessions, viewerID)
	delete(m.fwds, viewerID)
	m.mu.Unlock()

	if !ok {
		return fmt.Errorf("no webrtc session for viewer %q", viewerID)
	}

	if fwd != nil {
		fwd.cancel()
		<-fwd.done
	}

	return sess.Close()
}

// SessionCount reports the number of live viewer sessions.
func (m *Manager) SessionCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}
