package api

import (
	"context"
	"sync"
	"time"

	"github.com/zmstream/streamcore/internal/core"
	"github.com/zmstream/streamcore/internal/core/hlssession"
	"github.com/zmstream/streamcore/internal/core/sourcerouter"
	"github.com/zmstream/streamcore/internal/logger"
)

// hlsFeeder lazily starts an HLS session for a monitor on first viewer
// demand, pumping the source router's video broadcast into the session's
// segmenter, and reclaims both the session and its router subscription once
// no viewer has touched it for idleAfter.
type hlsFeeder struct {
	manager *hlssession.Manager
	router  *sourcerouter.Router
	log     *logger.Logger

	idleAfter time.Duration

	mu      sync.Mutex
	feeds   map[core.MonitorID]context.CancelFunc
	lastHit map[core.MonitorID]time.Time
}

func newHLSFeeder(manager *hlssession.Manager, router *sourcerouter.Router, idleAfter time.Duration, log *logger.Logger) *hlsFeeder {
	return &hlsFeeder{
		manager:   manager,
		router:    router,
		log:       log,
		idleAfter: idleAfter,
		feeds:     make(map[core.MonitorID]context.CancelFunc),
		lastHit:   make(map[core.MonitorID]time.Time),
	}
}

// ensure starts a session and its feed goroutine if one isn't already
// running for id, and always records id as freshly touched.
func (f *hlsFeeder) ensure(id core.MonitorID) (*hlssession.Session, error) {
	f.mu.Lock()
	f.lastHit[id] = time.Now()
	_, feeding := f.feeds[id]
	f.mu.Unlock()

	if feeding {
		return f.manager.Get(id)
	}

	sess, err := f.manager.StartSession(id)
	if err != nil {
		if _, isExists := err.(*core.ErrSessionExists); isExists {
			sess, err = f.manager.Get(id)
			if err != nil {
				return nil, err
			}
		} else {
			return nil, err
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	ch, unsubscribe, err := f.router.SubscribeVideo(ctx, id)
	if err != nil {
		cancel()
		f.manager.StopSession(id)
		return nil, err
	}

	f.mu.Lock()
	f.feeds[id] = cancel
	f.mu.Unlock()

	go f.pump(ctx, id, ch, unsubscribe)
	return sess, nil
}

func (f *hlsFeeder) pump(ctx context.Context, id core.MonitorID, ch <-chan core.RawPacket, unsubscribe func()) {
	defer unsubscribe()
	for {
		select {
		case <-ctx.Done():
			return
		case pkt, ok := <-ch:
			if !ok {
				return
			}
			if err := f.manager.ProcessPacket(id, pkt); err != nil {
				f.log.DebugSegment("hls feed failed to process packet", "monitor_id", id, "error", err)
			}
		}
	}
}

// reap stops sessions that have had zero viewers for longer than idleAfter.
func (f *hlsFeeder) reap() {
	for _, id := range f.manager.ListSessions() {
		sess, err := f.manager.Get(id)
		if err != nil {
			continue
		}
		stats := sess.Stats()

		f.mu.Lock()
		last := f.lastHit[id]
		f.mu.Unlock()

		if stats.ViewerCount > 0 || time.Since(last) < f.idleAfter {
			continue
		}

		f.mu.Lock()
		cancel, ok := f.feeds[id]
		delete(f.feeds, id)
		delete(f.lastHit, id)
		f.mu.Unlock()

		if ok {
			cancel()
		}
		if err := f.manager.StopSession(id); err != nil {
			f.log.DebugHLS("idle hls session reap failed", "monitor_id", id, "error", err)
			continue
		}
		f.log.Info("reaped idle hls session", "monitor_id", id)
	}
}

// run drives periodic idle reaping until ctx is cancelled.
func (f *hlsFeeder) run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			f.reap()
		}
	}
}
