// Package sourcerouter owns the at-most-one-reader-per-monitor invariant,
// starting and stopping pipereader.Reader instances on demand and fanning
// their packets out to subscribers.
package sourcerouter

import (
	"context"
	"sync"

	"github.com/zmstream/streamcore/internal/config"
	"github.com/zmstream/streamcore/internal/core"
	"github.com/zmstream/streamcore/internal/core/pipereader"
	"github.com/zmstream/streamcore/internal/logger"
)

// source wraps a single monitor's reader with the router's bookkeeping.
type source struct {
	reader     *pipereader.Reader
	cancel     context.CancelFunc
	wg         sync.WaitGroup
	audioSubs  map[int]chan core.AudioPacket
	audioMu    sync.RWMutex
	nextAudio  int
}

// Router starts at most one pipereader.Reader per monitor and routes its
// packets to subscribers, enforcing the invariant that a monitor never has
// two concurrently active readers.
type Router struct {
	cfg config.RouterConfig
	pipeCfg config.PipeConfig
	log *logger.Logger

	mu      sync.RWMutex
	sources map[core.MonitorID]*source
}

// New constructs a Router.
func New(pipeCfg config.PipeConfig, cfg config.RouterConfig, log *logger.Logger) *Router {
	return &Router{cfg: cfg, pipeCfg: pipeCfg, log: log, sources: make(map[core.MonitorID]*source)}
}

// IsAvailable reports whether the monitor's video FIFO exists on disk,
// regardless of whether a reader is currently running for it.
func (r *Router) IsAvailable(id core.MonitorID) bool {
	r.mu.RLock()
	s, ok := r.sources[id]
	r.mu.RUnlock()
	if ok {
		return s.reader.Exists()
	}
	return pipereader.New(id, r.pipeCfg, r.log).Exists()
}

// GetExistingSource returns the source for a monitor only if one is already
// active; it never starts a new reader.
func (r *Router) GetExistingSource(id core.MonitorID) (*pipereader.Reader, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sources[id]
	if !ok {
		return nil, false
	}
	return s.reader, true
}

// GetSource returns the active source for a monitor, starting a reader if
// auto_start is enabled and none is running yet. It uses a compare-and-insert
// pattern under the router's lock so two concurrent callers racing to start
// the same monitor never produce two readers (P1).
func (r *Router) GetSource(ctx context.Context, id core.MonitorID) (*pipereader.Reader, error) {
	r.mu.Lock()
	if s, ok := r.sources[id]; ok {
		r.mu.Unlock()
		return s.reader, nil
	}

	if len(r.sources) >= r.cfg.MaxActiveSources {
		r.mu.Unlock()
		return nil, &core.ErrReaderStartFailed{MonitorID: id, Reason: "max_active_sources reached"}
	}

	reader := pipereader.New(id, r.pipeCfg, r.log)
	if !reader.Exists() {
		r.mu.Unlock()
		return nil, &core.ErrFifoNotFound{MonitorID: id, Path: reader.VideoPath()}
	}

	readerCtx, cancel := context.WithCancel(ctx)
	s := &source{reader: reader, cancel: cancel, audioSubs: make(map[int]chan core.AudioPacket)}
	r.sources[id] = s
	// inserted under lock before the goroutine starts, so a concurrent
	// GetSource call for the same id observes this entry and never starts
	// a second reader for the monitor.
	r.mu.Unlock()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		reader.Run(readerCtx)
	}()

	r.log.Info("started source reader", "monitor_id", id)
	return reader, nil
}

// StopReader stops and removes the reader for a monitor, if one is running.
func (r *Router) StopReader(id core.MonitorID) {
	r.mu.Lock()
	s, ok := r.sources[id]
	if ok {
		delete(r.sources, id)
	}
	r.mu.Unlock()

	if !ok {
		return
	}
	s.cancel()
	s.wg.Wait()
	r.log.Info("stopped source reader", "monitor_id", id)
}

// SubscribeVideo subscribes to a monitor's video packets, starting the
// reader first if necessary.
func (r *Router) SubscribeVideo(ctx context.Context, id core.MonitorID) (<-chan core.RawPacket, func(), error) {
	reader, err := r.GetSource(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	ch, unsub := reader.Subscribe(r.cfg.ChannelCapacity)
	return ch, unsub, nil
}

// ActiveMonitorIDs returns the IDs of all monitors with a running reader.
func (r *Router) ActiveMonitorIDs() []core.MonitorID {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]core.MonitorID, 0, len(r.sources))
	for id := range r.sources {
		ids = append(ids, id)
	}
	return ids
}

// ActiveSourceCount returns the number of monitors with a running reader.
func (r *Router) ActiveSourceCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sources)
}

// SourceStats reports the current observable state of a monitor's source.
func (r *Router) SourceStats(id core.MonitorID) (core.SourceStats, bool) {
	r.mu.RLock()
	s, ok := r.sources[id]
	r.mu.RUnlock()
	if !ok {
		return core.SourceStats{}, false
	}
	s.audioMu.RLock()
	audioSubs := len(s.audioSubs)
	s.audioMu.RUnlock()
	return core.SourceStats{
		MonitorID:        id,
		Codec:            s.reader.Codec(),
		Active:           s.reader.Health() == core.ReaderActive,
		VideoSubscribers: s.reader.SubscriberCount(),
		AudioSubscribers: audioSubs,
		HasAudio:         audioSubs > 0,
	}, true
}

// Stats reports SourceStats for every currently active monitor.
func (r *Router) Stats() []core.SourceStats {
	r.mu.RLock()
	ids := make([]core.MonitorID, 0, len(r.sources))
	for id := range r.sources {
		ids = append(ids, id)
	}
	r.mu.RUnlock()

	out := make([]core.SourceStats, 0, len(ids))
	for _, id := range ids {
		if st, ok := r.SourceStats(id); ok {
			out = append(out, st)
		}
	}
	return out
}

// Shutdown stops every active reader.
func (r *Router) Shutdown() {
	r.mu.Lock()
	ids := make([]core.MonitorID, 0, len(r.sources))
	for id := range r.sources {
		ids = append(ids, id)
	}
	r.mu.Unlock()

	for _, id := range ids {
		r.StopReader(id)
	}
}
