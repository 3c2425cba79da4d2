// Package hlssession manages per-monitor HLS sessions: feeding access units
// into a segmenter, persisting completed segments, maintaining the sliding
// playlist window, and serving blocking-reload playlist requests for
// low-latency clients.
package hlssession

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/zmstream/streamcore/internal/config"
	"github.com/zmstream/streamcore/internal/core"
	"github.com/zmstream/streamcore/internal/core/hlsstorage"
	"github.com/zmstream/streamcore/internal/core/playlist"
	"github.com/zmstream/streamcore/internal/core/segmenter"
	"github.com/zmstream/streamcore/internal/logger"
)

// segmentNotify is a mutex-guarded last-value watch, standing in for a
// broadcast<u64> of the newest completed sequence number.
type segmentNotify struct {
	mu  sync.Mutex
	seq uint64
	ch  chan struct{}
}

func newSegmentNotify() *segmentNotify {
	return &segmentNotify{ch: make(chan struct{})}
}

func (n *segmentNotify) publish(seq uint64) {
	n.mu.Lock()
	n.seq = seq
	old := n.ch
	n.ch = make(chan struct{})
	n.mu.Unlock()
	close(old)
}

func (n *segmentNotify) snapshot() (uint64, chan struct{}) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.seq, n.ch
}

// Session tracks one monitor's live HLS output.
type Session struct {
	monitorID core.MonitorID
	seg       *segmenter.Segmenter
	storage   *hlsstorage.Storage
	pb        *playlist.Builder

	startedAt time.Time

	mu           sync.RWMutex
	window       []playlist.SegmentRef
	windowSize   int
	segmentCount uint64
	bytesWritten uint64
	viewers      map[string]struct{}

	notify *segmentNotify
}

// Config controls a Session's segmenting and playlist behaviour.
type Config struct {
	SegmentDurationUs int64
	PlaylistSize      int
	LowLatency        bool
	PartDurationUs    int64
}

// New constructs a Session for one monitor.
func New(monitorID core.MonitorID, storage *hlsstorage.Storage, cfg Config, log *logger.Logger) *Session {
	targetDurSeconds := uint((cfg.SegmentDurationUs + 999_999) / 1_000_000)
	if targetDurSeconds == 0 {
		targetDurSeconds = 1
	}
	return &Session{
		monitorID:  monitorID,
		seg:        segmenter.New(monitorID, cfg.SegmentDurationUs, log),
		storage:    storage,
		pb:         playlist.NewBuilder(monitorID, uint(cfg.PlaylistSize), targetDurSeconds, cfg.LowLatency, float64(cfg.PartDurationUs)/1_000_000),
		startedAt:  time.Now(),
		windowSize: cfg.PlaylistSize,
		viewers:    make(map[string]struct{}),
		notify:     newSegmentNotify(),
	}
}

// ProcessPacket feeds one access unit through the segmenter and, if it closes
// a segment, persists it and updates the playlist window.
func (s *Session) ProcessPacket(pkt core.RawPacket) error {
	wasInit := s.seg.HasInit()
	seg, closed, err := s.seg.Push(pkt)
	if err != nil {
		return err
	}

	if !wasInit && s.seg.HasInit() {
		init, err := s.seg.InitSegment()
		if err != nil {
			return err
		}
		if err := s.storage.WriteInit(s.monitorID, init); err != nil {
			return err
		}
	}

	if !closed {
		return nil
	}

	if err := s.storage.WriteSegment(s.monitorID, seg.Sequence, seg.Data); err != nil {
		return err
	}

	durSeconds := float64(seg.Duration) / 90000.0
	ref := playlist.SegmentRef{
		Sequence:    seg.Sequence,
		URI:         fmt.Sprintf("segment_%05d.m4s", seg.Sequence),
		Duration:    durSeconds,
		Independent: seg.Keyframe,
	}

	s.mu.Lock()
	s.window = append(s.window, ref)
	if len(s.window) > s.windowSize {
		s.window = s.window[len(s.window)-s.windowSize:]
	}
	s.segmentCount++
	s.bytesWritten += uint64(len(seg.Data))
	s.mu.Unlock()

	s.notify.publish(seg.Sequence)
	return nil
}

// GetInitSegment returns the init segment bytes if ready.
func (s *Session) GetInitSegment() ([]byte, error) {
	return s.seg.InitSegment()
}

// GetSegment reads a previously stored media segment by sequence number.
func (s *Session) GetSegment(sequence uint64) ([]byte, error) {
	return s.storage.ReadSegment(s.monitorID, sequence)
}

// GeneratePlaylist renders the current sliding-window media playlist.
func (s *Session) GeneratePlaylist() (string, error) {
	s.mu.RLock()
	window := append([]playlist.SegmentRef(nil), s.window...)
	var seqNo uint64
	if len(window) > 0 {
		seqNo = window[0].Sequence
	}
	s.mu.RUnlock()

	return s.pb.Generate(window, seqNo)
}

// WaitForSegment blocks until a segment with sequence >= minSequence is
// available, ctx is cancelled, or the deadline elapses, implementing the
// HLS blocking-reload contract for _HLS_msn query parameters.
func (s *Session) WaitForSegment(ctx context.Context, minSequence uint64, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)

	for {
		seq, waitCh := s.notify.snapshot()
		if seq >= minSequence {
			return nil
		}

		remaining := time.Until(deadline)
		if remaining <= 0 {
			return &core.ErrTimeout{MonitorID: s.monitorID, Operation: "playlist_reload"}
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-waitCh:
		case <-time.After(remaining):
			return &core.ErrTimeout{MonitorID: s.monitorID, Operation: "playlist_reload"}
		}
	}
}

// AddViewer registers a viewer by opaque connection ID.
func (s *Session) AddViewer(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.viewers[id] = struct{}{}
}

// RemoveViewer unregisters a viewer.
func (s *Session) RemoveViewer(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.viewers, id)
}

// liveSequences returns the set of segment sequence numbers currently held
// in the playlist window, which the sweep task must never delete regardless
// of file age.
func (s *Session) liveSequences() map[uint64]struct{} {
	s.mu.RLock()
	defer s.mu.RUnlock()
	live := make(map[uint64]struct{}, len(s.window))
	for _, ref := range s.window {
		live[ref.Sequence] = struct{}{}
	}
	return live
}

// Stats reports the session's current observable state.
func (s *Session) Stats() core.HLSSessionStats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var currentSeq uint64
	if len(s.window) > 0 {
		currentSeq = s.window[len(s.window)-1].Sequence
	}

	return core.HLSSessionStats{
		MonitorID:       s.monitorID,
		Uptime:          time.Since(s.startedAt),
		SegmentCount:    s.segmentCount,
		BytesWritten:    s.bytesWritten,
		ViewerCount:     len(s.viewers),
		CurrentSequence: currentSeq,
		HasInitSegment:  s.seg.HasInit(),
	}
}

// Manager owns one Session per monitor plus shared storage and config.
type Manager struct {
	storage *hlsstorage.Storage
	cfg     config.HLSConfig
	log     *logger.Logger
	baseURL string

	mu       sync.RWMutex
	sessions map[core.MonitorID]*Session
}

// NewManager constructs a Manager using the given HLS configuration.
func NewManager(cfg config.HLSConfig, log *logger.Logger) *Manager {
	return &Manager{
		storage:  hlsstorage.New(cfg.StorageDir),
		cfg:      cfg,
		log:      log,
		baseURL:  cfg.BaseURL,
		sessions: make(map[core.MonitorID]*Session),
	}
}

// StartSession creates a new session for a monitor, returning an error if
// one is already running.
func (m *Manager) StartSession(id core.MonitorID) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.sessions[id]; ok {
		return nil, &core.ErrSessionExists{MonitorID: id}
	}

	sessCfg := Config{
		SegmentDurationUs: m.cfg.SegmentDuration.Microseconds(),
		PlaylistSize:      m.cfg.PlaylistSize,
		LowLatency:        m.cfg.LowLatency,
		PartDurationUs:    m.cfg.PartDuration.Microseconds(),
	}
	sess := New(id, m.storage, sessCfg, m.log)
	m.sessions[id] = sess
	m.log.Info("started hls session", "monitor_id", id)
	return sess, nil
}

// StopSession removes and cleans up a monitor's session.
func (m *Manager) StopSession(id core.MonitorID) error {
	m.mu.Lock()
	_, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()

	if !ok {
		return &core.ErrSessionNotFound{MonitorID: id}
	}
	return m.storage.RemoveMonitor(id)
}

// HasSession reports whether a monitor currently has a session.
func (m *Manager) HasSession(id core.MonitorID) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.sessions[id]
	return ok
}

// Get returns a monitor's session.
func (m *Manager) Get(id core.MonitorID) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	sess, ok := m.sessions[id]
	if !ok {
		return nil, &core.ErrSessionNotFound{MonitorID: id}
	}
	return sess, nil
}

// ProcessPacket routes a packet to its monitor's session.
func (m *Manager) ProcessPacket(id core.MonitorID, pkt core.RawPacket) error {
	sess, err := m.Get(id)
	if err != nil {
		return err
	}
	return sess.ProcessPacket(pkt)
}

// RunSweeper runs the background cleanup sweep until ctx is cancelled,
// deleting any on-disk segment whose mtime has exceeded the configured
// retention and whose sequence is no longer in its session's live playlist
// window. A window of size 1 is legal; the sweep still respects retention
// for every sequence outside it.
func (m *Manager) RunSweeper(ctx context.Context) {
	interval := m.cfg.SweepInterval
	if interval <= 0 {
		interval = 60 * time.Second
	}
	retention := m.cfg.SegmentRetention
	if retention <= 0 {
		retention = 60 * time.Minute
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.sweepOnce(retention)
		}
	}
}

func (m *Manager) sweepOnce(retention time.Duration) {
	m.mu.RLock()
	sessions := make(map[core.MonitorID]*Session, len(m.sessions))
	for id, sess := range m.sessions {
		sessions[id] = sess
	}
	m.mu.RUnlock()

	for id, sess := range sessions {
		removed, err := m.storage.Sweep(id, retention, sess.liveSequences())
		if err != nil {
			m.log.Warn("segment sweep failed", "monitor_id", id, "error", err)
			continue
		}
		if removed > 0 {
			m.log.Info("swept stale segments", "monitor_id", id, "removed", removed)
		}
	}
}

// ListSessions returns the monitor IDs with an active session.
func (m *Manager) ListSessions() []core.MonitorID {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ids := make([]core.MonitorID, 0, len(m.sessions))
	for id := range m.sessions {
		ids = append(ids, id)
	}
	return ids
}

// GetStats reports HLSSessionStats for every active session.
func (m *Manager) GetStats() []core.HLSSessionStats {
	m.mu.RLock()
	sessions := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		sessions = append(sessions, s)
	}
	m.mu.RUnlock()

	out := make([]core.HLSSessionStats, 0, len(sessions))
	for _, s := range sessions {
		out = append(out, s.Stats())
	}
	return out
}
