// Package snapshot captures a single JPEG frame per monitor on demand,
// piggybacking on an existing pipe reader when one is running and tearing
// down a temporary one otherwise, decoding through an ffmpeg subprocess
// running on a small bounded worker pool.
package snapshot

import (
	"context"
	"sync"
	"time"

	"github.com/zmstream/streamcore/internal/config"
	"github.com/zmstream/streamcore/internal/core"
	"github.com/zmstream/streamcore/internal/core/sourcerouter"
	"github.com/zmstream/streamcore/internal/logger"
)

type cachedSnapshot struct {
	jpeg       []byte
	capturedAt time.Time
}

// Service serves cached JPEG snapshots per monitor.
type Service struct {
	router *sourcerouter.Router
	cfg    config.SnapshotConfig
	log    *logger.Logger

	mu    sync.Mutex
	cache map[core.MonitorID]cachedSnapshot

	decoder *decodePool
}

// New constructs a Service backed by the given source router.
func New(router *sourcerouter.Router, cfg config.SnapshotConfig, log *logger.Logger) *Service {
	return &Service{
		router:  router,
		cfg:     cfg,
		log:     log,
		cache:   make(map[core.MonitorID]cachedSnapshot),
		decoder: newDecodePool(cfg, log),
	}
}

// Close stops the decode worker pool.
func (s *Service) Close() {
	s.decoder.close()
}

// Get returns a JPEG snapshot for a monitor, serving a cached image when
// fresh or capturing and decoding a new one otherwise.
func (s *Service) Get(ctx context.Context, id core.MonitorID) ([]byte, error) {
	s.mu.Lock()
	cached, ok := s.cache[id]
	s.mu.Unlock()
	if ok && time.Since(cached.capturedAt) < s.cfg.CacheTTL {
		s.log.DebugSegment("serving cached snapshot", "monitor_id", id)
		return cached.jpeg, nil
	}

	h264, err := s.captureKeyframe(ctx, id)
	if err != nil {
		return nil, err
	}

	jpeg, err := s.decoder.decode(ctx, h264)
	if err != nil {
		return nil, &core.ErrDecodeFailed{MonitorID: id, Err: err}
	}

	s.mu.Lock()
	s.cache[id] = cachedSnapshot{jpeg: jpeg, capturedAt: time.Now()}
	s.mu.Unlock()

	return jpeg, nil
}

// captureKeyframe prefers an existing reader for the monitor; if none is
// running it starts a temporary one and tears it down afterward. It
// accumulates NAL units from the first keyframe onward until the
// access-unit's timestamp changes, per the contiguous-timestamp access unit
// boundary rule.
func (s *Service) captureKeyframe(ctx context.Context, id core.MonitorID) ([]byte, error) {
	_, exists := s.router.GetExistingSource(id)
	createdTemp := !exists

	videoCh, unsubscribe, err := s.router.SubscribeVideo(ctx, id)
	if err != nil {
		return nil, err
	}
	defer unsubscribe()

	if createdTemp {
		defer s.router.StopReader(id)
	}

	timeoutCtx, cancel := context.WithTimeout(ctx, s.cfg.KeyframeTimeout)
	defer cancel()

	var accessUnit []byte
	var accessUnitTS int64
	haveKeyframe := false

	for {
		select {
		case <-timeoutCtx.Done():
			if haveKeyframe {
				return accessUnit, nil
			}
			return nil, &core.ErrKeyframeTimeout{MonitorID: id}
		case pkt, ok := <-videoCh:
			if !ok {
				return nil, &core.ErrSourceUnavailable{MonitorID: id}
			}
			if !haveKeyframe {
				if !pkt.Keyframe {
					continue
				}
				haveKeyframe = true
				accessUnitTS = pkt.TimestampUs
				accessUnit = append(accessUnit, pkt.Data...)
				continue
			}
			if pkt.TimestampUs != accessUnitTS {
				return accessUnit, nil
			}
			accessUnit = append(accessUnit, pkt.Data...)
		}
	}
}
