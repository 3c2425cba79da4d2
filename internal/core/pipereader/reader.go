// Package pipereader reads access units off a monitor's video named pipe
// and fans them out to subscribers. The audio pipe path is derived from the
// configuration, but the audio pipe is never opened or read.
//
// Wire format per access unit, matching ZoneMinder's FIFO encoder:
//
//	u32 length (big-endian)
//	u32 timestamp_us (big-endian)
//	length bytes of NAL data
//
// A zero length marks the writer side closing the pipe.
package pipereader

import (
	"bufio"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/zmstream/streamcore/internal/config"
	"github.com/zmstream/streamcore/internal/core"
	"github.com/zmstream/streamcore/internal/logger"
)

var errClosed = errors.New("pipe closed by writer")

// healthState is a mutex-guarded watch value: readers observe the current
// health plus a channel that's closed exactly once the reader goroutine
// exits, standing in for a Rust watch channel paired with task completion.
type healthState struct {
	mu      sync.RWMutex
	current core.ReaderHealth
	stopped chan struct{}
}

func newHealthState() *healthState {
	return &healthState{current: core.ReaderIdle, stopped: make(chan struct{})}
}

func (h *healthState) set(s core.ReaderHealth) {
	h.mu.Lock()
	h.current = s
	h.mu.Unlock()
}

func (h *healthState) get() core.ReaderHealth {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.current
}

func (h *healthState) markStopped() {
	h.set(core.ReaderStopped)
	close(h.stopped)
}

// Reader reads one monitor's video FIFO and delivers access units to its
// subscribers via Subscribe. audioPath is recorded but not read.
type Reader struct {
	monitorID core.MonitorID
	videoPath string
	audioPath string
	cfg       config.PipeConfig
	log       *logger.Logger

	codecMu sync.RWMutex
	codec   core.Codec

	health *healthState

	videoMu   sync.RWMutex
	videoSubs map[int]chan core.RawPacket
	nextSub   int
}

// New constructs a Reader for the given monitor using the configured FIFO
// base directory and suffixes.
func New(monitorID core.MonitorID, cfg config.PipeConfig, log *logger.Logger) *Reader {
	videoPath := filepath.Join(cfg.BaseDir, fmt.Sprintf("%d%s", monitorID, cfg.VideoSuffix))
	audioPath := ""
	if cfg.AudioSuffix != "" {
		audioPath = filepath.Join(cfg.BaseDir, fmt.Sprintf("%d%s", monitorID, cfg.AudioSuffix))
	}
	return &Reader{
		monitorID: monitorID,
		videoPath: videoPath,
		audioPath: audioPath,
		cfg:       cfg,
		log:       log,
		codec:     core.CodecUnknown,
		health:    newHealthState(),
		videoSubs: make(map[int]chan core.RawPacket),
	}
}

// MonitorID returns the monitor this reader serves.
func (r *Reader) MonitorID() core.MonitorID { return r.monitorID }

// VideoPath returns the video FIFO path.
func (r *Reader) VideoPath() string { return r.videoPath }

// Codec returns the currently detected codec.
func (r *Reader) Codec() core.Codec {
	r.codecMu.RLock()
	defer r.codecMu.RUnlock()
	return r.codec
}

// Health returns the current reader lifecycle state.
func (r *Reader) Health() core.ReaderHealth { return r.health.get() }

// Stopped returns a channel closed exactly once when the reader goroutine
// has exited for good.
func (r *Reader) Stopped() <-chan struct{} { return r.health.stopped }

// Exists reports whether the video FIFO currently exists on disk.
func (r *Reader) Exists() bool {
	_, err := os.Stat(r.videoPath)
	return err == nil
}

// Subscribe registers a new video packet subscriber and returns its channel
// plus a function to unregister it.
func (r *Reader) Subscribe(bufSize int) (<-chan core.RawPacket, func()) {
	r.videoMu.Lock()
	defer r.videoMu.Unlock()
	id := r.nextSub
	r.nextSub++
	ch := make(chan core.RawPacket, bufSize)
	r.videoSubs[id] = ch
	return ch, func() {
		r.videoMu.Lock()
		defer r.videoMu.Unlock()
		if c, ok := r.videoSubs[id]; ok {
			delete(r.videoSubs, id)
			close(c)
		}
	}
}

// SubscriberCount returns the number of active video subscribers.
func (r *Reader) SubscriberCount() int {
	r.videoMu.RLock()
	defer r.videoMu.RUnlock()
	return len(r.videoSubs)
}

func (r *Reader) broadcast(pkt core.RawPacket) {
	r.videoMu.RLock()
	defer r.videoMu.RUnlock()
	for _, ch := range r.videoSubs {
		select {
		case ch <- pkt:
		default:
			// slow subscriber drops a frame rather than stalling the reader
		}
	}
}

// Run drives the reader's open/read/reconnect lifecycle until ctx is
// cancelled. It never returns until the pipe is permanently torn down or
// the context is done; transient errors retry indefinitely rather than
// giving up, since a monitor's FIFO writer may restart independently.
func (r *Reader) Run(ctx context.Context) {
	defer r.health.markStopped()

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		r.health.set(core.ReaderOpening)
		file, err := r.openWithRetry(ctx)
		if err != nil {
			// context cancelled during open
			return
		}

		r.health.set(core.ReaderActive)
		r.log.DebugPipe("pipe active", "monitor_id", r.monitorID, "path", r.videoPath)
		err = r.readLoop(ctx, file)
		file.Close()

		if ctx.Err() != nil {
			return
		}

		if errors.Is(err, errClosed) {
			r.log.Info("pipe closed by writer, reopening", "monitor_id", r.monitorID)
		} else {
			r.log.Warn("pipe read error, reconnecting", "monitor_id", r.monitorID, "error", err)
		}
		r.health.set(core.ReaderReconnecting)
		select {
		case <-ctx.Done():
			return
		case <-time.After(r.cfg.ReconnectBase):
		}
	}
}

// openWithRetry opens the video FIFO for reading, retrying indefinitely
// (at 5x the base delay while the FIFO path simply doesn't exist yet, and
// at the base delay for every other open failure) until ctx is cancelled.
func (r *Reader) openWithRetry(ctx context.Context) (*os.File, error) {
	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		if !r.Exists() {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(r.cfg.ReconnectBase * 5):
			}
			continue
		}

		// O_RDWR keeps the pipe's read end open across writer restarts;
		// opening O_RDONLY would see EOF every time the writer closes.
		f, err := os.OpenFile(r.videoPath, os.O_RDWR, 0)
		if err != nil {
			r.log.Warn("failed to open pipe", "monitor_id", r.monitorID, "path", r.videoPath, "error", err)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(r.cfg.ReconnectBase):
			}
			continue
		}
		return f, nil
	}
}

func (r *Reader) readLoop(ctx context.Context, f *os.File) error {
	br := bufio.NewReaderSize(f, 65536)
	header := make([]byte, 8)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		// best effort; *os.File read deadlines require a supported fd type
		_ = f.SetReadDeadline(time.Now().Add(r.cfg.ReadTimeout))

		if _, err := io.ReadFull(br, header); err != nil {
			if errors.Is(err, os.ErrDeadlineExceeded) {
				continue
			}
			if errors.Is(err, io.EOF) {
				return errClosed
			}
			return err
		}

		length := binary.BigEndian.Uint32(header[0:4])
		if length == 0 {
			return errClosed
		}
		timestampUs := int64(binary.BigEndian.Uint32(header[4:8]))

		data := make([]byte, length)
		if _, err := io.ReadFull(br, data); err != nil {
			return err
		}

		codec := r.Codec()
		if codec == core.CodecUnknown {
			codec = detectCodec(data)
			r.codecMu.Lock()
			r.codec = codec
			r.codecMu.Unlock()
			r.log.Info("detected codec", "monitor_id", r.monitorID, "codec", codec)
		}

		keyframe := isKeyframe(data, codec)
		r.log.DebugNAL("read access unit", "monitor_id", r.monitorID, "bytes", len(data), "keyframe", keyframe)

		r.broadcast(core.RawPacket{
			MonitorID:   r.monitorID,
			Codec:       codec,
			TimestampUs: timestampUs,
			Keyframe:    keyframe,
			Data:        data,
		})
	}
}

func startCodeOffset(data []byte) int {
	switch {
	case len(data) >= 4 && data[0] == 0 && data[1] == 0 && data[2] == 0 && data[3] == 1:
		return 4
	case len(data) >= 3 && data[0] == 0 && data[1] == 0 && data[2] == 1:
		return 3
	default:
		return 0
	}
}

// detectCodec inspects the first NAL unit's header byte to distinguish
// H.264 from H.265, defaulting to H.264 since it's the common ZoneMinder case.
func detectCodec(data []byte) core.Codec {
	if len(data) < 5 {
		return core.CodecUnknown
	}
	off := startCodeOffset(data)
	if off == 0 || len(data) <= off {
		return core.CodecUnknown
	}
	first := data[off]

	h264Type := first & 0x1F
	if h264Type == 7 || h264Type == 8 || h264Type == 5 {
		return core.CodecH264
	}

	h265Type := (first >> 1) & 0x3F
	if h265Type >= 32 && h265Type <= 34 {
		return core.CodecH265
	}

	return core.CodecH264
}

// isKeyframe reports whether the NAL unit is an IDR (H.264) or IRAP (H.265) frame.
func isKeyframe(data []byte, codec core.Codec) bool {
	if len(data) < 5 {
		return false
	}
	off := startCodeOffset(data)
	if off == 0 || len(data) <= off {
		return false
	}
	first := data[off]

	switch codec {
	case core.CodecH264:
		return first&0x1F == 5
	case core.CodecH265:
		t := (first >> 1) & 0x3F
		return t >= 16 && t <= 21
	default:
		return false
	}
}
