// Package segmenter assembles access units read from a monitor's source into
// fragmented MP4 init and media segments using Eyevinn/mp4ff.
package segmenter

import (
	"bytes"
	"fmt"
	"sync"

	"github.com/Eyevinn/mp4ff/avc"
	"github.com/Eyevinn/mp4ff/hevc"
	"github.com/Eyevinn/mp4ff/mp4"

	"github.com/zmstream/streamcore/internal/core"
	"github.com/zmstream/streamcore/internal/logger"
)

// fmp4Timescale is the standard 90kHz video timescale.
const fmp4Timescale = 90000

// H.264 NAL unit type values (low 5 bits of the header byte).
const (
	nalTypeSPS = 7
	nalTypePPS = 8
)

// H.265 NAL unit type values (bits 1-6 of the header byte).
const (
	nalTypeVPSH265 = 32
	nalTypeSPSH265 = 33
	nalTypePPSH265 = 34
)

// naluType returns a NAL unit's type field for the given codec.
func naluType(nalu []byte, codec core.Codec) int {
	if len(nalu) == 0 {
		return -1
	}
	if codec == core.CodecH265 {
		return int((nalu[0] >> 1) & 0x3F)
	}
	return int(nalu[0] & 0x1F)
}

// isParamSet reports whether a NAL unit carries out-of-band parameter set
// data (VPS/SPS/PPS) rather than frame data.
func isParamSet(t int, codec core.Codec) bool {
	if codec == core.CodecH265 {
		return t == nalTypeVPSH265 || t == nalTypeSPSH265 || t == nalTypePPSH265
	}
	return t == nalTypeSPS || t == nalTypePPS
}

// Segment is a single completed fMP4 media segment (moof+mdat), ready to be
// handed to an HLS session for storage and playlist bookkeeping.
type Segment struct {
	Sequence   uint64
	Data       []byte
	Duration   uint32 // in fmp4Timescale units
	Keyframe   bool
}

// Segmenter turns a monitor's stream of access units into an init segment
// plus a sequence of media segments, closing a segment on every keyframe
// boundary after the configured minimum duration has elapsed.
type Segmenter struct {
	monitorID core.MonitorID
	log       *logger.Logger
	minDur    uint32 // minimum segment duration in fmp4Timescale units

	mu          sync.Mutex
	codec       core.Codec
	vps         []byte
	sps         []byte
	pps         []byte
	width       uint32
	height      uint32
	initialized bool
	initSegment []byte

	frameNum uint32
	sequence uint64
	baseTime int64

	// au buffers the access unit currently being assembled: every NAL unit
	// sharing auTimestampUs belongs to the same displayed frame.
	auOpen        bool
	auData        []byte
	auKeyframe    bool
	auTimestampUs int64

	pending    []sampleUnit
	pendingDur uint32
}

type sampleUnit struct {
	data       []byte
	keyframe   bool
	dur        uint32
}

// New constructs a Segmenter for one monitor, closing segments no shorter
// than minDurUs (converted to the 90kHz timescale internally).
func New(monitorID core.MonitorID, minDurUs int64, log *logger.Logger) *Segmenter {
	return &Segmenter{
		monitorID: monitorID,
		log:       log,
		minDur:    uint32(minDurUs * fmp4Timescale / 1_000_000),
	}
}

// HasInit reports whether the init segment has been generated yet.
func (s *Segmenter) HasInit() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.initialized
}

// InitSegment returns the generated init segment bytes, or an error if SPS/PPS
// haven't been seen yet.
func (s *Segmenter) InitSegment() ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.initialized {
		return nil, &core.ErrInitNotReady{MonitorID: s.monitorID}
	}
	return s.initSegment, nil
}

// Push feeds one NAL unit into the segmenter. NAL units sharing a timestamp
// are buffered into a single access unit (one displayed frame); only once a
// new timestamp arrives is the previous access unit closed out and appended
// as a sample. It returns a completed Segment whenever that append crosses a
// keyframe boundary past the configured minimum duration, or ok=false if no
// segment closed yet.
func (s *Segmenter) Push(pkt core.RawPacket) (Segment, bool, error) {
	if pkt.Codec != core.CodecH264 && pkt.Codec != core.CodecH265 {
		return Segment{}, false, fmt.Errorf("segmenter only supports h264/h265 (got %s)", pkt.Codec)
	}

	nalus := avc.ExtractNalusFromByteStream(pkt.Data)
	if len(nalus) == 0 {
		return Segment{}, false, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.codec = pkt.Codec

	var frameNALUs [][]byte
	for _, nalu := range nalus {
		if len(nalu) == 0 {
			continue
		}
		t := naluType(nalu, s.codec)
		if !isParamSet(t, s.codec) {
			frameNALUs = append(frameNALUs, nalu)
			continue
		}
		switch t {
		case nalTypeVPSH265:
			s.vps = append([]byte(nil), nalu...)
		case nalTypeSPS, nalTypeSPSH265:
			s.sps = append([]byte(nil), nalu...)
		case nalTypePPS, nalTypePPSH265:
			s.pps = append([]byte(nil), nalu...)
		}
	}

	if !s.initialized {
		haveParams := s.sps != nil && s.pps != nil && (s.codec != core.CodecH265 || s.vps != nil)
		if !haveParams {
			return Segment{}, false, nil
		}
		if err := s.buildInitLocked(); err != nil {
			return Segment{}, false, err
		}
		s.initialized = true
		s.baseTime = pkt.TimestampUs
	}

	if len(frameNALUs) == 0 {
		return Segment{}, false, nil
	}

	var data []byte
	for _, nalu := range frameNALUs {
		var lenBuf [4]byte
		putUint32BE(lenBuf[:], uint32(len(nalu)))
		data = append(data, lenBuf[:]...)
		data = append(data, nalu...)
	}

	if s.auOpen && pkt.TimestampUs == s.auTimestampUs {
		s.auData = append(s.auData, data...)
		s.auKeyframe = s.auKeyframe || pkt.Keyframe
		return Segment{}, false, nil
	}

	if !s.auOpen {
		s.auOpen = true
		s.auData = data
		s.auKeyframe = pkt.Keyframe
		s.auTimestampUs = pkt.TimestampUs
		return Segment{}, false, nil
	}

	// pkt.TimestampUs differs from the open access unit: it is complete.
	dur := uint32(1)
	if delta := pkt.TimestampUs - s.auTimestampUs; delta > 0 {
		if d := uint32(delta * fmp4Timescale / 1_000_000); d > 0 {
			dur = d
		}
	}

	closeBoundary := s.auKeyframe && len(s.pending) > 0 && s.pendingDur >= s.minDur

	var seg Segment
	var closed bool
	if closeBoundary {
		var err error
		seg, err = s.flushLocked()
		if err != nil {
			return Segment{}, false, err
		}
		closed = true
	}

	s.pending = append(s.pending, sampleUnit{data: s.auData, keyframe: s.auKeyframe, dur: dur})
	s.pendingDur += dur

	s.auData = data
	s.auKeyframe = pkt.Keyframe
	s.auTimestampUs = pkt.TimestampUs

	return seg, closed, nil
}

func (s *Segmenter) flushLocked() (Segment, error) {
	frag, err := mp4.CreateFragment(s.frameNum+1, 1)
	if err != nil {
		return Segment{}, fmt.Errorf("create fragment: %w", err)
	}

	keyframe := false
	decodeTime := s.baseTime
	for _, u := range s.pending {
		flags := mp4.NonSyncSampleFlags
		if u.keyframe {
			flags = mp4.SyncSampleFlags
			keyframe = true
		}
		frag.AddFullSample(mp4.FullSample{
			Sample: mp4.Sample{
				Flags: flags,
				Dur:   u.dur,
				Size:  uint32(len(u.data)),
			},
			DecodeTime: uint64(decodeTime),
			Data:       u.data,
		})
		decodeTime += int64(u.dur)
	}

	var buf bytes.Buffer
	if err := frag.Encode(&buf); err != nil {
		return Segment{}, fmt.Errorf("encode fragment: %w", err)
	}

	s.frameNum++
	seq := s.sequence
	s.sequence++
	dur := s.pendingDur
	s.baseTime += int64(dur)
	s.pending = nil
	s.pendingDur = 0

	s.log.DebugSegment("closed media segment", "monitor_id", s.monitorID, "sequence", seq, "duration_ticks", dur)

	return Segment{Sequence: seq, Data: buf.Bytes(), Duration: dur, Keyframe: keyframe}, nil
}

func (s *Segmenter) buildInitLocked() error {
	if s.codec == core.CodecH265 {
		return s.buildInitLockedH265()
	}
	return s.buildInitLockedH264()
}

func (s *Segmenter) buildInitLockedH264() error {
	spsInfo, err := avc.ParseSPSNALUnit(s.sps, true)
	if err != nil {
		s.log.Warn("failed to parse sps, keeping prior dimensions", "monitor_id", s.monitorID, "error", err)
	} else {
		s.width = uint32(spsInfo.Width)
		s.height = uint32(spsInfo.Height)
	}

	init := mp4.CreateEmptyInit()
	init.AddEmptyTrack(fmp4Timescale, "video", "und")

	stsd := init.Moov.Trak.Mdia.Minf.Stbl.Stsd
	avcC, err := mp4.CreateAvcC([][]byte{s.sps}, [][]byte{s.pps}, true)
	if err != nil {
		return fmt.Errorf("create avcC: %w", err)
	}
	avcx := mp4.CreateVisualSampleEntryBox("avc1", uint16(s.width), uint16(s.height), avcC)
	stsd.AddChild(avcx)

	var buf bytes.Buffer
	if err := init.Encode(&buf); err != nil {
		return fmt.Errorf("encode init segment: %w", err)
	}

	s.initSegment = buf.Bytes()
	s.log.Info("built init segment", "monitor_id", s.monitorID, "codec", s.codec, "width", s.width, "height", s.height)
	return nil
}

// buildInitLockedH265 mirrors buildInitLockedH264 for HEVC sources, which
// need a VPS in addition to SPS/PPS and carry their parameter sets in an
// hvcC box under an "hvc1" sample entry rather than avcC/avc1.
func (s *Segmenter) buildInitLockedH265() error {
	spsInfo, err := hevc.ParseSPSNALUnit(s.sps)
	if err != nil {
		s.log.Warn("failed to parse sps, keeping prior dimensions", "monitor_id", s.monitorID, "error", err)
	} else {
		s.width = uint32(spsInfo.Width)
		s.height = uint32(spsInfo.Height)
	}

	init := mp4.CreateEmptyInit()
	init.AddEmptyTrack(fmp4Timescale, "video", "und")

	stsd := init.Moov.Trak.Mdia.Minf.Stbl.Stsd
	hvcC, err := mp4.CreateHvcC([][]byte{s.vps}, [][]byte{s.sps}, [][]byte{s.pps}, true, true)
	if err != nil {
		return fmt.Errorf("create hvcC: %w", err)
	}
	hvcx := mp4.CreateVisualSampleEntryBox("hvc1", uint16(s.width), uint16(s.height), hvcC)
	stsd.AddChild(hvcx)

	var buf bytes.Buffer
	if err := init.Encode(&buf); err != nil {
		return fmt.Errorf("encode init segment: %w", err)
	}

	s.initSegment = buf.Bytes()
	s.log.Info("built init segment", "monitor_id", s.monitorID, "codec", s.codec, "width", s.width, "height", s.height)
	return nil
}

func putUint32BE(b []byte, v uint32) {
	b[0] = byte(v >> 24)
	b[1] = byte(v >> 16)
	b[2] = byte(v >> 8)
	b[3] = byte(v)
}
