package webrtcsession

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/pion/rtcp"
	"github.com/pion/rtp"
	"github.com/pion/rtp/codecs"
	"github.com/pion/webrtc/v4"

	"github.com/zmstream/streamcore/internal/core"
	"github.com/zmstream/streamcore/internal/logger"
)

// State is a peer connection's position in the New -> Connecting ->
// Connected -> {Disconnected|Failed} -> Closed lifecycle.
type State int

const (
	StateNew State = iota
	StateConnecting
	StateConnected
	StateDisconnected
	StateFailed
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateNew:
		return "new"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateDisconnected:
		return "disconnected"
	case StateFailed:
		return "failed"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

func fromPionState(s webrtc.PeerConnectionState) State {
	switch s {
	case webrtc.PeerConnectionStateNew:
		return StateNew
	case webrtc.PeerConnectionStateConnecting:
		return StateConnecting
	case webrtc.PeerConnectionStateConnected:
		return StateConnected
	case webrtc.PeerConnectionStateDisconnected:
		return StateDisconnected
	case webrtc.PeerConnectionStateFailed:
		return StateFailed
	case webrtc.PeerConnectionStateClosed:
		return StateClosed
	default:
		return StateNew
	}
}

// Session is one viewer's peer connection for one monitor.
type Session struct {
	monitorID core.MonitorID
	viewerID  string

	pc          *webrtc.PeerConnection
	videoTrack  *webrtc.TrackLocalStaticRTP
	audioTrack  *webrtc.TrackLocalStaticRTP
	videoSender *webrtc.RTPSender
	audioSender *webrtc.RTPSender

	h264Payloader *codecs.H264Payloader
	videoMu       sync.Mutex
	videoSeq      uint16

	audioMu  sync.Mutex
	audioSeq uint16

	stateMu sync.RWMutex
	state   State

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	log *logger.Logger
}

func newSession(ctx context.Context, monitorID core.MonitorID, viewerID string, pc *webrtc.PeerConnection, videoTrack, audioTrack *webrtc.TrackLocalStaticRTP, log *logger.Logger) (*Session, error) {
	sessCtx, cancel := context.WithCancel(ctx)

	s := &Session{
		monitorID:     monitorID,
		viewerID:      viewerID,
		pc:            pc,
		videoTrack:    videoTrack,
		audioTrack:    audioTrack,
		h264Payloader: &codecs.H264Payloader{},
		videoSeq:      uint16(time.Now().UnixNano() & 0xFFFF),
		state:         StateNew,
		ctx:           sessCtx,
		cancel:        cancel,
		log:           log,
	}

	for _, sender := range pc.GetSenders() {
		if sender.Track() == nil {
			continue
		}
		switch sender.Track().Kind() {
		case webrtc.RTPCodecTypeVideo:
			s.videoSender = sender
		case webrtc.RTPCodecTypeAudio:
			s.audioSender = sender
		}
	}

	pc.OnConnectionStateChange(func(pcs webrtc.PeerConnectionState) {
		s.stateMu.Lock()
		s.state = fromPionState(pcs)
		s.stateMu.Unlock()
		s.log.DebugWebRTC("peer connection state changed", "monitor_id", monitorID, "viewer_id", viewerID, "state", pcs.String())
	})

	s.startRTCPReaders()

	return s, nil
}

// State reports the session's last observed connection state.
func (s *Session) State() State {
	s.stateMu.RLock()
	defer s.stateMu.RUnlock()
	return s.state
}

// ProcessOffer completes the answer side of SDP negotiation.
func (s *Session) ProcessOffer(sdp string) (string, error) {
	offer := webrtc.SessionDescription{Type: webrtc.SDPTypeOffer, SDP: sdp}
	if err := s.pc.SetRemoteDescription(offer); err != nil {
		return "", &core.ErrInvalidSDP{Reason: err.Error()}
	}

	answer, err := s.pc.CreateAnswer(nil)
	if err != nil {
		return "", fmt.Errorf("create answer: %w", err)
	}
	if err := s.pc.SetLocalDescription(answer); err != nil {
		return "", fmt.Errorf("set local description: %w", err)
	}

	return answer.SDP, nil
}

// CreateOffer starts the offer side of SDP negotiation (used when the server
// initiates, e.g. for a re-negotiation after track changes).
func (s *Session) CreateOffer() (string, error) {
	offer, err := s.pc.CreateOffer(nil)
	if err != nil {
		return "", fmt.Errorf("create offer: %w", err)
	}
	if err := s.pc.SetLocalDescription(offer); err != nil {
		return "", fmt.Errorf("set local description: %w", err)
	}
	return offer.SDP, nil
}

// ProcessAnswer completes the offer side of SDP negotiation.
func (s *Session) ProcessAnswer(sdp string) error {
	answer := webrtc.SessionDescription{Type: webrtc.SDPTypeAnswer, SDP: sdp}
	if err := s.pc.SetRemoteDescription(answer); err != nil {
		return &core.ErrInvalidSDP{Reason: err.Error()}
	}
	return nil
}

// AddICECandidate feeds one trickled candidate in, valid any time after
// SetRemoteDescription has run.
func (s *Session) AddICECandidate(candidate string, mid *string, mlineIndex *uint16) error {
	init := webrtc.ICECandidateInit{
		Candidate:     candidate,
		SDPMid:        mid,
		SDPMLineIndex: mlineIndex,
	}
	return s.pc.AddICECandidate(init)
}

// ForwardVideo packetizes one raw NAL-bearing access unit and writes it to
// the video track, per RFC 6184 STAP-A/FU-A fragmentation.
func (s *Session) ForwardVideo(pkt core.RawPacket) error {
	if s.videoTrack == nil {
		return fmt.Errorf("no video track")
	}

	const mtu = 1200
	payloads := s.h264Payloader.Payload(mtu, pkt.Data)
	if len(payloads) == 0 {
		return nil
	}

	timestamp := uint32((pkt.TimestampUs * 90) / 1000)

	s.videoMu.Lock()
	seq := s.videoSeq
	s.videoMu.Unlock()

	for i, payload := range payloads {
		packet := &rtp.Packet{
			Header: rtp.Header{
				Version:        2,
				PayloadType:    videoPayloadType,
				SequenceNumber: seq,
				Timestamp:      timestamp,
				Marker:         i == len(payloads)-1,
			},
			Payload: payload,
		}
		if err := s.videoTrack.WriteRTP(packet); err != nil {
			if err == io.ErrClosedPipe {
				return nil
			}
			return fmt.Errorf("write video RTP: %w", err)
		}
		seq++
	}

	s.videoMu.Lock()
	s.videoSeq = seq
	s.videoMu.Unlock()

	return nil
}

// ForwardAudio writes one already-encoded audio packet straight to the audio
// track, matching the teacher's direct-write pattern for non-NAL media.
func (s *Session) ForwardAudio(pkt core.AudioPacket) error {
	if s.audioTrack == nil {
		return fmt.Errorf("no audio track")
	}

	s.audioMu.Lock()
	defer s.audioMu.Unlock()

	clockRate := uint32(opusClockRate)
	payloadType := opusPayloadType
	if pkt.Codec == core.AudioCodecG711Alaw || pkt.Codec == core.AudioCodecG711Ulaw {
		clockRate = pcmuClockRate
		payloadType = pcmuPayloadType
	}

	timestamp := uint32((pkt.TimestampUs * int64(clockRate)) / 1_000_000)

	packet := &rtp.Packet{
		Header: rtp.Header{
			Version:        2,
			PayloadType:    payloadType,
			SequenceNumber: s.audioSeq,
			Timestamp:      timestamp,
		},
		Payload: pkt.Data,
	}
	s.audioSeq++

	if err := s.audioTrack.WriteRTP(packet); err != nil {
		if err == io.ErrClosedPipe {
			return nil
		}
		return fmt.Errorf("write audio RTP: %w", err)
	}
	return nil
}

// startRTCPReaders drains PLI/FIR/REMB feedback so pion's internal buffers
// don't back up; a future keyframe-request hook can key off the PLI case.
func (s *Session) startRTCPReaders() {
	if s.videoSender != nil {
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.readRTCP(s.videoSender, "video")
		}()
	}
	if s.audioSender != nil {
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.readRTCP(s.audioSender, "audio")
		}()
	}
}

func (s *Session) readRTCP(sender *webrtc.RTPSender, track string) {
	for {
		packets, _, err := sender.ReadRTCP()
		if err != nil {
			return
		}
		for _, packet := range packets {
			switch pkt := packet.(type) {
			case *rtcp.PictureLossIndication:
				s.log.DebugWebRTC("PLI received", "monitor_id", s.monitorID, "viewer_id", s.viewerID, "track", track, "ssrc", pkt.MediaSSRC)
			case *rtcp.FullIntraRequest:
				s.log.DebugWebRTC("FIR received", "monitor_id", s.monitorID, "viewer_id", s.viewerID, "track", track)
			}
		}

		select {
		case <-s.ctx.Done():
			return
		default:
		}
	}
}

// Close tears down the peer connection and waits for RTCP readers to exit.
func (s *Session) Close() error {
	s.cancel()
	var err error
	if s.pc != nil {
		err = s.pc.Close()
	}
	s.wg.Wait()

	s.stateMu.Lock()
	s.state = StateClosed
	s.stateMu.Unlock()

	return err
}
