// Package webrtcsession manages per-viewer WebRTC peer connections: SDP
// negotiation, trickle ICE, and re-packetizing a monitor's NAL/audio stream
// into RTP for delivery over SRTP/DTLS.
package webrtcsession

import (
	"fmt"

	"github.com/pion/interceptor"
	"github.com/pion/webrtc/v4"

	"github.com/zmstream/streamcore/internal/config"
	"github.com/zmstream/streamcore/internal/logger"
)

const (
	videoPayloadType uint8 = 96
	videoClockRate    = 90000
	videoFmtpLine     = "level-asymmetry-allowed=1;packetization-mode=1;profile-level-id=42e01f"

	opusPayloadType uint8 = 111
	opusClockRate    = 48000

	pcmuPayloadType uint8 = 0
	pcmuClockRate    = 8000
)

// Engine holds the shared pion API (media engine + setting engine) that every
// Session is built from. One Engine serves every monitor and viewer.
type Engine struct {
	api *webrtc.API
	cfg config.WebRTCConfig
	log *logger.Logger
}

// NewEngine builds the codec table and ICE timers once for the process
// lifetime.
func NewEngine(cfg config.WebRTCConfig, log *logger.Logger) (*Engine, error) {
	m := &webrtc.MediaEngine{}

	if err := m.RegisterCodec(webrtc.RTPCodecParameters{
		RTPCodecCapability: webrtc.RTPCodecCapability{
			MimeType:    webrtc.MimeTypeH264,
			ClockRate:   videoClockRate,
			SDPFmtpLine: videoFmtpLine,
		},
		PayloadType: webrtc.PayloadType(videoPayloadType),
	}, webrtc.RTPCodecTypeVideo); err != nil {
		return nil, fmt.Errorf("register H264 codec: %w", err)
	}

	if err := m.RegisterCodec(webrtc.RTPCodecParameters{
		RTPCodecCapability: webrtc.RTPCodecCapability{
			MimeType:  webrtc.MimeTypeOpus,
			ClockRate: opusClockRate,
			Channels:  2,
		},
		PayloadType: webrtc.PayloadType(opusPayloadType),
	}, webrtc.RTPCodecTypeAudio); err != nil {
		return nil, fmt.Errorf("register Opus codec: %w", err)
	}

	if err := m.RegisterCodec(webrtc.RTPCodecParameters{
		RTPCodecCapability: webrtc.RTPCodecCapability{
			MimeType:  webrtc.MimeTypePCMU,
			ClockRate: pcmuClockRate,
			Channels:  1,
		},
		PayloadType: webrtc.PayloadType(pcmuPayloadType),
	}, webrtc.RTPCodecTypeAudio); err != nil {
		return nil, fmt.Errorf("register PCMU codec: %w", err)
	}

	i := &interceptor.Registry{}
	if err := webrtc.RegisterDefaultInterceptors(m, i); err != nil {
		return nil, fmt.Errorf("register default interceptors: %w", err)
	}

	se := webrtc.SettingEngine{}
	se.SetICETimeouts(
		cfg.ICEDisconnectTime,
		cfg.ICEFailedTime,
		cfg.ICEKeepalive,
	)

	api := webrtc.NewAPI(
		webrtc.WithMediaEngine(m),
		webrtc.WithInterceptorRegistry(i),
		webrtc.WithSettingEngine(se),
	)

	return &Engine{api: api, cfg: cfg, log: log}, nil
}

func (e *Engine) iceServers() []webrtc.ICEServer {
	servers := make([]webrtc.ICEServer, 0, len(e.cfg.STUNServers)+1)
	for _, s := range e.cfg.STUNServers {
		servers = append(servers, webrtc.ICEServer{URLs: []string{s}})
	}
	if e.cfg.TURNServer != "" {
		servers = append(servers, webrtc.ICEServer{
			URLs:       []string{e.cfg.TURNServer},
			Username:   e.cfg.TURNUsername,
			Credential: e.cfg.TURNCredential,
		})
	}
	return servers
}

// newPeerConnection constructs a bare peer connection with video (and
// optional audio) local tracks already attached, ready for offer/answer.
func (e *Engine) newPeerConnection(trackLabel string, withAudio bool) (*webrtc.PeerConnection, *webrtc.TrackLocalStaticRTP, *webrtc.TrackLocalStaticRTP, error) {
	pc, err := e.api.NewPeerConnection(webrtc.Configuration{ICEServers: e.iceServers()})
	if err != nil {
		return nil, nil, nil, fmt.Errorf("new peer connection: %w", err)
	}

	videoTrack, err := webrtc.NewTrackLocalStaticRTP(
		webrtc.RTPCodecCapability{MimeType: webrtc.MimeTypeH264, ClockRate: videoClockRate},
		"video", trackLabel,
	)
	if err != nil {
		pc.Close()
		return nil, nil, nil, fmt.Errorf("create video track: %w", err)
	}
	if _, err := pc.AddTrack(videoTrack); err != nil {
		pc.Close()
		return nil, nil, nil, fmt.Errorf("add video track: %w", err)
	}

	var audioTrack *webrtc.TrackLocalStaticRTP
	if withAudio {
		audioTrack, err = webrtc.NewTrackLocalStaticRTP(
			webrtc.RTPCodecCapability{MimeType: webrtc.MimeTypeOpus, ClockRate: opusClockRate, Channels: 2},
			"audio", trackLabel,
		)
		if err != nil {
			pc.Close()
			return nil, nil, nil, fmt.Errorf("create audio track: %w", err)
		}
		if _, err := pc.AddTrack(audioTrack); err != nil {
			pc.Close()
			return nil, nil, nil, fmt.Errorf("add audio track: %w", err)
		}
	}

	return pc, videoTrack, audioTrack, nil
}
