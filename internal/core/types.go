// Package core defines the shared domain types, error taxonomy, and wire
// formats used across the stream core's components.
package core

import "time"

// MonitorID identifies a camera source by its ZoneMinder monitor ID.
type MonitorID uint32

// Codec identifies the video codec carried by a source.
type Codec string

const (
	CodecH264    Codec = "h264"
	CodecH265    Codec = "h265"
	CodecUnknown Codec = "unknown"
)

// AudioCodec identifies the audio codec carried by a source, mirroring the
// codec vocabulary a monitor's audio FIFO may advertise.
type AudioCodec string

const (
	AudioCodecAAC      AudioCodec = "aac"
	AudioCodecG711Alaw AudioCodec = "g711_alaw"
	AudioCodecG711Ulaw AudioCodec = "g711_ulaw"
	AudioCodecOpus     AudioCodec = "opus"
	AudioCodecUnknown  AudioCodec = "unknown"
)

// String returns the wire-level string form of the audio codec.
func (a AudioCodec) String() string {
	switch a {
	case AudioCodecAAC, AudioCodecG711Alaw, AudioCodecG711Ulaw, AudioCodecOpus:
		return string(a)
	default:
		return string(AudioCodecUnknown)
	}
}

// RawPacket is a single access unit read from a monitor's video FIFO.
type RawPacket struct {
	MonitorID   MonitorID
	Codec       Codec
	TimestampUs int64
	Keyframe    bool
	Data        []byte
}

// AudioPacket is a single frame read from a monitor's audio FIFO.
type AudioPacket struct {
	MonitorID   MonitorID
	Codec       AudioCodec
	TimestampUs int64
	Data        []byte
}

// ReaderHealth describes the lifecycle state of a pipe reader goroutine.
type ReaderHealth string

const (
	ReaderIdle         ReaderHealth = "idle"
	ReaderOpening      ReaderHealth = "opening"
	ReaderActive       ReaderHealth = "active"
	ReaderReconnecting ReaderHealth = "reconnecting"
	ReaderStopped      ReaderHealth = "stopped"
)

// SourceStats reports the observable state of a single monitor's source.
type SourceStats struct {
	MonitorID       MonitorID
	Codec           Codec
	Active          bool
	VideoSubscribers int
	AudioSubscribers int
	HasAudio        bool
}

// HLSSessionStats reports the observable state of a single monitor's HLS session.
type HLSSessionStats struct {
	MonitorID        MonitorID
	Uptime           time.Duration
	SegmentCount     uint64
	BytesWritten     uint64
	ViewerCount      int
	CurrentSequence  uint64
	HasInitSegment   bool
}
