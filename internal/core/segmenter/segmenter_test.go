package segmenter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zmstream/streamcore/internal/core"
	"github.com/zmstream/streamcore/internal/logger"
)

func annexB(nalType byte, payload ...byte) []byte {
	out := []byte{0x00, 0x00, 0x00, 0x01, nalType}
	return append(out, payload...)
}

func TestSegmenterWaitsForSPSPPS(t *testing.T) {
	s := New(core.MonitorID(1), 2_000_000, logger.Default())
	assert.False(t, s.HasInit())

	_, ok, err := s.Push(core.RawPacket{Codec: core.CodecH264, Data: annexB(0x65, 0x88, 0x84)})
	require.NoError(t, err)
	assert.False(t, ok)
	assert.False(t, s.HasInit())
}

func TestSegmenterBuildsInitAfterSPSPPS(t *testing.T) {
	s := New(core.MonitorID(1), 2_000_000, logger.Default())

	sps := annexB(0x67, 0x42, 0x00, 0x1F, 0xE9, 0x02, 0xC1, 0x2C, 0x80)
	_, _, err := s.Push(core.RawPacket{Codec: core.CodecH264, Data: sps, TimestampUs: 0})
	require.NoError(t, err)

	pps := annexB(0x68, 0xCE, 0x3C, 0x80)
	_, _, err = s.Push(core.RawPacket{Codec: core.CodecH264, Data: pps, TimestampUs: 0})
	require.NoError(t, err)

	idr := annexB(0x65, 0x88, 0x84, 0x00)
	_, _, err = s.Push(core.RawPacket{Codec: core.CodecH264, Data: idr, Keyframe: true, TimestampUs: 33000})
	require.NoError(t, err)

	assert.True(t, s.HasInit())
	init, err := s.InitSegment()
	require.NoError(t, err)
	assert.NotEmpty(t, init)
}

func TestSegmenterRejectsUnknownCodec(t *testing.T) {
	s := New(core.MonitorID(1), 2_000_000, logger.Default())
	_, _, err := s.Push(core.RawPacket{Codec: core.CodecUnknown, Data: []byte{1, 2, 3}})
	assert.Error(t, err)
}

func TestSegmenterBuildsInitForH265(t *testing.T) {
	s := New(core.MonitorID(1), 2_000_000, logger.Default())

	vps := annexB(0x40, 0x01, 0x0C, 0x01, 0xFF, 0xFF, 0x01, 0x60, 0x00, 0x00, 0x03, 0x00, 0x90)
	_, _, err := s.Push(core.RawPacket{Codec: core.CodecH265, Data: vps, TimestampUs: 0})
	require.NoError(t, err)
	assert.False(t, s.HasInit())

	sps := annexB(0x42, 0x01, 0x01, 0x01, 0x60, 0x00, 0x00, 0x03, 0x00, 0x90, 0x00, 0x00, 0x03, 0x00, 0x00, 0x03, 0x00, 0x99, 0xA0)
	_, _, err = s.Push(core.RawPacket{Codec: core.CodecH265, Data: sps, TimestampUs: 0})
	require.NoError(t, err)
	assert.False(t, s.HasInit())

	pps := annexB(0x44, 0x01, 0xC0, 0xF7, 0xC0, 0xCC, 0x90)
	_, _, err = s.Push(core.RawPacket{Codec: core.CodecH265, Data: pps, TimestampUs: 0})
	require.NoError(t, err)

	idr := annexB(0x26, 0x01, 0x88, 0x84, 0x00)
	_, _, err = s.Push(core.RawPacket{Codec: core.CodecH265, Data: idr, Keyframe: true, TimestampUs: 33000})
	require.NoError(t, err)

	assert.True(t, s.HasInit())
	init, err := s.InitSegment()
	require.NoError(t, err)
	assert.NotEmpty(t, init)
}

// TestSegmenterAssemblesAccessUnitByTimestamp verifies that multiple NAL
// units sharing one timestamp are folded into a single sample rather than
// each becoming their own, and that the sample's duration is derived from
// the gap to the next access unit's timestamp rather than a fallback value.
func TestSegmenterAssemblesAccessUnitByTimestamp(t *testing.T) {
	s := New(core.MonitorID(1), 1, logger.Default())

	sps := annexB(0x67, 0x42, 0x00, 0x1F, 0xE9, 0x02, 0xC1, 0x2C, 0x80)
	_, _, err := s.Push(core.RawPacket{Codec: core.CodecH264, Data: sps, TimestampUs: 0})
	require.NoError(t, err)

	pps := annexB(0x68, 0xCE, 0x3C, 0x80)
	_, _, err = s.Push(core.RawPacket{Codec: core.CodecH264, Data: pps, TimestampUs: 0})
	require.NoError(t, err)

	// Two NAL units of the same displayed frame (IDR slice + SEI), sharing
	// timestamp 33000.
	idrSlice := annexB(0x65, 0x88, 0x84, 0x00)
	_, ok, err := s.Push(core.RawPacket{Codec: core.CodecH264, Data: idrSlice, Keyframe: true, TimestampUs: 33000})
	require.NoError(t, err)
	assert.False(t, ok)

	sei := annexB(0x06, 0x01, 0x02, 0x03)
	_, ok, err = s.Push(core.RawPacket{Codec: core.CodecH264, Data: sei, TimestampUs: 33000})
	require.NoError(t, err)
	assert.False(t, ok)

	// A NAL unit at a new timestamp closes out the first access unit as one
	// sample, not two.
	nextFrame := annexB(0x41, 0x9A, 0x02)
	_, ok, err = s.Push(core.RawPacket{Codec: core.CodecH264, Data: nextFrame, TimestampUs: 66000})
	require.NoError(t, err)
	assert.False(t, ok)

	require.Len(t, s.pending, 1)
	assert.Equal(t, uint32(33000*fmp4Timescale/1_000_000), s.pending[0].dur)
}
