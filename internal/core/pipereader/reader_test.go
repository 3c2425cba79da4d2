package pipereader

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/zmstream/streamcore/internal/config"
	"github.com/zmstream/streamcore/internal/core"
	"github.com/zmstream/streamcore/internal/logger"
)

func TestDetectCodecH264(t *testing.T) {
	sps := []byte{0x00, 0x00, 0x00, 0x01, 0x67, 0x42, 0x00, 0x1F}
	assert.Equal(t, core.CodecH264, detectCodec(sps))

	pps := []byte{0x00, 0x00, 0x00, 0x01, 0x68, 0xCE, 0x3C, 0x80}
	assert.Equal(t, core.CodecH264, detectCodec(pps))

	idr := []byte{0x00, 0x00, 0x00, 0x01, 0x65, 0x88, 0x84, 0x00}
	assert.Equal(t, core.CodecH264, detectCodec(idr))
}

func TestDetectCodecH265(t *testing.T) {
	vps := []byte{0x00, 0x00, 0x00, 0x01, 0x40, 0x01, 0x0C, 0x01}
	assert.Equal(t, core.CodecH265, detectCodec(vps))

	sps := []byte{0x00, 0x00, 0x00, 0x01, 0x42, 0x01, 0x01, 0x01}
	assert.Equal(t, core.CodecH265, detectCodec(sps))
}

func TestIsKeyframeH264(t *testing.T) {
	idr := []byte{0x00, 0x00, 0x00, 0x01, 0x65, 0x88, 0x84, 0x00}
	assert.True(t, isKeyframe(idr, core.CodecH264))

	nonIDR := []byte{0x00, 0x00, 0x00, 0x01, 0x41, 0x9A, 0x21, 0x58}
	assert.False(t, isKeyframe(nonIDR, core.CodecH264))
}

func TestIsKeyframeH265(t *testing.T) {
	idr := []byte{0x00, 0x00, 0x00, 0x01, 0x26, 0x01, 0xAF, 0x08}
	assert.True(t, isKeyframe(idr, core.CodecH265))

	nonIRAP := []byte{0x00, 0x00, 0x00, 0x01, 0x02, 0x01, 0xD0, 0x00}
	assert.False(t, isKeyframe(nonIRAP, core.CodecH265))
}

func TestNewReaderPaths(t *testing.T) {
	cfg := config.PipeConfig{
		BaseDir:     "/tmp",
		VideoSuffix: ".video",
		AudioSuffix: ".audio",
	}
	r := New(core.MonitorID(42), cfg, logger.Default())

	assert.Equal(t, core.MonitorID(42), r.MonitorID())
	assert.Equal(t, "/tmp/42.video", r.VideoPath())
	assert.Equal(t, core.CodecUnknown, r.Codec())
	assert.Equal(t, core.ReaderIdle, r.Health())
}

func TestSubscribeUnsubscribe(t *testing.T) {
	cfg := config.PipeConfig{BaseDir: "/tmp", VideoSuffix: ".video"}
	r := New(core.MonitorID(1), cfg, logger.Default())

	ch, unsub := r.Subscribe(4)
	assert.Equal(t, 1, r.SubscriberCount())

	r.broadcast(core.RawPacket{MonitorID: 1, Data: []byte{1, 2, 3}})
	pkt := <-ch
	assert.Equal(t, []byte{1, 2, 3}, pkt.Data)

	unsub()
	assert.Equal(t, 0, r.SubscriberCount())
}
