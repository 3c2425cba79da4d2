// Package playlist builds HLS media and master playlists for the segmenter's
// output, using grafov/m3u8 for the base model and hand-written
// EXT-X-PART-INF / EXT-X-PART lines for the low-latency extensions the base
// library doesn't cover. No EXT-X-PRELOAD-HINT line is written.
package playlist

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/grafov/m3u8"

	"github.com/zmstream/streamcore/internal/core"
)

// Part describes one LL-HLS partial segment within a still-open segment.
type Part struct {
	URI        string
	Duration   float64
	Independent bool
}

// SegmentRef is one entry in a monitor's live sliding-window playlist.
type SegmentRef struct {
	Sequence    uint64
	URI         string
	Duration    float64
	Independent bool
	Parts       []Part
}

// Builder generates a monitor's media playlist, keeping the trailing
// windowSize segments and optionally annotating it with LL-HLS part lines.
type Builder struct {
	monitorID    core.MonitorID
	windowSize   uint
	targetDur    uint
	partTarget   float64
	lowLatency   bool
}

// NewBuilder constructs a playlist Builder for one monitor.
func NewBuilder(monitorID core.MonitorID, windowSize uint, targetDurSeconds uint, lowLatency bool, partTargetSeconds float64) *Builder {
	return &Builder{
		monitorID:  monitorID,
		windowSize: windowSize,
		targetDur:  targetDurSeconds,
		partTarget: partTargetSeconds,
		lowLatency: lowLatency,
	}
}

// Generate renders a live media playlist from the given trailing segments,
// newest last. seqNo is the EXT-X-MEDIA-SEQUENCE of the first segment.
func (b *Builder) Generate(segments []SegmentRef, seqNo uint64) (string, error) {
	mp, err := m3u8.NewMediaPlaylist(b.windowSize, uint(len(segments))+1)
	if err != nil {
		return "", fmt.Errorf("new media playlist: %w", err)
	}
	mp.TargetDuration = float64(b.targetDur)
	mp.SeqNo = seqNo

	for _, seg := range segments {
		if err := mp.Append(seg.URI, seg.Duration, ""); err != nil {
			return "", fmt.Errorf("append segment %d: %w", seg.Sequence, err)
		}
	}

	buf := mp.Encode()
	text := buf.String()

	if b.lowLatency {
		text = b.injectLowLatencyTags(text, segments)
	}

	return text, nil
}

// injectLowLatencyTags inserts EXT-X-PART-INF and per-part EXT-X-PART lines
// for the most recent segment right after #EXTM3U, neither of which
// grafov/m3u8 generates on its own. It writes no EXT-X-PRELOAD-HINT.
func (b *Builder) injectLowLatencyTags(text string, segments []SegmentRef) string {
	var extra bytes.Buffer
	fmt.Fprintf(&extra, "#EXT-X-PART-INF:PART-TARGET=%.3f\n", b.partTarget)

	if len(segments) > 0 {
		last := segments[len(segments)-1]
		for _, p := range last.Parts {
			fmt.Fprintf(&extra, "#EXT-X-PART:DURATION=%.3f,URI=\"%s\"", p.Duration, p.URI)
			if p.Independent {
				extra.WriteString(",INDEPENDENT=YES")
			}
			extra.WriteString("\n")
		}
	}

	return strings.Replace(text, "#EXTM3U\n", "#EXTM3U\n"+extra.String(), 1)
}

// MasterVariant describes one rendition offered by the master playlist.
type MasterVariant struct {
	MonitorID  core.MonitorID
	URI        string
	Bandwidth  uint32
	Codecs     string
	Resolution string
}

// GenerateMaster renders a master playlist listing one variant per monitor.
func GenerateMaster(variants []MasterVariant) (string, error) {
	master := m3u8.NewMasterPlaylist()
	for _, v := range variants {
		master.Append(v.URI, nil, m3u8.VariantParams{
			Bandwidth:  v.Bandwidth,
			Codecs:     v.Codecs,
			Resolution: v.Resolution,
		})
	}
	return master.String(), nil
}
