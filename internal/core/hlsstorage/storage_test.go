package hlsstorage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zmstream/streamcore/internal/core"
)

func TestWriteReadSegmentRoundtrip(t *testing.T) {
	s := New(t.TempDir())
	data := []byte("fake fmp4 segment data")

	require.NoError(t, s.WriteSegment(core.MonitorID(7), 1, data))

	got, err := s.ReadSegment(core.MonitorID(7), 1)
	require.NoError(t, err)
	assert.Equal(t, data, got)
}

func TestReadSegmentDetectsCorruption(t *testing.T) {
	root := t.TempDir()
	s := New(root)
	data := []byte("segment data")
	require.NoError(t, s.WriteSegment(core.MonitorID(1), 1, data))

	path := s.segmentPath(core.MonitorID(1), 1)
	require.NoError(t, writeAtomic(path, []byte("corrupted data")))

	_, err := s.ReadSegment(core.MonitorID(1), 1)
	assert.Error(t, err)
}

func TestWriteReadInit(t *testing.T) {
	s := New(t.TempDir())
	init := []byte("ftyp moov bytes")
	require.NoError(t, s.WriteInit(core.MonitorID(3), init))

	got, err := s.ReadInit(core.MonitorID(3))
	require.NoError(t, err)
	assert.Equal(t, init, got)
}

func TestRemoveMonitorDeletesDirectory(t *testing.T) {
	s := New(t.TempDir())
	require.NoError(t, s.WriteSegment(core.MonitorID(2), 1, []byte("x")))
	require.NoError(t, s.RemoveMonitor(core.MonitorID(2)))

	_, err := s.ReadSegment(core.MonitorID(2), 1)
	assert.Error(t, err)
}
