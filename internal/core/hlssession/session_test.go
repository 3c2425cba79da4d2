package hlssession

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/zmstream/streamcore/internal/config"
	"github.com/zmstream/streamcore/internal/core"
	"github.com/zmstream/streamcore/internal/core/hlsstorage"
	"github.com/zmstream/streamcore/internal/logger"
)

func testHLSConfig(t *testing.T) config.HLSConfig {
	t.Helper()
	return config.HLSConfig{
		StorageDir:      t.TempDir(),
		SegmentDuration: 2 * time.Second,
		PlaylistSize:    6,
		PartDuration:    200 * time.Millisecond,
	}
}

func TestWaitForSegmentTimesOutWithoutProgress(t *testing.T) {
	storage := hlsstorage.New(t.TempDir())
	sess := New(core.MonitorID(1), storage, Config{SegmentDurationUs: 2_000_000, PlaylistSize: 6}, logger.Default())

	err := sess.WaitForSegment(context.Background(), 1, 50*time.Millisecond)
	assert.Error(t, err)
}

func TestStatsInitiallyEmpty(t *testing.T) {
	storage := hlsstorage.New(t.TempDir())
	sess := New(core.MonitorID(1), storage, Config{SegmentDurationUs: 2_000_000, PlaylistSize: 6}, logger.Default())

	stats := sess.Stats()
	assert.Equal(t, core.MonitorID(1), stats.MonitorID)
	assert.False(t, stats.HasInitSegment)
	assert.Equal(t, uint64(0), stats.SegmentCount)
}

func TestManagerStartStopSession(t *testing.T) {
	m := NewManager(testHLSConfig(t), logger.Default())

	_, err := m.StartSession(core.MonitorID(1))
	assert.NoError(t, err)
	assert.True(t, m.HasSession(core.MonitorID(1)))

	_, err = m.StartSession(core.MonitorID(1))
	assert.Error(t, err)

	assert.NoError(t, m.StopSession(core.MonitorID(1)))
	assert.False(t, m.HasSession(core.MonitorID(1)))
}
