package snapshot

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/zmstream/streamcore/internal/config"
	"github.com/zmstream/streamcore/internal/core"
	"github.com/zmstream/streamcore/internal/core/sourcerouter"
	"github.com/zmstream/streamcore/internal/logger"
)

func testSnapshotConfig() config.SnapshotConfig {
	return config.SnapshotConfig{
		CacheTTL:        2 * time.Second,
		KeyframeTimeout: 50 * time.Millisecond,
		JPEGQuality:     2,
		WorkerPoolSize:  2,
	}
}

func TestCaptureKeyframeFailsWithoutFifo(t *testing.T) {
	router := sourcerouter.New(config.PipeConfig{BaseDir: t.TempDir()}, config.RouterConfig{ChannelCapacity: 8, MaxActiveSources: 1}, logger.Default())
	svc := New(router, testSnapshotConfig(), logger.Default())
	defer svc.Close()

	_, err := svc.Get(context.Background(), core.MonitorID(99))
	assert.Error(t, err)

	var notFound *core.ErrFifoNotFound
	assert.True(t, errors.As(err, &notFound))
}

func TestCacheServesWithinTTL(t *testing.T) {
	router := sourcerouter.New(config.PipeConfig{BaseDir: t.TempDir()}, config.RouterConfig{ChannelCapacity: 8}, logger.Default())
	svc := New(router, testSnapshotConfig(), logger.Default())
	defer svc.Close()

	svc.mu.Lock()
	svc.cache[core.MonitorID(1)] = cachedSnapshot{jpeg: []byte("jpeg-bytes"), capturedAt: time.Now()}
	svc.mu.Unlock()

	got, err := svc.Get(context.Background(), core.MonitorID(1))
	assert.NoError(t, err)
	assert.Equal(t, []byte("jpeg-bytes"), got)
}
