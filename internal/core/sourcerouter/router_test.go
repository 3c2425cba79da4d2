package sourcerouter

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/zmstream/streamcore/internal/config"
	"github.com/zmstream/streamcore/internal/core"
	"github.com/zmstream/streamcore/internal/logger"
)

func testRouter(t *testing.T) *Router {
	t.Helper()
	pipeCfg := config.PipeConfig{BaseDir: t.TempDir(), VideoSuffix: ".video"}
	routerCfg := config.RouterConfig{ChannelCapacity: 10, AutoStart: true, MaxActiveSources: 2}
	return New(pipeCfg, routerCfg, logger.Default())
}

func TestGetSourceMissingFifoReturnsError(t *testing.T) {
	r := testRouter(t)
	_, err := r.GetSource(context.Background(), core.MonitorID(1))
	assert.Error(t, err)
	var notFound *core.ErrFifoNotFound
	assert.ErrorAs(t, err, &notFound)
}

func TestGetExistingSourceWithoutStart(t *testing.T) {
	r := testRouter(t)
	_, ok := r.GetExistingSource(core.MonitorID(1))
	assert.False(t, ok)
	assert.Equal(t, 0, r.ActiveSourceCount())
}

func TestIsAvailableFalseWithoutFifo(t *testing.T) {
	r := testRouter(t)
	assert.False(t, r.IsAvailable(core.MonitorID(5)))
}

func TestStatsEmptyInitially(t *testing.T) {
	r := testRouter(t)
	assert.Empty(t, r.Stats())
	assert.Empty(t, r.ActiveMonitorIDs())
}
