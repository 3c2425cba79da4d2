package snapshot

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/zmstream/streamcore/internal/config"
	"github.com/zmstream/streamcore/internal/logger"
)

func TestNewDecodePoolDefaultsWorkerCount(t *testing.T) {
	p := newDecodePool(config.SnapshotConfig{}, logger.Default())
	defer p.close()

	assert.Equal(t, 8, cap(p.jobs))
}
