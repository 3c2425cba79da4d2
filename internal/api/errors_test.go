package api

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/zmstream/streamcore/internal/core"
)

func TestClassifySourceUnavailableIs404(t *testing.T) {
	status, kind := classify(&core.ErrSourceUnavailable{MonitorID: 1})
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "source_unavailable", kind)
}

func TestClassifyInitNotReadyIs503(t *testing.T) {
	status, _ := classify(&core.ErrInitNotReady{MonitorID: 1})
	assert.Equal(t, http.StatusServiceUnavailable, status)
}

func TestClassifyTimeoutIs504(t *testing.T) {
	status, _ := classify(&core.ErrTimeout{MonitorID: 1, Operation: "playlist_reload"})
	assert.Equal(t, http.StatusGatewayTimeout, status)
}

func TestClassifyPTZNoCapabilityIs503(t *testing.T) {
	status, _ := classify(&core.PTZError{Kind: core.PTZErrNoCapability})
	assert.Equal(t, http.StatusServiceUnavailable, status)
}

func TestClassifyPTZRateLimitedIs429(t *testing.T) {
	status, _ := classify(&core.PTZError{Kind: core.PTZErrRateLimited})
	assert.Equal(t, http.StatusTooManyRequests, status)
}

func TestClassifyUnknownErrorIsInternal(t *testing.T) {
	status, kind := classify(assert.AnError)
	assert.Equal(t, http.StatusInternalServerError, status)
	assert.Equal(t, "internal", kind)
}
