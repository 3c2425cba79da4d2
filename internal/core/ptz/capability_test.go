package ptz

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestScalePanSpeed(t *testing.T) {
	cap := Capability{MinPanSpeed: 0, MaxPanSpeed: 10}
	assert.Equal(t, 0.0, cap.ScalePanSpeed(0))
	assert.Equal(t, 5.0, cap.ScalePanSpeed(50))
	assert.Equal(t, 10.0, cap.ScalePanSpeed(100))
}

func TestScalePanSpeedClampsOverflow(t *testing.T) {
	cap := Capability{MinPanSpeed: 0, MaxPanSpeed: 10}
	assert.Equal(t, 10.0, cap.ScalePanSpeed(255))
}
