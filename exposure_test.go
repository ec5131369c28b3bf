package uvcview

import (
	"testing"

	"github.com/abihf/uvcview/capture"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnableAutoExposure(t *testing.T) {
	dev := &fakeDevice{rec: &recorder{}}

	mode, err := EnableAutoExposure(dev)
	require.NoError(t, err)
	assert.Equal(t, capture.AEModeAuto, mode)
	assert.Equal(t, []capture.AEMode{capture.AEModeAuto}, dev.aeCalls)
}

func TestEnableAutoExposureFallsBackToAperturePriority(t *testing.T) {
	dev := &fakeDevice{rec: &recorder{}, aeErr: map[capture.AEMode]error{
		capture.AEModeAuto: errors.Wrap(capture.ErrNotSupported, "pipe"),
	}}

	mode, err := EnableAutoExposure(dev)
	require.NoError(t, err)
	assert.Equal(t, capture.AEModeAperturePriority, mode)
	assert.Equal(t, []capture.AEMode{capture.AEModeAuto, capture.AEModeAperturePriority}, dev.aeCalls)
}

func TestEnableAutoExposureFallbackFails(t *testing.T) {
	dev := &fakeDevice{rec: &recorder{}, aeErr: map[capture.AEMode]error{
		capture.AEModeAuto:             capture.ErrNotSupported,
		capture.AEModeAperturePriority: capture.ErrNotSupported,
	}}

	_, err := EnableAutoExposure(dev)
	assert.ErrorIs(t, err, capture.ErrNotSupported)
	assert.Len(t, dev.aeCalls, 2)
}

func TestEnableAutoExposureOtherErrorNoFallback(t *testing.T) {
	boom := errors.New("device gone")
	dev := &fakeDevice{rec: &recorder{}, aeErr: map[capture.AEMode]error{capture.AEModeAuto: boom}}

	_, err := EnableAutoExposure(dev)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, []capture.AEMode{capture.AEModeAuto}, dev.aeCalls)
}
