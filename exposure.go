package uvcview

import (
	"log/slog"

	"github.com/abihf/uvcview/capture"
	"github.com/pkg/errors"
)

// EnableAutoExposure asks for full auto exposure and falls back to
// aperture priority (fixed aperture, variable exposure time) when the
// camera rejects it. Failures are logged and never stop streaming.
func EnableAutoExposure(dev capture.Device) (capture.AEMode, error) {
	slog.Info("Enabling auto exposure")
	err := dev.SetAEMode(capture.AEModeAuto)
	switch {
	case err == nil:
		slog.Info("Enabled auto exposure")
		return capture.AEModeAuto, nil

	case errors.Is(err, capture.ErrNotSupported):
		slog.Info("Full auto exposure not supported, trying aperture priority mode")
		if err := dev.SetAEMode(capture.AEModeAperturePriority); err != nil {
			slog.Warn("Failed to enable aperture priority mode", "error", err)
			return 0, err
		}
		slog.Info("Enabled aperture priority auto exposure mode")
		return capture.AEModeAperturePriority, nil

	default:
		slog.Warn("Failed to enable auto exposure mode", "error", err)
		return 0, err
	}
}
