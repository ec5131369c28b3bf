// Package uvcview opens a UVC camera, negotiates a stream and shows its
// frames in a window until the window is closed or Escape is pressed.
package uvcview

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/abihf/uvcview/capture"
	"github.com/abihf/uvcview/config"
	"github.com/abihf/uvcview/render"
	"github.com/coreos/go-systemd/v22/daemon"
	"github.com/pkg/errors"
)

// Env supplies the libraries Run drives.
type Env struct {
	OpenBackend func(opt *capture.Option) (capture.Backend, error)
	OpenWindow  func(title string, width, height int) (render.Window, error)
	// Diag receives device and stream control reports, stderr when nil.
	Diag io.Writer
}

// InitError reports a failure before any device was looked at. It is the
// only failure the process exits non-zero for.
type InitError struct {
	Err error
}

func (e *InitError) Error() string {
	return e.Err.Error()
}

func (e *InitError) Unwrap() error {
	return e.Err
}

func (e *InitError) ExitCode() int {
	return 1
}

// Run executes the viewer. Every stage failure is logged and skips the
// stages after it; whatever was acquired is released in reverse order.
func Run(ctx context.Context, conf *config.Config, env Env) error {
	diag := env.Diag
	if diag == nil {
		diag = os.Stderr
	}

	win, err := env.OpenWindow(conf.WindowTitle, conf.WindowWidth, conf.WindowHeight)
	if err != nil {
		slog.Error("Can not create window", "error", err)
		return &InitError{Err: errors.Wrap(err, "Can not create window")}
	}
	defer win.Close()

	backend, err := env.OpenBackend(conf.CaptureOption())
	if err != nil {
		slog.Error("Can not initialize capture backend", "backend", conf.Backend, "error", err)
		return &InitError{Err: errors.Wrap(err, "Can not initialize capture backend")}
	}
	defer func() {
		backend.Close()
		slog.Info("UVC exited")
	}()
	slog.Info("UVC initialized", "backend", conf.Backend)

	filter, err := conf.Filter()
	if err != nil {
		slog.Error("Invalid device filter", "error", err)
		return err
	}
	info, err := backend.FindDevice(filter)
	if err != nil {
		slog.Error("No device found", "error", err)
		return errors.Wrap(err, "Can not find device")
	}
	slog.Info("Device found", "path", info.Path, "name", info.Name)

	dev, err := backend.OpenDevice(info)
	if err != nil {
		slog.Error("Can not open device", "path", info.Path, "error", err)
		return errors.Wrap(err, "Can not open device")
	}
	defer func() {
		dev.Close()
		slog.Info("Device closed")
	}()
	slog.Info("Device opened")

	capture.PrintDiag(diag, dev)

	return play(ctx, conf, win, dev, diag)
}

func play(ctx context.Context, conf *config.Config, win render.Window, dev capture.Device, diag io.Writer) error {
	formats, err := dev.Formats()
	if err != nil {
		slog.Error("Can not read formats", "error", err)
		return errors.Wrap(err, "Can not read formats")
	}
	sel, err := capture.Select(formats, conf.Preference())
	if err != nil {
		slog.Error("Can not select format", "error", err)
		return err
	}
	req := sel.Request

	p, err := newPresenter(win, sel.TextureFormat, req.Width, req.Height,
		render.Rect{W: conf.WindowWidth, H: conf.WindowHeight})
	if err != nil {
		slog.Error("Can not create texture", "error", err)
		return err
	}
	defer p.close()

	slog.Info(fmt.Sprintf("First format: (%4s) %dx%d %dfps", sel.Format.FourCC, req.Width, req.Height, req.FPS))

	ctrl, err := dev.Negotiate(req)
	ctrl.Print(diag)
	if err != nil {
		slog.Error("Device doesn't provide a matching stream", "error", err)
		return errors.Wrap(err, "Can not negotiate stream")
	}

	stream, err := dev.OpenStream(ctrl)
	if err != nil {
		slog.Error("Can not open stream", "error", err)
		return errors.Wrap(err, "Can not open stream")
	}
	defer stream.Close()

	if err := stream.Start(); err != nil {
		slog.Error("Can not start streaming", "error", err)
		return errors.Wrap(err, "Can not start streaming")
	}
	slog.Info("Streaming...")
	daemon.SdNotify(false, daemon.SdNotifyReady)

	if conf.AutoExposure == nil || *conf.AutoExposure {
		EnableAutoExposure(dev)
	}

	p.loop(ctx, stream, conf.FrameTimeout())

	daemon.SdNotify(false, daemon.SdNotifyStopping)
	if err := stream.Stop(); err != nil {
		slog.Warn("Can not stop stream", "error", err)
	}
	slog.Info("Done streaming.")
	return nil
}
