package uvcview

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/abihf/uvcview/capture"
	"github.com/abihf/uvcview/render"
	"github.com/pkg/errors"
)

// presenter owns the texture and the destination rectangle of the window.
type presenter struct {
	win    render.Window
	tex    render.Texture
	format capture.FrameFormat
	width  int
	height int
	dst    render.Rect
}

func newPresenter(win render.Window, format capture.FrameFormat, width, height int, dst render.Rect) (*presenter, error) {
	tex, err := win.CreateTexture(format, width, height)
	if err != nil {
		return nil, errors.Wrap(err, "Can not create texture")
	}
	return &presenter{
		win:    win,
		tex:    tex,
		format: format,
		width:  width,
		height: height,
		dst:    dst,
	}, nil
}

func (p *presenter) close() {
	if p.tex != nil {
		p.tex.Close()
		p.tex = nil
	}
}

// loop runs until a quit request or ctx is done.
func (p *presenter) loop(ctx context.Context, stream capture.Stream, timeout time.Duration) {
	for {
		if p.handleEvent() {
			return
		}
		select {
		case <-ctx.Done():
			return
		default:
		}

		frame, err := stream.GetFrame(timeout)
		if err != nil {
			if errors.Is(err, capture.ErrTimeout) {
				slog.Debug("No frame within timeout", "timeout", timeout)
				continue
			}
			slog.Warn("Unable to get a stream frame", "error", err)
			// the stream won't recover by itself, don't spin on it
			select {
			case <-ctx.Done():
				return
			case <-time.After(timeout):
			}
			continue
		}

		if err := p.present(frame); err != nil {
			if errors.Is(err, render.ErrUnsupportedFormat) {
				slog.Debug("Dropping frame", "format", frame.Format, "sequence", frame.Sequence)
				continue
			}
			slog.Warn("Can not present frame", "sequence", frame.Sequence, "error", err)
		}
	}
}

// handleEvent polls one event and reports whether the loop should end.
func (p *presenter) handleEvent() bool {
	ev, ok := p.win.PollEvent()
	if !ok {
		return false
	}
	switch ev.Type {
	case render.EventKeyDown:
		return ev.Key == render.KeyEscape
	case render.EventQuit:
		return true
	case render.EventResize:
		p.dst.W = ev.Width
		p.dst.H = ev.Height
		slog.Info(fmt.Sprintf("Resize window. Width=%d, height=%d", ev.Width, ev.Height))
	}
	return false
}

func (p *presenter) present(frame *capture.Frame) error {
	if frame.Width != p.width || frame.Height != p.height {
		if err := p.resize(frame.Width, frame.Height); err != nil {
			return err
		}
	}

	var err error
	switch frame.Format {
	case capture.FormatNV12:
		var y, uv []byte
		if y, uv, err = frame.NV12Planes(); err == nil {
			err = p.tex.UpdateNV(y, frame.Width, uv, frame.Width)
		}
	case capture.FormatI420:
		var y, u, v []byte
		if y, u, v, err = frame.I420Planes(); err == nil {
			err = p.tex.UpdateYUV(y, frame.Width, u, frame.ChromaStride(), v, frame.ChromaStride())
		}
	case capture.FormatYUYV:
		err = p.tex.UpdatePacked(frame.Data, frame.Width*2)
	case capture.FormatMJPEG:
		err = p.tex.UpdateCompressed(frame.Data)
	default:
		return errors.Wrap(render.ErrUnsupportedFormat, frame.Format.String())
	}
	if err != nil {
		return errors.Wrap(err, "Can not update texture")
	}
	return p.win.Present(p.tex, p.dst)
}

// resize replaces the texture when the device streams another size than
// the one negotiated.
func (p *presenter) resize(width, height int) error {
	tex, err := p.win.CreateTexture(p.format, width, height)
	if err != nil {
		return errors.Wrapf(err, "Can not create %dx%d texture", width, height)
	}
	slog.Info("Frame size changed", "width", width, "height", height)
	p.close()
	p.tex, p.width, p.height = tex, width, height
	return nil
}
