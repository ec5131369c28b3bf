// Package cvwindow implements render.Window on top of OpenCV highgui.
// All calls must come from the thread that created the window.
package cvwindow

import (
	"image"

	"github.com/abihf/uvcview/capture"
	"github.com/abihf/uvcview/render"
	"github.com/pkg/errors"
	"gocv.io/x/gocv"
)

type window struct {
	win    *gocv.Window
	canvas gocv.Mat
	// highgui reports an invisible window until something was shown
	shown bool
}

// New opens a resizable window of the given size.
func New(title string, width, height int) (render.Window, error) {
	if width <= 0 || height <= 0 {
		return nil, errors.Errorf("invalid window size %dx%d", width, height)
	}
	win := gocv.NewWindow(title)
	win.SetWindowProperty(gocv.WindowPropertyAutosize, gocv.WindowNormal)
	win.ResizeWindow(width, height)
	return &window{
		win:    win,
		canvas: gocv.NewMat(),
	}, nil
}

func (w *window) CreateTexture(format capture.FrameFormat, width, height int) (render.Texture, error) {
	if width <= 0 || height <= 0 || width%2 != 0 || height%2 != 0 {
		return nil, errors.Errorf("invalid texture size %dx%d", width, height)
	}
	return &texture{
		format: format,
		width:  width,
		height: height,
		bgr:    gocv.NewMat(),
	}, nil
}

func (w *window) PollEvent() (render.Event, bool) {
	key := w.win.WaitKey(1)
	if w.shown && w.win.GetWindowProperty(gocv.WindowPropertyVisible) < 1 {
		return render.Event{Type: render.EventQuit}, true
	}
	if key >= 0 {
		return render.Event{Type: render.EventKeyDown, Key: key & 0xff}, true
	}
	return render.Event{}, false
}

func (w *window) Present(tex render.Texture, dst render.Rect) error {
	t, ok := tex.(*texture)
	if !ok {
		return errors.Errorf("texture %T does not belong to this window", tex)
	}
	if t.bgr.Empty() {
		return nil
	}
	if dst.W > 0 && dst.H > 0 {
		gocv.Resize(t.bgr, &w.canvas, image.Pt(dst.W, dst.H), 0, 0, gocv.InterpolationLinear)
		w.win.IMShow(w.canvas)
	} else {
		w.win.IMShow(t.bgr)
	}
	w.shown = true
	return nil
}

func (w *window) Close() error {
	w.canvas.Close()
	return w.win.Close()
}

type texture struct {
	format  capture.FrameFormat
	width   int
	height  int
	scratch []byte
	bgr     gocv.Mat
}

func (t *texture) buffer(size int) []byte {
	if cap(t.scratch) < size {
		t.scratch = make([]byte, size)
	}
	t.scratch = t.scratch[:size]
	return t.scratch
}

func (t *texture) UpdateNV(y []byte, yPitch int, uv []byte, uvPitch int) error {
	w, h := t.width, t.height
	buf := t.buffer(w * h * 3 / 2)
	if err := render.CopyPlane(buf[:w*h], w, y, yPitch, w, h); err != nil {
		return errors.Wrap(err, "luma plane")
	}
	if err := render.CopyPlane(buf[w*h:], w, uv, uvPitch, w, h/2); err != nil {
		return errors.Wrap(err, "chroma plane")
	}
	return t.convert(h*3/2, w, gocv.MatTypeCV8UC1, gocv.ColorYUVToBGRNV12)
}

func (t *texture) UpdateYUV(y []byte, yPitch int, u []byte, uPitch int, v []byte, vPitch int) error {
	w, h := t.width, t.height
	cw, ch := w/2, h/2
	buf := t.buffer(w*h + 2*cw*ch)
	if err := render.CopyPlane(buf[:w*h], w, y, yPitch, w, h); err != nil {
		return errors.Wrap(err, "y plane")
	}
	if err := render.CopyPlane(buf[w*h:w*h+cw*ch], cw, u, uPitch, cw, ch); err != nil {
		return errors.Wrap(err, "u plane")
	}
	if err := render.CopyPlane(buf[w*h+cw*ch:], cw, v, vPitch, cw, ch); err != nil {
		return errors.Wrap(err, "v plane")
	}
	return t.convert(h*3/2, w, gocv.MatTypeCV8UC1, gocv.ColorYUVToBGRIYUV)
}

func (t *texture) UpdatePacked(data []byte, pitch int) error {
	w, h := t.width, t.height
	buf := t.buffer(w * h * 2)
	if err := render.CopyPlane(buf, w*2, data, pitch, w*2, h); err != nil {
		return errors.Wrap(err, "packed plane")
	}
	return t.convert(h, w, gocv.MatTypeCV8UC2, gocv.ColorYUVToBGRYUY2)
}

func (t *texture) UpdateCompressed(data []byte) error {
	img, err := gocv.IMDecode(data, gocv.IMReadColor)
	if err != nil {
		return errors.Wrap(err, "Can not decode image")
	}
	if img.Empty() {
		img.Close()
		return errors.New("decoded image is empty")
	}
	t.bgr.Close()
	t.bgr = img
	return nil
}

func (t *texture) convert(rows, cols int, typ gocv.MatType, code gocv.ColorConversionCode) error {
	raw, err := gocv.NewMatFromBytes(rows, cols, typ, t.scratch)
	if err != nil {
		return errors.Wrap(err, "Can not wrap frame")
	}
	defer raw.Close()
	gocv.CvtColor(raw, &t.bgr, code)
	return nil
}

func (t *texture) Close() error {
	return t.bgr.Close()
}
