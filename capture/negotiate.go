package capture

import (
	"fmt"
	"io"

	"github.com/pkg/errors"
)

const (
	DefaultWidth  = 640
	DefaultHeight = 480
	DefaultFPS    = 30

	// frame intervals are expressed in 100ns units
	intervalUnitsPerSecond = 10000000
)

// StreamRequest is the mode asked of the device.
type StreamRequest struct {
	Format FrameFormat
	Width  int
	Height int
	FPS    int
}

// StreamControl is the negotiated streaming parameter block.
type StreamControl struct {
	Hint              uint16
	FormatIndex       int
	FrameIndex        int
	FrameInterval     uint32
	MaxVideoFrameSize uint32

	Format FrameFormat
	FourCC string
	Width  int
	Height int
	FPS    int
}

// Print writes the control block the way device diagnostics do.
func (c StreamControl) Print(w io.Writer) {
	fmt.Fprintln(w, "bmHint:", fmt.Sprintf("%04x", c.Hint))
	fmt.Fprintln(w, "bFormatIndex:", c.FormatIndex)
	fmt.Fprintln(w, "bFrameIndex:", c.FrameIndex)
	fmt.Fprintln(w, "dwFrameInterval:", c.FrameInterval)
	fmt.Fprintln(w, "dwMaxVideoFrameSize:", c.MaxVideoFrameSize)
	fmt.Fprintf(w, "format: %s (%s) %dx%d %dfps\n", c.Format, c.FourCC, c.Width, c.Height, c.FPS)
}

// Preference picks descriptors by 0-based position. Out of range values
// fall back to the last descriptor. Width, Height and FPS are used when the
// format has no frame descriptors; zero means the package default.
type Preference struct {
	FormatIndex int
	FrameIndex  int
	Width       int
	Height      int
	FPS         int
}

// Selection is the outcome of picking a format and frame descriptor.
type Selection struct {
	Format FormatDesc
	Frame  *FrameDesc
	// Request is what gets negotiated with the device.
	Request StreamRequest
	// TextureFormat is the pixel format the render target is created with.
	TextureFormat FrameFormat
}

// Select chooses the stream mode from the device's descriptors.
func Select(formats []FormatDesc, pref Preference) (*Selection, error) {
	if len(formats) == 0 {
		return nil, errors.Wrap(ErrNoMatchingMode, "device reports no formats")
	}

	format := formats[clampIndex(pref.FormatIndex, len(formats))]
	sel := &Selection{
		Format: format,
		Request: StreamRequest{
			Width:  orDefault(pref.Width, DefaultWidth),
			Height: orDefault(pref.Height, DefaultHeight),
			FPS:    orDefault(pref.FPS, DefaultFPS),
		},
		TextureFormat: FormatI420,
	}

	switch format.Subtype {
	case SubtypeMJPEG:
		sel.Request.Format = FormatMJPEG
	case SubtypeFrameBased:
		sel.Request.Format = FormatH264
	default:
		sel.Request.Format = format.Format
		if sel.Request.Format == FormatUnknown {
			sel.Request.Format = FormatNV12
		}
		if sel.Request.Format == FormatNV12 {
			sel.TextureFormat = FormatNV12
		}
	}

	if len(format.Frames) > 0 {
		frame := format.Frames[clampIndex(pref.FrameIndex, len(format.Frames))]
		sel.Frame = &frame
		sel.Request.Width = frame.Width
		sel.Request.Height = frame.Height
		if frame.DefaultInterval > 0 {
			sel.Request.FPS = int(intervalUnitsPerSecond / frame.DefaultInterval)
		}
	}

	return sel, nil
}

func orDefault(v, def int) int {
	if v > 0 {
		return v
	}
	return def
}

func clampIndex(i, n int) int {
	if i < 0 {
		return 0
	}
	if i >= n {
		return n - 1
	}
	return i
}

// matchMode finds the descriptors serving req and fills a control block.
func matchMode(formats []FormatDesc, req StreamRequest) (StreamControl, error) {
	for _, format := range formats {
		if format.Format != req.Format {
			continue
		}
		for _, frame := range format.Frames {
			if frame.Width != req.Width || frame.Height != req.Height {
				continue
			}
			ctrl := StreamControl{
				Hint:              1,
				FormatIndex:       format.Index,
				FrameIndex:        frame.Index,
				MaxVideoFrameSize: frameSize(req.Format, req.Width, req.Height),
				Format:            req.Format,
				FourCC:            format.FourCC,
				Width:             req.Width,
				Height:            req.Height,
				FPS:               req.FPS,
			}
			if req.FPS > 0 {
				ctrl.FrameInterval = uint32(intervalUnitsPerSecond / req.FPS)
			} else {
				ctrl.FrameInterval = frame.DefaultInterval
			}
			return ctrl, nil
		}
	}
	return StreamControl{}, errors.Wrapf(ErrNoMatchingMode, "%s %dx%d@%d", req.Format, req.Width, req.Height, req.FPS)
}

func frameSize(format FrameFormat, width, height int) uint32 {
	switch format {
	case FormatNV12, FormatI420:
		return uint32(width * height * 3 / 2)
	}
	return uint32(width * height * 2)
}
