// Package render is the presentation side of the viewer: a window that
// polls input events, and textures that frames are uploaded into.
package render

import (
	"github.com/abihf/uvcview/capture"
	"github.com/pkg/errors"
)

var ErrUnsupportedFormat = errors.New("unsupported pixel format")

type EventType int

const (
	EventNone EventType = iota
	EventQuit
	EventKeyDown
	EventResize
)

const KeyEscape = 27

type Event struct {
	Type EventType
	Key  int
	// Width and Height are set on EventResize.
	Width  int
	Height int
}

// Rect is a destination rectangle in window coordinates.
type Rect struct {
	X, Y int
	W, H int
}

type Window interface {
	CreateTexture(format capture.FrameFormat, width, height int) (Texture, error)
	// PollEvent returns the next pending event without blocking.
	PollEvent() (Event, bool)
	// Present clears the window, copies tex scaled into dst and shows it.
	Present(tex Texture, dst Rect) error
	Close() error
}

// Texture is a streaming render target sized to the negotiated frame.
type Texture interface {
	// UpdateNV uploads a luma plane and an interleaved chroma plane.
	UpdateNV(y []byte, yPitch int, uv []byte, uvPitch int) error
	// UpdateYUV uploads three separate planes.
	UpdateYUV(y []byte, yPitch int, u []byte, uPitch int, v []byte, vPitch int) error
	// UpdatePacked uploads packed 4:2:2 (YUYV) data.
	UpdatePacked(data []byte, pitch int) error
	// UpdateCompressed decodes a compressed still, such as a JPEG.
	UpdateCompressed(data []byte) error
	Close() error
}

// CopyPlane copies rows of rowBytes from a pitched source into a pitched
// destination.
func CopyPlane(dst []byte, dstPitch int, src []byte, srcPitch int, rowBytes, rows int) error {
	if rows <= 0 || rowBytes <= 0 {
		return nil
	}
	if srcPitch < rowBytes || dstPitch < rowBytes {
		return errors.Errorf("pitch smaller than row (%d/%d < %d)", srcPitch, dstPitch, rowBytes)
	}
	if need := (rows-1)*srcPitch + rowBytes; len(src) < need {
		return errors.Errorf("source plane too short: %d < %d", len(src), need)
	}
	if need := (rows-1)*dstPitch + rowBytes; len(dst) < need {
		return errors.Errorf("destination plane too short: %d < %d", len(dst), need)
	}
	for row := 0; row < rows; row++ {
		copy(dst[row*dstPitch:row*dstPitch+rowBytes], src[row*srcPitch:row*srcPitch+rowBytes])
	}
	return nil
}
