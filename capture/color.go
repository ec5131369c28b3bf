package capture

import (
	"fmt"
	"time"

	"github.com/pkg/errors"
)

// FrameFormat is the pixel layout of a frame payload.
type FrameFormat int

const (
	FormatUnknown FrameFormat = iota
	FormatH264
	FormatMJPEG
	FormatYUYV
	FormatNV12
	FormatI420
)

var formatNames = map[FrameFormat]string{
	FormatUnknown: "unknown",
	FormatH264:    "h264",
	FormatMJPEG:   "mjpeg",
	FormatYUYV:    "yuyv",
	FormatNV12:    "nv12",
	FormatI420:    "i420",
}

func (f FrameFormat) String() string {
	if name, ok := formatNames[f]; ok {
		return name
	}
	return fmt.Sprintf("format(%d)", int(f))
}

// Planar420 reports whether the format carries 4:2:0 planes.
func (f FrameFormat) Planar420() bool {
	return f == FormatNV12 || f == FormatI420
}

// V4L2 fourcc codes, little endian as in videodev2.h.
const (
	fourccYUYV uint32 = 0x56595559
	fourccNV12 uint32 = 0x3231564e
	fourccYU12 uint32 = 0x32315559
	fourccMJPG uint32 = 0x47504a4d
	fourccJPEG uint32 = 0x4745504a
	fourccH264 uint32 = 0x34363248
)

// FourCC returns the four character code as text, e.g. "YUYV".
func FourCC(code uint32) string {
	return string([]byte{byte(code), byte(code >> 8), byte(code >> 16), byte(code >> 24)})
}

func formatFromFourCC(code uint32) FrameFormat {
	switch code {
	case fourccYUYV:
		return FormatYUYV
	case fourccNV12:
		return FormatNV12
	case fourccYU12:
		return FormatI420
	case fourccMJPG, fourccJPEG:
		return FormatMJPEG
	case fourccH264:
		return FormatH264
	}
	return FormatUnknown
}

func subtypeFromFourCC(code uint32) Subtype {
	switch code {
	case fourccMJPG, fourccJPEG:
		return SubtypeMJPEG
	case fourccH264:
		return SubtypeFrameBased
	}
	return SubtypeUncompressed
}

// Frame is one decoded-by-device payload pulled from a stream.
type Frame struct {
	Format   FrameFormat
	Width    int
	Height   int
	Sequence uint64
	Data     []byte
	Captured time.Time
}

// NV12Planes splits an NV12 payload into its luma and interleaved chroma
// planes. Both planes have a stride of Width bytes.
func (f *Frame) NV12Planes() (y, uv []byte, err error) {
	if f.Format != FormatNV12 {
		return nil, nil, errors.Errorf("frame is %s, not nv12", f.Format)
	}
	lumaSize := f.Width * f.Height
	if err := f.checkSize(lumaSize + lumaSize/2); err != nil {
		return nil, nil, err
	}
	return f.Data[:lumaSize], f.Data[lumaSize : lumaSize+lumaSize/2], nil
}

// I420Planes splits an I420 payload into Y, U and V planes. The chroma
// planes have a stride of (Width+1)/2 bytes.
func (f *Frame) I420Planes() (y, u, v []byte, err error) {
	if f.Format != FormatI420 {
		return nil, nil, nil, errors.Errorf("frame is %s, not i420", f.Format)
	}
	lumaSize := f.Width * f.Height
	cw, ch := chromaDims(f.Width, f.Height)
	chromaSize := cw * ch
	if err := f.checkSize(lumaSize + 2*chromaSize); err != nil {
		return nil, nil, nil, err
	}
	y = f.Data[:lumaSize]
	u = f.Data[lumaSize : lumaSize+chromaSize]
	v = f.Data[lumaSize+chromaSize : lumaSize+2*chromaSize]
	return y, u, v, nil
}

// chromaDims is the size of a 4:2:0 chroma plane, rounded up for odd
// frame sizes.
func chromaDims(width, height int) (int, int) {
	return (width + 1) / 2, (height + 1) / 2
}

// ChromaStride is the row length of the I420 chroma planes.
func (f *Frame) ChromaStride() int {
	cw, _ := chromaDims(f.Width, f.Height)
	return cw
}

func (f *Frame) checkSize(want int) error {
	if f.Width <= 0 || f.Height <= 0 {
		return errors.Errorf("invalid frame size %dx%d", f.Width, f.Height)
	}
	if len(f.Data) < want {
		return errors.Errorf("short %s frame: %d bytes, want %d", f.Format, len(f.Data), want)
	}
	return nil
}
