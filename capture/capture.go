package capture

import (
	"time"

	"github.com/abihf/uvcview/discovery"
	"github.com/pkg/errors"
)

var (
	ErrNoDevice       = errors.New("no device found")
	ErrNoMatchingMode = errors.New("device doesn't provide a matching stream")
	ErrNotSupported   = errors.New("not supported by device")
	ErrTimeout        = errors.New("timeout waiting for frame")
	ErrStreamStopped  = errors.New("stream stopped")
)

// Subtype is the kind of video streaming format descriptor.
type Subtype int

const (
	SubtypeUncompressed Subtype = iota
	SubtypeMJPEG
	SubtypeFrameBased
)

func (s Subtype) String() string {
	switch s {
	case SubtypeMJPEG:
		return "MJPEG"
	case SubtypeFrameBased:
		return "FrameBased"
	}
	return "Uncompressed"
}

// FormatDesc describes one format the device can stream and the frame
// sizes available in it. Indices are 1-based like on the wire.
type FormatDesc struct {
	Index       int
	Subtype     Subtype
	FourCC      string
	Description string
	Format      FrameFormat
	Frames      []FrameDesc
}

// FrameDesc is one frame size of a format. DefaultInterval is in 100ns units.
type FrameDesc struct {
	Index           int
	Width           int
	Height          int
	DefaultInterval uint32
}

// AEMode is the auto exposure mode bitmask of the camera terminal.
type AEMode uint8

const (
	AEModeManual           AEMode = 1
	AEModeAuto             AEMode = 2
	AEModeShutterPriority  AEMode = 4
	AEModeAperturePriority AEMode = 8
)

func (m AEMode) String() string {
	switch m {
	case AEModeManual:
		return "manual"
	case AEModeAuto:
		return "auto"
	case AEModeShutterPriority:
		return "shutter priority"
	case AEModeAperturePriority:
		return "aperture priority"
	}
	return "unknown"
}

// DeviceInfo identifies an opened device.
type DeviceInfo struct {
	Path         string
	Name         string
	VendorID     uint16
	ProductID    uint16
	Serial       string
	Manufacturer string
	Product      string
}

// Backend owns the library state devices are opened from.
type Backend interface {
	// FindDevice locates the first device matching filter.
	FindDevice(filter discovery.Filter) (DeviceInfo, error)
	// OpenDevice opens a located device for exclusive use.
	OpenDevice(info DeviceInfo) (Device, error)
	Close() error
}

// Device is an opened camera.
type Device interface {
	Info() DeviceInfo
	Formats() ([]FormatDesc, error)
	// Negotiate asks the device for a stream matching req without
	// starting it.
	Negotiate(req StreamRequest) (StreamControl, error)
	OpenStream(ctrl StreamControl) (Stream, error)
	SetAEMode(mode AEMode) error
	Close() error
}

// Stream delivers frames of a negotiated stream.
type Stream interface {
	Start() error
	// GetFrame waits up to timeout for the next frame.
	GetFrame(timeout time.Duration) (*Frame, error)
	// Stop ends streaming and returns once the reader is done.
	Stop() error
	Close() error
}

type Option struct {
	Backend string
	// Device is a device path or label; it wins over the filter when set.
	Device  string
	SysRoot string
	Buffers uint32
}

const (
	BackendWebcam       = "webcam"
	BackendMediaDevices = "mediadevices"
)

// Open initialises the named backend.
func Open(opt *Option) (Backend, error) {
	switch opt.Backend {
	case "", BackendWebcam:
		return newWebcamBackend(opt), nil
	case BackendMediaDevices:
		return newMediaDevicesBackend(opt), nil
	}
	return nil, errors.Errorf("unknown capture backend %q", opt.Backend)
}
