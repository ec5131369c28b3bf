package capture

import (
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/abihf/uvcview/discovery"
	"github.com/blackjack/webcam"
	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

// V4L2_CID_EXPOSURE_AUTO and its menu entries.
const exposureAutoControl webcam.ControlID = 0x009a0901

var exposureMenu = map[AEMode]int32{
	AEModeAuto:             0,
	AEModeManual:           1,
	AEModeShutterPriority:  2,
	AEModeAperturePriority: 3,
}

// seconds WaitForFrame may block, bounds how long Stop waits
const webcamWaitTimeout = 1

type webcamBackend struct {
	device  string
	sysRoot string
	buffers uint32
}

func newWebcamBackend(opt *Option) *webcamBackend {
	return &webcamBackend{
		device:  opt.Device,
		sysRoot: opt.SysRoot,
		buffers: opt.Buffers,
	}
}

func (b *webcamBackend) FindDevice(filter discovery.Filter) (DeviceInfo, error) {
	if b.device != "" {
		return DeviceInfo{Path: b.device}, nil
	}

	nodes, err := discovery.Scan(b.sysRoot)
	if err != nil {
		return DeviceInfo{}, errors.Wrap(ErrNoDevice, err.Error())
	}
	node, err := discovery.Find(nodes, filter)
	if err != nil {
		return DeviceInfo{}, errors.Wrapf(ErrNoDevice, "filter %04x:%04x %q", filter.VendorID, filter.ProductID, filter.Serial)
	}
	return DeviceInfo{
		Path:         node.Path,
		Name:         node.Name,
		VendorID:     node.VendorID,
		ProductID:    node.ProductID,
		Serial:       node.Serial,
		Manufacturer: node.Manufacturer,
		Product:      node.Product,
	}, nil
}

func (b *webcamBackend) OpenDevice(info DeviceInfo) (Device, error) {
	cam, err := webcam.Open(info.Path)
	if err != nil {
		return nil, errors.Wrapf(err, "Can not open device %s", info.Path)
	}
	return &webcamDevice{
		cam:     cam,
		info:    info,
		buffers: b.buffers,
	}, nil
}

func (b *webcamBackend) Close() error {
	return nil
}

type webcamDevice struct {
	cam     *webcam.Webcam
	info    DeviceInfo
	buffers uint32

	formats []FormatDesc
	codes   map[int]webcam.PixelFormat
	stream  *webcamStream
}

func (d *webcamDevice) Info() DeviceInfo {
	return d.info
}

func (d *webcamDevice) Formats() ([]FormatDesc, error) {
	if d.formats != nil {
		return d.formats, nil
	}

	supported := d.cam.GetSupportedFormats()
	if len(supported) == 0 {
		return nil, errors.New("device reports no pixel formats")
	}

	codes := make([]webcam.PixelFormat, 0, len(supported))
	for code := range supported {
		codes = append(codes, code)
	}
	sort.Slice(codes, func(i, j int) bool { return codes[i] < codes[j] })

	d.codes = make(map[int]webcam.PixelFormat, len(codes))
	for i, code := range codes {
		format := FormatDesc{
			Index:       i + 1,
			Subtype:     subtypeFromFourCC(uint32(code)),
			FourCC:      FourCC(uint32(code)),
			Description: supported[code],
			Format:      formatFromFourCC(uint32(code)),
		}
		for j, size := range d.cam.GetSupportedFrameSizes(code) {
			format.Frames = append(format.Frames, FrameDesc{
				Index:           j + 1,
				Width:           int(size.MaxWidth),
				Height:          int(size.MaxHeight),
				DefaultInterval: defaultInterval(d.cam.GetSupportedFramerates(code, size.MaxWidth, size.MaxHeight)),
			})
		}
		d.codes[format.Index] = code
		d.formats = append(d.formats, format)
	}
	return d.formats, nil
}

// defaultInterval converts the first frame interval the driver lists to
// 100ns units. V4L2 reports intervals as seconds per frame; for stepwise
// ranges the shortest interval is taken.
func defaultInterval(rates []webcam.FrameRate) uint32 {
	for _, rate := range rates {
		if rate.MinNumerator == 0 || rate.MinDenominator == 0 {
			continue
		}
		return uint32(uint64(rate.MinNumerator) * intervalUnitsPerSecond / uint64(rate.MinDenominator))
	}
	return intervalUnitsPerSecond / DefaultFPS
}

func (d *webcamDevice) Negotiate(req StreamRequest) (StreamControl, error) {
	formats, err := d.Formats()
	if err != nil {
		return StreamControl{}, err
	}
	return matchMode(formats, req)
}

func (d *webcamDevice) OpenStream(ctrl StreamControl) (Stream, error) {
	if d.stream != nil {
		return nil, errors.New("a stream is already open")
	}
	code, ok := d.codes[ctrl.FormatIndex]
	if !ok {
		return nil, errors.Wrapf(ErrNoMatchingMode, "format index %d", ctrl.FormatIndex)
	}

	if d.buffers > 0 {
		if err := d.cam.SetBufferCount(d.buffers); err != nil {
			return nil, errors.Wrap(err, "Can not set buffer count")
		}
	}

	code, width, height, err := d.cam.SetImageFormat(code, uint32(ctrl.Width), uint32(ctrl.Height))
	if err != nil {
		return nil, errors.Wrap(err, "Can not set image format")
	}
	if int(width) != ctrl.Width || int(height) != ctrl.Height {
		slog.Warn("Device adjusted frame size", "want", fmt.Sprintf("%dx%d", ctrl.Width, ctrl.Height), "got", fmt.Sprintf("%dx%d", width, height))
	}
	if ctrl.FPS > 0 {
		if err := d.cam.SetFramerate(float32(ctrl.FPS)); err != nil {
			slog.Debug("Can not set frame rate", "fps", ctrl.FPS, "error", err)
		}
	}

	d.stream = &webcamStream{
		dev:    d,
		format: formatFromFourCC(uint32(code)),
		width:  int(width),
		height: int(height),
	}
	return d.stream, nil
}

func (d *webcamDevice) SetAEMode(mode AEMode) error {
	value, ok := exposureMenu[mode]
	if !ok {
		return errors.Wrapf(ErrNotSupported, "exposure mode %d", mode)
	}
	err := d.cam.SetControl(exposureAutoControl, value)
	if err == nil {
		return nil
	}
	if errors.Is(err, unix.EINVAL) || errors.Is(err, unix.ERANGE) || errors.Is(err, unix.EPIPE) {
		return errors.Wrapf(ErrNotSupported, "%s exposure: %v", mode, err)
	}
	return errors.Wrapf(err, "Can not set %s exposure", mode)
}

func (d *webcamDevice) Close() error {
	if d.stream != nil {
		d.stream.Close()
	}
	return d.cam.Close()
}

type webcamStream struct {
	dev    *webcamDevice
	format FrameFormat
	width  int
	height int
	buf    *camBuffer

	streaming bool
}

func (s *webcamStream) Start() error {
	if s.streaming {
		return nil
	}
	if err := s.dev.cam.StartStreaming(); err != nil {
		return errors.Wrap(err, "Can not start streaming")
	}
	s.streaming = true
	s.buf = newCamBuffer()
	s.buf.start(s.read)
	return nil
}

func (s *webcamStream) read() (*Frame, error) {
	err := s.dev.cam.WaitForFrame(webcamWaitTimeout)
	switch err.(type) {
	case nil:
	case *webcam.Timeout:
		return nil, ErrTimeout
	default:
		return nil, errors.Wrap(err, "Frame wait failed")
	}

	data, err := s.dev.cam.ReadFrame()
	if err != nil {
		return nil, errors.Wrap(err, "Read frame failed")
	}
	if len(data) == 0 {
		return nil, nil
	}
	// data points into the mmap buffer handed back to the driver
	frame := make([]byte, len(data))
	copy(frame, data)
	return &Frame{
		Format:   s.format,
		Width:    s.width,
		Height:   s.height,
		Data:     frame,
		Captured: time.Now(),
	}, nil
}

func (s *webcamStream) GetFrame(timeout time.Duration) (*Frame, error) {
	if !s.streaming {
		return nil, ErrStreamStopped
	}
	return s.buf.get(timeout)
}

func (s *webcamStream) Stop() error {
	if !s.streaming {
		return nil
	}
	s.streaming = false
	s.buf.stop()
	return errors.Wrap(s.dev.cam.StopStreaming(), "Can not stop streaming")
}

func (s *webcamStream) Close() error {
	err := s.Stop()
	if s.dev.stream == s {
		s.dev.stream = nil
	}
	return err
}
