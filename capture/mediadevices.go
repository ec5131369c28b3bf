package capture

import (
	"image"
	"strings"
	"time"

	"github.com/abihf/uvcview/discovery"
	"github.com/pion/mediadevices/pkg/driver"
	_ "github.com/pion/mediadevices/pkg/driver/camera"
	"github.com/pion/mediadevices/pkg/frame"
	"github.com/pion/mediadevices/pkg/io/video"
	"github.com/pion/mediadevices/pkg/prop"
	"github.com/pkg/errors"
)

// mediaDevicesBackend goes through the pion/mediadevices driver manager,
// which also works where V4L2 does not exist.
type mediaDevicesBackend struct {
	device  string
	sysRoot string
	drivers map[string]driver.Driver
}

func newMediaDevicesBackend(opt *Option) *mediaDevicesBackend {
	return &mediaDevicesBackend{
		device:  opt.Device,
		sysRoot: opt.SysRoot,
		drivers: make(map[string]driver.Driver),
	}
}

func (b *mediaDevicesBackend) FindDevice(filter discovery.Filter) (DeviceInfo, error) {
	want := b.device
	if want == "" && !filter.IsZero() {
		// labels carry the node name, resolve the filter through sysfs
		nodes, err := discovery.Scan(b.sysRoot)
		if err != nil {
			return DeviceInfo{}, errors.Wrap(ErrNoDevice, err.Error())
		}
		node, err := discovery.Find(nodes, filter)
		if err != nil {
			return DeviceInfo{}, errors.Wrapf(ErrNoDevice, "filter %04x:%04x %q", filter.VendorID, filter.ProductID, filter.Serial)
		}
		want = node.Path
	}

	for _, d := range driver.GetManager().Query(driver.FilterVideoRecorder()) {
		label := d.Info().Label
		if !labelMatches(label, d.ID(), want) {
			continue
		}
		b.drivers[d.ID()] = d
		return DeviceInfo{Path: d.ID(), Name: label}, nil
	}
	return DeviceInfo{}, errors.Wrapf(ErrNoDevice, "no video recorder matching %q", want)
}

func labelMatches(label, id, want string) bool {
	if want == "" {
		return true
	}
	if id == want {
		return true
	}
	name := want[strings.LastIndex(want, "/")+1:]
	for _, part := range strings.Split(label, ";") {
		if part == want || part == name {
			return true
		}
	}
	return false
}

func (b *mediaDevicesBackend) OpenDevice(info DeviceInfo) (Device, error) {
	d, ok := b.drivers[info.Path]
	if !ok {
		return nil, errors.Wrapf(ErrNoDevice, "device %s was not located", info.Path)
	}
	recorder, ok := d.(driver.VideoRecorder)
	if !ok {
		return nil, errors.Errorf("device %s can not record video", info.Path)
	}
	if err := d.Open(); err != nil {
		return nil, errors.Wrapf(err, "Can not open device %s", info.Path)
	}
	return &mediaDevice{
		drv:      d,
		recorder: recorder,
		info:     info,
		modes:    make(map[[2]int]prop.Media),
	}, nil
}

func (b *mediaDevicesBackend) Close() error {
	b.drivers = make(map[string]driver.Driver)
	return nil
}

type mediaDevice struct {
	drv      driver.Driver
	recorder driver.VideoRecorder
	info     DeviceInfo

	formats []FormatDesc
	modes   map[[2]int]prop.Media
	stream  *mediaStream
}

func (d *mediaDevice) Info() DeviceInfo {
	return d.info
}

func (d *mediaDevice) Formats() ([]FormatDesc, error) {
	if d.formats != nil {
		return d.formats, nil
	}

	byFormat := make(map[frame.Format]int)
	for _, p := range d.drv.Properties() {
		pos, ok := byFormat[p.FrameFormat]
		if !ok {
			pos = len(d.formats)
			byFormat[p.FrameFormat] = pos
			format := mediaFormat(p.FrameFormat)
			d.formats = append(d.formats, FormatDesc{
				Index:   pos + 1,
				Subtype: mediaSubtype(format),
				FourCC:  string(p.FrameFormat),
				Format:  format,
			})
		}

		desc := &d.formats[pos]
		frameDesc := FrameDesc{
			Index:  len(desc.Frames) + 1,
			Width:  p.Width,
			Height: p.Height,
		}
		if p.FrameRate > 0 {
			frameDesc.DefaultInterval = uint32(intervalUnitsPerSecond / p.FrameRate)
		}
		desc.Frames = append(desc.Frames, frameDesc)
		d.modes[[2]int{desc.Index, frameDesc.Index}] = p
	}

	if len(d.formats) == 0 {
		return nil, errors.New("device reports no video properties")
	}
	return d.formats, nil
}

func mediaFormat(f frame.Format) FrameFormat {
	switch f {
	case frame.FormatI420:
		return FormatI420
	case frame.FormatNV12:
		return FormatNV12
	case frame.FormatYUY2, frame.FormatYUYV:
		return FormatYUYV
	case frame.FormatMJPEG:
		return FormatMJPEG
	}
	return FormatUnknown
}

func mediaSubtype(f FrameFormat) Subtype {
	if f == FormatMJPEG {
		return SubtypeMJPEG
	}
	return SubtypeUncompressed
}

func (d *mediaDevice) Negotiate(req StreamRequest) (StreamControl, error) {
	formats, err := d.Formats()
	if err != nil {
		return StreamControl{}, err
	}
	return matchMode(formats, req)
}

func (d *mediaDevice) OpenStream(ctrl StreamControl) (Stream, error) {
	if d.stream != nil {
		return nil, errors.New("a stream is already open")
	}
	media, ok := d.modes[[2]int{ctrl.FormatIndex, ctrl.FrameIndex}]
	if !ok {
		return nil, errors.Wrapf(ErrNoMatchingMode, "format %d frame %d", ctrl.FormatIndex, ctrl.FrameIndex)
	}
	if ctrl.FPS > 0 {
		media.FrameRate = float32(ctrl.FPS)
	}
	d.stream = &mediaStream{dev: d, media: media}
	return d.stream, nil
}

// SetAEMode is not reachable through the driver interface.
func (d *mediaDevice) SetAEMode(mode AEMode) error {
	return errors.Wrapf(ErrNotSupported, "%s exposure through mediadevices", mode)
}

func (d *mediaDevice) Close() error {
	if d.stream != nil {
		d.stream.Close()
	}
	return errors.Wrap(d.drv.Close(), "Can not close device")
}

type mediaStream struct {
	dev    *mediaDevice
	media  prop.Media
	reader video.Reader
	buf    *camBuffer
}

func (s *mediaStream) Start() error {
	if s.reader != nil {
		return nil
	}
	reader, err := s.dev.recorder.VideoRecord(s.media)
	if err != nil {
		return errors.Wrap(err, "Can not start recording")
	}
	s.reader = reader
	s.buf = newCamBuffer()
	s.buf.start(s.read)
	return nil
}

func (s *mediaStream) read() (*Frame, error) {
	img, release, err := s.reader.Read()
	if err != nil {
		return nil, errors.Wrap(err, "Read frame failed")
	}
	defer release()
	f := frameFromImage(img)
	f.Captured = time.Now()
	return f, nil
}

func (s *mediaStream) GetFrame(timeout time.Duration) (*Frame, error) {
	if s.reader == nil {
		return nil, ErrStreamStopped
	}
	return s.buf.get(timeout)
}

func (s *mediaStream) Stop() error {
	if s.reader == nil {
		return nil
	}
	s.buf.stop()
	s.reader = nil
	return nil
}

func (s *mediaStream) Close() error {
	err := s.Stop()
	if s.dev.stream == s {
		s.dev.stream = nil
	}
	return err
}

// frameFromImage packs a YCbCr image of any subsample ratio into I420,
// taking the chroma sample of the top left pixel of every 2x2 block.
// Other image types come back as an unknown frame.
func frameFromImage(img image.Image) *Frame {
	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	cw, ch := chromaDims(width, height)
	ycc, ok := img.(*image.YCbCr)
	if !ok {
		if gray, ok := img.(*image.Gray); ok {
			return frameFromGray(gray, cw, ch)
		}
		return &Frame{Format: FormatUnknown, Width: width, Height: height}
	}

	data := make([]byte, 0, width*height+2*cw*ch)
	for y := 0; y < height; y++ {
		off := ycc.YOffset(bounds.Min.X, bounds.Min.Y+y)
		data = append(data, ycc.Y[off:off+width]...)
	}
	for _, plane := range [][]byte{ycc.Cb, ycc.Cr} {
		for y := 0; y < ch; y++ {
			for x := 0; x < cw; x++ {
				data = append(data, plane[ycc.COffset(bounds.Min.X+2*x, bounds.Min.Y+2*y)])
			}
		}
	}
	return &Frame{
		Format: FormatI420,
		Width:  width,
		Height: height,
		Data:   data,
	}
}

// frameFromGray packs a greyscale image, as decoded from a monochrome
// MJPEG stream, into I420 with neutral chroma.
func frameFromGray(gray *image.Gray, cw, ch int) *Frame {
	bounds := gray.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	data := make([]byte, 0, width*height+2*cw*ch)
	for y := 0; y < height; y++ {
		off := gray.PixOffset(bounds.Min.X, bounds.Min.Y+y)
		data = append(data, gray.Pix[off:off+width]...)
	}
	for i := 0; i < 2*cw*ch; i++ {
		data = append(data, 0x80)
	}
	return &Frame{
		Format: FormatI420,
		Width:  width,
		Height: height,
		Data:   data,
	}
}
