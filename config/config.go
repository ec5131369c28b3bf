package config

import (
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/abihf/uvcview/capture"
	"github.com/abihf/uvcview/discovery"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

const DefaultPath = "/etc/uvcview/config.json"

type Config struct {
	Backend string `json:"backend" yaml:"backend"`
	Device  string `json:"device" yaml:"device"`
	SysRoot string `json:"sys_root" yaml:"sys_root"`

	// hex, e.g. "046d"
	VendorID  string `json:"vendor_id" yaml:"vendor_id"`
	ProductID string `json:"product_id" yaml:"product_id"`
	Serial    string `json:"serial" yaml:"serial"`

	FormatIndex int    `json:"format_index" yaml:"format_index"`
	FrameIndex  int    `json:"frame_index" yaml:"frame_index"`
	Width       int    `json:"width" yaml:"width"`
	Height      int    `json:"height" yaml:"height"`
	FPS         int    `json:"fps" yaml:"fps"`
	Buffers     uint32 `json:"buffers" yaml:"buffers"`

	FrameTimeoutMs int   `json:"frame_timeout_ms" yaml:"frame_timeout_ms"`
	AutoExposure   *bool `json:"auto_exposure" yaml:"auto_exposure"`

	WindowTitle  string `json:"window_title" yaml:"window_title"`
	WindowWidth  int    `json:"window_width" yaml:"window_width"`
	WindowHeight int    `json:"window_height" yaml:"window_height"`

	// CPU pins the render thread when set.
	CPU *int `json:"cpu" yaml:"cpu"`

	// PidFile guards against two viewers fighting over one camera.
	PidFile string `json:"pid_file" yaml:"pid_file"`
}

// Load reads path and fills in defaults. A missing file is not an error.
// The result is not validated yet: apply overrides first, then Validate.
func Load(path string) (*Config, error) {
	conf, err := loadFromFile(path)
	if os.IsNotExist(errors.Cause(err)) {
		slog.Warn("Failed to load config file", "path", path, "error", err)
		conf, err = &Config{}, nil
	}
	if err != nil {
		return nil, err
	}

	conf.SetDefaults()
	return conf, nil
}

// Overrides are command line values that win over the file when set.
type Overrides struct {
	Backend   string
	Device    string
	VendorID  string
	ProductID string
	Serial    string
}

func (c *Config) Apply(o Overrides) {
	if o.Backend != "" {
		c.Backend = o.Backend
	}
	if o.Device != "" {
		c.Device = o.Device
	}
	if o.VendorID != "" {
		c.VendorID = o.VendorID
	}
	if o.ProductID != "" {
		c.ProductID = o.ProductID
	}
	if o.Serial != "" {
		c.Serial = o.Serial
	}
}

func loadFromFile(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	config := &Config{}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.NewDecoder(file).Decode(config)
	default:
		err = json.NewDecoder(file).Decode(config)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "Can not parse %s", path)
	}
	return config, nil
}

func (c *Config) SetDefaults() {
	if c.Backend == "" {
		c.Backend = capture.BackendWebcam
	}
	if c.Width == 0 {
		c.Width = capture.DefaultWidth
	}
	if c.Height == 0 {
		c.Height = capture.DefaultHeight
	}
	if c.FPS == 0 {
		c.FPS = capture.DefaultFPS
	}
	if c.FrameTimeoutMs == 0 {
		c.FrameTimeoutMs = 100
	}
	if c.AutoExposure == nil {
		enabled := true
		c.AutoExposure = &enabled
	}
	if c.WindowTitle == "" {
		c.WindowTitle = "UVC Viewer"
	}
	if c.WindowWidth == 0 {
		c.WindowWidth = 960
	}
	if c.WindowHeight == 0 {
		c.WindowHeight = 540
	}
}

func (c *Config) Validate() error {
	switch c.Backend {
	case capture.BackendWebcam, capture.BackendMediaDevices:
	default:
		return errors.Errorf("unknown backend %q", c.Backend)
	}
	if c.FormatIndex < 0 || c.FrameIndex < 0 {
		return errors.Errorf("descriptor indices must not be negative (%d, %d)", c.FormatIndex, c.FrameIndex)
	}
	if c.Width <= 0 || c.Height <= 0 || c.FPS <= 0 {
		return errors.Errorf("invalid stream mode %dx%d@%d", c.Width, c.Height, c.FPS)
	}
	if c.WindowWidth <= 0 || c.WindowHeight <= 0 {
		return errors.Errorf("invalid window size %dx%d", c.WindowWidth, c.WindowHeight)
	}
	if c.FrameTimeoutMs < 0 {
		return errors.Errorf("invalid frame timeout %dms", c.FrameTimeoutMs)
	}
	if c.CPU != nil && *c.CPU < 0 {
		return errors.Errorf("invalid cpu %d", *c.CPU)
	}
	if _, err := c.Filter(); err != nil {
		return err
	}
	return nil
}

// Filter builds the device filter from the id fields.
func (c *Config) Filter() (discovery.Filter, error) {
	vendor, err := parseID(c.VendorID)
	if err != nil {
		return discovery.Filter{}, errors.Wrap(err, "vendor_id")
	}
	product, err := parseID(c.ProductID)
	if err != nil {
		return discovery.Filter{}, errors.Wrap(err, "product_id")
	}
	return discovery.Filter{VendorID: vendor, ProductID: product, Serial: c.Serial}, nil
}

func parseID(s string) (uint16, error) {
	s = strings.TrimPrefix(strings.ToLower(strings.TrimSpace(s)), "0x")
	if s == "" {
		return 0, nil
	}
	id, err := strconv.ParseUint(s, 16, 16)
	if err != nil {
		return 0, errors.Errorf("invalid usb id %q", s)
	}
	return uint16(id), nil
}

func (c *Config) FrameTimeout() time.Duration {
	return time.Duration(c.FrameTimeoutMs) * time.Millisecond
}

func (c *Config) Preference() capture.Preference {
	return capture.Preference{
		FormatIndex: c.FormatIndex,
		FrameIndex:  c.FrameIndex,
		Width:       c.Width,
		Height:      c.Height,
		FPS:         c.FPS,
	}
}

func (c *Config) CaptureOption() *capture.Option {
	return &capture.Option{
		Backend: c.Backend,
		Device:  c.Device,
		SysRoot: c.SysRoot,
		Buffers: c.Buffers,
	}
}
