package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/abihf/uvcview"
	"github.com/abihf/uvcview/capture"
	"github.com/abihf/uvcview/config"
	"github.com/abihf/uvcview/render/cvwindow"
	"github.com/abihf/uvcview/utils/thread"
	"github.com/pkg/errors"
)

var (
	configPath = flag.String("config", envOr("UVCVIEW_CONFIG", config.DefaultPath), "config file (json or yaml)")
	device     = flag.String("device", "", "video node, overrides discovery")
	vendorID   = flag.String("vid", "", "usb vendor id (hex)")
	productID  = flag.String("pid", "", "usb product id (hex)")
	serial     = flag.String("serial", "", "usb serial number")
	backend    = flag.String("backend", "", "capture backend: webcam or mediadevices")
	verbose    = flag.Bool("v", false, "debug logging")
)

// keep main on the main OS thread so highgui sees one thread
func init() {
	runtime.LockOSThread()
}

func main() {
	flag.Parse()
	os.Exit(run())
}

func run() int {
	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	conf, err := loadConfig()
	if err != nil {
		slog.Error("Invalid configuration", "error", err)
		return 1
	}

	if conf.PidFile != "" {
		if isAlreadyRun(conf.PidFile) {
			slog.Error("Another viewer is already running", "pid_file", conf.PidFile)
			return 1
		}
		if err := writeLockFile(conf.PidFile); err != nil {
			slog.Warn("Can not write pid file", "path", conf.PidFile, "error", err)
		}
		defer os.Remove(conf.PidFile)
	}

	if err := thread.Lock(conf.CPU); err != nil {
		slog.Warn("Can not pin render thread", "error", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err = uvcview.Run(ctx, conf, uvcview.Env{
		OpenBackend: capture.Open,
		OpenWindow:  cvwindow.New,
	})
	var initErr *uvcview.InitError
	if errors.As(err, &initErr) {
		return initErr.ExitCode()
	}
	return 0
}

// loadConfig applies command line overrides on top of the config file and
// validates the result once.
func loadConfig() (*config.Config, error) {
	conf, err := config.Load(*configPath)
	if err != nil {
		return nil, err
	}
	conf.Apply(config.Overrides{
		Backend:   *backend,
		Device:    *device,
		VendorID:  *vendorID,
		ProductID: *productID,
		Serial:    *serial,
	})
	if err := conf.Validate(); err != nil {
		return nil, err
	}
	return conf, nil
}

func envOr(key, def string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return def
}
