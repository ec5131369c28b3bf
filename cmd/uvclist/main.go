package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/abihf/uvcview/capture"
	"github.com/abihf/uvcview/discovery"
)

var (
	sysRoot = flag.String("sys", discovery.DefaultSysRoot, "sysfs mount point")
	withUSB = flag.Bool("usb", false, "also enumerate the USB bus")
	formats = flag.Bool("formats", false, "open each capture node and print its formats")
)

func main() {
	flag.Parse()
	if err := mainE(); err != nil {
		slog.Error("Listing failed", "error", err)
		os.Exit(1)
	}
}

func mainE() error {
	nodes, err := discovery.Scan(*sysRoot)
	if err != nil {
		return err
	}

	for _, node := range nodes {
		fmt.Printf("%s\t%s\t%04x:%04x\tindex=%d", node.Path, node.Name, node.VendorID, node.ProductID, node.Index)
		if node.Serial != "" {
			fmt.Printf("\tserial=%s", node.Serial)
		}
		fmt.Println()
	}

	if *formats {
		backend, err := capture.Open(&capture.Option{SysRoot: *sysRoot})
		if err != nil {
			return err
		}
		defer backend.Close()

		for _, node := range nodes {
			if node.Index != 0 {
				continue
			}
			dev, err := backend.OpenDevice(capture.DeviceInfo{
				Path:      node.Path,
				Name:      node.Name,
				VendorID:  node.VendorID,
				ProductID: node.ProductID,
				Serial:    node.Serial,
			})
			if err != nil {
				slog.Warn("Can not open device", "path", node.Path, "error", err)
				continue
			}
			capture.PrintDiag(os.Stdout, dev)
			dev.Close()
		}
	}

	if *withUSB {
		devices, err := discovery.ListUSB(discovery.Filter{})
		if err != nil {
			return err
		}
		for _, d := range devices {
			fmt.Printf("usb %04x:%04x composite=%t %q %q %q\n",
				d.VendorID, d.ProductID, d.Composite, d.Manufacturer, d.Product, d.Serial)
		}
	}
	return nil
}
