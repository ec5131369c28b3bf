package capture

import (
	"fmt"
	"io"
)

// PrintDiag writes everything known about an opened device.
func PrintDiag(w io.Writer, dev Device) {
	info := dev.Info()
	fmt.Fprintln(w, "DEVICE CONFIGURATION")
	fmt.Fprintln(w, "---")
	fmt.Fprintf(w, "Path: %s\n", info.Path)
	if info.Name != "" {
		fmt.Fprintf(w, "Name: %s\n", info.Name)
	}
	if info.VendorID != 0 || info.ProductID != 0 {
		fmt.Fprintf(w, "ID: %04x:%04x\n", info.VendorID, info.ProductID)
	}
	if info.Manufacturer != "" {
		fmt.Fprintf(w, "Manufacturer: %s\n", info.Manufacturer)
	}
	if info.Product != "" {
		fmt.Fprintf(w, "Product: %s\n", info.Product)
	}
	if info.Serial != "" {
		fmt.Fprintf(w, "Serial: %s\n", info.Serial)
	}

	formats, err := dev.Formats()
	if err != nil {
		fmt.Fprintf(w, "Formats: unavailable (%v)\n", err)
		fmt.Fprintln(w, "END DEVICE CONFIGURATION")
		return
	}

	fmt.Fprintln(w, "VideoStreaming:")
	for _, format := range formats {
		fmt.Fprintf(w, "\tFormatDescriptor(%d) %s (%s)", format.Index, format.Subtype, format.FourCC)
		if format.Description != "" {
			fmt.Fprintf(w, " %s", format.Description)
		}
		fmt.Fprintln(w)
		for _, frame := range format.Frames {
			fmt.Fprintf(w, "\t\tFrameDescriptor(%d) %dx%d", frame.Index, frame.Width, frame.Height)
			if frame.DefaultInterval > 0 {
				fmt.Fprintf(w, " default interval 1/%d", intervalUnitsPerSecond/frame.DefaultInterval)
			}
			fmt.Fprintln(w)
		}
	}
	fmt.Fprintln(w, "END DEVICE CONFIGURATION")
}
