package discovery

import (
	usb "github.com/kevmo314/go-usb"
	"github.com/kevmo314/go-uvc/pkg/descriptors"
	"github.com/pkg/errors"
)

// Miscellaneous device class with an interface association descriptor,
// which is how composite webcams announce themselves.
const (
	classMiscellaneous     = 0xEF
	subclassCommon         = 0x02
	protocolInterfaceAssoc = 0x01
)

// USBDevice is a USB device that carries a video function.
type USBDevice struct {
	VendorID     uint16
	ProductID    uint16
	Composite    bool
	Manufacturer string
	Product      string
	Serial       string
}

// ListUSB enumerates USB devices of the video class. String descriptors
// are filled in when the device can be opened.
func ListUSB(filter Filter) ([]USBDevice, error) {
	devices, err := usb.DeviceList()
	if err != nil {
		return nil, errors.Wrap(err, "Can not list USB devices")
	}

	var found []USBDevice
	for _, dev := range devices {
		desc := dev.Descriptor
		class := uint8(desc.DeviceClass)
		if !isVideoClass(class, uint8(desc.DeviceSubClass), uint8(desc.DeviceProtocol)) {
			continue
		}

		d := USBDevice{
			VendorID:  desc.VendorID,
			ProductID: desc.ProductID,
			Composite: class == classMiscellaneous,
		}
		if handle, err := dev.Open(); err == nil {
			d.Manufacturer, _ = handle.StringDescriptor(desc.ManufacturerIndex)
			d.Product, _ = handle.StringDescriptor(desc.ProductIndex)
			d.Serial, _ = handle.StringDescriptor(desc.SerialNumberIndex)
			handle.Close()
		}

		if filter.Match(d.VendorID, d.ProductID, d.Serial) {
			found = append(found, d)
		}
	}
	return found, nil
}

func isVideoClass(class, subclass, protocol uint8) bool {
	if class == uint8(descriptors.ClassCodeVideo) {
		return true
	}
	return class == classMiscellaneous &&
		subclass == subclassCommon &&
		protocol == protocolInterfaceAssoc
}
