// Package discovery locates UVC cameras, either as video4linux nodes
// through sysfs or as raw USB devices of the video class.
package discovery

import "github.com/pkg/errors"

var ErrNotFound = errors.New("no matching device")

// Filter selects devices. Zero values match anything.
type Filter struct {
	VendorID  uint16
	ProductID uint16
	Serial    string
}

func (f Filter) Match(vendorID, productID uint16, serial string) bool {
	if f.VendorID != 0 && f.VendorID != vendorID {
		return false
	}
	if f.ProductID != 0 && f.ProductID != productID {
		return false
	}
	if f.Serial != "" && f.Serial != serial {
		return false
	}
	return true
}

func (f Filter) IsZero() bool {
	return f.VendorID == 0 && f.ProductID == 0 && f.Serial == ""
}
