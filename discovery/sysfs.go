package discovery

import (
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

const DefaultSysRoot = "/sys"

// Node is a video4linux device node and the USB device behind it.
type Node struct {
	Path string
	Name string
	// Index separates the nodes of one function; 0 is the capture node,
	// uvcvideo exposes metadata on 1.
	Index int

	VendorID     uint16
	ProductID    uint16
	Serial       string
	Manufacturer string
	Product      string
	BusNum       int
	DevNum       int
}

// Scan lists the video4linux nodes registered under sysRoot.
func Scan(sysRoot string) ([]Node, error) {
	if sysRoot == "" {
		sysRoot = DefaultSysRoot
	}
	classDir := filepath.Join(sysRoot, "class", "video4linux")
	entries, err := os.ReadDir(classDir)
	if err != nil {
		return nil, errors.Wrap(err, "Can not list video4linux devices")
	}

	var nodes []Node
	for _, entry := range entries {
		name := entry.Name()
		if !strings.HasPrefix(name, "video") {
			continue
		}
		base := filepath.Join(classDir, name)
		node := Node{
			Path:  filepath.Join("/dev", name),
			Name:  readAttr(base, "name"),
			Index: atoi(readAttr(base, "index")),
		}
		if usbDir := usbParent(filepath.Join(base, "device")); usbDir != "" {
			node.VendorID = hex16(readAttr(usbDir, "idVendor"))
			node.ProductID = hex16(readAttr(usbDir, "idProduct"))
			node.Serial = readAttr(usbDir, "serial")
			node.Manufacturer = readAttr(usbDir, "manufacturer")
			node.Product = readAttr(usbDir, "product")
			node.BusNum = atoi(readAttr(usbDir, "busnum"))
			node.DevNum = atoi(readAttr(usbDir, "devnum"))
		}
		nodes = append(nodes, node)
	}

	sort.Slice(nodes, func(i, j int) bool {
		return nodeNumber(nodes[i].Path) < nodeNumber(nodes[j].Path)
	})
	return nodes, nil
}

// Find returns the first capture node matching filter.
func Find(nodes []Node, filter Filter) (*Node, error) {
	for i := range nodes {
		node := &nodes[i]
		if node.Index != 0 {
			continue
		}
		if filter.Match(node.VendorID, node.ProductID, node.Serial) {
			return node, nil
		}
	}
	return nil, ErrNotFound
}

// usbParent walks up from an interface directory to the USB device that
// owns it.
func usbParent(path string) string {
	dir, err := filepath.EvalSymlinks(path)
	if err != nil {
		return ""
	}
	for i := 0; i < 4; i++ {
		if _, err := os.Stat(filepath.Join(dir, "idVendor")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return ""
}

func readAttr(dir, name string) string {
	data, err := os.ReadFile(filepath.Join(dir, name))
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}

func atoi(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return n
}

func hex16(s string) uint16 {
	n, err := strconv.ParseUint(s, 16, 16)
	if err != nil {
		return 0
	}
	return uint16(n)
}

func nodeNumber(path string) int {
	n, err := strconv.Atoi(strings.TrimPrefix(filepath.Base(path), "video"))
	if err != nil {
		return -1
	}
	return n
}
