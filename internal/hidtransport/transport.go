// Package hidtransport opens the HID endpoint the device presents and
// exposes the two primitives the packet codec needs: WriteReport and
// ReadReport(timeout). Two backends exist, selected at build time by GOOS
// (see transport_usbhid.go and transport_windows.go); this file holds the
// shared device-identification and pacing logic.
package hidtransport

import (
	"fmt"
	"time"

	"github.com/ivorwanders-go/gpspod/internal/gpserr"
)

// VendorID and ProductID identify the device, observed by capturing
// enumeration traffic; no vendor document specifies them.
const (
	VendorID  uint16 = 0x1493
	ProductID uint16 = 0x0020
)

// ReportSize is the fixed HID report length in both directions.
const ReportSize = 64

// Pacing holds the three knobs SPEC_FULL.md's environment variables map to.
// Some host USB stacks corrupt a transfer that follows too closely behind a
// large read; ReadSleepDuration inserts a pause when a read returns at
// least ReadSleepMinSize bytes.
type Pacing struct {
	ReadTimeout       time.Duration
	ReadSleepMinSize  int
	ReadSleepDuration time.Duration
}

// DefaultPacing matches the conservative defaults observed to work across
// the widest range of host controllers.
var DefaultPacing = Pacing{
	ReadTimeout:       2 * time.Second,
	ReadSleepMinSize:  0,
	ReadSleepDuration: 0,
}

// Device is an opened HID endpoint, implementing gpspacket.Transport.
type Device interface {
	WriteReport(data []byte) error
	ReadReport(timeout time.Duration) ([]byte, error)
	Close() error
}

// Info describes one enumerated HID device, independent of backend.
type Info struct {
	Path         string
	VendorID     uint16
	ProductID    uint16
	Product      string
	Manufacturer string
	SerialNumber string
}

// Manager enumerates and opens devices matching VendorID/ProductID.
type Manager interface {
	List() ([]Info, error)
	Open(info Info) (Device, error)
}

// NewManager returns the OS-specific manager.
func NewManager() (Manager, error) {
	return newManager()
}

// Open finds and opens the first device matching VendorID/ProductID.
func Open() (Device, error) {
	dev, _, err := OpenWithInfo()
	return dev, err
}

// OpenWithInfo is Open, but also returns the matched device's Info — the
// serial number in particular is what callers use to key a persistent
// memory cache to the physical device rather than to a session.
func OpenWithInfo() (Device, Info, error) {
	const op = "hidtransport.Open"
	mgr, err := NewManager()
	if err != nil {
		return nil, Info{}, gpserr.New(gpserr.Transport, op, err)
	}
	infos, err := mgr.List()
	if err != nil {
		return nil, Info{}, gpserr.New(gpserr.Transport, op, err)
	}
	for _, info := range infos {
		if info.VendorID == VendorID && info.ProductID == ProductID {
			dev, err := mgr.Open(info)
			if err != nil {
				return nil, Info{}, gpserr.New(gpserr.Transport, op, err)
			}
			return &pacedDevice{Device: dev, pacing: DefaultPacing}, info, nil
		}
	}
	return nil, Info{}, gpserr.New(gpserr.Transport, op, fmt.Errorf("no device found (VID:0x%04X PID:0x%04X)", VendorID, ProductID))
}

// pacedDevice wraps a backend Device with the read-sleep pacing knob.
type pacedDevice struct {
	Device
	pacing Pacing
}

func (d *pacedDevice) ReadReport(timeout time.Duration) ([]byte, error) {
	data, err := d.Device.ReadReport(timeout)
	if err == nil && d.pacing.ReadSleepDuration > 0 && len(data) >= d.pacing.ReadSleepMinSize {
		time.Sleep(d.pacing.ReadSleepDuration)
	}
	return data, err
}

// WithPacing rewraps dev with a non-default pacing configuration.
func WithPacing(dev Device, pacing Pacing) Device {
	return &pacedDevice{Device: dev, pacing: pacing}
}
