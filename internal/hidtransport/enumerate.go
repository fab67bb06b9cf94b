package hidtransport

import (
	"github.com/karalabe/usb"

	"github.com/ivorwanders-go/gpspod/internal/gpserr"
)

// RawUSBInfo describes one USB device seen by the low-level enumerator,
// independent of whether the OS also exposes it as a HID endpoint. Used by
// the `debug usb-list` diagnostic to show what the machine's USB stack sees
// regardless of driver claiming.
type RawUSBInfo struct {
	Path         string
	VendorID     uint16
	ProductID    uint16
	Manufacturer string
	Product      string
	SerialNumber string
}

// EnumerateRaw lists every USB device visible to the low-level enumerator,
// not just ones matching VendorID/ProductID — useful for diagnosing why a
// device isn't being found by Open.
func EnumerateRaw() ([]RawUSBInfo, error) {
	const op = "hidtransport.EnumerateRaw"
	devs, err := usb.Enumerate(0, 0)
	if err != nil {
		return nil, gpserr.New(gpserr.Transport, op, err)
	}
	out := make([]RawUSBInfo, 0, len(devs))
	for _, d := range devs {
		out = append(out, RawUSBInfo{
			Path:         d.Path,
			VendorID:     d.VendorID,
			ProductID:    d.ProductID,
			Manufacturer: d.Manufacturer,
			Product:      d.Product,
			SerialNumber: d.Serial,
		})
	}
	return out, nil
}
