//go:build !windows

package hidtransport

import (
	"fmt"
	"time"

	usbhid "rafaelmartins.com/p/usbhid"
)

type usbhidManager struct{}

func newManager() (Manager, error) { return &usbhidManager{}, nil }

func (m *usbhidManager) List() ([]Info, error) {
	devs, err := usbhid.Enumerate(nil)
	if err != nil {
		return nil, err
	}
	out := make([]Info, 0, len(devs))
	for _, d := range devs {
		out = append(out, Info{
			Path:         d.Path(),
			VendorID:     d.VendorId(),
			ProductID:    d.ProductId(),
			Product:      d.Product(),
			Manufacturer: d.Manufacturer(),
		})
	}
	return out, nil
}

func (m *usbhidManager) Open(info Info) (Device, error) {
	d, err := usbhid.Get(func(dev *usbhid.Device) bool {
		return dev.Path() == info.Path
	}, true, false)
	if err != nil {
		return nil, err
	}
	return &usbhidDevice{d: d}, nil
}

type usbhidDevice struct {
	d *usbhid.Device
}

func (d *usbhidDevice) WriteReport(data []byte) error {
	if len(data) == 0 {
		return fmt.Errorf("empty report")
	}
	// data[0] carries the report ID for this device; the rest is the
	// fixed 64-byte payload.
	return d.d.SetOutputReport(data[0], data[1:])
}

// readResult carries the outcome of one blocking GetInputReport call back
// to ReadReport's select.
type readResult struct {
	id   byte
	data []byte
	err  error
}

// ReadReport blocks on the underlying GetInputReport call and races it
// against timeout. The library exposes no native read deadline; on timeout
// the goroutine is left to finish (or block forever if the device never
// replies) and its result is discarded into the buffered channel.
func (d *usbhidDevice) ReadReport(timeout time.Duration) ([]byte, error) {
	ch := make(chan readResult, 1)
	go func() {
		id, buf, err := d.d.GetInputReport()
		ch <- readResult{id: id, data: buf, err: err}
	}()
	select {
	case r := <-ch:
		if r.err != nil {
			return nil, r.err
		}
		out := make([]byte, 0, len(r.data)+1)
		out = append(out, r.id)
		out = append(out, r.data...)
		return out, nil
	case <-time.After(timeout):
		return nil, fmt.Errorf("read timed out after %s", timeout)
	}
}

func (d *usbhidDevice) Close() error { return d.d.Close() }
