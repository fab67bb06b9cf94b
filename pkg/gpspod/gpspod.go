// Package gpspod is the public client for a GpsPod GPS recording device:
// it ties together the wire codec, command set, on-device memory view and
// track decoder behind one facade, the way device.py's GpsPod class does
// in the original implementation this client is descended from.
package gpspod

import (
	"crypto/rand"
	"fmt"
	"log/slog"
	"time"

	"github.com/ivorwanders-go/gpspod/internal/gpscmd"
	"github.com/ivorwanders-go/gpspod/internal/gpspacket"
	"github.com/ivorwanders-go/gpspod/internal/hidtransport"
	"github.com/ivorwanders-go/gpspod/internal/pmem"
	"github.com/ivorwanders-go/gpspod/internal/pmem/memview"
	"github.com/ivorwanders-go/gpspod/internal/samples"
)

// DefaultReadTimeout matches the original implementation's default
// per-packet USB read timeout.
const DefaultReadTimeout = time.Second

// Client is a connected GpsPod. cmd is nil for a Client mounted from an
// offline dump via OpenFile, in which case only the memory-backed
// operations (LoadTracks, LoadEventLog) are available.
type Client struct {
	cmd  *gpscmd.Client
	view memview.MemoryReader
}

// New wraps an already-open transport. cache may be nil, in which case
// fetched memory chunks are cached in-process only for the lifetime of
// the returned Client.
func New(transport gpspacket.Transport, readTimeout time.Duration, cache memview.Cache) *Client {
	codec := gpspacket.NewCodec(transport, readTimeout)
	cmd := gpscmd.NewClient(codec)
	var view *memview.View
	if cache != nil {
		view = memview.NewWithCache(cmd, cache)
	} else {
		view = memview.New(cmd)
	}
	return &Client{cmd: cmd, view: view}
}

// Open enumerates and opens the first attached device with the given read
// pacing, wraps it in a Client, and returns a closer for the underlying
// transport alongside it.
func Open(pacing hidtransport.Pacing, cache memview.Cache) (*Client, func() error, error) {
	dev, err := hidtransport.Open()
	if err != nil {
		return nil, nil, err
	}
	dev = hidtransport.WithPacing(dev, pacing)
	client := New(dev, pacing.ReadTimeout, cache)
	return client, dev.Close, nil
}

// OpenFile mounts an offline dump previously written by DumpMemory,
// instead of a live device, for working with a capture without the
// physical device attached. Only memory-backed operations are usable on
// the returned Client.
func OpenFile(path string) (*Client, func() error, error) {
	fv, err := memview.OpenFileView(path)
	if err != nil {
		return nil, nil, err
	}
	return &Client{view: fv}, fv.Close, nil
}

func (c *Client) requireLive(op string) error {
	if c.cmd == nil {
		return fmt.Errorf("%s: not available on a Client opened from a file dump", op)
	}
	return nil
}

// DeviceInfo reports the device's identification fields.
func (c *Client) DeviceInfo() (gpscmd.DeviceInfoResponse, error) {
	if err := c.requireLive("DeviceInfo"); err != nil {
		return gpscmd.DeviceInfoResponse{}, err
	}
	return c.cmd.DeviceInfo()
}

// DeviceStatus reports the device's current status, such as battery level.
func (c *Client) DeviceStatus() (gpscmd.DeviceStatusResponse, error) {
	if err := c.requireLive("DeviceStatus"); err != nil {
		return gpscmd.DeviceStatusResponse{}, err
	}
	return c.cmd.DeviceStatus()
}

// ReadSettings returns the device's raw settings blob.
func (c *Client) ReadSettings() ([]byte, error) {
	if err := c.requireLive("ReadSettings"); err != nil {
		return nil, err
	}
	return c.cmd.ReadSettings()
}

// WriteSetting writes data at offset within the settings blob.
func (c *Client) WriteSetting(offset uint16, data []byte) error {
	if err := c.requireLive("WriteSetting"); err != nil {
		return err
	}
	if err := c.cmd.WriteSetting(offset, data); err != nil {
		return err
	}
	if v, ok := c.view.(*memview.View); ok {
		v.Invalidate(int64(offset), len(data))
	}
	return nil
}

// SetDate sets the device's clock date to t.
func (c *Client) SetDate(t time.Time) error {
	if err := c.requireLive("SetDate"); err != nil {
		return err
	}
	return c.cmd.SetDate(t)
}

// SetTime sets the device's clock time to t.
func (c *Client) SetTime(t time.Time) error {
	if err := c.requireLive("SetTime"); err != nil {
		return err
	}
	return c.cmd.SetTime(t)
}

// Reset restarts the device.
func (c *Client) Reset() error {
	if err := c.requireLive("Reset"); err != nil {
		return err
	}
	return c.cmd.Reset()
}

// LogCount returns the number of entries in the device's short-form event
// log (distinct from the PMEM event log exposed by LoadEventLog).
func (c *Client) LogCount() (uint16, error) {
	if err := c.requireLive("LogCount"); err != nil {
		return 0, err
	}
	return c.cmd.LogCount()
}

// LoadTracks walks the device's track log and decodes every recorded
// activity. A partial decode failure truncates only the affected track
// (see internal/samples); LoadTracks itself only fails if the underlying
// PMEM chain could not be read at all.
func (c *Client) LoadTracks() ([]samples.Track, error) {
	chain := pmem.NewChain(c.view, pmem.TrackBlockOffset)
	data, err := chain.Bytes()
	if data == nil && err != nil {
		return nil, err
	}
	decoder := samples.NewDecoder(rand.Reader)
	tracks := decoder.Decode(data)
	if err != nil {
		slog.Warn("track log ended early", "error", err)
	}
	return tracks, nil
}

// LoadEventLog returns the device's internal PMEM event log as raw bytes.
// The original implementation leaves this log's record format
// undocumented, so this client exposes it as a diagnostic byte stream
// rather than guessing a decoding for it.
func (c *Client) LoadEventLog() ([]byte, error) {
	chain := pmem.NewChain(c.view, pmem.LogBlockOffset)
	data, err := chain.Bytes()
	if data == nil && err != nil {
		return nil, err
	}
	return data, nil
}

// DumpMemory streams the entire addressable memory region to path, for
// later use with OpenFile.
func (c *Client) DumpMemory(path string) error {
	return memview.Dump(c.view, path)
}
