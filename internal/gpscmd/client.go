// Package gpscmd implements the typed request/reply commands the device
// understands, one file per command in the style of
// seagrayinc-gorow's pkg/pm5/csafe_*_cmd.go: a constant pair of command
// codes, a constructor, and a reply parser.
package gpscmd

import (
	"fmt"
	"time"

	"github.com/ivorwanders-go/gpspod/internal/gpserr"
	"github.com/ivorwanders-go/gpspod/internal/gpspacket"
)

// Client drives one command exchange at a time over a codec.
type Client struct {
	codec *gpspacket.Codec
}

// NewClient wraps codec for typed command use.
func NewClient(codec *gpspacket.Codec) *Client {
	return &Client{codec: codec}
}

// transportRetryBackoff bounds retries of transport-level timeouts,
// distinct from the codec's own retries of transient packet-level errors.
var transportRetryBackoff = []time.Duration{10 * time.Millisecond, 40 * time.Millisecond, 160 * time.Millisecond}

// dirRequest/dirReply are the direction codes carried by every message
// except DeviceInfo, which uses its own pair (see device_info_cmd.go).
const (
	dirRequest = 0x0005
	dirReply   = 0x000a
)

// exchange sends a request with command code reqCmd and direction reqDir
// using the given format, and validates that the reply carries command code
// replyCmd and direction replyDir. Direction is not a command echo: the
// device uses one pair of direction codes for ordinary requests/replies and
// a distinct pair for DeviceInfo, so the caller supplies both explicitly.
func (c *Client) exchange(op string, reqCmd, replyCmd, reqDir, replyDir, format uint16, body []byte) (gpspacket.Message, error) {
	var lastErr error
	for attempt := 0; ; attempt++ {
		reply, err := c.codec.Do(reqCmd, reqDir, format, body)
		if err == nil {
			if reply.Command != replyCmd {
				return gpspacket.Message{}, gpserr.New(gpserr.Protocol, op,
					fmt.Errorf("unexpected reply command 0x%04X, want 0x%04X", reply.Command, replyCmd))
			}
			if reply.Direction != replyDir {
				return gpspacket.Message{}, gpserr.New(gpserr.Protocol, op,
					fmt.Errorf("unexpected reply direction 0x%04X, want 0x%04X", reply.Direction, replyDir))
			}
			return reply, nil
		}
		if !gpserr.Is(err, gpserr.Transport) || attempt >= len(transportRetryBackoff) {
			return gpspacket.Message{}, err
		}
		lastErr = err
		time.Sleep(transportRetryBackoff[attempt])
	}
	return gpspacket.Message{}, gpserr.New(gpserr.Transport, op, lastErr)
}

func errShortBody(want, got int) error {
	return fmt.Errorf("reply body too short: want at least %d bytes, got %d", want, got)
}

// statusOK reports the device error taxonomy: byte 0 of a reply body is a
// status code, 0 meaning success.
func statusOK(op string, body []byte) error {
	if len(body) == 0 {
		return gpserr.New(gpserr.Protocol, op, fmt.Errorf("empty reply body"))
	}
	if body[0] != 0 {
		return gpserr.New(gpserr.Device, op, fmt.Errorf("device returned status 0x%02X", body[0]))
	}
	return nil
}
