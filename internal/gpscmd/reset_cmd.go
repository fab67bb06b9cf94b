package gpscmd

import "github.com/ivorwanders-go/gpspod/internal/gpspacket"

const cmdReset = 0x0002

// Reset asks the device to reboot its communication stack. The current
// session's transport must be closed and reopened afterward; the device
// does not resume the same sequence numbering.
func (c *Client) Reset() error {
	const op = "gpscmd.Reset"
	reply, err := c.exchange(op, cmdReset, cmdReset, dirRequest, dirReply, gpspacket.DefaultFormat, nil)
	if err != nil {
		return err
	}
	return statusOK(op, reply.Body)
}
