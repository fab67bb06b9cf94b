package gpscmd

import (
	"encoding/binary"

	"github.com/ivorwanders-go/gpspod/internal/gpspacket"
)

const (
	cmdReadSettings  = 0x000B
	cmdWriteSettings = 0x010B
)

// ReadSettings fetches the device's opaque settings blob in full; callers
// interpret specific offsets within it (the layout is device-firmware
// specific and not further decoded here).
func (c *Client) ReadSettings() ([]byte, error) {
	const op = "gpscmd.ReadSettings"
	reply, err := c.exchange(op, cmdReadSettings, cmdReadSettings, dirRequest, dirReply, gpspacket.DefaultFormat, nil)
	if err != nil {
		return nil, err
	}
	return reply.Body, nil
}

// WriteSetting overwrites length bytes of the settings blob starting at
// offset with data. The caller is responsible for keeping offset/length
// consistent with a prior ReadSettings.
func (c *Client) WriteSetting(offset uint16, data []byte) error {
	const op = "gpscmd.WriteSetting"
	body := make([]byte, 4+len(data))
	binary.LittleEndian.PutUint16(body[0:2], offset)
	binary.LittleEndian.PutUint16(body[2:4], uint16(len(data)))
	copy(body[4:], data)

	reply, err := c.exchange(op, cmdWriteSettings, cmdWriteSettings, dirRequest, dirReply, gpspacket.DefaultFormat, body)
	if err != nil {
		return err
	}
	return statusOK(op, reply.Body)
}
