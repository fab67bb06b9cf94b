package gpscmd

import (
	"encoding/binary"
	"fmt"

	"github.com/ivorwanders-go/gpspod/internal/gpserr"
	"github.com/ivorwanders-go/gpspod/internal/gpspacket"
)

const cmdDataRequest = 0x0007

// MaxReadMemoryLength is the largest single read the device accepts;
// internal/pmem/memview coalesces contiguous chunk misses up to this cap
// into one command instead of issuing one per chunk.
const MaxReadMemoryLength = 32 * 1024

// ReadMemory fetches length bytes of the device's memory region starting
// at position. length must not exceed MaxReadMemoryLength; internal/pmem/memview
// is responsible for splitting larger reads into aligned chunks.
func (c *Client) ReadMemory(position uint32, length uint16) ([]byte, error) {
	const op = "gpscmd.ReadMemory"
	if length > MaxReadMemoryLength {
		return nil, gpserr.New(gpserr.Usage, op, fmt.Errorf("length %d exceeds max %d", length, MaxReadMemoryLength))
	}
	body := make([]byte, 8)
	binary.LittleEndian.PutUint32(body[0:4], position)
	binary.LittleEndian.PutUint32(body[4:8], uint32(length))

	reply, err := c.exchange(op, cmdDataRequest, cmdDataRequest, dirRequest, dirReply, gpspacket.DefaultFormat, body)
	if err != nil {
		return nil, err
	}
	if len(reply.Body) < 8 {
		return nil, gpserr.New(gpserr.Protocol, op, errShortBody(8, len(reply.Body)))
	}
	replyPos := binary.LittleEndian.Uint32(reply.Body[0:4])
	replyLen := binary.LittleEndian.Uint32(reply.Body[4:8])
	if replyPos != position {
		return nil, gpserr.New(gpserr.Protocol, op, fmt.Errorf("reply position %d does not match request %d", replyPos, position))
	}
	data := reply.Body[8:]
	if len(data) < int(replyLen) {
		return nil, gpserr.New(gpserr.Protocol, op, errShortBody(int(replyLen), len(data)))
	}
	return data[:replyLen], nil
}
