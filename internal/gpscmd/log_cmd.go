package gpscmd

import (
	"encoding/binary"

	"github.com/ivorwanders-go/gpspod/internal/gpserr"
	"github.com/ivorwanders-go/gpspod/internal/gpspacket"
)

const (
	cmdLogCount        = 0x060B
	cmdLogHeaderRewind = 0x070B
	cmdLogHeaderStep   = 0x0A0B
	cmdLogHeaderEntry  = 0x0B0B
	cmdLogHeaderPeek   = 0x080B
)

// LogCount returns the number of log headers the device currently holds
// (device event log entries, not GPS tracks).
func (c *Client) LogCount() (uint16, error) {
	const op = "gpscmd.LogCount"
	reply, err := c.exchange(op, cmdLogCount, cmdLogCount, dirRequest, dirReply, gpspacket.DefaultFormat, nil)
	if err != nil {
		return 0, err
	}
	if len(reply.Body) < 2 {
		return 0, gpserr.New(gpserr.Protocol, op, errShortBody(2, len(reply.Body)))
	}
	return binary.LittleEndian.Uint16(reply.Body[0:2]), nil
}

// LogHeader is one device event-log entry: an event code and its
// device-relative timestamp.
type LogHeader struct {
	EventCode byte
	Timestamp uint32
}

func parseLogHeader(op string, body []byte) (LogHeader, error) {
	if len(body) < 5 {
		return LogHeader{}, gpserr.New(gpserr.Protocol, op, errShortBody(5, len(body)))
	}
	return LogHeader{
		EventCode: body[0],
		Timestamp: binary.LittleEndian.Uint32(body[1:5]),
	}, nil
}

// LogHeaderRewind resets the device's log-header cursor to the oldest entry
// and returns it.
func (c *Client) LogHeaderRewind() (LogHeader, error) {
	const op = "gpscmd.LogHeaderRewind"
	reply, err := c.exchange(op, cmdLogHeaderRewind, cmdLogHeaderRewind, dirRequest, dirReply, gpspacket.DefaultFormat, nil)
	if err != nil {
		return LogHeader{}, err
	}
	return parseLogHeader(op, reply.Body)
}

// LogHeaderStep advances the cursor to the next entry and returns it.
func (c *Client) LogHeaderStep() (LogHeader, error) {
	const op = "gpscmd.LogHeaderStep"
	reply, err := c.exchange(op, cmdLogHeaderStep, cmdLogHeaderStep, dirRequest, dirReply, gpspacket.DefaultFormat, nil)
	if err != nil {
		return LogHeader{}, err
	}
	return parseLogHeader(op, reply.Body)
}

// LogHeaderEntry returns the entry the cursor currently points at, without
// advancing it.
func (c *Client) LogHeaderEntry() (LogHeader, error) {
	const op = "gpscmd.LogHeaderEntry"
	reply, err := c.exchange(op, cmdLogHeaderEntry, cmdLogHeaderEntry, dirRequest, dirReply, gpspacket.DefaultFormat, nil)
	if err != nil {
		return LogHeader{}, err
	}
	return parseLogHeader(op, reply.Body)
}

// LogHeaderPeek returns the next entry without advancing the cursor,
// useful for detecting end-of-log without disturbing iteration state.
func (c *Client) LogHeaderPeek() (LogHeader, error) {
	const op = "gpscmd.LogHeaderPeek"
	reply, err := c.exchange(op, cmdLogHeaderPeek, cmdLogHeaderPeek, dirRequest, dirReply, gpspacket.DefaultFormat, nil)
	if err != nil {
		return LogHeader{}, err
	}
	return parseLogHeader(op, reply.Body)
}
