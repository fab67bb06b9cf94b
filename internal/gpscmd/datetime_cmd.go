package gpscmd

import (
	"encoding/binary"
	"time"

	"github.com/ivorwanders-go/gpspod/internal/gpspacket"
)

const (
	cmdSetDate = 0x0203
	cmdSetTime = 0x0003
)

// SetDate writes the device's calendar date.
func (c *Client) SetDate(t time.Time) error {
	const op = "gpscmd.SetDate"
	body := []byte{byte(t.Year() - 2000), byte(t.Month()), byte(t.Day())}
	reply, err := c.exchange(op, cmdSetDate, cmdSetDate, dirRequest, dirReply, gpspacket.DefaultFormat, body)
	if err != nil {
		return err
	}
	return statusOK(op, reply.Body)
}

// SetTime writes the device's wall-clock time, including a milliseconds
// field for sub-second alignment with the host clock.
func (c *Client) SetTime(t time.Time) error {
	const op = "gpscmd.SetTime"
	body := make([]byte, 5)
	body[0] = byte(t.Hour())
	body[1] = byte(t.Minute())
	body[2] = byte(t.Second())
	binary.LittleEndian.PutUint16(body[3:5], uint16(t.Nanosecond()/1_000_000))
	reply, err := c.exchange(op, cmdSetTime, cmdSetTime, dirRequest, dirReply, gpspacket.DefaultFormat, body)
	if err != nil {
		return err
	}
	return statusOK(op, reply.Body)
}
