package gpscmd

import (
	"github.com/ivorwanders-go/gpspod/internal/gpserr"
	"github.com/ivorwanders-go/gpspod/internal/gpspacket"
)

const cmdDeviceStatus = 0x0603

// DeviceStatusResponse reports the battery charge level.
type DeviceStatusResponse struct {
	BatteryPercent byte
}

// DeviceStatus asks the device for its current battery charge.
func (c *Client) DeviceStatus() (DeviceStatusResponse, error) {
	const op = "gpscmd.DeviceStatus"
	reply, err := c.exchange(op, cmdDeviceStatus, cmdDeviceStatus, dirRequest, dirReply, gpspacket.DefaultFormat, nil)
	if err != nil {
		return DeviceStatusResponse{}, err
	}
	if len(reply.Body) < 2 {
		return DeviceStatusResponse{}, gpserr.New(gpserr.Protocol, op, errShortBody(2, len(reply.Body)))
	}
	return DeviceStatusResponse{BatteryPercent: reply.Body[1]}, nil
}
