package gpscmd

import (
	"fmt"
	"strings"

	"github.com/ivorwanders-go/gpspod/internal/gpserr"
)

const (
	cmdDeviceInfoRequest = 0x0000
	cmdDeviceInfoReply   = 0x0200

	// DeviceInfo carries its own direction codes rather than the
	// dirRequest/dirReply pair every other command uses.
	dirDeviceInfoRequest = 0x0001
	dirDeviceInfoReply   = 0x0002

	// formatDeviceInfo overrides gpspacket.DefaultFormat: DeviceInfoRequest
	// is one of the handful of messages the device expects with format 0.
	formatDeviceInfo = 0x0000

	modelFieldLen  = 16
	serialFieldLen = 16
	versionLen     = 4
)

// clientVersion is this client's own protocol version, sent as the
// DeviceInfoRequest body on every identify call.
var clientVersion = version{2, 4, 89, 0}

// version is a four-component device version number, e.g. "1.6.39.0".
type version [versionLen]byte

func (v version) String() string {
	return fmt.Sprintf("%d.%d.%d.%d", v[0], v[1], v[2], v[3])
}

// DeviceInfoResponse is the device's self-identification: model name,
// serial number, and the three version numbers that matter for
// compatibility decisions.
type DeviceInfoResponse struct {
	Model             string
	SerialNumber      string
	FirmwareVersion   version
	HardwareVersion   version
	BootloaderVersion version
}

// DeviceInfo asks the device to identify itself, sending clientVersion as
// the protocol revision this client speaks; the device may reject an
// incompatible one with a non-zero status.
func (c *Client) DeviceInfo() (DeviceInfoResponse, error) {
	const op = "gpscmd.DeviceInfo"

	reply, err := c.exchange(op, cmdDeviceInfoRequest, cmdDeviceInfoReply, dirDeviceInfoRequest, dirDeviceInfoReply, formatDeviceInfo, clientVersion[:])
	if err != nil {
		return DeviceInfoResponse{}, err
	}
	want := modelFieldLen + serialFieldLen + versionLen*3
	if len(reply.Body) < want {
		return DeviceInfoResponse{}, gpserr.New(gpserr.Protocol, op, errShortBody(want, len(reply.Body)))
	}
	off := 0
	model := trimASCII(reply.Body[off : off+modelFieldLen])
	off += modelFieldLen
	serial := trimASCII(reply.Body[off : off+serialFieldLen])
	off += serialFieldLen
	var fw, hw, boot version
	copy(fw[:], reply.Body[off:off+versionLen])
	off += versionLen
	copy(hw[:], reply.Body[off:off+versionLen])
	off += versionLen
	copy(boot[:], reply.Body[off:off+versionLen])

	return DeviceInfoResponse{
		Model:             model,
		SerialNumber:      serial,
		FirmwareVersion:   fw,
		HardwareVersion:   hw,
		BootloaderVersion: boot,
	}, nil
}

func trimASCII(b []byte) string {
	i := 0
	for i < len(b) && b[i] != 0 {
		i++
	}
	return strings.TrimSpace(string(b[:i]))
}
