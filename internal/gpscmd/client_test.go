package gpscmd

import (
	"encoding/binary"
	"errors"
	"testing"
	"time"

	"github.com/ivorwanders-go/gpspod/internal/gpserr"
	"github.com/ivorwanders-go/gpspod/internal/gpspacket"
)

// scriptedTransport replies with one pre-encoded message per request,
// ignoring what was actually written (tests only need to control what
// comes back).
type scriptedTransport struct {
	replies [][]byte
}

func (s *scriptedTransport) WriteReport(data []byte) error { return nil }

func (s *scriptedTransport) ReadReport(timeout time.Duration) ([]byte, error) {
	if len(s.replies) == 0 {
		return nil, errors.New("no more scripted replies")
	}
	next := s.replies[0]
	s.replies = s.replies[1:]
	return next, nil
}

func newScriptedClient(t *testing.T, reply gpspacket.Message) *Client {
	t.Helper()
	transport := &scriptedTransport{}
	for _, p := range gpspacket.Packetize(reply) {
		raw, err := p.Encode()
		if err != nil {
			t.Fatalf("encode scripted reply: %v", err)
		}
		transport.replies = append(transport.replies, raw)
	}
	codec := gpspacket.NewCodec(transport, time.Second)
	return NewClient(codec)
}

func TestDeviceStatus(t *testing.T) {
	reply := gpspacket.Message{
		Command: cmdDeviceStatus, Direction: dirReply, PacketSequence: 0,
		Body: []byte{0, 87},
	}
	client := newScriptedClient(t, reply)

	status, err := client.DeviceStatus()
	if err != nil {
		t.Fatalf("DeviceStatus: %v", err)
	}
	if status.BatteryPercent != 87 {
		t.Fatalf("expected 87%%, got %d", status.BatteryPercent)
	}
}

func TestDeviceInfo(t *testing.T) {
	body := make([]byte, modelFieldLen+serialFieldLen+versionLen*3)
	copy(body[0:], "GpsPod")
	copy(body[modelFieldLen:], "SN12345")
	copy(body[modelFieldLen+serialFieldLen:], []byte{1, 6, 39, 0})
	copy(body[modelFieldLen+serialFieldLen+versionLen:], []byte{66, 2, 0, 0})
	copy(body[modelFieldLen+serialFieldLen+versionLen*2:], []byte{1, 4, 3, 0})

	reply := gpspacket.Message{Command: cmdDeviceInfoReply, Direction: dirDeviceInfoReply, PacketSequence: 0, Body: body}
	client := newScriptedClient(t, reply)

	info, err := client.DeviceInfo()
	if err != nil {
		t.Fatalf("DeviceInfo: %v", err)
	}
	if info.Model != "GpsPod" || info.SerialNumber != "SN12345" {
		t.Fatalf("unexpected info: %+v", info)
	}
	if info.FirmwareVersion.String() != "1.6.39.0" || info.HardwareVersion.String() != "66.2.0.0" || info.BootloaderVersion.String() != "1.4.3.0" {
		t.Fatalf("unexpected versions: fw=%s hw=%s bsl=%s", info.FirmwareVersion, info.HardwareVersion, info.BootloaderVersion)
	}
}

func TestWriteSettingAck(t *testing.T) {
	reply := gpspacket.Message{Command: cmdWriteSettings, Direction: dirReply, PacketSequence: 0, Body: []byte{0x00}}
	client := newScriptedClient(t, reply)

	if err := client.WriteSetting(4, []byte{1, 2, 3}); err != nil {
		t.Fatalf("WriteSetting: %v", err)
	}
}

func TestWriteSettingDeviceError(t *testing.T) {
	reply := gpspacket.Message{Command: cmdWriteSettings, Direction: dirReply, PacketSequence: 0, Body: []byte{0x01}}
	client := newScriptedClient(t, reply)

	err := client.WriteSetting(4, []byte{1})
	if !gpserr.Is(err, gpserr.Device) {
		t.Fatalf("expected DeviceError, got %v", err)
	}
}

func TestReadMemoryRejectsOversizeRequest(t *testing.T) {
	client := newScriptedClient(t, gpspacket.Message{})
	_, err := client.ReadMemory(0, MaxReadMemoryLength+1)
	if !gpserr.Is(err, gpserr.Usage) {
		t.Fatalf("expected UsageError, got %v", err)
	}
}

func TestReadMemoryPositionMismatch(t *testing.T) {
	body := make([]byte, 8+4)
	binary.LittleEndian.PutUint32(body[0:4], 999) // wrong position
	binary.LittleEndian.PutUint32(body[4:8], 4)
	reply := gpspacket.Message{Command: cmdDataRequest, Direction: dirReply, PacketSequence: 0, Body: body}
	client := newScriptedClient(t, reply)

	_, err := client.ReadMemory(0, 4)
	if !gpserr.Is(err, gpserr.Protocol) {
		t.Fatalf("expected ProtocolError, got %v", err)
	}
}

func TestReset(t *testing.T) {
	reply := gpspacket.Message{Command: cmdReset, Direction: dirReply, PacketSequence: 0, Body: []byte{0x00}}
	client := newScriptedClient(t, reply)
	if err := client.Reset(); err != nil {
		t.Fatalf("Reset: %v", err)
	}
}

func TestCommandName(t *testing.T) {
	if got := CommandName(cmdDeviceStatus, dirRequest); got != "DeviceStatusRequest" {
		t.Fatalf("unexpected name: %q", got)
	}
	if got := CommandName(cmdDeviceStatus, dirReply); got != "DeviceStatusReply" {
		t.Fatalf("unexpected name: %q", got)
	}
	if got := CommandName(0xFFFF, 0xFFFF); got != "" {
		t.Fatalf("expected empty name for unknown pair, got %q", got)
	}
}
