package gpspacket

import (
	"encoding/binary"
	"fmt"

	"github.com/ivorwanders-go/gpspod/internal/gpserr"
)

const (
	// magicByte marks the start of a well-formed packet header.
	magicByte = 0x3F

	// PartFirst begins a message; its Sequence field carries the total
	// packet count for the message. PartNext continues one; its Sequence
	// field carries this packet's 1-based index within the message.
	PartFirst byte = 0x5D
	PartNext  byte = 0x5E

	headerSize = 8 // magic, usbLength, part, msgLength, sequence(2), checksum(2)
	crcSize    = 2

	// Size is the fixed on-wire packet length. Byte 0 (magicByte) doubles
	// as the HID report ID: the backends in internal/hidtransport send it
	// as the report ID on output and hand it back in front of the report
	// on input.
	Size = 64

	// MaxData is the largest payload a single packet can carry.
	MaxData = Size - headerSize - crcSize

	// MaxMessageSize bounds the total size of one command message body,
	// matching the device's own MAX_PACKET_SIZE.
	MaxMessageSize = 540
)

// Packet is one fixed-size transfer unit: a message chunk plus its framing.
type Packet struct {
	Part     byte
	Sequence uint16 // total count (PartFirst) or 1-based index (PartNext)
	Data     []byte
}

// Encode renders p into a Size-byte buffer ready to hand to the transport
// as-is.
func (p Packet) Encode() ([]byte, error) {
	if len(p.Data) > MaxData {
		return nil, gpserr.New(gpserr.Usage, "gpspacket.Packet.Encode",
			fmt.Errorf("payload of %d bytes exceeds max %d", len(p.Data), MaxData))
	}
	buf := make([]byte, Size)
	msgLen := byte(len(p.Data))
	buf[0] = magicByte
	buf[1] = msgLen + byte(headerSize)
	buf[2] = p.Part
	buf[3] = msgLen
	binary.LittleEndian.PutUint16(buf[4:6], p.Sequence)
	headerChecksum := crc16(buf[2:6], crc16Init)
	binary.LittleEndian.PutUint16(buf[6:8], headerChecksum)
	copy(buf[headerSize:], p.Data)
	dataChecksum := crc16(p.Data, headerChecksum)
	binary.LittleEndian.PutUint16(buf[headerSize+len(p.Data):], dataChecksum)
	return buf, nil
}

// Decode parses a Size-byte (or larger — trailing bytes are ignored) raw
// packet buffer, validating the header checksum, the declared length, and
// the payload checksum. A checksum failure is a *gpserr.Error of Kind
// Packet, which Codec.Do retries.
func Decode(raw []byte) (Packet, error) {
	const op = "gpspacket.Decode"
	if len(raw) < headerSize+crcSize {
		return Packet{}, gpserr.New(gpserr.Packet, op, fmt.Errorf("short packet: %d bytes", len(raw)))
	}
	if raw[0] != magicByte {
		return Packet{}, gpserr.New(gpserr.Packet, op, fmt.Errorf("bad magic byte 0x%02X", raw[0]))
	}
	part := raw[2]
	msgLen := raw[3]
	if raw[1] != msgLen+byte(headerSize) {
		return Packet{}, gpserr.New(gpserr.Packet, op, fmt.Errorf("usb length %d inconsistent with message length %d", raw[1], msgLen))
	}
	seq := binary.LittleEndian.Uint16(raw[4:6])
	headerChecksum := binary.LittleEndian.Uint16(raw[6:8])
	if crc16(raw[2:6], crc16Init) != headerChecksum {
		return Packet{}, gpserr.New(gpserr.Packet, op, fmt.Errorf("header checksum mismatch"))
	}
	end := headerSize + int(msgLen)
	if len(raw) < end+crcSize {
		return Packet{}, gpserr.New(gpserr.Packet, op, fmt.Errorf("packet truncated: need %d bytes, have %d", end+crcSize, len(raw)))
	}
	data := make([]byte, msgLen)
	copy(data, raw[headerSize:end])
	declared := binary.LittleEndian.Uint16(raw[end : end+crcSize])
	if crc16(data, headerChecksum) != declared {
		return Packet{}, gpserr.New(gpserr.Packet, op, fmt.Errorf("payload checksum mismatch"))
	}
	return Packet{Part: part, Sequence: seq, Data: data}, nil
}

// IsFirst reports whether this packet begins a message.
func (p Packet) IsFirst() bool { return p.Part == PartFirst }
