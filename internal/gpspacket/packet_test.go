package gpspacket

import (
	"testing"

	"github.com/ivorwanders-go/gpspod/internal/gpserr"
)

func TestPacketEncodeDecodeRoundTrip(t *testing.T) {
	p := Packet{Part: PartFirst, Sequence: 1, Data: []byte("hello")}
	raw, err := p.Encode()
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if len(raw) != Size {
		t.Fatalf("expected %d byte packet, got %d", Size, len(raw))
	}
	got, err := Decode(raw)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Part != p.Part || got.Sequence != p.Sequence || string(got.Data) != string(p.Data) {
		t.Fatalf("round trip mismatch: %+v != %+v", got, p)
	}
}

func TestPacketEncodeTooLarge(t *testing.T) {
	p := Packet{Part: PartNext, Sequence: 1, Data: make([]byte, MaxData+1)}
	if _, err := p.Encode(); !gpserr.Is(err, gpserr.Usage) {
		t.Fatalf("expected UsageError, got %v", err)
	}
}

func TestDecodeBadMagic(t *testing.T) {
	p := Packet{Part: PartFirst, Sequence: 1, Data: []byte("x")}
	raw, _ := p.Encode()
	raw[0] = 0x00
	if _, err := Decode(raw); !gpserr.Is(err, gpserr.Packet) {
		t.Fatalf("expected PacketError, got %v", err)
	}
}

func TestDecodeCorruptHeaderChecksum(t *testing.T) {
	p := Packet{Part: PartFirst, Sequence: 3, Data: []byte("abc")}
	raw, _ := p.Encode()
	raw[6] ^= 0xFF
	if _, err := Decode(raw); !gpserr.Is(err, gpserr.Packet) {
		t.Fatalf("expected PacketError for corrupt header checksum, got %v", err)
	}
}

func TestDecodeCorruptPayloadChecksum(t *testing.T) {
	p := Packet{Part: PartNext, Sequence: 2, Data: []byte("abcdef")}
	raw, _ := p.Encode()
	raw[headerSize+len(p.Data)] ^= 0xFF
	if _, err := Decode(raw); !gpserr.Is(err, gpserr.Packet) {
		t.Fatalf("expected PacketError for corrupt payload checksum, got %v", err)
	}
}

func TestDecodeTruncated(t *testing.T) {
	p := Packet{Part: PartFirst, Sequence: 1, Data: []byte("hello world")}
	raw, _ := p.Encode()
	if _, err := Decode(raw[:headerSize+2]); !gpserr.Is(err, gpserr.Packet) {
		t.Fatalf("expected PacketError for truncated packet, got %v", err)
	}
}

func TestPacketIsFirst(t *testing.T) {
	if !(Packet{Part: PartFirst}).IsFirst() {
		t.Fatalf("PartFirst packet should report IsFirst")
	}
	if (Packet{Part: PartNext}).IsFirst() {
		t.Fatalf("PartNext packet should not report IsFirst")
	}
}
