package gpspacket

import (
	"encoding/binary"
	"fmt"
	"log/slog"
	"time"

	"github.com/ivorwanders-go/gpspod/internal/gpserr"
)

const commandHeaderSize = 12 // command, direction, format, packet_sequence (2 bytes each) + packet_length (4 bytes)

// DefaultFormat is the format code the device expects on nearly every
// message; a handful of requests (DeviceInfoRequest) override it to 0.
const DefaultFormat uint16 = 0x09

// Message is one command payload: a typed header plus a body, split across
// one or more Packets on the wire.
type Message struct {
	Command        uint16
	Direction      uint16
	Format         uint16
	PacketSequence uint16
	Body           []byte
}

// Marshal renders m into its wire representation, prior to packetizing.
func (m Message) Marshal() []byte {
	buf := make([]byte, commandHeaderSize+len(m.Body))
	binary.LittleEndian.PutUint16(buf[0:2], m.Command)
	binary.LittleEndian.PutUint16(buf[2:4], m.Direction)
	binary.LittleEndian.PutUint16(buf[4:6], m.Format)
	binary.LittleEndian.PutUint16(buf[6:8], m.PacketSequence)
	binary.LittleEndian.PutUint32(buf[8:12], uint32(len(m.Body)))
	copy(buf[commandHeaderSize:], m.Body)
	return buf
}

// UnmarshalMessage parses the wire representation produced by Marshal.
func UnmarshalMessage(raw []byte) (Message, error) {
	const op = "gpspacket.UnmarshalMessage"
	if len(raw) < commandHeaderSize {
		return Message{}, gpserr.New(gpserr.Protocol, op, fmt.Errorf("message too short: %d bytes", len(raw)))
	}
	bodyLen := binary.LittleEndian.Uint32(raw[8:12])
	if int(bodyLen) > len(raw)-commandHeaderSize {
		bodyLen = uint32(len(raw) - commandHeaderSize)
	}
	body := make([]byte, bodyLen)
	copy(body, raw[commandHeaderSize:commandHeaderSize+int(bodyLen)])
	return Message{
		Command:        binary.LittleEndian.Uint16(raw[0:2]),
		Direction:      binary.LittleEndian.Uint16(raw[2:4]),
		Format:         binary.LittleEndian.Uint16(raw[4:6]),
		PacketSequence: binary.LittleEndian.Uint16(raw[6:8]),
		Body:           body,
	}, nil
}

// Packetize splits a message into the ordered Packets that carry it.
func Packetize(msg Message) []Packet {
	data := msg.Marshal()
	if len(data) == 0 {
		return []Packet{{Part: PartFirst, Sequence: 1, Data: nil}}
	}
	var chunks [][]byte
	for i := 0; i < len(data); i += MaxData {
		end := i + MaxData
		if end > len(data) {
			end = len(data)
		}
		chunks = append(chunks, data[i:end])
	}
	packets := make([]Packet, len(chunks))
	packets[0] = Packet{Part: PartFirst, Sequence: uint16(len(chunks)), Data: chunks[0]}
	for i := 1; i < len(chunks); i++ {
		packets[i] = Packet{Part: PartNext, Sequence: uint16(i), Data: chunks[i]}
	}
	return packets
}

// Feed reassembles a stream of packets back into complete message bytes,
// mirroring original_source/gpspod/protocol.py's USBPacketFeed.
type Feed struct {
	first *Packet
	rest  map[uint16]Packet
}

// NewFeed returns an empty reassembly feed.
func NewFeed() *Feed {
	return &Feed{rest: make(map[uint16]Packet)}
}

func (f *Feed) reset() {
	f.first = nil
	f.rest = make(map[uint16]Packet)
}

// Add feeds one packet into the reassembly buffer. When the message is
// complete it returns the concatenated message bytes and done == true.
func (f *Feed) Add(p Packet) (data []byte, done bool, err error) {
	if p.IsFirst() {
		if f.first != nil || len(f.rest) != 0 {
			slog.Warn("detected new message while previous message isn't finished, discarding")
			f.reset()
		}
		pp := p
		f.first = &pp
	} else {
		f.rest[p.Sequence] = p
	}

	if f.first == nil {
		return nil, false, nil
	}
	total := f.first.Sequence
	if uint16(len(f.rest)) != total-1 {
		return nil, false, nil
	}

	out := make([]byte, 0, len(f.first.Data)*int(total))
	out = append(out, f.first.Data...)
	for i := uint16(1); i < total; i++ {
		part, ok := f.rest[i]
		if !ok {
			return nil, false, gpserr.New(gpserr.Packet, "gpspacket.Feed.Add", fmt.Errorf("missing packet index %d", i))
		}
		out = append(out, part.Data...)
	}
	f.reset()
	return out, true, nil
}

// Transport is the minimal primitive the codec needs from a backend: send
// one fixed-size report, and receive one with a timeout. Report-ID framing
// (if any) is the transport's concern, not the codec's.
type Transport interface {
	WriteReport(data []byte) error
	ReadReport(timeout time.Duration) ([]byte, error)
}

// retryBackoff is the exponential backoff schedule for transient
// packet-level errors; the command layer uses the same schedule for its
// transport-timeout retries.
var retryBackoff = []time.Duration{10 * time.Millisecond, 40 * time.Millisecond, 160 * time.Millisecond}

// Codec owns the per-session sequence counter and drives one request/reply
// exchange at a time; the device's protocol assumes strict pairing and does
// not support pipelining.
type Codec struct {
	Transport   Transport
	ReadTimeout time.Duration

	seq uint16
}

// NewCodec constructs a Codec bound to transport with the given read
// timeout.
func NewCodec(transport Transport, readTimeout time.Duration) *Codec {
	return &Codec{Transport: transport, ReadTimeout: readTimeout}
}

// Do sends one command message and returns its parsed reply, retrying
// transient packet-level failures up to len(retryBackoff) times
// (len(retryBackoff)+1 attempts in all).
func (c *Codec) Do(command, direction, format uint16, body []byte) (Message, error) {
	const op = "gpspacket.Codec.Do"
	var lastErr error
	for attempt := 0; ; attempt++ {
		seq := c.seq
		c.seq++
		reply, err := c.exchange(command, direction, format, seq, body)
		if err == nil {
			return reply, nil
		}
		if !gpserr.Is(err, gpserr.Packet) || attempt >= len(retryBackoff) {
			return Message{}, err
		}
		lastErr = err
		slog.Warn("transient packet error, retrying", slog.Any("error", err), slog.Int("attempt", attempt+1))
		time.Sleep(retryBackoff[attempt])
	}
	return Message{}, gpserr.New(gpserr.Packet, op, lastErr)
}

func (c *Codec) exchange(command, direction, format, seq uint16, body []byte) (Message, error) {
	const op = "gpspacket.Codec.exchange"
	msg := Message{Command: command, Direction: direction, Format: format, PacketSequence: seq, Body: body}
	for _, p := range Packetize(msg) {
		raw, err := p.Encode()
		if err != nil {
			return Message{}, gpserr.New(gpserr.Packet, op, err)
		}
		if err := c.Transport.WriteReport(raw); err != nil {
			return Message{}, gpserr.New(gpserr.Transport, op, err)
		}
	}

	feed := NewFeed()
	for {
		raw, err := c.Transport.ReadReport(c.ReadTimeout)
		if err != nil {
			return Message{}, gpserr.New(gpserr.Transport, op, err)
		}
		packet, err := Decode(raw)
		if err != nil {
			return Message{}, err // already a *gpserr.Error of Kind Packet
		}
		data, done, err := feed.Add(packet)
		if err != nil {
			return Message{}, err
		}
		if !done {
			continue
		}
		reply, err := UnmarshalMessage(data)
		if err != nil {
			return Message{}, err
		}
		if reply.PacketSequence != seq {
			return Message{}, gpserr.New(gpserr.Protocol, op,
				fmt.Errorf("sequence desync: sent %d, received %d", seq, reply.PacketSequence))
		}
		return reply, nil
	}
}
