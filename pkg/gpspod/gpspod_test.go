package gpspod

import (
	"encoding/binary"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ivorwanders-go/gpspod/internal/gpspacket"
	"github.com/ivorwanders-go/gpspod/internal/pmem"
	"github.com/ivorwanders-go/gpspod/internal/pmem/memview"
	"github.com/ivorwanders-go/gpspod/internal/samples"
)

// scriptedTransport replies with one pre-encoded message per request; see
// internal/gpscmd's client_test.go for the same pattern.
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

func newScriptedTestClient(t *testing.T, reply gpspacket.Message) *Client {
	t.Helper()
	transport := &scriptedTransport{}
	for _, p := range gpspacket.Packetize(reply) {
		raw, err := p.Encode()
		if err != nil {
			t.Fatalf("encode scripted reply: %v", err)
		}
		transport.replies = append(transport.replies, raw)
	}
	return New(transport, time.Second, nil)
}

func TestClientDeviceStatus(t *testing.T) {
	reply := gpspacket.Message{Command: 0x0603, Direction: 0x000a, PacketSequence: 0, Body: []byte{0, 55}}
	client := newScriptedTestClient(t, reply)

	status, err := client.DeviceStatus()
	if err != nil {
		t.Fatalf("DeviceStatus: %v", err)
	}
	if status.BatteryPercent != 55 {
		t.Fatalf("expected 55%%, got %d", status.BatteryPercent)
	}
}

func TestClientDeviceInfo(t *testing.T) {
	const modelFieldLen, serialFieldLen, versionLen = 16, 16, 4
	body := make([]byte, modelFieldLen+serialFieldLen+versionLen*3)
	copy(body[0:], "GpsPod")
	copy(body[modelFieldLen:], "8761994617001000")
	copy(body[modelFieldLen+serialFieldLen:], []byte{1, 6, 39, 0})
	copy(body[modelFieldLen+serialFieldLen+versionLen:], []byte{66, 2, 0, 0})
	copy(body[modelFieldLen+serialFieldLen+versionLen*2:], []byte{1, 4, 3, 0})

	reply := gpspacket.Message{Command: 0x0200, Direction: 0x0002, PacketSequence: 0, Body: body}
	client := newScriptedTestClient(t, reply)

	info, err := client.DeviceInfo()
	if err != nil {
		t.Fatalf("DeviceInfo: %v", err)
	}
	if info.Model != "GpsPod" || info.SerialNumber != "8761994617001000" {
		t.Fatalf("unexpected identity: %+v", info)
	}
	if info.FirmwareVersion.String() != "1.6.39.0" || info.HardwareVersion.String() != "66.2.0.0" || info.BootloaderVersion.String() != "1.4.3.0" {
		t.Fatalf("unexpected versions: fw=%s hw=%s bsl=%s", info.FirmwareVersion, info.HardwareVersion, info.BootloaderVersion)
	}
}

func TestOpenFileClientRejectsLiveOperations(t *testing.T) {
	path := buildDumpFile(t, nil)
	client, closeFn, err := OpenFile(path)
	if err != nil {
		t.Fatalf("OpenFile: %v", err)
	}
	defer closeFn()

	if _, err := client.DeviceStatus(); err == nil {
		t.Fatalf("expected error using a live-only operation on a file-backed client")
	}
}

// buildDumpFile writes a full-size region file with a track chain
// containing trackBody at pmem.TrackBlockOffset, using the same on-disk
// layout internal/pmem expects (see its topLevelHeader/entryBlockHeader).
func buildDumpFile(t *testing.T, trackBody []byte) string {
	t.Helper()
	buf := make([]byte, memview.RegionSize)

	blockOffset := pmem.TrackBlockOffset + int64(pmem.EntryBlockSize)

	putTopLevelHeader(buf, pmem.TrackBlockOffset, blockOffset, blockOffset, 1)
	putEntryBlock(buf, blockOffset, 0, 0, 0, uint16(len(trackBody)), trackBody)

	path := filepath.Join(t.TempDir(), "dump.bin")
	if err := os.WriteFile(path, buf, 0o600); err != nil {
		t.Fatalf("write dump file: %v", err)
	}
	return path
}

func putTopLevelHeader(buf []byte, offset, first, last int64, count uint32) {
	binary.LittleEndian.PutUint32(buf[offset:], uint32(first))
	binary.LittleEndian.PutUint32(buf[offset+4:], uint32(last))
	binary.LittleEndian.PutUint32(buf[offset+8:], uint32(last))
	binary.LittleEndian.PutUint32(buf[offset+12:], count)
}

func putEntryBlock(buf []byte, offset int64, prev, next uint32, firstEntry, lastWritten uint16, body []byte) {
	binary.LittleEndian.PutUint32(buf[offset:], prev)
	binary.LittleEndian.PutUint32(buf[offset+4:], next)
	binary.LittleEndian.PutUint16(buf[offset+8:], firstEntry)
	binary.LittleEndian.PutUint16(buf[offset+10:], lastWritten)
	copy(buf[offset+12:], []byte("PMEM"))
	copy(buf[offset+16+int64(firstEntry):], body)
}

func TestOpenFileLoadTracksDecodesTrackChain(t *testing.T) {
	trackHeader := []byte{samples.TagTrackHeader}
	trackHeader = append(trackHeader, le32(1000)...)
	trackHeader = append(trackHeader, le32(1)...)
	trackHeader = append(trackHeader, le32(5)...)
	trackHeader = append(trackHeader, le16(1000)...)

	path := buildDumpFile(t, trackHeader)
	client, closeFn, err := OpenFile(path)
	if err != nil {
		t.Fatalf("OpenFile: %v", err)
	}
	defer closeFn()

	tracks, err := client.LoadTracks()
	if err != nil {
		t.Fatalf("LoadTracks: %v", err)
	}
	if len(tracks) != 1 {
		t.Fatalf("expected 1 track, got %d", len(tracks))
	}
	if tracks[0].Distance != 5 {
		t.Fatalf("unexpected distance: %d", tracks[0].Distance)
	}
}

func le16(v uint16) []byte {
	b := make([]byte, 2)
	binary.LittleEndian.PutUint16(b, v)
	return b
}

func le32(v uint32) []byte {
	b := make([]byte, 4)
	binary.LittleEndian.PutUint32(b, v)
	return b
}
