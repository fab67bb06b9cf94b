// Package session records and replays the raw HID packet exchange with a
// device, independent of what those packets mean. A Recorder wraps a live
// transport and tees every packet to a JSON transcript; a Player replays
// a transcript back as a transport, for working with a track dump offline
// or reproducing a bug report without the physical device attached.
package session

import (
	"compress/gzip"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/ivorwanders-go/gpspod/internal/gpserr"
)

// entry is one timestamped packet in a transcript.
type entry struct {
	Time time.Time `json:"time"`
	Data []byte    `json:"data"` // encoding/json base64-encodes []byte natively
}

// Transcript is the JSON document a Recorder produces and a Player
// consumes: every packet written to the device and every packet read
// back from it, each independently timestamped.
type Transcript struct {
	Outgoing []entry `json:"outgoing"`
	Incoming []entry `json:"incoming"`
}

// Transport is the subset of gpspacket.Transport a Recorder or Player
// implements; declared locally to avoid an import cycle back onto the
// codec package, which only needs this shape structurally.
type Transport interface {
	WriteReport(data []byte) error
	ReadReport(timeout time.Duration) ([]byte, error)
}

// Recorder wraps a live Transport, appending every packet exchanged to an
// in-memory Transcript that can be flushed to disk with Save.
type Recorder struct {
	underlying Transport

	mu         sync.Mutex
	transcript Transcript
}

// NewRecorder returns a Recorder that passes every call through to
// underlying while keeping a copy of everything exchanged.
func NewRecorder(underlying Transport) *Recorder {
	return &Recorder{underlying: underlying}
}

func (r *Recorder) WriteReport(data []byte) error {
	err := r.underlying.WriteReport(data)
	if err == nil {
		r.mu.Lock()
		cp := append([]byte(nil), data...)
		r.transcript.Outgoing = append(r.transcript.Outgoing, entry{Time: time.Now(), Data: cp})
		r.mu.Unlock()
	}
	return err
}

func (r *Recorder) ReadReport(timeout time.Duration) ([]byte, error) {
	data, err := r.underlying.ReadReport(timeout)
	if err == nil {
		r.mu.Lock()
		cp := append([]byte(nil), data...)
		r.transcript.Incoming = append(r.transcript.Incoming, entry{Time: time.Now(), Data: cp})
		r.mu.Unlock()
	}
	return data, err
}

// Transcript returns a copy of everything recorded so far.
func (r *Recorder) Transcript() Transcript {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := Transcript{
		Outgoing: append([]entry(nil), r.transcript.Outgoing...),
		Incoming: append([]entry(nil), r.transcript.Incoming...),
	}
	return out
}

// Save writes the transcript to path as JSON, gzip-compressed when path
// ends in ".gz".
func (r *Recorder) Save(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return gpserr.New(gpserr.Usage, "session.Save", err)
	}
	defer f.Close()

	var w io.Writer = f
	if strings.HasSuffix(path, ".gz") {
		gz := gzip.NewWriter(f)
		defer gz.Close()
		w = gz
	}

	if err := json.NewEncoder(w).Encode(r.Transcript()); err != nil {
		return gpserr.New(gpserr.Usage, "session.Save", err)
	}
	slog.Info("saved session transcript", "path", path, "outgoing", len(r.transcript.Outgoing), "incoming", len(r.transcript.Incoming))
	return nil
}

// LoadTranscript reads a transcript previously written by Save,
// un-gzipping it when path ends in ".gz".
func LoadTranscript(path string) (Transcript, error) {
	f, err := os.Open(path)
	if err != nil {
		return Transcript{}, gpserr.New(gpserr.Usage, "session.LoadTranscript", err)
	}
	defer f.Close()

	var r io.Reader = f
	if strings.HasSuffix(path, ".gz") {
		gz, err := gzip.NewReader(f)
		if err != nil {
			return Transcript{}, gpserr.New(gpserr.Usage, "session.LoadTranscript", err)
		}
		defer gz.Close()
		r = gz
	}

	var t Transcript
	if err := json.NewDecoder(r).Decode(&t); err != nil {
		return Transcript{}, gpserr.New(gpserr.Usage, "session.LoadTranscript", fmt.Errorf("decode transcript: %w", err))
	}
	return t, nil
}
