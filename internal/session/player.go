package session

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/ivorwanders-go/gpspod/internal/gpserr"
)

// Player replays a recorded Transcript as a Transport: WriteReport checks
// the call against the next recorded outgoing packet (logging, not
// failing, on mismatch, since a caller comparing behavior across protocol
// revisions still wants to see what came back), and ReadReport hands back
// the next recorded incoming packet in order.
type Player struct {
	transcript Transcript
	outIdx     int
	inIdx      int
}

// NewPlayer returns a Player that replays t.
func NewPlayer(t Transcript) *Player {
	return &Player{transcript: t}
}

func (p *Player) WriteReport(data []byte) error {
	if p.outIdx >= len(p.transcript.Outgoing) {
		return gpserr.New(gpserr.Usage, "session.Player.WriteReport",
			fmt.Errorf("writing more packets than were recorded (%d recorded)", len(p.transcript.Outgoing)))
	}
	want := p.transcript.Outgoing[p.outIdx].Data
	p.outIdx++
	if !bytesEqual(want, data) {
		slog.Warn("replayed write does not match recording", "index", p.outIdx-1, "want", want, "got", data)
	}
	return nil
}

func (p *Player) ReadReport(timeout time.Duration) ([]byte, error) {
	if p.inIdx >= len(p.transcript.Incoming) {
		return nil, gpserr.New(gpserr.Transport, "session.Player.ReadReport",
			fmt.Errorf("reading more packets than were recorded (%d recorded)", len(p.transcript.Incoming)))
	}
	data := p.transcript.Incoming[p.inIdx].Data
	p.inIdx++
	return data, nil
}

func bytesEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
