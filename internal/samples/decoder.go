package samples

import (
	"fmt"
	"time"

	"github.com/oklog/ulid"

	"github.com/ivorwanders-go/gpspod/internal/gpserr"
)

// Track is one recorded activity: the contiguous run of records between
// two TrackHeaders (or between a TrackHeader and end of stream).
type Track struct {
	ID          ulid.ULID
	StartTime   time.Time
	Duration    time.Duration
	Distance    uint32
	Interval    time.Duration
	SampleCount uint32
	Samples     []PeriodicSample
	GPSSamples  []GPSSample
	Laps        []Lap
	Truncated   bool
	// TruncatedAt is the byte offset into the decoded stream where the
	// record that could not be decoded began. Meaningful only when
	// Truncated is true.
	TruncatedAt int
}

// idSource mints track IDs; entropySource, built by NewDecoder, is the
// implementation in use.
type idSource interface {
	New(ms uint64) ulid.ULID
}

type entropySource struct {
	entropy interface {
		Read([]byte) (int, error)
	}
}

func (s entropySource) New(ms uint64) ulid.ULID {
	return ulid.MustNew(ms, s.entropy)
}

// Decoder runs the tag-dispatched state machine over one track chain's
// logical byte stream.
type Decoder struct {
	ids idSource
}

// NewDecoder returns a Decoder that mints track IDs from the current time
// and entropy. With a nil entropy the IDs carry the millisecond timestamp
// only, so tracks decoded within the same millisecond share an ID.
func NewDecoder(entropy interface {
	Read([]byte) (int, error)
}) *Decoder {
	return &Decoder{ids: entropySource{entropy: entropy}}
}

// state names the position in the between-tracks/in-track state machine.
type state int

const (
	stateBetweenTracks state = iota
	stateInTrack
)

// Decode runs the state machine over data (as produced by
// internal/pmem.Chain.Bytes) and returns every track found. A decode
// failure inside one track truncates that track (marking it Truncated)
// and resumes scanning at the next TrackHeader; it never aborts the whole
// stream, since a single corrupt track must not hide every other track.
func (d *Decoder) Decode(data []byte) []Track {
	var tracks []Track
	var cur *Track
	var periodic *periodicHeader
	var now time.Time
	var elapsed time.Duration
	var baseLat, baseLon int32
	st := stateBetweenTracks

	closeTrack := func(truncated bool, at int) {
		if cur == nil {
			return
		}
		cur.Truncated = truncated
		if truncated {
			cur.TruncatedAt = at
		}
		tracks = append(tracks, *cur)
		cur = nil
		periodic = nil
		now = time.Time{}
		elapsed = 0
	}

	// skipToNextTrackHeader scans forward from i (which pointed at the
	// byte that failed to decode) until it finds another TrackHeader tag,
	// since record lengths are not self-delimiting and a corrupt or
	// unknown tag gives no other way to resynchronise.
	skipToNextTrackHeader := func(data []byte, i int) int {
		for j := i + 1; j < len(data); j++ {
			if data[j] == TagTrackHeader {
				return j
			}
		}
		return len(data)
	}

	i := 0
	for i < len(data) {
		tag := data[i]
		body := data[i+1:]

		switch tag {
		case TagTrackHeader:
			closeTrack(false, i)
			hdr, n, err := decodeTrackHeader(body)
			if err != nil {
				i = skipToNextTrackHeader(data, i)
				continue
			}
			cur = &Track{
				ID:          d.ids.New(uint64(time.Now().UnixMilli())),
				Duration:    hdr.Duration,
				SampleCount: hdr.SampleCount,
				Distance:    hdr.Distance,
				Interval:    hdr.Interval,
			}
			st = stateInTrack
			i += 1 + n
			continue

		case TagPeriodicHeader:
			if st != stateInTrack {
				i = skipToNextTrackHeader(data, i)
				continue
			}
			hdr, n, err := decodePeriodicHeader(body)
			if err != nil {
				closeTrack(true, i)
				i = skipToNextTrackHeader(data, i)
				continue
			}
			periodic = &hdr
			i += 1 + n
			continue

		case TagPeriodicSample:
			if st != stateInTrack || periodic == nil {
				closeTrack(true, i)
				i = skipToNextTrackHeader(data, i)
				continue
			}
			s, n, err := decodePeriodicSample(body, *periodic)
			if err != nil {
				closeTrack(true, i)
				i = skipToNextTrackHeader(data, i)
				continue
			}
			s.Timestamp = now.Add(elapsed)
			elapsed += periodic.Period
			cur.Samples = append(cur.Samples, s)
			i += 1 + n
			continue

		case TagGPSBase:
			if st != stateInTrack {
				i = skipToNextTrackHeader(data, i)
				continue
			}
			lat, lon, n, err := decodeGPSBase(body)
			if err != nil {
				closeTrack(true, i)
				i = skipToNextTrackHeader(data, i)
				continue
			}
			baseLat, baseLon = lat, lon
			cur.GPSSamples = append(cur.GPSSamples, GPSSample{Timestamp: now.Add(elapsed), Latitude: lat, Longitude: lon})
			i += 1 + n
			continue

		case TagGPSSmall:
			if st != stateInTrack {
				i = skipToNextTrackHeader(data, i)
				continue
			}
			dLat, dLon, n, err := decodeGPSSmall(body)
			if err != nil {
				closeTrack(true, i)
				i = skipToNextTrackHeader(data, i)
				continue
			}
			baseLat += dLat
			baseLon += dLon
			cur.GPSSamples = append(cur.GPSSamples, GPSSample{Timestamp: now.Add(elapsed), Latitude: baseLat, Longitude: baseLon})
			i += 1 + n
			continue

		case TagGPSLarge:
			if st != stateInTrack {
				i = skipToNextTrackHeader(data, i)
				continue
			}
			dLat, dLon, n, err := decodeGPSLarge(body)
			if err != nil {
				closeTrack(true, i)
				i = skipToNextTrackHeader(data, i)
				continue
			}
			baseLat += dLat
			baseLon += dLon
			cur.GPSSamples = append(cur.GPSSamples, GPSSample{Timestamp: now.Add(elapsed), Latitude: baseLat, Longitude: baseLon})
			i += 1 + n
			continue

		case TagTimeReference:
			if st != stateInTrack {
				i = skipToNextTrackHeader(data, i)
				continue
			}
			t, n, err := decodeTimeReference(body)
			if err != nil {
				closeTrack(true, i)
				i = skipToNextTrackHeader(data, i)
				continue
			}
			now = t
			elapsed = 0
			if cur.StartTime.IsZero() {
				cur.StartTime = t
			}
			i += 1 + n
			continue

		case TagLap:
			if st != stateInTrack {
				i = skipToNextTrackHeader(data, i)
				continue
			}
			splitMs, distance, n, err := decodeLap(body)
			if err != nil {
				closeTrack(true, i)
				i = skipToNextTrackHeader(data, i)
				continue
			}
			cur.Laps = append(cur.Laps, Lap{
				Timestamp:     now.Add(elapsed),
				SplitDuration: time.Duration(splitMs) * time.Millisecond,
				Distance:      distance,
			})
			i += 1 + n
			continue

		default:
			closeTrack(true, i)
			i = skipToNextTrackHeader(data, i)
			continue
		}
	}
	closeTrack(false, i)
	return tracks
}

// DecodeChain wraps Decode with the gpserr taxonomy for callers that want
// a single error value summarizing whether any track came back truncated.
func DecodeChain(data []byte) ([]Track, error) {
	d := NewDecoder(nil)
	tracks := d.Decode(data)
	for _, t := range tracks {
		if t.Truncated {
			return tracks, gpserr.New(gpserr.Decode, "samples.DecodeChain",
				fmt.Errorf("track %s truncated at byte offset %d", t.ID, t.TruncatedAt))
		}
	}
	return tracks, nil
}
