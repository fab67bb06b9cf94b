// Package gpx renders decoded tracks (see internal/samples) as GPX 1.1
// documents, following the same waypoint/segment layout as the original
// GpsPod exporter: with DefaultOptions every lap becomes both a waypoint and
// a new track segment, and each point carries heart rate as a gpxdata:hr
// extension and speed as a speed element.
package gpx

import (
	"encoding/xml"
	"fmt"
	"io"
	"math"
	"time"

	"github.com/ivorwanders-go/gpspod/internal/samples"
)

const (
	creator          = "gpspod (https://github.com/ivorwanders-go/gpspod)"
	gpxNamespace     = "http://www.topografix.com/GPX/1/1"
	gpxDataNamespace = "http://www.cluetrust.com/XML/GPXDATA/1/0"
)

type gpxDoc struct {
	XMLName      xml.Name `xml:"gpx"`
	Creator      string   `xml:"creator,attr"`
	Version      string   `xml:"version,attr"`
	XMLNS        string   `xml:"xmlns,attr"`
	XMLNSGpxData string   `xml:"xmlns:gpxdata,attr"`
	Waypoints    []wpt    `xml:"wpt"`
	Track        trk      `xml:"trk"`
}

type wpt struct {
	Lat        string      `xml:"lat,attr"`
	Lon        string      `xml:"lon,attr"`
	Time       string      `xml:"time"`
	Name       string      `xml:"name,omitempty"`
	Comment    string      `xml:"cmt,omitempty"`
	Extensions *extensions `xml:"extensions,omitempty"`
}

type trk struct {
	Name     string   `xml:"name"`
	Segments []trkseg `xml:"trkseg"`
}

type trkseg struct {
	Points []trkpt `xml:"trkpt"`
}

type trkpt struct {
	Lat        string      `xml:"lat,attr"`
	Lon        string      `xml:"lon,attr"`
	Time       string      `xml:"time"`
	Elevation  string      `xml:"ele,omitempty"`
	Speed      string      `xml:"speed,omitempty"`
	Extensions *extensions `xml:"extensions,omitempty"`
}

type extensions struct {
	Distance  string `xml:"gpxdata:distance,omitempty"`
	HeartRate string `xml:"gpxdata:hr,omitempty"`
	Event     string `xml:"gpxdata:event,omitempty"`
}

// Options controls how a track is rendered; DefaultOptions returns the
// original exporter's defaults.
type Options struct {
	LapSplitsSegment bool // start a new trkseg at every lap
	LapAddsWaypoint  bool // also emit a standalone wpt for every lap
	WritePoints      bool // emit trkpt elements at all
}

// DefaultOptions mirrors the original exporter's constructor defaults.
func DefaultOptions() Options {
	return Options{LapSplitsSegment: true, LapAddsWaypoint: true, WritePoints: true}
}

// point is one entry of the time-ordered stream mergePoints builds from a
// track's periodic samples and GPS samples, since the device emits them as
// separate interleaved record kinds but a GPX point needs both together.
type point struct {
	Time      time.Time
	HasPos    bool
	Lat, Lon  float64
	HasHR     bool
	HeartRate int16
	HasSpeed  bool
	Speed     int16
}

func mergePoints(tr samples.Track) []point {
	byTime := map[int64]*point{}
	var order []int64

	get := func(t time.Time) *point {
		key := t.UnixNano()
		if p, ok := byTime[key]; ok {
			return p
		}
		p := &point{Time: t}
		byTime[key] = p
		order = append(order, key)
		return p
	}

	for _, g := range tr.GPSSamples {
		p := get(g.Timestamp)
		p.HasPos = true
		p.Lat = float64(g.Latitude) / 1e7
		p.Lon = float64(g.Longitude) / 1e7
	}
	for _, s := range tr.Samples {
		p := get(s.Timestamp)
		if s.HasField&samples.FieldHeartRate != 0 {
			p.HasHR = true
			p.HeartRate = s.HeartRate
		}
		if s.HasField&samples.FieldSpeed != 0 {
			p.HasSpeed = true
			p.Speed = s.Speed
		}
	}

	out := make([]point, 0, len(order))
	for _, k := range order {
		out = append(out, *byTime[k])
	}
	sortPointsByTime(out)
	return out
}

func sortPointsByTime(pts []point) {
	for i := 1; i < len(pts); i++ {
		for j := i; j > 0 && pts[j].Time.Before(pts[j-1].Time); j-- {
			pts[j], pts[j-1] = pts[j-1], pts[j]
		}
	}
}

func isLapTime(laps []samples.Lap, t time.Time) bool {
	for _, l := range laps {
		if l.Timestamp.Equal(t) {
			return true
		}
	}
	return false
}

// nearestPosition finds the last point at or before t carrying a GPS
// position, matching the original exporter's fallback to "the most recent
// entry with a position" when a lap doesn't land exactly on a fix.
func nearestPosition(pts []point, t time.Time) (lat, lon float64, ok bool) {
	for i := len(pts) - 1; i >= 0; i-- {
		if pts[i].Time.After(t) {
			continue
		}
		if pts[i].HasPos {
			return pts[i].Lat, pts[i].Lon, true
		}
	}
	return 0, 0, false
}

// Write renders tr as a GPX 1.1 document to w.
func Write(w io.Writer, tr samples.Track, opts Options) error {
	pts := mergePoints(tr)

	doc := gpxDoc{
		Creator:      creator,
		Version:      "1.1",
		XMLNS:        gpxNamespace,
		XMLNSGpxData: gpxDataNamespace,
		Track: trk{
			Name: fmt.Sprintf("Track %s", tr.StartTime.Format("2006-01-02 15:04:05")),
		},
	}

	if opts.LapAddsWaypoint {
		for i, l := range tr.Laps {
			lat, lon, ok := nearestPosition(pts, l.Timestamp)
			if !ok {
				continue
			}
			doc.Waypoints = append(doc.Waypoints, wpt{
				Lat:     formatDegrees(lat),
				Lon:     formatDegrees(lon),
				Time:    l.Timestamp.UTC().Format(time.RFC3339),
				Name:    fmt.Sprintf("Lap %d", i+1),
				Comment: fmt.Sprintf("Lap split at %s.", l.Timestamp.UTC().Format(time.RFC3339)),
				Extensions: &extensions{
					Event:    "lap",
					Distance: fmt.Sprintf("%d", l.Distance),
				},
			})
		}
	}

	if opts.WritePoints {
		seg := trkseg{}
		for _, p := range pts {
			if opts.LapSplitsSegment && isLapTime(tr.Laps, p.Time) {
				if len(seg.Points) > 0 {
					doc.Track.Segments = append(doc.Track.Segments, seg)
				}
				seg = trkseg{}
			}
			if !p.HasPos {
				continue
			}
			tp := trkpt{
				Lat:  formatDegrees(p.Lat),
				Lon:  formatDegrees(p.Lon),
				Time: p.Time.UTC().Format(time.RFC3339),
			}
			var ext extensions
			hasExt := false
			if p.HasHR {
				ext.HeartRate = fmt.Sprintf("%d", p.HeartRate)
				hasExt = true
			}
			if p.HasSpeed {
				tp.Speed = fmt.Sprintf("%.3f", float64(p.Speed)/100.0)
			}
			if hasExt {
				tp.Extensions = &ext
			}
			seg.Points = append(seg.Points, tp)
		}
		if len(seg.Points) > 0 {
			doc.Track.Segments = append(doc.Track.Segments, seg)
		}
	}

	if _, err := io.WriteString(w, xml.Header); err != nil {
		return err
	}
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return err
	}
	_, err := io.WriteString(w, "\n")
	return err
}

func formatDegrees(v float64) string {
	if math.IsNaN(v) {
		return "0.0000000"
	}
	return fmt.Sprintf("%.7f", v)
}
