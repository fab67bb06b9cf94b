package gpx

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/ivorwanders-go/gpspod/internal/samples"
)

func mustTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		panic(err)
	}
	return t
}

func TestWriteProducesTrackWithPoints(t *testing.T) {
	tr := samples.Track{
		StartTime: mustTime("2024-01-02T10:00:00Z"),
		GPSSamples: []samples.GPSSample{
			{Timestamp: mustTime("2024-01-02T10:00:00Z"), Latitude: 400000000, Longitude: -750000000},
			{Timestamp: mustTime("2024-01-02T10:00:01Z"), Latitude: 400000010, Longitude: -750000020},
		},
		Samples: []samples.PeriodicSample{
			{Timestamp: mustTime("2024-01-02T10:00:00Z"), HeartRate: 140, HasField: samples.FieldHeartRate},
			{Timestamp: mustTime("2024-01-02T10:00:01Z"), HeartRate: 142, HasField: samples.FieldHeartRate},
		},
	}

	var buf bytes.Buffer
	if err := Write(&buf, tr, DefaultOptions()); err != nil {
		t.Fatalf("Write: %v", err)
	}
	out := buf.String()

	if !strings.Contains(out, `<gpx`) {
		t.Fatalf("expected gpx root element, got: %s", out)
	}
	if !strings.Contains(out, "40.0000000") {
		t.Fatalf("expected formatted latitude in output: %s", out)
	}
	if !strings.Contains(out, "gpxdata:hr") {
		t.Fatalf("expected heart rate extension in output: %s", out)
	}
	if !strings.Contains(out, "<trkseg>") {
		t.Fatalf("expected a track segment: %s", out)
	}
}

func TestWriteSplitsSegmentsOnLap(t *testing.T) {
	tr := samples.Track{
		StartTime: mustTime("2024-01-02T10:00:00Z"),
		GPSSamples: []samples.GPSSample{
			{Timestamp: mustTime("2024-01-02T10:00:00Z"), Latitude: 400000000, Longitude: -750000000},
			{Timestamp: mustTime("2024-01-02T10:00:01Z"), Latitude: 400000010, Longitude: -750000010},
			{Timestamp: mustTime("2024-01-02T10:00:02Z"), Latitude: 400000020, Longitude: -750000020},
		},
		Laps: []samples.Lap{
			{Timestamp: mustTime("2024-01-02T10:00:01Z"), Distance: 100},
		},
	}

	var buf bytes.Buffer
	if err := Write(&buf, tr, DefaultOptions()); err != nil {
		t.Fatalf("Write: %v", err)
	}
	out := buf.String()

	if strings.Count(out, "<trkseg>") != 2 {
		t.Fatalf("expected 2 segments after the lap split, got:\n%s", out)
	}
	if !strings.Contains(out, "<wpt") {
		t.Fatalf("expected a lap waypoint: %s", out)
	}
}

func TestWriteWithoutPointsOmitsSegments(t *testing.T) {
	tr := samples.Track{
		StartTime: mustTime("2024-01-02T10:00:00Z"),
		GPSSamples: []samples.GPSSample{
			{Timestamp: mustTime("2024-01-02T10:00:00Z"), Latitude: 1, Longitude: 1},
		},
	}
	opts := DefaultOptions()
	opts.WritePoints = false

	var buf bytes.Buffer
	if err := Write(&buf, tr, opts); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if strings.Contains(buf.String(), "<trkpt") {
		t.Fatalf("expected no trkpt elements when WritePoints is false")
	}
}
