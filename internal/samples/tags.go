// Package samples decodes the tagged, variable-length sample records
// found in the track chain's logical byte stream (see internal/pmem) and
// groups them into tracks.
package samples

// Record tag values. One byte identifies the record kind; the payload
// that follows has a kind-specific fixed length.
const (
	TagTrackHeader    byte = 0x01
	TagPeriodicHeader byte = 0x02
	TagPeriodicSample byte = 0x03
	TagGPSBase        byte = 0x04
	TagGPSSmall       byte = 0x05
	TagGPSLarge       byte = 0x06
	TagTimeReference  byte = 0x07
	TagLap            byte = 0x08
)

// Periodic field bits, declared by a PeriodicHeader and consumed by every
// PeriodicSample that follows it until the next PeriodicHeader or
// TrackHeader.
const (
	FieldHeartRate byte = 1 << iota
	FieldSpeed
	FieldAltitude
	FieldCadence
)

// knownFieldMask is every field bit this decoder understands; a
// PeriodicHeader declaring any other bit is undecodable.
const knownFieldMask = FieldHeartRate | FieldSpeed | FieldAltitude | FieldCadence
