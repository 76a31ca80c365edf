package telemetry

import (
	"encoding/binary"
	"errors"
	"time"
)

// RecordSize is the fixed width of one wire telemetry record.
const RecordSize = 32

// ErrMalformedRecord is returned when a data frame body does not match the
// declared record count.
var ErrMalformedRecord = errors.New("malformed telemetry record block")

// Sample is one decoded telemetry reading.
type Sample struct {
	RecordedAt  time.Time `json:"recorded_at"`
	Lat         float64   `json:"lat"`
	Lon         float64   `json:"lon"`
	Altitude    float64   `json:"altitude_m"`
	Speed       float64   `json:"speed_kmh"`
	RPM         float64   `json:"rpm"`
	Accelerator float64   `json:"accelerator_pct"`
	CoolantTemp float64   `json:"coolant_temp_c"`
	IntakeTemp  float64   `json:"intake_temp_c"`
	FuelRate    float64   `json:"fuel_rate_mls"`
}

// DecodeRecords decodes count 32-byte records from buf. The buffer must be
// exactly a whole number of records and long enough for the declared count;
// otherwise nothing is decoded and ErrMalformedRecord is returned.
//
// Record layout, all big-endian:
//
//	timestamp ms (8) | lon 1e-7 deg (4) | lat 1e-7 deg (4) | altitude m (4) |
//	speed km/h (2) | rpm (2) | accelerator % (2) | coolant C (2) |
//	intake C (2) | fuel rate mL/s (2)
func DecodeRecords(buf []byte, count int) ([]Sample, error) {
	if len(buf)%RecordSize != 0 || len(buf) < count*RecordSize {
		return nil, ErrMalformedRecord
	}

	samples := make([]Sample, 0, count)
	for i := 0; i < count; i++ {
		samples = append(samples, decodeRecord(buf[i*RecordSize:]))
	}
	return samples, nil
}

func decodeRecord(rec []byte) Sample {
	ts := int64(binary.BigEndian.Uint64(rec[0:8]))
	lon := int32(binary.BigEndian.Uint32(rec[8:12]))
	lat := int32(binary.BigEndian.Uint32(rec[12:16]))
	alt := int32(binary.BigEndian.Uint32(rec[16:20]))

	return Sample{
		RecordedAt:  time.UnixMilli(ts).UTC(),
		Lon:         float64(lon) / 1e7,
		Lat:         float64(lat) / 1e7,
		Altitude:    float64(alt),
		Speed:       float64(binary.BigEndian.Uint16(rec[20:22])),
		RPM:         float64(binary.BigEndian.Uint16(rec[22:24])),
		Accelerator: float64(binary.BigEndian.Uint16(rec[24:26])),
		CoolantTemp: float64(binary.BigEndian.Uint16(rec[26:28])),
		IntakeTemp:  float64(binary.BigEndian.Uint16(rec[28:30])),
		FuelRate:    float64(binary.BigEndian.Uint16(rec[30:32])),
	}
}

// EncodeRecord is the inverse of decodeRecord. The server never sends
// telemetry; this exists for tests and tooling that fabricate device
// traffic.
func EncodeRecord(s Sample) []byte {
	rec := make([]byte, RecordSize)
	binary.BigEndian.PutUint64(rec[0:8], uint64(s.RecordedAt.UnixMilli()))
	binary.BigEndian.PutUint32(rec[8:12], uint32(int32(s.Lon*1e7)))
	binary.BigEndian.PutUint32(rec[12:16], uint32(int32(s.Lat*1e7)))
	binary.BigEndian.PutUint32(rec[16:20], uint32(int32(s.Altitude)))
	binary.BigEndian.PutUint16(rec[20:22], uint16(s.Speed))
	binary.BigEndian.PutUint16(rec[22:24], uint16(s.RPM))
	binary.BigEndian.PutUint16(rec[24:26], uint16(s.Accelerator))
	binary.BigEndian.PutUint16(rec[26:28], uint16(s.CoolantTemp))
	binary.BigEndian.PutUint16(rec[28:30], uint16(s.IntakeTemp))
	binary.BigEndian.PutUint16(rec[30:32], uint16(s.FuelRate))
	return rec
}
