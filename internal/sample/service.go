package sample

import (
	"context"
	"fmt"
	"strings"

	"backend-fleetms/internal/db"
	"backend-fleetms/internal/telemetry"
)

// Service persists append-only telemetry samples. Rows are never updated;
// ordering is by recorded_at, not insertion order.
type Service struct {
	db db.Querier
}

func NewService(db db.Querier) *Service {
	return &Service{db: db}
}

// InsertBatch appends one data frame's worth of samples in a single
// multi-row INSERT, so a frame lands fully or not at all.
func (s *Service) InsertBatch(ctx context.Context, tripID string, samples []telemetry.Sample) error {
	if len(samples) == 0 {
		return nil
	}

	var sb strings.Builder
	sb.WriteString(`INSERT INTO samples
		(trip_id, recorded_at, lat, lon, altitude_m, speed_kmh, rpm, accelerator_pct, coolant_temp_c, intake_temp_c, fuel_rate_mls)
		VALUES `)
	args := make([]any, 0, len(samples)*11)
	for i, smp := range samples {
		if i > 0 {
			sb.WriteString(",")
		}
		base := i * 11
		sb.WriteString(fmt.Sprintf("($%d,$%d,$%d,$%d,$%d,$%d,$%d,$%d,$%d,$%d,$%d)",
			base+1, base+2, base+3, base+4, base+5, base+6, base+7, base+8, base+9, base+10, base+11))
		args = append(args, tripID, smp.RecordedAt, smp.Lat, smp.Lon, smp.Altitude,
			smp.Speed, smp.RPM, smp.Accelerator, smp.CoolantTemp, smp.IntakeTemp, smp.FuelRate)
	}

	_, err := s.db.Exec(ctx, sb.String(), args...)
	return err
}

// ListByTrip returns all samples of a trip in ascending timestamp order.
func (s *Service) ListByTrip(ctx context.Context, tripID string) ([]telemetry.Sample, error) {
	rows, err := s.db.Query(ctx, `
		SELECT recorded_at, lat, lon, altitude_m, speed_kmh, rpm, accelerator_pct, coolant_temp_c, intake_temp_c, fuel_rate_mls
		FROM samples WHERE trip_id=$1
		ORDER BY recorded_at
	`, tripID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var samples []telemetry.Sample
	for rows.Next() {
		var smp telemetry.Sample
		if err := rows.Scan(&smp.RecordedAt, &smp.Lat, &smp.Lon, &smp.Altitude,
			&smp.Speed, &smp.RPM, &smp.Accelerator, &smp.CoolantTemp, &smp.IntakeTemp, &smp.FuelRate); err != nil {
			return nil, err
		}
		samples = append(samples, smp)
	}
	return samples, rows.Err()
}

// CountByTrip reports how many samples a trip accumulated.
func (s *Service) CountByTrip(ctx context.Context, tripID string) (int, error) {
	var count int
	err := s.db.QueryRow(ctx, `SELECT COUNT(*) FROM samples WHERE trip_id=$1`, tripID).Scan(&count)
	return count, err
}
