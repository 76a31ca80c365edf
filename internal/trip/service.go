package trip

import (
	"context"
	"encoding/json"
	"time"

	"backend-fleetms/internal/db"

	"github.com/google/uuid"
)

type Service struct {
	db db.Querier
}

func NewService(db db.Querier) *Service {
	return &Service{db: db}
}

// Create opens a new ongoing trip for a vehicle.
func (s *Service) Create(ctx context.Context, vehicleID, driverID, companyID string) (Trip, error) {
	tr := Trip{
		ID:        uuid.NewString(),
		VehicleID: vehicleID,
		DriverID:  driverID,
		CompanyID: companyID,
		Status:    StatusOngoing,
	}
	row := s.db.QueryRow(ctx, `
		INSERT INTO trips (id, vehicle_id, driver_id, company_id, status, started_at)
		VALUES ($1,$2,$3,$4,$5,now())
		RETURNING started_at
	`, tr.ID, tr.VehicleID, tr.DriverID, tr.CompanyID, tr.Status)
	if err := row.Scan(&tr.StartedAt); err != nil {
		return Trip{}, err
	}
	return tr, nil
}

func (s *Service) Get(ctx context.Context, id string) (Trip, error) {
	row := s.db.QueryRow(ctx, `
		SELECT id, vehicle_id, driver_id, company_id, status, started_at, ended_at, sample_count, summary, role
		FROM trips WHERE id=$1
	`, id)

	var tr Trip
	var endedAt *time.Time
	var role *string
	var summary []byte
	if err := row.Scan(&tr.ID, &tr.VehicleID, &tr.DriverID, &tr.CompanyID, &tr.Status,
		&tr.StartedAt, &endedAt, &tr.SampleCount, &summary, &role); err != nil {
		return Trip{}, err
	}
	if endedAt != nil {
		tr.EndedAt = *endedAt
	}
	if role != nil {
		tr.Role = *role
	}
	if len(summary) > 0 {
		var sum Summary
		if err := json.Unmarshal(summary, &sum); err != nil {
			return Trip{}, err
		}
		tr.Summary = &sum
	}
	return tr, nil
}

func (s *Service) SetStatus(ctx context.Context, id, status string) error {
	_, err := s.db.Exec(ctx, `UPDATE trips SET status=$2 WHERE id=$1`, id, status)
	return err
}

// Complete marks the trip finished and stamps its end time.
func (s *Service) Complete(ctx context.Context, id string) error {
	_, err := s.db.Exec(ctx, `
		UPDATE trips SET status=$2, ended_at=now() WHERE id=$1
	`, id, StatusCompleted)
	return err
}

// SaveSummary stores the computed analytics and the final sample count.
func (s *Service) SaveSummary(ctx context.Context, id string, summary Summary, sampleCount int) error {
	payload, err := json.Marshal(summary)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(ctx, `
		UPDATE trips SET summary=$2, sample_count=$3 WHERE id=$1
	`, id, payload, sampleCount)
	return err
}

// SetRole tags the trip with its dataset partition.
func (s *Service) SetRole(ctx context.Context, id, role string) error {
	_, err := s.db.Exec(ctx, `UPDATE trips SET role=$2 WHERE id=$1`, id, role)
	return err
}
