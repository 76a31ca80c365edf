package dataset

import (
	"context"
	"errors"

	"backend-fleetms/internal/db"
	"backend-fleetms/internal/trip"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type Service struct {
	db db.Querier
}

func NewService(db db.Querier) *Service {
	return &Service{db: db}
}

// LatestOrCreate returns the vehicle's most recent manifest, creating a
// fresh pending one when the vehicle has none yet.
func (s *Service) LatestOrCreate(ctx context.Context, vehicleID string) (Manifest, error) {
	row := s.db.QueryRow(ctx, `
		SELECT id, vehicle_id, version, status, train_samples, validation_samples, metrics, created_at
		FROM model_manifests
		WHERE vehicle_id=$1
		ORDER BY created_at DESC
		LIMIT 1
	`, vehicleID)

	m, err := scanManifest(row)
	if err == nil {
		return m, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return Manifest{}, err
	}

	m = Manifest{
		ID:        uuid.NewString(),
		VehicleID: vehicleID,
		Version:   uuid.NewString(),
		Status:    StatusPending,
	}
	created := s.db.QueryRow(ctx, `
		INSERT INTO model_manifests (id, vehicle_id, version, status, train_samples, validation_samples)
		VALUES ($1,$2,$3,$4,0,0)
		RETURNING created_at
	`, m.ID, m.VehicleID, m.Version, m.Status)
	if err := created.Scan(&m.CreatedAt); err != nil {
		return Manifest{}, err
	}
	return m, nil
}

// Assign places a summarized trip into the manifest. Train fills first,
// then validation; when both sets are full the trip becomes prediction
// input and joins neither list. A trip already present in the train or
// validation list keeps its role and changes nothing, so reanalysis is
// safe. The training trigger fires on the event that first pushes the
// validation count to its target; the manifest is not re-triggered by
// later trips.
func (s *Service) Assign(ctx context.Context, m Manifest, tripID string, sampleCount, trainTarget, validationTarget int) (Assignment, error) {
	existing, err := s.assignedRole(ctx, m.ID, tripID)
	if err != nil {
		return Assignment{}, err
	}
	if existing != "" {
		return Assignment{Role: existing}, nil
	}

	switch {
	case m.TrainSamples < trainTarget:
		if err := s.addTrip(ctx, m.ID, tripID, trip.RoleTrain, sampleCount); err != nil {
			return Assignment{}, err
		}
		return Assignment{Role: trip.RoleTrain}, nil

	case m.ValidationSamples < validationTarget:
		if err := s.addTrip(ctx, m.ID, tripID, trip.RoleValidation, sampleCount); err != nil {
			return Assignment{}, err
		}
		return Assignment{
			Role:            trip.RoleValidation,
			TriggerTraining: m.ValidationSamples+sampleCount >= validationTarget,
		}, nil

	default:
		return Assignment{Role: trip.RolePrediction, TriggerPrediction: true}, nil
	}
}

// assignedRole reports the role a trip already holds in the manifest, or
// empty when it holds none.
func (s *Service) assignedRole(ctx context.Context, manifestID, tripID string) (string, error) {
	var role string
	err := s.db.QueryRow(ctx, `
		SELECT role FROM manifest_trips WHERE manifest_id=$1 AND trip_id=$2
	`, manifestID, tripID).Scan(&role)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return role, nil
}

func (s *Service) addTrip(ctx context.Context, manifestID, tripID, role string, sampleCount int) error {
	// The primary key on (manifest_id, trip_id) keeps the train and
	// validation lists disjoint with at most one membership per trip.
	tag, err := s.db.Exec(ctx, `
		INSERT INTO manifest_trips (manifest_id, trip_id, role, sample_count)
		VALUES ($1,$2,$3,$4)
		ON CONFLICT DO NOTHING
	`, manifestID, tripID, role, sampleCount)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return nil
	}

	column := "train_samples"
	if role == trip.RoleValidation {
		column = "validation_samples"
	}
	_, err = s.db.Exec(ctx, `
		UPDATE model_manifests SET `+column+` = `+column+` + $2 WHERE id=$1
	`, manifestID, sampleCount)
	return err
}

// SetStatus moves the manifest through its lifecycle.
func (s *Service) SetStatus(ctx context.Context, manifestID, status string) error {
	_, err := s.db.Exec(ctx, `UPDATE model_manifests SET status=$2 WHERE id=$1`, manifestID, status)
	return err
}

// TripIDs lists the trips assigned to one role of the manifest.
func (s *Service) TripIDs(ctx context.Context, manifestID, role string) ([]string, error) {
	rows, err := s.db.Query(ctx, `
		SELECT trip_id FROM manifest_trips WHERE manifest_id=$1 AND role=$2
		ORDER BY trip_id
	`, manifestID, role)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanManifest(row rowScanner) (Manifest, error) {
	var m Manifest
	if err := row.Scan(&m.ID, &m.VehicleID, &m.Version, &m.Status,
		&m.TrainSamples, &m.ValidationSamples, &m.Metrics, &m.CreatedAt); err != nil {
		return Manifest{}, err
	}
	return m, nil
}
