package vehicle

import (
	"context"

	"backend-fleetms/internal/db"
)

type Service struct {
	db db.Querier
}

func NewService(db db.Querier) *Service {
	return &Service{db: db}
}

func (s *Service) Get(ctx context.Context, id string) (Vehicle, error) {
	row := s.db.QueryRow(ctx, `
		SELECT id, company_id, driver_id, name, total_distance_km, total_fuel_l, created_at
		FROM vehicles WHERE id=$1
	`, id)
	return scanVehicle(row)
}

// FindByDriver resolves the vehicle a driver is currently assigned to.
// Drivers map 1:1 onto vehicles; a reassignment mid-session is not
// detected (the session keeps the vehicle it authenticated against).
func (s *Service) FindByDriver(ctx context.Context, driverID string) (Vehicle, error) {
	row := s.db.QueryRow(ctx, `
		SELECT id, company_id, driver_id, name, total_distance_km, total_fuel_l, created_at
		FROM vehicles WHERE driver_id=$1
	`, driverID)
	return scanVehicle(row)
}

// AddTripTotals adds a trip's distance and fuel to the vehicle aggregate at
// most once per trip. The counted-trips row is the guard: the totals are
// touched only when this call is the first to claim the trip id, which the
// conditional insert decides atomically. Returns whether the trip was
// counted by this call.
func (s *Service) AddTripTotals(ctx context.Context, vehicleID, tripID string, distanceKm, fuelL float64) (bool, error) {
	tag, err := s.db.Exec(ctx, `
		INSERT INTO vehicle_counted_trips (vehicle_id, trip_id)
		VALUES ($1,$2)
		ON CONFLICT DO NOTHING
	`, vehicleID, tripID)
	if err != nil {
		return false, err
	}
	if tag.RowsAffected() == 0 {
		return false, nil
	}

	_, err = s.db.Exec(ctx, `
		UPDATE vehicles
		SET total_distance_km = total_distance_km + $2,
		    total_fuel_l = total_fuel_l + $3
		WHERE id=$1
	`, vehicleID, distanceKm, fuelL)
	if err != nil {
		return false, err
	}
	return true, nil
}

// Stats returns the running aggregate plus the number of counted trips.
func (s *Service) Stats(ctx context.Context, vehicleID string) (Stats, error) {
	veh, err := s.Get(ctx, vehicleID)
	if err != nil {
		return Stats{}, err
	}

	var counted int
	if err := s.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM vehicle_counted_trips WHERE vehicle_id=$1`, vehicleID,
	).Scan(&counted); err != nil {
		return Stats{}, err
	}

	return Stats{
		VehicleID:       veh.ID,
		TotalDistanceKm: veh.TotalDistanceKm,
		TotalFuelL:      veh.TotalFuelL,
		CountedTrips:    counted,
	}, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanVehicle(row rowScanner) (Vehicle, error) {
	var v Vehicle
	if err := row.Scan(&v.ID, &v.CompanyID, &v.DriverID, &v.Name,
		&v.TotalDistanceKm, &v.TotalFuelL, &v.CreatedAt); err != nil {
		return Vehicle{}, err
	}
	return v, nil
}
