package vehicle

import "time"

type Vehicle struct {
	ID              string    `json:"id"`
	CompanyID       string    `json:"company_id"`
	DriverID        string    `json:"driver_id"`
	Name            string    `json:"name"`
	TotalDistanceKm float64   `json:"total_distance_km"`
	TotalFuelL      float64   `json:"total_fuel_l"`
	CreatedAt       time.Time `json:"created_at"`
}

// Stats is the aggregate view served over the REST boundary.
type Stats struct {
	VehicleID       string  `json:"vehicle_id"`
	TotalDistanceKm float64 `json:"total_distance_km"`
	TotalFuelL      float64 `json:"total_fuel_l"`
	CountedTrips    int     `json:"counted_trips"`
}
