package trip

import "time"

// Trip statuses.
const (
	StatusOngoing   = "ongoing"
	StatusPaused    = "paused"
	StatusCompleted = "completed"
)

// Dataset roles a summarized trip can be assigned.
const (
	RoleTrain      = "train"
	RoleValidation = "validation"
	RolePrediction = "prediction"
)

type Trip struct {
	ID          string    `json:"id"`
	VehicleID   string    `json:"vehicle_id"`
	DriverID    string    `json:"driver_id"`
	CompanyID   string    `json:"company_id"`
	Status      string    `json:"status"`
	StartedAt   time.Time `json:"started_at"`
	EndedAt     time.Time `json:"ended_at,omitempty"`
	SampleCount int       `json:"sample_count"`
	Summary     *Summary  `json:"summary,omitempty"`
	Role        string    `json:"role,omitempty"`
}

// RoutePoint is one deduplicated GPS position on a trip route.
type RoutePoint struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
	Alt float64 `json:"alt"`
}

// Summary holds the computed fuel/distance analytics for a completed trip.
type Summary struct {
	DurationSec   float64      `json:"duration_sec"`
	DistanceKm    float64      `json:"distance_km"`
	FuelL         float64      `json:"fuel_l"`
	MotionTimeSec float64      `json:"motion_time_sec"`
	IdleTimeSec   float64      `json:"idle_time_sec"`
	MotionFuelL   float64      `json:"motion_fuel_l"`
	IdleFuelL     float64      `json:"idle_fuel_l"`
	AvgSpeedKmh   float64      `json:"avg_speed_kmh"`
	MaxSpeedKmh   int          `json:"max_speed_kmh"`
	AvgRPM        int          `json:"avg_rpm"`
	MaxRPM        int          `json:"max_rpm"`
	AvgFuelLph    float64      `json:"avg_fuel_lph"`
	Route         []RoutePoint `json:"route"`
}
