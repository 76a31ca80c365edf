package dataset

import "time"

// Manifest lifecycle statuses.
const (
	StatusPending  = "pending"
	StatusTraining = "training"
	StatusTrained  = "trained"
	StatusFailed   = "failed"
)

// Manifest describes one per-vehicle training dataset: which trips feed the
// train and validation sets and how many samples each set holds. At most
// one manifest per vehicle accepts new assignments at a time.
type Manifest struct {
	ID                string    `json:"id"`
	VehicleID         string    `json:"vehicle_id"`
	Version           string    `json:"version"`
	Status            string    `json:"status"`
	TrainSamples      int       `json:"train_samples"`
	ValidationSamples int       `json:"validation_samples"`
	Metrics           []byte    `json:"metrics,omitempty"`
	CreatedAt         time.Time `json:"created_at"`
}

// Assignment is the outcome of partitioning one summarized trip.
type Assignment struct {
	Role              string
	TriggerTraining   bool
	TriggerPrediction bool
}
