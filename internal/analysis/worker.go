package analysis

import (
	"context"
	"errors"
	"log"
	"time"

	"backend-fleetms/internal/config"
	"backend-fleetms/internal/dataset"
	"backend-fleetms/internal/queue"
	"backend-fleetms/internal/telemetry"
	"backend-fleetms/internal/trip"
	"backend-fleetms/internal/vehicle"

	"github.com/jackc/pgx/v5"
)

type TripStore interface {
	Get(ctx context.Context, id string) (trip.Trip, error)
	SaveSummary(ctx context.Context, id string, summary trip.Summary, sampleCount int) error
	SetRole(ctx context.Context, id, role string) error
}

type SampleStore interface {
	ListByTrip(ctx context.Context, tripID string) ([]telemetry.Sample, error)
}

type VehicleStore interface {
	Get(ctx context.Context, id string) (vehicle.Vehicle, error)
	AddTripTotals(ctx context.Context, vehicleID, tripID string, distanceKm, fuelL float64) (bool, error)
}

type ManifestStore interface {
	LatestOrCreate(ctx context.Context, vehicleID string) (dataset.Manifest, error)
	Assign(ctx context.Context, m dataset.Manifest, tripID string, sampleCount, trainTarget, validationTarget int) (dataset.Assignment, error)
}

type Broker interface {
	ConsumeTripCompleted(ctx context.Context) (queue.TripCompleted, error)
	Retry(ctx context.Context, msg queue.TripCompleted) error
	DeadLetter(ctx context.Context, msg queue.TripCompleted) error
	PublishTrainingRequest(ctx context.Context, req queue.TrainingRequest) error
	PublishPredictionRequest(ctx context.Context, req queue.PredictionRequest) error
}

// Worker turns completed trips into summaries, vehicle totals and dataset
// assignments. Run consumes one message at a time, so every manifest and
// vehicle-aggregate write the worker makes is serialized.
type Worker struct {
	trips     TripStore
	samples   SampleStore
	vehicles  VehicleStore
	manifests ManifestStore
	broker    Broker
	cfg       config.Config
}

func NewWorker(trips TripStore, samples SampleStore, vehicles VehicleStore, manifests ManifestStore, broker Broker, cfg config.Config) *Worker {
	return &Worker{
		trips:     trips,
		samples:   samples,
		vehicles:  vehicles,
		manifests: manifests,
		broker:    broker,
		cfg:       cfg,
	}
}

// Run blocks until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) {
	for {
		msg, err := w.broker.ConsumeTripCompleted(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			log.Printf("analysis: consume: %v", err)
			select {
			case <-time.After(time.Second):
			case <-ctx.Done():
				return
			}
			continue
		}
		w.Handle(ctx, msg)
	}
}

// Handle processes one message under the per-job deadline and applies the
// bounded-retry policy on failure.
func (w *Worker) Handle(ctx context.Context, msg queue.TripCompleted) {
	timeout := time.Duration(w.cfg.AnalysisJobTimeoutSec) * time.Second
	if timeout <= 0 {
		timeout = time.Minute
	}
	jobCtx, cancel := context.WithTimeout(ctx, timeout)
	err := w.process(jobCtx, msg.TripID)
	cancel()
	if err == nil {
		return
	}

	log.Printf("analysis: trip %s attempt %d: %v", msg.TripID, msg.Attempts+1, err)
	if msg.Attempts+1 >= w.cfg.AnalysisMaxAttempts {
		if dlErr := w.broker.DeadLetter(ctx, msg); dlErr != nil {
			log.Printf("analysis: dead-letter trip %s: %v", msg.TripID, dlErr)
		}
		return
	}
	if rErr := w.broker.Retry(ctx, msg); rErr != nil {
		log.Printf("analysis: requeue trip %s: %v", msg.TripID, rErr)
	}
}

// process runs the full analysis pass. A nil return acknowledges the
// message; lookup misses and sample-less trips are dropped deliberately,
// everything else is surfaced for retry.
func (w *Worker) process(ctx context.Context, tripID string) error {
	tr, err := w.trips.Get(ctx, tripID)
	if errors.Is(err, pgx.ErrNoRows) {
		log.Printf("analysis: trip %s not found, dropping", tripID)
		return nil
	}
	if err != nil {
		return err
	}

	veh, err := w.vehicles.Get(ctx, tr.VehicleID)
	if errors.Is(err, pgx.ErrNoRows) {
		log.Printf("analysis: vehicle %s for trip %s not found, dropping", tr.VehicleID, tripID)
		return nil
	}
	if err != nil {
		return err
	}

	manifest, err := w.manifests.LatestOrCreate(ctx, veh.ID)
	if err != nil {
		return err
	}

	samples, err := w.samples.ListByTrip(ctx, tripID)
	if err != nil {
		return err
	}
	if len(samples) == 0 {
		log.Printf("analysis: trip %s has no samples, dropping", tripID)
		return nil
	}

	summary := Summarize(samples)
	if err := w.trips.SaveSummary(ctx, tripID, summary, len(samples)); err != nil {
		return err
	}

	counted, err := w.vehicles.AddTripTotals(ctx, veh.ID, tripID, summary.DistanceKm, summary.FuelL)
	if err != nil {
		return err
	}
	if !counted {
		log.Printf("analysis: trip %s already counted for vehicle %s", tripID, veh.ID)
	}

	assignment, err := w.manifests.Assign(ctx, manifest, tripID, len(samples),
		w.cfg.TrainSampleTarget, w.cfg.ValidationSampleTarget)
	if err != nil {
		return err
	}
	if err := w.trips.SetRole(ctx, tripID, assignment.Role); err != nil {
		return err
	}

	if assignment.TriggerTraining {
		err := w.broker.PublishTrainingRequest(ctx, queue.TrainingRequest{
			VehicleID: veh.ID,
			Version:   manifest.Version,
			ModelID:   manifest.ID,
		})
		if err != nil {
			return err
		}
	}
	if assignment.TriggerPrediction {
		err := w.broker.PublishPredictionRequest(ctx, queue.PredictionRequest{
			TripID:    tripID,
			VehicleID: veh.ID,
			Version:   manifest.Version,
		})
		if err != nil {
			return err
		}
	}
	return nil
}
