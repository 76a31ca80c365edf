package queue

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// Queue keys. Lists are pushed on the left and popped on the right, so
// messages leave in arrival order.
const (
	TripCompletedQueue = "trips:completed"
	TripCompletedDead  = "trips:completed:dead"
	TrainingQueue      = "training:requests"
	PredictionQueue    = "prediction:requests"
)

const popTimeout = time.Second

// TripCompleted is consumed by the analysis worker. Attempts counts
// deliveries for the bounded-retry policy and is not part of the public
// schema.
type TripCompleted struct {
	TripID   string `json:"tripId"`
	Attempts int    `json:"attempts,omitempty"`
}

// TrainingRequest asks the model trainer to fit a manifest's dataset.
type TrainingRequest struct {
	VehicleID string `json:"vehicleId"`
	Version   string `json:"version"`
	ModelID   string `json:"modelId"`
}

// PredictionRequest asks the predictor to score one trip against a trained
// model version.
type PredictionRequest struct {
	TripID    string `json:"tripId"`
	VehicleID string `json:"vehicleId"`
	Version   string `json:"version"`
}

// Client is an explicitly constructed messaging client; it is handed to
// whoever needs it rather than living as a process-wide singleton.
type Client struct {
	rdb *redis.Client
}

func NewClient(rdb *redis.Client) *Client {
	return &Client{rdb: rdb}
}

func (c *Client) PublishTripCompleted(ctx context.Context, tripID string) error {
	return c.push(ctx, TripCompletedQueue, TripCompleted{TripID: tripID})
}

func (c *Client) PublishTrainingRequest(ctx context.Context, req TrainingRequest) error {
	return c.push(ctx, TrainingQueue, req)
}

func (c *Client) PublishPredictionRequest(ctx context.Context, req PredictionRequest) error {
	return c.push(ctx, PredictionQueue, req)
}

// ErrNotConfigured is returned when the backing redis client is absent.
var ErrNotConfigured = errors.New("queue: redis not configured")

// ConsumeTripCompleted blocks until a trip-completed message arrives or ctx
// is done.
func (c *Client) ConsumeTripCompleted(ctx context.Context) (TripCompleted, error) {
	if c.rdb == nil {
		return TripCompleted{}, ErrNotConfigured
	}
	for {
		if err := ctx.Err(); err != nil {
			return TripCompleted{}, err
		}
		res, err := c.rdb.BRPop(ctx, popTimeout, TripCompletedQueue).Result()
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			return TripCompleted{}, err
		}
		// BRPOP returns [key, value].
		var msg TripCompleted
		if err := json.Unmarshal([]byte(res[1]), &msg); err != nil {
			return TripCompleted{}, err
		}
		return msg, nil
	}
}

// Retry requeues a failed message with its attempt counter bumped.
func (c *Client) Retry(ctx context.Context, msg TripCompleted) error {
	msg.Attempts++
	return c.push(ctx, TripCompletedQueue, msg)
}

// DeadLetter parks a message that exhausted its attempts.
func (c *Client) DeadLetter(ctx context.Context, msg TripCompleted) error {
	return c.push(ctx, TripCompletedDead, msg)
}

func (c *Client) push(ctx context.Context, key string, msg any) error {
	if c.rdb == nil {
		return ErrNotConfigured
	}
	payload, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	return c.rdb.LPush(ctx, key, payload).Err()
}
