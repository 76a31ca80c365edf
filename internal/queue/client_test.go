package queue

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestClient(t *testing.T) (*Client, *miniredis.Miniredis) {
	t.Helper()
	s := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: s.Addr()})
	t.Cleanup(func() { rdb.Close() })
	return NewClient(rdb), s
}

func TestPublishAndConsumeTripCompleted(t *testing.T) {
	client, _ := newTestClient(t)
	ctx := context.Background()

	if err := client.PublishTripCompleted(ctx, "trip-1"); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if err := client.PublishTripCompleted(ctx, "trip-2"); err != nil {
		t.Fatalf("publish: %v", err)
	}

	msg, err := client.ConsumeTripCompleted(ctx)
	if err != nil {
		t.Fatalf("consume: %v", err)
	}
	if msg.TripID != "trip-1" || msg.Attempts != 0 {
		t.Fatalf("expected trip-1 first, got %+v", msg)
	}

	msg, err = client.ConsumeTripCompleted(ctx)
	if err != nil {
		t.Fatalf("consume: %v", err)
	}
	if msg.TripID != "trip-2" {
		t.Fatalf("expected trip-2 second, got %+v", msg)
	}
}

func TestConsumeStopsOnContextCancel(t *testing.T) {
	client, _ := newTestClient(t)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := client.ConsumeTripCompleted(ctx)
		done <- err
	}()

	cancel()
	select {
	case err := <-done:
		if err == nil {
			t.Fatalf("expected context error")
		}
	case <-time.After(3 * time.Second):
		t.Fatalf("consume did not return after cancel")
	}
}

func TestRetryBumpsAttempts(t *testing.T) {
	client, s := newTestClient(t)
	ctx := context.Background()

	if err := client.Retry(ctx, TripCompleted{TripID: "trip-1", Attempts: 1}); err != nil {
		t.Fatalf("retry: %v", err)
	}

	raw, err := s.List(TripCompletedQueue)
	if err != nil || len(raw) != 1 {
		t.Fatalf("queue contents: %v %v", raw, err)
	}
	var msg TripCompleted
	if err := json.Unmarshal([]byte(raw[0]), &msg); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if msg.Attempts != 2 {
		t.Fatalf("expected attempts bumped to 2, got %d", msg.Attempts)
	}
}

func TestDeadLetterParksMessage(t *testing.T) {
	client, s := newTestClient(t)
	ctx := context.Background()

	if err := client.DeadLetter(ctx, TripCompleted{TripID: "trip-1", Attempts: 3}); err != nil {
		t.Fatalf("dead letter: %v", err)
	}

	if _, err := s.List(TripCompletedQueue); !errors.Is(err, miniredis.ErrKeyNotFound) {
		t.Fatalf("main queue must stay empty, got err %v", err)
	}
	raw, err := s.List(TripCompletedDead)
	if err != nil || len(raw) != 1 {
		t.Fatalf("dead queue contents: %v %v", raw, err)
	}
}

func TestPublishTrainingAndPredictionRequests(t *testing.T) {
	client, s := newTestClient(t)
	ctx := context.Background()

	err := client.PublishTrainingRequest(ctx, TrainingRequest{VehicleID: "veh-1", Version: "v1", ModelID: "man-1"})
	if err != nil {
		t.Fatalf("publish training: %v", err)
	}
	err = client.PublishPredictionRequest(ctx, PredictionRequest{TripID: "trip-1", VehicleID: "veh-1", Version: "v1"})
	if err != nil {
		t.Fatalf("publish prediction: %v", err)
	}

	raw, err := s.List(TrainingQueue)
	if err != nil || len(raw) != 1 {
		t.Fatalf("training queue: %v %v", raw, err)
	}
	var train TrainingRequest
	if err := json.Unmarshal([]byte(raw[0]), &train); err != nil {
		t.Fatalf("unmarshal training: %v", err)
	}
	if train.ModelID != "man-1" {
		t.Fatalf("unexpected training request: %+v", train)
	}

	raw, err = s.List(PredictionQueue)
	if err != nil || len(raw) != 1 {
		t.Fatalf("prediction queue: %v %v", raw, err)
	}
	var pred PredictionRequest
	if err := json.Unmarshal([]byte(raw[0]), &pred); err != nil {
		t.Fatalf("unmarshal prediction: %v", err)
	}
	if pred.TripID != "trip-1" {
		t.Fatalf("unexpected prediction request: %+v", pred)
	}
}

func TestNilClientIsNotConfigured(t *testing.T) {
	client := NewClient(nil)
	ctx := context.Background()

	if err := client.PublishTripCompleted(ctx, "trip-1"); !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}
	if _, err := client.ConsumeTripCompleted(ctx); !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}
}
