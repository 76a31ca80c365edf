package live

import (
	"context"
	"encoding/json"
	"log"
	"sync"

	"backend-fleetms/internal/telemetry"

	"github.com/redis/go-redis/v9"
)

// Hub fans the latest telemetry sample of each vehicle out to subscribed
// watchers, locally and across instances via redis pub/sub.
type Hub struct {
	redis    *redis.Client
	watchers map[string]map[*Watcher]struct{}
	mu       sync.RWMutex
}

type Watcher struct {
	VehicleID string
	Send      chan []byte
}

func NewHub(redisClient *redis.Client) *Hub {
	h := &Hub{
		redis:    redisClient,
		watchers: map[string]map[*Watcher]struct{}{},
	}

	if redisClient != nil {
		go h.subscribeRedis()
	}
	return h
}

func (h *Hub) Watch(vehicleID string) *Watcher {
	w := &Watcher{
		VehicleID: vehicleID,
		Send:      make(chan []byte, 64),
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.watchers[vehicleID] == nil {
		h.watchers[vehicleID] = map[*Watcher]struct{}{}
	}
	h.watchers[vehicleID][w] = struct{}{}
	return w
}

func (h *Hub) Unwatch(w *Watcher) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if vehicleWatchers, ok := h.watchers[w.VehicleID]; ok {
		delete(vehicleWatchers, w)
		if len(vehicleWatchers) == 0 {
			delete(h.watchers, w.VehicleID)
		}
	}
	close(w.Send)
}

// PublishSample pushes a decoded sample to everyone watching the vehicle.
// Slow watchers are skipped, never blocked on.
func (h *Hub) PublishSample(vehicleID string, s telemetry.Sample) {
	payload, err := json.Marshal(s)
	if err != nil {
		return
	}

	// With redis configured, local watchers are reached through the
	// subscription loop; delivering here as well would duplicate frames.
	if h.redis == nil {
		h.deliver(vehicleID, payload)
		return
	}
	if err := h.redis.Publish(context.Background(), redisChannel(vehicleID), payload).Err(); err != nil {
		log.Printf("live: redis publish error: %v", err)
	}
}

func (h *Hub) deliver(vehicleID string, payload []byte) {
	h.mu.RLock()
	watchers := h.watchers[vehicleID]
	h.mu.RUnlock()

	for w := range watchers {
		select {
		case w.Send <- payload:
		default:
		}
	}
}

func (h *Hub) subscribeRedis() {
	ctx := context.Background()
	pubsub := h.redis.PSubscribe(ctx, "vehicle:*:live")
	defer pubsub.Close()

	for msg := range pubsub.Channel() {
		h.deliver(vehicleIDFromChannel(msg.Channel), []byte(msg.Payload))
	}
}

func redisChannel(vehicleID string) string {
	return "vehicle:" + vehicleID + ":live"
}

func vehicleIDFromChannel(ch string) string {
	// vehicle:{id}:live
	const prefix = "vehicle:"
	const suffix = ":live"
	if len(ch) <= len(prefix)+len(suffix) {
		return ""
	}
	return ch[len(prefix) : len(ch)-len(suffix)]
}
