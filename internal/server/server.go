package server

import (
	"time"

	"backend-fleetms/internal/auth"
	"backend-fleetms/internal/config"
	"backend-fleetms/internal/dataset"
	"backend-fleetms/internal/live"
	"backend-fleetms/internal/protocol"
	"backend-fleetms/internal/queue"
	"backend-fleetms/internal/sample"
	"backend-fleetms/internal/trip"
	"backend-fleetms/internal/vehicle"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

type Server struct {
	App   *fiber.App
	Cfg   config.Config
	DB    *pgxpool.Pool
	Redis *redis.Client
	Queue *queue.Client
	Live  *live.Hub

	Trips     *trip.Service
	Samples   *sample.Service
	Vehicles  *vehicle.Service
	Manifests *dataset.Service
}

func NewServer(cfg config.Config, db *pgxpool.Pool, redisClient *redis.Client) *Server {
	app := fiber.New()
	app.Use(recover.New())
	app.Use(logger.New())

	s := &Server{
		App:       app,
		Cfg:       cfg,
		DB:        db,
		Redis:     redisClient,
		Queue:     queue.NewClient(redisClient),
		Live:      live.NewHub(redisClient),
		Trips:     trip.NewService(db),
		Samples:   sample.NewService(db),
		Vehicles:  vehicle.NewService(db),
		Manifests: dataset.NewService(db),
	}

	registerRoutes(s)
	return s
}

func registerRoutes(s *Server) {
	s.App.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	jwtMiddleware := auth.JWTMiddleware(s.Cfg.JWTSecret)

	protocol.RegisterRoutes(s.App.Group("/telemetry"), protocol.Deps{
		Tokens:   auth.NewService(s.Cfg.JWTSecret),
		Vehicles: s.Vehicles,
		Trips:    s.Trips,
		Samples:  s.Samples,
		Queue:    s.Queue,
		Live:     s.Live,
	}, protocol.Settings{
		AckThreshold: s.Cfg.AckThreshold,
		PingInterval: time.Duration(s.Cfg.PingIntervalSec) * time.Second,
		PongTimeout:  time.Duration(s.Cfg.PongTimeoutSec) * time.Second,
	})

	trip.RegisterRoutes(s.App.Group("/trips"), s.Trips, jwtMiddleware)
	vehicle.RegisterRoutes(s.App.Group("/vehicles"), s.Vehicles, jwtMiddleware)
	live.RegisterRoutes(s.App.Group("/live"), s.Live)
}
