package protocol

import (
	"context"
	"errors"
	"log"
	"time"

	"backend-fleetms/internal/telemetry"
	"backend-fleetms/internal/trip"
	"backend-fleetms/internal/vehicle"

	"github.com/google/uuid"
)

// TokenVerifier resolves a device token to the subject user id.
type TokenVerifier interface {
	VerifyToken(token string) (string, error)
}

// VehicleResolver finds the vehicle operated by an authenticated driver.
type VehicleResolver interface {
	FindByDriver(ctx context.Context, driverID string) (vehicle.Vehicle, error)
}

// TripStore covers the trip lifecycle operations a session performs.
type TripStore interface {
	Create(ctx context.Context, vehicleID, driverID, companyID string) (trip.Trip, error)
	Get(ctx context.Context, id string) (trip.Trip, error)
	SetStatus(ctx context.Context, id, status string) error
	Complete(ctx context.Context, id string) error
}

// SampleStore appends decoded telemetry to a trip.
type SampleStore interface {
	InsertBatch(ctx context.Context, tripID string, samples []telemetry.Sample) error
}

// Publisher enqueues completed trips for the analysis worker.
type Publisher interface {
	PublishTripCompleted(ctx context.Context, tripID string) error
}

// LiveFeed receives the latest sample per vehicle for live watchers.
type LiveFeed interface {
	PublishSample(vehicleID string, s telemetry.Sample)
}

// Deps bundles the collaborators a session needs. Everything is passed in
// explicitly; sessions hold no process-wide state.
type Deps struct {
	Tokens   TokenVerifier
	Vehicles VehicleResolver
	Trips    TripStore
	Samples  SampleStore
	Queue    Publisher
	Live     LiveFeed
}

// Settings are the negotiated per-connection parameters announced in
// CONFIG_ACK.
type Settings struct {
	AckThreshold int
	PingInterval time.Duration
	PongTimeout  time.Duration
}

// CloseError instructs the connection handler to close the websocket.
type CloseError struct {
	Code   int
	Reason string
}

// Session is the per-connection protocol state machine. It is owned
// exclusively by one connection handler goroutine; no locking.
type Session struct {
	deps     Deps
	settings Settings

	id            string
	authenticated bool
	userID        string
	vehicleID     string
	companyID     string
	tripID        string
	unacked       int
}

func NewSession(deps Deps, settings Settings) *Session {
	return &Session{deps: deps, settings: settings}
}

// ID returns the session identifier assigned at authentication.
func (s *Session) ID() string { return s.id }

// HandleMessage processes one inbound frame to completion and returns the
// frames to write back, plus a close instruction when the connection must
// be torn down.
func (s *Session) HandleMessage(ctx context.Context, msg []byte) ([][]byte, *CloseError) {
	frame, err := DecodeFrame(msg)
	if err != nil {
		return nil, &CloseError{CloseProtocolViolation, "empty frame"}
	}

	if !s.authenticated {
		if frame.Data {
			return nil, &CloseError{CloseNotReady, "telemetry before authentication"}
		}
		if frame.Command != CmdAuthReq {
			return nil, &CloseError{CloseProtocolViolation, "authentication required"}
		}
		return s.handleAuth(ctx, frame.Payload)
	}

	if frame.Data {
		return s.handleData(ctx, frame)
	}

	switch frame.Command {
	case CmdConfigReq:
		return s.replies(EncodeConfigAck(
			uint16(s.settings.AckThreshold),
			uint32(s.settings.PingInterval.Milliseconds()),
			uint32(s.settings.PongTimeout.Milliseconds()),
		)), nil
	case CmdPing:
		return s.replies(EncodeControl(CmdPong, nil)), nil
	case CmdStartTripReq:
		return s.handleStartTrip(ctx)
	case CmdResumeTripReq:
		return s.handleResumeTrip(ctx, frame.Payload)
	case CmdPauseTripReq:
		return s.handlePauseTrip(ctx)
	case CmdEndTripReq:
		return s.handleEndTrip(ctx)
	default:
		// Unknown or unexpected commands after authentication carry no
		// transition.
		return nil, nil
	}
}

func (s *Session) handleAuth(ctx context.Context, payload []byte) ([][]byte, *CloseError) {
	token, _, err := readLenPrefixed(payload)
	if err != nil {
		return s.authFailure("malformed auth payload")
	}

	userID, err := s.deps.Tokens.VerifyToken(string(token))
	if err != nil {
		return s.authFailure("invalid token")
	}

	veh, err := s.deps.Vehicles.FindByDriver(ctx, userID)
	if err != nil {
		return s.authFailure("no vehicle bound to driver")
	}

	s.authenticated = true
	s.userID = userID
	s.vehicleID = veh.ID
	s.companyID = veh.CompanyID
	s.id = uuid.NewString()

	return s.replies(EncodeControl(CmdAuthOK, appendLenPrefixed(nil, []byte(s.id)))), nil
}

func (s *Session) authFailure(reason string) ([][]byte, *CloseError) {
	return s.replies(EncodeError(ErrCodeAuthFailed, reason)),
		&CloseError{CloseAuthFailed, reason}
}

func (s *Session) handleStartTrip(ctx context.Context) ([][]byte, *CloseError) {
	if s.tripID != "" {
		return nil, &CloseError{CloseProtocolViolation, "trip already bound"}
	}
	tr, err := s.deps.Trips.Create(ctx, s.vehicleID, s.userID, s.companyID)
	if err != nil {
		return s.internalFailure("create trip", err)
	}
	s.tripID = tr.ID
	s.unacked = 0
	return s.replies(EncodeControl(CmdStartTripOK, appendLenPrefixed(nil, []byte(tr.ID)))), nil
}

func (s *Session) handleResumeTrip(ctx context.Context, payload []byte) ([][]byte, *CloseError) {
	if s.tripID != "" {
		return nil, &CloseError{CloseProtocolViolation, "trip already bound"}
	}
	id, _, err := readLenPrefixed(payload)
	if err != nil {
		return nil, &CloseError{CloseProtocolViolation, "malformed resume payload"}
	}

	tr, err := s.deps.Trips.Get(ctx, string(id))
	if err != nil || tr.VehicleID != s.vehicleID {
		// Ownership violations close without a response frame.
		return nil, &CloseError{CloseInvalidTrip, "trip not available to this vehicle"}
	}
	if err := s.deps.Trips.SetStatus(ctx, tr.ID, trip.StatusOngoing); err != nil {
		return s.internalFailure("resume trip", err)
	}
	s.tripID = tr.ID
	s.unacked = 0
	return s.replies(EncodeControl(CmdResumeTripOK, appendLenPrefixed(nil, []byte(tr.ID)))), nil
}

func (s *Session) handlePauseTrip(ctx context.Context) ([][]byte, *CloseError) {
	if s.tripID == "" {
		return nil, &CloseError{CloseNotReady, "no trip bound"}
	}
	if err := s.deps.Trips.SetStatus(ctx, s.tripID, trip.StatusPaused); err != nil {
		return s.internalFailure("pause trip", err)
	}
	return s.replies(EncodeControl(CmdPauseTripOK, nil)), nil
}

func (s *Session) handleEndTrip(ctx context.Context) ([][]byte, *CloseError) {
	if s.tripID == "" {
		return nil, &CloseError{CloseNotReady, "no trip bound"}
	}
	tripID := s.tripID
	if err := s.deps.Trips.Complete(ctx, tripID); err != nil {
		return s.internalFailure("complete trip", err)
	}
	s.tripID = ""
	s.unacked = 0

	if err := s.deps.Queue.PublishTripCompleted(ctx, tripID); err != nil {
		// The trip is completed either way; losing the event only delays
		// analysis until the next reanalysis request.
		log.Printf("session %s: enqueue trip %s: %v", s.id, tripID, err)
	}
	return s.replies(EncodeControl(CmdEndTripOK, nil)), nil
}

func (s *Session) handleData(ctx context.Context, frame Frame) ([][]byte, *CloseError) {
	if s.tripID == "" {
		return nil, &CloseError{CloseNotReady, "telemetry without a bound trip"}
	}

	samples, err := telemetry.DecodeRecords(frame.Payload, frame.RecordCount)
	if err != nil {
		if errors.Is(err, telemetry.ErrMalformedRecord) {
			// Reject the frame, keep the connection. No partial appends.
			return s.replies(EncodeError(ErrCodeMalformedRecord, "record block length mismatch")), nil
		}
		return s.internalFailure("decode records", err)
	}
	if len(samples) == 0 {
		return nil, nil
	}

	if err := s.deps.Samples.InsertBatch(ctx, s.tripID, samples); err != nil {
		return s.internalFailure("insert samples", err)
	}

	if s.deps.Live != nil {
		s.deps.Live.PublishSample(s.vehicleID, samples[len(samples)-1])
	}

	var out [][]byte
	for range samples {
		s.unacked++
		if s.unacked == s.settings.AckThreshold {
			out = append(out, EncodeControl(CmdAck, nil))
			s.unacked = 0
		}
	}
	return out, nil
}

func (s *Session) internalFailure(op string, err error) ([][]byte, *CloseError) {
	log.Printf("session %s: %s: %v", s.id, op, err)
	return nil, &CloseError{CloseInternal, "internal error"}
}

func (s *Session) replies(frames ...[]byte) [][]byte {
	return frames
}
