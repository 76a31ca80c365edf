package analysis

import (
	"math"

	"backend-fleetms/internal/telemetry"
	"backend-fleetms/internal/trip"
)

// Intervals whose average speed reaches this value count as motion, the
// rest as idle.
const motionSpeedThresholdKmh = 0.5

// mL/s to L/h.
const fuelRateToLph = 3.6

// Summarize computes a trip summary in a single forward pass over the
// samples, which must already be sorted ascending by timestamp.
//
// Per consecutive pair (prev, cur): dt is the elapsed seconds; pairs with
// dt <= 0 or a non-finite dt advance nothing. Distance integrates the
// current sample's speed over dt; fuel integrates the average of the two
// fuel rates (mL/s) converted to liters. Route points keep the first
// sample and every later sample whose GPS position moved.
func Summarize(samples []telemetry.Sample) trip.Summary {
	if len(samples) == 0 {
		return trip.Summary{}
	}

	var durationSec, distanceKm, fuelL float64
	var motionSec, idleSec, motionFuelL, idleFuelL float64
	var speedSum, rpmSum, rateSum float64
	var maxSpeed, maxRPM float64

	route := []trip.RoutePoint{routePoint(samples[0])}

	for i, cur := range samples {
		speedSum += cur.Speed
		rpmSum += cur.RPM
		rateSum += cur.FuelRate
		if cur.Speed > maxSpeed {
			maxSpeed = cur.Speed
		}
		if cur.RPM > maxRPM {
			maxRPM = cur.RPM
		}

		if i == 0 {
			continue
		}
		prev := samples[i-1]

		dt := cur.RecordedAt.Sub(prev.RecordedAt).Seconds()
		if dt <= 0 || math.IsNaN(dt) || math.IsInf(dt, 0) {
			continue
		}

		durationSec += dt
		distanceKm += cur.Speed / 3600 * dt

		intervalFuelL := (cur.FuelRate + prev.FuelRate) / 2 / 1000 * dt
		fuelL += intervalFuelL

		if (cur.Speed+prev.Speed)/2 >= motionSpeedThresholdKmh {
			motionSec += dt
			motionFuelL += intervalFuelL
		} else {
			idleSec += dt
			idleFuelL += intervalFuelL
		}

		if cur.Lat != prev.Lat || cur.Lon != prev.Lon || cur.Altitude != prev.Altitude {
			route = append(route, routePoint(cur))
		}
	}

	n := float64(len(samples))
	return trip.Summary{
		DurationSec:   durationSec,
		DistanceKm:    round2(distanceKm),
		FuelL:         round2(fuelL),
		MotionTimeSec: motionSec,
		IdleTimeSec:   idleSec,
		MotionFuelL:   round2(motionFuelL),
		IdleFuelL:     round2(idleFuelL),
		AvgSpeedKmh:   round1(speedSum / n),
		MaxSpeedKmh:   int(math.Round(maxSpeed)),
		AvgRPM:        int(math.Round(rpmSum / n)),
		MaxRPM:        int(math.Round(maxRPM)),
		AvgFuelLph:    round2(rateSum / n * fuelRateToLph),
		Route:         route,
	}
}

func routePoint(s telemetry.Sample) trip.RoutePoint {
	return trip.RoutePoint{Lat: s.Lat, Lon: s.Lon, Alt: s.Altitude}
}

func round1(v float64) float64 { return math.Round(v*10) / 10 }

func round2(v float64) float64 { return math.Round(v*100) / 100 }
