package vehicle

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v3"
)

func newMock(t *testing.T) pgxmock.PgxPoolIface {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("mock pool: %v", err)
	}
	t.Cleanup(mock.Close)
	return mock
}

const vehicleColumnsRe = `SELECT id, company_id, driver_id, name, total_distance_km, total_fuel_l, created_at`

var vehicleColumns = []string{"id", "company_id", "driver_id", "name", "total_distance_km", "total_fuel_l", "created_at"}

func TestGetVehicle(t *testing.T) {
	mock := newMock(t)

	mock.ExpectQuery(vehicleColumnsRe).
		WithArgs("veh-1").
		WillReturnRows(pgxmock.NewRows(vehicleColumns).
			AddRow("veh-1", "co-1", "drv-1", "Truck 1", 120.5, 14.2, time.Now()))

	svc := NewService(mock)
	v, err := svc.Get(context.Background(), "veh-1")
	if err != nil {
		t.Fatalf("get vehicle: %v", err)
	}
	if v.ID != "veh-1" || v.TotalDistanceKm != 120.5 {
		t.Fatalf("unexpected vehicle: %+v", v)
	}
}

func TestFindByDriver(t *testing.T) {
	mock := newMock(t)

	mock.ExpectQuery(vehicleColumnsRe).
		WithArgs("drv-1").
		WillReturnRows(pgxmock.NewRows(vehicleColumns).
			AddRow("veh-1", "co-1", "drv-1", "Truck 1", 0.0, 0.0, time.Now()))

	svc := NewService(mock)
	v, err := svc.FindByDriver(context.Background(), "drv-1")
	if err != nil {
		t.Fatalf("find by driver: %v", err)
	}
	if v.ID != "veh-1" || v.DriverID != "drv-1" {
		t.Fatalf("unexpected vehicle: %+v", v)
	}
}

func TestAddTripTotalsFirstClaim(t *testing.T) {
	mock := newMock(t)

	mock.ExpectExec(`INSERT INTO vehicle_counted_trips`).
		WithArgs("veh-1", "trip-1").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec(`UPDATE vehicles`).
		WithArgs("veh-1", 12.3, 1.4).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	svc := NewService(mock)
	counted, err := svc.AddTripTotals(context.Background(), "veh-1", "trip-1", 12.3, 1.4)
	if err != nil {
		t.Fatalf("add trip totals: %v", err)
	}
	if !counted {
		t.Fatalf("first claim must count the trip")
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestAddTripTotalsAlreadyCounted(t *testing.T) {
	mock := newMock(t)

	mock.ExpectExec(`INSERT INTO vehicle_counted_trips`).
		WithArgs("veh-1", "trip-1").
		WillReturnResult(pgxmock.NewResult("INSERT", 0))

	svc := NewService(mock)
	counted, err := svc.AddTripTotals(context.Background(), "veh-1", "trip-1", 12.3, 1.4)
	if err != nil {
		t.Fatalf("add trip totals: %v", err)
	}
	if counted {
		t.Fatalf("an already-counted trip must not touch the totals")
	}

	// The conflicting insert short-circuits; no UPDATE was expected.
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestAddTripTotalsGuardError(t *testing.T) {
	mock := newMock(t)

	mock.ExpectExec(`INSERT INTO vehicle_counted_trips`).
		WithArgs("veh-1", "trip-1").
		WillReturnError(errQuery)

	svc := NewService(mock)
	if _, err := svc.AddTripTotals(context.Background(), "veh-1", "trip-1", 1, 1); err == nil {
		t.Fatalf("expected error")
	}
}

func TestStats(t *testing.T) {
	mock := newMock(t)

	mock.ExpectQuery(vehicleColumnsRe).
		WithArgs("veh-1").
		WillReturnRows(pgxmock.NewRows(vehicleColumns).
			AddRow("veh-1", "co-1", "drv-1", "Truck 1", 120.5, 14.2, time.Now()))
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM vehicle_counted_trips`).
		WithArgs("veh-1").
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(9))

	svc := NewService(mock)
	stats, err := svc.Stats(context.Background(), "veh-1")
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.VehicleID != "veh-1" || stats.TotalDistanceKm != 120.5 || stats.CountedTrips != 9 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
}

var errQuery = errors.New("query error")
