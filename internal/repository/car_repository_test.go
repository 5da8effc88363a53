package repository

import (
	"context"
	"errors"
	"testing"

	"github.com/groupcar/groupcar-server/internal/domain"
)

func seedGroupWithCar(t *testing.T, ctx context.Context, groups GroupRepository, cars CarRepository, ownerID uint) (*domain.Group, *domain.Car) {
	t.Helper()
	group := &domain.Group{Name: "carpool", OwnerID: ownerID}
	if err := groups.Create(ctx, group); err != nil {
		t.Fatalf("create group: %v", err)
	}
	car := &domain.Car{GroupID: group.ID, Name: "family van"}
	if err := cars.Create(ctx, car); err != nil {
		t.Fatalf("create car: %v", err)
	}
	return group, car
}

func TestRegisterDriverClaimsFreeCar(t *testing.T) {
	db := newTestDB(t)
	groups := NewGroupRepository(db)
	cars := NewCarRepository(db)
	ctx := context.Background()
	owner := seedUser(t, db, "owner")

	group, car := seedGroupWithCar(t, ctx, groups, cars, owner.ID)

	driven, err := cars.RegisterDriver(ctx, group.ID, car.ID, owner.ID)
	if err != nil {
		t.Fatalf("register driver: %v", err)
	}
	if driven.DriverID == nil || *driven.DriverID != owner.ID {
		t.Fatalf("expected owner as driver, got %+v", driven.DriverID)
	}
}

func TestRegisterDriverRejectsOccupiedCar(t *testing.T) {
	db := newTestDB(t)
	groups := NewGroupRepository(db)
	cars := NewCarRepository(db)
	ctx := context.Background()
	owner := seedUser(t, db, "owner")
	other := seedUser(t, db, "other")

	group, car := seedGroupWithCar(t, ctx, groups, cars, owner.ID)

	if _, err := cars.RegisterDriver(ctx, group.ID, car.ID, owner.ID); err != nil {
		t.Fatalf("first driver: %v", err)
	}
	if _, err := cars.RegisterDriver(ctx, group.ID, car.ID, other.ID); !errors.Is(err, ErrCarInUse) {
		t.Fatalf("expected ErrCarInUse, got %v", err)
	}
}

func TestParkClearsDriverAndStoresPosition(t *testing.T) {
	db := newTestDB(t)
	groups := NewGroupRepository(db)
	cars := NewCarRepository(db)
	ctx := context.Background()
	owner := seedUser(t, db, "owner")

	group, car := seedGroupWithCar(t, ctx, groups, cars, owner.ID)

	if _, err := cars.RegisterDriver(ctx, group.ID, car.ID, owner.ID); err != nil {
		t.Fatalf("register driver: %v", err)
	}
	parked, err := cars.Park(ctx, group.ID, car.ID, owner.ID, 48.137, 11.575)
	if err != nil {
		t.Fatalf("park: %v", err)
	}
	if parked.DriverID != nil {
		t.Fatal("parked car must have no driver")
	}
	if parked.Latitude == nil || *parked.Latitude != 48.137 {
		t.Fatalf("expected latitude stored, got %+v", parked.Latitude)
	}
	if parked.Longitude == nil || *parked.Longitude != 11.575 {
		t.Fatalf("expected longitude stored, got %+v", parked.Longitude)
	}

	// The car is free again for the next member.
	if _, err := cars.RegisterDriver(ctx, group.ID, car.ID, owner.ID); err != nil {
		t.Fatalf("re-register after park: %v", err)
	}
}

func TestParkRequiresCurrentDriver(t *testing.T) {
	db := newTestDB(t)
	groups := NewGroupRepository(db)
	cars := NewCarRepository(db)
	ctx := context.Background()
	owner := seedUser(t, db, "owner")
	other := seedUser(t, db, "other")

	group, car := seedGroupWithCar(t, ctx, groups, cars, owner.ID)

	if _, err := cars.Park(ctx, group.ID, car.ID, owner.ID, 0, 0); !errors.Is(err, ErrCarNotDrivenBy) {
		t.Fatalf("expected ErrCarNotDrivenBy for idle car, got %v", err)
	}

	if _, err := cars.RegisterDriver(ctx, group.ID, car.ID, owner.ID); err != nil {
		t.Fatalf("register driver: %v", err)
	}
	if _, err := cars.Park(ctx, group.ID, car.ID, other.ID, 0, 0); !errors.Is(err, ErrCarNotDrivenBy) {
		t.Fatalf("expected ErrCarNotDrivenBy for non-driver, got %v", err)
	}
}

func TestCarLookupsAreScopedToGroup(t *testing.T) {
	db := newTestDB(t)
	groups := NewGroupRepository(db)
	cars := NewCarRepository(db)
	ctx := context.Background()
	owner := seedUser(t, db, "owner")

	group, car := seedGroupWithCar(t, ctx, groups, cars, owner.ID)

	if _, err := cars.FindByID(ctx, group.ID+1, car.ID); !errors.Is(err, ErrCarNotFound) {
		t.Fatalf("expected ErrCarNotFound outside the group, got %v", err)
	}
	if _, err := cars.RegisterDriver(ctx, group.ID+1, car.ID, owner.ID); !errors.Is(err, ErrCarNotFound) {
		t.Fatalf("expected ErrCarNotFound for wrong group, got %v", err)
	}

	listed, err := cars.ListByGroup(ctx, group.ID)
	if err != nil {
		t.Fatalf("list by group: %v", err)
	}
	if len(listed) != 1 || listed[0].ID != car.ID {
		t.Fatalf("expected the seeded car, got %+v", listed)
	}
}
