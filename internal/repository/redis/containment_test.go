package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"

	"github.com/fleetcore/backend/internal/domain"
	"github.com/fleetcore/backend/internal/repository/postgres"
	"github.com/fleetcore/backend/internal/service"
	"github.com/fleetcore/backend/pkg/log"
)

var observedAt = time.Date(2024, 3, 4, 10, 0, 0, 0, time.UTC)

func newTestStore(t *testing.T, mr *miniredis.Miniredis) *ContainmentStore {
	t.Helper()
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewContainmentStoreWithClient(client, log.NewNopLogger())
}

func TestContainmentStore_ObserveAndInside(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	s := newTestStore(t, mr)

	if inside, err := s.Inside(ctx, "truck-42", "depot"); err != nil || inside {
		t.Fatalf("expected unknown pair to be outside, got %v, %v", inside, err)
	}

	obs, err := s.Observe(ctx, "truck-42", "depot", true, observedAt)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !obs.Applied || obs.WasInside {
		t.Errorf("expected applied entry from outside, got %+v", obs)
	}
	if inside, _ := s.Inside(ctx, "truck-42", "depot"); !inside {
		t.Error("expected truck inside depot")
	}
	if ok, _ := mr.SIsMember("fleet:containment:zone:depot", "truck-42"); !ok {
		t.Error("expected reverse zone index to hold the truck")
	}

	obs, err = s.Observe(ctx, "truck-42", "depot", false, observedAt.Add(time.Minute))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !obs.Applied || !obs.WasInside {
		t.Errorf("expected applied exit from inside, got %+v", obs)
	}
	if inside, _ := s.Inside(ctx, "truck-42", "depot"); inside {
		t.Error("expected truck outside depot")
	}
	if ok, _ := mr.SIsMember("fleet:containment:zone:depot", "truck-42"); ok {
		t.Error("expected reverse zone index to drop the truck")
	}
}

func TestContainmentStore_ObserveIgnoresOlderReports(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t, miniredis.RunT(t))

	if _, err := s.Observe(ctx, "truck-42", "depot", true, observedAt.Add(30*time.Second)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	obs, err := s.Observe(ctx, "truck-42", "depot", false, observedAt)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if obs.Applied {
		t.Error("older report should not be applied")
	}
	if !obs.WasInside {
		t.Error("expected stored state to be reported as inside")
	}
	if inside, _ := s.Inside(ctx, "truck-42", "depot"); !inside {
		t.Error("older report must not rewind containment")
	}

	obs, err = s.Observe(ctx, "truck-42", "depot", true, observedAt.Add(30*time.Second))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !obs.Applied {
		t.Error("report with the same timestamp should be applied")
	}
}

func TestContainmentStore_ObserveIsAtomicAcrossInstances(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	a := newTestStore(t, mr)
	b := newTestStore(t, mr)

	first, err := a.Observe(ctx, "truck-42", "depot", true, observedAt)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := b.Observe(ctx, "truck-42", "depot", true, observedAt)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if first.WasInside || !second.WasInside {
		t.Errorf("expected only the first instance to see the crossing, got %+v then %+v", first, second)
	}
}

func TestContainmentStore_ZonesFor(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t, miniredis.RunT(t))

	for _, zone := range []string{"yard", "depot", "fuel"} {
		if _, err := s.Observe(ctx, "truck-42", zone, true, observedAt); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if _, err := s.Observe(ctx, "truck-42", "fuel", false, observedAt.Add(time.Second)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	zones, err := s.ZonesFor(ctx, "truck-42")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(zones) != 2 || zones[0] != "depot" || zones[1] != "yard" {
		t.Errorf("expected sorted [depot yard], got %v", zones)
	}

	if zones, _ := s.ZonesFor(ctx, "unknown"); len(zones) != 0 {
		t.Errorf("expected no zones for unknown vehicle, got %v", zones)
	}
}

func TestContainmentStore_ForgetZone(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	s := newTestStore(t, mr)

	_, _ = s.Observe(ctx, "truck-42", "depot", true, observedAt)
	_, _ = s.Observe(ctx, "truck-7", "depot", true, observedAt)
	_, _ = s.Observe(ctx, "truck-42", "yard", true, observedAt)

	if err := s.ForgetZone(ctx, "depot"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for _, vehicle := range []string{"truck-42", "truck-7"} {
		if inside, _ := s.Inside(ctx, vehicle, "depot"); inside {
			t.Errorf("expected %s no longer inside depot", vehicle)
		}
	}
	if inside, _ := s.Inside(ctx, "truck-42", "yard"); !inside {
		t.Error("other zones must be kept")
	}
	if mr.Exists("fleet:containment:zone:depot") {
		t.Error("expected reverse zone index removed")
	}
	if mr.Exists("fleet:containment:seen:depot") {
		t.Error("expected last-seen hash removed")
	}

	// a recreated zone starts fresh, even for reports older than the forgotten ones
	obs, err := s.Observe(ctx, "truck-42", "depot", true, observedAt.Add(-time.Hour))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !obs.Applied || obs.WasInside {
		t.Errorf("expected fresh entry after forget, got %+v", obs)
	}
}

func TestContainmentStore_SharedAcrossServices(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	repo := postgres.NewMockRepository()
	now := func() time.Time { return observedAt }

	center := domain.GeoPoint{Lat: 32.7767, Lng: -96.7970}
	zone := domain.GeofenceZone{
		ID:           "depot",
		Name:         "Dallas Depot",
		Type:         domain.ZoneCircle,
		Center:       &center,
		RadiusMeters: 500,
		AlertType:    domain.AlertOnBoth,
		IsActive:     true,
	}
	if err := repo.SaveZone(ctx, zone); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var instances []*service.GeofenceService
	for i := 0; i < 2; i++ {
		svc := service.NewGeofenceService(repo, repo, newTestStore(t, mr), log.NewNopLogger(), service.WithClock(now))
		if err := svc.LoadZones(ctx); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		instances = append(instances, svc)
	}

	pos := domain.PositionUpdate{VehicleID: "truck-42", Lat: center.Lat, Lng: center.Lng, Timestamp: observedAt}
	total := 0
	for _, svc := range instances {
		violations, err := svc.CheckPosition(ctx, pos)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		total += len(violations)
	}

	if total != 1 {
		t.Errorf("expected one entry across instances, got %d", total)
	}
}
