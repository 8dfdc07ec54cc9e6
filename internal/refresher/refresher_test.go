package refresher

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/dimitrmo/cygaz/internal/cache"
	"github.com/dimitrmo/cygaz/internal/metrics"
	"github.com/dimitrmo/cygaz/internal/petrol"
)

// fetchFunc adapts a function to the fetcher interface for tests.
type fetchFunc func(ctx context.Context, t petrol.Type) ([]petrol.Station, error)

func (f fetchFunc) Fetch(ctx context.Context, t petrol.Type) ([]petrol.Station, error) {
	return f(ctx, t)
}

func newCoordinator(f fetchFunc, store *cache.Store, timeout time.Duration) *Coordinator {
	return New(f, store, timeout, metrics.New(), zerolog.Nop())
}

func waitNotRefreshing(t *testing.T, store *cache.Store, typ petrol.Type) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for store.Refreshing(typ) {
		if time.Now().After(deadline) {
			t.Fatal("refresh did not finish in time")
		}
		time.Sleep(time.Millisecond)
	}
}

func TestRefreshSuccessUpdatesStore(t *testing.T) {
	store := cache.NewStore()
	station := petrol.Station{Brand: "Brand_1"}
	c := newCoordinator(func(ctx context.Context, typ petrol.Type) ([]petrol.Station, error) {
		return []petrol.Station{station}, nil
	}, store, time.Second)

	before := time.Now()
	if err := c.Refresh(context.Background(), petrol.DieselAuto); err != nil {
		t.Fatalf("refresh should succeed: %v", err)
	}

	list, ok := store.Get(petrol.DieselAuto)
	if !ok {
		t.Fatal("snapshot should exist after a successful refresh")
	}
	if len(list.Stations) != 1 || list.Stations[0].Brand != "Brand_1" {
		t.Fatalf("unexpected stations: %+v", list.Stations)
	}
	if list.UpdatedAt < before.UnixMilli() {
		t.Fatalf("updated_at %d predates the refresh start %d", list.UpdatedAt, before.UnixMilli())
	}
	if store.Refreshing(petrol.DieselAuto) {
		t.Fatal("refresh flag should be released")
	}
}

func TestRefreshFailureLeavesStoreUntouched(t *testing.T) {
	store := cache.NewStore()
	good := petrol.NewPriceList(petrol.Unlead98, []petrol.Station{{Brand: "kept"}}, time.Now())
	store.Put(petrol.Unlead98, good)

	c := newCoordinator(func(ctx context.Context, typ petrol.Type) ([]petrol.Station, error) {
		return nil, errors.New("upstream down")
	}, store, time.Second)

	if err := c.Refresh(context.Background(), petrol.Unlead98); err == nil {
		t.Fatal("refresh should surface the fetch error")
	}

	list, ok := store.Get(petrol.Unlead98)
	if !ok {
		t.Fatal("previous snapshot must survive a failed refresh")
	}
	if list.UpdatedAt != good.UpdatedAt || list.Stations[0].Brand != "kept" {
		t.Fatalf("failed refresh mutated the store: %+v", list)
	}
	if store.Refreshing(petrol.Unlead98) {
		t.Fatal("refresh flag should be released after failure")
	}
}

func TestRefreshFailureColdCacheStaysCold(t *testing.T) {
	store := cache.NewStore()
	c := newCoordinator(func(ctx context.Context, typ petrol.Type) ([]petrol.Station, error) {
		return nil, errors.New("upstream down")
	}, store, time.Second)

	_ = c.Refresh(context.Background(), petrol.Kerosene)

	if _, ok := store.Get(petrol.Kerosene); ok {
		t.Fatal("failed first refresh must not create a snapshot")
	}
}

func TestRefreshAlreadyRunning(t *testing.T) {
	store := cache.NewStore()
	release := make(chan struct{})
	c := newCoordinator(func(ctx context.Context, typ petrol.Type) ([]petrol.Station, error) {
		<-release
		return nil, nil
	}, store, time.Second)

	if outcome := c.RefreshAsync(petrol.Unlead95); outcome != Accepted {
		t.Fatalf("first refresh should be accepted, got %s", outcome)
	}
	if outcome := c.RefreshAsync(petrol.Unlead95); outcome != AlreadyRunning {
		t.Fatalf("second refresh should report already running, got %s", outcome)
	}
	if err := c.Refresh(context.Background(), petrol.Unlead95); !errors.Is(err, ErrAlreadyRunning) {
		t.Fatalf("blocking refresh should return ErrAlreadyRunning, got %v", err)
	}

	// A different key is independent of the in-flight refresh.
	if outcome := c.RefreshAsync(petrol.Kerosene); outcome != Accepted {
		t.Fatalf("other key should be accepted, got %s", outcome)
	}

	close(release)
	waitNotRefreshing(t, store, petrol.Unlead95)
	waitNotRefreshing(t, store, petrol.Kerosene)

	if outcome := c.RefreshAsync(petrol.Unlead95); outcome != Accepted {
		t.Fatalf("refresh after completion should be accepted, got %s", outcome)
	}
	waitNotRefreshing(t, store, petrol.Unlead95)
}

func TestRefreshTimeoutTreatedAsFailure(t *testing.T) {
	store := cache.NewStore()
	c := newCoordinator(func(ctx context.Context, typ petrol.Type) ([]petrol.Station, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}, store, 10*time.Millisecond)

	err := c.Refresh(context.Background(), petrol.DieselHeat)
	if err == nil {
		t.Fatal("timed out refresh should fail")
	}
	if _, ok := store.Get(petrol.DieselHeat); ok {
		t.Fatal("timed out refresh must not write a snapshot")
	}
	if store.Refreshing(petrol.DieselHeat) {
		t.Fatal("refresh flag should be released after timeout")
	}
}
